// Package crocket is the public surface of the sync-tracker client: a
// library a demo or visualizer embeds to drive named float variables from
// either a live editor connection or a previously saved track file.
//
// A typical host: declare variables and their track names, call Init once,
// call Update every frame with the host's running time, read the bound
// variables, and call Shutdown on exit.
package crocket

import (
	"github.com/kajott/crocket/internal/diag"
	"github.com/kajott/crocket/internal/metrics"
	"github.com/kajott/crocket/internal/session"
	"github.com/kajott/crocket/internal/track"
)

// Mode mirrors session.Mode: PLAYER (standalone playback from a loaded
// track file) or CLIENT (live editor connection).
type Mode = session.Mode

const (
	Player = session.Player
	Client = session.Client
)

// EventMask is the per-update bitmask: Playing and Connected persist
// across updates; the rest are one-shot, cleared once returned.
type EventMask = session.EventMask

const (
	Playing    = session.Playing
	Connected  = session.Connected
	Stop       = session.Stop
	Play       = session.Play
	Seek       = session.Seek
	ConnectEvt = session.ConnectEvt
	Disconnect = session.Disconnect
	Save       = session.Save
	Action     = session.Action
)

// Interp is a keyframe's interpolation mode.
type Interp = track.Interp

const (
	Step       = track.Step
	Linear     = track.Linear
	Smoothstep = track.Smoothstep
	Ramp       = track.Ramp
)

// Var is one (name, bound-variable) pair, the unit the host declares its
// variable registry out of.
type Var struct {
	Name  string
	Value *float32
}

// Options configures Init.
type Options struct {
	// Vars is the ordered variable registry; index assignment follows
	// this order and is authoritative for wire protocol addressing.
	Vars []Var

	// SaveFile, if non-empty, is loaded from in PLAYER mode (unless Data
	// is given) and is the destination for a server-initiated save.
	SaveFile string

	// Data, if non-nil, is a CTF image loaded directly instead of
	// reading SaveFile from disk.
	Data []byte

	// RPM is rows per minute; timescale = RPM/60. The sentinel 60.0
	// leaves the timescale at 1 (time already expressed in rows).
	RPM float64

	// Metrics, if non-nil, is registered to receive live session state
	// for exposure via Prometheus.
	Metrics *metrics.Collector

	// JournalPath, if non-empty, opens a SQLite-backed diagnostic
	// journal of session lifecycle events at that path.
	JournalPath string
}

// Crocket is one active session: a variable registry bound to either a
// live editor connection or a loaded track file.
type Crocket struct {
	s *session.Session
}

// Init builds a Crocket session per Options and returns it already
// resolved into PLAYER or CLIENT mode: if a live editor is reachable at
// CROCKET_SERVER (or the compiled-in default), it connects and enters
// CLIENT mode; otherwise it loads Data or SaveFile (if given) and stays in
// PLAYER mode.
func Init(opts Options) *Crocket {
	entries := make([]track.Entry, len(opts.Vars))
	for i, v := range opts.Vars {
		entries[i] = track.Entry{Name: v.Name, Var: v.Value}
	}
	registry := track.NewRegistry(entries)

	var journal *diag.Journal
	if opts.JournalPath != "" {
		j, err := diag.Open(opts.JournalPath)
		if err == nil {
			journal = j
		}
	}

	s := session.New(session.Options{
		Registry: registry,
		RPM:      opts.RPM,
		SaveFile: opts.SaveFile,
		Data:     opts.Data,
		Metrics:  opts.Metrics,
		Journal:  journal,
	})
	return &Crocket{s: s}
}

// Shutdown releases the session's socket and journal. The bound variables
// are left at their last sampled values.
func (c *Crocket) Shutdown() {
	c.s.Shutdown()
}

// Update drives one frame: reconnect if needed, drain pending protocol
// messages, reconcile the host's time against the editor's row, sample
// every track into its bound variable, and return the accumulated event
// bitmask. On a server-initiated seek, *t is overwritten with the
// authoritative time.
func (c *Crocket) Update(t *float64) EventMask {
	return c.s.Update(t)
}

// GetValue samples the track bound to handle at an arbitrary time without
// writing to handle or affecting any session state — for previewing a
// scrub position the host has not committed to via Update.
func (c *Crocket) GetValue(handle *float32, t float64) float32 {
	return c.s.SampleAt(handle, t)
}

// Mode reports the session's current mode.
func (c *Crocket) Mode() Mode {
	return c.s.Mode()
}

// SetMode switches between PLAYER and CLIENT. Switching to PLAYER closes
// any open socket; switching to CLIENT arms the next Update to attempt a
// connection.
func (c *Crocket) SetMode(m Mode) {
	c.s.SetMode(m)
}

// LastActionN returns the payload of the most recently observed ACTION
// event. Valid only when the Action bit was set in the mask Update just
// returned.
func (c *Crocket) LastActionN() uint32 {
	return c.s.LastActionN()
}

// Serialize returns a freshly encoded CTF image of the current track
// state. The caller owns the returned slice.
func (c *Crocket) Serialize() []byte {
	return c.s.Serialize()
}
