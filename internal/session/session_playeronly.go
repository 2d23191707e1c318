//go:build crocket_playeronly
// +build crocket_playeronly

// Package session, crocket_playeronly build: the stripped mode manager
// spec.md §6 describes for a "player only" host that never talks to a
// live editor. init always lands in PLAYER mode, set_mode is inert, and
// serialize yields an empty buffer — so this file carries no dependency
// on internal/transport or internal/protocol; none of that code is
// compiled into a player-only binary.
//
// Loading a previously saved track file still works (CTF decoding is
// domain code, not client/protocol/serialize code), and Prometheus/
// journal hookups still work since a standalone player can still be
// worth observing. See session.go for the full build.
package session

import (
	"log"
	"os"

	"github.com/kajott/crocket/internal/ctf"
	"github.com/kajott/crocket/internal/diag"
	"github.com/kajott/crocket/internal/metrics"
	"github.com/kajott/crocket/internal/track"
)

// Mode is always Player in this build; the type and the Client constant
// are kept so host code written against the full build still compiles.
type Mode int

const (
	Player Mode = iota
	Client
)

func (m Mode) String() string {
	if m == Client {
		return "client"
	}
	return "player"
}

// EventMask mirrors the full build's bitmask. ConnectEvt, Disconnect,
// and Seek are never set by this build — nothing here ever drives a
// socket — but the constants stay so host code compiles unchanged
// against either build.
type EventMask uint32

const (
	Playing EventMask = 1 << iota
	Connected
	Stop
	Play
	Seek
	ConnectEvt
	Disconnect
	Save
	Action
)

const persistentMask = Playing | Connected

// noRow is the "no row reported yet" sentinel for editorRow.
const noRow int64 = -1

// Session is the player-only build's mode manager: a registry, a
// playback row, and the event bitmask. There is no socket, no mode
// switching, and no reconnect bookkeeping.
type Session struct {
	registry  *track.Registry
	savePath  string
	timescale float32
	editorRow int64

	mask         EventMask
	pendingClear bool
	lastActionN  uint32

	metrics *metrics.Collector
	journal *diag.Journal
}

// Options configures New. Fields with no meaning in this build (none
// currently) are simply absent from the call sites that matter.
type Options struct {
	Registry *track.Registry
	RPM      float64
	SaveFile string
	Data     []byte
	Metrics  *metrics.Collector
	Journal  *diag.Journal
}

// New constructs a Session already in PLAYER mode: it loads Data or
// SaveFile (if given) and immediately starts playing. There is no
// editor to dial, so no connection attempt is ever made.
func New(opts Options) *Session {
	s := &Session{
		registry:  opts.Registry,
		savePath:  opts.SaveFile,
		timescale: timescaleFromRPM(opts.RPM),
		editorRow: noRow,
		metrics:   opts.Metrics,
		journal:   opts.Journal,
	}
	s.loadInitialData(opts)
	s.mask |= Playing | Play
	s.recordMetrics()
	return s
}

func (s *Session) loadInitialData(opts Options) {
	switch {
	case opts.Data != nil:
		ctf.Decode(opts.Data, s.registry)
	case opts.SaveFile != "":
		data, err := os.ReadFile(opts.SaveFile)
		if err != nil {
			log.Printf("crocket: load %s: %v", opts.SaveFile, err)
			return
		}
		ctf.Decode(data, s.registry)
	}
}

func timescaleFromRPM(rpm float64) float32 {
	if rpm == 60.0 {
		return 1
	}
	return float32(rpm / 60.0)
}

// Mode always reports Player in this build.
func (s *Session) Mode() Mode { return Player }

// SetMode is inert per spec.md §6: a player-only build has no CLIENT
// mode to switch into, and PLAYER is already where it lives.
func (s *Session) SetMode(m Mode) {}

// Update samples every track at the host's time and returns the
// accumulated event bitmask. There is no socket to drain and no editor
// row to reconcile against, so *t is never overwritten.
func (s *Session) Update(t *float64) EventMask {
	if s.pendingClear {
		s.mask &^= ^persistentMask
	}
	s.pendingClear = true

	rowF := float32(*t) * s.timescale
	if rowF < 0 {
		rowF = 0
	}
	s.editorRow = int64(rowF)
	s.registry.SampleAll(rowF)

	// SAVE_TRACKS only ever arrives over the editor protocol, which this
	// build never compiles in, so the Save bit is never set and there is
	// nothing to write here.

	return s.mask
}

// LastActionN is always 0: ACTION events only ever arrive from a live
// editor connection, which this build never makes.
func (s *Session) LastActionN() uint32 { return s.lastActionN }

// SampleAt samples the track bound to v at an arbitrary time, without
// writing to v or disturbing any session state.
func (s *Session) SampleAt(v *float32, t float64) float32 {
	for _, tr := range s.registry.Tracks {
		if tr.Var == v {
			rowF := float32(t) * s.timescale
			if rowF < 0 {
				rowF = 0
			}
			return track.Sample(tr, rowF)
		}
	}
	return 0
}

// Serialize returns an empty buffer per spec.md §6: a player-only build
// carries no CTF encoder.
func (s *Session) Serialize() []byte { return []byte{} }

func (s *Session) recordMetrics() {
	if s.metrics == nil {
		return
	}
	s.metrics.SetConnected(false)
	s.metrics.SetMode(false)
}

// Shutdown closes the journal (if any). There is no socket in this
// build.
func (s *Session) Shutdown() {
	if s.journal != nil {
		s.journal.Close()
	}
}
