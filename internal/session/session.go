//go:build !crocket_playeronly
// +build !crocket_playeronly

// Package session implements the mode manager: the state machine that
// picks between PLAYER and CLIENT mode at startup, drives the handshake
// and per-frame protocol drain, reconciles the host's playback time
// against the editor's authoritative row, and folds everything into the
// one-shot event bitmask the public surface returns from Update.
//
// This file is the full build. See session_playeronly.go for the
// crocket_playeronly build, which strips the client/protocol/serialize
// code per spec.md §6.
package session

import (
	"log"
	"os"

	"github.com/kajott/crocket/internal/ctf"
	"github.com/kajott/crocket/internal/diag"
	"github.com/kajott/crocket/internal/metrics"
	"github.com/kajott/crocket/internal/protocol"
	"github.com/kajott/crocket/internal/track"
	"github.com/kajott/crocket/internal/transport"
)

// Mode is the session's current operating mode.
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

// EventMask is the bitmask update() returns: PLAYING and CONNECTED are
// persistent (reflecting current state); the rest are one-shot and are
// cleared by the session immediately after being returned.
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

// Session holds everything the mode manager owns: mode, socket, playback
// row bookkeeping, and the event bitmask. The host drives it entirely
// through Update, called once per frame on a single thread; nothing here
// is safe for concurrent use from multiple goroutines.
type Session struct {
	mode      Mode
	conn      *transport.Conn
	endpoint  string
	registry  *track.Registry
	savePath  string
	timescale float32
	editorRow int64

	mask         EventMask
	pendingClear bool // true once a mask has been returned and is due to be cleared
	lastActionN  uint32

	metrics *metrics.Collector
	journal *diag.Journal
}

// Options configures New.
type Options struct {
	Registry *track.Registry

	// RPM is rows-per-minute; timescale = RPM/60. The sentinel 60
	// leaves the timescale at 1 (time already expressed in rows).
	RPM float64

	// SaveFile, if non-empty, is loaded from (PLAYER mode only, unless
	// Data is given) and is the destination for a server-requested
	// SAVE_TRACKS.
	SaveFile string

	// Data, if non-nil, is a CTF image loaded directly into memory
	// instead of reading SaveFile from disk.
	Data []byte

	// Metrics, if non-nil, receives session state changes as they
	// happen so the host can expose them to Prometheus.
	Metrics *metrics.Collector

	// Journal, if non-nil, records session lifecycle events for
	// post-mortem diagnostics.
	Journal *diag.Journal
}

// New constructs a Session in PLAYER mode, attempts exactly one initial
// connection, and falls back to loading a CTF dataset when that fails —
// matching spec.md §4.4's init() state machine.
func New(opts Options) *Session {
	s := &Session{
		mode:      Player,
		registry:  opts.Registry,
		savePath:  opts.SaveFile,
		timescale: timescaleFromRPM(opts.RPM),
		editorRow: noRow,
		metrics:   opts.Metrics,
		journal:   opts.Journal,
	}

	endpoint, err := transport.ResolveEndpoint()
	if err != nil {
		log.Printf("crocket: endpoint resolution failed, staying in player mode: %v", err)
		s.loadInitialData(opts)
		s.enterPlayerMode()
		return s
	}
	s.endpoint = endpoint

	if s.tryConnect() {
		s.mode = Client
		s.mask |= Connected | ConnectEvt
		s.recordMetrics()
		s.recordJournal("CONNECT", "")
	} else {
		s.loadInitialData(opts)
		s.enterPlayerMode()
	}
	return s
}

// enterPlayerMode applies the "now playing" bits a host expects whenever
// a Session lands in PLAYER mode, whether via New's connect fallback or
// an explicit SetMode(Player): a standalone player has no external pause
// control, so it always starts (and resumes) in a playing state.
func (s *Session) enterPlayerMode() {
	s.mask &^= Connected
	s.mask |= Playing | Play
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

// Mode reports the session's current mode.
func (s *Session) Mode() Mode { return s.mode }

// SetMode switches modes per spec.md §4.4: switching to PLAYER closes the
// socket and sets PLAYING+PLAY (so a host leaving a paused editor session
// keeps running); switching to CLIENT just arms the next Update to
// attempt a connection.
func (s *Session) SetMode(m Mode) {
	if m == s.mode {
		return
	}
	switch m {
	case Player:
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		s.enterPlayerMode()
	case Client:
		// next Update's reconnect attempt picks this up
	}
	s.mode = m
	s.recordMetrics()
	s.recordJournal("MODE", m.String())
}

// Update is the per-frame entry point: it attempts a reconnect if needed,
// drains all currently-ready protocol messages, reconciles the host's
// time against the editor's row, samples every track into its bound
// variable, and returns the event bitmask accumulated this frame. t is
// read and, on a server-initiated SEEK, overwritten with the
// authoritative time.
func (s *Session) Update(t *float64) EventMask {
	// Bits set before the very first Update (PLAYING/PLAY from New's
	// fallback into player mode, or CONNECTED/CONNECT from a successful
	// initial handshake) must survive to be returned once; only a mask
	// that was already handed back to the host gets its one-shot bits
	// cleared here.
	if s.pendingClear {
		s.mask &^= ^persistentMask
	}
	s.pendingClear = true

	if s.mode == Client {
		s.reconnect()
	}

	var ev protocol.Events
	if s.mode == Client && s.conn != nil {
		if err := protocol.Drain(s.conn, s.registry, &ev); err != nil {
			s.onDisconnect()
		}
	}
	s.applyProtocolEvents(ev)

	rowF := s.reconcileRow(t)
	s.registry.SampleAll(rowF)

	if s.mask&Save != 0 && s.savePath != "" {
		if err := os.WriteFile(s.savePath, ctf.Encode(s.registry), 0o644); err != nil {
			log.Printf("crocket: save %s: %v", s.savePath, err)
		}
	}

	return s.mask
}

func (s *Session) applyProtocolEvents(ev protocol.Events) {
	if ev.SetRow {
		s.editorRow = int64(ev.Row)
		s.mask |= Seek
		s.recordEvent("seek")
		s.recordJournal("SEEK", "")
	}
	if ev.Play {
		s.mask |= Play | Playing
		s.mask &^= Stop
	}
	if ev.Stop {
		s.mask |= Stop
		s.mask &^= Play | Playing
	}
	if ev.Save {
		s.mask |= Save
		s.recordEvent("save")
		s.recordJournal("SAVE", "")
	}
	if ev.Action {
		s.mask |= Action
		s.lastActionN = ev.ActionN
		s.recordEvent("action")
	}
}

// reconcileRow implements spec.md §4.4's seek-reconciliation rule: if a
// server SET_ROW landed this frame, editorRow is authoritative and wins,
// with a small positive nudge so the float conversion never lands one
// segment short of the intended integer row; otherwise the host's own
// time supplies the row, and a changed integer row is reported upstream.
func (s *Session) reconcileRow(t *float64) float32 {
	if s.mask&Seek != 0 {
		var rowF float32
		if s.editorRow > 0 {
			rowF = float32(s.editorRow) + 1.0/65536.0
		} else {
			rowF = 0
		}
		*t = float64(rowF) / float64(s.timescale)
		return rowF
	}

	rowF := float32(*t) * s.timescale
	if rowF < 0 {
		rowF = 0
	}
	intRow := int64(rowF)
	if intRow != s.editorRow {
		if s.mode == Client && s.conn != nil {
			if err := protocol.SendSetRow(s.conn, uint32(intRow)); err != nil {
				s.onDisconnect()
			}
		}
		s.editorRow = intRow
	}
	return rowF
}

// LastActionN returns the ACTION payload most recently observed. Valid
// only when the Action bit was set in the EventMask Update just returned.
func (s *Session) LastActionN() uint32 { return s.lastActionN }

// reconnect is a no-op when already connected; otherwise it attempts
// exactly one fresh handshake per spec.md §3's "each update attempts
// exactly one reconnect" invariant. transport.Dial's ConnectTimeout
// bounds the blocking cost of a doomed attempt to one short dial.
func (s *Session) reconnect() {
	if s.mask&Connected != 0 {
		return
	}
	if s.tryConnect() {
		s.mask |= Connected | ConnectEvt
		s.recordMetrics()
		s.recordJournal("CONNECT", "")
	}
}

func (s *Session) tryConnect() bool {
	if s.endpoint == "" {
		var err error
		s.endpoint, err = transport.ResolveEndpoint()
		if err != nil {
			return false
		}
	}
	c, err := transport.Dial(s.endpoint)
	if err != nil {
		return false
	}
	if err := protocol.Handshake(c, s.registry); err != nil {
		c.Close()
		return false
	}
	s.conn = c
	return true
}

func (s *Session) onDisconnect() {
	s.conn.Close()
	s.conn = nil
	s.mask &^= Connected
	s.mask |= Disconnect
	s.recordMetrics()
	s.recordEvent("disconnect")
	if s.metrics != nil {
		s.metrics.RecordDisconnect()
	}
	s.recordJournal("DISCONNECT", "")
}

func (s *Session) recordMetrics() {
	if s.metrics == nil {
		return
	}
	s.metrics.SetConnected(s.mask&Connected != 0)
	s.metrics.SetMode(s.mode == Client)
	if s.mask&ConnectEvt != 0 {
		s.metrics.RecordReconnect()
	}
}

func (s *Session) recordEvent(name string) {
	if s.metrics != nil {
		s.metrics.RecordEvent(name)
	}
}

func (s *Session) recordJournal(kind, detail string) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(kind, s.editorRow, detail); err != nil {
		log.Printf("crocket: journal record %s: %v", kind, err)
	}
}

// Serialize returns a freshly encoded CTF image of the current registry
// state. The caller owns the returned slice.
func (s *Session) Serialize() []byte {
	return ctf.Encode(s.registry)
}

// SampleAt samples the track bound to v at an arbitrary time, without
// writing to v and without disturbing editorRow or any event bit — the
// side-effect-free get_value the public API exposes for scrubbing a time
// the host is only previewing, not committing to.
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

// Shutdown closes the socket (if any) and the journal (if any). The
// registry itself has no separate teardown: it is owned by the host for
// as long as the process runs.
func (s *Session) Shutdown() {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.journal != nil {
		s.journal.Close()
	}
}
