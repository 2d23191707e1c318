// Package protocol implements the editor wire protocol: the handshake,
// the inbound command set (SET_KEY, DELETE_KEY, SET_ROW, PAUSE,
// SAVE_TRACKS, ACTION), and the single outbound command (SET_ROW). All
// multi-byte integers are big-endian; floats cross the wire as a raw
// 4-byte IEEE-754 bit pattern, endian-swapped the same way a uint32 is.
package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/kajott/crocket/internal/track"
	"github.com/kajott/crocket/internal/transport"
)

// Command tags, server -> client unless noted.
const (
	TagSetKey     = 0
	TagDeleteKey  = 1
	TagGetTrack   = 2 // client -> server
	TagSetRow     = 3 // bidirectional
	TagPause      = 4
	TagSaveTracks = 5
	TagAction     = 6
)

var clientHello = []byte("hello, synctracker!") // 19 bytes
var serverHello = []byte("hello, demo!")        // 12 bytes

// settleWindow is how long the client waits for trailing SET_KEY messages
// after the last GET_TRACK before declaring the handshake complete.
const settleWindow = 100 * time.Millisecond

// Events is the set of notifications a single Drain or Handshake call can
// report to the session layer; each field corresponds to one of the
// session package's event bits, and the session maps them into its bitmask.
type Events struct {
	SetRow     bool // server sent SET_ROW; Row is valid
	Row        uint32
	Play       bool
	Stop       bool
	Save       bool
	Action     bool
	ActionN    uint32
	Disconnect bool // an I/O failure occurred; the connection is dead
}

// Handshake performs the three-step connect sequence: hello exchange, then
// one GET_TRACK per registry track (clearing that track's keys first and
// draining inbound SET_KEYs after each), then a settle window for any
// trailing SET_KEY traffic. It returns a non-nil error (and the caller
// must close and discard the connection) on any greeting mismatch or I/O
// failure.
func Handshake(c *transport.Conn, reg *track.Registry) error {
	if err := c.SendAll(clientHello); err != nil {
		return fmt.Errorf("protocol: handshake send: %w", err)
	}
	reply := make([]byte, len(serverHello))
	if err := c.RecvAll(reply); err != nil {
		return fmt.Errorf("protocol: handshake recv: %w", err)
	}
	if string(reply) != string(serverHello) {
		return fmt.Errorf("protocol: bad server greeting %q", reply)
	}

	for i := 0; i < reg.Len(); i++ {
		t := reg.At(i)
		track.Clear(t)
		if err := sendGetTrack(c, t.Name); err != nil {
			return err
		}
		if err := drainUntilIdle(c, reg, nil); err != nil {
			return err
		}
	}

	// Wait up to settleWindow for additional trailing SET_KEY traffic.
	deadline := time.Now().Add(settleWindow)
	for time.Now().Before(deadline) {
		ready, err := c.PollReadable(time.Until(deadline))
		if err != nil {
			return fmt.Errorf("protocol: handshake settle: %w", err)
		}
		if !ready {
			break
		}
		if err := handleOne(c, reg, nil); err != nil {
			return err
		}
	}
	c.ClearDeadlines()
	return nil
}

func sendGetTrack(c *transport.Conn, name string) error {
	buf := make([]byte, 1+4+len(name))
	buf[0] = TagGetTrack
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(name)))
	copy(buf[5:], name)
	if err := c.SendAll(buf); err != nil {
		return fmt.Errorf("protocol: GET_TRACK %q: %w", name, err)
	}
	return nil
}

// drainUntilIdle handles zero-timeout-ready messages until none remain. It
// is used both by the handshake (after each GET_TRACK) and by the
// per-update drain.
func drainUntilIdle(c *transport.Conn, reg *track.Registry, ev *Events) error {
	for {
		ready, err := c.PollReadable(0)
		if err != nil {
			return fmt.Errorf("protocol: poll: %w", err)
		}
		if !ready {
			return nil
		}
		if err := handleOne(c, reg, ev); err != nil {
			return err
		}
	}
}

// Drain is the per-update entry point: it handles every currently-ready
// inbound message (zero-timeout polling, so it never blocks) and
// accumulates any events raised into ev.
func Drain(c *transport.Conn, reg *track.Registry, ev *Events) error {
	return drainUntilIdle(c, reg, ev)
}

// handleOne reads and applies exactly one inbound message. ev may be nil
// during the handshake settle phase, where only SET_KEY/DELETE_KEY are
// expected but other tags are tolerated the same way.
func handleOne(c *transport.Conn, reg *track.Registry, ev *Events) error {
	tag := make([]byte, 1)
	if err := c.RecvAll(tag); err != nil {
		return fmt.Errorf("protocol: recv tag: %w", err)
	}

	switch tag[0] {
	case TagSetKey:
		// u32 track, u32 row, f32 value, u8 interp = 13 bytes
		var body [13]byte
		if err := c.RecvAll(body[:]); err != nil {
			return fmt.Errorf("protocol: recv SET_KEY: %w", err)
		}
		trackIdx := int(binary.BigEndian.Uint32(body[0:4]))
		row := binary.BigEndian.Uint32(body[4:8])
		value := math.Float32frombits(binary.BigEndian.Uint32(body[8:12]))
		interp := track.Interp(body[12])
		reg.SetKey(trackIdx, row, value, interp)
		return nil

	case TagDeleteKey:
		var body [8]byte
		if err := c.RecvAll(body[:]); err != nil {
			return fmt.Errorf("protocol: recv DELETE_KEY: %w", err)
		}
		trackIdx := int(binary.BigEndian.Uint32(body[0:4]))
		row := binary.BigEndian.Uint32(body[4:8])
		reg.DeleteKey(trackIdx, row)
		return nil

	case TagSetRow:
		var body [4]byte
		if err := c.RecvAll(body[:]); err != nil {
			return fmt.Errorf("protocol: recv SET_ROW: %w", err)
		}
		if ev != nil {
			ev.SetRow = true
			ev.Row = binary.BigEndian.Uint32(body[:])
		}
		return nil

	case TagPause:
		var body [1]byte
		if err := c.RecvAll(body[:]); err != nil {
			return fmt.Errorf("protocol: recv PAUSE: %w", err)
		}
		if ev != nil {
			if body[0] != 0 {
				ev.Stop = true
			} else {
				ev.Play = true
			}
		}
		return nil

	case TagSaveTracks:
		if ev != nil {
			ev.Save = true
		}
		return nil

	case TagAction:
		var body [4]byte
		if err := c.RecvAll(body[:]); err != nil {
			return fmt.Errorf("protocol: recv ACTION: %w", err)
		}
		if ev != nil {
			ev.Action = true
			ev.ActionN = binary.BigEndian.Uint32(body[:])
		}
		return nil

	default:
		// Unknown tag: no documented payload length, so it cannot be
		// safely skipped. Treat as end-of-turn without disconnecting,
		// matching the reference client's tolerant behavior.
		return nil
	}
}

// SendSetRow notifies the server that the client's playback row changed.
func SendSetRow(c *transport.Conn, row uint32) error {
	var buf [5]byte
	buf[0] = TagSetRow
	binary.BigEndian.PutUint32(buf[1:5], row)
	if err := c.SendAll(buf[:]); err != nil {
		return fmt.Errorf("protocol: send SET_ROW: %w", err)
	}
	return nil
}
