//go:build crocket_playeronly
// +build crocket_playeronly

package session

import (
	"testing"

	"github.com/kajott/crocket/internal/track"
)

func TestPlayerOnlyAlwaysPlayer(t *testing.T) {
	var v float32
	reg := track.NewRegistry([]track.Entry{{Name: "v", Var: &v}})
	s := New(Options{Registry: reg, RPM: 60})

	if s.Mode() != Player {
		t.Fatalf("Mode() = %v, want Player", s.Mode())
	}
	s.SetMode(Client)
	if s.Mode() != Player {
		t.Fatalf("SetMode(Client) should be inert, Mode() = %v", s.Mode())
	}
}

func TestPlayerOnlySerializeIsEmpty(t *testing.T) {
	var v float32
	reg := track.NewRegistry([]track.Entry{{Name: "v", Var: &v}})
	track.SetKey(reg.Tracks[0], 0, 3, track.Step)
	s := New(Options{Registry: reg, RPM: 60})

	data := s.Serialize()
	if len(data) != 0 {
		t.Fatalf("Serialize() = %d bytes, want empty", len(data))
	}
}

func TestPlayerOnlyFirstUpdateStaysPlaying(t *testing.T) {
	var v float32
	reg := track.NewRegistry([]track.Entry{{Name: "v", Var: &v}})
	s := New(Options{Registry: reg, RPM: 60})

	tm := 0.0
	mask := s.Update(&tm)
	if mask&Playing == 0 || mask&Play == 0 {
		t.Fatalf("first Update mask = %09b, want Playing|Play set", mask)
	}
	mask = s.Update(&tm)
	if mask&Play != 0 {
		t.Fatalf("second Update mask = %09b, Play should have cleared", mask)
	}
	if mask&Playing == 0 {
		t.Fatalf("second Update mask = %09b, Playing should persist", mask)
	}
}
