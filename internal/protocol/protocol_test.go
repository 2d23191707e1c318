package protocol

import (
	"encoding/binary"
	"math"
	"net"
	"testing"
	"time"

	"github.com/kajott/crocket/internal/track"
	"github.com/kajott/crocket/internal/transport"
)

// newPipe returns a connected client/server pair over a real loopback TCP
// socket rather than net.Pipe: the protocol drain logic depends on
// zero-timeout polling seeing data a peer already wrote, which needs a
// kernel socket buffer rather than net.Pipe's synchronous rendezvous.
func newPipe(t *testing.T) (client, server *transport.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	serverCh := make(chan net.Conn, 1)
	go func() {
		nc, _ := ln.Accept()
		serverCh <- nc
	}()

	nc1, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	nc2 := <-serverCh
	return transport.NewConn(nc1), transport.NewConn(nc2)
}

func TestHandshakeSuccess(t *testing.T) {
	client, server := newPipe(t)
	defer client.Close()
	defer server.Close()

	reg := track.NewRegistry([]track.Entry{
		{Name: "foo", Var: new(float32)},
		{Name: "bar", Var: new(float32)},
	})

	serverDone := make(chan error, 1)
	go func() { serverDone <- fakeServer(server, reg, nil) }()

	if err := Handshake(client, reg); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if err := <-serverDone; err != nil {
		t.Fatalf("fakeServer: %v", err)
	}
}

func TestHandshakeBadGreetingFails(t *testing.T) {
	client, server := newPipe(t)
	defer client.Close()
	defer server.Close()

	reg := track.NewRegistry(nil)
	go func() {
		hdr := make([]byte, 19)
		server.RecvAll(hdr)
		server.SendAll([]byte("not a greeting!"))
	}()
	if err := Handshake(client, reg); err == nil {
		t.Fatalf("Handshake: expected error on bad greeting")
	}
}

// fakeServer plays the server side of the handshake: reply hello, then for
// each GET_TRACK send the SET_KEY that setKeys lists for that track name,
// if any, so the client observes a populated track, mirroring scenario 2
// in the spec's end-to-end tests.
func fakeServer(c *transport.Conn, reg *track.Registry, setKeys map[string][3]any) error {
	hello := make([]byte, 19)
	if err := c.RecvAll(hello); err != nil {
		return err
	}
	if err := c.SendAll([]byte("hello, demo!")); err != nil {
		return err
	}

	for i := 0; i < reg.Len(); i++ {
		tagBuf := make([]byte, 1)
		if err := c.RecvAll(tagBuf); err != nil {
			return err
		}
		lenBuf := make([]byte, 4)
		if err := c.RecvAll(lenBuf); err != nil {
			return err
		}
		n := binary.BigEndian.Uint32(lenBuf)
		nameBuf := make([]byte, n)
		if err := c.RecvAll(nameBuf); err != nil {
			return err
		}
		name := string(nameBuf)

		if kv, ok := setKeys[name]; ok {
			row := kv[0].(uint32)
			value := kv[1].(float32)
			interp := kv[2].(track.Interp)
			msg := make([]byte, 14)
			msg[0] = TagSetKey
			binary.BigEndian.PutUint32(msg[1:5], uint32(i))
			binary.BigEndian.PutUint32(msg[5:9], row)
			binary.BigEndian.PutUint32(msg[9:13], math.Float32bits(value))
			msg[13] = byte(interp)
			if err := c.SendAll(msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func TestHandshakeAppliesSetKeyDuringDrain(t *testing.T) {
	client, server := newPipe(t)
	defer client.Close()
	defer server.Close()

	reg := track.NewRegistry([]track.Entry{
		{Name: "foo", Var: new(float32)},
	})
	setKeys := map[string][3]any{
		"foo": {uint32(10), float32(2.5), track.Step},
	}

	serverDone := make(chan error, 1)
	go func() { serverDone <- fakeServer(server, reg, setKeys) }()

	if err := Handshake(client, reg); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if err := <-serverDone; err != nil {
		t.Fatalf("fakeServer: %v", err)
	}

	got := track.Sample(reg.At(0), 1000)
	if got != 2.5 {
		t.Fatalf("post-handshake sample = %v, want 2.5", got)
	}
}

func TestDrainHandlesSetRow(t *testing.T) {
	client, server := newPipe(t)
	defer client.Close()
	defer server.Close()

	go func() {
		buf := make([]byte, 5)
		buf[0] = TagSetRow
		binary.BigEndian.PutUint32(buf[1:], 64)
		server.SendAll(buf)
	}()

	reg := track.NewRegistry(nil)
	var ev Events
	// Give the goroutine a moment to write before polling zero-timeout.
	time.Sleep(10 * time.Millisecond)
	if err := Drain(client, reg, &ev); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if !ev.SetRow || ev.Row != 64 {
		t.Fatalf("ev = %+v, want SetRow=true Row=64", ev)
	}
}

func TestDrainHandlesPauseAndSave(t *testing.T) {
	client, server := newPipe(t)
	defer client.Close()
	defer server.Close()

	go func() {
		server.SendAll([]byte{TagPause, 1}) // flag != 0 -> Stop
		server.SendAll([]byte{TagSaveTracks})
	}()

	reg := track.NewRegistry(nil)
	var ev Events
	time.Sleep(10 * time.Millisecond)
	if err := Drain(client, reg, &ev); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if !ev.Stop || !ev.Save {
		t.Fatalf("ev = %+v, want Stop=true Save=true", ev)
	}
}

func TestDrainIgnoresUnknownTag(t *testing.T) {
	client, server := newPipe(t)
	defer client.Close()
	defer server.Close()

	go func() {
		server.SendAll([]byte{0xEE})
		server.SendAll([]byte{TagSaveTracks})
	}()

	reg := track.NewRegistry(nil)
	var ev Events
	time.Sleep(10 * time.Millisecond)
	if err := Drain(client, reg, &ev); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if !ev.Save {
		t.Fatalf("ev = %+v, want Save=true (unknown tag tolerated)", ev)
	}
}

func TestSendSetRowWireFormat(t *testing.T) {
	client, server := newPipe(t)
	defer client.Close()
	defer server.Close()

	go SendSetRow(client, 123)

	buf := make([]byte, 5)
	if err := server.RecvAll(buf); err != nil {
		t.Fatalf("RecvAll: %v", err)
	}
	if buf[0] != TagSetRow {
		t.Fatalf("tag = %d, want %d", buf[0], TagSetRow)
	}
	if got := binary.BigEndian.Uint32(buf[1:]); got != 123 {
		t.Fatalf("row = %d, want 123", got)
	}
}
