// Package ctf implements the Compact Track Format: the self-describing
// binary archive used for both loading a standalone player dataset and
// saving a live editor session to disk.
package ctf

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/kajott/crocket/internal/track"
)

// signature is the 16-byte CTF header: an ASCII magic, a native-endian
// float probe (detects cross-endian files), and the classic CRLF/NUL/EOF
// corruption-detector tail borrowed from the PNG signature idea.
var signature = func() [16]byte {
	var sig [16]byte
	copy(sig[0:8], []byte("crocket\n"))
	// bytes 8..11: native-endian IEEE-754 1.0f
	bits := math.Float32bits(1.0)
	binary.NativeEndian.PutUint32(sig[8:12], bits)
	copy(sig[12:16], []byte{0x0D, 0x0A, 0x00, 0x1A})
	return sig
}()

// Encode serializes the registry's non-empty tracks to a CTF image.
func Encode(reg *track.Registry) []byte {
	var buf bytes.Buffer
	buf.Write(signature[:])

	nonEmpty := make([]*track.Track, 0, reg.Len())
	for _, t := range reg.Tracks {
		if len(t.Keys) > 0 {
			nonEmpty = append(nonEmpty, t)
		}
	}

	writeLEB128(&buf, uint32(len(nonEmpty)))
	for _, t := range nonEmpty {
		writeLEB128(&buf, uint32(len(t.Name)))
		buf.WriteString(t.Name)
		writeLEB128(&buf, uint32(len(t.Keys)))

		var reference uint32
		for _, k := range t.Keys {
			delta := k.Row - reference
			writeLEB128(&buf, delta)
			reference = k.Row + 1

			var fbuf [4]byte
			binary.NativeEndian.PutUint32(fbuf[:], math.Float32bits(k.Value))
			buf.Write(fbuf[:])
			buf.WriteByte(byte(k.Interp))
		}
	}
	return buf.Bytes()
}

// Decode parses a CTF image into reg. Tracks are matched to the registry
// by exact name; unknown track names have their keyframe stream read and
// discarded (to stay aligned) rather than rejected. A signature mismatch
// silently leaves the registry untouched. Decode trusts the input: beyond
// the signature check it performs no bounds validation, matching the
// trusted-source contract of the original format.
func Decode(data []byte, reg *track.Registry) {
	if len(data) < 16 || !bytes.Equal(data[:16], signature[:]) {
		return
	}
	r := &byteReader{data: data, pos: 16}

	count := r.leb128()
	for i := uint32(0); i < count; i++ {
		nameLen := r.leb128()
		name := string(r.take(int(nameLen)))
		keyCount := r.leb128()

		idx := reg.IndexOf(name)
		if idx < 0 {
			// unknown track: discard its key stream to stay aligned
			for k := uint32(0); k < keyCount; k++ {
				r.leb128()
				r.take(5) // 4-byte float + 1-byte interp
			}
			continue
		}
		t := reg.At(idx)
		t.Keys = make([]track.Keyframe, keyCount)
		var reference uint32
		for k := uint32(0); k < keyCount; k++ {
			delta := r.leb128()
			row := reference + delta
			reference = row + 1

			valBits := binary.NativeEndian.Uint32(r.take(4))
			interp := track.Interp(r.take(1)[0])
			t.Keys[k] = track.Keyframe{
				Row:    row,
				Value:  math.Float32frombits(valBits),
				Interp: interp,
			}
		}
	}
}

// RawTrack is one decoded track, independent of any host-supplied
// registry. Used by tools that inspect a .ctf file without first knowing
// its variable names.
type RawTrack struct {
	Name string
	Keys []track.Keyframe
}

// DecodeRaw parses a CTF image into a list of RawTracks without matching
// against a registry, for tools (e.g. crocket-inspect) that need to read
// an archive's contents without first declaring its variables. Returns
// nil if the signature doesn't match.
func DecodeRaw(data []byte) []RawTrack {
	if len(data) < 16 || !bytes.Equal(data[:16], signature[:]) {
		return nil
	}
	r := &byteReader{data: data, pos: 16}

	count := r.leb128()
	out := make([]RawTrack, 0, count)
	for i := uint32(0); i < count; i++ {
		nameLen := r.leb128()
		name := string(r.take(int(nameLen)))
		keyCount := r.leb128()

		keys := make([]track.Keyframe, keyCount)
		var reference uint32
		for k := uint32(0); k < keyCount; k++ {
			delta := r.leb128()
			row := reference + delta
			reference = row + 1

			valBits := binary.NativeEndian.Uint32(r.take(4))
			interp := track.Interp(r.take(1)[0])
			keys[k] = track.Keyframe{Row: row, Value: math.Float32frombits(valBits), Interp: interp}
		}
		out = append(out, RawTrack{Name: name, Keys: keys})
	}
	return out
}

// byteReader is an unchecked cursor over a trusted CTF payload.
type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) take(n int) []byte {
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

// maxLEB128Groups bounds a read to the 5 groups that can ever matter for a
// 32-bit value (ceil(32/7) == 5). The reference decoder reads an unbounded
// continuation chain; we cap it so a stray continuation bit past the 5th
// byte can't shift a uint32 out from under us. This is stricter than the
// trusted-input contract requires but costs nothing on well-formed input,
// since a correctly written value never sets the continuation bit on its
// 5th byte.
const maxLEB128Groups = 5

func (r *byteReader) leb128() uint32 {
	var result uint32
	var shift uint
	for i := 0; i < maxLEB128Groups; i++ {
		b := r.data[r.pos]
		r.pos++
		result |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	return result
}

// writeLEB128 encodes v as unsigned LEB128, up to 5 bytes for a 32-bit
// value.
func writeLEB128(buf *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf.WriteByte(b)
		if v == 0 {
			return
		}
	}
}
