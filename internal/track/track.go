// Package track implements the keyframe engine: ordered per-track keyframe
// arrays, binary-search insertion/lookup, and the four-mode sampling
// function that drives a bound host variable each frame.
package track

import "sort"

// Interp is a keyframe's interpolation mode, applied to the segment that
// starts at that keyframe.
type Interp uint8

const (
	Step Interp = iota
	Linear
	Smoothstep
	Ramp
)

// Keyframe is a single (row, value, interpolation) triple. Keys within a
// Track are kept in strictly increasing Row order.
type Keyframe struct {
	Row    uint32
	Value  float32
	Interp Interp
}

// initialKeyCapacity is the starting capacity of a track's key slice; it
// doubles on each reallocation, mirroring the reference implementation's
// geometric growth.
const initialKeyCapacity = 16

// Track is a named sequence of keyframes bound to exactly one host
// variable. The host retains ownership of the backing float32; the Track
// writes to it during sampling and nothing else may write to it
// concurrently.
type Track struct {
	Name string
	Var  *float32
	Keys []Keyframe
}

// New creates an empty track bound to v.
func New(name string, v *float32) *Track {
	return &Track{Name: name, Var: v}
}

// findSegment returns k such that k==0 means rowF is before the first key,
// k==len(keys) means rowF is at or past the last key, and otherwise rowF
// lies in [keys[k-1].Row, keys[k].Row). An exact hit on keys[i].Row returns
// i+1.
func findSegment(keys []Keyframe, rowF float32) int {
	n := len(keys)
	if n == 0 {
		return 0
	}
	// sort.Search finds the first index whose Row is >= rowF; an exact hit
	// there is bumped by one, so the result is the first index whose Row is
	// strictly greater than rowF.
	i := sort.Search(n, func(i int) bool {
		return float32(keys[i].Row) >= rowF
	})
	if i < n && float32(keys[i].Row) == rowF {
		return i + 1
	}
	return i
}

// Sample evaluates the track at floating-point row rowF. An empty track
// samples to 0. Negative rows clamp to 0. A row before the first key
// returns the first key's value; a row at or past the last key, or whose
// left key uses Step interpolation, returns the left key's value verbatim.
func Sample(t *Track, rowF float32) float32 {
	if len(t.Keys) == 0 {
		return 0
	}
	if rowF <= 0 {
		rowF = 0
	}
	k := findSegment(t.Keys, rowF)
	if k == 0 {
		return t.Keys[0].Value
	}
	if k == len(t.Keys) {
		return t.Keys[len(t.Keys)-1].Value
	}
	left := t.Keys[k-1]
	right := t.Keys[k]
	if left.Interp == Step {
		return left.Value
	}
	span := float32(right.Row) - float32(left.Row)
	if span <= 0 {
		return left.Value
	}
	tt := (rowF - float32(left.Row)) / span
	var shaped float32
	switch left.Interp {
	case Linear:
		shaped = tt
	case Smoothstep:
		shaped = 3*tt*tt - 2*tt*tt*tt
	case Ramp:
		shaped = tt * tt
	default:
		return 0
	}
	return left.Value + shaped*(right.Value-left.Value)
}

// SetKey inserts or overwrites the keyframe at row, maintaining strictly
// increasing row order. Allocation failure has no degradation path here:
// since Go slices grow transparently, the only failure mode left is an
// out-of-memory failure from append/make, which is not recovered from
// locally — callers running in a memory-constrained demo
// environment should size the registry accordingly.
func SetKey(t *Track, row uint32, value float32, interp Interp) {
	k := findSegment(t.Keys, float32(row))
	if k > 0 && t.Keys[k-1].Row == row {
		t.Keys[k-1].Value = value
		t.Keys[k-1].Interp = interp
		return
	}
	insertAt(t, k, Keyframe{Row: row, Value: value, Interp: interp})
}

func insertAt(t *Track, idx int, kf Keyframe) {
	if cap(t.Keys) == len(t.Keys) {
		newCap := initialKeyCapacity
		if c := cap(t.Keys); c > 0 {
			newCap = c * 2
		}
		grown := make([]Keyframe, len(t.Keys), newCap)
		copy(grown, t.Keys)
		t.Keys = grown
	}
	t.Keys = append(t.Keys, Keyframe{})
	copy(t.Keys[idx+1:], t.Keys[idx:])
	t.Keys[idx] = kf
}

// DeleteKey removes the keyframe at row if present; otherwise it is a
// no-op.
func DeleteKey(t *Track, row uint32) {
	k := findSegment(t.Keys, float32(row))
	if k > 0 && t.Keys[k-1].Row == row {
		t.Keys = append(t.Keys[:k-1], t.Keys[k:]...)
	}
}

// Clear empties a track's keyframes, keeping the backing array for reuse.
func Clear(t *Track) {
	t.Keys = t.Keys[:0]
}
