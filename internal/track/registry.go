package track

// Entry is one (name, bound variable) pair as supplied by the host's
// variable-declaration mechanism. The core never constructs these itself;
// it only consumes the ordered list the host hands to NewRegistry.
type Entry struct {
	Name string
	Var  *float32
}

// Registry is the static, ordered set of tracks created at init. Index
// assignment follows enumeration order and is authoritative for every
// subsequent protocol message: the wire protocol addresses tracks by this
// index, not by name.
type Registry struct {
	Tracks []*Track
	byName map[string]int
}

// NewRegistry builds a Registry from the host-supplied entry list, in
// order. Names are assumed unique by the host; NewRegistry does not
// de-duplicate.
func NewRegistry(entries []Entry) *Registry {
	r := &Registry{
		Tracks: make([]*Track, len(entries)),
		byName: make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		r.Tracks[i] = New(e.Name, e.Var)
		r.byName[e.Name] = i
	}
	return r
}

// Len reports the number of tracks in the registry.
func (r *Registry) Len() int { return len(r.Tracks) }

// At returns the track at index i, or nil if i is out of range. Callers
// driven by untrusted wire input (a server command naming a track index)
// must check for nil and treat it as a no-op, per spec.
func (r *Registry) At(i int) *Track {
	if i < 0 || i >= len(r.Tracks) {
		return nil
	}
	return r.Tracks[i]
}

// IndexOf returns a track's registry index by exact name match, or -1.
func (r *Registry) IndexOf(name string) int {
	if i, ok := r.byName[name]; ok {
		return i
	}
	return -1
}

// SetKey is the registry-level entry point used by the protocol layer: an
// out-of-range track index is silently ignored rather than erroring.
func (r *Registry) SetKey(trackIndex int, row uint32, value float32, interp Interp) {
	t := r.At(trackIndex)
	if t == nil {
		return
	}
	SetKey(t, row, value, interp)
}

// DeleteKey mirrors SetKey's ignore-out-of-range semantics.
func (r *Registry) DeleteKey(trackIndex int, row uint32) {
	t := r.At(trackIndex)
	if t == nil {
		return
	}
	DeleteKey(t, row)
}

// SampleAll writes sample(track, rowF) into every track's bound variable.
func (r *Registry) SampleAll(rowF float32) {
	for _, t := range r.Tracks {
		if t.Var != nil {
			*t.Var = Sample(t, rowF)
		}
	}
}
