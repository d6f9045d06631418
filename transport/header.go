package transport

import (
	"maps"
	"net/http"
	"slices"
)

// Header maps header names to values. Keys are case-sensitive.
type Header map[string]string

// Clone returns a copy of h.
func (h Header) Clone() Header {
	if h == nil {
		return Header{}
	}
	return maps.Clone(h)
}

// MergeHeaders copies every layer into a new header, later layers overriding
// earlier ones.
func MergeHeaders(layers ...Header) Header {
	size := 0
	for _, l := range layers {
		size += len(l)
	}
	merged := make(Header, size)
	for _, l := range layers {
		maps.Copy(merged, l)
	}
	return merged
}

// apply sets h on req in key order so that keys differing only by case
// resolve the same way on every call.
func (h Header) apply(req *http.Request) {
	for _, k := range slices.Sorted(maps.Keys(h)) {
		req.Header.Set(k, h[k])
	}
}
