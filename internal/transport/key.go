package transport

// ConnectionKey canonically identifies a bidirectional TCP connection
// regardless of which endpoint happens to be "src" on a given segment
// (spec.md §3: "normalized unordered pair ... canonicalized by
// lexicographic order of endpoints").
type ConnectionKey struct {
	A, B Endpoint
}

func endpointLess(a, b Endpoint) bool {
	if a.Addr != b.Addr {
		return a.Addr < b.Addr
	}
	return a.Port < b.Port
}

// NewConnectionKey builds the canonical key for a pair of endpoints.
func NewConnectionKey(e1, e2 Endpoint) ConnectionKey {
	if endpointLess(e1, e2) {
		return ConnectionKey{A: e1, B: e2}
	}
	return ConnectionKey{A: e2, B: e1}
}
