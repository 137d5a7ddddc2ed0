package battlelog

import "strconv"

// Registry hands out sequential pseudonyms keyed by the exact display name.
// The mapping is append-only for the lifetime of the registry.
//
// Registry is not safe for concurrent use. Everything that needs a consistent
// pseudonym space must go through the same goroutine.
type Registry struct {
	pseudonyms map[string]string
	last       uint64
}

func NewRegistry() *Registry {
	return &Registry{pseudonyms: make(map[string]string)}
}

// Pseudonym returns the pseudonym assigned to name, assigning the next one when
// the name has not been seen yet.
func (r *Registry) Pseudonym(name string) string {
	if pseudonym, ok := r.pseudonyms[name]; ok {
		return pseudonym
	}
	r.last++
	pseudonym := strconv.FormatUint(r.last, 10)
	r.pseudonyms[name] = pseudonym
	return pseudonym
}

func (r *Registry) Len() int {
	return len(r.pseudonyms)
}
