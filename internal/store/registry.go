// Package store handles the physical SQLite corpus: discovering candidate
// stores on disk, read-only connections, schema introspection, and bounded
// statement execution.
package store

// Descriptor identifies one routable store discovered during a scan.
// Descriptors are immutable until the next rescan.
type Descriptor struct {
	ID            string   `json:"id"`   // slug of the base filename, unique
	Name          string   `json:"name"` // base filename without extension
	Path          string   `json:"path"` // absolute path to the SQLite file
	Rel           string   `json:"rel"`  // path relative to the corpus root
	Dir           string   `json:"dir"`  // directory holding the file (and sidecars)
	TablesPreview []string `json:"tables_preview"`
}

// Registry is the id → descriptor map built at startup.
type Registry struct {
	byID map[string]Descriptor
	ids  []string // sorted
}

// NewRegistry builds a registry from a scan result. The input is assumed
// sorted by id (Scan guarantees this).
func NewRegistry(stores []Descriptor) *Registry {
	r := &Registry{byID: make(map[string]Descriptor, len(stores))}
	for _, d := range stores {
		if _, dup := r.byID[d.ID]; dup {
			continue
		}
		r.byID[d.ID] = d
		r.ids = append(r.ids, d.ID)
	}
	return r
}

// Get returns the descriptor for id.
func (r *Registry) Get(id string) (Descriptor, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// IDs returns all store ids in sorted order.
func (r *Registry) IDs() []string {
	return r.ids
}

// All returns all descriptors in id order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.byID[id])
	}
	return out
}

// Len returns the number of registered stores.
func (r *Registry) Len() int {
	return len(r.ids)
}
