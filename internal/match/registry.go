package match

// Pair is a raw name→identifier row from one registry source.
type Pair struct {
	Name       string
	CustomerID int64
}

// Source is one authoritative name table, already fetched by the caller.
// Sources are merged in slice order: earlier sources take priority.
type Source struct {
	Name  string
	Pairs []Pair
}

// RegistryEntry is an authoritative customer known by its canonical name.
type RegistryEntry struct {
	CustomerID     int64
	CanonicalName  string
	NormalizedName string
}

// Registry maps normalized names to registry entries. It is built once per
// run and read-only afterwards, so concurrent scoring needs no locking.
type Registry struct {
	byNorm  map[string]RegistryEntry
	entries []RegistryEntry
}

// BuildRegistry merges sources in priority order. Rows with an empty name or
// a non-positive id are skipped. The first source to claim a normalized key
// wins; later sources never overwrite an existing canonical name.
func BuildRegistry(sources []Source) *Registry {
	r := &Registry{byNorm: make(map[string]RegistryEntry)}
	for _, src := range sources {
		for _, p := range src.Pairs {
			if p.Name == "" || p.CustomerID <= 0 {
				continue
			}
			key := Normalize(p.Name)
			if key == "" {
				continue
			}
			if _, exists := r.byNorm[key]; exists {
				continue
			}
			e := RegistryEntry{
				CustomerID:     p.CustomerID,
				CanonicalName:  p.Name,
				NormalizedName: key,
			}
			r.byNorm[key] = e
			r.entries = append(r.entries, e)
		}
	}
	return r
}

// Lookup returns the entry for an already-normalized name.
func (r *Registry) Lookup(normalized string) (RegistryEntry, bool) {
	e, ok := r.byNorm[normalized]
	return e, ok
}

// Entries returns all registry entries in insertion order. Callers must not
// mutate the returned slice.
func (r *Registry) Entries() []RegistryEntry {
	return r.entries
}

// Len reports the number of distinct normalized names in the registry.
func (r *Registry) Len() int {
	return len(r.byNorm)
}
