package component

// IdentifierID addresses an interned raw identifier.
type IdentifierID uint32

// Identifiers interns raw symbolic identifiers so that the same reference
// registered many times is stored once.
type Identifiers struct {
	ids map[string]IdentifierID
	raw []string
}

func newIdentifiers() *Identifiers {
	return &Identifiers{ids: make(map[string]IdentifierID)}
}

// Intern returns the id of raw, allocating one on first sight.
func (in *Identifiers) Intern(raw string) IdentifierID {
	if id, ok := in.ids[raw]; ok {
		return id
	}
	id := IdentifierID(len(in.raw))
	in.ids[raw] = id
	in.raw = append(in.raw, raw)
	return id
}

// Lookup returns the id of raw without interning it.
func (in *Identifiers) Lookup(raw string) (IdentifierID, bool) {
	id, ok := in.ids[raw]
	return id, ok
}

// Raw returns the identifier text for id.
func (in *Identifiers) Raw(id IdentifierID) string {
	return in.raw[id]
}

// Len returns the number of distinct identifiers.
func (in *Identifiers) Len() int { return len(in.raw) }
