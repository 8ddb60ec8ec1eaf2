package authc

// Identifiers is the ordered, deduplicated set of per-realm identity claims
// accumulated across a multi-factor sequence. The authenticator is stateless
// between calls; the caller holds an Identifiers value between tiers and
// threads it back in with the next token.
//
// The primary identifier is the first claim added (the tier-1 result).
// The zero value is ready to use.
type Identifiers struct {
	primary  string
	sources  []string
	bySource map[string]string
}

func NewIdentifiers() *Identifiers {
	return &Identifiers{
		bySource: make(map[string]string),
	}
}

// Add records an identity claim produced by the named realm. The first claim
// becomes the primary identifier. Re-adding a source updates its claim
// without disturbing order.
func (i *Identifiers) Add(source, identifier string) {
	if identifier == "" {
		return
	}
	if i.primary == "" {
		i.primary = identifier
	}
	if i.bySource == nil {
		i.bySource = make(map[string]string)
	}
	if _, ok := i.bySource[source]; !ok {
		i.sources = append(i.sources, source)
	}
	i.bySource[source] = identifier
}

// Primary returns the identifier established by the first satisfied factor.
func (i *Identifiers) Primary() string {
	if i == nil {
		return ""
	}
	return i.primary
}

// FromSource returns the claim produced by the named realm, or "" if that
// realm contributed none.
func (i *Identifiers) FromSource(source string) string {
	if i == nil {
		return ""
	}
	return i.bySource[source]
}

// Sources returns realm names in the order their claims were added.
func (i *Identifiers) Sources() []string {
	if i == nil {
		return nil
	}
	out := make([]string, len(i.sources))
	copy(out, i.sources)
	return out
}
