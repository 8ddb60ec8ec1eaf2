package authc

// Registry maps a token class to the ordered realms that declared support
// for it. Built once from the configured realm list; configuration order is
// preserved because strategies may be order-sensitive.
type Registry struct {
	byClass map[TokenClass][]Realm
}

func NewRegistry(realms ...Realm) *Registry {
	byClass := make(map[TokenClass][]Realm)
	for _, r := range realms {
		for _, class := range r.SupportedTokenClasses() {
			byClass[class] = append(byClass[class], r)
		}
	}
	return &Registry{byClass: byClass}
}

// Resolve returns the realms supporting a token class, in configuration
// order. An empty result is not a registry error; the authenticator treats
// it as an unknown account at attempt time.
func (r *Registry) Resolve(class TokenClass) []Realm {
	return r.byClass[class]
}
