package authc

import "time"

// AuthInfo is the per-token-class authentication history a realm reports
// alongside an account.
type AuthInfo struct {
	FailedAttempts []time.Time
}

// Account is the result of successful verification by one or more realms:
// the verified identity, the token classes still required before the
// sequence is complete, and the failure history consulted by the locking
// policy.
type Account struct {
	// ID is the canonical account identity.
	ID string

	// Realm names the realm (or, for merged multi-realm results, the first
	// realm) that produced this account.
	Realm string

	// RequiredTokenClasses lists the token classes the account demands, in
	// tier order. An account is complete once the submitted token's tier
	// covers this list.
	RequiredTokenClasses []TokenClass

	// AuthInfo holds authentication history keyed by token class.
	AuthInfo map[TokenClass]*AuthInfo
}

// FailedAttempts returns the recorded failure count for a token class.
func (a *Account) FailedAttempts(class TokenClass) int {
	if a == nil || a.AuthInfo == nil {
		return 0
	}
	info := a.AuthInfo[class]
	if info == nil {
		return 0
	}
	return len(info.FailedAttempts)
}

// Merge folds another realm's view of the same account into this one.
// Identity and required classes of the receiver win; failure histories are
// concatenated per class. Used by strategies that consult several realms.
func (a *Account) Merge(other *Account) {
	if other == nil {
		return
	}
	if a.AuthInfo == nil {
		a.AuthInfo = make(map[TokenClass]*AuthInfo)
	}
	for class, info := range other.AuthInfo {
		if info == nil {
			continue
		}
		existing := a.AuthInfo[class]
		if existing == nil {
			existing = &AuthInfo{}
			a.AuthInfo[class] = existing
		}
		existing.FailedAttempts = append(existing.FailedAttempts, info.FailedAttempts...)
	}
}
