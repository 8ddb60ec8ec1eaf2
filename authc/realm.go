package authc

import "context"

type (
	// A Realm is an external identity store capable of verifying one or more
	// token classes. The authenticator only needs to know which classes a
	// realm supports and, via the optional capability interfaces below,
	// whether it can enforce a lock or evict cached verification state.
	Realm interface {
		// Name identifies the realm; identifiers accumulated across a
		// multi-factor sequence are keyed by it.
		Name() string

		// SupportedTokenClasses returns the token classes this realm can
		// verify. Queried once, at registry build time.
		SupportedTokenClasses() []TokenClass

		// AuthenticateAccount verifies the token against the store.
		// It returns (nil, nil) when the identity is unknown to this realm,
		// and a *CredentialsError when the identity is known but the
		// credentials do not match.
		AuthenticateAccount(ctx context.Context, tok Token) (*Account, error)
	}

	// LockingRealm is the explicit locking capability. The first configured
	// realm implementing it enforces locks for all accounts.
	LockingRealm interface {
		Realm
		LockAccount(ctx context.Context, acct *Account) error
	}

	// CacheClearingRealm is implemented by realms that cache verification
	// state and can evict it when a session ends.
	CacheClearingRealm interface {
		Realm
		ClearCachedCredentials(ctx context.Context, identifier string) error
	}
)
