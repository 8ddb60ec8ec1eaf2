package authc

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidToken reports a token that cannot be used: missing
	// identifier or secret, or a secret that was already cleared.
	ErrInvalidToken = errors.New("authc: invalid token")

	// ErrInvalidSequence reports a later-tier token submitted without the
	// identifiers accumulated by the earlier tiers.
	ErrInvalidSequence = errors.New("authc: authentication must be performed in expected sequence")

	// ErrUnknownAccount reports that no configured realm produced an account
	// for the submitted token.
	ErrUnknownAccount = errors.New("authc: no account returned by any configured realm")

	// ErrIncorrectCredentials is the class of realm-reported credential
	// mismatches. Realms surface it through CredentialsError.
	ErrIncorrectCredentials = errors.New("authc: incorrect credentials")

	// ErrAccountLocked is the class of lockout failures. It supersedes the
	// verification failure that tripped the threshold.
	ErrAccountLocked = errors.New("authc: account is locked")

	// ErrNoNotifier reports a required notification with no notifier
	// configured. Audit and lockout notifications are safety-relevant and
	// must not fail silently.
	ErrNoNotifier = errors.New("authc: notifier is not configured")

	// ErrNotifierAlreadySet reports a second SetNotifier call.
	ErrNotifierAlreadySet = errors.New("authc: notifier is already configured")

	// ErrNoLockingRealm reports a configured lock threshold with no realm
	// able to enforce it, under strict locking.
	ErrNoLockingRealm = errors.New("authc: lock threshold configured but no realm supports locking")
)

// CredentialsError is a realm-reported verification failure. It carries the
// realm's detail and the account whose failure history feeds the locking
// policy. errors.Is(err, ErrIncorrectCredentials) matches it.
type CredentialsError struct {
	Realm   string
	Account *Account
	Reason  string
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("authc: realm %q rejected credentials: %s", e.Realm, e.Reason)
}

func (e *CredentialsError) Unwrap() error { return ErrIncorrectCredentials }

// LockedError reports that the account breached the failed-attempt threshold
// and has been locked. errors.Is(err, ErrAccountLocked) matches it.
type LockedError struct {
	Account *Account
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("authc: account %q is locked after repeated failed attempts", e.Account.ID)
}

func (e *LockedError) Unwrap() error { return ErrAccountLocked }

// NotificationError reports a failed required notification.
type NotificationError struct {
	Topic string
	Err   error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("authc: could not publish %s event: %v", e.Topic, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
