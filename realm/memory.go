// Package realm ships realm implementations for the authentication core:
// an in-memory realm suitable for tests, samples, and small deployments,
// and a GORM-backed realm for SQL identity stores. Both verify passwords
// through the Hasher contract and support TOTP as a second factor.
package realm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getveridian/veridian/authc"
)

type memRecord struct {
	id           string
	passwordHash string
	totpSecret   string
	locked       bool
	failures     map[authc.TokenClass][]time.Time
}

// MemoryRealm is an in-memory identity store. It supports password and TOTP
// token classes, enforces locks, and caches verified accounts until the
// session-lifecycle cache-clear reaction evicts them.
type MemoryRealm struct {
	name   string
	hasher Hasher

	mu       sync.Mutex
	accounts map[string]*memRecord
	cache    map[string]*authc.Account
}

var (
	_ authc.Realm              = (*MemoryRealm)(nil)
	_ authc.LockingRealm       = (*MemoryRealm)(nil)
	_ authc.CacheClearingRealm = (*MemoryRealm)(nil)
)

func NewMemoryRealm(name string, hasher Hasher) *MemoryRealm {
	return &MemoryRealm{
		name:     name,
		hasher:   hasher,
		accounts: make(map[string]*memRecord),
		cache:    make(map[string]*authc.Account),
	}
}

// AddAccount registers an identity verified by password.
func (r *MemoryRealm) AddAccount(identifier, password string) error {
	hashed, err := r.hasher.Hash(password)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[identifier]; ok {
		return fmt.Errorf("realm: account %q already exists", identifier)
	}
	r.accounts[identifier] = &memRecord{
		id:           identifier,
		passwordHash: hashed,
		failures:     make(map[authc.TokenClass][]time.Time),
	}
	return nil
}

// EnableTOTP adds a TOTP factor to the account, making its login sequence
// two-tiered.
func (r *MemoryRealm) EnableTOTP(identifier, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.accounts[identifier]
	if !ok {
		return fmt.Errorf("realm: account %q not found", identifier)
	}
	rec.totpSecret = secret
	return nil
}

func (r *MemoryRealm) Name() string { return r.name }

func (r *MemoryRealm) SupportedTokenClasses() []authc.TokenClass {
	return []authc.TokenClass{authc.ClassPassword, authc.ClassTOTP}
}

func (r *MemoryRealm) AuthenticateAccount(ctx context.Context, tok authc.Token) (*authc.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.accounts[tok.Identifier()]
	if !ok {
		return nil, nil
	}
	if rec.locked {
		return nil, &authc.LockedError{Account: r.snapshot(rec)}
	}

	var verified bool
	switch tok.Class() {
	case authc.ClassPassword:
		verified = r.hasher.Compare(string(tok.Credentials()), rec.passwordHash)
	case authc.ClassTOTP:
		verified = rec.totpSecret != "" && VerifyTOTP(rec.totpSecret, string(tok.Credentials()))
	default:
		return nil, fmt.Errorf("realm: %q does not support %q tokens", r.name, tok.Class())
	}

	if !verified {
		rec.failures[tok.Class()] = append(rec.failures[tok.Class()], time.Now())
		return nil, &authc.CredentialsError{
			Realm:   r.name,
			Account: r.snapshot(rec),
			Reason:  fmt.Sprintf("%s verification failed", tok.Class()),
		}
	}

	acct := r.snapshot(rec)
	r.cache[rec.id] = acct
	return acct, nil
}

func (r *MemoryRealm) LockAccount(ctx context.Context, acct *authc.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.accounts[acct.ID]
	if !ok {
		return fmt.Errorf("realm: account %q not found", acct.ID)
	}
	rec.locked = true
	return nil
}

func (r *MemoryRealm) ClearCachedCredentials(ctx context.Context, identifier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, identifier)
	return nil
}

// CachedAccount returns the cached verification state for an identifier,
// or nil once it has been evicted.
func (r *MemoryRealm) CachedAccount(identifier string) *authc.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache[identifier]
}

// snapshot builds the account view reported to the authenticator. Callers
// must hold r.mu.
func (r *MemoryRealm) snapshot(rec *memRecord) *authc.Account {
	required := []authc.TokenClass{authc.ClassPassword}
	if rec.totpSecret != "" {
		required = append(required, authc.ClassTOTP)
	}

	info := make(map[authc.TokenClass]*authc.AuthInfo, len(rec.failures))
	for class, attempts := range rec.failures {
		copied := make([]time.Time, len(attempts))
		copy(copied, attempts)
		info[class] = &authc.AuthInfo{FailedAttempts: copied}
	}

	return &authc.Account{
		ID:                   rec.id,
		Realm:                r.name,
		RequiredTokenClasses: required,
		AuthInfo:             info,
	}
}
