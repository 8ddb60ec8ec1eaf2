// Package authc implements the multi-realm authentication orchestration
// core: token and account types, realm contracts, pluggable multi-realm
// strategies, and the Authenticator that drives tiered multi-factor
// sequencing, account lockout, and audit notifications.
package authc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/getveridian/veridian/event"
	"github.com/getveridian/veridian/internal/logger"
	"github.com/getveridian/veridian/telemetry"
)

// Config assembles an Authenticator. Realms are consulted in the order
// given. A nil Strategy selects FirstSuccessfulStrategy. Notifier may be
// left nil and bound later, once, through SetNotifier; required
// notifications fail with ErrNoNotifier until it is bound.
type Config struct {
	Realms   []Realm
	Strategy Strategy
	Notifier event.Bus

	// LockThreshold is the failed-attempt count above which an account is
	// locked. Zero disables the locking policy.
	LockThreshold int

	// StrictLocking makes construction fail when LockThreshold is set but
	// no realm implements LockingRealm. When false the mismatch is only
	// logged, and the policy is a no-op.
	StrictLocking bool

	// Telemetry optionally records attempt metrics and traces.
	Telemetry *telemetry.Provider
}

// Authenticator is the orchestration state machine. It holds no mutable
// attempt-scoped state: continuation across multi-factor tiers is carried
// entirely in the caller-held Identifiers plus the next submitted token, so
// one Authenticator serves concurrent, independent login attempts.
type Authenticator struct {
	registry      *Registry
	strategy      Strategy
	lockThreshold int
	lockingRealm  LockingRealm
	realms        []Realm
	telemetry     *telemetry.Provider

	mu       sync.Mutex
	notifier event.Bus
}

func NewAuthenticator(cfg Config) (*Authenticator, error) {
	a := &Authenticator{
		registry:      NewRegistry(cfg.Realms...),
		strategy:      cfg.Strategy,
		lockThreshold: cfg.LockThreshold,
		realms:        cfg.Realms,
		telemetry:     cfg.Telemetry,
		notifier:      cfg.Notifier,
	}
	if a.strategy == nil {
		a.strategy = &FirstSuccessfulStrategy{}
	}

	if cfg.LockThreshold > 0 {
		a.lockingRealm = locateLockingRealm(cfg.Realms)
		if a.lockingRealm == nil {
			if cfg.StrictLocking {
				return nil, ErrNoLockingRealm
			}
			logger.Log.Warn("lock threshold configured but no realm supports locking; lockout is disabled",
				zap.Int("threshold", cfg.LockThreshold),
			)
		}
	}

	return a, nil
}

// locateLockingRealm returns the first realm that can enforce locks; that
// realm locks all accounts.
func locateLockingRealm(realms []Realm) LockingRealm {
	for _, r := range realms {
		if lr, ok := r.(LockingRealm); ok {
			return lr
		}
	}
	return nil
}

// SetNotifier binds the notification bus after construction. It may be
// called once, and only if no notifier was supplied at construction.
func (a *Authenticator) SetNotifier(bus event.Bus) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.notifier != nil {
		return ErrNotifierAlreadySet
	}
	a.notifier = bus
	return nil
}

func (a *Authenticator) bus() event.Bus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.notifier
}

// RegisterCacheClearListener subscribes the best-effort cache-clear reaction
// to session lifecycle topics.
func (a *Authenticator) RegisterCacheClearListener() error {
	bus := a.bus()
	if bus == nil {
		return ErrNoNotifier
	}
	bus.Subscribe(event.TopicSessionExpire, a.handleSessionEvent)
	bus.Subscribe(event.TopicSessionStop, a.handleSessionEvent)
	return nil
}

// Authenticate drives one step of the login sequence.
//
// For a tier-1 token, ids may be nil. For later tiers ids must carry the
// claims accumulated by the earlier tiers, or the call fails with
// ErrInvalidSequence before any realm is consulted.
//
// On success the Result reports either StatusComplete with the finished
// account, or StatusContinue with the partial account and the identifiers
// to thread into the next tier. Verification failures are returned as
// errors after the failure notification and the locking policy have run; a
// lockout supersedes the verification failure that tripped it.
func (a *Authenticator) Authenticate(ctx context.Context, ids *Identifiers, tok Token) (*Result, error) {
	start := time.Now()
	if a.telemetry != nil {
		var span trace.Span
		ctx, span = a.telemetry.StartSpan(ctx, "authc.Authenticate")
		defer span.End()
	}

	if tok == nil || len(tok.Credentials()) == 0 {
		return nil, ErrInvalidToken
	}

	logger.Log.Debug("authentication submission received",
		zap.String("token_class", string(tok.Class())),
		zap.Int("tier", tok.Tier()),
	)

	// Tier gate: later factors are only meaningful once an earlier factor
	// established the primary identifier.
	if tok.Tier() != 1 {
		if ids.Primary() == "" {
			return nil, ErrInvalidSequence
		}
		tok.SetIdentifier(ids.Primary())
	}

	acct, err := a.verify(ctx, tok)
	if err == nil && acct == nil {
		err = ErrUnknownAccount
	}
	if err != nil {
		if nerr := a.notify(ctx, event.TopicAuthFailed, map[string]any{
			"identifier":  tok.Identifier(),
			"token_class": string(tok.Class()),
		}); nerr != nil {
			return nil, nerr
		}
		if lerr := a.validateLocked(ctx, tok, err); lerr != nil {
			a.record(ctx, tok, "locked", start)
			return nil, lerr
		}
		a.record(ctx, tok, "failure", start)
		return nil, err
	}

	if ids == nil {
		ids = NewIdentifiers()
	}
	ids.Add(acct.Realm, acct.ID)

	// Completion check: the account is never reported complete while it
	// requires more token classes than the submitted tier satisfies.
	if len(acct.RequiredTokenClasses) > tok.Tier() {
		if nerr := a.notify(ctx, event.TopicAuthProgress, map[string]any{
			"identifier":  tok.Identifier(),
			"token_class": string(tok.Class()),
		}); nerr != nil {
			return nil, nerr
		}
		a.record(ctx, tok, "continue", start)
		return &Result{Status: StatusContinue, Account: acct, Identifiers: ids}, nil
	}

	if nerr := a.notify(ctx, event.TopicAuthSucceeded, map[string]any{
		"account_id": acct.ID,
	}); nerr != nil {
		return nil, nerr
	}
	a.record(ctx, tok, "success", start)
	return &Result{Status: StatusComplete, Account: acct, Identifiers: ids}, nil
}

// verify resolves realms for the token's class and obtains an account.
// A single resolved realm is invoked directly; there is nothing for a
// strategy to arbitrate. An unresolvable class yields no account, which the
// caller classifies as an unknown account.
func (a *Authenticator) verify(ctx context.Context, tok Token) (*Account, error) {
	realms := a.registry.Resolve(tok.Class())
	switch len(realms) {
	case 0:
		return nil, nil
	case 1:
		return realms[0].AuthenticateAccount(ctx, tok)
	default:
		return a.strategy.Execute(ctx, Attempt{Token: tok, Realms: realms})
	}
}

// validateLocked applies the locking policy to a verification failure.
// It returns a LockedError when the failure history breached the threshold,
// superseding the original failure; nil otherwise.
func (a *Authenticator) validateLocked(ctx context.Context, tok Token, verr error) error {
	if a.lockThreshold <= 0 || a.lockingRealm == nil {
		return nil
	}

	var credErr *CredentialsError
	if !errors.As(verr, &credErr) || credErr.Account == nil {
		return nil
	}

	if credErr.Account.FailedAttempts(tok.Class()) <= a.lockThreshold {
		return nil
	}

	if err := a.lockingRealm.LockAccount(ctx, credErr.Account); err != nil {
		return fmt.Errorf("authc: lock account %q: %w", credErr.Account.ID, err)
	}
	logger.Log.Warn("authentication attempts breached threshold, account locked",
		zap.String("account_id", credErr.Account.ID),
		zap.Int("threshold", a.lockThreshold),
	)
	if nerr := a.notify(ctx, event.TopicAccountLocked, map[string]any{
		"identifier": credErr.Account.ID,
	}); nerr != nil {
		return nerr
	}
	if a.telemetry != nil {
		a.telemetry.RecordLockout(ctx)
	}
	return &LockedError{Account: credErr.Account}
}

// notify publishes a required notification. A missing notifier or a publish
// failure is a hard error: lock and audit notifications must not fail
// silently.
func (a *Authenticator) notify(ctx context.Context, topic string, fields map[string]any) error {
	bus := a.bus()
	if bus == nil {
		return &NotificationError{Topic: topic, Err: ErrNoNotifier}
	}
	if err := bus.Publish(ctx, topic, fields); err != nil {
		return &NotificationError{Topic: topic, Err: err}
	}
	return nil
}

func (a *Authenticator) record(ctx context.Context, tok Token, outcome string, start time.Time) {
	if a.telemetry == nil {
		return
	}
	a.telemetry.RecordAttempt(ctx, string(tok.Class()), outcome)
	a.telemetry.RecordAuthDuration(ctx, string(tok.Class()), time.Since(start))
}
