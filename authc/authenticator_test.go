package authc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/getveridian/veridian/event"
	"github.com/getveridian/veridian/telemetry"
)

// spyBus records everything published and delivers to subscribers, so tests
// can assert both notification counts and handler wiring.
type spyBus struct {
	published []event.Event
	handlers  map[string][]event.Handler
	failWith  error
}

func newSpyBus() *spyBus {
	return &spyBus{handlers: make(map[string][]event.Handler)}
}

func (b *spyBus) Publish(ctx context.Context, topic string, fields map[string]any) error {
	if b.failWith != nil {
		return b.failWith
	}
	evt := event.Event{Topic: topic, CreatedAt: time.Now(), Fields: fields}
	b.published = append(b.published, evt)
	for _, h := range b.handlers[topic] {
		h(ctx, evt)
	}
	return nil
}

func (b *spyBus) Subscribe(topic string, h event.Handler) {
	b.handlers[topic] = append(b.handlers[topic], h)
}

func (b *spyBus) count(topic string) int {
	n := 0
	for _, evt := range b.published {
		if evt.Topic == topic {
			n++
		}
	}
	return n
}

// plainRealm implements only the base Realm contract: no locking, no
// credential cache.
type plainRealm struct {
	name    string
	classes []TokenClass
	account *Account
	err     error
	calls   int
}

func (r *plainRealm) Name() string { return r.name }

func (r *plainRealm) SupportedTokenClasses() []TokenClass {
	if r.classes == nil {
		return []TokenClass{ClassPassword}
	}
	return r.classes
}

func (r *plainRealm) AuthenticateAccount(ctx context.Context, tok Token) (*Account, error) {
	r.calls++
	return r.account, r.err
}

// failStrategy fails the test if the authenticator ever consults it.
type failStrategy struct{ t *testing.T }

func (s *failStrategy) Execute(ctx context.Context, attempt Attempt) (*Account, error) {
	s.t.Error("strategy must not be consulted")
	return nil, ErrUnknownAccount
}

func (m *mockRealm) ClearCachedCredentials(ctx context.Context, identifier string) error {
	m.evicted = append(m.evicted, identifier)
	return m.evictErr
}

func singleRealmAccount(required ...TokenClass) *Account {
	return &Account{
		ID:                   "alice",
		Realm:                "accounts",
		RequiredTokenClasses: required,
	}
}

func TestSingleRealmBypassesStrategy(t *testing.T) {
	realm := &mockRealm{name: "accounts", account: singleRealmAccount(ClassPassword)}
	bus := newSpyBus()
	a, err := NewAuthenticator(Config{
		Realms:   []Realm{realm},
		Strategy: &failStrategy{t: t},
		Notifier: bus,
	})
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}

	res, err := a.Authenticate(context.Background(), nil, passwordToken(t, "alice"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Complete() {
		t.Error("expected a complete result")
	}
	if realm.calls != 1 {
		t.Errorf("expected exactly one realm call, got %d", realm.calls)
	}
}

func TestSuccessNotifiesOnce(t *testing.T) {
	realm := &mockRealm{name: "accounts", account: singleRealmAccount(ClassPassword)}
	bus := newSpyBus()
	a, _ := NewAuthenticator(Config{Realms: []Realm{realm}, Notifier: bus})

	res, err := a.Authenticate(context.Background(), nil, passwordToken(t, "alice"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Account.ID != "alice" {
		t.Errorf("unexpected account %q", res.Account.ID)
	}
	if res.Identifiers.Primary() != "alice" {
		t.Errorf("primary identifier should be bound, got %q", res.Identifiers.Primary())
	}

	if bus.count(event.TopicAuthSucceeded) != 1 {
		t.Error("expected exactly one SUCCEEDED notification")
	}
	if got := bus.published[len(bus.published)-1].Fields["account_id"]; got != "alice" {
		t.Errorf("SUCCEEDED should carry the account identity, got %v", got)
	}
	if bus.count(event.TopicAuthProgress) != 0 {
		t.Error("single-factor success must not emit PROGRESS")
	}
}

func TestTierGateRejectsOutOfSequence(t *testing.T) {
	realm := &mockRealm{name: "accounts", classes: []TokenClass{ClassPassword, ClassTOTP}}
	a, _ := NewAuthenticator(Config{Realms: []Realm{realm}, Notifier: newSpyBus()})

	tok, _ := NewTOTPToken("123456")
	_, err := a.Authenticate(context.Background(), nil, tok)
	if !errors.Is(err, ErrInvalidSequence) {
		t.Fatalf("expected ErrInvalidSequence, got %v", err)
	}
	if realm.calls != 0 {
		t.Error("no realm may be invoked before the tier gate passes")
	}
}

func TestUnknownTokenClass(t *testing.T) {
	realm := &mockRealm{name: "accounts", classes: []TokenClass{ClassPassword}}
	bus := newSpyBus()
	a, _ := NewAuthenticator(Config{Realms: []Realm{realm}, Notifier: bus})

	ids := NewIdentifiers()
	ids.Add("accounts", "alice")
	tok, _ := NewTOTPToken("123456")
	_, err := a.Authenticate(context.Background(), ids, tok)
	if !errors.Is(err, ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}
	if bus.count(event.TopicAuthSucceeded) != 0 {
		t.Error("unknown account must not emit SUCCEEDED")
	}
	if bus.count(event.TopicAuthFailed) != 1 {
		t.Error("expected one FAILED notification")
	}
}

func TestMultiFactorSequence(t *testing.T) {
	realm := &mockRealm{
		name:    "accounts",
		classes: []TokenClass{ClassPassword, ClassTOTP},
		account: singleRealmAccount(ClassPassword, ClassTOTP),
	}
	bus := newSpyBus()
	a, _ := NewAuthenticator(Config{Realms: []Realm{realm}, Notifier: bus})

	// Tier 1: verified, but another factor is required.
	res, err := a.Authenticate(context.Background(), nil, passwordToken(t, "alice"))
	if err != nil {
		t.Fatalf("tier 1 failed: %v", err)
	}
	if res.Status != StatusContinue {
		t.Fatalf("expected continuation, got %v", res.Status)
	}
	if bus.count(event.TopicAuthProgress) != 1 {
		t.Error("continuation must emit PROGRESS")
	}
	if bus.count(event.TopicAuthSucceeded) != 0 {
		t.Error("no SUCCEEDED before the sequence completes")
	}

	// Tier 2: thread the identifiers back in with the next factor.
	totp, _ := NewTOTPToken("123456")
	res, err = a.Authenticate(context.Background(), res.Identifiers, totp)
	if err != nil {
		t.Fatalf("tier 2 failed: %v", err)
	}
	if !res.Complete() {
		t.Fatalf("expected completion, got %v", res.Status)
	}
	if totp.Identifier() != "alice" {
		t.Errorf("tier-2 token should be bound to the primary identifier, got %q", totp.Identifier())
	}
	if bus.count(event.TopicAuthSucceeded) != 1 {
		t.Error("expected exactly one SUCCEEDED notification")
	}
}

func TestLockoutSupersedesFailure(t *testing.T) {
	threshold := 2
	failed := &Account{
		ID:    "alice",
		Realm: "accounts",
		AuthInfo: map[TokenClass]*AuthInfo{
			ClassPassword: {FailedAttempts: make([]time.Time, threshold+1)},
		},
	}
	realm := &mockRealm{
		name: "accounts",
		err:  &CredentialsError{Realm: "accounts", Account: failed, Reason: "bad password"},
	}
	bus := newSpyBus()
	a, err := NewAuthenticator(Config{
		Realms:        []Realm{realm},
		Notifier:      bus,
		LockThreshold: threshold,
	})
	if err != nil {
		t.Fatalf("construction failed: %v", err)
	}

	_, err = a.Authenticate(context.Background(), nil, passwordToken(t, "alice"))
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected the locked error to supersede the failure, got %v", err)
	}
	if len(realm.locked) != 1 || realm.locked[0] != "alice" {
		t.Errorf("locking realm should have locked alice, got %v", realm.locked)
	}
	if bus.count(event.TopicAccountLocked) != 1 {
		t.Error("expected exactly one ACCOUNT_LOCKED notification")
	}
	if bus.count(event.TopicAuthFailed) != 1 {
		t.Error("the failure notification still precedes the lock")
	}
}

func TestLockoutBelowThresholdKeepsOriginalError(t *testing.T) {
	failed := &Account{
		ID:    "alice",
		Realm: "accounts",
		AuthInfo: map[TokenClass]*AuthInfo{
			ClassPassword: {FailedAttempts: make([]time.Time, 1)},
		},
	}
	realm := &mockRealm{
		name: "accounts",
		err:  &CredentialsError{Realm: "accounts", Account: failed, Reason: "bad password"},
	}
	bus := newSpyBus()
	a, _ := NewAuthenticator(Config{Realms: []Realm{realm}, Notifier: bus, LockThreshold: 5})

	_, err := a.Authenticate(context.Background(), nil, passwordToken(t, "alice"))
	if !errors.Is(err, ErrIncorrectCredentials) {
		t.Fatalf("expected the original credentials error, got %v", err)
	}
	if len(realm.locked) != 0 {
		t.Error("account must not be locked below the threshold")
	}
	if bus.count(event.TopicAccountLocked) != 0 {
		t.Error("no ACCOUNT_LOCKED below the threshold")
	}
}

func TestLockThresholdWithoutLockingRealm(t *testing.T) {
	realm := &plainRealm{
		name: "accounts",
		err:  &CredentialsError{Realm: "accounts", Account: &Account{ID: "alice"}, Reason: "bad password"},
	}

	// Strict: construction fails.
	_, err := NewAuthenticator(Config{
		Realms:        []Realm{realm},
		Notifier:      newSpyBus(),
		LockThreshold: 1,
		StrictLocking: true,
	})
	if !errors.Is(err, ErrNoLockingRealm) {
		t.Fatalf("expected ErrNoLockingRealm under strict locking, got %v", err)
	}

	// Lenient: policy is a no-op and the original failure surfaces.
	a, err := NewAuthenticator(Config{
		Realms:        []Realm{realm},
		Notifier:      newSpyBus(),
		LockThreshold: 1,
	})
	if err != nil {
		t.Fatalf("lenient construction failed: %v", err)
	}
	_, err = a.Authenticate(context.Background(), nil, passwordToken(t, "alice"))
	if !errors.Is(err, ErrIncorrectCredentials) {
		t.Errorf("expected the original failure, got %v", err)
	}
}

func TestMissingNotifierIsHardError(t *testing.T) {
	realm := &mockRealm{name: "accounts", account: singleRealmAccount(ClassPassword)}
	a, _ := NewAuthenticator(Config{Realms: []Realm{realm}})

	_, err := a.Authenticate(context.Background(), nil, passwordToken(t, "alice"))
	if !errors.Is(err, ErrNoNotifier) {
		t.Fatalf("expected ErrNoNotifier, got %v", err)
	}
}

func TestSetNotifierOnce(t *testing.T) {
	realm := &mockRealm{name: "accounts", account: singleRealmAccount(ClassPassword)}
	a, _ := NewAuthenticator(Config{Realms: []Realm{realm}})

	if err := a.SetNotifier(newSpyBus()); err != nil {
		t.Fatalf("first SetNotifier failed: %v", err)
	}
	if err := a.SetNotifier(newSpyBus()); !errors.Is(err, ErrNotifierAlreadySet) {
		t.Errorf("expected ErrNotifierAlreadySet, got %v", err)
	}

	if _, err := a.Authenticate(context.Background(), nil, passwordToken(t, "alice")); err != nil {
		t.Errorf("authenticate after late binding failed: %v", err)
	}
}

func TestPublishFailureSurfaces(t *testing.T) {
	realm := &mockRealm{name: "accounts", account: singleRealmAccount(ClassPassword)}
	bus := newSpyBus()
	bus.failWith = errors.New("bus down")
	a, _ := NewAuthenticator(Config{Realms: []Realm{realm}, Notifier: bus})

	_, err := a.Authenticate(context.Background(), nil, passwordToken(t, "alice"))
	var nerr *NotificationError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected a NotificationError, got %v", err)
	}
	if nerr.Topic != event.TopicAuthSucceeded {
		t.Errorf("unexpected topic %q", nerr.Topic)
	}
}

func TestAuthenticateWithTelemetryProvider(t *testing.T) {
	provider, err := telemetry.NewProvider(telemetry.Config{ServiceName: "authc-test"})
	if err != nil {
		t.Fatalf("provider construction failed: %v", err)
	}

	realm := &mockRealm{name: "accounts", account: singleRealmAccount(ClassPassword)}
	a, _ := NewAuthenticator(Config{
		Realms:    []Realm{realm},
		Notifier:  newSpyBus(),
		Telemetry: provider,
	})

	res, err := a.Authenticate(context.Background(), nil, passwordToken(t, "alice"))
	if err != nil {
		t.Fatalf("authenticate with telemetry failed: %v", err)
	}
	if !res.Complete() {
		t.Errorf("expected a complete result, got %v", res.Status)
	}
}

func TestClearRealmCaches(t *testing.T) {
	caching := &mockRealm{name: "accounts"}
	bare := &plainRealm{name: "legacy"}
	a, _ := NewAuthenticator(Config{Realms: []Realm{caching, bare}, Notifier: newSpyBus()})

	ids := NewIdentifiers()
	ids.Add("accounts", "alice")

	results := a.ClearRealmCaches(context.Background(), ids)
	if len(results) != 2 {
		t.Fatalf("expected one result per realm, got %d", len(results))
	}
	if results[0].Outcome != CacheCleared {
		t.Errorf("caching realm: expected CacheCleared, got %v", results[0].Outcome)
	}
	if len(caching.evicted) != 1 || caching.evicted[0] != "alice" {
		t.Errorf("expected eviction of alice, got %v", caching.evicted)
	}
	if results[1].Outcome != CacheNotSupported {
		t.Errorf("bare realm: expected CacheNotSupported, got %v", results[1].Outcome)
	}

	// A realm with no claim in the event is skipped, not an error.
	results = a.ClearRealmCaches(context.Background(), NewIdentifiers())
	if results[0].Outcome != CacheNoIdentifier {
		t.Errorf("expected CacheNoIdentifier, got %v", results[0].Outcome)
	}
}

func TestSessionEventCacheClear(t *testing.T) {
	caching := &mockRealm{name: "accounts"}
	bus := newSpyBus()
	a, _ := NewAuthenticator(Config{Realms: []Realm{caching}, Notifier: bus})
	if err := a.RegisterCacheClearListener(); err != nil {
		t.Fatalf("listener registration failed: %v", err)
	}

	ids := NewIdentifiers()
	ids.Add("accounts", "alice")
	if err := bus.Publish(context.Background(), event.TopicSessionExpire, map[string]any{"identifiers": ids}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(caching.evicted) != 1 {
		t.Error("session expiry should evict cached credentials")
	}

	// A malformed payload is swallowed; it must never propagate.
	if err := bus.Publish(context.Background(), event.TopicSessionStop, map[string]any{"identifiers": "bogus"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
}
