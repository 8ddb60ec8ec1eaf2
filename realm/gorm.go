package realm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/getveridian/veridian/authc"
)

const (
	stateActive = "active"
	stateLocked = "locked"
)

// AccountModel is the persisted identity row.
type AccountModel struct {
	ID           string `gorm:"primaryKey"`
	Identifier   string `gorm:"uniqueIndex"`
	PasswordHash string
	TOTPSecret   string
	State        string `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (AccountModel) TableName() string { return "accounts" }

// FailedAttemptModel records one failed verification for an account and
// token class.
type FailedAttemptModel struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	AccountID  string `gorm:"index"`
	TokenClass string `gorm:"index"`
	CreatedAt  time.Time
}

func (FailedAttemptModel) TableName() string { return "failed_attempts" }

// GormRealm is a SQL-backed identity store. Any GORM dialector works; tests
// use the sqlite driver.
type GormRealm struct {
	name   string
	db     *gorm.DB
	hasher Hasher

	mu    sync.Mutex
	cache map[string]*authc.Account
}

var (
	_ authc.Realm              = (*GormRealm)(nil)
	_ authc.LockingRealm       = (*GormRealm)(nil)
	_ authc.CacheClearingRealm = (*GormRealm)(nil)
)

func NewGormRealm(name string, db *gorm.DB, hasher Hasher) *GormRealm {
	return &GormRealm{
		name:   name,
		db:     db,
		hasher: hasher,
		cache:  make(map[string]*authc.Account),
	}
}

func (r *GormRealm) AutoMigrate() error {
	return r.db.AutoMigrate(&AccountModel{}, &FailedAttemptModel{})
}

// CreateAccount registers an identity verified by password and returns its
// generated account ID.
func (r *GormRealm) CreateAccount(identifier, password string) (string, error) {
	hashed, err := r.hasher.Hash(password)
	if err != nil {
		return "", err
	}

	model := AccountModel{
		ID:           uuid.NewString(),
		Identifier:   identifier,
		PasswordHash: hashed,
		State:        stateActive,
	}
	if err := r.db.Create(&model).Error; err != nil {
		return "", err
	}
	return model.ID, nil
}

// EnableTOTP adds a TOTP factor to the account.
func (r *GormRealm) EnableTOTP(identifier, secret string) error {
	res := r.db.Model(&AccountModel{}).
		Where("identifier = ?", identifier).
		Update("totp_secret", secret)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("realm: account %q not found", identifier)
	}
	return nil
}

func (r *GormRealm) Name() string { return r.name }

func (r *GormRealm) SupportedTokenClasses() []authc.TokenClass {
	return []authc.TokenClass{authc.ClassPassword, authc.ClassTOTP}
}

func (r *GormRealm) AuthenticateAccount(ctx context.Context, tok authc.Token) (*authc.Account, error) {
	var model AccountModel
	err := r.db.WithContext(ctx).First(&model, "identifier = ?", tok.Identifier()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if model.State == stateLocked {
		acct, aerr := r.snapshot(ctx, &model)
		if aerr != nil {
			return nil, aerr
		}
		return nil, &authc.LockedError{Account: acct}
	}

	var verified bool
	switch tok.Class() {
	case authc.ClassPassword:
		verified = r.hasher.Compare(string(tok.Credentials()), model.PasswordHash)
	case authc.ClassTOTP:
		verified = model.TOTPSecret != "" && VerifyTOTP(model.TOTPSecret, string(tok.Credentials()))
	default:
		return nil, fmt.Errorf("realm: %q does not support %q tokens", r.name, tok.Class())
	}

	if !verified {
		attempt := FailedAttemptModel{AccountID: model.ID, TokenClass: string(tok.Class())}
		if err := r.db.WithContext(ctx).Create(&attempt).Error; err != nil {
			return nil, err
		}
		acct, aerr := r.snapshot(ctx, &model)
		if aerr != nil {
			return nil, aerr
		}
		return nil, &authc.CredentialsError{
			Realm:   r.name,
			Account: acct,
			Reason:  fmt.Sprintf("%s verification failed", tok.Class()),
		}
	}

	acct, err := r.snapshot(ctx, &model)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[acct.ID] = acct
	r.mu.Unlock()

	return acct, nil
}

func (r *GormRealm) LockAccount(ctx context.Context, acct *authc.Account) error {
	res := r.db.WithContext(ctx).Model(&AccountModel{}).
		Where("identifier = ?", acct.ID).
		Update("state", stateLocked)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("realm: account %q not found", acct.ID)
	}
	return nil
}

func (r *GormRealm) ClearCachedCredentials(ctx context.Context, identifier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, identifier)
	return nil
}

// CachedAccount returns the cached verification state for an account ID,
// or nil once it has been evicted.
func (r *GormRealm) CachedAccount(id string) *authc.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache[id]
}

func (r *GormRealm) snapshot(ctx context.Context, model *AccountModel) (*authc.Account, error) {
	required := []authc.TokenClass{authc.ClassPassword}
	if model.TOTPSecret != "" {
		required = append(required, authc.ClassTOTP)
	}

	var attempts []FailedAttemptModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", model.ID).
		Order("created_at").
		Find(&attempts).Error; err != nil {
		return nil, err
	}

	info := make(map[authc.TokenClass]*authc.AuthInfo)
	for _, attempt := range attempts {
		class := authc.TokenClass(attempt.TokenClass)
		if info[class] == nil {
			info[class] = &authc.AuthInfo{}
		}
		info[class].FailedAttempts = append(info[class].FailedAttempts, attempt.CreatedAt)
	}

	// The canonical account identity is the lookup identifier: it is what
	// later tiers are bound to and what LockAccount matches on. The row ID
	// stays internal to the store.
	return &authc.Account{
		ID:                   model.Identifier,
		Realm:                r.name,
		RequiredTokenClasses: required,
		AuthInfo:             info,
	}, nil
}
