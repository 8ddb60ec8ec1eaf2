package authc

import (
	"fmt"
)

// TokenClass identifies a kind of submitted credential. Realms declare which
// classes they can verify, and accounts list the classes still required to
// complete a multi-factor sequence.
type TokenClass string

const (
	ClassPassword TokenClass = "password"
	ClassTOTP     TokenClass = "totp"
)

type (
	// A Token is a credential instance submitted for a single authentication
	// attempt. Tier establishes its position in a multi-factor sequence
	// (1 = first factor). Tokens are never persisted; callers should Clear
	// them after use.
	Token interface {
		// Class returns the token class used for realm resolution.
		Class() TokenClass
		// Tier returns the multi-factor sequence position, starting at 1.
		Tier() int
		// Identifier is the identity claim being authenticated.
		Identifier() string
		// SetIdentifier binds the identity claim. The authenticator uses it
		// to carry the primary identifier into later-tier tokens.
		SetIdentifier(id string)
		// Credentials returns the secret material. Nil after Clear.
		Credentials() []byte
		// Clear wipes the secret material so it can never be recovered.
		Clear() error
	}

	// HostToken is implemented by tokens that carry the originating host.
	HostToken interface {
		Host() string
	}

	// RememberMeToken is implemented by tokens that carry a remember-me
	// request.
	RememberMeToken interface {
		RememberMe() bool
	}
)

// UsernamePasswordToken is the tier-1 username/password credential.
type UsernamePasswordToken struct {
	username   string
	password   []byte
	rememberMe bool
	host       string
	cleared    bool
}

var (
	_ Token           = (*UsernamePasswordToken)(nil)
	_ HostToken       = (*UsernamePasswordToken)(nil)
	_ RememberMeToken = (*UsernamePasswordToken)(nil)
)

func NewUsernamePasswordToken(username, password string) (*UsernamePasswordToken, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: username must be defined", ErrInvalidToken)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password must be defined", ErrInvalidToken)
	}
	return &UsernamePasswordToken{
		username: username,
		password: []byte(password),
	}, nil
}

func (t *UsernamePasswordToken) SetRememberMe(remember bool) { t.rememberMe = remember }
func (t *UsernamePasswordToken) SetHost(host string)         { t.host = host }

func (t *UsernamePasswordToken) Class() TokenClass       { return ClassPassword }
func (t *UsernamePasswordToken) Tier() int               { return 1 }
func (t *UsernamePasswordToken) Identifier() string      { return t.username }
func (t *UsernamePasswordToken) SetIdentifier(id string) { t.username = id }
func (t *UsernamePasswordToken) Host() string            { return t.host }
func (t *UsernamePasswordToken) RememberMe() bool        { return t.rememberMe }

// Credentials returns nil once the token has been cleared, so any later use
// fails validation instead of silently succeeding.
func (t *UsernamePasswordToken) Credentials() []byte {
	if t.cleared {
		return nil
	}
	return t.password
}

// Clear wipes the identifier, host, remember flag, and every byte of the
// password. A token constructed without a secret buffer cannot be wiped and
// reports ErrInvalidToken so callers can detect the failed attempt. Clearing
// an already-cleared token is a no-op.
func (t *UsernamePasswordToken) Clear() error {
	t.username = ""
	t.host = ""
	t.rememberMe = false

	if t.password == nil {
		return fmt.Errorf("%w: secret buffer is not clearable", ErrInvalidToken)
	}
	zero(t.password)
	t.cleared = true
	return nil
}

// String never exposes the secret.
func (t *UsernamePasswordToken) String() string {
	s := fmt.Sprintf("UsernamePasswordToken - %s, rememberMe=%t", t.username, t.rememberMe)
	if t.host != "" {
		s += fmt.Sprintf(", (%s)", t.host)
	}
	return s
}

// TOTPToken is a tier-2 one-time code. Its identifier is left empty by the
// caller; the authenticator binds it from the identifiers accumulated at
// tier 1.
type TOTPToken struct {
	identifier string
	code       []byte
	cleared    bool
}

var _ Token = (*TOTPToken)(nil)

func NewTOTPToken(code string) (*TOTPToken, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: code must be defined", ErrInvalidToken)
	}
	return &TOTPToken{code: []byte(code)}, nil
}

func (t *TOTPToken) Class() TokenClass       { return ClassTOTP }
func (t *TOTPToken) Tier() int               { return 2 }
func (t *TOTPToken) Identifier() string      { return t.identifier }
func (t *TOTPToken) SetIdentifier(id string) { t.identifier = id }
func (t *TOTPToken) Credentials() []byte {
	if t.cleared {
		return nil
	}
	return t.code
}

func (t *TOTPToken) Clear() error {
	t.identifier = ""
	if t.code == nil {
		return fmt.Errorf("%w: secret buffer is not clearable", ErrInvalidToken)
	}
	zero(t.code)
	t.cleared = true
	return nil
}

func (t *TOTPToken) String() string {
	return fmt.Sprintf("TOTPToken - %s", t.identifier)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
