package identitysvc

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
)

var (
	// errors
	ErrUserExists         = core.ErrIdentityExists
	ErrUserNotFound       = errors.New("identity not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type account struct {
	core.IdentityUser
	attrs        map[string]string
	passwordHash []byte
}

// LocalProvider keeps sign-in accounts in memory.
// Passwords are only stored as bcrypt hashes.
type LocalProvider struct {
	mu       sync.RWMutex
	accounts map[string]*account // by lower-cased email
	logger   core.Logger
}

var _ core.IdentityProvider = (*LocalProvider)(nil)

func NewLocalProvider(logger core.Logger) *LocalProvider {
	return &LocalProvider{accounts: make(map[string]*account), logger: logger}
}

// CreateUser registers `email` with a generated temporary password, returned in clear once.
func (p *LocalProvider) CreateUser(_ context.Context, email string, attrs map[string]string) (core.IdentityUser, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return core.IdentityUser{}, core.NewValidationError(nil, core.FieldError{Field: "email", Error: "email is a required field"})
	}

	pwd, err := temporaryPassword()
	if err != nil {
		return core.IdentityUser{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return core.IdentityUser{}, errors.Wrap(err, "hashing password")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.accounts[email]; ok {
		return core.IdentityUser{}, ErrUserExists
	}

	acc := &account{
		IdentityUser: core.IdentityUser{ID: uuid.NewString(), Email: email},
		attrs:        copyAttrs(attrs),
		passwordHash: hash,
	}
	p.accounts[email] = acc
	p.logger.Info("identity created", map[string]interface{}{"email": email, "identity_id": acc.ID})

	usr := acc.IdentityUser
	usr.TemporaryPassword = pwd
	return usr, nil
}

func (p *LocalProvider) GetUserByEmail(_ context.Context, email string) (core.IdentityUser, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	acc, ok := p.accounts[core.CleanString(email, true /* lower */)]
	if !ok {
		return core.IdentityUser{}, ErrUserNotFound
	}
	return acc.IdentityUser, nil
}

// Attributes returns a copy of the attributes given at creation.
func (p *LocalProvider) Attributes(_ context.Context, email string) (map[string]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	acc, ok := p.accounts[core.CleanString(email, true /* lower */)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyAttrs(acc.attrs), nil
}

func (p *LocalProvider) SetPassword(_ context.Context, email, pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	acc, ok := p.accounts[core.CleanString(email, true /* lower */)]
	if !ok {
		return ErrUserNotFound
	}
	acc.passwordHash = hash
	return nil
}

// Authenticate checks the password of `email`; unknown emails and wrong passwords
// both return ErrInvalidCredentials.
func (p *LocalProvider) Authenticate(_ context.Context, email, pwd string) (core.IdentityUser, error) {
	p.mu.RLock()
	acc, ok := p.accounts[core.CleanString(email, true /* lower */)]
	p.mu.RUnlock()
	if !ok {
		return core.IdentityUser{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(pwd)); err != nil {
		return core.IdentityUser{}, ErrInvalidCredentials
	}
	return acc.IdentityUser, nil
}

func temporaryPassword() (string, error) {
	b := make([]byte, 10)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generating password")
	}
	// mixed case, digit and symbol so that it satisfies the usual password policies
	enc := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)
	return enc[:8] + strings.ToLower(enc[8:]) + "7!", nil
}

func copyAttrs(attrs map[string]string) map[string]string {
	cp := make(map[string]string, len(attrs))
	for k, v := range attrs {
		cp[k] = v
	}
	return cp
}
