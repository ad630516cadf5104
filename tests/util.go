package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/user"
)

// CreateUser stores a user of `role` with an empty profile; `profile` replaces it when given.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	role user.Role,
	isActive bool,
	profile ...user.Profile,
) user.User {
	t.Helper()
	prof, err := user.NewProfile(role)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if len(profile) > 0 {
		prof = profile[0]
	}
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		Provider:  user.ProviderPassword,
		Profile:   prof,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err = usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	if usr, err = repo.CreateUser(context.Background(), usr); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// Logger discards messages and keeps the errors.
type Logger struct {
	mu     sync.Mutex
	Errors []string
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) Debug(string, ...interface{}) {}
func (l *Logger) Info(string, ...interface{})  {}
func (l *Logger) Warn(string, ...interface{})  {}
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.Error(msg, args...)
}

func (l *Logger) Error(msg string, _ ...interface{}) {
	l.mu.Lock()
	l.Errors = append(l.Errors, msg)
	l.mu.Unlock()
}

// OTPVerifier accepts Code for every phone a code was sent to.
type OTPVerifier struct {
	Code string

	mu   sync.Mutex
	sent map[string]bool
}

var _ user.OTPVerifier = (*OTPVerifier)(nil)

func NewOTPVerifier(code string) *OTPVerifier {
	return &OTPVerifier{Code: code, sent: make(map[string]bool)}
}

func (v *OTPVerifier) SendCode(_ context.Context, phone string) error {
	v.mu.Lock()
	v.sent[phone] = true
	v.mu.Unlock()
	return nil
}

func (v *OTPVerifier) CheckCode(_ context.Context, phone, code string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.sent[phone] || code != v.Code {
		return false, nil
	}
	delete(v.sent, phone)
	return true, nil
}

// IdentityVerifier maps ID tokens to identities.
type IdentityVerifier map[string]user.GoogleIdentity

var _ user.IdentityVerifier = IdentityVerifier(nil)

func (v IdentityVerifier) VerifyIDToken(_ context.Context, idToken string) (user.GoogleIdentity, error) {
	identity, ok := v[idToken]
	if !ok {
		return user.GoogleIdentity{}, errors.New("idtoken: invalid token")
	}
	return identity, nil
}
