// Package auth implements portal login and bearer-token sessions.
//
// Every account shares a single password; it is stored only as a bcrypt hash.
// Students must also name the class they are enrolled in.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidyavistaar/portal/internal/model"
)

// Directory is the user and session storage the Authenticator relies on.
type Directory interface {
	GetUserByEmail(ctx context.Context, email string, role model.UserRole) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	CreateAuthSession(ctx context.Context, userID string, role model.UserRole) (string, error)
	GetAuthSession(ctx context.Context, token string) (*model.AuthSession, error)
	DeleteAuthSession(ctx context.Context, token string) error
}

// Credentials is a login request. Class is only checked for students.
type Credentials struct {
	Email    string
	Password string
	Role     model.UserRole
	Class    int
}

// Authenticator checks credentials and resolves session tokens.
type Authenticator struct {
	dir  Directory
	hash []byte
}

// Option configures an Authenticator.
type Option func(*config)

type config struct {
	cost int
}

// WithCost sets the bcrypt cost used to hash the shared password.
func WithCost(cost int) Option {
	return func(c *config) { c.cost = cost }
}

// New returns an Authenticator that accepts sharedPassword for every account.
func New(dir Directory, sharedPassword string, opts ...Option) (*Authenticator, error) {
	cfg := config{cost: bcrypt.DefaultCost}
	for _, o := range opts {
		o(&cfg)
	}
	if sharedPassword == "" {
		return nil, fmt.Errorf("shared password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(sharedPassword), cfg.cost)
	if err != nil {
		return nil, fmt.Errorf("hash shared password: %w", err)
	}
	return &Authenticator{dir: dir, hash: hash}, nil
}

// Login verifies the credentials and opens a session. Failures are
// *model.AuthError; store failures are returned as is.
func (a *Authenticator) Login(ctx context.Context, c Credentials) (*model.User, string, error) {
	if !c.Role.Valid() {
		return nil, "", &model.AuthError{Reason: model.AuthInvalidCredentials}
	}
	user, err := a.dir.GetUserByEmail(ctx, strings.TrimSpace(c.Email), c.Role)
	if err != nil {
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, "", &model.AuthError{Reason: model.AuthInvalidCredentials}
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(c.Password)); err != nil {
		return nil, "", &model.AuthError{Reason: model.AuthInvalidCredentials}
	}
	if c.Role == model.UserRoleStudent && user.Class != c.Class {
		return nil, "", &model.AuthError{Reason: model.AuthInvalidClass}
	}

	token, err := a.dir.CreateAuthSession(ctx, user.ID, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}
	slog.Info("user logged in", "user_id", user.ID, "role", user.Role)
	return user, token, nil
}

// Authenticate resolves a session token to its user. Unknown or expired
// tokens yield a nil user and no error, as does a session whose user has
// since changed role.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}
	sess, err := a.dir.GetAuthSession(ctx, token)
	if err != nil || sess == nil {
		return nil, err
	}
	user, err := a.dir.GetUserByID(ctx, sess.UserID)
	if err != nil || user == nil {
		return nil, err
	}
	if user.Role != sess.Role {
		slog.Warn("session role no longer matches user", "user_id", user.ID, "session_role", sess.Role)
		return nil, nil
	}
	return user, nil
}

// Logout ends the session.
func (a *Authenticator) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return a.dir.DeleteAuthSession(ctx, token)
}
