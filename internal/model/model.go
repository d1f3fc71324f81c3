package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleStudent, UserRoleTeacher, UserRoleAdmin:
		return true
	}
	return false
}

// Stream is a curriculum variant selecting which subject catalog applies.
type Stream string

const (
	StreamNCERT Stream = "ncert"
	StreamPSEB  Stream = "pseb"
)

// Language is a display and reply language.
type Language string

const (
	LanguageEnglish Language = "english"
	LanguagePunjabi Language = "punjabi"
)

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguagePunjabi
}

// Tag returns the BCP 47 tag used by the message catalog.
func (l Language) Tag() string {
	if l == LanguagePunjabi {
		return "pa"
	}
	return "en"
}

// LanguageFromTag maps a catalog tag ("en", "pa", "pa-IN") back to a Language.
func LanguageFromTag(tag string) Language {
	if len(tag) >= 2 && tag[:2] == "pa" {
		return LanguagePunjabi
	}
	return LanguageEnglish
}

// Text is a localized pair of English and Punjabi strings.
type Text struct {
	En string `json:"en" yaml:"en"`
	Pa string `json:"pa" yaml:"pa"`
}

// In returns the text for lang, falling back to the other side when empty.
func (t Text) In(lang Language) string {
	if lang == LanguagePunjabi && t.Pa != "" {
		return t.Pa
	}
	if t.En == "" {
		return t.Pa
	}
	return t.En
}

// IsZero reports whether both sides are empty.
func (t Text) IsZero() bool {
	return t.En == "" && t.Pa == ""
}

// Filled copies whichever side is set into the empty side.
func (t Text) Filled() Text {
	if t.En == "" {
		t.En = t.Pa
	}
	if t.Pa == "" {
		t.Pa = t.En
	}
	return t
}

// User represents a portal user. Student-only fields are zero for other roles.
type User struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Role           UserRole `json:"role"`
	ProfilePicture string   `json:"profile_picture,omitempty"`
	ParentName     string   `json:"parent_name,omitempty"`
	ParentPhone    string   `json:"parent_phone,omitempty"`
	TeacherNotes   string   `json:"teacher_notes,omitempty"`
	Class          int      `json:"class,omitempty"`
	Subject        Text     `json:"subject,omitempty"`
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    string
	Role      UserRole // role chosen at login
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// PortalConfig holds runtime parameters set via CLI flags.
type PortalConfig struct {
	LLMModel     string
	LLMTimeout   time.Duration
	Lang         string        // default UI language tag
	QuizCacheTTL time.Duration // catalog cache lifetime
}
