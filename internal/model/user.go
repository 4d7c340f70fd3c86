package model

import (
	"slices"
	"strings"
	"time"
)

const (
	PhoneLength       = 11
	MinPasswordLength = 4
)

// User is a registered account keyed by phone.
type User struct {
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName"`
	Phone        string   `json:"phone"`
	PasswordHash string   `json:"passwordHash"`
	TOSAgreement bool     `json:"tosAgreement"`
	Checks       []string `json:"checks,omitempty"`
}

// Profile is the user view returned over the API, without the password hash.
type Profile struct {
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName"`
	Phone        string   `json:"phone"`
	TOSAgreement bool     `json:"tosAgreement"`
	Checks       []string `json:"checks"`
}

// Profile strips the password hash.
func (u User) Profile() Profile {
	checks := u.Checks
	if checks == nil {
		checks = []string{}
	}
	return Profile{
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Phone:        u.Phone,
		TOSAgreement: u.TOSAgreement,
		Checks:       slices.Clone(checks),
	}
}

// RemoveCheck deletes id from the user's check list and reports whether it
// was present.
func (u *User) RemoveCheck(id string) bool {
	i := slices.Index(u.Checks, id)
	if i < 0 {
		return false
	}
	u.Checks = slices.Delete(u.Checks, i, i+1)
	return true
}

// Token is a bearer credential bound to one user.
type Token struct {
	ID    string `json:"id"`
	Phone string `json:"phone"`

	// Expires is Unix milliseconds.
	Expires int64 `json:"expires"`
}

// ValidAt reports whether the token has not expired at now.
func (t Token) ValidAt(now time.Time) bool {
	return t.Expires > now.UnixMilli()
}

// ExpiresAt returns Expires as a time.
func (t Token) ExpiresAt() time.Time {
	return time.UnixMilli(t.Expires)
}

// ValidPhone reports whether phone has exactly the expected length after
// trimming surrounding spaces.
func ValidPhone(phone string) bool {
	return len(strings.TrimSpace(phone)) == PhoneLength
}

// ValidPassword reports whether password is long enough.
func ValidPassword(password string) bool {
	return len(password) >= MinPasswordLength
}

// ValidName reports whether a first or last name is non-blank.
func ValidName(name string) bool {
	return strings.TrimSpace(name) != ""
}
