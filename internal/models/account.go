package models

import (
	"time"
)

// Account is a registered user. PasswordHash always holds a hash produced
// by the password policy, never plaintext.
type Account struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     *string    `json:"full_name,omitempty"`
	ProfileBio   *string    `json:"profile_bio,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	IsActive     bool       `json:"is_active"`
	IsVerified   bool       `json:"is_verified"`
}

// ProfileUpdate carries the user-editable profile fields. Nil means
// "leave unchanged".
type ProfileUpdate struct {
	FullName   *string
	ProfileBio *string
}

func (u ProfileUpdate) Empty() bool {
	return u.FullName == nil && u.ProfileBio == nil
}
