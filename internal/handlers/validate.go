package handlers

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 100
	minFullNameLen = 2
	maxFullNameLen = 100
	maxBioLen      = 500
)

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (r *registerRequest) validate() error {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)

	if r.Username == "" {
		return errors.New("username is required")
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if err := validateLength("password", r.Password, minPasswordLen, maxPasswordLen); err != nil {
		return err
	}
	if err := validateLength("confirm_password", r.ConfirmPassword, minPasswordLen, maxPasswordLen); err != nil {
		return err
	}
	if r.Password != r.ConfirmPassword {
		return errors.New("passwords do not match")
	}
	return nil
}

type loginRequest struct {
	UsernameOrEmail string `json:"username_or_email"`
	Password        string `json:"password"`
}

func (r *loginRequest) validate() error {
	if r.UsernameOrEmail == "" {
		return errors.New("username_or_email is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

type profileUpdateRequest struct {
	FullName   *string `json:"full_name"`
	ProfileBio *string `json:"profile_bio"`
}

func (r *profileUpdateRequest) validate() error {
	if r.FullName != nil {
		if err := validateLength("full_name", *r.FullName, minFullNameLen, maxFullNameLen); err != nil {
			return err
		}
	}
	if r.ProfileBio != nil {
		if err := validateLength("profile_bio", *r.ProfileBio, 0, maxBioLen); err != nil {
			return err
		}
	}
	return nil
}

// validateEmail accepts a bare addr-spec only; display names are rejected.
func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return errors.New("email is not a valid email address")
	}
	return nil
}

func validateLength(field, value string, minLen, maxLen int) error {
	n := utf8.RuneCountInString(value)
	if n < minLen || n > maxLen {
		return fmt.Errorf("%s must be between %d and %d characters", field, minLen, maxLen)
	}
	return nil
}
