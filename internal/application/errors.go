package application

import (
	"errors"
)

var (
	// ErrValidation marks input outside a field's domain. It is recovered
	// by clamping and never shown to the user.
	ErrValidation = errors.New("value outside domain")
	// ErrIdentityMissing means there is no active session.
	ErrIdentityMissing = errors.New("identity missing")
	// ErrPersistenceUnavailable wraps any failed document-store or account-store call.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	// ErrSaveInProgress is returned while a write for the same identity and step is outstanding.
	ErrSaveInProgress = errors.New("save already in progress")
	// ErrBMIUnavailable is returned when a step needs a BMI that cannot be computed yet.
	ErrBMIUnavailable = errors.New("bmi not yet computable")
)

// Auth rejections at the login/registration boundary.
var (
	ErrNameRequired       = errors.New("name required")
	ErrEmailRequired      = errors.New("email required")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrPasswordRequired   = errors.New("password required")
	ErrWeakPassword       = errors.New("weak password")
	ErrPasswordMismatch   = errors.New("password mismatch")
	ErrMissingFields      = errors.New("missing email or password")
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("account not found")
	ErrTooManyRequests    = errors.New("too many requests")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// AuthNotice is the user-facing text for an auth failure.
type AuthNotice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

var authNotices = []struct {
	err    error
	notice AuthNotice
}{
	{ErrNameRequired, AuthNotice{"Name required", "Please enter your name."}},
	{ErrEmailRequired, AuthNotice{"Email required", "Please enter your email."}},
	{ErrInvalidEmail, AuthNotice{"Invalid Email", "Please enter a valid email format (example: name@gmail.com)."}},
	{ErrPasswordRequired, AuthNotice{"Password required", "Please enter your password."}},
	{ErrWeakPassword, AuthNotice{"Weak Password", "Password must be at least 6 characters."}},
	{ErrPasswordMismatch, AuthNotice{"Password mismatch", "Passwords do not match."}},
	{ErrMissingFields, AuthNotice{"Missing fields", "Please enter email and password."}},
	{ErrEmailInUse, AuthNotice{"Email Exists", "This email is already registered."}},
	{ErrInvalidCredentials, AuthNotice{"Wrong email/password", "Please provide valid email and password."}},
	{ErrAccountNotFound, AuthNotice{"No account found", "This email is not registered yet."}},
	{ErrTooManyRequests, AuthNotice{"Too many requests", "Please try again later."}},
	{ErrInvalidToken, AuthNotice{"Link expired", "This link is invalid or has expired. Please request a new one."}},
}

// AuthMessage maps an auth failure to its notice. Unrecognized causes get a
// generic title with the raw failure detail.
func AuthMessage(err error) AuthNotice {
	for _, n := range authNotices {
		if errors.Is(err, n.err) {
			return n.notice
		}
	}
	if err == nil {
		return AuthNotice{Title: "Error", Message: "Something went wrong."}
	}
	return AuthNotice{Title: "Error", Message: err.Error()}
}
