package validation

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared validator instance; it caches struct metadata
// so it is built once.
func Validator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	return Validator().Var(email, "email") == nil
}

func ValidatePassword(password string, minLength int) bool {
	return utf8.RuneCountInString(password) >= minLength
}

// ValidateID accepts the UUIDs this service issues for users and groups.
func ValidateID(id string) bool {
	return Validator().Var(id, "required,uuid") == nil
}

// ContentBlank reports whether content holds nothing but whitespace.
func ContentBlank(content string) bool {
	return strings.TrimSpace(content) == ""
}

// ContentFits reports whether content is within maxLength runes. A
// non-positive limit accepts any length.
func ContentFits(content string, maxLength int) bool {
	return maxLength <= 0 || utf8.RuneCountInString(content) <= maxLength
}
