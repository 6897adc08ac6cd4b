package recall

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// NormalizeUsername lowercases and trims a username before validation or
// lookup. Usernames are stored normalized.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UsernameRules are the validation rules for a normalized username.
func UsernameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(5, 100),
		validation.By(validateLowercase),
	}
}

// EmailRules are the validation rules for a normalized email. The original
// contract is deliberately loose: the address must contain "@" and ".".
func EmailRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.By(validateEmailShape),
	}
}

// PasswordRules are the validation rules for a cleartext password.
func PasswordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(8, 100),
	}
}

func validateLowercase(value any) error {
	s, _ := value.(string)
	if s != strings.ToLower(s) {
		return validation.NewError("validation_lowercase", "must be lowercase")
	}
	if s != strings.TrimSpace(s) {
		return validation.NewError("validation_trimmed", "must not contain leading or trailing spaces")
	}
	return nil
}

func validateEmailShape(value any) error {
	s, _ := value.(string)
	if !strings.Contains(s, "@") || !strings.Contains(s, ".") {
		return validation.NewError("validation_email", "must be a valid email address")
	}
	return nil
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field -> message map for the response envelope.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if errs, ok := err.(validation.Errors); ok {
		for field, ferr := range errs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["validation"] = err.Error()
	return out
}
