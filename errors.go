package auth

import (
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
)

// ErrTokenExpired is returned when a token's expiry has passed.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers every other token failure: wrong part count, bad
// encoding, bad signature, unexpected signing method.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(errors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is the single error for failed credential
// verification. Identity-not-found maps to it as well so login cannot be used
// to probe for usernames.
var ErrMismatchedHashAndPassword = errors.New("credentials do not match", errors.CategoryAuth).
	WithTextCode("AUTH_FAILURE").
	WithCode(errors.CodeUnauthorized)

// ErrTooManyLoginAttempts is returned while an account is cooling down.
var ErrTooManyLoginAttempts = errors.New("too many login attempts", errors.CategoryRateLimit).
	WithTextCode("TOO_MANY_ATTEMPTS").
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty input where a value is required.
var ErrNoEmptyString = errors.New("value must not be an empty string", errors.CategoryBadInput).
	WithTextCode("EMPTY_STRING")

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode("IDENTITY_NOT_FOUND").
	WithCode(errors.CodeNotFound)

// ErrUnableToFindSession is the error when our request has no token
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithTextCode("SESSION_NOT_FOUND").
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to decode JWT claims
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithTextCode("SESSION_DECODE").
	WithCode(errors.CodeUnauthorized)

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims", errors.CategoryAuth).
	WithTextCode("CLAIMS_MAP").
	WithCode(errors.CodeUnauthorized)

// ErrUnableToParseData parse error
var ErrUnableToParseData = errors.New("unable to parse data", errors.CategoryBadInput).
	WithTextCode("PARSE_DATA")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// FormatValidationErrorToMap flattens an ozzo validation error into a
// field to message map.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["error"] = err.Error()
	return out
}

// ValidationErrorDescriptions renders a validation error as a stable, sorted
// list of "field: message" descriptions for JSON responses. Rich errors that
// carry a validation map in their metadata are read first, then raw ozzo
// errors, then the plain message.
func ValidationErrorDescriptions(err error) []string {
	if err == nil {
		return nil
	}

	fields := map[string]string{}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Metadata != nil {
		if vm, ok := richErr.Metadata["validation"].(map[string]string); ok {
			for field, msg := range vm {
				fields[field] = msg
			}
		}
	}

	if len(fields) == 0 {
		fields = FormatValidationErrorToMap(err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(fields))
	for _, k := range keys {
		if k == "error" {
			out = append(out, fields[k])
			continue
		}
		out = append(out, k+": "+fields[k])
	}
	return out
}
