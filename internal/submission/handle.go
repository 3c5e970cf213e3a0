package submission

import (
	"errors"
	"regexp"
	"strings"
)

var handlePattern = regexp.MustCompile(`^@?\w{1,15}$`)

// ErrInvalidHandle is returned for social-media handles that do not match ^@?\w{1,15}$.
var ErrInvalidHandle = errors.New("please enter a valid Twitter username, starting with @")

// IsValidHandle reports whether the trimmed handle matches the accepted pattern.
func IsValidHandle(handle string) bool {
	return handlePattern.MatchString(strings.TrimSpace(handle))
}

// ValidateHandle returns ErrInvalidHandle when the handle is not acceptable.
func ValidateHandle(handle string) error {
	if !IsValidHandle(handle) {
		return ErrInvalidHandle
	}
	return nil
}

// NormalizeHandle trims the handle and makes sure it carries the '@' prefix.
// Applying it twice yields the same result.
func NormalizeHandle(handle string) string {
	h := strings.TrimSpace(handle)
	if strings.HasPrefix(h, "@") {
		return h
	}
	return "@" + h
}
