package middleware

import (
	"fmt"
	"regexp"
)

// DefaultCommentByteLimit and DefaultFieldByteLimit are the byte
// ceilings from §4.6 ("default 10 000 for comments, 1 MiB otherwise").
const (
	DefaultCommentByteLimit = 10_000
	DefaultFieldByteLimit   = 1 << 20
)

var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)vbscript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
}

// SanitizeText validates a free-text field against §4.6's input
// sanitization rule: reject known script-injection patterns, and
// enforce a byte ceiling appropriate to the field's kind.
func SanitizeText(field, value string, maxBytes int) error {
	if len(value) > maxBytes {
		return fmt.Errorf("%s exceeds maximum length of %d bytes", field, maxBytes)
	}
	for _, p := range suspiciousPatterns {
		if p.MatchString(value) {
			return fmt.Errorf("%s contains disallowed content", field)
		}
	}
	return nil
}

// SanitizeComment applies the comment-specific byte ceiling.
func SanitizeComment(field, value string) error {
	return SanitizeText(field, value, DefaultCommentByteLimit)
}
