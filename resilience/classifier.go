package resilience

import "strings"

// retryableKeywords are matched case-insensitively against an error's
// message text by DefaultClassifier. They are deliberately narrow: a
// classifier that retries everything defeats the point of classifying at
// all, so anything not recognized here is treated as permanent.
var retryableKeywords = []string{
	"timeout",
	"temporary",
	"unavailable",
	"connection",
	"deadlock",
}

// temporary is implemented by errors (notably net.Error) that can assert
// their own retryability independent of message text.
type temporary interface {
	Temporary() bool
}

// timeouter is implemented by errors (notably net.Error, context.Context
// deadline errors) that can assert they are a timeout independent of
// message text.
type timeouter interface {
	Timeout() bool
}

// DefaultClassifier is the default retry classifier: it retries errors
// whose type identity claims to be temporary or a timeout, and otherwise
// falls back to a keyword scan of the error's message text. Everything
// else is treated as a terminal (non-retryable) error.
func DefaultClassifier(err error) bool {
	if err == nil {
		return false
	}

	if t, ok := err.(temporary); ok && t.Temporary() {
		return true
	}
	if t, ok := err.(timeouter); ok && t.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, kw := range retryableKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}

	return false
}
