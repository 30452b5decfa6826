package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Category is the semantic class of a failure.
type Category int

const (
	CategoryOther Category = iota // Not retried
	CategoryNetworkUnavailable
	CategoryDeadlineExceeded
	CategoryResourceExhausted
	CategoryAborted
	CategoryInternal
)

// String returns the string representation of Category.
func (c Category) String() string {
	switch c {
	case CategoryNetworkUnavailable:
		return "network-unavailable"
	case CategoryDeadlineExceeded:
		return "deadline-exceeded"
	case CategoryResourceExhausted:
		return "resource-exhausted"
	case CategoryAborted:
		return "aborted"
	case CategoryInternal:
		return "internal"
	default:
		return "other"
	}
}

// Retryable reports whether failures of this category are worth another attempt.
func (c Category) Retryable() bool {
	return c != CategoryOther
}

// Classifier maps an error to a Category.
type Classifier func(err error) Category

// categorizedError carries an explicit category assigned by an adapter.
type categorizedError struct {
	err      error
	category Category
}

func (e *categorizedError) Error() string      { return e.err.Error() }
func (e *categorizedError) Unwrap() error      { return e.err }
func (e *categorizedError) Category() Category { return e.category }

// Categorize attaches cat to err. Adapters use it so callers never need to
// match on message text.
func Categorize(err error, cat Category) error {
	if err == nil {
		return nil
	}
	return &categorizedError{err: err, category: cat}
}

// PermanentError marks an error that must not be retried regardless of its text.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so that Classify reports CategoryOther.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// legacyPatterns is the substring table used when nothing structured is
// available. Order matters: more specific phrases first.
var legacyPatterns = []struct {
	substr   string
	category Category
}{
	{"transport errored", CategoryNetworkUnavailable},
	{"webchannelconnection", CategoryNetworkUnavailable},
	{"network error", CategoryNetworkUnavailable},
	{"failed to fetch", CategoryNetworkUnavailable},
	{"fetch error", CategoryNetworkUnavailable},
	{"connection timeout", CategoryDeadlineExceeded},
	{"network timeout", CategoryDeadlineExceeded},
	{"deadline-exceeded", CategoryDeadlineExceeded},
	{"resource-exhausted", CategoryResourceExhausted},
	{"unavailable", CategoryNetworkUnavailable},
	{"aborted", CategoryAborted},
	{"internal", CategoryInternal},
}

// Classify determines the category for a given error.
func Classify(err error) Category {
	if err == nil {
		return CategoryOther
	}

	var perm *PermanentError
	if errors.As(err, &perm) {
		return CategoryOther
	}

	var categorized interface{ Category() Category }
	if errors.As(err, &categorized) {
		return categorized.Category()
	}

	if errors.Is(err, context.Canceled) {
		return CategoryOther
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryDeadlineExceeded
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		return fromGRPCCode(st.Code())
	}

	if cat, ok := transportCategory(err); ok {
		return cat
	}

	return classifyText(err)
}

// Transport annotates an http.Client.Do failure. Connection level failures
// keep their retryable category; anything else, such as an unsupported
// scheme or a malformed URL, becomes permanent. Context errors pass through.
func Transport(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if cat, ok := transportCategory(err); ok && cat.Retryable() {
		return Categorize(err, cat)
	}
	return Permanent(err)
}

// transportCategory looks through *url.Error, which always satisfies
// net.Error, at the failure underneath it. A url.Error hiding no connection
// failure is a request problem and reports CategoryOther.
func transportCategory(err error) (Category, bool) {
	var urlErr *url.Error
	isURLErr := errors.As(err, &urlErr)
	if isURLErr {
		err = urlErr.Err
		if err == nil {
			return CategoryOther, true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CategoryDeadlineExceeded, true
		}
		return CategoryNetworkUnavailable, true
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF):
		return CategoryNetworkUnavailable, true
	case isURLErr && errors.Is(err, io.EOF):
		// Server closed a kept-alive connection before answering.
		return CategoryNetworkUnavailable, true
	case isURLErr:
		return CategoryOther, true
	}
	return CategoryOther, false
}

// IsRetryable reports whether Classify puts err in a retryable category.
func IsRetryable(err error) bool {
	return Classify(err).Retryable()
}

func fromGRPCCode(c codes.Code) Category {
	switch c {
	case codes.Unavailable:
		return CategoryNetworkUnavailable
	case codes.DeadlineExceeded:
		return CategoryDeadlineExceeded
	case codes.ResourceExhausted:
		return CategoryResourceExhausted
	case codes.Aborted:
		return CategoryAborted
	case codes.Internal:
		return CategoryInternal
	default:
		return CategoryOther
	}
}

// classifyText matches the error message and any Code() string in the chain.
func classifyText(err error) Category {
	candidates := []string{strings.ToLower(err.Error())}

	var coder interface{ Code() string }
	if errors.As(err, &coder) {
		candidates = append(candidates, strings.ToLower(coder.Code()))
	}

	for _, p := range legacyPatterns {
		for _, s := range candidates {
			if strings.Contains(s, p.substr) {
				return p.category
			}
		}
	}
	return CategoryOther
}
