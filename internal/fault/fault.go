package fault

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the logical failure class of a generation action.
type Kind int

const (
	Transport Kind = iota
	Configuration
	Entitlement
	EmptyResult
	Validation
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Entitlement:
		return "entitlement"
	case EmptyResult:
		return "empty_result"
	case Validation:
		return "validation"
	default:
		return "transport"
	}
}

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Validationf(op, format string, args ...any) *Error {
	return New(Validation, op, fmt.Errorf(format, args...))
}

var (
	ErrMissingCredential = errors.New("no API key configured")
	ErrNoImage           = errors.New("model returned no image data")
	ErrNoText            = errors.New("model returned no text")
	ErrNoVideo           = errors.New("model returned no video")
)

func MissingCredential(op string) *Error { return New(Configuration, op, ErrMissingCredential) }

func NoImage(op string) *Error { return New(EmptyResult, op, ErrNoImage) }

// KindOf reports the kind of err. Unlabelled errors count as Transport.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Transport
}

func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// Retryable is true only for transport failures the caller did not cancel.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return KindOf(err) == Transport
}

var statusCodeRegex = regexp.MustCompile(`(?i)\b(?:error|status code|http)[: ]+(\d{3})\b`)

// Classify labels a raw provider or transport error with exactly one Kind.
// pro marks requests against the paid image model.
func Classify(op string, err error, pro bool) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return New(Transport, op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return New(Transport, op, err)
	}

	msg := strings.ToLower(err.Error())
	code := statusCode(msg)

	switch {
	case strings.Contains(msg, "api key not valid"),
		strings.Contains(msg, "api_key_invalid"),
		strings.Contains(msg, "unauthenticated"),
		code == 401:
		return New(Configuration, op, err)
	case strings.Contains(msg, "billing"),
		strings.Contains(msg, "paid tier"):
		return New(Entitlement, op, err)
	case pro && (code == 404 || code == 403 ||
		strings.Contains(msg, "not_found") ||
		strings.Contains(msg, "not found") ||
		strings.Contains(msg, "permission_denied")):
		return New(Entitlement, op, err)
	case code == 403 || strings.Contains(msg, "permission_denied"):
		return New(Configuration, op, err)
	}

	return New(Transport, op, err)
}

func statusCode(msg string) int {
	matches := statusCodeRegex.FindStringSubmatch(msg)
	if len(matches) != 2 {
		return 0
	}
	code, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0
	}
	return code
}
