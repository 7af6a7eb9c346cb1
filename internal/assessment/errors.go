package assessment

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sells-group/privacy-assess/internal/model"
)

// Kind classifies report failures.
type Kind int

const (
	KindInvalidRequest Kind = iota + 1
	KindUnknownConcernCode
	KindMissingMaxScore
	KindCatalogUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindUnknownConcernCode:
		return "unknown_concern_code"
	case KindMissingMaxScore:
		return "missing_max_score"
	case KindCatalogUnavailable:
		return "catalog_unavailable"
	default:
		return "unknown"
	}
}

// HTTPStatus maps the kind to the response status the API returns.
func (k Kind) HTTPStatus() int {
	if k == KindCatalogUnavailable {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// Error is returned by every failing report computation. Msg is safe to
// show to clients; Err carries internal detail and is never serialized.
type Error struct {
	Kind Kind
	Code model.ConcernCode
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the Kind from err, if it carries an *Error.
func KindOf(err error) (Kind, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return 0, false
}

func errInvalidRequest(msg string) *Error {
	return &Error{Kind: KindInvalidRequest, Msg: msg}
}

func errUnknownCode(field string, code model.ConcernCode) *Error {
	return &Error{
		Kind: KindUnknownConcernCode,
		Code: code,
		Msg:  fmt.Sprintf("unknown concern code %q in %s", code, field),
	}
}

func errMissingMax(code model.ConcernCode) *Error {
	return &Error{
		Kind: KindMissingMaxScore,
		Code: code,
		Msg:  fmt.Sprintf("missing max score for concern code %q", code),
	}
}

func errCatalogUnavailable(cause error) *Error {
	return &Error{
		Kind: KindCatalogUnavailable,
		Msg:  "suggestion catalog unavailable",
		Err:  cause,
	}
}
