package myerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable, machine-readable classification that ends up in every
// error response body.
type Kind string

const (
	KindInvalidArgument Kind = "InvalidArgument"
	KindUnauthorized    Kind = "Unauthorized"
	KindForbidden       Kind = "Forbidden"
	KindNotFound        Kind = "NotFound"
	KindEmptyCart       Kind = "EmptyCart"
	KindItemUnavailable Kind = "ItemUnavailable"
	KindConflict        Kind = "Conflict"
	KindUnavailable     Kind = "Unavailable"
	KindInternal        Kind = "Internal"
	KindNotImplemented  Kind = "NotImplemented"
)

type kindError interface {
	error
	GetKind() Kind
	GetHTTPErrorCode() int
}

type classifiedError struct {
	kind     Kind
	httpCode int
	err      error
}

func (e classifiedError) Error() string {
	return fmt.Sprintf("%s: %s", e.kind, e.err.Error())
}

func (e classifiedError) GetKind() Kind {
	return e.kind
}

func (e classifiedError) GetHTTPErrorCode() int {
	return e.httpCode
}

func (e classifiedError) Unwrap() error {
	return e.err
}

func newError(kind Kind, httpCode int, err error) *classifiedError {
	return &classifiedError{
		kind:     kind,
		httpCode: httpCode,
		err:      err,
	}
}

func NewInvalidInputError(err error) *classifiedError {
	return newError(KindInvalidArgument, http.StatusBadRequest, err)
}

func NewInvalidInputErrorf(format string, args ...interface{}) *classifiedError {
	return NewInvalidInputError(fmt.Errorf(format, args...))
}

func NewUnauthorizedError(err error) *classifiedError {
	return newError(KindUnauthorized, http.StatusUnauthorized, err)
}

func NewForbiddenError(err error) *classifiedError {
	return newError(KindForbidden, http.StatusForbidden, err)
}

func NewNotFoundError(err error) *classifiedError {
	return newError(KindNotFound, http.StatusNotFound, err)
}

func NewEmptyCartError(err error) *classifiedError {
	return newError(KindEmptyCart, http.StatusBadRequest, err)
}

func NewItemUnavailableError(err error) *classifiedError {
	return newError(KindItemUnavailable, http.StatusConflict, err)
}

func NewConflictError(err error) *classifiedError {
	return newError(KindConflict, http.StatusConflict, err)
}

// NewUnavailableError wraps transient store or dependency failures. Callers
// may retry; the original error stays server-side.
func NewUnavailableError(err error) *classifiedError {
	return newError(KindUnavailable, http.StatusServiceUnavailable, err)
}

func NewInternalError(err error) *classifiedError {
	return newError(KindInternal, http.StatusInternalServerError, err)
}

func NewNotImplementedError(err error) *classifiedError {
	return newError(KindNotImplemented, http.StatusNotImplemented, err)
}

func GetHTTPStatus(err error) int {
	var myError kindError
	if err != nil && errors.As(err, &myError) {
		return myError.GetHTTPErrorCode()
	}
	return http.StatusInternalServerError
}

func GetKind(err error) Kind {
	var myError kindError
	if err != nil && errors.As(err, &myError) {
		return myError.GetKind()
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return GetKind(err) == kind
}
