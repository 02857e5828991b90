package myerrors

import (
	"fmt"
	"testing"
)

func TestErrors(t *testing.T) {
	myErr := fmt.Errorf("my error")

	testCases := []struct {
		name       string
		in         error
		httpStatus int
		kind       Kind
		errorText  string
	}{
		{
			name:       "Unclassified error",
			in:         myErr,
			httpStatus: 500,
			kind:       KindInternal,
			errorText:  "my error",
		},
		{
			name:       "Invalid input error",
			in:         NewInvalidInputError(myErr),
			httpStatus: 400,
			kind:       KindInvalidArgument,
			errorText:  "InvalidArgument: my error",
		},
		{
			name:       "Invalid input errorf",
			in:         NewInvalidInputErrorf("%s: %d", myErr.Error(), 123),
			httpStatus: 400,
			kind:       KindInvalidArgument,
			errorText:  "InvalidArgument: my error: 123",
		},
		{
			name:       "Unauthorized error",
			in:         NewUnauthorizedError(myErr),
			httpStatus: 401,
			kind:       KindUnauthorized,
			errorText:  "Unauthorized: my error",
		},
		{
			name:       "Forbidden error",
			in:         NewForbiddenError(myErr),
			httpStatus: 403,
			kind:       KindForbidden,
			errorText:  "Forbidden: my error",
		},
		{
			name:       "Not found error",
			in:         NewNotFoundError(myErr),
			httpStatus: 404,
			kind:       KindNotFound,
			errorText:  "NotFound: my error",
		},
		{
			name:       "Empty cart error",
			in:         NewEmptyCartError(myErr),
			httpStatus: 400,
			kind:       KindEmptyCart,
			errorText:  "EmptyCart: my error",
		},
		{
			name:       "Item unavailable error",
			in:         NewItemUnavailableError(myErr),
			httpStatus: 409,
			kind:       KindItemUnavailable,
			errorText:  "ItemUnavailable: my error",
		},
		{
			name:       "Conflict error",
			in:         NewConflictError(myErr),
			httpStatus: 409,
			kind:       KindConflict,
			errorText:  "Conflict: my error",
		},
		{
			name:       "Unavailable error",
			in:         NewUnavailableError(myErr),
			httpStatus: 503,
			kind:       KindUnavailable,
			errorText:  "Unavailable: my error",
		},
		{
			name:       "Internal error",
			in:         NewInternalError(myErr),
			httpStatus: 500,
			kind:       KindInternal,
			errorText:  "Internal: my error",
		},
		{
			name:       "Wrapped classified error",
			in:         fmt.Errorf("outer: %w", NewNotFoundError(myErr)),
			httpStatus: 404,
			kind:       KindNotFound,
			errorText:  "outer: NotFound: my error",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := GetHTTPStatus(tc.in); got != tc.httpStatus {
				t.Errorf("got http-status %d, want %d", got, tc.httpStatus)
			}
			if got := GetKind(tc.in); got != tc.kind {
				t.Errorf("got kind %s, want %s", got, tc.kind)
			}
			if got := tc.in.Error(); got != tc.errorText {
				t.Errorf("got error-text %q, want %q", got, tc.errorText)
			}
		})
	}
}
