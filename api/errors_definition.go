//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 404 or 409, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after
// the current last 4XXXX or 5XXXX. Gaps belong to retired errors and must not
// be reused.
var (
	ErrResourceNotFound       = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody          = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedPollID        = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed poll ID")}
	ErrPollNotFound           = Error{Code: 40007, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("poll not found")}
	ErrMalformedParam         = Error{Code: 40015, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed parameter")}
	ErrMalformedBallot        = Error{Code: 40020, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed ballot ciphertext")}
	ErrBallotDomainMismatch   = Error{Code: 40021, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("ballot sealed for another poll")}
	ErrInvalidTallyContext    = Error{Code: 40022, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("ballot does not belong to the poll pool")}
	ErrBallotAlreadySubmitted = Error{Code: 40023, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("ballot already submitted")}
	ErrBallotAlreadyApplied   = Error{Code: 40024, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("ballot already counted")}
	ErrPollInactive           = Error{Code: 40025, HTTPstatus: http.StatusGone, Err: fmt.Errorf("poll keys are not held by this cluster")}
	ErrMissingQuestion        = Error{Code: 40026, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("missing poll question")}
	ErrUnauthorized           = Error{Code: 40027, HTTPstatus: http.StatusUnauthorized, Err: fmt.Errorf("missing or invalid poll authority token")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrRevealOutOfWindow          = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("tally margin outside the reveal window")}
	ErrStaleTally                 = Error{Code: 50004, HTTPstatus: http.StatusServiceUnavailable, Err: fmt.Errorf("tally changed concurrently, retry")}
)
