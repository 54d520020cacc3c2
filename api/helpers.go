package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/davinci-tally/db"
	"github.com/vocdoni/davinci-tally/log"
	"github.com/vocdoni/davinci-tally/sequencer"
	"github.com/vocdoni/davinci-tally/storage"
	"github.com/vocdoni/davinci-tally/tally"
	"github.com/vocdoni/davinci-tally/types"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data any) {
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
		return
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
		return
	}
	if !DisabledLogging && log.Level() == log.LogLevelDebug {
		log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
	}
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// pollIDParam parses the poll ID URL parameter. pollIDMiddleware already
// rejected malformed IDs on the routes that carry it.
func pollIDParam(r *http.Request) (types.PollID, error) {
	return types.ParsePollID(chi.URLParam(r, PollURLParam))
}

// authorityToken returns the poll authority token carried by the
// Authorization header as "Bearer <hex token>". A request without the header
// yields an empty token.
func authorityToken(r *http.Request) (types.HexBytes, error) {
	header := strings.TrimSpace(r.Header.Get(AuthorizationHeader))
	if header == "" {
		return nil, nil
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return nil, fmt.Errorf("unsupported authorization scheme")
	}
	return types.HexStringToHexBytes(strings.TrimSpace(token))
}

// writeSequencerError maps the errors returned by the sequencer to their API
// error codes.
func writeSequencerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sequencer.ErrPollNotFound):
		ErrPollNotFound.WithErr(err).Write(w)
	case errors.Is(err, sequencer.ErrPollInactive):
		ErrPollInactive.WithErr(err).Write(w)
	case errors.Is(err, sequencer.ErrUnauthorized):
		ErrUnauthorized.Write(w)
	case errors.Is(err, tally.ErrMalformedCiphertext):
		ErrMalformedBallot.WithErr(err).Write(w)
	case errors.Is(err, tally.ErrDomainMismatch):
		ErrBallotDomainMismatch.WithErr(err).Write(w)
	case errors.Is(err, tally.ErrContext):
		ErrInvalidTallyContext.WithErr(err).Write(w)
	case errors.Is(err, storage.ErrBallotQueued):
		ErrBallotAlreadySubmitted.WithErr(err).Write(w)
	case errors.Is(err, storage.ErrBallotConsumed):
		ErrBallotAlreadyApplied.WithErr(err).Write(w)
	case errors.Is(err, tally.ErrRevealWindow):
		ErrRevealOutOfWindow.WithErr(err).Write(w)
	case errors.Is(err, storage.ErrStaleTally), errors.Is(err, db.ErrConflict):
		ErrStaleTally.WithErr(err).Write(w)
	default:
		ErrGenericInternalServerError.WithErr(err).Write(w)
	}
}
