package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/davinci-tally/types"
)

// newBallot queues a sealed ballot. The ballot is checked against the poll
// before it is queued; it is applied to the tally by the ballot processor.
// POST /polls/{pollId}/ballots
func (a *API) newBallot(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		ErrMalformedPollID.WithErr(err).Write(w)
		return
	}
	var req BallotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if len(req.Ballot) == 0 {
		ErrMalformedBallot.With("empty ballot").Write(w)
		return
	}
	ballotID, err := a.seq.SubmitBallot(pollID, req.Ballot)
	if err != nil {
		writeSequencerError(w, err)
		return
	}
	httpWriteJSON(w, &BallotResponse{BallotID: ballotID})
}

// ballotStatus reports whether a ballot is queued or already counted.
// GET /polls/{pollId}/ballots/{ballotId}
func (a *API) ballotStatus(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		ErrMalformedPollID.WithErr(err).Write(w)
		return
	}
	ballotID, err := types.HexStringToHexBytes(chi.URLParam(r, BallotIDURLParam))
	if err != nil || len(ballotID) == 0 {
		ErrMalformedParam.Withf("invalid ballot ID: %q", chi.URLParam(r, BallotIDURLParam)).Write(w)
		return
	}
	status, err := a.seq.BallotStatus(pollID, ballotID)
	if err != nil {
		writeSequencerError(w, err)
		return
	}
	httpWriteJSON(w, &BallotStatusResponse{BallotID: ballotID, Status: status})
}
