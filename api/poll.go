package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// newPoll creates a poll and returns its ID, keys and authority token.
// POST /polls
func (a *API) newPoll(w http.ResponseWriter, r *http.Request) {
	var req NewPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		ErrMissingQuestion.Write(w)
		return
	}
	p, token, err := a.seq.NewPoll(r.Context(), req.Question)
	if err != nil {
		writeSequencerError(w, err)
		return
	}
	keys, err := a.seq.Keys(p.ID)
	if err != nil {
		writeSequencerError(w, err)
		return
	}
	httpWriteJSON(w, &NewPollResponse{PollID: p.ID, Keys: keys, AuthorityToken: token})
}

// listPolls returns the polls whose keys the node holds.
// GET /polls
func (a *API) listPolls(w http.ResponseWriter, r *http.Request) {
	httpWriteJSON(w, &PollListResponse{Polls: a.seq.Polls()})
}

// poll returns the metadata and progress of a poll.
// GET /polls/{pollId}
func (a *API) poll(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		ErrMalformedPollID.WithErr(err).Write(w)
		return
	}
	status, err := a.seq.PollStatus(pollID)
	if err != nil {
		writeSequencerError(w, err)
		return
	}
	httpWriteJSON(w, &PollResponse{
		PollID:      status.Poll.ID,
		Question:    status.Poll.Question,
		CreatedAt:   status.Poll.CreatedAt,
		Fingerprint: status.Poll.Fingerprint,
		Seq:         status.Seq,
		Queued:      status.Queued,
		Active:      status.Active,
	})
}

// pollKeys returns the keys ballots of a poll are sealed with.
// GET /polls/{pollId}/keys
func (a *API) pollKeys(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		ErrMalformedPollID.WithErr(err).Write(w)
		return
	}
	keys, err := a.seq.Keys(pollID)
	if err != nil {
		writeSequencerError(w, err)
		return
	}
	httpWriteJSON(w, keys)
}

// result reveals whether yes votes outnumber no votes in the current tally.
// Nothing else about the tally is disclosed. Only the holder of the poll
// authority token may call it.
// GET /polls/{pollId}/result
func (a *API) result(w http.ResponseWriter, r *http.Request) {
	pollID, err := pollIDParam(r)
	if err != nil {
		ErrMalformedPollID.WithErr(err).Write(w)
		return
	}
	token, err := authorityToken(r)
	if err != nil {
		ErrUnauthorized.WithErr(err).Write(w)
		return
	}
	res, err := a.seq.Reveal(r.Context(), pollID, token)
	if err != nil {
		writeSequencerError(w, err)
		return
	}
	httpWriteJSON(w, &ResultResponse{PollID: res.PollID, Seq: res.Seq, YesWins: res.YesWins})
}
