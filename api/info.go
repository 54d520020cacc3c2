package api

import (
	"net/http"
)

// info returns the public parameters of the cluster: the threshold, the
// reveal window and the cluster keys.
// GET /info
func (a *API) info(w http.ResponseWriter, r *http.Request) {
	httpWriteJSON(w, a.seq.Info())
}
