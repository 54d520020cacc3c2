package api

import (
	"fmt"
	"net/url"
	"strings"
)

// Route constants for the API endpoints

const (
	// Health endpoints
	PingEndpoint = "/ping" // Health check endpoint

	// Info endpoint
	InfoEndpoint = "/info" // GET: Get the public parameters of the cluster

	// Poll endpoints
	PollURLParam     = "pollId"                                // URL parameter for poll ID
	PollsEndpoint    = "/polls"                                // GET: List polls, POST: Create poll
	PollEndpoint     = PollsEndpoint + "/{" + PollURLParam + "}" // GET: Get poll status
	PollKeysEndpoint = PollEndpoint + "/keys"                  // GET: Get the keys ballots are sealed with
	ResultEndpoint   = PollEndpoint + "/result"                // GET: Reveal whether yes leads, needs the authority token

	// AuthorizationHeader carries the poll authority token as
	// "Bearer <hex token>" on result requests.
	AuthorizationHeader = "Authorization"
	bearerScheme        = "Bearer"

	// Ballot endpoints
	BallotIDURLParam     = "ballotId"                                      // URL parameter for ballot ID
	BallotsEndpoint      = PollEndpoint + "/ballots"                       // POST: Submit a sealed ballot
	BallotStatusEndpoint = BallotsEndpoint + "/{" + BallotIDURLParam + "}" // GET: Check ballot status
)

// LogExcludedPrefixes are the URL path prefixes the logging middleware does
// not log.
var LogExcludedPrefixes = []string{
	PingEndpoint,
}

// EndpointWithParam creates an endpoint URL by replacing the parameter
// placeholder with the actual value. Used to build fully qualified
// endpoint URLs.
func EndpointWithParam(path, key, param string) string {
	rawKey := fmt.Sprintf("{%s}", key)

	// Always try to replace the placeholder, even if it's after the '?'
	if strings.Contains(path, rawKey) {
		return strings.Replace(path, rawKey, url.PathEscape(param), 1)
	}

	// Fallback: add as query param
	escapedKey := url.QueryEscape(key)
	escapedVal := url.QueryEscape(param)

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	return fmt.Sprintf("%s%s%s=%s", path, sep, escapedKey, escapedVal)
}
