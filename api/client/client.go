// Package client is an HTTP client for the davinci-tally API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/vocdoni/davinci-tally/api"
	"github.com/vocdoni/davinci-tally/log"
	"github.com/vocdoni/davinci-tally/mpc"
	"github.com/vocdoni/davinci-tally/sequencer"
	"github.com/vocdoni/davinci-tally/tally"
	"github.com/vocdoni/davinci-tally/types"
)

// DefaultTimeout is the timeout of a single request.
const DefaultTimeout = 30 * time.Second

// HTTPclient sends requests to a davinci-tally node.
type HTTPclient struct {
	c    *http.Client
	addr *url.URL
}

// New returns a client for the node at host, e.g. http://127.0.0.1:9090.
func New(host string) (*HTTPclient, error) {
	addr, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid host %q: %w", host, err)
	}
	if addr.Scheme == "" || addr.Host == "" {
		return nil, fmt.Errorf("invalid host %q: missing scheme or address", host)
	}
	return &HTTPclient{
		c:    &http.Client{Timeout: DefaultTimeout},
		addr: addr,
	}, nil
}

// Request performs a request with an optional JSON body. params are query
// key/value pairs. It returns the response body and status code.
func (c *HTTPclient) Request(method string, jsonBody any, params []string, urlPath ...string) ([]byte, int, error) {
	return c.RequestWithHeader(method, nil, jsonBody, params, urlPath...)
}

// RequestWithHeader is like Request but adds header to the request.
func (c *HTTPclient) RequestWithHeader(method string, header http.Header, jsonBody any, params []string, urlPath ...string) ([]byte, int, error) {
	var body io.Reader
	if jsonBody != nil {
		data, err := json.Marshal(jsonBody)
		if err != nil {
			return nil, 0, fmt.Errorf("could not marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}
	if len(params)%2 != 0 {
		return nil, 0, fmt.Errorf("query params must be key/value pairs")
	}
	u := *c.addr
	u.Path = path.Join(append([]string{u.Path}, urlPath...)...)
	if len(params) > 0 {
		q := u.Query()
		for i := 0; i < len(params); i += 2 {
			q.Set(params[i], params[i+1])
		}
		u.RawQuery = q.Encode()
	}
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, 0, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	log.Debugw("api request", "method", method, "url", u.String())
	resp, err := c.c.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warnw("failed to close response body", "error", err)
		}
	}()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return data, resp.StatusCode, nil
}

// do sends a request and decodes a successful response into out. Failed
// requests are returned as *api.Error.
func (c *HTTPclient) do(method string, jsonBody, out any, urlPath string) error {
	return c.doWithHeader(method, nil, jsonBody, out, urlPath)
}

func (c *HTTPclient) doWithHeader(method string, header http.Header, jsonBody, out any, urlPath string) error {
	data, code, err := c.RequestWithHeader(method, header, jsonBody, nil, urlPath)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		var apiErr struct {
			Err  string `json:"error"`
			Code int    `json:"code"`
		}
		if err := json.Unmarshal(data, &apiErr); err != nil {
			return fmt.Errorf("request failed with status %d: %s", code, bytes.TrimSpace(data))
		}
		return &api.Error{Err: fmt.Errorf("%s", apiErr.Err), Code: apiErr.Code, HTTPstatus: code}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// Ping checks the node is up.
func (c *HTTPclient) Ping() error {
	return c.do(http.MethodGet, nil, nil, api.PingEndpoint)
}

// Info returns the public parameters of the node cluster.
func (c *HTTPclient) Info() (*mpc.Info, error) {
	info := &mpc.Info{}
	return info, c.do(http.MethodGet, nil, info, api.InfoEndpoint)
}

// NewPoll creates a poll and returns its keys and the authority token
// required to read its result. The token cannot be retrieved again.
func (c *HTTPclient) NewPoll(question string) (*mpc.PoolKeys, types.HexBytes, error) {
	resp := &api.NewPollResponse{}
	if err := c.do(http.MethodPost, &api.NewPollRequest{Question: question}, resp, api.PollsEndpoint); err != nil {
		return nil, nil, err
	}
	return &resp.Keys, resp.AuthorityToken, nil
}

// Poll returns the state of a poll.
func (c *HTTPclient) Poll(pollID types.PollID) (*api.PollResponse, error) {
	resp := &api.PollResponse{}
	return resp, c.do(http.MethodGet, nil, resp, api.EndpointWithParam(api.PollEndpoint, api.PollURLParam, pollID.String()))
}

// Keys returns the keys ballots of a poll are sealed with. The keys are
// checked against their fingerprint.
func (c *HTTPclient) Keys(pollID types.PollID) (*mpc.PoolKeys, error) {
	keys := &mpc.PoolKeys{}
	if err := c.do(http.MethodGet, nil, keys, api.EndpointWithParam(api.PollKeysEndpoint, api.PollURLParam, pollID.String())); err != nil {
		return nil, err
	}
	if err := keys.Validate(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Vote seals choice with keys and submits the ballot. It returns the ballot
// ID.
func (c *HTTPclient) Vote(keys *mpc.PoolKeys, choice bool) (types.HexBytes, error) {
	ballot, err := tally.SealBallot(*keys, tally.Ballot{Choice: choice})
	if err != nil {
		return nil, err
	}
	data, err := ballot.Bytes()
	if err != nil {
		return nil, err
	}
	resp := &api.BallotResponse{}
	endpoint := api.EndpointWithParam(api.BallotsEndpoint, api.PollURLParam, keys.PollID.String())
	if err := c.do(http.MethodPost, &api.BallotRequest{Ballot: data}, resp, endpoint); err != nil {
		return nil, err
	}
	return resp.BallotID, nil
}

// BallotStatus returns whether a ballot is queued or counted.
func (c *HTTPclient) BallotStatus(pollID types.PollID, ballotID types.HexBytes) (sequencer.BallotStatus, error) {
	endpoint := api.EndpointWithParam(api.BallotStatusEndpoint, api.PollURLParam, pollID.String())
	endpoint = api.EndpointWithParam(endpoint, api.BallotIDURLParam, ballotID.String())
	resp := &api.BallotStatusResponse{}
	if err := c.do(http.MethodGet, nil, resp, endpoint); err != nil {
		return sequencer.BallotStatusUnknown, err
	}
	return resp.Status, nil
}

// Result reveals whether yes leads in the current tally of a poll. token is
// the authority token returned by NewPoll.
func (c *HTTPclient) Result(pollID types.PollID, token types.HexBytes) (*api.ResultResponse, error) {
	header := http.Header{}
	header.Set(api.AuthorizationHeader, "Bearer "+token.String())
	resp := &api.ResultResponse{}
	endpoint := api.EndpointWithParam(api.ResultEndpoint, api.PollURLParam, pollID.String())
	return resp, c.doWithHeader(http.MethodGet, header, nil, resp, endpoint)
}
