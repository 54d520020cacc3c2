package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/vocdoni/davinci-tally/api"
	"github.com/vocdoni/davinci-tally/log"
	"github.com/vocdoni/davinci-tally/sequencer"
)

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	seq  *sequencer.Sequencer
	API  *api.API
	mu   sync.Mutex
	host string
	port int
}

// NewAPI creates a new APIService instance.
func NewAPI(seq *sequencer.Sequencer, host string, port int, disableLogging bool) *APIService {
	if disableLogging {
		api.DisabledLogging = disableLogging
		log.Debugw("API logging is disabled")
	}
	return &APIService{
		seq:  seq,
		host: host,
		port: port,
	}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(_ context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.API != nil {
		return fmt.Errorf("service already running")
	}
	a, err := api.New(&api.APIConfig{
		Host:      as.host,
		Port:      as.port,
		Sequencer: as.seq,
	})
	if err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	a.Start()
	as.API = a
	return nil
}

// Stop halts the API server.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.API == nil {
		return
	}
	if err := as.API.Stop(); err != nil {
		log.Warnw("failed to stop API server", "error", err)
	}
	as.API = nil
}

// HostPort returns the host and port of the API server.
func (as *APIService) HostPort() (string, int) {
	return as.host, as.port
}
