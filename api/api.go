package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vocdoni/davinci-tally/log"
	"github.com/vocdoni/davinci-tally/sequencer"
)

const (
	maxRequestBodyLog = 512 // Maximum length of request body to log
	maxRequestBody    = 1 << 20
	shutdownTimeout   = 10 * time.Second
)

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Host      string
	Port      int
	Sequencer *sequencer.Sequencer
}

// API type represents the API HTTP server of the tally node.
type API struct {
	router *chi.Mux
	seq    *sequencer.Sequencer
	server *http.Server
}

// New creates a new API instance with the given configuration. The HTTP
// server is not started until Start is called.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Sequencer == nil {
		return nil, fmt.Errorf("missing sequencer instance")
	}
	a := &API{seq: conf.Sequencer}
	a.initRouter()
	a.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", conf.Host, conf.Port),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// Start serves the API in the background. A server that cannot listen is
// fatal.
func (a *API) Start() {
	go func() {
		log.Infow("starting API server", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
}

// Stop gracefully shuts the server down.
func (a *API) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.server.Shutdown(ctx)
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the HTTP handlers for the API endpoints.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", InfoEndpoint, "method", "GET")
	a.router.Get(InfoEndpoint, a.info)
	// poll endpoints
	log.Infow("register handler", "endpoint", PollsEndpoint, "method", "POST")
	a.router.Post(PollsEndpoint, a.newPoll)
	log.Infow("register handler", "endpoint", PollsEndpoint, "method", "GET")
	a.router.Get(PollsEndpoint, a.listPolls)
	log.Infow("register handler", "endpoint", PollEndpoint, "method", "GET")
	a.router.With(pollIDMiddleware).Get(PollEndpoint, a.poll)
	log.Infow("register handler", "endpoint", PollKeysEndpoint, "method", "GET")
	a.router.With(pollIDMiddleware).Get(PollKeysEndpoint, a.pollKeys)
	log.Infow("register handler", "endpoint", ResultEndpoint, "method", "GET")
	a.router.With(pollIDMiddleware).Get(ResultEndpoint, a.result)
	// ballot endpoints
	log.Infow("register handler", "endpoint", BallotsEndpoint, "method", "POST")
	a.router.With(pollIDMiddleware).Post(BallotsEndpoint, a.newBallot)
	log.Infow("register handler", "endpoint", BallotStatusEndpoint, "method", "GET")
	a.router.With(pollIDMiddleware).Get(BallotStatusEndpoint, a.ballotStatus)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	a.router.Use(loggingMiddleware(maxRequestBodyLog))
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))
	a.router.Use(middleware.RequestSize(maxRequestBody))
	a.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrResourceNotFound.Write(w)
	})

	a.registerHandlers()
}
