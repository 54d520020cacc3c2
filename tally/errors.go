package tally

import "github.com/vocdoni/davinci-tally/mpc"

// Errors returned by the engine. They are the substrate's sentinels, so
// errors.Is works the same whichever layer detected the problem.
var (
	ErrContext             = mpc.ErrContext
	ErrDomainMismatch      = mpc.ErrDomainMismatch
	ErrMalformedCiphertext = mpc.ErrMalformedCiphertext
	ErrRevealWindow        = mpc.ErrRevealWindow
)
