// Package config holds the defaults of the davinci-tally node.
package config

import (
	"time"

	"github.com/vocdoni/davinci-tally/db"
	"github.com/vocdoni/davinci-tally/mpc"
)

const (
	// DefaultNodes is the number of in-process key holders.
	DefaultNodes = 5
	// DefaultThreshold is the number of key holders needed to reveal.
	DefaultThreshold = 3
	// DefaultRevealWindow bounds |yes - no| for a reveal.
	DefaultRevealWindow = mpc.DefaultRevealWindow
	// DefaultCurve is the curve of the threshold key.
	DefaultCurve = mpc.DefaultCurve
	// DefaultDBType is the storage backend. Cluster key shares only live in
	// memory, so polls stored by a persistent backend can be listed after a
	// restart but not revealed.
	DefaultDBType = db.TypeInMem
	// DefaultProcessPeriod is how often queued ballots are applied.
	DefaultProcessPeriod = 2 * time.Second
)

// AvailableDBTypes lists the storage backends the node can run on.
var AvailableDBTypes = []string{
	db.TypePebble,
	db.TypeLevelDB,
	db.TypeMongo,
	db.TypeInMem,
}
