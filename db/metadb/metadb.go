// Package metadb opens a db.Database by backend type.
package metadb

import (
	"fmt"
	"testing"

	"github.com/vocdoni/davinci-tally/db"
	"github.com/vocdoni/davinci-tally/db/inmemory"
	"github.com/vocdoni/davinci-tally/db/leveldb"
	"github.com/vocdoni/davinci-tally/db/mongodb"
	"github.com/vocdoni/davinci-tally/db/pebbledb"
)

// New opens the database of type typ at dir. For mongodb dir is the database
// name.
func New(typ, dir string) (db.Database, error) {
	opts := db.Options{Path: dir}
	switch typ {
	case db.TypePebble:
		return pebbledb.New(opts)
	case db.TypeLevelDB:
		return leveldb.New(opts)
	case db.TypeInMem:
		return inmemory.New(opts)
	case db.TypeMongo:
		return mongodb.New(opts)
	default:
		return nil, fmt.Errorf("unknown database type %q", typ)
	}
}

// ForTest returns a pebble database in a temporary directory that is closed
// when the test ends.
func ForTest(tb testing.TB) db.Database {
	tb.Helper()
	database, err := New(db.TypePebble, tb.TempDir())
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() {
		if err := database.Close(); err != nil {
			tb.Error(err)
		}
	})
	return database
}
