package main

import (
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/davinci-tally/config"
	"github.com/vocdoni/davinci-tally/db"
)

func validTestConfig() *Config {
	return &Config{
		API:     APIConfig{Host: defaultAPIHost, Port: defaultAPIPort},
		Cluster: ClusterConfig{Nodes: config.DefaultNodes, Threshold: config.DefaultThreshold},
		DB:      DBConfig{Type: config.DefaultDBType, Period: config.DefaultProcessPeriod},
		Datadir: "/tmp/tally",
	}
}

func TestDefaultBackendIsNotPersistent(t *testing.T) {
	c := qt.New(t)
	cfg := validTestConfig()
	c.Assert(cfg.DB.Type, qt.Equals, db.TypeInMem)
	c.Assert(persistentDB(cfg), qt.IsFalse)
	c.Assert(validateConfig(cfg), qt.IsNil)

	for _, typ := range []string{db.TypePebble, db.TypeLevelDB, db.TypeMongo} {
		cfg.DB.Type = typ
		c.Assert(persistentDB(cfg), qt.IsTrue, qt.Commentf("type %s", typ))
		c.Assert(validateConfig(cfg), qt.IsNil)
	}
}

func TestValidateConfig(t *testing.T) {
	c := qt.New(t)

	cfg := validTestConfig()
	cfg.DB.Type = "sqlite"
	c.Assert(validateConfig(cfg), qt.ErrorMatches, "invalid database type sqlite.*")

	cfg = validTestConfig()
	cfg.Cluster.Nodes = 0
	c.Assert(validateConfig(cfg), qt.ErrorMatches, "cluster needs at least one node, got 0")

	cfg = validTestConfig()
	cfg.Cluster.Threshold = cfg.Cluster.Nodes + 1
	c.Assert(validateConfig(cfg), qt.ErrorMatches, "invalid threshold .*")
	cfg.Cluster.Threshold = 0
	c.Assert(validateConfig(cfg), qt.ErrorMatches, "invalid threshold .*")

	cfg = validTestConfig()
	cfg.API.Port = 70000
	c.Assert(validateConfig(cfg), qt.ErrorMatches, "invalid API port 70000")
}

func TestDBPath(t *testing.T) {
	c := qt.New(t)
	cfg := validTestConfig()
	cfg.DB.Type = db.TypePebble
	c.Assert(dbPath(cfg), qt.Equals, filepath.Join("/tmp/tally", "db"))
	cfg.DB.Type = db.TypeMongo
	c.Assert(dbPath(cfg), qt.Equals, mongoDBName)
}
