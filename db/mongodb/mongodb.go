// Package mongodb implements db.Database on a mongodb collection. Keys are
// stored hex encoded in _id so that prefix scans map to an anchored regex on
// the primary index and iteration follows byte order.
package mongodb

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vocdoni/davinci-tally/db"
	"github.com/vocdoni/davinci-tally/db/internal/txbuf"
	"github.com/vocdoni/davinci-tally/log"
)

const (
	collectionName = "kv"
	opTimeout      = 10 * time.Second
	defaultURL     = "mongodb://localhost:27017"
)

type document struct {
	Key   string `bson:"_id"`
	Value []byte `bson:"v"`
}

// MongoDB stores every key as a document of a single collection.
type MongoDB struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ db.Database = (*MongoDB)(nil)

// New connects to the server at $MONGODB_URL and uses opts.Path as the
// database name.
func New(opts db.Options) (*MongoDB, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("mongodb: empty database name")
	}
	url := os.Getenv("MONGODB_URL")
	if url == "" {
		url = defaultURL
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}
	log.Debugw("connected to mongodb", "database", opts.Path)
	return &MongoDB{
		client: client,
		coll:   client.Database(opts.Path).Collection(collectionName),
	}, nil
}

func (d *MongoDB) Get(key []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	var doc document
	err := d.coll.FindOne(ctx, bson.M{"_id": hex.EncodeToString(key)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.Value, nil
}

func (d *MongoDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	filter := bson.M{}
	if len(prefix) > 0 {
		filter["_id"] = bson.M{"$regex": "^" + hex.EncodeToString(prefix)}
	}
	cur, err := d.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return err
	}
	defer func() {
		if err := cur.Close(ctx); err != nil {
			log.Warnw("failed to close mongodb cursor", "error", err)
		}
	}()
	for cur.Next(ctx) {
		var doc document
		if err := cur.Decode(&doc); err != nil {
			return err
		}
		key, err := hex.DecodeString(doc.Key)
		if err != nil {
			return fmt.Errorf("mongodb: invalid key %q: %w", doc.Key, err)
		}
		if !callback(key, doc.Value) {
			break
		}
	}
	return cur.Err()
}

// WriteTx buffers writes and sends them as one unordered bulk write on
// Commit. Concurrent transactions are not detected.
func (d *MongoDB) WriteTx() db.WriteTx {
	return &WriteTx{db: d, buf: txbuf.New()}
}

func (d *MongoDB) Compact() error {
	return nil
}

func (d *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return d.client.Disconnect(ctx)
}

// WriteTx is a buffered mongodb bulk write.
type WriteTx struct {
	db  *MongoDB
	buf *txbuf.Buffer
}

var _ db.WriteTx = (*WriteTx)(nil)

func (tx *WriteTx) Get(key []byte) ([]byte, error) {
	return tx.buf.Get(key, tx.db.Get)
}

func (tx *WriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return tx.buf.Iterate(prefix, tx.db, callback)
}

func (tx *WriteTx) Set(key, value []byte) error {
	tx.buf.Set(key, value)
	return nil
}

func (tx *WriteTx) Delete(key []byte) error {
	tx.buf.Delete(key)
	return nil
}

func (tx *WriteTx) Apply(other db.WriteTx) error {
	return db.UnwrapWriteTx(other).Iterate(nil, func(k, v []byte) bool {
		tx.buf.Set(k, v)
		return true
	})
}

func (tx *WriteTx) Commit() error {
	if tx.buf.Len() == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, tx.buf.Len())
	tx.buf.Each(func(k, v []byte, deleted bool) {
		id := hex.EncodeToString(k)
		if deleted {
			models = append(models, mongo.NewDeleteOneModel().SetFilter(bson.M{"_id": id}))
			return
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": id}).
			SetReplacement(document{Key: id, Value: v}).
			SetUpsert(true))
	})
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if _, err := tx.db.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("mongodb bulk write: %w", err)
	}
	tx.buf.Reset()
	return nil
}

func (tx *WriteTx) Discard() {
	tx.buf.Reset()
}
