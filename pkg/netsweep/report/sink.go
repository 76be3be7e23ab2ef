package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// DefaultMongoDatabase is used when no database name is configured.
	DefaultMongoDatabase = "network_scans"
	// DefaultMongoCollection is used when no collection name is configured.
	DefaultMongoCollection = "scans"
)

// historyMode is the permission of a newly created history file.
const historyMode os.FileMode = 0o644

// ErrCorruptHistory is returned when the history file is not a JSON array.
var ErrCorruptHistory = errors.New("history file is not a JSON array")

// DebugLogger is a callback for debug logging.
var DebugLogger func(format string, args ...interface{})

func debugLog(format string, args ...interface{}) {
	if DebugLogger != nil {
		DebugLogger(format, args...)
	}
}

// Sink persists scan records.
type Sink interface {
	Name() string
	Save(ctx context.Context, rec *ScanRecord) error
	Close(ctx context.Context) error
}

// FileSink keeps a JSON array of scan records in a file and appends one per run.
type FileSink struct {
	Path string
}

// NewFileSink returns a sink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{Path: path}
}

// Name implements Sink.
func (s *FileSink) Name() string { return "file:" + s.Path }

// Save appends rec to the array stored in the file, creating it when missing.
// The file is replaced atomically.
func (s *FileSink) Save(_ context.Context, rec *ScanRecord) error {
	history, err := s.load()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode scan record: %w", err)
	}
	history = append(history, raw)

	out, err := json.MarshalIndent(history, "", Indent)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	out = append(out, '\n')

	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, ".netsweep-history-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	mode := historyMode
	if info, err := os.Stat(s.Path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod history: %w", err)
	}

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close history: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	debugLog("scan %s appended to %s (%d records)", rec.ScanID, s.Path, len(history))
	return nil
}

func (s *FileSink) load() ([]json.RawMessage, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var history []json.RawMessage
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", s.Path, ErrCorruptHistory, err)
	}
	return history, nil
}

// Close implements Sink.
func (s *FileSink) Close(context.Context) error { return nil }

// MongoSink inserts one document per run into a MongoDB collection.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoSink connects to uri. Empty db or collection names use the defaults.
func NewMongoSink(ctx context.Context, uri, db, collection string) (*MongoSink, error) {
	if db == "" {
		db = DefaultMongoDatabase
	}
	if collection == "" {
		collection = DefaultMongoCollection
	}

	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	return &MongoSink{
		client:     client,
		collection: client.Database(db).Collection(collection),
	}, nil
}

// Name implements Sink.
func (s *MongoSink) Name() string {
	return "mongodb:" + s.collection.Database().Name() + "." + s.collection.Name()
}

// Save implements Sink.
func (s *MongoSink) Save(ctx context.Context, rec *ScanRecord) error {
	if _, err := s.collection.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert scan %s: %w", rec.ScanID, err)
	}
	debugLog("scan %s inserted into %s", rec.ScanID, s.Name())
	return nil
}

// Close implements Sink.
func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
