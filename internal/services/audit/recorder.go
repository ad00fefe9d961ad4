// Package audit records anonymized gateway operations.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/unifiedui/canvas-gateway/internal/core/docdb"
	"github.com/unifiedui/canvas-gateway/internal/domain/models"
)

const (
	// DefaultBufferSize is the default number of events held in memory
	// before new events are dropped.
	DefaultBufferSize = 1000

	// DefaultWorkers is the default number of writer goroutines.
	DefaultWorkers = 2

	// insertTimeout bounds each write to the store.
	insertTimeout = 5 * time.Second
)

// Recorder records audit events.  Record never blocks the caller on I/O.
type Recorder interface {
	// Record queues event for storage.  The ID and CreatedAt fields are
	// filled when empty.
	Record(event *models.AuditEvent)

	// Ping checks the backing store.
	Ping(ctx context.Context) error

	// Close flushes queued events and stops the recorder.
	Close() error
}

// SessionRef returns the digest stored in place of a session id.
func SessionRef(sessionID string) string {
	if sessionID == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(sessionID))
	return hex.EncodeToString(sum[:8])
}

// nopRecorder discards events.
type nopRecorder struct{}

// NewNopRecorder returns a Recorder that discards every event.
func NewNopRecorder() Recorder {
	return nopRecorder{}
}

func (nopRecorder) Record(*models.AuditEvent)  {}
func (nopRecorder) Ping(context.Context) error { return nil }
func (nopRecorder) Close() error               { return nil }

// Config holds the configuration for the document store recorder.
type Config struct {
	Client     docdb.Client
	BufferSize int
	Workers    int
}

// docdbRecorder writes events to a document database in the background.
type docdbRecorder struct {
	client docdb.Client
	queue  *eventQueue
}

// NewRecorder creates a Recorder that stores events in a document database.
func NewRecorder(cfg *Config) (Recorder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("docdb client is required")
	}

	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	r := &docdbRecorder{
		client: cfg.Client,
	}
	r.queue = newEventQueue(bufferSize, r.insert)
	r.queue.start(workers)

	return r, nil
}

// Record implements Recorder.
func (r *docdbRecorder) Record(event *models.AuditEvent) {
	if event == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	if !r.queue.enqueue(event) {
		log.Warn().Str("operation", event.Operation).Msg("audit queue full, event dropped")
	}
}

// Ping implements Recorder.
func (r *docdbRecorder) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

// Close implements Recorder.
func (r *docdbRecorder) Close() error {
	r.queue.stop()
	return nil
}

// insert writes one event.
func (r *docdbRecorder) insert(ctx context.Context, event *models.AuditEvent) error {
	ctx, cancel := context.WithTimeout(ctx, insertTimeout)
	defer cancel()

	if err := r.client.AuditEvents().Insert(ctx, event); err != nil {
		log.Error().Err(err).Str("operation", event.Operation).Msg("failed to store audit event")
		return err
	}
	return nil
}
