package recall

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gridmind/iso/pkg/turn"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultMaxAttempts       = 3
	defaultRetryBackoff      = 500 * time.Millisecond
)

// IndexerConfig is the configuration options for the background indexer.
type IndexerConfig struct {
	// Store is the recall store jobs are indexed into.
	Store *Store

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// MaxAttempts bounds retries for transient embed failures (defaults to 3).
	MaxAttempts int

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Indexer embeds and indexes committed turns asynchronously via a worker
// pool, decoupling the semantic index from the turn commit hot path.
type Indexer struct {
	store       *Store
	queue       chan *turn.Turn
	maxAttempts int
	wg          sync.WaitGroup
	logger      *zap.Logger
}

// NewIndexer creates an Indexer and starts its worker goroutines.
func NewIndexer(c *IndexerConfig) (*Indexer, error) {
	if c.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	idx := &Indexer{
		store:       c.Store,
		queue:       make(chan *turn.Turn, c.QueueSize),
		maxAttempts: c.MaxAttempts,
		logger:      c.Logger,
	}

	idx.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go idx.worker(i)
	}

	return idx, nil
}

// Enqueue submits a committed turn for background indexing.
// Returns true if enqueued, false if the queue is full, resulting in the turn
// being dropped from the semantic index (the chronicle retains it).
func (idx *Indexer) Enqueue(t *turn.Turn) bool {
	select {
	case idx.queue <- t:
		idx.logger.Debug("turn queued for indexing",
			zap.String("doc_id", t.DocumentID()),
		)
		return true
	default:
		idx.logger.Error("turn not queued, queue full, turn dropped",
			zap.String("doc_id", t.DocumentID()),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after turn processing has stopped.
func (idx *Indexer) Close() {
	close(idx.queue)
	idx.wg.Wait()
}

// worker is the inner worker thread that continuously pulls turns off the queue
func (idx *Indexer) worker(id uint) {
	defer idx.wg.Done()
	idx.logger.Debug("indexer worker started", zap.Uint("worker_id", id))

	for t := range idx.queue {
		idx.processTurn(t)
	}

	idx.logger.Debug("indexer worker stopped", zap.Uint("worker_id", id))
}

// processTurn indexes one turn, retrying transient embed failures with
// backoff. Errors are logged but never propagated: a turn missing from the
// semantic index only degrades recall.
func (idx *Indexer) processTurn(t *turn.Turn) {
	ctx := context.Background()

	var err error
	for attempt := 1; attempt <= idx.maxAttempts; attempt++ {
		err = idx.store.Index(ctx, t)
		if err == nil {
			return
		}

		// Only embed failures are worth retrying; a store write failure
		// repeats deterministically.
		if !errors.Is(err, ErrEmbed) || attempt == idx.maxAttempts {
			break
		}

		idx.logger.Warn("embedding failed, retrying",
			zap.String("doc_id", t.DocumentID()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		time.Sleep(defaultRetryBackoff * time.Duration(attempt))
	}

	idx.logger.Error("async turn indexing failed",
		zap.String("doc_id", t.DocumentID()),
		zap.Error(err),
	)
}
