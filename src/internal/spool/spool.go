package spool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"logspool/src/internal/access"
	"logspool/src/internal/buffer"

	"github.com/lixenwraith/log"
	"golang.org/x/time/rate"
)

// FlushPeriod is the fixed flush cadence. Each tick drains the buffer up
// to the current time and hands the batch to the delivery client.
const FlushPeriod = time.Second

// Deliverer is the contract the spool requires from a delivery client.
// Sends must be bounded; the spool depends on no acknowledgment or retry
// behavior.
type Deliverer interface {
	// SendBatch sends an ordered batch of lines. A zero-length batch
	// is a no-op.
	SendBatch(lines []string) error

	// SendError sends a single error line outside the batch cadence.
	SendError(line string) error
}

// Spool is the access-event logging sink: it converts completed-request
// timings into lines, buffers them keyed by acceptance time, and flushes
// the buffer as a batch once per period. One instance is shared by all
// request-handling producers and owned by whoever started it; there is
// no process-global registry.
type Spool struct {
	buf    *buffer.Buffer
	client Deliverer
	logger *log.Logger

	// Throttles diagnostic logging on the hot reject/failure paths so a
	// flood of bad events cannot flood the diagnostic channel.
	diag *rate.Limiter

	done      chan struct{}
	wg        sync.WaitGroup
	startTime time.Time

	// Statistics
	totalRecorded atomic.Uint64
	totalRejected atomic.Uint64
	totalErrors   atomic.Uint64
	totalFlushed  atomic.Uint64
	totalBatches  atomic.Uint64
	failedBatches atomic.Uint64
	lastFlush     atomic.Value // time.Time
}

// New creates a spool that delivers through client. Diagnostic output
// goes to logger, never to the collector.
func New(client Deliverer, logger *log.Logger) *Spool {
	s := &Spool{
		buf:       buffer.New(),
		client:    client,
		logger:    logger,
		diag:      rate.NewLimiter(rate.Every(time.Second), 10),
		done:      make(chan struct{}),
		startTime: time.Now(),
	}
	s.lastFlush.Store(time.Time{})
	return s
}

// Record accepts one completed-request event. It is the only touchpoint
// on the request path: it never blocks on a flush and never surfaces an
// error to the caller. A malformed event (missing timestamp) is rejected,
// counted, and reported on the diagnostic channel.
func (s *Spool) Record(t access.Timings, m access.Meta) {
	ev, err := access.Compute(t, m)
	if err != nil {
		s.totalRejected.Add(1)
		if s.diag.Allow() {
			s.logger.Warn("msg", "Rejected access event",
				"component", "spool",
				"peer", m.Peer,
				"error", err)
		}
		return
	}

	s.buf.Insert(ev.Line())
	s.totalRecorded.Add(1)
}

// RecordError forwards an exceptional request outcome directly to the
// collector at err severity, bypassing the buffer. Best-effort like
// everything else here.
func (s *Spool) RecordError(peer, method, path string, err error) {
	s.totalErrors.Add(1)
	if sendErr := s.client.SendError(access.ErrorLine(peer, method, path, err)); sendErr != nil {
		if s.diag.Allow() {
			s.logger.Debug("msg", "Failed to send error line",
				"component", "spool",
				"error", sendErr)
		}
	}
}

// Start begins the periodic flush schedule.
func (s *Spool) Start(ctx context.Context) error {
	s.wg.Add(1)
	go s.flushLoop(ctx)

	s.logger.Info("msg", "Spool started",
		"component", "spool",
		"flush_period", FlushPeriod)
	return nil
}

// Stop halts the flush schedule. Entries still buffered are abandoned:
// delivery is best-effort and no flush-on-shutdown guarantee is made.
func (s *Spool) Stop() {
	close(s.done)
	s.wg.Wait()

	s.logger.Info("msg", "Spool stopped",
		"component", "spool",
		"total_flushed", s.totalFlushed.Load(),
		"failed_batches", s.failedBatches.Load(),
		"abandoned_entries", s.buf.Size())
}

// flushLoop runs one flush per tick. A single goroutine owns the ticker,
// so drains never overlap; if a flush outlasts the period the ticker
// drops the intervening tick rather than running two drains in parallel.
func (s *Spool) flushLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(FlushPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.flush()
		}
	}
}

// flush drains everything accepted up to now and sends it as one batch.
// The threshold is read once per tick; entries whose key the tie-breaker
// pushed ahead of the clock stay buffered until their time arrives.
func (s *Spool) flush() {
	now := time.Now().UnixMicro()
	entries := s.buf.DrainUpTo(now)
	if len(entries) == 0 {
		return
	}

	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Line
	}

	s.totalBatches.Add(1)
	s.totalFlushed.Add(uint64(len(lines)))
	s.lastFlush.Store(time.Now())

	// A failed batch is dropped, never re-buffered; the next tick
	// proceeds normally.
	if err := s.client.SendBatch(lines); err != nil {
		s.failedBatches.Add(1)
		if s.diag.Allow() {
			s.logger.Debug("msg", "Batch delivery failed",
				"component", "spool",
				"batch_size", len(lines),
				"error", err)
		}
	}
}

// Size returns the number of buffered, not-yet-flushed entries.
func (s *Spool) Size() int {
	return s.buf.Size()
}

// Stats contains spool counters.
type Stats struct {
	StartTime     time.Time
	Pending       int
	TotalRecorded uint64
	TotalRejected uint64
	TotalErrors   uint64
	TotalFlushed  uint64
	TotalBatches  uint64
	FailedBatches uint64
	LastFlush     time.Time
}

// GetStats returns spool statistics.
func (s *Spool) GetStats() Stats {
	lastFlush, _ := s.lastFlush.Load().(time.Time)
	return Stats{
		StartTime:     s.startTime,
		Pending:       s.buf.Size(),
		TotalRecorded: s.totalRecorded.Load(),
		TotalRejected: s.totalRejected.Load(),
		TotalErrors:   s.totalErrors.Load(),
		TotalFlushed:  s.totalFlushed.Load(),
		TotalBatches:  s.totalBatches.Load(),
		FailedBatches: s.failedBatches.Load(),
		LastFlush:     lastFlush,
	}
}
