// Package download runs the bounded worker pool that streams DownloadTarget
// values to local disk. Directly modeled on internal/services/transfer's
// Service/worker split: a buffered channel, N long-lived workers, a
// mutex-guarded in-flight map instead of a lock-free sync.Map, since
// entries here need an atomic counter decrement + removal together rather
// than independent flags.
package download

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/putioarr/bridge/internal/domain"
	"github.com/putioarr/bridge/internal/metrics"
)

// Fetcher resolves a DownloadTarget's file ID to a time-limited download
// URL. Narrowed from putio.Client so tests can substitute a fake.
type Fetcher interface {
	GetDownloadURL(ctx context.Context, fileID int64) (string, error)
}

// OnTransferComplete is invoked exactly once per transfer, after every one
// of its targets reaches a terminal state and none failed fatally.
type OnTransferComplete func(ctx context.Context, transferHash string, topLevelPath string)

// Deleter removes a transfer from the remote service once its targets are
// all downloaded. Narrowed from putio.Client so tests can substitute a fake.
type Deleter interface {
	DeleteTransfer(ctx context.Context, id int64) error
}

// Service owns the download worker pool.
type Service struct {
	fetcher Fetcher
	uid     int
	metrics *metrics.Manager
	deleter Deleter

	queue chan queuedTarget

	workerCtx    context.Context
	workerCancel context.CancelFunc
	workerWg     sync.WaitGroup
	workerCount  int

	mu       sync.Mutex
	inflight map[string]*inflightTransfer

	onComplete OnTransferComplete
}

type queuedTarget struct {
	transferID int64
	runID      string
	target     domain.DownloadTarget
	attempt    int
}

// inflightTransfer tracks how many of a transfer's targets are still
// outstanding.
type inflightTransfer struct {
	transferID int64
	remaining  int
	failed     bool
	topLevel   string
}

// New builds a Service with workerCount long-lived workers.
func New(fetcher Fetcher, uid int, workerCount int) *Service {
	return &Service{
		fetcher:     fetcher,
		uid:         uid,
		queue:       make(chan queuedTarget, 256),
		workerCount: workerCount,
		inflight:    make(map[string]*inflightTransfer),
	}
}

// Start launches the worker goroutines. ctx cancellation drains the pool.
func (s *Service) Start(ctx context.Context) {
	s.workerCtx, s.workerCancel = context.WithCancel(ctx)

	for i := 0; i < s.workerCount; i++ {
		id := i
		s.workerWg.Add(1)
		go func() {
			defer s.workerWg.Done()
			s.worker(id)
		}()
	}

	log.Info().Int("workers", s.workerCount).Msg("[DOWNLOAD] Service started")
}

// Stop cancels the worker context and waits for in-flight work to unwind.
func (s *Service) Stop() {
	if s.workerCancel != nil {
		s.workerCancel()
	}
	s.workerWg.Wait()
	log.Info().Msg("[DOWNLOAD] Service stopped")
}

// Enqueue submits a transfer's full target set as one unit. Called by the
// orchestrator once per tick for transfers not already in flight. Every
// target in the batch gets the same runID so its worker-pool log lines,
// spread across concurrent goroutines, can be correlated back to one
// Enqueue call.
func (s *Service) Enqueue(transferID int64, transferHash, topLevelPath string, targets []domain.DownloadTarget) {
	s.mu.Lock()
	if _, exists := s.inflight[transferHash]; exists {
		s.mu.Unlock()
		return
	}
	s.inflight[transferHash] = &inflightTransfer{transferID: transferID, remaining: len(targets), topLevel: topLevelPath}
	s.mu.Unlock()

	runID := uuid.NewString()
	for _, t := range targets {
		select {
		case s.queue <- queuedTarget{transferID: transferID, runID: runID, target: t}:
		case <-s.workerCtx.Done():
			return
		}
	}
}

// InFlight reports whether transferHash currently has outstanding targets —
// consumed by the orchestrator to avoid re-enqueuing.
func (s *Service) InFlight(transferHash string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[transferHash]
	return ok
}

// InFlightCount reports how many transfers currently have outstanding
// targets, consumed by internal/metrics's queue-depth collector.
func (s *Service) InFlightCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

func (s *Service) worker(id int) {
	log.Debug().Int("workerID", id).Msg("[DOWNLOAD] Worker started")
	for {
		select {
		case <-s.workerCtx.Done():
			log.Debug().Int("workerID", id).Msg("[DOWNLOAD] Worker stopping")
			return
		case qt := <-s.queue:
			s.process(qt)
		}
	}
}

const maxAttempts = 5

func (s *Service) process(qt queuedTarget) {
	ctx := s.workerCtx
	target := qt.target

	if target.Kind == domain.TargetDirectory {
		if err := ensureDir(target.To, s.uid); err != nil {
			log.Error().Err(err).Str("runID", qt.runID).Str("path", target.To).Msg("[DOWNLOAD] Failed to create directory")
			s.finishTarget(ctx, target, true)
			return
		}
		s.finishTarget(ctx, target, false)
		return
	}

	err := s.downloadFile(ctx, target)
	if err == nil {
		s.finishTarget(ctx, target, false)
		return
	}

	if isTransient(err) && qt.attempt+1 < maxAttempts {
		delay := backoffDelay(qt.attempt)
		log.Warn().Err(err).Str("runID", qt.runID).Str("path", target.To).Int("attempt", qt.attempt+1).
			Dur("delay", delay).Msg("[DOWNLOAD] Transient failure, retrying")
		time.AfterFunc(delay, func() {
			select {
			case s.queue <- queuedTarget{transferID: qt.transferID, runID: qt.runID, target: target, attempt: qt.attempt + 1}:
			case <-s.workerCtx.Done():
			}
		})
		return
	}

	log.Error().Err(err).Str("runID", qt.runID).Str("path", target.To).Msg("[DOWNLOAD] Permanent failure")
	s.finishTarget(ctx, target, true)
}

func backoffDelay(attempt int) time.Duration {
	d := time.Second * time.Duration(1<<uint(attempt))
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}

// finishTarget decrements the transfer's outstanding counter and, once it
// reaches zero, fires cleanup exactly once.
func (s *Service) finishTarget(ctx context.Context, target domain.DownloadTarget, failed bool) {
	s.mu.Lock()
	t, ok := s.inflight[target.TransferHash]
	if !ok {
		s.mu.Unlock()
		return
	}
	if failed {
		t.failed = true
	}
	t.remaining--
	done := t.remaining <= 0
	var topLevel string
	if done {
		topLevel = t.topLevel
		delete(s.inflight, target.TransferHash)
	}
	s.mu.Unlock()

	if !done {
		return
	}

	if t.failed {
		log.Warn().Str("hash", target.TransferHash).Msg("[DOWNLOAD] Transfer finished with failed targets, skipping completion")
		if s.metrics != nil {
			s.metrics.TransfersFailed.Inc()
		}
		return
	}

	log.Info().Str("hash", target.TransferHash).Str("path", topLevel).Msg("[DOWNLOAD] Transfer complete")
	if s.metrics != nil {
		s.metrics.TransfersCompleted.Inc()
	}

	if s.deleter != nil {
		if err := s.deleter.DeleteTransfer(ctx, t.transferID); err != nil {
			log.Warn().Err(err).Int64("id", t.transferID).Str("hash", target.TransferHash).
				Msg("[DOWNLOAD] failed to delete completed transfer")
		}
	}

	if s.onComplete != nil {
		s.onComplete(ctx, target.TransferHash, topLevel)
	}
}

// SetOnComplete registers the completion callback. Exposed separately from
// New so the notifier can be wired without a circular constructor
// dependency.
func (s *Service) SetOnComplete(fn OnTransferComplete) {
	s.onComplete = fn
}

// SetDeleter wires the remote-delete dependency in after construction.
// Called once a transfer's last target finishes successfully, so the
// cloud-side transfer is only removed after every byte has been fetched.
func (s *Service) SetDeleter(d Deleter) {
	s.deleter = d
}

// SetMetrics wires the metrics manager in after construction, since the
// manager's queue-depth collector needs this Service as its QueueDepther —
// a set-after pattern that avoids a constructor cycle, since the dependency
// points back at the Service itself.
func (s *Service) SetMetrics(m *metrics.Manager) {
	s.metrics = m
}
