// Package orchestrate reconciles the remote transfer list against local
// download state once per tick. Ticker-driven, one tick at a time, the same
// shape as internal/services/transfer's periodicRecovery ticker —
// generalized here since there is no database to recover from: the
// in-flight set lives only in the download Service's memory and does not
// survive a restart.
package orchestrate

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/putioarr/bridge/internal/domain"
	"github.com/putioarr/bridge/internal/putioerr"
)

// TransferLister lists remote transfers.
type TransferLister interface {
	ListTransfers(ctx context.Context) ([]domain.RemoteTransfer, error)
}

// Expander produces the download targets for a single downloadable transfer.
type Expander interface {
	Expand(ctx context.Context, transfer *domain.RemoteTransfer) ([]domain.DownloadTarget, error)
}

// Downloader is the subset of download.Service the orchestrator drives.
type Downloader interface {
	Enqueue(transferID int64, transferHash, topLevelPath string, targets []domain.DownloadTarget)
	InFlight(transferHash string) bool
}

// ExpanderFunc adapts a plain function to the Expander interface.
type ExpanderFunc func(ctx context.Context, transfer *domain.RemoteTransfer) ([]domain.DownloadTarget, error)

func (f ExpanderFunc) Expand(ctx context.Context, transfer *domain.RemoteTransfer) ([]domain.DownloadTarget, error) {
	return f(ctx, transfer)
}

// Orchestrator owns the reconciliation ticker.
type Orchestrator struct {
	lister     TransferLister
	expander   Expander
	downloader Downloader

	pollInterval time.Duration
	poolSize     int

	halted bool

	cancel context.CancelFunc
	done   chan struct{}
}

// New builds an Orchestrator. poolSize bounds the concurrent expansion
// goroutines per tick.
func New(lister TransferLister, expander Expander, downloader Downloader, pollInterval time.Duration, poolSize int) *Orchestrator {
	return &Orchestrator{
		lister:       lister,
		expander:     expander,
		downloader:   downloader,
		pollInterval: pollInterval,
		poolSize:     poolSize,
		done:         make(chan struct{}),
	}
}

// Start launches the ticker goroutine. It returns immediately.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	go func() {
		defer close(o.done)
		ticker := time.NewTicker(o.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.tick(ctx)
			}
		}
	}()

	log.Info().Dur("interval", o.pollInterval).Int("workers", o.poolSize).Msg("[ORCHESTRATOR] started")
}

// Stop cancels the ticker goroutine and waits for the in-flight tick, if
// any, to finish.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	<-o.done
	log.Info().Msg("[ORCHESTRATOR] stopped")
}

// Halted reports whether a fatal auth error has stopped future ticks — the
// RPC server keeps serving even while halted.
func (o *Orchestrator) Halted() bool {
	return o.halted
}

func (o *Orchestrator) tick(ctx context.Context) {
	if o.halted {
		return
	}

	transfers, err := o.lister.ListTransfers(ctx)
	if err != nil {
		if putioerr.IsAuth(err) {
			log.Error().Err(err).Msg("[ORCHESTRATOR] auth failure, halting future ticks")
			o.halted = true
			return
		}
		log.Warn().Err(err).Msg("[ORCHESTRATOR] failed to list transfers, will retry next tick")
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.poolSize)

	for i := range transfers {
		t := transfers[i]
		g.Go(func() error {
			o.reconcileOne(gctx, &t)
			return nil
		})
	}
	_ = g.Wait()
}

func (o *Orchestrator) reconcileOne(ctx context.Context, t *domain.RemoteTransfer) {
	hash := t.HashOrEmpty()

	// A transfer reaching COMPLETED is not deleted here — it still needs
	// expanding and downloading. Deletion happens once the download pool
	// finishes every target (see download.Service's finishTarget).
	if !t.IsDownloadable() {
		return
	}

	if o.downloader.InFlight(hash) {
		return
	}

	targets, err := o.expander.Expand(ctx, t)
	if err != nil {
		if putioerr.IsAuth(err) {
			log.Error().Err(err).Msg("[ORCHESTRATOR] auth failure during expansion, halting future ticks")
			o.halted = true
			return
		}
		log.Warn().Err(err).Str("hash", hash).Msg("[ORCHESTRATOR] failed to expand transfer")
		return
	}

	var topLevel string
	for _, target := range targets {
		if target.TopLevel {
			topLevel = target.To
			break
		}
	}

	log.Info().Str("hash", hash).Str("name", t.NameOrUnknown()).Int("targets", len(targets)).
		Msg("[ORCHESTRATOR] enqueueing transfer for download")
	o.downloader.Enqueue(t.ID, hash, topLevel, targets)
}
