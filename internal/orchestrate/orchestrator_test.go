package orchestrate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/putioarr/bridge/internal/domain"
	"github.com/putioarr/bridge/internal/putioerr"
)

type fakeLister struct {
	mu        sync.Mutex
	transfers []domain.RemoteTransfer
	err       error
	calls     int
}

func (f *fakeLister) ListTransfers(_ context.Context) ([]domain.RemoteTransfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.transfers, f.err
}

type fakeExpander struct {
	targets []domain.DownloadTarget
	err     error
}

func (f *fakeExpander) Expand(_ context.Context, _ *domain.RemoteTransfer) ([]domain.DownloadTarget, error) {
	return f.targets, f.err
}

type fakeDownloader struct {
	mu       sync.Mutex
	enqueued []string
	inFlight map[string]bool
}

func (f *fakeDownloader) Enqueue(_ int64, transferHash, _ string, _ []domain.DownloadTarget) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, transferHash)
}

func (f *fakeDownloader) InFlight(hash string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight[hash]
}

func ptr[T any](v T) *T { return &v }

func TestTickDoesNotDeleteCompletedTransferDirectly(t *testing.T) {
	// status:"COMPLETED", file_id present must be expanded and enqueued for
	// download, not deleted on the tick that first observes it. Deletion
	// happens only once download.Service has finished every target.
	lister := &fakeLister{transfers: []domain.RemoteTransfer{
		{ID: 5, Status: domain.StatusCompleted, Hash: ptr("h5"), FileID: ptr(int64(42))},
	}}
	expander := &fakeExpander{targets: []domain.DownloadTarget{{To: "/x", TopLevel: true}}}
	downloader := &fakeDownloader{inFlight: map[string]bool{}}

	o := New(lister, expander, downloader, time.Hour, 2)
	o.tick(context.Background())

	assert.Equal(t, []string{"h5"}, downloader.enqueued)
}

func TestTickSkipsCompletedTransferWithoutFileID(t *testing.T) {
	lister := &fakeLister{transfers: []domain.RemoteTransfer{
		{ID: 5, Status: domain.StatusCompleted, Hash: ptr("h5")},
	}}
	expander := &fakeExpander{}
	downloader := &fakeDownloader{inFlight: map[string]bool{}}

	o := New(lister, expander, downloader, time.Hour, 2)
	o.tick(context.Background())

	assert.Empty(t, downloader.enqueued)
}

func TestTickEnqueuesDownloadableNonInflightTransfer(t *testing.T) {
	lister := &fakeLister{transfers: []domain.RemoteTransfer{
		{ID: 1, Status: domain.StatusDownloading, Hash: ptr("h1"), FileID: ptr(int64(100))},
	}}
	expander := &fakeExpander{targets: []domain.DownloadTarget{{To: "/x", TopLevel: true}}}
	downloader := &fakeDownloader{inFlight: map[string]bool{}}

	o := New(lister, expander, downloader, time.Hour, 2)
	o.tick(context.Background())

	assert.Equal(t, []string{"h1"}, downloader.enqueued)
}

func TestTickSkipsInflightTransfer(t *testing.T) {
	lister := &fakeLister{transfers: []domain.RemoteTransfer{
		{ID: 1, Status: domain.StatusDownloading, Hash: ptr("h1"), FileID: ptr(int64(100))},
	}}
	expander := &fakeExpander{}
	downloader := &fakeDownloader{inFlight: map[string]bool{"h1": true}}

	o := New(lister, expander, downloader, time.Hour, 2)
	o.tick(context.Background())

	assert.Empty(t, downloader.enqueued)
}

func TestTickHaltsOnAuthError(t *testing.T) {
	lister := &fakeLister{err: putioerr.Auth(401, assertErr())}
	expander := &fakeExpander{}
	downloader := &fakeDownloader{inFlight: map[string]bool{}}

	o := New(lister, expander, downloader, time.Hour, 2)
	require.False(t, o.Halted())
	o.tick(context.Background())
	assert.True(t, o.Halted())

	// A halted orchestrator must not list again on the next tick.
	before := lister.calls
	o.tick(context.Background())
	assert.Equal(t, before, lister.calls)
}

func assertErr() error {
	return context.DeadlineExceeded
}
