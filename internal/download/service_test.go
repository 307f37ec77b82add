package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/putioarr/bridge/internal/domain"
)

type fakeFetcher struct {
	url string
}

func (f *fakeFetcher) GetDownloadURL(_ context.Context, _ int64) (string, error) {
	return f.url, nil
}

type fakeDeleter struct {
	mu      sync.Mutex
	deleted []int64
}

func (f *fakeDeleter) DeleteTransfer(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func TestEnqueueDownloadsAndFiresCompletion(t *testing.T) {
	content := []byte("hello world")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(content)
	}))
	defer srv.Close()

	dir := t.TempDir()
	svc := New(&fakeFetcher{url: srv.URL}, 0, 2)

	var mu sync.Mutex
	var completedHash, completedPath string
	var wg sync.WaitGroup
	wg.Add(1)
	svc.SetOnComplete(func(_ context.Context, hash, path string) {
		mu.Lock()
		completedHash, completedPath = hash, path
		mu.Unlock()
		wg.Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	topLevel := filepath.Join(dir, "movie.mkv")
	targets := []domain.DownloadTarget{
		{FromFileID: 1, To: topLevel, Kind: domain.TargetFile, TopLevel: true, TransferHash: "abc"},
	}
	svc.Enqueue(1, "abc", topLevel, targets)

	waitOrTimeout(t, &wg, 2*time.Second)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "abc", completedHash)
	assert.Equal(t, topLevel, completedPath)

	data, err := os.ReadFile(topLevel)
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestEnqueueFiresCompletionExactlyOnceForMultipleTargets(t *testing.T) {
	content := []byte("episode bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(content)
	}))
	defer srv.Close()

	dir := t.TempDir()
	svc := New(&fakeFetcher{url: srv.URL}, 0, 4)

	var mu sync.Mutex
	var completions int
	var wg sync.WaitGroup
	wg.Add(1)
	svc.SetOnComplete(func(_ context.Context, _, _ string) {
		mu.Lock()
		completions++
		mu.Unlock()
		wg.Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	topLevel := filepath.Join(dir, "season")
	targets := []domain.DownloadTarget{
		{To: topLevel, Kind: domain.TargetDirectory, TopLevel: true, TransferHash: "multi"},
		{FromFileID: 1, To: filepath.Join(topLevel, "e01.mkv"), Kind: domain.TargetFile, TransferHash: "multi"},
		{FromFileID: 2, To: filepath.Join(topLevel, "e02.mkv"), Kind: domain.TargetFile, TransferHash: "multi"},
		{FromFileID: 3, To: filepath.Join(topLevel, "e03.mkv"), Kind: domain.TargetFile, TransferHash: "multi"},
	}
	svc.Enqueue(1, "multi", topLevel, targets)

	waitOrTimeout(t, &wg, 2*time.Second)
	// give any accidental duplicate callback a chance to land before asserting
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, completions)
	assert.False(t, svc.InFlight("multi"))

	for _, name := range []string{"e01.mkv", "e02.mkv", "e03.mkv"} {
		data, err := os.ReadFile(filepath.Join(topLevel, name))
		require.NoError(t, err)
		assert.Equal(t, content, data)
	}
}

func TestFinishTargetDeletesRemoteTransferOnSuccess(t *testing.T) {
	content := []byte("hello world")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(content)
	}))
	defer srv.Close()

	dir := t.TempDir()
	svc := New(&fakeFetcher{url: srv.URL}, 0, 2)
	deleter := &fakeDeleter{}
	svc.SetDeleter(deleter)

	var wg sync.WaitGroup
	wg.Add(1)
	svc.SetOnComplete(func(context.Context, string, string) { wg.Done() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	topLevel := filepath.Join(dir, "movie.mkv")
	targets := []domain.DownloadTarget{
		{FromFileID: 1, To: topLevel, Kind: domain.TargetFile, TopLevel: true, TransferHash: "abc"},
	}
	svc.Enqueue(99, "abc", topLevel, targets)

	waitOrTimeout(t, &wg, 2*time.Second)

	deleter.mu.Lock()
	defer deleter.mu.Unlock()
	assert.Equal(t, []int64{99}, deleter.deleted)
}

func TestFinishTargetSkipsDeleteWhenATargetFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	svc := New(&fakeFetcher{url: srv.URL}, 0, 2)
	deleter := &fakeDeleter{}
	svc.SetDeleter(deleter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	topLevel := filepath.Join(dir, "movie.mkv")
	targets := []domain.DownloadTarget{
		{FromFileID: 1, To: topLevel, Kind: domain.TargetFile, TopLevel: true, TransferHash: "failcase"},
	}
	svc.Enqueue(7, "failcase", topLevel, targets)

	assert.Eventually(t, func() bool {
		return !svc.InFlight("failcase")
	}, 3*time.Second, 10*time.Millisecond)

	deleter.mu.Lock()
	defer deleter.mu.Unlock()
	assert.Empty(t, deleter.deleted)
}

func TestEnqueueSkipsAlreadyInFlightTransfer(t *testing.T) {
	svc := New(&fakeFetcher{url: "http://example.invalid"}, 0, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	dir := t.TempDir()
	targets := []domain.DownloadTarget{
		{To: filepath.Join(dir, "d"), Kind: domain.TargetDirectory, TopLevel: true, TransferHash: "dup"},
	}
	svc.Enqueue(1, "dup", dir, targets)
	assert.True(t, svc.InFlight("dup"))

	// second enqueue for the same hash should be a no-op (not block on queue)
	svc.Enqueue(1, "dup", dir, targets)
}

func waitOrTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting for completion callback")
	}
}
