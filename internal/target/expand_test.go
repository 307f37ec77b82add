package target

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/putioarr/bridge/internal/domain"
	"github.com/putioarr/bridge/internal/putio"
)

type fakeLister struct {
	children map[int64][]putio.File
	parents  map[int64]putio.File
}

func (f *fakeLister) ListFiles(_ context.Context, parentID int64) ([]putio.File, putio.File, error) {
	return f.children[parentID], f.parents[parentID], nil
}

func ptr[T any](v T) *T { return &v }

const directoryContentType = "application/x-directory"

func TestExpandSingleFileTransfer(t *testing.T) {
	lister := &fakeLister{
		children: map[int64][]putio.File{100: {}},
		parents:  map[int64]putio.File{100: {ID: 100, Name: "movie.mkv", ContentType: "video/x-matroska"}},
	}
	transfer := &domain.RemoteTransfer{ID: 1, Name: ptr("movie.mkv"), FileID: ptr(int64(100))}

	targets, err := Expand(context.Background(), lister, nil, "/downloads", transfer)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.True(t, targets[0].TopLevel)
	assert.Equal(t, domain.TargetFile, targets[0].Kind)
	assert.Equal(t, "/downloads/movie.mkv", targets[0].To)
}

func TestExpandEmptyFolderYieldsOnlyDirectoryTarget(t *testing.T) {
	lister := &fakeLister{
		children: map[int64][]putio.File{200: {}},
		parents:  map[int64]putio.File{200: {ID: 200, Name: "Empty Show", ContentType: directoryContentType}},
	}
	transfer := &domain.RemoteTransfer{ID: 2, Name: ptr("Empty Show"), FileID: ptr(int64(200))}

	targets, err := Expand(context.Background(), lister, nil, "/downloads", transfer)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.True(t, targets[0].TopLevel)
	assert.Equal(t, domain.TargetDirectory, targets[0].Kind)
	assert.Equal(t, "/downloads/Empty Show", targets[0].To)
}

func TestExpandDirectoryTransferWithNestedFiles(t *testing.T) {
	lister := &fakeLister{
		children: map[int64][]putio.File{
			1: {
				{ID: 2, Name: "Season 1", ContentType: directoryContentType},
				{ID: 3, Name: "readme.txt"},
			},
			2: {
				{ID: 4, Name: "ep1.mkv"},
				{ID: 5, Name: "sample", ContentType: directoryContentType},
			},
			5: {
				{ID: 6, Name: "sample.mkv"},
			},
		},
		parents: map[int64]putio.File{1: {ID: 1, Name: "Show", ContentType: directoryContentType}},
	}
	transfer := &domain.RemoteTransfer{ID: 1, Name: ptr("Show"), FileID: ptr(int64(1))}

	targets, err := Expand(context.Background(), lister, []string{"sample"}, "/downloads", transfer)
	require.NoError(t, err)

	topLevelCount := 0
	var paths []string
	for _, tg := range targets {
		if tg.TopLevel {
			topLevelCount++
		}
		paths = append(paths, tg.To)
	}
	assert.Equal(t, 1, topLevelCount, "exactly one top-level target")
	assert.Equal(t, "/downloads/Show", targets[0].To)
	assert.Contains(t, paths, "/downloads/Show/Season 1")
	assert.Contains(t, paths, "/downloads/Show/readme.txt")
	assert.Contains(t, paths, "/downloads/Show/Season 1/ep1.mkv")
	assert.NotContains(t, paths, "/downloads/Show/Season 1/sample/sample.mkv")
}

func TestExpandRejectsNonDownloadableTransfer(t *testing.T) {
	lister := &fakeLister{}
	transfer := &domain.RemoteTransfer{ID: 1, Name: ptr("Show")}

	_, err := Expand(context.Background(), lister, nil, "/downloads", transfer)
	require.Error(t, err)
}
