// Package target expands a RemoteTransfer's remote file tree into the flat
// ordered list of DownloadTarget values the download worker pool consumes.
// Grounded on the recursive remote-tree walk shape of
// internal/services/dirscan, rewritten around one ListFiles call per remote
// directory instead of fs.WalkDir.
package target

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/putioarr/bridge/internal/domain"
	"github.com/putioarr/bridge/internal/putio"
	"github.com/putioarr/bridge/pkg/pathcmp"
)

// FileLister is the subset of putio.Client the expander needs — narrowed so
// tests can substitute a fake without standing up an HTTP server. It
// returns parentID's own file entry alongside its children so callers can
// tell an empty directory apart from a single file by content type rather
// than by guessing from an empty child list.
type FileLister interface {
	ListFiles(ctx context.Context, parentID int64) ([]putio.File, putio.File, error)
}

// Expand walks the remote file tree rooted at transfer's top-level file,
// pruning every directory whose name contains an entry of skipDirs
// (case-sensitive substring match) together with its subtree; file names
// are not matched against skipDirs. Paths are joined
// under destRoot with pathcmp. Exactly one returned target has TopLevel
// set — the root entry itself.
func Expand(ctx context.Context, lister FileLister, skipDirs []string, destRoot string, transfer *domain.RemoteTransfer) ([]domain.DownloadTarget, error) {
	if !transfer.IsDownloadable() {
		return nil, fmt.Errorf("transfer %d has no file_id, not ready to expand", transfer.ID)
	}

	root := pathcmp.NormalizePath(path.Join(destRoot, transfer.NameOrUnknown()))

	rootFiles, parent, err := lister.ListFiles(ctx, *transfer.FileID)
	if err != nil {
		// The top-level ID may itself name a plain file rather than a
		// directory; callers with a single-file transfer still need one
		// target. Surface the error — the orchestrator decides whether to
		// retry based on its classification.
		return nil, fmt.Errorf("listing files for transfer %d: %w", transfer.ID, err)
	}

	var targets []domain.DownloadTarget
	if !parent.IsDirectory() {
		// The top-level file ID names a plain file, not a directory:
		// a true single-file transfer.
		targets = append(targets, domain.DownloadTarget{
			FromFileID:   *transfer.FileID,
			To:           root,
			Kind:         domain.TargetFile,
			TopLevel:     true,
			TransferHash: transfer.HashOrEmpty(),
		})
		return targets, nil
	}

	// The top-level ID is a directory — possibly with zero children, in
	// which case the lone directory target below is all there is to
	// download.
	targets = append(targets, domain.DownloadTarget{
		To:           root,
		Kind:         domain.TargetDirectory,
		TopLevel:     true,
		TransferHash: transfer.HashOrEmpty(),
	})

	if err := walk(ctx, lister, skipDirs, root, rootFiles, transfer.HashOrEmpty(), &targets); err != nil {
		return nil, err
	}
	return targets, nil
}

func walk(ctx context.Context, lister FileLister, skipDirs []string, parentPath string, files []putio.File, hash string, out *[]domain.DownloadTarget) error {
	for _, f := range files {
		if f.IsDirectory() && skipped(skipDirs, f.Name) {
			continue
		}

		childPath := pathcmp.NormalizePath(path.Join(parentPath, f.Name))

		if f.IsDirectory() {
			*out = append(*out, domain.DownloadTarget{
				To:           childPath,
				Kind:         domain.TargetDirectory,
				TransferHash: hash,
			})
			children, _, err := lister.ListFiles(ctx, f.ID)
			if err != nil {
				return fmt.Errorf("listing files under %d (%s): %w", f.ID, f.Name, err)
			}
			if err := walk(ctx, lister, skipDirs, childPath, children, hash, out); err != nil {
				return err
			}
			continue
		}

		*out = append(*out, domain.DownloadTarget{
			FromFileID:   f.ID,
			To:           childPath,
			Kind:         domain.TargetFile,
			TransferHash: hash,
		})
	}
	return nil
}

func skipped(skipDirs []string, name string) bool {
	for _, s := range skipDirs {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}
