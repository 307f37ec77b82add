package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/putioarr/bridge/internal/domain"
	"github.com/putioarr/bridge/internal/putioerr"
	"github.com/putioarr/bridge/pkg/httphelpers"
)

// ensureDir creates path (and any missing parents) with mode 0755, then
// chowns the leaf to uid. A chown failure is non-fatal, matching
// downloadFile's own best-effort ownership handling below.
func ensureDir(path string, uid int) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return err
	}
	if uid > 0 {
		if err := os.Chown(path, uid, -1); err != nil {
			log.Warn().Err(err).Str("path", path).Int("uid", uid).Msg("[DOWNLOAD] chown failed")
		}
	}
	return nil
}

// downloadFile resolves target's remote URL and streams it to a .part file
// alongside the destination, then renames it into place. The destination
// directory is created first in case the parent Directory target hasn't
// finished yet.
func (s *Service) downloadFile(ctx context.Context, target domain.DownloadTarget) error {
	if err := ensureDir(filepath.Dir(target.To), s.uid); err != nil {
		return fmt.Errorf("creating parent directory for %s: %w", target.To, err)
	}

	url, err := s.fetcher.GetDownloadURL(ctx, target.FromFileID)
	if err != nil {
		return fmt.Errorf("resolving download url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building download request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return putioerr.Transient(0, err)
	}
	defer httphelpers.DrainAndClose(resp)

	if resp.StatusCode >= 400 {
		return putioerr.Classify(resp.StatusCode, fmt.Errorf("downloading %s: %s", target.To, resp.Status))
	}

	partPath := target.To + ".part"
	f, err := os.Create(partPath)
	if err != nil {
		return fmt.Errorf("creating part file %s: %w", partPath, err)
	}

	n, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil {
		os.Remove(partPath)
		return putioerr.Transient(0, fmt.Errorf("writing part file: %w", copyErr))
	}
	if s.metrics != nil {
		s.metrics.BytesDownloaded.Add(float64(n))
	}
	if closeErr != nil {
		os.Remove(partPath)
		return fmt.Errorf("closing part file: %w", closeErr)
	}

	if err := os.Rename(partPath, target.To); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", partPath, target.To, err)
	}

	if s.uid > 0 {
		if err := os.Chown(target.To, s.uid, -1); err != nil {
			// Non-fatal: the file is downloaded and usable, ownership is a
			// best-effort nicety.
			log.Warn().Err(err).Str("path", target.To).Int("uid", s.uid).Msg("[DOWNLOAD] chown failed")
		}
	}

	return nil
}

func isTransient(err error) bool {
	var pe *putioerr.Error
	if errors.As(err, &pe) {
		return pe.Kind == putioerr.KindTransient
	}
	return false
}
