// Package notify tells a media manager (Sonarr/Radarr/Whisparr) to rescan
// its download directory once a transfer finishes. Dispatch is data-driven
// — a small table keyed by domain.ArrKind — rather than per-kind branching.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/putioarr/bridge/internal/domain"
)

// command names the command each manager's v3 API scan endpoint expects.
var command = map[domain.ArrKind]string{
	domain.ArrKindSonarr:   "DownloadedEpisodesScan",
	domain.ArrKindRadarr:   "DownloadedMoviesScan",
	domain.ArrKindWhisparr: "DownloadedMoviesScan",
}

// Notifier dispatches completion notifications to every configured media
// manager. Failures are logged and never retried or propagated — a stuck
// *arr instance must never block the download pipeline.
type Notifier struct {
	managers   []domain.ArrManager
	httpClient *http.Client
}

// New builds a Notifier for the configured managers.
func New(managers []domain.ArrManager) *Notifier {
	return &Notifier{
		managers:   managers,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type scanCommandRequest struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// NotifyCompletion tells every configured manager to rescan path. Each
// manager is notified independently; one failing does not stop the others.
func (n *Notifier) NotifyCompletion(ctx context.Context, path string) {
	for _, mgr := range n.managers {
		if err := n.notifyOne(ctx, mgr, path); err != nil {
			log.Warn().Err(err).Str("kind", string(mgr.Kind)).Str("path", path).
				Msg("[NOTIFY] failed to notify media manager")
		}
	}
}

func (n *Notifier) notifyOne(ctx context.Context, mgr domain.ArrManager, path string) error {
	cmd, ok := command[mgr.Kind]
	if !ok {
		return fmt.Errorf("unrecognized manager kind %q", mgr.Kind)
	}

	body, err := json.Marshal(scanCommandRequest{Name: cmd, Path: path})
	if err != nil {
		return fmt.Errorf("encoding scan command: %w", err)
	}

	url := mgr.Config.URL + "/api/v3/command"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", mgr.Config.APIKey)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned %s", url, resp.Status)
	}

	log.Info().Str("kind", string(mgr.Kind)).Str("path", path).Msg("[NOTIFY] media manager notified")
	return nil
}
