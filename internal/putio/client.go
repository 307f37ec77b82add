// Package putio is a small REST client for the put.io-shaped cloud download
// API. It is written directly against net/http rather than pulling in a
// heavier SDK — nothing in the dependency set ships a put.io client.
package putio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/putioarr/bridge/internal/domain"
	"github.com/putioarr/bridge/internal/putioerr"
	"github.com/putioarr/bridge/pkg/httphelpers"
)

const defaultBaseURL = "https://api.put.io/v2"

const (
	retryAttempts  = 3
	retryBaseDelay = 1 * time.Second
	retryMaxDelay  = 30 * time.Second
)

// Client talks to the cloud API on behalf of the orchestrator and download
// worker pool.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	listGroup singleflight.Group
}

// New builds a Client authenticating with apiKey as a bearer token.
func New(apiKey string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// do performs one HTTP round-trip, retrying transient failures (3 attempts,
// exponential backoff 1s..30s). Auth and permanent failures are never
// retried.
func (c *Client) do(ctx context.Context, method, path string, form url.Values, out any) error {
	return retry.Do(
		func() error {
			return c.doOnce(ctx, method, path, form, out)
		},
		retry.Context(ctx),
		retry.Attempts(retryAttempts),
		retry.Delay(retryBaseDelay),
		retry.MaxDelay(retryMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(putioerr.IsTransient),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n).Str("path", path).Msg("[PUTIO] retrying request")
		}),
	)
}

func (c *Client) doOnce(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil && method != http.MethodGet {
		body = bytes.NewBufferString(form.Encode())
	}

	reqURL := c.baseURL + path
	if form != nil && method == http.MethodGet {
		reqURL += "?" + form.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return putioerr.Transient(0, err)
	}
	defer httphelpers.DrainAndClose(resp)

	if resp.StatusCode >= 400 {
		return putioerr.Classify(resp.StatusCode, fmt.Errorf("%s %s: %s", method, path, resp.Status))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// ListTransfers lists all in-flight and completed transfers on the account.
// ListTransfers coalesces concurrent callers (the orchestrator's tick and a
// torrent-get request can land at nearly the same moment) into a single
// round-trip via singleflight, so a busy RPC client never doubles the
// polling load on the cloud service.
func (c *Client) ListTransfers(ctx context.Context) ([]domain.RemoteTransfer, error) {
	v, err, _ := c.listGroup.Do("transfers/list", func() (any, error) {
		var out transfersResponse
		if err := c.do(ctx, http.MethodGet, "/transfers/list", nil, &out); err != nil {
			return nil, fmt.Errorf("listing transfers: %w", err)
		}
		return out.Transfers, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.RemoteTransfer), nil
}

// GetTransfer fetches a single transfer by ID.
func (c *Client) GetTransfer(ctx context.Context, id int64) (*domain.RemoteTransfer, error) {
	form := url.Values{"id": {fmt.Sprintf("%d", id)}}
	var out transferResponse
	if err := c.do(ctx, http.MethodGet, "/transfers/info", form, &out); err != nil {
		return nil, fmt.Errorf("fetching transfer %d: %w", id, err)
	}
	return &out.Transfer, nil
}

// ListFiles lists the children of parentID (0 for the account root),
// along with parentID's own file entry — callers need the parent's
// content type to tell an empty directory apart from a single file.
func (c *Client) ListFiles(ctx context.Context, parentID int64) ([]File, File, error) {
	form := url.Values{"parent_id": {fmt.Sprintf("%d", parentID)}}
	var out filesResponse
	if err := c.do(ctx, http.MethodGet, "/files/list", form, &out); err != nil {
		return nil, File{}, fmt.Errorf("listing files under %d: %w", parentID, err)
	}
	return out.Files, out.Parent, nil
}

// GetDownloadURL resolves a time-limited direct download URL for fileID.
func (c *Client) GetDownloadURL(ctx context.Context, fileID int64) (string, error) {
	form := url.Values{"file_id": {fmt.Sprintf("%d", fileID)}}
	var out downloadURLResponse
	if err := c.do(ctx, http.MethodGet, "/files/url", form, &out); err != nil {
		return "", fmt.Errorf("resolving download url for %d: %w", fileID, err)
	}
	return out.URL, nil
}

// DeleteTransfer removes a transfer by ID. A 404 is treated as success
// since the end state — the transfer is gone — is identical.
func (c *Client) DeleteTransfer(ctx context.Context, id int64) error {
	form := url.Values{"transfer_ids": {fmt.Sprintf("%d", id)}}
	err := c.do(ctx, http.MethodPost, "/transfers/remove", form, nil)
	if err == nil {
		return nil
	}
	var classified *putioerr.Error
	if errors.As(err, &classified) && classified.StatusCode == http.StatusNotFound {
		return nil
	}
	return fmt.Errorf("deleting transfer %d: %w", id, err)
}

// AddTransfer starts a new transfer from a magnet URI.
func (c *Client) AddTransfer(ctx context.Context, magnetURI string) (*domain.RemoteTransfer, error) {
	form := url.Values{"url": {magnetURI}}
	var out transferResponse
	if err := c.do(ctx, http.MethodPost, "/transfers/add", form, &out); err != nil {
		return nil, fmt.Errorf("adding transfer: %w", err)
	}
	return &out.Transfer, nil
}

// AddTransferFromMetainfo starts a new transfer from raw .torrent bytes,
// uploaded as multipart/form-data.
func (c *Client) AddTransferFromMetainfo(ctx context.Context, metainfo []byte) (*domain.RemoteTransfer, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "upload.torrent")
	if err != nil {
		return nil, fmt.Errorf("creating multipart file: %w", err)
	}
	if _, err := part.Write(metainfo); err != nil {
		return nil, fmt.Errorf("writing metainfo bytes: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfers/add", &buf)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, putioerr.Transient(0, err)
	}
	defer httphelpers.DrainAndClose(resp)

	if resp.StatusCode >= 400 {
		return nil, putioerr.Classify(resp.StatusCode, fmt.Errorf("transfers/add: %s", resp.Status))
	}

	var out transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &out.Transfer, nil
}

// AccountInfo fetches the authenticated account's profile, used at startup
// to fail fast on a bad API key.
func (c *Client) AccountInfo(ctx context.Context) (*Account, error) {
	var out accountInfoResponse
	if err := c.do(ctx, http.MethodGet, "/account/info", nil, &out); err != nil {
		return nil, fmt.Errorf("fetching account info: %w", err)
	}
	return &out.Info, nil
}
