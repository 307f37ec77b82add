package rpcapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/putioarr/bridge/internal/domain"
)

// rpcRequest is the torrent-daemon dialect's request envelope.
type rpcRequest struct {
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Tag       json.RawMessage `json:"tag,omitempty"`
}

// rpcResponse is the matching response envelope.
type rpcResponse struct {
	Result    string `json:"result"`
	Arguments any    `json:"arguments,omitempty"`
	Tag       any    `json:"tag,omitempty"`
}

const resultSuccess = "success"

// methodHandler services one RPC method against a decoded request body.
type methodHandler func(s *Server, r *http.Request, req rpcRequest) rpcResponse

// methods is the dispatch table: a small registry keyed by method name,
// rather than a type switch.
var methods = map[string]methodHandler{
	"session-get":    (*Server).handleSessionGet,
	"session-stats":  (*Server).handleSessionStats,
	"torrent-get":    (*Server).handleTorrentGet,
	"torrent-add":    (*Server).handleTorrentAdd,
	"torrent-remove": (*Server).handleTorrentRemove,
}

// noopAccepted methods have no cloud-service equivalent; the client is told
// they succeeded and nothing happens.
var noopAccepted = map[string]bool{
	"torrent-start":  true,
	"torrent-stop":   true,
	"torrent-verify": true,
}

func isQueueMethod(method string) bool {
	return strings.HasPrefix(method, "queue-")
}

func (s *Server) dispatch(r *http.Request, req rpcRequest) rpcResponse {
	if handler, ok := methods[req.Method]; ok {
		return handler(s, r, req)
	}
	if noopAccepted[req.Method] || isQueueMethod(req.Method) {
		return rpcResponse{Result: resultSuccess}
	}
	log.Debug().Str("method", req.Method).Msg("[RPC] method not supported")
	return rpcResponse{Result: "method not supported"}
}

type sessionGetResponse struct {
	RPCVersion              int     `json:"rpc-version"`
	Version                 string  `json:"version"`
	DownloadDir             string  `json:"download-dir"`
	SeedRatioLimit          float64 `json:"seedRatioLimit"`
	SeedRatioLimited        bool    `json:"seedRatioLimited"`
	IdleSeedingLimit        int     `json:"idle-seeding-limit"`
	IdleSeedingLimitEnabled bool    `json:"idle-seeding-limit-enabled"`
}

// handleSessionGet returns the static session-config object a Transmission
// client expects back from session-get. download-dir is the configured
// download directory; every other field is a fixed literal. None of it
// reflects real state on the cloud service.
func (s *Server) handleSessionGet(_ *http.Request, _ rpcRequest) rpcResponse {
	return rpcResponse{
		Result: resultSuccess,
		Arguments: sessionGetResponse{
			RPCVersion:              18,
			Version:                 "14.0.0",
			DownloadDir:             s.downloadDir,
			SeedRatioLimit:          1.0,
			SeedRatioLimited:        true,
			IdleSeedingLimit:        100,
			IdleSeedingLimitEnabled: false,
		},
	}
}

type sessionStatsResponse struct {
	ActiveTorrentCount int        `json:"activeTorrentCount"`
	PausedTorrentCount int        `json:"pausedTorrentCount"`
	TorrentCount       int        `json:"torrentCount"`
	DownloadSpeed      int64      `json:"downloadSpeed"`
	UploadSpeed        int64      `json:"uploadSpeed"`
	CumulativeStats    statsBlock `json:"cumulative-stats"`
	CurrentStats       statsBlock `json:"current-stats"`
}

type statsBlock struct {
	UploadedBytes   int64 `json:"uploadedBytes"`
	DownloadedBytes int64 `json:"downloadedBytes"`
	FilesAdded      int   `json:"filesAdded"`
	SessionCount    int   `json:"sessionCount"`
	SecondsActive   int64 `json:"secondsActive"`
}

// handleSessionStats returns zeros for every counter; the bridge tracks no
// upload/download speed history a client could meaningfully display.
func (s *Server) handleSessionStats(_ *http.Request, _ rpcRequest) rpcResponse {
	return rpcResponse{Result: resultSuccess, Arguments: sessionStatsResponse{}}
}

type torrentGetArguments struct {
	Fields []string `json:"fields,omitempty"`
}

type torrentGetResponse struct {
	Torrents []Torrent `json:"torrents"`
}

// handleTorrentGet lists current cloud transfers and projects each onto the
// torrent shape. The client's "fields" filter is accepted but not applied
// to trim the payload — every client in the known set tolerates extra
// fields, and trimming buys nothing but complexity.
func (s *Server) handleTorrentGet(r *http.Request, req rpcRequest) rpcResponse {
	var args torrentGetArguments
	if len(req.Arguments) > 0 {
		_ = json.Unmarshal(req.Arguments, &args)
	}

	transfers, err := s.lister.ListTransfers(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("[RPC] torrent-get: failed to list transfers")
		return rpcResponse{Result: resultSuccess, Arguments: torrentGetResponse{Torrents: []Torrent{}}}
	}

	torrents := make([]Torrent, 0, len(transfers))
	for i := range transfers {
		torrents = append(torrents, ProjectTorrent(&transfers[i], s.downloadDir))
	}

	return rpcResponse{Result: resultSuccess, Arguments: torrentGetResponse{Torrents: torrents}}
}

type torrentAddArguments struct {
	Filename string `json:"filename,omitempty"`
	Metainfo string `json:"metainfo,omitempty"`
}

type torrentAddedInfo struct {
	ID         int64  `json:"id"`
	HashString string `json:"hashString"`
	Name       string `json:"name"`
}

type torrentAddResponse struct {
	TorrentAdded     *torrentAddedInfo `json:"torrent-added,omitempty"`
	TorrentDuplicate *torrentAddedInfo `json:"torrent-duplicate,omitempty"`
}

// handleTorrentAdd submits a magnet/URL or raw .torrent metainfo to the
// cloud service.
func (s *Server) handleTorrentAdd(r *http.Request, req rpcRequest) rpcResponse {
	var args torrentAddArguments
	if len(req.Arguments) > 0 {
		if err := json.Unmarshal(req.Arguments, &args); err != nil {
			return rpcResponse{Result: "invalid arguments"}
		}
	}

	var (
		transfer *domain.RemoteTransfer
		err      error
		name     string
		hash     string
	)

	switch {
	case args.Filename != "":
		transfer, err = s.adder.AddTransfer(r.Context(), args.Filename)
	case args.Metainfo != "":
		decoded, raw, decodeErr := decodeMetainfo(args.Metainfo)
		if decodeErr != nil {
			log.Warn().Err(decodeErr).Msg("[RPC] torrent-add: failed to decode metainfo")
			return rpcResponse{Result: "invalid metainfo"}
		}
		name = decoded.Name
		hash = decoded.Hash
		transfer, err = s.adder.AddTransferFromMetainfo(r.Context(), raw)
	default:
		return rpcResponse{Result: "no filename or metainfo provided"}
	}

	if err != nil {
		log.Warn().Err(err).Msg("[RPC] torrent-add: failed to add transfer")
		return rpcResponse{Result: "failed to add transfer"}
	}

	info := &torrentAddedInfo{ID: transfer.ID, HashString: transfer.HashOrEmpty()}
	if info.HashString == "" {
		info.HashString = hash
	}
	if transfer.Name != nil && *transfer.Name != "" {
		info.Name = *transfer.Name
	} else {
		info.Name = name
	}

	if transfer.UserfileExists {
		return rpcResponse{Result: resultSuccess, Arguments: torrentAddResponse{TorrentDuplicate: info}}
	}
	return rpcResponse{Result: resultSuccess, Arguments: torrentAddResponse{TorrentAdded: info}}
}

// torrentRemoveArguments' "ids" field holds a mix of numeric transfer IDs
// and hash strings in real Transmission-dialect clients — decoded as `any`
// and split by type rather than assumed to be all-numeric.
type torrentRemoveArguments struct {
	IDs []any `json:"ids,omitempty"`
}

// handleTorrentRemove deletes each resolved transfer ID. Hash strings are
// resolved to IDs via a transfer list lookup before deletion.
func (s *Server) handleTorrentRemove(r *http.Request, req rpcRequest) rpcResponse {
	var args torrentRemoveArguments
	if len(req.Arguments) > 0 {
		_ = json.Unmarshal(req.Arguments, &args)
	}

	ids, hashes := splitIDsAndHashes(args.IDs)
	if len(hashes) > 0 {
		resolved, err := s.resolveHashes(r.Context(), hashes)
		if err != nil {
			log.Warn().Err(err).Msg("[RPC] torrent-remove: failed to list transfers while resolving hashes")
		} else {
			ids = append(ids, resolved...)
		}
	}

	for _, id := range ids {
		if err := s.deleter.DeleteTransfer(r.Context(), id); err != nil {
			log.Warn().Err(err).Int64("id", id).Msg("[RPC] torrent-remove: failed to delete transfer")
		}
	}
	return rpcResponse{Result: resultSuccess}
}

// splitIDsAndHashes separates a decoded "ids" argument into numeric
// transfer IDs and hash strings.
func splitIDsAndHashes(raw []any) (ids []int64, hashes []string) {
	for _, v := range raw {
		switch tv := v.(type) {
		case float64:
			ids = append(ids, int64(tv))
		case string:
			hashes = append(hashes, tv)
		}
	}
	return ids, hashes
}

// resolveHashes looks up the current transfer list and maps each requested
// hash to its transfer ID. A hash with no matching transfer is skipped and
// logged rather than failing the whole request.
func (s *Server) resolveHashes(ctx context.Context, hashes []string) ([]int64, error) {
	transfers, err := s.lister.ListTransfers(ctx)
	if err != nil {
		return nil, err
	}

	byHash := make(map[string]int64, len(transfers))
	for i := range transfers {
		if h := transfers[i].HashOrEmpty(); h != "" {
			byHash[strings.ToLower(h)] = transfers[i].ID
		}
	}

	var ids []int64
	for _, h := range hashes {
		id, ok := byHash[strings.ToLower(h)]
		if !ok {
			log.Warn().Str("hash", h).Msg("[RPC] torrent-remove: no transfer matches hash")
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
