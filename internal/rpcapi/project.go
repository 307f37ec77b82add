package rpcapi

import (
	"time"

	"github.com/putioarr/bridge/internal/domain"
)

// TorrentStatus is the torrent-daemon RPC dialect's numeric status code.
type TorrentStatus int

const (
	TorrentStopped     TorrentStatus = 0
	TorrentCheckWait   TorrentStatus = 1
	TorrentCheck       TorrentStatus = 2
	TorrentQueued      TorrentStatus = 3
	TorrentDownloading TorrentStatus = 4
	TorrentSeedingWait TorrentStatus = 5
	TorrentSeeding     TorrentStatus = 6
)

// ProjectStatus maps a cloud transfer status onto a torrent-daemon status
// code. Case-insensitive on the input; every input, including unrecognized
// strings, maps to a valid status — unknowns fall through to CheckWait.
func ProjectStatus(status domain.TransferStatus) TorrentStatus {
	switch status.Normalized() {
	case domain.StatusStopped, domain.StatusCompleted, domain.StatusError:
		return TorrentStopped
	case domain.StatusCheckWait, domain.StatusPreparingDownload:
		return TorrentCheckWait
	case domain.StatusCheck, domain.StatusCompleting:
		return TorrentCheck
	case domain.StatusQueued, domain.StatusInQueue:
		return TorrentQueued
	case domain.StatusDownloading:
		return TorrentDownloading
	case domain.StatusSeedingWait:
		return TorrentSeedingWait
	case domain.StatusSeeding:
		return TorrentSeeding
	default:
		return TorrentCheckWait
	}
}

// isFinished reports whether a cloud status projects to isFinished=true.
func isFinished(status domain.TransferStatus) bool {
	switch status.Normalized() {
	case domain.StatusCompleted, domain.StatusSeeding, domain.StatusSeedingWait:
		return true
	default:
		return false
	}
}

// Torrent is the JSON shape torrent-get returns for one transfer.
type Torrent struct {
	ID             int64         `json:"id"`
	HashString     string        `json:"hashString"`
	Name           string        `json:"name"`
	TotalSize      int64         `json:"totalSize"`
	DownloadedEver int64         `json:"downloadedEver"`
	LeftUntilDone  int64         `json:"leftUntilDone"`
	IsFinished     bool          `json:"isFinished"`
	Eta            int64         `json:"eta"`
	ErrorString    string        `json:"errorString,omitempty"`
	Error          int           `json:"error"`
	FileCount      int           `json:"fileCount"`
	Status         TorrentStatus `json:"status"`
	AddedDate      int64         `json:"addedDate,omitempty"`
	DoneDate       int64         `json:"doneDate,omitempty"`
	DownloadDir    string        `json:"downloadDir,omitempty"`
}

// ProjectTorrent converts a RemoteTransfer into the torrent-get shape.
func ProjectTorrent(t *domain.RemoteTransfer, downloadDir string) Torrent {
	errString := ""
	errCode := 0
	if t.ErrorMessage != nil && *t.ErrorMessage != "" {
		errString = *t.ErrorMessage
		errCode = 1
	}

	eta := int64(0)
	if t.EstimatedTime != nil {
		eta = *t.EstimatedTime
	}

	// started_at/finished_at arrive as "%FT%T" timestamps; an absent or
	// unparsable value leaves the date at zero (omitted from the JSON).
	unixDate := func(s *string) int64 {
		if s == nil {
			return 0
		}
		ts, err := time.Parse("2006-01-02T15:04:05", *s)
		if err != nil {
			return 0
		}
		return ts.Unix()
	}

	return Torrent{
		ID:             t.ID,
		HashString:     t.HashOrEmpty(),
		Name:           t.NameOrUnknown(),
		TotalSize:      t.SizeOrZero(),
		DownloadedEver: t.DownloadedOrZero(),
		LeftUntilDone:  t.LeftUntilDone(),
		IsFinished:     isFinished(t.Status),
		Eta:            eta,
		ErrorString:    errString,
		Error:          errCode,
		FileCount:      1,
		Status:         ProjectStatus(t.Status),
		AddedDate:      unixDate(t.StartedAt),
		DoneDate:       unixDate(t.FinishedAt),
		DownloadDir:    downloadDir,
	}
}
