package domain

import "strings"

// TransferStatus is the free-form status string the cloud service reports
// for a RemoteTransfer. Unknown values are accepted — see
// internal/rpcapi.ProjectStatus for the total mapping onto torrent status.
type TransferStatus string

const (
	StatusWaiting            TransferStatus = "WAITING"
	StatusInQueue            TransferStatus = "IN_QUEUE"
	StatusQueued             TransferStatus = "QUEUED"
	StatusPreparingDownload  TransferStatus = "PREPARING_DOWNLOAD"
	StatusDownloading        TransferStatus = "DOWNLOADING"
	StatusCompleting         TransferStatus = "COMPLETING"
	StatusSeeding            TransferStatus = "SEEDING"
	StatusSeedingWait        TransferStatus = "SEEDINGWAIT"
	StatusCompleted          TransferStatus = "COMPLETED"
	StatusCheck              TransferStatus = "CHECK"
	StatusCheckWait          TransferStatus = "CHECKWAIT"
	StatusStopped            TransferStatus = "STOPPED"
	StatusError              TransferStatus = "ERROR"
)

// Normalized upper-cases the status for case-insensitive comparisons (spec
// requires torrent status mapping to be case-insensitive on the input).
func (s TransferStatus) Normalized() TransferStatus {
	return TransferStatus(strings.ToUpper(string(s)))
}

// RemoteTransfer mirrors a cloud-service transfer. Pointer fields are
// optional the way the cloud API's JSON responses make them optional.
type RemoteTransfer struct {
	ID             int64          `json:"id"`
	Hash           *string        `json:"hash,omitempty"`
	Name           *string        `json:"name,omitempty"`
	Size           *int64         `json:"size,omitempty"`
	Downloaded     *int64         `json:"downloaded,omitempty"`
	EstimatedTime  *int64         `json:"estimated_time,omitempty"`
	Status         TransferStatus `json:"status"`
	FileID         *int64         `json:"file_id,omitempty"`
	UserfileExists bool           `json:"userfile_exists"`
	ErrorMessage   *string        `json:"error_message,omitempty"`

	// StartedAt and FinishedAt feed torrent-get's addedDate/doneDate fields.
	StartedAt  *string `json:"started_at,omitempty"`
	FinishedAt *string `json:"finished_at,omitempty"`
}

// IsDownloadable reports whether the cloud service has a concrete file
// object the orchestrator can expand and download.
func (t *RemoteTransfer) IsDownloadable() bool {
	return t.FileID != nil
}

// SizeOrZero and DownloadedOrZero give zero-value defaults for absent byte
// counts so callers never need a nil check.
func (t *RemoteTransfer) SizeOrZero() int64 {
	if t.Size == nil {
		return 0
	}
	return *t.Size
}

func (t *RemoteTransfer) DownloadedOrZero() int64 {
	if t.Downloaded == nil {
		return 0
	}
	return *t.Downloaded
}

// LeftUntilDone computes max(0, size-downloaded) — never negative even
// when downloaded exceeds size.
func (t *RemoteTransfer) LeftUntilDone() int64 {
	left := t.SizeOrZero() - t.DownloadedOrZero()
	if left < 0 {
		return 0
	}
	return left
}

// NameOrUnknown gives a display name fallback for a transfer still missing
// its name field.
func (t *RemoteTransfer) NameOrUnknown() string {
	if t.Name == nil || *t.Name == "" {
		return "Unknown"
	}
	return *t.Name
}

// HashOrEmpty is a convenience accessor for log lines and correlation keys.
func (t *RemoteTransfer) HashOrEmpty() string {
	if t.Hash == nil {
		return ""
	}
	return *t.Hash
}

// TargetKind distinguishes a file download from a directory-creation step.
type TargetKind string

const (
	TargetFile      TargetKind = "File"
	TargetDirectory TargetKind = "Directory"
)

// DownloadTarget is one atomic unit of local work produced by expanding a
// RemoteTransfer (internal/target) and consumed by the worker pool
// (internal/download).
type DownloadTarget struct {
	// FromFileID is the putio file ID this target downloads from, resolved
	// to a concrete time-limited URL lazily by the worker. Zero for
	// Directory targets.
	FromFileID int64
	// To is the absolute destination path on the local filesystem.
	To string
	Kind TargetKind
	// TopLevel is true for exactly one target in a transfer's set — the
	// root entry, whose path is reported to the media manager on completion.
	TopLevel bool
	// TransferHash correlates this target back to its originating
	// RemoteTransfer for logging.
	TransferHash string
}
