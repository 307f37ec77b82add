package putio

import "github.com/putioarr/bridge/internal/domain"

type transfersResponse struct {
	Transfers []domain.RemoteTransfer `json:"transfers"`
}

type transferResponse struct {
	Transfer domain.RemoteTransfer `json:"transfer"`
}

// File is one entry in a put.io directory listing.
type File struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	ParentID    int64  `json:"parent_id"`
}

func (f File) IsDirectory() bool {
	return f.ContentType == "application/x-directory"
}

type filesResponse struct {
	Files  []File `json:"files"`
	Parent File   `json:"parent"`
}

type downloadURLResponse struct {
	URL string `json:"url"`
}

// Account is the subset of put.io's account-info payload the bridge uses.
type Account struct {
	Username string `json:"username"`
}

type accountInfoResponse struct {
	Info Account `json:"info"`
}
