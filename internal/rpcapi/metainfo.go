package rpcapi

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/anacrolix/torrent/metainfo"
)

// decodedMetainfo carries the fields torrent-add needs from an uploaded
// .torrent file: load with metainfo, unmarshal the info dict, hash it for
// the info-hash.
type decodedMetainfo struct {
	Name string
	Hash string
}

// decodeMetainfo base64-decodes a torrent-add "metainfo" field and parses it
// with anacrolix/torrent/metainfo.
func decodeMetainfo(b64 string) (*decodedMetainfo, []byte, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding base64 metainfo: %w", err)
	}

	mi, err := metainfo.Load(bytes.NewReader(raw))
	if err != nil {
		return nil, raw, fmt.Errorf("parsing metainfo: %w", err)
	}

	info, err := mi.UnmarshalInfo()
	if err != nil {
		return nil, raw, fmt.Errorf("unmarshaling metainfo info dict: %w", err)
	}

	return &decodedMetainfo{
		Name: info.Name,
		Hash: mi.HashInfoBytes().HexString(),
	}, raw, nil
}
