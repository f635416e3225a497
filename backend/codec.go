package backend

import (
	"encoding/base64"

	"github.com/saiset-co/sai-cache/types"
	"github.com/saiset-co/sai-cache/utils"
)

// wireEntry wraps a CacheEntry for out-of-process storage. JSON has no
// raw-bytes type, so []byte payloads are flagged on write and restored
// from their base64 form on read; without the flag a Get would hand
// back a string where Set stored bytes.
type wireEntry struct {
	Entry    *types.CacheEntry `json:"entry"`
	RawBytes bool              `json:"raw_bytes"`
}

func encodeEntry(entry *types.CacheEntry) ([]byte, error) {
	_, rawBytes := entry.Value.([]byte)
	return utils.Marshal(wireEntry{Entry: entry, RawBytes: rawBytes})
}

func decodeEntry(data []byte) (*types.CacheEntry, error) {
	wire := &wireEntry{}
	if err := utils.Unmarshal(data, wire); err != nil {
		return nil, err
	}
	if wire.Entry == nil {
		return nil, types.ErrBackendEntryCorrupt
	}

	if wire.RawBytes {
		encoded, ok := wire.Entry.Value.(string)
		if !ok {
			return nil, types.ErrBackendEntryCorrupt
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, types.WrapError(types.ErrBackendEntryCorrupt, err.Error())
		}
		wire.Entry.Value = decoded
	}

	return wire.Entry, nil
}
