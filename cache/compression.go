package cache

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"sync"

	"github.com/andybalholm/brotli"
)

const compressionLevel = 6

var brotliWriterPool = sync.Pool{
	New: func() interface{} {
		return brotli.NewWriterLevel(io.Discard, compressionLevel)
	},
}

func compress(data []byte) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, len(data)/4))

	writer := brotliWriterPool.Get().(*brotli.Writer)
	writer.Reset(buf)
	defer brotliWriterPool.Put(writer)

	if _, err := writer.Write(data); err != nil {
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

func decompress(data []byte) ([]byte, error) {
	reader := brotli.NewReader(bytes.NewReader(data))
	return io.ReadAll(reader)
}

// decompressValue restores the original bytes of a compressed entry
// value.
func decompressValue(value interface{}) ([]byte, error) {
	data, err := compressedBytes(value)
	if err != nil {
		return nil, err
	}
	return decompress(data)
}

// compressedBytes recovers the stored payload of a compressed entry.
// Out-of-process backends round-trip []byte values through JSON, which
// turns them into base64 strings.
func compressedBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return base64.StdEncoding.DecodeString(v)
	default:
		return nil, fmt.Errorf("unexpected compressed payload type %T", value)
	}
}
