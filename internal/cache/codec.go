package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// gzipMagic is the two-byte header every gzip stream starts with.
var gzipMagic = []byte{0x1f, 0x8b}

// encode marshals v to JSON and gzips the result when it exceeds threshold
// bytes. Small payloads are stored as plain JSON; compressing them costs more
// than it saves.
func encode(v any, threshold int) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cache encode: %w", err)
	}
	if threshold > 0 && len(raw) < threshold {
		return raw, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("cache compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("cache compress: %w", err)
	}
	return buf.Bytes(), nil
}

// decode unmarshals a cache payload into v. Compressed payloads are detected
// by the gzip magic bytes; anything else falls back to direct JSON decoding.
// The fallback keeps entries written before compression existed readable and
// must stay until a migration removes the old format.
func decode(data []byte, v any) error {
	if bytes.HasPrefix(data, gzipMagic) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err == nil {
			raw, rerr := io.ReadAll(zr)
			zr.Close()
			if rerr == nil {
				return json.Unmarshal(raw, v)
			}
		}
		// A corrupt gzip stream drops through to the plain path; a payload
		// that happens to start with 0x1f8b but is not gzip is still decodable.
	}
	return json.Unmarshal(data, v)
}
