package whazzup

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/charmap"
)

// IsGzip reports whether data starts with the gzip magic bytes.
func IsGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

// Decode decompresses gzip payloads and converts the bytes to a string.
// JSON formats are UTF-8 while the legacy text formats are Windows-1252.
func Decode(data []byte, utf8 bool) (string, error) {
	if IsGzip(data) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("failed to open gzip payload: %w", err)
		}
		defer zr.Close()

		data, err = io.ReadAll(zr)
		if err != nil {
			return "", fmt.Errorf("failed to decompress payload: %w", err)
		}
	}

	if utf8 {
		return string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), nil
	}

	text, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode Windows-1252 payload: %w", err)
	}
	return string(text), nil
}
