package output

import (
	"bytes"
	"fmt"
	"path"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// MinCompressSize is the smallest artifact worth precompressing.
const MinCompressSize = 1024

var compressible = map[string]bool{
	".js":   true,
	".css":  true,
	".html": true,
}

// Compressible reports whether rel is a text artifact that gets precompressed siblings.
func Compressible(rel string, size int) bool {
	return size >= MinCompressSize && compressible[path.Ext(rel)]
}

// Precompress writes a compressed sibling of rel for each encoding
// ("gzip" -> .gz, "zstd" -> .zst) and returns the sibling paths.
func (s *Sink) Precompress(rel string, data []byte, encodings []string) ([]string, error) {
	var out []string
	for _, enc := range encodings {
		var (
			compressed []byte
			ext        string
			err        error
		)
		switch enc {
		case "gzip":
			compressed, err = gzipBytes(data)
			ext = ".gz"
		case "zstd":
			compressed, err = zstdBytes(data)
			ext = ".zst"
		default:
			return out, fmt.Errorf("unknown encoding %q", enc)
		}
		if err != nil {
			return out, fmt.Errorf("failed to %s %s: %w", enc, rel, err)
		}
		if _, err := s.Write(rel+ext, compressed); err != nil {
			return out, err
		}
		out = append(out, rel+ext)
	}
	return out, nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func zstdBytes(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}
