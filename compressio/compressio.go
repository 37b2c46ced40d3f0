// Package compressio picks a compression codec from a file extension and
// wraps plain readers/writers in gzip/zstd codecs via klauspost/compress,
// used by the runtime's input reader and by the writer steps (C10/C11).
package compressio

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	kzip "github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Codec names the compression scheme inferred from a path's extension
// (C10/C11 — gzip and zstd levels are config-driven, spec.md §6).
type Codec int

const (
	CodecPlain Codec = iota
	CodecGzip
	CodecZstd
)

// CodecForPath infers a codec from a file extension.
func CodecForPath(path string) Codec {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return CodecGzip
	case strings.HasSuffix(path, ".zst"):
		return CodecZstd
	default:
		return CodecPlain
	}
}

// OpenReader wraps r in a decompressing reader appropriate to codec. Uses
// klauspost/compress's gzip (drop-in, faster than stdlib) for CodecGzip and
// klauspost/compress/zstd for CodecZstd.
func OpenReader(r io.Reader, codec Codec) (io.Reader, func() error, error) {
	switch codec {
	case CodecGzip:
		gr, err := kzip.NewReader(bufio.NewReaderSize(r, 64*1024))
		if err != nil {
			return nil, nil, fmt.Errorf("compressio: gzip reader: %w", err)
		}
		return gr, gr.Close, nil
	case CodecZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("compressio: zstd reader: %w", err)
		}
		return zr, func() error { zr.Close(); return nil }, nil
	default:
		return bufio.NewReaderSize(r, 64*1024), func() error { return nil }, nil
	}
}

// GzipLevel passes through a level in gzip's valid [0,9] range (spec.md §6
// compression level table); any other value selects the codec's default.
func GzipLevel(level int) int {
	if level < kzip.NoCompression || level > kzip.BestCompression {
		return kzip.DefaultCompression
	}
	return level
}

// ZstdLevel maps a 1-22 user-facing level onto klauspost/compress/zstd's
// four-tier EncoderLevel, per the compression level table in SPEC_FULL.md.
func ZstdLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 0:
		return zstd.SpeedDefault
	case level <= 3:
		return zstd.SpeedFastest
	case level <= 9:
		return zstd.SpeedDefault
	case level <= 15:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

// OpenWriter wraps w in a compressing writer appropriate to codec and level
// (gzip level 0-9 via klauspost/compress/gzip, zstd level 1-22 mapped onto
// zstd.EncoderLevel via ZstdLevel).
func OpenWriter(w io.Writer, codec Codec, level int) (io.Writer, func() error, error) {
	switch codec {
	case CodecGzip:
		gw, err := kzip.NewWriterLevel(w, GzipLevel(level))
		if err != nil {
			return nil, nil, fmt.Errorf("compressio: gzip writer: %w", err)
		}
		return gw, gw.Close, nil
	case CodecZstd:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(ZstdLevel(level)))
		if err != nil {
			return nil, nil, fmt.Errorf("compressio: zstd writer: %w", err)
		}
		return zw, zw.Close, nil
	default:
		bw := bufio.NewWriterSize(w, 64*1024)
		return bw, bw.Flush, nil
	}
}
