package receiver

import (
	"compress/gzip"
	"io"

	lz4 "github.com/pierrec/lz4/v4"

	kgzip "github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/ndstream/receiver/protocol/streamwire"
)

// Decompressor wraps whatever streaming decompression algorithm was
// negotiated for this connection. The acceptance core only selects and
// constructs it; reading decompressed bytes off the wire happens in the
// (out of scope) stream decoder downstream of handoff.
type Decompressor interface {
	io.Reader
	Close() error
}

type passthroughDecompressor struct {
	io.Reader
}

func (passthroughDecompressor) Close() error { return nil }

type zstdDecompressor struct {
	*zstd.Decoder
}

func (d zstdDecompressor) Close() error {
	d.Decoder.Close()
	return nil
}

type lz4Decompressor struct {
	*lz4.Reader
}

func (lz4Decompressor) Close() error { return nil }

// SelectDecompressor picks the compression backend implied by the
// negotiated capability bitset (spec.md §4.G "selects a decompressor per
// negotiated capabilities"). Preference order favors the
// highest-throughput algorithm first: zstd, then lz4, then gzip, then no
// compression at all.
//
// gzip here is klauspost/compress's drop-in-faster implementation
// rather than the standard library's, matching the rest of the example
// pack's compression stack; stdlib compress/gzip is only used by the
// separate DecodeGzip helper.
func SelectDecompressor(caps streamwire.Capabilities, src io.Reader) (Decompressor, error) {
	switch {
	case caps.Has(streamwire.CapZstd):
		dec, err := zstd.NewReader(src)
		if err != nil {
			return nil, err
		}
		return zstdDecompressor{dec}, nil
	case caps.Has(streamwire.CapLZ4):
		return lz4Decompressor{lz4.NewReader(src)}, nil
	case caps.Has(streamwire.CapGzip):
		r, err := kgzip.NewReader(src)
		if err != nil {
			return nil, err
		}
		return passthroughDecompressor{r}, nil
	default:
		return passthroughDecompressor{src}, nil
	}
}

// DecodeGzip is a small stdlib-backed helper that opens a plain-gzip byte
// stream without the decompressor selection machinery above. Nothing in
// this module calls it.
func DecodeGzip(src io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(src)
}
