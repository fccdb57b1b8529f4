/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

// Package transport hosts the wire-level concerns shared by the OTLP
// and OTAP node families: grpc-encoding header normalization (spec.md
// §6) and the Arrow IPC body compression codecs a receiver/exporter
// pair may negotiate.
package transport

import (
	"bytes"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
	"google.golang.org/grpc/encoding"
)

// zstdarrowNamePrefix is the grpc-encoding value the OTAP collector's
// zstd compressor registers itself under, one name per level
// ("zstdarrow1".."zstdarrow10"); a client that advertises any of these
// is accepted exactly like a plain "zstd" peer (spec.md §6).
const zstdarrowNamePrefix = "zstdarrow"

const (
	minZstdarrowLevel = 1
	maxZstdarrowLevel = 10
)

// RegisterGRPCCompressors installs a grpc/encoding.Compressor for
// "zstd" and every "zstdarrowN" level so grpc-go's wire negotiation
// accepts either name and decodes it with the same klauspost/zstd
// codec; safe to call more than once, later registrations win per
// grpc-go's own encoding.RegisterCompressor semantics.
func RegisterGRPCCompressors() {
	encoding.RegisterCompressor(&zstdCompressor{name: "zstd"})
	for level := minZstdarrowLevel; level <= maxZstdarrowLevel; level++ {
		encoding.RegisterCompressor(&zstdCompressor{name: fmt.Sprintf("%s%d", zstdarrowNamePrefix, level)})
	}
}

// zstdCompressor adapts klauspost/compress/zstd to grpc's
// encoding.Compressor, pooling encoders/decoders by Reset instead of
// allocating one per RPC.
type zstdCompressor struct {
	name string

	encoders sync.Pool
	decoders sync.Pool
}

var _ encoding.Compressor = (*zstdCompressor)(nil)

func (c *zstdCompressor) Name() string { return c.name }

type pooledWriter struct {
	*zstd.Encoder
	pool *sync.Pool
}

func (w *pooledWriter) Close() error {
	err := w.Encoder.Close()
	w.pool.Put(w)
	return err
}

func (c *zstdCompressor) Compress(w io.Writer) (io.WriteCloser, error) {
	if v := c.encoders.Get(); v != nil {
		pw := v.(*pooledWriter)
		pw.Encoder.Reset(w)
		return pw, nil
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	return &pooledWriter{Encoder: enc, pool: &c.encoders}, nil
}

type pooledReader struct {
	*zstd.Decoder
	pool *sync.Pool
}

func (c *zstdCompressor) Decompress(r io.Reader) (io.Reader, error) {
	if v := c.decoders.Get(); v != nil {
		pr := v.(*pooledReader)
		if err := pr.Decoder.Reset(r); err != nil {
			return nil, err
		}
		return pr, nil
	}
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	pr := &pooledReader{Decoder: dec, pool: &c.decoders}
	// zstd.Decoder keeps background goroutines alive until Close; the
	// pool only gets a Put on a clean EOF, so a reader that's never
	// drained still gets reclaimed once collected.
	runtime.SetFinalizer(pr, func(p *pooledReader) { p.Decoder.Close() })
	return pr, nil
}

func (r *pooledReader) Read(p []byte) (int, error) {
	n, err := r.Decoder.Read(p)
	if err == io.EOF {
		r.pool.Put(r)
	}
	return n, err
}

// Algorithm compresses and decompresses Arrow IPC stream bodies.
type Algorithm interface {
	fmt.Stringer
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// ByName resolves a node config's codec string ("zstd", "lz4", "" or
// "none") into an Algorithm; an unrecognized name is a config error,
// not a silent fallback to None.
func ByName(name string) (Algorithm, error) {
	switch name {
	case "", "none":
		return noneAlgo{}, nil
	case "zstd":
		return newZstdAlgo()
	case "lz4":
		return lz4Algo{}, nil
	default:
		return nil, fmt.Errorf("transport: unknown compression codec %q", name)
	}
}

type noneAlgo struct{}

func (noneAlgo) Compress(data []byte) ([]byte, error)   { return data, nil }
func (noneAlgo) Decompress(data []byte) ([]byte, error) { return data, nil }
func (noneAlgo) String() string                         { return "none" }

type zstdAlgo struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newZstdAlgo() (Algorithm, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &zstdAlgo{encoder: encoder, decoder: decoder}, nil
}

func (a *zstdAlgo) Compress(data []byte) ([]byte, error) {
	return a.encoder.EncodeAll(data, nil), nil
}

func (a *zstdAlgo) Decompress(data []byte) ([]byte, error) {
	return a.decoder.DecodeAll(data, nil)
}

func (a *zstdAlgo) String() string { return "zstd" }

// lz4 block tags: lz4.CompressBlock reports an incompressible input by
// returning n == 0 rather than an error, so Compress's output must
// self-describe whether a block follows or the original bytes were
// stored verbatim — otherwise Decompress can't tell them apart.
const (
	lz4TagRaw   byte = 0
	lz4TagBlock byte = 1
)

type lz4Algo struct{}

func (lz4Algo) Compress(data []byte) ([]byte, error) {
	buf := make([]byte, len(data)+1)
	ht := make([]int, 64<<10)
	n, err := lz4.CompressBlock(data, buf[1:], ht)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		out := make([]byte, len(data)+1)
		out[0] = lz4TagRaw
		copy(out[1:], data)
		return out, nil
	}
	buf[0] = lz4TagBlock
	return buf[:1+n], nil
}

func (lz4Algo) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	tag, body := data[0], data[1:]
	if tag == lz4TagRaw {
		return body, nil
	}

	// The wire form does not carry the original size: start from a 10x
	// buffer and double it on a short-buffer error, up to 1 GiB.
	const maxRatio = 10
	const maxSize = 1 << 30
	if len(body) > maxSize/maxRatio {
		return nil, bytes.ErrTooLarge
	}
	size := maxRatio*len(body) + 1
	for {
		decompressed := make([]byte, size)
		n, err := lz4.UncompressBlock(body, decompressed)
		if err == nil {
			return decompressed[:n], nil
		}
		if err != lz4.ErrInvalidSourceShortBuffer || size >= maxSize {
			return nil, err
		}
		size *= 2
	}
}

func (lz4Algo) String() string { return "lz4" }
