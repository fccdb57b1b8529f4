/*
 * Copyright The OpenTelemetry Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package transport

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestByNameRoundTrip(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("otap-arrow-ipc-body"), 64)
	for _, name := range []string{"", "none", "zstd", "lz4"} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			algo, err := ByName(name)
			require.NoError(t, err)

			compressed, err := algo.Compress(payload)
			require.NoError(t, err)

			decompressed, err := algo.Decompress(compressed)
			require.NoError(t, err)
			require.Equal(t, payload, decompressed)
		})
	}
}

func TestLZ4RoundTripIncompressible(t *testing.T) {
	t.Parallel()
	algo, err := ByName("lz4")
	require.NoError(t, err)

	// High-entropy input defeats lz4's matcher, forcing the
	// n == 0 "store raw" path in Compress.
	random := []byte{0x4e, 0x8a, 0x01, 0x7f, 0xd3, 0x22, 0x91, 0x5c}

	compressed, err := algo.Compress(random)
	require.NoError(t, err)

	decompressed, err := algo.Decompress(compressed)
	require.NoError(t, err)
	require.Equal(t, random, decompressed)
}

func TestByNameUnknown(t *testing.T) {
	t.Parallel()
	_, err := ByName("brotli")
	require.Error(t, err)
}

func TestRegisterGRPCCompressorsNamesZstdarrow(t *testing.T) {
	RegisterGRPCCompressors()

	for _, name := range []string{"zstd", "zstdarrow1", "zstdarrow10"} {
		c := encoding.GetCompressor(name)
		require.NotNilf(t, c, "expected %q to be registered", name)
		require.Equal(t, name, c.Name())
	}
	require.Nil(t, encoding.GetCompressor("zstdarrow11"))
}

func TestZstdCompressorRoundTrip(t *testing.T) {
	RegisterGRPCCompressors()
	c := encoding.GetCompressor("zstd")
	require.NotNil(t, c)

	payload := []byte("hello zstdarrow")
	var buf bytes.Buffer
	w, err := c.Compress(&buf)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := c.Decompress(&buf)
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}
