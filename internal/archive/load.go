// Copyright 2026 RomFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package archive

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/zeebo/blake3"
)

// Compression identifies how an archive file is wrapped on disk.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionLZ4
)

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// String returns the human-readable name of a compression kind.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// ParseCompression parses a compression kind from its string form.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression: %q", name)
	}
}

// Detect identifies the compression of data from its leading magic bytes.
func Detect(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return CompressionZstd
	case bytes.HasPrefix(data, lz4Magic):
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// zstdDecoder is shared; zstd.Decoder is safe for concurrent DecodeAll.
var zstdDecoder *zstd.Decoder

func init() {
	var err error
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("archive: zstd decoder initialization failed: " + err.Error())
	}
}

// Decompress unwraps data according to its detected compression. Raw
// archives are returned as-is without copying.
func Decompress(data []byte) ([]byte, Compression, error) {
	c := Detect(data)
	switch c {
	case CompressionZstd:
		out, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, c, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, c, nil
	case CompressionLZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, c, fmt.Errorf("lz4 decompress: %w", err)
		}
		return out, c, nil
	default:
		return data, c, nil
	}
}

// Load reads an archive file from fsys and returns its uncompressed bytes.
// The returned buffer backs every entry decoded from it.
func Load(fsys afero.Fs, name string) ([]byte, Compression, error) {
	raw, err := afero.ReadFile(fsys, name)
	if err != nil {
		return nil, CompressionNone, fmt.Errorf("failed to read archive: %w", err)
	}
	data, c, err := Decompress(raw)
	if err != nil {
		return nil, c, fmt.Errorf("%s: %w", name, err)
	}
	log.Debugf("[Archive] Loaded %s: %d bytes on disk, %d resident, compression=%s", name, len(raw), len(data), c)
	return data, c, nil
}

// LoadFile is Load against the host filesystem.
func LoadFile(name string) ([]byte, Compression, error) {
	return Load(afero.NewOsFs(), name)
}

// NewCompressWriter wraps w so that writes are compressed with c. Closing
// the returned writer flushes the frame but does not close w.
func NewCompressWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		return enc, nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported compression: %s", c)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Digest is the BLAKE3-256 hash of an uncompressed archive.
type Digest [32]byte

// Sum computes the digest of data.
func Sum(data []byte) Digest {
	return Digest(blake3.Sum256(data))
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}
