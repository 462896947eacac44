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
	"archive/tar"
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compress(t *testing.T, data []byte, c Compression) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewCompressWriter(&buf, c)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestLoadDetectsCompression(t *testing.T) {
	t.Parallel()

	raw := buildTar(t,
		member{name: "dir/", typeflag: tar.TypeDir},
		member{name: "dir/hello.txt", typeflag: tar.TypeReg, body: "hello world\n"},
	)

	for _, c := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			t.Parallel()
			fsys := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fsys, "/a.tar", compress(t, raw, c), 0o644))

			data, got, err := Load(fsys, "/a.tar")
			require.NoError(t, err)
			assert.Equal(t, c, got)
			assert.Equal(t, raw, data)
			assert.Equal(t, Sum(raw), Sum(data))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, _, err := Load(afero.NewMemMapFs(), "/missing.tar")
	assert.Error(t, err)
}

func TestDecompressCorruptFrame(t *testing.T) {
	t.Parallel()

	bad := append(append([]byte{}, zstdMagic...), 0xde, 0xad, 0xbe, 0xef)
	_, c, err := Decompress(bad)
	assert.Error(t, err)
	assert.Equal(t, CompressionZstd, c)
}

func TestParseCompression(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"none", "zstd", "lz4"} {
		c, err := ParseCompression(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.String())
	}
	_, err := ParseCompression("brotli")
	assert.Error(t, err)
}

func TestDigest(t *testing.T) {
	t.Parallel()

	a := Sum([]byte("romfs"))
	b := Sum([]byte("romfs"))
	c := Sum([]byte("romfs!"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a.String(), 64)
}
