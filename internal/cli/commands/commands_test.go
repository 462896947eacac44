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

package commands

import (
	"archive/tar"
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"romfs/internal/archive"
	"romfs/internal/artifacts"
	"romfs/internal/common"
	"romfs/internal/daemon"
	"romfs/internal/device"
)

const sampleGreeting = "Hello World!\nThis file lives in the romfs sample archive.\n"

// execute runs the command tree with fresh flag state and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func writeArchive(t *testing.T, files map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, body := range files {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(body)), ModTime: time.Unix(1700000000, 0), Typeflag: tar.TypeReg, Format: tar.FormatUSTAR}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	path := filepath.Join(t.TempDir(), "test.tar")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestHello(t *testing.T) {
	out, err := execute(t, "hello")
	require.NoError(t, err)
	assert.Equal(t, sampleGreeting, out)

	// Exit unmounted the sample, so it can be mounted again.
	out, err = execute(t, "hello")
	require.NoError(t, err)
	assert.Equal(t, sampleGreeting, out)
}

func TestLs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"root", []string{"ls"}, "docs/\nhelloworld.txt\n"},
		{"labelled", []string{"ls", "romfs:/docs"}, "README.txt\nnested/\n"},
		{"relative", []string{"ls", "docs/nested"}, "deep/\n"},
		{"dots", []string{"ls", "--all", "docs/nested/deep"}, ".\n..\nleaf.txt\n"},
		{"file", []string{"ls", "helloworld.txt"}, "helloworld.txt\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestLsLong(t *testing.T) {
	out, err := execute(t, "ls", "-l", "/")
	require.NoError(t, err)
	assert.Contains(t, out, "dr--r--r--")
	assert.Contains(t, out, "-r--r--r--       58 2025-10-14 00:00 helloworld.txt")
}

func TestLsMissing(t *testing.T) {
	_, err := execute(t, "ls", "/nope")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestCat(t *testing.T) {
	out, err := execute(t, "cat", "helloworld.txt", "romfs:/docs/nested/deep/leaf.txt")
	require.NoError(t, err)
	assert.Equal(t, sampleGreeting+"leaf\n", out)

	_, err = execute(t, "cat", "docs")
	assert.ErrorIs(t, err, common.ErrIsDir)

	_, err = execute(t, "cat", "/missing.txt")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = execute(t, "cat", "other:/helloworld.txt")
	assert.ErrorIs(t, err, common.ErrInvalidPath)

	_, err = execute(t, "cat", " ")
	assert.ErrorIs(t, err, common.ErrInvalidPath)
}

func TestStat(t *testing.T) {
	out, err := execute(t, "stat", "helloworld.txt", "docs")
	require.NoError(t, err)
	assert.Contains(t, out, "  File: helloworld.txt\n")
	assert.Contains(t, out, "  Size: 58         Blocks: 1      IO Block: 512   regular file\n")
	assert.Contains(t, out, "Access: (0100444/-r--r--r--)\n")
	assert.Contains(t, out, "Access: (040444/dr--r--r--)\n")
	assert.Contains(t, out, "Modify: 2025-10-14T00:00:00Z\n")
}

func TestTree(t *testing.T) {
	out, err := execute(t, "tree")
	require.NoError(t, err)
	assert.Contains(t, out, "romfs:/\n")
	assert.Contains(t, out, "      deep/\n        leaf.txt\n")
	assert.Contains(t, out, "3 directories, 3 files\n")

	out, err = execute(t, "tree", "-L", "1")
	require.NoError(t, err)
	assert.NotContains(t, out, "README.txt")
	assert.Contains(t, out, "1 directories, 1 files\n")
}

func TestInfo(t *testing.T) {
	digest := archive.Sum(artifacts.SampleArchive).String()

	t.Run("text", func(t *testing.T) {
		out, err := execute(t, "info")
		require.NoError(t, err)
		assert.Contains(t, out, "Source: embedded sample\n")
		assert.Contains(t, out, "Compression: none\n")
		assert.Contains(t, out, "BLAKE3: "+digest+"\n")
		assert.Contains(t, out, "Entries: 4 (skipped 0, dropped 0)\n")
		assert.Contains(t, out, "Nodes: 7\n")
	})

	t.Run("yaml", func(t *testing.T) {
		out, err := execute(t, "info", "--format", "yaml")
		require.NoError(t, err)
		var m Manifest
		require.NoError(t, yaml.Unmarshal([]byte(out), &m))
		assert.Equal(t, digest, m.Digest)
		assert.Equal(t, "romfs", m.Device)
		assert.Equal(t, int64(160), m.Stats.Bytes)
		assert.NotEmpty(t, m.MountID)
	})

	t.Run("cbor", func(t *testing.T) {
		out, err := execute(t, "info", "--format", "CBOR")
		require.NoError(t, err)
		var m Manifest
		require.NoError(t, cbor.Unmarshal([]byte(out), &m))
		assert.Equal(t, digest, m.Digest)
		assert.Equal(t, 7, m.Stats.Nodes)
		assert.Equal(t, len(artifacts.SampleArchive), m.Size)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := execute(t, "info", "--format", "xml")
		assert.Error(t, err)
	})
}

func TestArchiveFlag(t *testing.T) {
	path := writeArchive(t, map[string]string{"a/b.txt": "bee"})

	out, err := execute(t, "--archive", path, "cat", "a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "bee", out)

	out, err = execute(t, "-a", path, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "Source: "+path+"\n")

	_, err = execute(t, "--archive", filepath.Join(t.TempDir(), "missing.tar"), "ls")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestPackThenBrowse(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "site", "assets"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "site", "index.html"), []byte("<h1>hi</h1>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "site", "assets", "app.js"), []byte("run()"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "site", "notes.tmp"), []byte("scratch"), 0644))
	output := filepath.Join(t.TempDir(), "site.tar.zst")

	out, err := execute(t, "pack", "--compression", "zstd", "--exclude", "notes.tmp", filepath.Join(src, "site"), output)
	require.NoError(t, err)
	assert.Contains(t, out, "2 files")

	out, err = execute(t, "-a", output, "ls", "/")
	require.NoError(t, err)
	assert.Equal(t, "assets/\nindex.html\n", out)

	out, err = execute(t, "-a", output, "cat", "assets/app.js")
	require.NoError(t, err)
	assert.Equal(t, "run()", out)

	out, err = execute(t, "-a", output, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "Compression: zstd\n")
}

func TestPackMissingRoot(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out.tar")
	_, err := execute(t, "pack", filepath.Join(t.TempDir(), "nope"), output)
	assert.Error(t, err)
	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "failed pack should not leave an archive behind")
}

func TestExtract(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out")
	out, err := execute(t, "extract", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "Extracted 4 directories, 3 files")

	data, err := os.ReadFile(filepath.Join(dest, "helloworld.txt"))
	require.NoError(t, err)
	assert.Equal(t, sampleGreeting, string(data))

	info, err := os.Stat(filepath.Join(dest, "docs"))
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1760400000, 0).Unix(), info.ModTime().Unix())

	sub := filepath.Join(t.TempDir(), "sub")
	_, err = execute(t, "extract", "--path", "romfs:/docs/nested", sub)
	require.NoError(t, err)
	data, err = os.ReadFile(filepath.Join(sub, "deep", "leaf.txt"))
	require.NoError(t, err)
	assert.Equal(t, "leaf\n", string(data))
}

func TestStatusNotServing(t *testing.T) {
	t.Setenv("ROMFS_CONFIG_DIR", t.TempDir())

	out, err := execute(t, "status", "--share", "nobody")
	require.NoError(t, err)
	assert.Equal(t, "Share nobody: not serving\n", out)

	out, err = execute(t, "stop")
	require.NoError(t, err)
	assert.Equal(t, "Share romfs: not serving\n", out)
}

func TestStatusAndStopRunningServe(t *testing.T) {
	t.Setenv("ROMFS_CONFIG_DIR", t.TempDir())
	settings := &daemon.Settings{Listen: "127.0.0.1:0", ShareName: "clitest"}
	settings.ApplyDefaults()

	d := daemon.New(settings, artifacts.SampleArchive, device.NewTable())
	d.LogToStderr = true
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run() }()
	select {
	case <-d.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not become ready")
	}

	out, err := execute(t, "status", "--share", "clitest")
	require.NoError(t, err)
	assert.Contains(t, out, "Share clitest: serving (PID")
	assert.Contains(t, out, "Export: nfs at 127.0.0.1:0\n")
	assert.Contains(t, out, "Nodes: 7, content: 160 bytes\n")

	out, err = execute(t, "stop", "--share", "clitest")
	require.NoError(t, err)
	assert.Contains(t, out, "Share clitest: stopped\n")

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestDetachArgs(t *testing.T) {
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })
	require.NoError(t, serveCmd.Flags().Set("detach", "true"))
	require.NoError(t, serveCmd.Flags().Set("listen", "127.0.0.1:2049"))
	require.NoError(t, serveCmd.Flags().Set("export", "NFS"))

	args := detachArgs(serveCmd)
	assert.Equal(t, "serve", args[0])
	assert.ElementsMatch(t, []string{"--listen=127.0.0.1:2049", "--export=nfs"}, args[1:])
}

func TestServeRejectsBadExport(t *testing.T) {
	t.Setenv("ROMFS_CONFIG_DIR", t.TempDir())
	_, err := execute(t, "serve", "--export", "ftp")
	assert.Error(t, err)

	// fuse without a mount point fails validation before anything is served.
	_, err = execute(t, "serve", "--export", "fuse", "--mount-point", "")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	SetVersion("1.2.3", "abc123", "1700000000")
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "romfs version 1.2.3 (2023-11-14)\n", out)

	SetVersion("1.2.4-dev", "abc123", "1700000000")
	assert.Equal(t, "1.2.4-dev (2023-11-14, epoch: 1700000000, commit: abc123)", getVersionString())
	assert.Equal(t, "not-a-date", formatBuildDate("not-a-date"))
}

func TestEnumValue(t *testing.T) {
	t.Parallel()
	e := newEnumValue("text", "text", "yaml")
	assert.Equal(t, "text", e.String())
	require.NoError(t, e.Set("YAML"))
	assert.Equal(t, "yaml", e.String())
	assert.ErrorContains(t, e.Set("xml"), "must be one of text, yaml")
	assert.Equal(t, "yaml", e.String())
}
