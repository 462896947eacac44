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

//go:build linux || darwin

package daemon

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fuseAvailable checks whether /dev/fuse is accessible. Tests that
// need a real FUSE mount call this and skip if the device is absent.
func fuseAvailable(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/dev/fuse"); err != nil {
		t.Skip("skipping: /dev/fuse not available")
	}
}

func testFUSEMount(t *testing.T) string {
	t.Helper()
	fuseAvailable(t)

	mountpoint := filepath.Join(t.TempDir(), "mnt")
	srv, err := NewFUSEServer(newTestController(t).FS(), FUSEOptions{Timeout: time.Second})
	require.NoError(t, err)
	if err := srv.Mount(mountpoint); err != nil {
		t.Skipf("skipping: FUSE mount unavailable: %v", err)
	}
	t.Cleanup(srv.Shutdown)
	return mountpoint
}

func TestFUSEListing(t *testing.T) {
	mountpoint := testFUSEMount(t)

	entries, err := os.ReadDir(mountpoint)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"docs", "hello.txt"}, names)

	var walked []string
	err = filepath.WalkDir(mountpoint, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(mountpoint, p)
		walked = append(walked, rel)
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{".", "docs", "docs/readme.txt", "docs/deep", "docs/deep/leaf.txt", "hello.txt"}, walked)
}

func TestFUSEReadAndStat(t *testing.T) {
	mountpoint := testFUSEMount(t)

	got, err := os.ReadFile(filepath.Join(mountpoint, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Hello World!\n", string(got))

	got, err = os.ReadFile(filepath.Join(mountpoint, "docs", "deep", "leaf.txt"))
	require.NoError(t, err)
	assert.Equal(t, "leaf", string(got))

	fi, err := os.Stat(filepath.Join(mountpoint, "docs"))
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
	assert.Equal(t, fs.FileMode(0o555), fi.Mode().Perm())

	fi, err = os.Stat(filepath.Join(mountpoint, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, int64(13), fi.Size())
	assert.Equal(t, fs.FileMode(0o444), fi.Mode().Perm())
	assert.Equal(t, testMtime.Unix(), fi.ModTime().Unix())

	_, err = os.Stat(filepath.Join(mountpoint, "missing"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestFUSEWritesRejected(t *testing.T) {
	mountpoint := testFUSEMount(t)

	err := os.WriteFile(filepath.Join(mountpoint, "new.txt"), []byte("x"), 0o644)
	assert.Error(t, err)

	_, err = os.OpenFile(filepath.Join(mountpoint, "hello.txt"), os.O_WRONLY, 0)
	assert.True(t, errors.Is(err, syscall.EROFS), "got %v", err)

	assert.Error(t, os.Remove(filepath.Join(mountpoint, "hello.txt")))
	assert.Error(t, os.Mkdir(filepath.Join(mountpoint, "dir"), 0o755))
}
