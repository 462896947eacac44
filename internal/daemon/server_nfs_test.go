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

package daemon

import (
	"errors"
	"io"
	"os"
	"testing"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	nfsfile "github.com/willscott/go-nfs/file"

	"romfs/internal/vfs"
)

func TestBillyAdapterStat(t *testing.T) {
	b := NewBillyAdapter(newTestController(t).FS())

	tests := []struct {
		path  string
		name  string
		isDir bool
		size  int64
		mode  os.FileMode
	}{
		{"/", "/", true, 0, os.ModeDir | 0555},
		{"", ".", true, 0, os.ModeDir | 0555},
		{"docs", "docs", true, 0, os.ModeDir | 0555},
		{"/docs/readme.txt", "readme.txt", false, 8, 0444},
		{"docs/deep/leaf.txt", "leaf.txt", false, 4, 0444},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			fi, err := b.Stat(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.name, fi.Name())
			assert.Equal(t, tt.isDir, fi.IsDir())
			assert.Equal(t, tt.size, fi.Size())
			assert.Equal(t, tt.mode, fi.Mode())
			assert.Equal(t, testMtime.Unix(), fi.ModTime().Unix())

			sys, ok := fi.Sys().(*nfsfile.FileInfo)
			require.True(t, ok, "Sys() must be *nfsfile.FileInfo")
			assert.Equal(t, uint32(1), sys.Nlink)
			assert.NotZero(t, sys.Fileid)
		})
	}

	_, err := b.Stat("/missing")
	assert.True(t, os.IsNotExist(err))
	_, err = b.Lstat("/docs/missing")
	assert.True(t, errors.Is(err, vfs.ENOENT))
}

func TestBillyAdapterIgnoresWorkingDirectory(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.FS().Chdir("/docs"))
	b := NewBillyAdapter(c.FS())

	fi, err := b.Stat("hello.txt")
	require.NoError(t, err)
	assert.False(t, fi.IsDir())
}

func TestBillyAdapterFileIDsAreUnique(t *testing.T) {
	b := NewBillyAdapter(newTestController(t).FS())

	seen := map[uint64]string{}
	for _, p := range []string{"/", "/docs", "/docs/readme.txt", "/docs/deep", "/docs/deep/leaf.txt", "/hello.txt"} {
		fi, err := b.Stat(p)
		require.NoError(t, err)
		id := fi.Sys().(*nfsfile.FileInfo).Fileid
		if prev, dup := seen[id]; dup {
			t.Fatalf("fileid %d shared by %s and %s", id, prev, p)
		}
		seen[id] = p
	}
}

func TestBillyAdapterReadDir(t *testing.T) {
	b := NewBillyAdapter(newTestController(t).FS())

	infos, err := b.ReadDir("/")
	require.NoError(t, err)
	var names []string
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	assert.ElementsMatch(t, []string{"docs", "hello.txt"}, names)

	infos, err = b.ReadDir("docs")
	require.NoError(t, err)
	require.Len(t, infos, 2)

	_, err = b.ReadDir("/hello.txt")
	assert.Error(t, err)
	_, err = b.ReadDir("/nope")
	assert.True(t, os.IsNotExist(err))
}

func TestBillyFileRead(t *testing.T) {
	b := NewBillyAdapter(newTestController(t).FS())

	f, err := b.Open("/hello.txt")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "/hello.txt", f.Name())

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "Hello World!\n", string(data))

	buf := make([]byte, 5)
	n, err := f.ReadAt(buf, 6)
	require.NoError(t, err)
	assert.Equal(t, "World", string(buf[:n]))

	pos, err := f.Seek(-6, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(7), pos)

	_, err = f.Write([]byte("x"))
	assert.True(t, errors.Is(err, vfs.EROFS))
	assert.True(t, errors.Is(f.Truncate(0), vfs.EROFS))
	assert.NoError(t, f.Lock())
	assert.NoError(t, f.Unlock())
}

func TestBillyUtilReadFile(t *testing.T) {
	b := NewBillyAdapter(newTestController(t).FS())

	data, err := util.ReadFile(b, "docs/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, "read me\n", string(data))

	var walked []string
	err = util.Walk(b, "/", func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		walked = append(walked, p)
		return nil
	})
	require.NoError(t, err)
	assert.Contains(t, walked, "/docs/deep/leaf.txt")
}

func TestBillyAdapterIsReadOnly(t *testing.T) {
	b := NewBillyAdapter(newTestController(t).FS())

	assert.Equal(t, billy.ReadCapability|billy.SeekCapability, b.Capabilities())
	assert.False(t, billy.CapabilityCheck(b, billy.WriteCapability))

	_, err := b.Create("/new.txt")
	assert.True(t, errors.Is(err, vfs.EROFS))
	_, err = b.OpenFile("/hello.txt", os.O_RDWR, 0)
	assert.True(t, errors.Is(err, vfs.EROFS))
	_, err = b.OpenFile("/new.txt", os.O_CREATE|os.O_WRONLY, 0644)
	assert.True(t, errors.Is(err, vfs.EROFS))
	_, err = b.TempFile("/", "tmp")
	assert.True(t, errors.Is(err, vfs.EROFS))

	for name, err := range map[string]error{
		"Remove":   b.Remove("/hello.txt"),
		"Rename":   b.Rename("/hello.txt", "/bye.txt"),
		"MkdirAll": b.MkdirAll("/a/b", 0755),
		"Symlink":  b.Symlink("/hello.txt", "/link"),
		"Chmod":    b.Chmod("/hello.txt", 0644),
		"Chown":    b.Chown("/hello.txt", 0, 0),
		"Lchown":   b.Lchown("/hello.txt", 0, 0),
		"Chtimes":  b.Chtimes("/hello.txt", time.Now(), time.Now()),
	} {
		assert.Truef(t, errors.Is(err, vfs.EROFS), "%s: got %v", name, err)
	}

	_, err = b.Readlink("/hello.txt")
	assert.True(t, errors.Is(err, vfs.EINVAL))
	_, err = b.Chroot("/docs")
	assert.Error(t, err)
	assert.Equal(t, "/", b.Root())
	assert.Equal(t, "docs/readme.txt", b.Join("docs", "readme.txt"))
}

func TestNFSServerServeShutdown(t *testing.T) {
	srv := NewNFSServer(newTestController(t).FS())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve("127.0.0.1:0") }()

	require.Eventually(t, func() bool { return srv.Addr() != nil }, 5*time.Second, 10*time.Millisecond)
	srv.Shutdown()
	srv.Shutdown()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}
