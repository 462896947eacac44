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

package vfs

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"

	"romfs/internal/tree"
)

// FileType represents the type of a filesystem entry
type FileType int

const (
	// FileTypeRegularFile is a regular file
	FileTypeRegularFile FileType = iota
	// FileTypeDirectory is a directory
	FileTypeDirectory
)

const (
	// BlockSize is reported as st_blksize.
	BlockSize = 512

	permBits = 0o444
)

// Stat mirrors the fields of a POSIX struct stat that romfs can fill.
// Access, modification and change times are all the archive mtime.
type Stat struct {
	Ino     uint64
	Mode    uint32
	Nlink   uint32
	Size    int64
	Blksize int64
	Blocks  int64
	Atime   int64
	Mtime   int64
	Ctime   int64
}

func statNode(n *tree.Node) *Stat {
	mode := uint32(unix.S_IFREG | permBits)
	if n.IsDir() {
		mode = unix.S_IFDIR | permBits
	}
	size := n.Size()
	return &Stat{
		Ino:     uint64(n.Ino),
		Mode:    mode,
		Nlink:   1,
		Size:    size,
		Blksize: BlockSize,
		// 512-byte units covering the content, not the one block a
		// st_blksize-based count would give.
		Blocks:  (size + BlockSize - 1) / BlockSize,
		Atime:   n.ModTime,
		Mtime:   n.ModTime,
		Ctime:   n.ModTime,
	}
}

// FileType returns the type encoded in Mode.
func (s *Stat) FileType() FileType {
	if s.Mode&unix.S_IFMT == unix.S_IFDIR {
		return FileTypeDirectory
	}
	return FileTypeRegularFile
}

// FileInfo returns s as an fs.FileInfo called name. Sys returns s.
func (s *Stat) FileInfo(name string) fs.FileInfo {
	return &fileInfo{name: name, st: s}
}

type fileInfo struct {
	name string
	st   *Stat
}

func (fi *fileInfo) Name() string       { return fi.name }
func (fi *fileInfo) Size() int64        { return fi.st.Size }
func (fi *fileInfo) ModTime() time.Time { return time.Unix(fi.st.Mtime, 0) }
func (fi *fileInfo) IsDir() bool        { return fi.st.FileType() == FileTypeDirectory }
func (fi *fileInfo) Sys() any           { return fi.st }

func (fi *fileInfo) Mode() fs.FileMode {
	if fi.IsDir() {
		return fs.ModeDir | permBits
	}
	return permBits
}

// DirEntry is one result of directory iteration. The synthetic "." and ".."
// entries carry the inode of the directory and of its parent.
type DirEntry struct {
	name string
	node *tree.Node
}

func (e DirEntry) Name() string { return e.name }

// Ino returns the entry's inode number.
func (e DirEntry) Ino() uint64 { return uint64(e.node.Ino) }

// FileType returns the entry's type as derived from its mode.
func (e DirEntry) FileType() FileType {
	if e.node.IsDir() {
		return FileTypeDirectory
	}
	return FileTypeRegularFile
}

func (e DirEntry) IsDir() bool { return e.node.IsDir() }

func (e DirEntry) Type() fs.FileMode {
	if e.node.IsDir() {
		return fs.ModeDir
	}
	return 0
}

// Info returns the stat of the node the entry refers to.
func (e DirEntry) Info() (fs.FileInfo, error) {
	return statNode(e.node).FileInfo(e.name), nil
}

// Stat returns the POSIX stat of the entry.
func (e DirEntry) Stat() *Stat {
	return statNode(e.node)
}

var (
	_ fs.FileInfo = (*fileInfo)(nil)
	_ fs.DirEntry = DirEntry{}
)
