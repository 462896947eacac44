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

// Package vfs exposes a mounted archive tree through POSIX-shaped
// operations: open, read, seek, stat, chdir and directory iteration.
//
// A RomFS performs no locking. The tree is immutable once built, so
// concurrent reads through distinct File and Dir values are safe; the current
// directory is a single mutable value and callers that Chdir while other
// goroutines resolve relative paths must synchronize themselves.
package vfs

import (
	"os"

	log "github.com/sirupsen/logrus"

	"romfs/internal/tree"
)

const writeFlags = os.O_WRONLY | os.O_RDWR | os.O_APPEND | os.O_TRUNC

// RomFS is a read-only filesystem over a tree.
type RomFS struct {
	tree *tree.Tree
	cwd  tree.Ino
}

// New returns a RomFS over t with the current directory at the root.
func New(t *tree.Tree) *RomFS {
	return &RomFS{tree: t, cwd: tree.RootIno}
}

// Tree returns the underlying tree.
func (fs *RomFS) Tree() *tree.Tree {
	return fs.tree
}

func (fs *RomFS) resolve(path string) (*tree.Node, bool) {
	ino, ok := fs.tree.Resolve(fs.cwd, path)
	if !ok {
		return nil, false
	}
	return fs.tree.Node(ino), true
}

// Open opens the regular file at path for reading.
//
// A missing path yields ENOENT, or EROFS when O_CREATE was requested.
// O_CREATE|O_EXCL on an existing entry yields EEXIST, directories yield
// EINVAL, and any write access mode yields EROFS.
func (fs *RomFS) Open(path string, flags int) (f *File, err error) {
	defer recoverPanic("Open", &err)
	log.Debugf("[ROMFS] Open: path=%q flags=%#x", path, flags)

	n, ok := fs.resolve(path)
	if !ok {
		if flags&os.O_CREATE != 0 {
			return nil, EROFS
		}
		return nil, ENOENT
	}
	if flags&os.O_CREATE != 0 && flags&os.O_EXCL != 0 {
		return nil, EEXIST
	}

	switch p := n.Payload.(type) {
	case *tree.Dir:
		return nil, EINVAL
	case *tree.File:
		if flags&writeFlags != 0 {
			return nil, EROFS
		}
		return &File{name: path, node: n, content: p.Content}, nil
	}
	return nil, EIO
}

// Stat returns the attributes of the entry at path.
func (fs *RomFS) Stat(path string) (st *Stat, err error) {
	defer recoverPanic("Stat", &err)

	n, ok := fs.resolve(path)
	if !ok {
		return nil, ENOENT
	}
	return statNode(n), nil
}

// Chdir makes the directory at path the base for relative paths.
func (fs *RomFS) Chdir(path string) (err error) {
	defer recoverPanic("Chdir", &err)
	log.Debugf("[ROMFS] Chdir: path=%q", path)

	n, ok := fs.resolve(path)
	if !ok {
		return ENOENT
	}
	if !n.IsDir() {
		return EINVAL
	}
	fs.cwd = n.Ino
	return nil
}

// Getwd returns the absolute path of the current directory.
func (fs *RomFS) Getwd() string {
	return fs.tree.Path(fs.cwd)
}

// OpenDir opens the directory at path for iteration.
func (fs *RomFS) OpenDir(path string) (d *Dir, err error) {
	defer recoverPanic("OpenDir", &err)
	log.Debugf("[ROMFS] OpenDir: path=%q", path)

	n, ok := fs.resolve(path)
	if !ok {
		return nil, ENOENT
	}
	if !n.IsDir() {
		return nil, EINVAL
	}
	return openDir(fs.tree, n), nil
}

// ReadDir lists the children of the directory at path, without "." and "..".
func (fs *RomFS) ReadDir(path string) ([]DirEntry, error) {
	d, err := fs.OpenDir(path)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	entries := make([]DirEntry, 0, len(d.children))
	for _, n := range d.children {
		entries = append(entries, DirEntry{name: n.Name, node: n})
	}
	return entries, nil
}
