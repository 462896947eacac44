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
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"

	"romfs/internal/tree"
)

// FS returns an io/fs view of r rooted at the archive root. Names follow
// io/fs rules (unrooted, slash separated) and never depend on the current
// directory. Directory listings omit "." and "..".
func (r *RomFS) FS() fs.FS {
	return &ioFS{r: r}
}

type ioFS struct {
	r *RomFS
}

func (v *ioFS) node(op, name string) (*tree.Node, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	ino, ok := v.r.tree.Resolve(tree.RootIno, "/"+name)
	if !ok {
		return nil, &fs.PathError{Op: op, Path: name, Err: ENOENT}
	}
	return v.r.tree.Node(ino), nil
}

func (v *ioFS) Open(name string) (fs.File, error) {
	n, err := v.node("open", name)
	if err != nil {
		return nil, err
	}
	switch p := n.Payload.(type) {
	case *tree.File:
		return &ioFile{File: File{name: name, node: n, content: p.Content}}, nil
	case *tree.Dir:
		return &ioDir{name: name, dir: openDir(v.r.tree, n)}, nil
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: EIO}
}

func (v *ioFS) Stat(name string) (fs.FileInfo, error) {
	n, err := v.node("stat", name)
	if err != nil {
		return nil, err
	}
	return statNode(n).FileInfo(path.Base(name)), nil
}

func (v *ioFS) ReadDir(name string) ([]fs.DirEntry, error) {
	n, err := v.node("readdir", name)
	if err != nil {
		return nil, err
	}
	if !n.IsDir() {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: ENOTDIR}
	}
	d := openDir(v.r.tree, n)
	entries := make([]fs.DirEntry, 0, len(d.children))
	for _, c := range d.children {
		entries = append(entries, DirEntry{name: c.Name, node: c})
	}
	slices.SortFunc(entries, func(a, b fs.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return entries, nil
}

type ioFile struct {
	File
}

func (f *ioFile) Stat() (fs.FileInfo, error) {
	st, err := f.File.Stat()
	if err != nil {
		return nil, err
	}
	return st.FileInfo(path.Base(f.name)), nil
}

type ioDir struct {
	name string
	dir  *Dir
	pos  int
}

func (d *ioDir) Stat() (fs.FileInfo, error) {
	return statNode(d.dir.node).FileInfo(path.Base(d.name)), nil
}

func (d *ioDir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: EISDIR}
}

func (d *ioDir) Close() error { return nil }

func (d *ioDir) ReadDir(count int) ([]fs.DirEntry, error) {
	rest := d.dir.children[d.pos:]
	if count > 0 && len(rest) == 0 {
		return nil, io.EOF
	}
	if count > 0 && count < len(rest) {
		rest = rest[:count]
	}
	d.pos += len(rest)
	entries := make([]fs.DirEntry, 0, len(rest))
	for _, c := range rest {
		entries = append(entries, DirEntry{name: c.Name, node: c})
	}
	return entries, nil
}

var (
	_ fs.StatFS      = (*ioFS)(nil)
	_ fs.ReadDirFS   = (*ioFS)(nil)
	_ fs.ReadDirFile = (*ioDir)(nil)
)
