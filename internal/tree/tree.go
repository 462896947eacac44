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

// Package tree holds the directory hierarchy of a mounted archive.
//
// Nodes live in an arena indexed by inode number, so parent and child links
// are plain integers and teardown is a single slice reset. A tree is built
// once by Insert calls and is read-only afterwards; it does no locking.
package tree

import (
	log "github.com/sirupsen/logrus"

	"romfs/internal/common"
)

// Ino identifies a node; it is also the node's index in the arena.
type Ino uint64

// RootIno is the inode of the root directory.
const RootIno Ino = 0

// Kind is the type of a node.
type Kind uint8

const (
	KindFile Kind = iota
	KindDir
)

// Payload is the kind-specific part of a node: *File or *Dir.
type Payload interface {
	kind() Kind
}

// File is the payload of a regular file. Content aliases the archive.
type File struct {
	Content []byte
}

// Dir is the payload of a directory.
type Dir struct {
	// Children in creation order.
	Children []Ino
	byName   map[string]Ino
}

func (*File) kind() Kind { return KindFile }
func (*Dir) kind() Kind  { return KindDir }

// Node is one file or directory.
type Node struct {
	Name    string
	Ino     Ino
	Parent  Ino // RootIno for the root itself
	ModTime int64
	Payload Payload

	// implicit marks a directory created only as an ancestor of another entry.
	implicit bool
}

// Kind returns the node's kind.
func (n *Node) Kind() Kind { return n.Payload.kind() }

// IsDir reports whether n is a directory.
func (n *Node) IsDir() bool { return n.Kind() == KindDir }

// Size is the content length for files and zero for directories.
func (n *Node) Size() int64 {
	switch p := n.Payload.(type) {
	case *File:
		return int64(len(p.Content))
	case *Dir:
		return 0
	}
	return 0
}

// Tree is an arena of nodes rooted at RootIno.
type Tree struct {
	nodes []Node
}

// New returns a tree holding only the root directory.
func New() *Tree {
	t := &Tree{}
	t.Reset()
	return t
}

// Reset drops every node but a fresh root and restarts inode numbering.
func (t *Tree) Reset() {
	t.nodes = append(t.nodes[:0:0], Node{
		Ino:      RootIno,
		Parent:   RootIno,
		Payload:  newDir(),
		implicit: true,
	})
}

// Len is the number of nodes, root included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns the node for ino, or nil if ino is not allocated.
func (t *Tree) Node(ino Ino) *Node {
	if ino >= Ino(len(t.nodes)) {
		return nil
	}
	return &t.nodes[ino]
}

// Root returns the root directory.
func (t *Tree) Root() *Node {
	return &t.nodes[RootIno]
}

// Lookup finds the child called name in directory dir.
func (t *Tree) Lookup(dir Ino, name string) (Ino, bool) {
	n := t.Node(dir)
	if n == nil {
		return 0, false
	}
	d, ok := n.Payload.(*Dir)
	if !ok {
		return 0, false
	}
	ino, ok := d.byName[name]
	return ino, ok
}

// Children returns the children of dir, most recently created first.
func (t *Tree) Children(dir Ino) []Ino {
	n := t.Node(dir)
	if n == nil {
		return nil
	}
	d, ok := n.Payload.(*Dir)
	if !ok {
		return nil
	}
	out := make([]Ino, len(d.Children))
	for i, c := range d.Children {
		out[len(out)-1-i] = c
	}
	return out
}

// Insert adds path to the tree, creating missing ancestors as directories.
// Existing nodes along the path are reused and never overwritten. It returns
// the inode of the final node, or false if the entry could not be placed as
// declared: the path passes through a regular file, or names an existing
// node of the other kind.
func (t *Tree) Insert(path string, kind Kind, mtime int64, content []byte) (Ino, bool) {
	segs := common.Segments(path)
	cur := RootIno
	for i, seg := range segs {
		parent := t.Node(cur)
		d, ok := parent.Payload.(*Dir)
		if !ok {
			log.Debugf("[Tree] Insert %q: %q is not a directory", path, parent.Name)
			return 0, false
		}

		switch seg {
		case ".":
			continue
		case "..":
			cur = parent.Parent
			continue
		}

		last := i == len(segs)-1
		if ino, ok := t.Lookup(cur, seg); ok {
			cur = ino
			n := t.Node(cur)
			if last && kind == KindDir && n.implicit {
				n.ModTime = mtime
				n.implicit = false
			}
			continue
		}

		n := Node{Name: seg, Parent: cur}
		switch {
		case !last:
			n.Payload = newDir()
			n.implicit = true
		case kind == KindDir:
			n.Payload = newDir()
			n.ModTime = mtime
		default:
			n.Payload = &File{Content: content}
			n.ModTime = mtime
		}
		cur = t.add(d, n)
	}

	if n := t.Node(cur); n.Kind() != kind {
		log.Debugf("[Tree] Insert %q: existing %s kept", path, kindName(n.Kind()))
		return cur, false
	}
	return cur, true
}

func (t *Tree) add(parent *Dir, n Node) Ino {
	n.Ino = Ino(len(t.nodes))
	t.nodes = append(t.nodes, n)
	parent.Children = append(parent.Children, n.Ino)
	parent.byName[n.Name] = n.Ino
	return n.Ino
}

// Resolve walks path from the root when it is absolute and from cwd
// otherwise. A leading "label:" is discarded. Excess ".." stops at the root.
// Every segment, "." and ".." included, must be applied to a directory.
func (t *Tree) Resolve(cwd Ino, path string) (Ino, bool) {
	path = common.StripLabel(path)
	cur := cwd
	if common.IsAbs(path) || t.Node(cur) == nil {
		cur = RootIno
	}
	for _, seg := range common.Segments(path) {
		n := t.Node(cur)
		if _, ok := n.Payload.(*Dir); !ok {
			return 0, false
		}
		switch seg {
		case ".":
			continue
		case "..":
			cur = n.Parent
			continue
		}
		ino, ok := t.Lookup(cur, seg)
		if !ok {
			return 0, false
		}
		cur = ino
	}
	return cur, true
}

// Path returns the absolute path of ino.
func (t *Tree) Path(ino Ino) string {
	var segs []string
	for n := t.Node(ino); n != nil && n.Ino != RootIno; n = t.Node(n.Parent) {
		segs = append(segs, n.Name)
	}
	p := ""
	for i := len(segs) - 1; i >= 0; i-- {
		p += "/" + segs[i]
	}
	if p == "" {
		return "/"
	}
	return p
}

// Walk visits every node depth first, parents before children, without
// recursion. Returning false from fn skips the node's children.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	type frame struct {
		ino   Ino
		depth int
	}
	stack := []frame{{RootIno, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := t.Node(f.ino)
		if !fn(n, f.depth) {
			continue
		}
		children := t.Children(f.ino)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{children[i], f.depth + 1})
		}
	}
}

func newDir() *Dir {
	return &Dir{byName: make(map[string]Ino)}
}

func kindName(k Kind) string {
	if k == KindDir {
		return "directory"
	}
	return "file"
}
