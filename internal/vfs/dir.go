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

import "romfs/internal/tree"

// Dir is a directory iteration cursor.
type Dir struct {
	node     *tree.Node
	parent   *tree.Node
	children []*tree.Node
	// 0 yields ".", 1 yields "..", then children[pos-2].
	pos int
}

func openDir(t *tree.Tree, n *tree.Node) *Dir {
	inos := t.Children(n.Ino)
	children := make([]*tree.Node, len(inos))
	for i, ino := range inos {
		children[i] = t.Node(ino)
	}
	return &Dir{node: n, parent: t.Node(n.Parent), children: children}
}

// Node returns the directory being iterated.
func (d *Dir) Node() *tree.Node {
	return d.node
}

// Next returns ".", "..", then each child. After the last child it returns
// ENOENT.
func (d *Dir) Next() (DirEntry, error) {
	switch d.pos {
	case 0:
		d.pos++
		return DirEntry{name: ".", node: d.node}, nil
	case 1:
		d.pos++
		return DirEntry{name: "..", node: d.parent}, nil
	}
	i := d.pos - 2
	if i >= len(d.children) {
		return DirEntry{}, ENOENT
	}
	d.pos++
	n := d.children[i]
	return DirEntry{name: n.Name, node: n}, nil
}

// Reset rewinds the cursor to ".".
func (d *Dir) Reset() {
	d.pos = 0
}

// Close is a no-op; a cursor holds no resources.
func (d *Dir) Close() error {
	return nil
}
