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
	"math"

	"romfs/internal/tree"
)

// File is an open regular file. Reads are served straight from the archive
// buffer. A File is not safe for concurrent use; ReadAt is, since it does not
// touch the cursor.
type File struct {
	name    string
	node    *tree.Node
	content []byte
	offset  int64
	closed  bool
}

// Name returns the path the file was opened with.
func (f *File) Name() string {
	return f.name
}

// Ino returns the file's inode number.
func (f *File) Ino() uint64 {
	return uint64(f.node.Ino)
}

// Size returns the file length.
func (f *File) Size() int64 {
	return int64(len(f.content))
}

// Read copies up to len(p) bytes from the current offset, never past the
// end of the file. At or beyond the end it returns 0, io.EOF; io.EOF is the
// only error a read on an open file reports.
func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, EBADF
	}
	if f.offset >= int64(len(f.content)) {
		return 0, io.EOF
	}
	n := copy(p, f.content[f.offset:])
	f.offset += int64(n)
	return n, nil
}

// ReadAt reads from off without moving the cursor.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, EBADF
	}
	if off < 0 {
		return 0, EINVAL
	}
	if off >= int64(len(f.content)) {
		return 0, io.EOF
	}
	n := copy(p, f.content[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Seek sets the offset for the next Read. Negative results are EINVAL and
// results beyond the int64 range are EOVERFLOW; offsets past the end of the
// file are allowed.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, EBADF
	}
	var start int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		start = f.offset
	case io.SeekEnd:
		start = int64(len(f.content))
	default:
		return 0, EINVAL
	}
	if offset > 0 && start > math.MaxInt64-offset {
		return 0, EOVERFLOW
	}
	pos := start + offset
	if pos < 0 {
		return 0, EINVAL
	}
	f.offset = pos
	return pos, nil
}

// Stat returns the file's attributes.
func (f *File) Stat() (*Stat, error) {
	if f.closed {
		return nil, EBADF
	}
	return statNode(f.node), nil
}

// Close releases the file. Closing twice yields EBADF.
func (f *File) Close() error {
	if f.closed {
		return EBADF
	}
	f.closed = true
	return nil
}

var (
	_ io.ReadSeekCloser = (*File)(nil)
	_ io.ReaderAt       = (*File)(nil)
)
