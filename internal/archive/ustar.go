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

// Package archive decodes USTAR archives held entirely in memory.
//
// Decoding is zero-copy: every Entry's Content is a subslice of the buffer
// passed to NewReader, so the buffer must stay alive as long as any entry
// (or anything built from one) is in use.
package archive

import "bytes"

// BlockSize is the USTAR record size.
const BlockSize = 512

// Header field offsets and widths.
const (
	nameOff     = 0
	nameLen     = 100
	sizeOff     = 124
	mtimeOff    = 136
	numLen      = 12
	typeOff     = 156
	magicOff    = 257
	magicLen    = 5
	prefixOff   = 345
	prefixLen   = 155
	octalDigits = 11
)

var ustarMagic = []byte("ustar")

// Kind classifies an archive entry.
type Kind uint8

const (
	KindFile Kind = iota
	KindDir
)

func (k Kind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// Entry is one directory or regular-file member of an archive.
type Entry struct {
	Name    string
	Kind    Kind
	Size    int64
	ModTime int64
	// Offset of the member's content within the archive buffer.
	Offset int
	// Content aliases the archive buffer; do not modify.
	Content []byte
}

// Reader walks the headers of an in-memory archive.
type Reader struct {
	data    []byte
	off     int
	skipped int
	done    bool
}

// NewReader returns a Reader positioned at the first header of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Next returns the next directory or regular-file entry. It returns false at
// the first header without the ustar magic, or when a header or its content
// would extend past the end of the buffer. Other member types are skipped.
func (r *Reader) Next() (Entry, bool) {
	for !r.done {
		if len(r.data)-r.off < BlockSize {
			r.done = true
			break
		}
		hdr := r.data[r.off : r.off+BlockSize]
		if !bytes.Equal(hdr[magicOff:magicOff+magicLen], ustarMagic) {
			r.done = true
			break
		}

		size := parseOctal(hdr[sizeOff : sizeOff+numLen])
		start := r.off + BlockSize
		if size > int64(len(r.data)-start) {
			r.done = true
			break
		}
		blocks := (size + BlockSize - 1) / BlockSize
		next := int64(start) + blocks*BlockSize
		if next > int64(len(r.data)) {
			// Padding of the final member may be missing.
			next = int64(len(r.data))
		}
		r.off = int(next)

		var kind Kind
		switch hdr[typeOff] {
		case '0', 0:
			kind = KindFile
		case '5':
			kind = KindDir
		default:
			r.skipped++
			continue
		}

		return Entry{
			Name:    headerName(hdr),
			Kind:    kind,
			Size:    size,
			ModTime: parseOctal(hdr[mtimeOff : mtimeOff+numLen]),
			Offset:  start,
			Content: r.data[start : start+int(size) : start+int(size)],
		}, true
	}
	return Entry{}, false
}

// Skipped reports how many members of unsupported types were passed over.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Entries decodes every supported entry in data.
func Entries(data []byte) []Entry {
	var out []Entry
	r := NewReader(data)
	for e, ok := r.Next(); ok; e, ok = r.Next() {
		out = append(out, e)
	}
	return out
}

func headerName(hdr []byte) string {
	name := cstring(hdr[nameOff : nameOff+nameLen])
	if prefix := cstring(hdr[prefixOff : prefixOff+prefixLen]); prefix != "" {
		return prefix + "/" + name
	}
	return name
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// parseOctal decodes a numeric header field. Leading spaces and NULs are
// ignored and parsing stops at the first non-octal byte.
func parseOctal(b []byte) int64 {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == 0) {
		i++
	}
	var n int64
	for digits := 0; i < len(b) && digits < octalDigits; i, digits = i+1, digits+1 {
		c := b[i]
		if c < '0' || c > '7' {
			break
		}
		n = n<<3 | int64(c-'0')
	}
	return n
}
