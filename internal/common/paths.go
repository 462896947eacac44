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

package common

import (
	"path"
	"strings"
)

// SplitLabel separates an optional "label:" device prefix from a path.
// Only the first ':' is significant; the label may be empty.
func SplitLabel(p string) (label, rest string, ok bool) {
	i := strings.IndexByte(p, ':')
	if i < 0 {
		return "", p, false
	}
	return p[:i], p[i+1:], true
}

// StripLabel drops the device label, if any.
func StripLabel(p string) string {
	_, rest, _ := SplitLabel(p)
	return rest
}

// Segments splits a path on '/' and drops empty components.
// Unlike path.Clean, "." and ".." are kept so callers can walk them
// against a tree where intermediate names may not exist.
func Segments(p string) []string {
	fields := strings.Split(p, "/")
	out := fields[:0]
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// IsAbs reports whether p (label already stripped) starts at the root.
func IsAbs(p string) bool {
	return strings.HasPrefix(p, "/")
}

// NormalizePath cleans and normalizes a path, removing leading/trailing slashes
func NormalizePath(p string) string {
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// AbsPath returns p as a rooted path, suitable for resolution that must not
// depend on the current directory.
func AbsPath(p string) string {
	return "/" + NormalizePath(p)
}

// BaseName returns the base name of a path
func BaseName(p string) string {
	p = NormalizePath(p)
	if p == "" {
		return ""
	}
	return path.Base(p)
}
