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

package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// PackOptions controls how a directory tree is packed.
type PackOptions struct {
	Compression Compression
	Gitignore   bool
	Includes    []string
	Excludes    []string
}

// PackStats summarizes a Pack run.
type PackStats struct {
	Dirs     int
	Files    int
	Bytes    int64
	Filtered int
	Skipped  int // symlinks, devices and other non-regular members
}

// Pack writes the tree rooted at root in fsys to w as a USTAR archive.
// Directories are emitted before their contents.
func Pack(fsys afero.Fs, root string, w io.Writer, opts PackOptions) (PackStats, error) {
	var stats PackStats

	info, err := fsys.Stat(root)
	if err != nil {
		return stats, fmt.Errorf("failed to stat pack root: %w", err)
	}
	if !info.IsDir() {
		return stats, fmt.Errorf("pack root %s is not a directory", root)
	}

	cw, err := NewCompressWriter(w, opts.Compression)
	if err != nil {
		return stats, err
	}
	tw := tar.NewWriter(cw)
	filter := BuildFilter(fsys, root, opts.Gitignore, opts.Includes, opts.Excludes)

	err = afero.Walk(fsys, root, func(path string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if !filter(rel, fi.IsDir()) {
			stats.Filtered++
			if fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		hdr := &tar.Header{
			Name:    rel,
			ModTime: fi.ModTime().Truncate(time.Second),
			Format:  tar.FormatUSTAR,
		}
		switch {
		case fi.IsDir():
			hdr.Typeflag = tar.TypeDir
			hdr.Name += "/"
			hdr.Mode = 0o555
		case fi.Mode().IsRegular():
			hdr.Typeflag = tar.TypeReg
			hdr.Mode = 0o444
			hdr.Size = fi.Size()
		default:
			log.Debugf("[Pack] Skipping non-regular %s (%s)", rel, fi.Mode().Type())
			stats.Skipped++
			return nil
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("%s: %w", rel, err)
		}
		if hdr.Typeflag == tar.TypeDir {
			stats.Dirs++
			return nil
		}

		f, err := fsys.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		n, err := io.Copy(tw, f)
		if err != nil {
			return fmt.Errorf("%s: %w", rel, err)
		}
		stats.Files++
		stats.Bytes += n
		return nil
	})
	if err != nil {
		return stats, err
	}

	if err := tw.Close(); err != nil {
		return stats, err
	}
	if err := cw.Close(); err != nil {
		return stats, err
	}
	log.Debugf("[Pack] Packed %s: %d dirs, %d files, %d bytes, %d filtered", root, stats.Dirs, stats.Files, stats.Bytes, stats.Filtered)
	return stats, nil
}
