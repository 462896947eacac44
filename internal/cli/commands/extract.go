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

package commands

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"romfs/internal/common"
)

var extractCmd = &cobra.Command{
	Use:   "extract <dest>",
	Short: "Copy the archive tree into a directory",
	Long: `Copy every directory and file of the archive (or of one subtree) into
dest, preserving modification times.

Examples:
  romfs extract ./out
  romfs extract --archive site.tar --path docs ./docs-copy`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

var extractPath string

func init() {
	extractCmd.Flags().StringVar(&extractPath, "path", "/", "Subtree of the archive to extract")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	dest := args[0]
	if strings.TrimSpace(dest) == "" {
		return fmt.Errorf("empty destination: %w", common.ErrInvalidPath)
	}
	dest, err := filepath.Abs(dest)
	if err != nil {
		return fmt.Errorf("failed to resolve destination: %w", err)
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := s.qualify(extractPath)
	if err != nil {
		return err
	}
	root := common.NormalizePath(common.StripLabel(p))
	if root == "" {
		root = "."
	}

	files, dirs, err := extractTree(s.ctl.FS().FS(), root, afero.NewBasePathFs(afero.NewOsFs(), dest))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d directories, %d files into %s\n", dirs, files, dest)
	return nil
}

// extractTree copies the subtree at root of src into dst. Paths in dst are
// relative to root.
func extractTree(src fs.FS, root string, dst afero.Fs) (files, dirs int, err error) {
	type dirTime struct {
		name  string
		mtime time.Time
	}
	var stamps []dirTime

	err = fs.WalkDir(src, root, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := "/"
		if root != "." {
			rel = "/" + strings.TrimPrefix(strings.TrimPrefix(name, root), "/")
		} else if name != "." {
			rel = "/" + name
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		if d.IsDir() {
			if err := dst.MkdirAll(rel, 0755); err != nil {
				return err
			}
			dirs++
			stamps = append(stamps, dirTime{rel, info.ModTime()})
			return nil
		}

		data, err := fs.ReadFile(src, name)
		if err != nil {
			return err
		}
		if err := dst.MkdirAll(path.Dir(rel), 0755); err != nil {
			return err
		}
		if err := afero.WriteFile(dst, rel, data, 0644); err != nil {
			return err
		}
		files++
		return dst.Chtimes(rel, info.ModTime(), info.ModTime())
	})
	if err != nil {
		return files, dirs, fmt.Errorf("extract failed: %w", err)
	}

	// Directory times last, since writing children bumps them.
	for i := len(stamps) - 1; i >= 0; i-- {
		if err := dst.Chtimes(stamps[i].name, stamps[i].mtime, stamps[i].mtime); err != nil {
			return files, dirs, fmt.Errorf("extract failed: %w", err)
		}
	}
	return files, dirs, nil
}
