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
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"romfs/internal/archive"
)

var packCmd = &cobra.Command{
	Use:   "pack <dir> <output>",
	Short: "Pack a directory into a USTAR archive",
	Long: `Pack a directory tree into a USTAR archive that romfs can mount. Only
directories and regular files are stored.

Examples:
  romfs pack ./site site.tar
  romfs pack --compression zstd --gitignore ./site site.tar.zst
  romfs pack --exclude build --include build/keep ./site site.tar`,
	Args: cobra.ExactArgs(2),
	RunE: runPack,
}

var (
	packCompression = newEnumValue("none", "none", "zstd", "lz4")
	packGitignore   bool
	packIncludes    []string
	packExcludes    []string
)

func init() {
	packCmd.Flags().Var(packCompression, "compression", "Compression: "+packCompression.Choices())
	packCmd.Flags().BoolVar(&packGitignore, "gitignore", false, "Skip paths matched by .gitignore files")
	packCmd.Flags().StringSliceVar(&packIncludes, "include", nil, "Paths to pack even if ignored")
	packCmd.Flags().StringSliceVar(&packExcludes, "exclude", nil, "Paths to leave out")
	rootCmd.AddCommand(packCmd)
}

func runPack(cmd *cobra.Command, args []string) error {
	root, output := args[0], args[1]

	c, err := archive.ParseCompression(packCompression.String())
	if err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	stats, err := archive.Pack(afero.NewOsFs(), root, f, archive.PackOptions{
		Compression: c,
		Gitignore:   packGitignore,
		Includes:    packIncludes,
		Excludes:    packExcludes,
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(output)
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Packed %d directories, %d files (%d bytes) into %s\n", stats.Dirs, stats.Files, stats.Bytes, output)
	if stats.Filtered > 0 || stats.Skipped > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Left out %d filtered and %d unsupported entries\n", stats.Filtered, stats.Skipped)
	}
	return nil
}
