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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List a directory in the archive",
	Long: `List the entries of a directory in the archive. Paths may carry the
device label, as in romfs:/docs.

Examples:
  romfs ls
  romfs ls -l docs
  romfs ls --archive site.tar.zst romfs:/assets`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

var lsLong bool
var lsAll bool

func init() {
	lsCmd.Flags().BoolVarP(&lsLong, "long", "l", false, "Show mode, size and modification time")
	lsCmd.Flags().BoolVar(&lsAll, "all", false, "Include . and ..")
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	target := "/"
	if len(args) > 0 {
		target = args[0]
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if target, err = s.qualify(target); err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fi, err := s.table.Stat(target)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		printEntry(out, fi.Name(), fi, lsLong)
		return nil
	}

	d, err := s.table.OpenDir(target)
	if err != nil {
		return err
	}
	defer d.Close()

	var entries []fs.DirEntry
	for {
		e, err := d.Next()
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return err
		}
		if !lsAll && (e.Name() == "." || e.Name() == "..") {
			continue
		}
		entries = append(entries, e)
	}
	slices.SortStableFunc(entries, func(a, b fs.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})

	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			return err
		}
		printEntry(out, e.Name(), info, lsLong)
	}
	return nil
}

func printEntry(w io.Writer, name string, fi fs.FileInfo, long bool) {
	if fi.IsDir() && name != "." && name != ".." {
		name += "/"
	}
	if !long {
		fmt.Fprintln(w, name)
		return
	}
	fmt.Fprintf(w, "%s %8d %s %s\n", fi.Mode(), fi.Size(), fi.ModTime().UTC().Format("2006-01-02 15:04"), name)
}
