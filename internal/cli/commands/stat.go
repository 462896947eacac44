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
	"time"

	"github.com/spf13/cobra"

	"romfs/internal/vfs"
)

var statCmd = &cobra.Command{
	Use:   "stat <path>...",
	Short: "Show POSIX attributes of archive entries",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStat,
}

func init() {
	rootCmd.AddCommand(statCmd)
}

func runStat(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	for _, arg := range args {
		p, err := s.qualify(arg)
		if err != nil {
			return err
		}
		fi, err := s.table.Stat(p)
		if err != nil {
			return err
		}
		st, ok := fi.Sys().(*vfs.Stat)
		if !ok {
			return fmt.Errorf("%s: no attributes available", arg)
		}
		kind := "regular file"
		if st.FileType() == vfs.FileTypeDirectory {
			kind = "directory"
		}
		fmt.Fprintf(out, "  File: %s\n", arg)
		fmt.Fprintf(out, "  Size: %-10d Blocks: %-6d IO Block: %-5d %s\n", st.Size, st.Blocks, st.Blksize, kind)
		fmt.Fprintf(out, " Inode: %-10d Links: %d\n", st.Ino, st.Nlink)
		fmt.Fprintf(out, "Access: (%#o/%s)\n", st.Mode, fi.Mode())
		fmt.Fprintf(out, "Modify: %s\n", time.Unix(st.Mtime, 0).UTC().Format(time.RFC3339))
	}
	return nil
}
