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
	"strings"

	"github.com/spf13/cobra"

	"romfs/internal/tree"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the archive as an indented tree",
	Args:  cobra.NoArgs,
	RunE:  runTree,
}

var treeDepth int

func init() {
	treeCmd.Flags().IntVarP(&treeDepth, "depth", "L", 0, "Descend at most this many levels (0: unlimited)")
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	var dirs, files int
	s.ctl.FS().Tree().Walk(func(n *tree.Node, depth int) bool {
		if n.Ino == tree.RootIno {
			fmt.Fprintln(out, s.ctl.Name()+":/")
			return true
		}
		name := n.Name
		if n.IsDir() {
			dirs++
			name += "/"
		} else {
			files++
		}
		fmt.Fprintf(out, "%s%s\n", strings.Repeat("  ", depth), name)
		return treeDepth <= 0 || depth < treeDepth
	})
	fmt.Fprintf(out, "\n%d directories, %d files\n", dirs, files)
	return nil
}
