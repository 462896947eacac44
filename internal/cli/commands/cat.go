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
	"io"
	"os"

	"github.com/spf13/cobra"

	"romfs/internal/common"
)

var catCmd = &cobra.Command{
	Use:   "cat <path>...",
	Short: "Print files from the archive",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCat,
}

func init() {
	rootCmd.AddCommand(catCmd)
}

func runCat(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	for _, arg := range args {
		p, err := s.qualify(arg)
		if err != nil {
			return err
		}
		if fi, err := s.table.Stat(p); err == nil && fi.IsDir() {
			return fmt.Errorf("%s: %w", arg, common.ErrIsDir)
		}
		f, err := s.table.Open(p, os.O_RDONLY)
		if err != nil {
			return err
		}
		_, err = io.Copy(cmd.OutOrStdout(), f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", arg, err)
		}
	}
	return nil
}
