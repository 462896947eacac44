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
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"romfs/internal/device"
	"romfs/internal/mount"
)

const helloPath = "romfs:/helloworld.txt"

var helloCmd = &cobra.Command{
	Use:   "hello",
	Short: "Mount the built-in sample and print its greeting",
	Long: `Mount the sample archive built into the binary on the process device table,
print romfs:/helloworld.txt line by line and unmount again.`,
	Args: cobra.NoArgs,
	RunE: runHello,
}

func init() {
	rootCmd.AddCommand(helloCmd)
}

func runHello(cmd *cobra.Command, args []string) (err error) {
	if err := mount.Init(); err != nil {
		return fmt.Errorf("failed to mount sample: %w", err)
	}
	defer func() {
		if exitErr := mount.Exit(); err == nil {
			err = exitErr
		}
	}()

	f, err := device.Default.Open(helloPath, os.O_RDONLY)
	if err != nil {
		return err
	}
	defer f.Close()

	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fmt.Fprintln(out, scanner.Text())
	}
	return scanner.Err()
}
