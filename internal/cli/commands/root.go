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
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"romfs/internal/daemon"
)

// Build metadata, set from main through SetVersion.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// SetVersion records build metadata and enables --version.
func SetVersion(v, c, d string) {
	version, commit, date = v, c, d
	rootCmd.Version = getVersionString()
}

// getVersionString formats the build metadata. Dev builds also carry the raw
// epoch and the commit.
func getVersionString() string {
	built := formatBuildDate(date)
	if !strings.HasSuffix(version, "-dev") {
		return fmt.Sprintf("%s (%s)", version, built)
	}
	return fmt.Sprintf("%s (%s, epoch: %s, commit: %s)", version, built, date, commit)
}

// formatBuildDate renders a unix epoch as a UTC date. Anything else is
// returned unchanged.
func formatBuildDate(epoch string) string {
	secs, err := strconv.ParseInt(epoch, 10, 64)
	if err != nil {
		return epoch
	}
	return time.Unix(secs, 0).UTC().Format(time.DateOnly)
}

var (
	logLevel    = newEnumValue("off", "trace", "debug", "info", "warn", "off")
	archivePath string
)

var rootCmd = &cobra.Command{
	Use:   "romfs",
	Short: "Read-only filesystem over a USTAR archive",
	Long: `Mount a USTAR archive as a read-only filesystem and browse it, or serve it
to the host over NFS, FUSE or SMB.

Without --archive every command uses the sample archive built into the binary.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}
		return daemon.ConfigureLogging(logLevel.String(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate("romfs version {{.Version}}\n")
	rootCmd.PersistentFlags().Var(logLevel, "log-level", "Log level: "+logLevel.Choices())
	rootCmd.PersistentFlags().StringVarP(&archivePath, "archive", "a", "", "Archive file to mount, raw or zstd/lz4 compressed (default: embedded sample)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
