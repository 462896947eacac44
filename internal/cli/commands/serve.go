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

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"romfs/internal/artifacts"
	"romfs/internal/daemon"
	"romfs/internal/util"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the archive to the host",
	Long: `Mount the archive and export it read-only until interrupted.

Defaults come from ~/.romfs/settings.yaml (or $ROMFS_CONFIG_DIR), which is
created on first use. Flags override the file for this run only.

Examples:
  # NFS on the configured listen address
  romfs serve --archive site.tar

  # In the background; stop it again with romfs stop
  romfs serve --detach --archive site.tar

  # Mount directly with FUSE
  romfs serve --export fuse --mount-point /mnt/site

  # Then, for NFS on macOS:
  mount -t nfs -o port=12049,mountport=12049,vers=3,tcp,ro 127.0.0.1:/ /Volumes/site`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveExport     = newEnumValue("nfs", string(daemon.ExportNFS), string(daemon.ExportFUSE), string(daemon.ExportSMB))
	serveListen     string
	serveShare      string
	serveDevice     string
	serveMountPoint string
	serveAllowOther bool
	serveStderr     bool
	serveDetach     bool
)

func init() {
	serveCmd.Flags().Var(serveExport, "export", "Export: "+serveExport.Choices())
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address for NFS and SMB")
	serveCmd.Flags().StringVar(&serveShare, "share", "", "Share name, also keys the serve lock and control socket")
	serveCmd.Flags().StringVar(&serveDevice, "device", "", "Device label the archive is registered under")
	serveCmd.Flags().StringVar(&serveMountPoint, "mount-point", "", "Mount point for the FUSE export")
	serveCmd.Flags().BoolVar(&serveAllowOther, "allow-other", false, "Let other users access the FUSE mount")
	serveCmd.Flags().BoolVar(&serveStderr, "stderr", false, "Log to stderr instead of the log file")
	serveCmd.Flags().BoolVarP(&serveDetach, "detach", "d", false, "Serve from a background process and return once it is up")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := daemon.InitConfigDir(); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}
	settings, err := daemon.LoadSettings(daemon.SettingsPath())
	if err != nil {
		return err
	}
	applyServeFlags(cmd, settings)
	if err := settings.Validate(); err != nil {
		return err
	}

	data := artifacts.SampleArchive
	if archivePath != "" {
		if data, _, _, err = loadArchive(); err != nil {
			return err
		}
	}
	if serveDetach {
		return detachServe(cmd, settings.ShareName)
	}

	d := daemon.New(settings, data, nil)
	d.LogToStderr = serveStderr
	return d.Run()
}

// applyServeFlags overrides settings with the flags given on the command line.
func applyServeFlags(cmd *cobra.Command, settings *daemon.Settings) {
	flags := cmd.Flags()
	if f := cmd.Flag("log-level"); f != nil && f.Changed {
		settings.LogLevel = logLevel.String()
	}
	if flags.Changed("export") {
		settings.Export = daemon.Export(serveExport.String())
	}
	if flags.Changed("listen") {
		settings.Listen = serveListen
	}
	if flags.Changed("share") {
		settings.ShareName = serveShare
	}
	if flags.Changed("device") {
		settings.DeviceName = serveDevice
	}
	if flags.Changed("mount-point") {
		settings.MountPoint = serveMountPoint
	}
	if flags.Changed("allow-other") {
		settings.AllowOther = serveAllowOther
	}
}

// detachServe re-runs this serve command in a background process and waits
// until its control socket answers.
func detachServe(cmd *cobra.Command, share string) error {
	out := cmd.OutOrStdout()
	if daemon.IsServing(share) {
		fmt.Fprintf(out, "Share %s: already serving\n", share)
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return err
	}
	proc, err := util.StartBackgroundProcess(exe, detachArgs(cmd), nil)
	if err != nil {
		return err
	}

	if err := util.PollUntil(cmd.Context(), util.FastPollConfig(), func() bool { return daemon.IsServing(share) }); err != nil {
		return fmt.Errorf("serve did not start in time (see %s)", daemon.LogPath())
	}
	fmt.Fprintf(out, "Share %s: serving (PID %d)\n", share, proc.Pid)
	return nil
}

// detachArgs rebuilds the command line for the background process from
// the flags that were set, minus --detach.
func detachArgs(cmd *cobra.Command) []string {
	args := []string{cmd.Name()}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if f.Name != "detach" {
			args = append(args, "--"+f.Name+"="+f.Value.String())
		}
	})
	return args
}
