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

	"romfs/internal/daemon"
	"romfs/internal/util"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what a running serve is exporting",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running serve",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

var (
	controlShare string
	stopTimeout  time.Duration
)

func init() {
	statusCmd.Flags().StringVar(&controlShare, "share", "romfs", "Share name of the serve to query")
	stopCmd.Flags().StringVar(&controlShare, "share", "romfs", "Share name of the serve to stop")
	stopCmd.Flags().DurationVar(&stopTimeout, "timeout", 10*time.Second, "How long to wait before killing the serve process")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	client, err := daemon.Connect(controlShare)
	if err != nil {
		fmt.Fprintf(out, "Share %s: not serving\n", controlShare)
		return nil
	}
	defer client.Close()

	resp, err := client.Status()
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("status failed: %s", resp.Error)
	}

	fmt.Fprintf(out, "Share %s: serving (PID %d)\n", resp.Share, resp.PID)
	fmt.Fprintf(out, "Export: %s at %s\n", resp.Export, resp.Addr)
	if resp.Stats != nil {
		fmt.Fprintf(out, "Device: %s: (mount %s)\n", resp.Device, resp.MountID)
		fmt.Fprintf(out, "Nodes: %d, content: %d bytes\n", resp.Stats.Nodes, resp.Stats.Bytes)
	}
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	client, err := daemon.Connect(controlShare)
	if err != nil {
		fmt.Fprintf(out, "Share %s: not serving\n", controlShare)
		return nil
	}
	resp, err := client.Stop()
	client.Close()
	if err != nil {
		return fmt.Errorf("failed to stop: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("stop failed: %s", resp.Error)
	}

	fmt.Fprintf(out, "Share %s: stopping (PID %d)...\n", controlShare, resp.PID)
	err = util.StopProcess(cmd.Context(), resp.PID, util.ProcessConfig{GracefulTimeout: stopTimeout}, nil, func() bool {
		return daemon.IsServing(controlShare)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Share %s: stopped\n", controlShare)
	return nil
}
