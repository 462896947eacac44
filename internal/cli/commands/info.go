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

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"romfs/internal/archive"
	"romfs/internal/mount"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe the archive and the tree built from it",
	Long: `Mount the archive and report where it came from, how it was compressed,
its BLAKE3 digest and what the tree holds.

Examples:
  romfs info
  romfs info --archive site.tar.zst --format yaml
  romfs info --format cbor > manifest.cbor`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

var infoFormat = newEnumValue("text", "text", "yaml", "cbor")

func init() {
	infoCmd.Flags().Var(infoFormat, "format", "Output format: "+infoFormat.Choices())
	rootCmd.AddCommand(infoCmd)
}

// Manifest describes one mounted archive.
type Manifest struct {
	Source      string      `yaml:"source" cbor:"source"`
	Device      string      `yaml:"device" cbor:"device"`
	Compression string      `yaml:"compression" cbor:"compression"`
	Size        int         `yaml:"size" cbor:"size"`
	Digest      string      `yaml:"blake3" cbor:"blake3"`
	MountID     string      `yaml:"mount_id" cbor:"mount_id"`
	Stats       mount.Stats `yaml:"stats" cbor:"stats"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	m := Manifest{
		Source:      s.source,
		Device:      s.ctl.Name(),
		Compression: s.compression.String(),
		Size:        len(s.data),
		Digest:      archive.Sum(s.data).String(),
		MountID:     s.ctl.MountID().String(),
		Stats:       s.ctl.Stats(),
	}
	return writeManifest(cmd.OutOrStdout(), infoFormat.String(), &m)
}

func writeManifest(w io.Writer, format string, m *Manifest) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("failed to encode manifest: %w", err)
		}
		return enc.Close()
	case "cbor":
		b, err := cbor.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to encode manifest: %w", err)
		}
		_, err = w.Write(b)
		return err
	default:
		fmt.Fprintf(w, "Source: %s\n", m.Source)
		fmt.Fprintf(w, "Device: %s:\n", m.Device)
		fmt.Fprintf(w, "Compression: %s\n", m.Compression)
		fmt.Fprintf(w, "Size: %d bytes\n", m.Size)
		fmt.Fprintf(w, "BLAKE3: %s\n", m.Digest)
		fmt.Fprintf(w, "Mount ID: %s\n", m.MountID)
		fmt.Fprintf(w, "Entries: %d (skipped %d, dropped %d)\n", m.Stats.Entries, m.Stats.Skipped, m.Stats.Dropped)
		fmt.Fprintf(w, "Nodes: %d\n", m.Stats.Nodes)
		fmt.Fprintf(w, "Content: %d bytes\n", m.Stats.Bytes)
		return nil
	}
}
