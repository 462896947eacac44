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

	"romfs/internal/archive"
	"romfs/internal/artifacts"
	"romfs/internal/common"
	"romfs/internal/device"
	"romfs/internal/mount"
)

// session is an archive mounted on a private device table for the
// lifetime of one command.
type session struct {
	ctl         *mount.Controller
	table       *device.Table
	source      string
	compression archive.Compression
	data        []byte
}

// loadArchive returns the bytes selected by --archive.
func loadArchive() (data []byte, c archive.Compression, source string, err error) {
	if archivePath == "" {
		return artifacts.SampleArchive, archive.CompressionNone, "embedded sample", nil
	}
	data, c, err = archive.LoadFile(archivePath)
	if err != nil {
		return nil, c, archivePath, err
	}
	return data, c, archivePath, nil
}

func openSession() (*session, error) {
	data, c, source, err := loadArchive()
	if err != nil {
		return nil, err
	}
	table := device.NewTable()
	ctl := mount.New(data, table)
	if err := ctl.Mount(); err != nil {
		return nil, err
	}
	// Unlabelled arguments resolve against the mounted device.
	if err := table.Chdir(ctl.Name() + ":/"); err != nil {
		ctl.Unmount()
		return nil, err
	}
	return &session{ctl: ctl, table: table, source: source, compression: c, data: data}, nil
}

func (s *session) Close() error {
	return s.ctl.Unmount()
}

// qualify validates a path argument. Labelled paths must name this
// session's device.
func (s *session) qualify(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("empty path: %w", common.ErrInvalidPath)
	}
	if label, _, ok := common.SplitLabel(p); ok && label != s.ctl.Name() {
		return "", fmt.Errorf("%q: unknown device %q (archive is mounted as %q): %w", p, label, s.ctl.Name(), common.ErrInvalidPath)
	}
	return p, nil
}
