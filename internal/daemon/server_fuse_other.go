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

//go:build !linux && !darwin

package daemon

import (
	"time"

	"romfs/internal/common"
	"romfs/internal/vfs"
)

// FUSEOptions configures the FUSE export.
type FUSEOptions struct {
	FsName     string
	Name       string
	AllowOther bool
	Timeout    time.Duration
}

// NewFUSEServer reports that FUSE is unavailable on this platform.
func NewFUSEServer(fs *vfs.RomFS, opts FUSEOptions) (NetFSServer, error) {
	return nil, common.ErrUnsupported
}
