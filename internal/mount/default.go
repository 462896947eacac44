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

package mount

import (
	"sync"

	"romfs/internal/artifacts"
	"romfs/internal/device"
)

var (
	defaultOnce sync.Once
	defaultCtl  *Controller
)

// Default returns the process-wide controller for the embedded sample
// archive, registered with device.Default.
func Default() *Controller {
	defaultOnce.Do(func() {
		defaultCtl = New(artifacts.SampleArchive, device.Default)
	})
	return defaultCtl
}

// Init mounts the default controller.
func Init() error {
	return Default().Mount()
}

// Exit unmounts the default controller.
func Exit() error {
	return Default().Unmount()
}
