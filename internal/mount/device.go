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
	"io/fs"

	"romfs/internal/device"
	"romfs/internal/vfs"
)

// deviceOps registers a RomFS with a device table.
type deviceOps struct {
	fs *vfs.RomFS
}

func (d *deviceOps) Open(path string, flags int) (device.File, error) {
	f, err := d.fs.Open(path, flags)
	if err != nil {
		return nil, err
	}
	return &deviceFile{File: f}, nil
}

func (d *deviceOps) Stat(path string) (fs.FileInfo, error) {
	st, err := d.fs.Stat(path)
	if err != nil {
		return nil, err
	}
	return st.FileInfo(baseName(path)), nil
}

func (d *deviceOps) Chdir(path string) error {
	return d.fs.Chdir(path)
}

func (d *deviceOps) OpenDir(path string) (device.Dir, error) {
	dir, err := d.fs.OpenDir(path)
	if err != nil {
		return nil, err
	}
	return &deviceDir{dir: dir}, nil
}

type deviceFile struct {
	*vfs.File
}

func (f *deviceFile) Stat() (fs.FileInfo, error) {
	st, err := f.File.Stat()
	if err != nil {
		return nil, err
	}
	return st.FileInfo(baseName(f.Name())), nil
}

type deviceDir struct {
	dir *vfs.Dir
}

func (d *deviceDir) Next() (fs.DirEntry, error) {
	e, err := d.dir.Next()
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (d *deviceDir) Reset() error {
	d.dir.Reset()
	return nil
}

func (d *deviceDir) Close() error {
	return d.dir.Close()
}

var (
	_ device.Device = (*deviceOps)(nil)
	_ device.File   = (*deviceFile)(nil)
	_ device.Dir    = (*deviceDir)(nil)
)
