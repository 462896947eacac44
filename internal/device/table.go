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

// Package device is a host filesystem dispatch table. Paths of the form
// "name:/path" are routed to the device registered under name; unlabelled
// paths go to the default device chosen by the last labelled Chdir.
package device

import (
	"io"
	"io/fs"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"

	"romfs/internal/common"
)

// File is an open file served by a device.
type File interface {
	io.ReadSeekCloser
	Stat() (fs.FileInfo, error)
}

// Dir is a directory cursor served by a device. Next yields fs.ErrNotExist
// (ENOENT) when iteration is complete.
type Dir interface {
	Next() (fs.DirEntry, error)
	Reset() error
	Close() error
}

// Device is the operation table a filesystem registers. Every path passed
// to a device still carries its label, if it had one.
type Device interface {
	Open(path string, flags int) (File, error)
	Stat(path string) (fs.FileInfo, error)
	Chdir(path string) error
	OpenDir(path string) (Dir, error)
}

// Table maps device names to devices.
type Table struct {
	mu      sync.RWMutex
	devices map[string]Device
	def     string
}

// Default is the process-wide table.
var Default = NewTable()

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{devices: make(map[string]Device)}
}

// AddDevice registers dev under name. Registering a taken name is EEXIST.
func (t *Table) AddDevice(name string, dev Device) error {
	if name == "" {
		return syscall.EINVAL
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.devices[name]; ok {
		return syscall.EEXIST
	}
	t.devices[name] = dev
	log.Debugf("[Device] Registered %q", name)
	return nil
}

// RemoveDevice deregisters name. If it was the default device, unlabelled
// paths stop resolving.
func (t *Table) RemoveDevice(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.devices[name]; !ok {
		return syscall.ENOENT
	}
	delete(t.devices, name)
	if t.def == name {
		t.def = ""
	}
	log.Debugf("[Device] Removed %q", name)
	return nil
}

// Names returns the registered device names.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.devices))
	for name := range t.devices {
		names = append(names, name)
	}
	return names
}

// Lookup returns the device responsible for path.
func (t *Table) Lookup(path string) (Device, error) {
	label, _, ok := common.SplitLabel(path)
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !ok {
		label = t.def
	}
	dev, found := t.devices[label]
	if !found {
		return nil, syscall.ENODEV
	}
	return dev, nil
}

// Open opens path on its device.
func (t *Table) Open(path string, flags int) (File, error) {
	dev, err := t.Lookup(path)
	if err != nil {
		return nil, pathErr("open", path, err)
	}
	f, err := dev.Open(path, flags)
	if err != nil {
		return nil, pathErr("open", path, err)
	}
	return f, nil
}

// Stat stats path on its device.
func (t *Table) Stat(path string) (fs.FileInfo, error) {
	dev, err := t.Lookup(path)
	if err != nil {
		return nil, pathErr("stat", path, err)
	}
	fi, err := dev.Stat(path)
	if err != nil {
		return nil, pathErr("stat", path, err)
	}
	return fi, nil
}

// OpenDir opens a directory cursor on path's device.
func (t *Table) OpenDir(path string) (Dir, error) {
	dev, err := t.Lookup(path)
	if err != nil {
		return nil, pathErr("opendir", path, err)
	}
	d, err := dev.OpenDir(path)
	if err != nil {
		return nil, pathErr("opendir", path, err)
	}
	return d, nil
}

// Chdir changes directory on path's device. A labelled path also makes
// that device the default for unlabelled paths.
func (t *Table) Chdir(path string) error {
	dev, err := t.Lookup(path)
	if err != nil {
		return pathErr("chdir", path, err)
	}
	if err := dev.Chdir(path); err != nil {
		return pathErr("chdir", path, err)
	}
	if label, _, ok := common.SplitLabel(path); ok {
		t.mu.Lock()
		t.def = label
		t.mu.Unlock()
	}
	return nil
}

func pathErr(op, path string, err error) error {
	return &fs.PathError{Op: op, Path: path, Err: err}
}
