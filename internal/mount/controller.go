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

// Package mount ties an archive buffer to a device table: Mount decodes the
// archive into a tree and registers it, Unmount tears both down.
package mount

import (
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"romfs/internal/archive"
	"romfs/internal/common"
	"romfs/internal/device"
	"romfs/internal/tree"
	"romfs/internal/vfs"
)

// DefaultName is the device name romfs registers under.
const DefaultName = "romfs"

// Stats describes the tree built by the last Mount.
type Stats struct {
	Entries int   `json:"entries" yaml:"entries" cbor:"entries"` // directory and file entries decoded
	Skipped int   `json:"skipped" yaml:"skipped" cbor:"skipped"` // unsupported member types
	Dropped int   `json:"dropped" yaml:"dropped" cbor:"dropped"` // entries that could not be placed
	Nodes   int   `json:"nodes" yaml:"nodes" cbor:"nodes"`       // tree nodes, root included
	Bytes   int64 `json:"bytes" yaml:"bytes" cbor:"bytes"`       // total file content
}

// Controller owns one mount of one archive. Mount and Unmount must not run
// concurrently with each other or with filesystem operations.
type Controller struct {
	data    []byte
	table   *device.Table
	name    string
	tree    *tree.Tree
	fs      *vfs.RomFS
	mounted bool
	id      uuid.UUID
	stats   Stats
	log     log.FieldLogger
}

// Option configures a Controller.
type Option func(*Controller)

// WithName sets the device name (default "romfs").
func WithName(name string) Option {
	return func(c *Controller) { c.name = name }
}

// WithLogger sets the logger (default the logrus standard logger).
func WithLogger(l log.FieldLogger) Option {
	return func(c *Controller) { c.log = l }
}

// New returns an unmounted controller for data. data must stay resident and
// unmodified for as long as the controller is mounted.
func New(data []byte, table *device.Table, opts ...Option) *Controller {
	t := tree.New()
	c := &Controller{
		data:  data,
		table: table,
		name:  DefaultName,
		tree:  t,
		fs:    vfs.New(t),
		log:   log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mount builds the tree and registers the device. Mounting an already
// mounted controller succeeds without doing anything.
func (c *Controller) Mount() error {
	if c.mounted {
		c.log.Debugf("[Mount] %q already mounted", c.name)
		return nil
	}

	stats := Stats{}
	r := archive.NewReader(c.data)
	for e, ok := r.Next(); ok; e, ok = r.Next() {
		stats.Entries++
		kind := tree.KindFile
		if e.Kind == archive.KindDir {
			kind = tree.KindDir
		}
		if _, placed := c.tree.Insert(e.Name, kind, e.ModTime, e.Content); !placed {
			c.log.Debugf("[Mount] Dropped entry %q", e.Name)
			stats.Dropped++
			continue
		}
		if kind == tree.KindFile {
			stats.Bytes += e.Size
		}
	}
	stats.Skipped = r.Skipped()
	stats.Nodes = c.tree.Len()

	if err := c.table.AddDevice(c.name, &deviceOps{fs: c.fs}); err != nil {
		c.tree.Reset()
		return fmt.Errorf("failed to register device %q: %w", c.name, err)
	}

	c.mounted = true
	c.stats = stats
	c.id = uuid.New()
	c.log.Infof("[Mount] Mounted %s: (%d entries, %d nodes, %d bytes, id %s)",
		c.name+":", stats.Entries, stats.Nodes, stats.Bytes, c.id)
	return nil
}

// Unmount deregisters the device and drops the tree. It returns
// common.ErrNotMounted if the controller is not mounted.
func (c *Controller) Unmount() error {
	if !c.mounted {
		return common.ErrNotMounted
	}
	if err := c.table.RemoveDevice(c.name); err != nil {
		c.log.Warnf("[Mount] RemoveDevice %q: %v", c.name, err)
	}
	c.tree.Reset()
	// Resolving "/" cannot fail, so this only rewinds cwd.
	_ = c.fs.Chdir("/")
	c.log.Infof("[Mount] Unmounted %s: (id %s)", c.name+":", c.id)
	c.mounted = false
	c.stats = Stats{}
	c.id = uuid.Nil
	return nil
}

// Mounted reports whether the controller is mounted.
func (c *Controller) Mounted() bool { return c.mounted }

// Name returns the device name.
func (c *Controller) Name() string { return c.name }

// FS returns the filesystem. It is empty while unmounted.
func (c *Controller) FS() *vfs.RomFS { return c.fs }

// Stats returns counters from the current mount.
func (c *Controller) Stats() Stats { return c.stats }

// MountID identifies the current mount; uuid.Nil while unmounted.
func (c *Controller) MountID() uuid.UUID { return c.id }

func baseName(path string) string {
	if b := common.BaseName(common.StripLabel(path)); b != "" {
		return b
	}
	return "/"
}
