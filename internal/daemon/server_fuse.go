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

//go:build linux || darwin

package daemon

import (
	"context"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	log "github.com/sirupsen/logrus"

	"romfs/internal/tree"
	"romfs/internal/vfs"
)

// FUSEOptions configures the FUSE export.
type FUSEOptions struct {
	FsName     string
	Name       string
	AllowOther bool // requires user_allow_other in /etc/fuse.conf
	Timeout    time.Duration
}

// FUSEServer mounts a RomFS through the kernel. The whole tree is built as
// persistent inodes when the root is added, since it never changes.
type FUSEServer struct {
	fs   *vfs.RomFS
	opts FUSEOptions

	mu     sync.Mutex
	server *fuse.Server
}

// NewFUSEServer creates a FUSE export for fs.
func NewFUSEServer(fs *vfs.RomFS, opts FUSEOptions) (*FUSEServer, error) {
	if opts.FsName == "" {
		opts.FsName = "romfs"
	}
	if opts.Name == "" {
		opts.Name = "romfs"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute
	}
	return &FUSEServer{fs: fs, opts: opts}, nil
}

// Mount mounts the tree at mountPoint and returns once the kernel has
// accepted it. The mount point is created if it does not exist.
func (s *FUSEServer) Mount(mountPoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return fmt.Errorf("already mounted")
	}
	if err := os.MkdirAll(mountPoint, 0o755); err != nil {
		return fmt.Errorf("creating mountpoint %s: %w", mountPoint, err)
	}

	root := &fuseNode{node: s.fs.Tree().Root(), tree: s.fs.Tree()}
	timeout := s.opts.Timeout
	server, err := gofuse.Mount(mountPoint, root, &gofuse.Options{
		EntryTimeout: &timeout,
		AttrTimeout:  &timeout,
		MountOptions: fuse.MountOptions{
			FsName:     s.opts.FsName,
			Name:       s.opts.Name,
			AllowOther: s.opts.AllowOther,
			Options:    []string{"ro"},
		},
	})
	if err != nil {
		return fmt.Errorf("mounting FUSE filesystem at %s: %w", mountPoint, err)
	}
	s.server = server
	log.Infof("[FUSE] Mounted at %s", mountPoint)
	return nil
}

// Serve mounts at mountPoint and blocks until the filesystem is unmounted.
func (s *FUSEServer) Serve(mountPoint string) error {
	if err := s.Mount(mountPoint); err != nil {
		return err
	}
	s.mu.Lock()
	server := s.server
	s.mu.Unlock()
	server.Wait()
	return nil
}

// Shutdown unmounts the filesystem.
func (s *FUSEServer) Shutdown() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	if err := server.Unmount(); err != nil {
		log.Warnf("[FUSE] Unmount: %v", err)
	}
}

// fuseNode serves one tree node. Directories get their children in OnAdd;
// files answer reads straight from the archive buffer.
type fuseNode struct {
	gofuse.Inode
	node *tree.Node
	tree *tree.Tree
}

var (
	_ gofuse.InodeEmbedder = (*fuseNode)(nil)
	_ gofuse.NodeOnAdder   = (*fuseNode)(nil)
	_ gofuse.NodeGetattrer = (*fuseNode)(nil)
	_ gofuse.NodeOpener    = (*fuseNode)(nil)
	_ gofuse.NodeReader    = (*fuseNode)(nil)
	_ NetFSServer          = (*FUSEServer)(nil)
)

// OnAdd is called on the root only; it attaches every other node.
func (n *fuseNode) OnAdd(ctx context.Context) {
	inodes := map[tree.Ino]*gofuse.Inode{tree.RootIno: &n.Inode}
	n.tree.Walk(func(tn *tree.Node, depth int) bool {
		if depth == 0 {
			return true
		}
		parent := inodes[tn.Parent]
		child := parent.NewPersistentInode(ctx, &fuseNode{node: tn, tree: n.tree}, stableAttr(tn))
		parent.AddChild(tn.Name, child, false)
		if tn.IsDir() {
			inodes[tn.Ino] = child
		}
		return true
	})
	log.Debugf("[FUSE] Built %d inodes", len(inodes))
}

func stableAttr(n *tree.Node) gofuse.StableAttr {
	mode := uint32(syscall.S_IFREG)
	if n.IsDir() {
		mode = syscall.S_IFDIR
	}
	// FUSE reserves inode 1 for the root, which is romfs inode 0.
	return gofuse.StableAttr{Mode: mode, Ino: uint64(n.Ino) + 1}
}

func (n *fuseNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	if n.node.IsDir() {
		out.Mode = syscall.S_IFDIR | 0o555
		out.Nlink = 2
	} else {
		out.Mode = syscall.S_IFREG | 0o444
		out.Nlink = 1
		out.Size = uint64(n.node.Size())
	}
	out.Ino = uint64(n.node.Ino) + 1
	out.Blocks = (out.Size + vfs.BlockSize - 1) / vfs.BlockSize
	out.Blksize = vfs.BlockSize
	mtime := time.Unix(n.node.ModTime, 0)
	out.SetTimes(&mtime, &mtime, &mtime)
	return 0
}

func (n *fuseNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if n.node.IsDir() {
		return nil, 0, syscall.EISDIR
	}
	if flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_APPEND|syscall.O_TRUNC) != 0 {
		return nil, 0, syscall.EROFS
	}
	// Archive content is immutable, so the kernel page cache is always valid.
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *fuseNode) Read(ctx context.Context, f gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	file, ok := n.node.Payload.(*tree.File)
	if !ok {
		return nil, syscall.EISDIR
	}
	if off < 0 {
		return nil, syscall.EINVAL
	}
	if off >= int64(len(file.Content)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(file.Content)) {
		end = int64(len(file.Content))
	}
	return fuse.ReadResultData(file.Content[off:end]), 0
}
