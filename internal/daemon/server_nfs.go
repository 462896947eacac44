package daemon

import (
	"context"
	"fmt"
	"net"
	"os"
	"path"
	"sync"
	"time"

	billy "github.com/go-git/go-billy/v5"
	log "github.com/sirupsen/logrus"
	nfs "github.com/willscott/go-nfs"
	nfsfile "github.com/willscott/go-nfs/file"
	nfshelper "github.com/willscott/go-nfs/helpers"

	"romfs/internal/common"
	"romfs/internal/util"
	"romfs/internal/vfs"
)

// NFSServer wraps the go-nfs server
type NFSServer struct {
	mu       sync.Mutex
	listener net.Listener
	server   *nfs.Server
	handler  nfs.Handler
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewNFSServer creates a new NFS server for the given RomFS
func NewNFSServer(fs *vfs.RomFS) *NFSServer {
	// Set go-nfs log level to match daemon's log level
	if log.IsLevelEnabled(log.TraceLevel) {
		nfs.Log.SetLevel(nfs.TraceLevel)
	} else if log.IsLevelEnabled(log.DebugLevel) {
		nfs.Log.SetLevel(nfs.DebugLevel)
	}
	billyFS := NewBillyAdapter(fs)
	handler := nfshelper.NewNullAuthHandler(billyFS)
	cacheHelper := nfshelper.NewCachingHandler(handler, 65536)

	ctx, cancel := context.WithCancel(context.Background())
	server := &nfs.Server{
		Handler: cacheHelper,
		Context: ctx,
	}

	return &NFSServer{
		server:  server,
		handler: cacheHelper,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Serve listens on addr and serves until Shutdown
func (s *NFSServer) Serve(addr string) error {
	listener, err := util.Listen(context.Background(), addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.ServeListener(listener)
}

// ServeListener serves on an already bound listener
func (s *NFSServer) ServeListener(listener net.Listener) error {
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		listener.Close()
		return nil
	default:
	}
	s.listener = listener
	s.mu.Unlock()

	log.Infof("[NFS] Serving on %s", listener.Addr())
	err := s.server.Serve(listener)
	select {
	case <-s.done:
		// Errors after Shutdown come from the closed listener.
		return nil
	default:
		return err
	}
}

// Addr returns the bound address, or nil before Serve.
func (s *NFSServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown stops the NFS server
func (s *NFSServer) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)
	if s.listener != nil {
		s.listener.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// BillyAdapter adapts RomFS to the Billy filesystem interface. Paths are
// always resolved from the root; the RomFS working directory is ignored.
type BillyAdapter struct {
	fs  *vfs.RomFS
	uid uint32 // cached os.Getuid()
	gid uint32 // cached os.Getgid()
}

// NewBillyAdapter creates a Billy adapter for RomFS
func NewBillyAdapter(fs *vfs.RomFS) *BillyAdapter {
	return &BillyAdapter{
		fs:  fs,
		uid: uint32(os.Getuid()),
		gid: uint32(os.Getgid()),
	}
}

func (b *BillyAdapter) Create(filename string) (billy.File, error) {
	return nil, vfs.EROFS
}

func (b *BillyAdapter) Open(filename string) (billy.File, error) {
	return b.OpenFile(filename, os.O_RDONLY, 0)
}

func (b *BillyAdapter) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	f, err := b.fs.Open(common.AbsPath(filename), flag)
	if err != nil {
		return nil, err
	}
	return &BillyFile{File: f, name: filename}, nil
}

func (b *BillyAdapter) Stat(filename string) (os.FileInfo, error) {
	st, err := b.fs.Stat(common.AbsPath(filename))
	if err != nil {
		return nil, err
	}
	return b.fileInfo(path.Base(filename), st), nil
}

func (b *BillyAdapter) Rename(oldpath, newpath string) error { return vfs.EROFS }
func (b *BillyAdapter) Remove(filename string) error         { return vfs.EROFS }

func (b *BillyAdapter) Join(elem ...string) string {
	return path.Join(elem...)
}

func (b *BillyAdapter) TempFile(dir, prefix string) (billy.File, error) {
	return nil, vfs.EROFS
}

func (b *BillyAdapter) ReadDir(dirname string) ([]os.FileInfo, error) {
	entries, err := b.fs.ReadDir(common.AbsPath(dirname))
	if err != nil {
		return nil, err
	}

	result := make([]os.FileInfo, 0, len(entries))
	for _, e := range entries {
		result = append(result, b.fileInfo(e.Name(), e.Stat()))
	}
	return result, nil
}

func (b *BillyAdapter) MkdirAll(filename string, perm os.FileMode) error {
	return vfs.EROFS
}

// Lstat and Stat are identical; romfs has no symlinks.
func (b *BillyAdapter) Lstat(filename string) (os.FileInfo, error) {
	return b.Stat(filename)
}

func (b *BillyAdapter) Symlink(target, link string) error { return vfs.EROFS }

func (b *BillyAdapter) Readlink(link string) (string, error) {
	if _, err := b.fs.Stat(common.AbsPath(link)); err != nil {
		return "", err
	}
	return "", vfs.EINVAL
}

func (b *BillyAdapter) Chroot(path string) (billy.Filesystem, error) {
	return nil, os.ErrInvalid
}

func (b *BillyAdapter) Root() string {
	return "/"
}

// billy.Change interface
func (b *BillyAdapter) Chmod(name string, mode os.FileMode) error         { return vfs.EROFS }
func (b *BillyAdapter) Lchown(name string, uid, gid int) error            { return vfs.EROFS }
func (b *BillyAdapter) Chown(name string, uid, gid int) error             { return vfs.EROFS }
func (b *BillyAdapter) Chtimes(name string, atime, mtime time.Time) error { return vfs.EROFS }

func (b *BillyAdapter) Capabilities() billy.Capability {
	return billy.ReadCapability | billy.SeekCapability
}

func (b *BillyAdapter) fileInfo(name string, st *vfs.Stat) *BillyFileInfo {
	return &BillyFileInfo{name: name, stat: st, uid: b.uid, gid: b.gid}
}

// BillyFile is a read-only billy.File over an open romfs file.
type BillyFile struct {
	*vfs.File
	name string
}

func (f *BillyFile) Name() string { return f.name }

func (f *BillyFile) Write(p []byte) (int, error) { return 0, vfs.EROFS }

func (f *BillyFile) Lock() error               { return nil }
func (f *BillyFile) Unlock() error             { return nil }
func (f *BillyFile) Truncate(size int64) error { return vfs.EROFS }

// BillyFileInfo describes a romfs entry to go-nfs. Directories report
// 0555 so clients can traverse them.
type BillyFileInfo struct {
	name string
	stat *vfs.Stat
	uid  uint32
	gid  uint32
}

func (fi *BillyFileInfo) Name() string       { return fi.name }
func (fi *BillyFileInfo) Size() int64        { return fi.stat.Size }
func (fi *BillyFileInfo) IsDir() bool        { return fi.stat.FileType() == vfs.FileTypeDirectory }
func (fi *BillyFileInfo) ModTime() time.Time { return time.Unix(fi.stat.Mtime, 0) }

func (fi *BillyFileInfo) Mode() os.FileMode {
	if fi.IsDir() {
		return os.ModeDir | 0555
	}
	return 0444
}

func (fi *BillyFileInfo) Sys() interface{} {
	// go-nfs's GetInfo() only recognizes file.FileInfo or *file.FileInfo types.
	// Fileid 0 is reserved, so inode numbers are shifted by one.
	return &nfsfile.FileInfo{
		Nlink:  fi.stat.Nlink,
		UID:    fi.uid,
		GID:    fi.gid,
		Fileid: fi.stat.Ino + 1,
	}
}

var (
	_ billy.Filesystem = (*BillyAdapter)(nil)
	_ billy.Change     = (*BillyAdapter)(nil)
	_ billy.Capable    = (*BillyAdapter)(nil)
	_ billy.File       = (*BillyFile)(nil)
	_ NetFSServer      = (*NFSServer)(nil)
)
