//go:build smb

package daemon

import (
	"io"
	"os"
	"time"

	"github.com/macos-fuse-t/go-smb2/vfs"
	log "github.com/sirupsen/logrus"

	"romfs/internal/common"
	"romfs/internal/tree"
	romfs "romfs/internal/vfs"
)

// SMBAdapter implements vfs.VFSFileSystem over a RomFS. Open objects are
// tracked in a HandleManager; handle 0 is the share root.
type SMBAdapter struct {
	fs      *romfs.RomFS
	handles *romfs.HandleManager
	uid     uint32
	gid     uint32
}

// NewSMBAdapter creates an SMB adapter for fs
func NewSMBAdapter(fs *romfs.RomFS) *SMBAdapter {
	return &SMBAdapter{
		fs:      fs,
		handles: romfs.NewHandleManager(),
		uid:     uint32(os.Getuid()),
		gid:     uint32(os.Getgid()),
	}
}

// --- Open / Close ---

func (a *SMBAdapter) Open(path string, flags int, mode int) (vfs.VfsHandle, error) {
	log.Debugf("[SMB] Open: path=%q flags=%d", path, flags)
	p := common.AbsPath(path)
	f, err := a.fs.Open(p, flags)
	if err == romfs.EINVAL {
		// RomFS rejects directories with EINVAL; SMB expects EISDIR.
		return 0, romfs.EISDIR
	}
	if err != nil {
		return 0, err
	}
	return vfs.VfsHandle(a.handles.AllocateFile(p, f)), nil
}

func (a *SMBAdapter) OpenDir(path string) (vfs.VfsHandle, error) {
	log.Debugf("[SMB] OpenDir: path=%q", path)
	p := common.AbsPath(path)
	d, err := a.fs.OpenDir(p)
	if err == romfs.EINVAL {
		return 0, romfs.ENOTDIR
	}
	if err != nil {
		return 0, err
	}
	return vfs.VfsHandle(a.handles.AllocateDir(p, d)), nil
}

func (a *SMBAdapter) Close(handle vfs.VfsHandle) error {
	return a.handles.Release(romfs.HandleID(handle))
}

// --- Data ---

func (a *SMBAdapter) Read(handle vfs.VfsHandle, buf []byte, offset uint64, flags int) (int, error) {
	f, ok := a.handles.File(romfs.HandleID(handle))
	if !ok {
		if _, isDir := a.handles.Dir(romfs.HandleID(handle)); isDir {
			return 0, romfs.EISDIR
		}
		return 0, romfs.EBADF
	}
	n, err := f.ReadAt(buf, int64(offset))
	if err == io.EOF {
		// A short read at the end of the file is not an error for SMB.
		err = nil
	}
	return n, err
}

func (a *SMBAdapter) Write(handle vfs.VfsHandle, buf []byte, offset uint64, flags int) (int, error) {
	return 0, romfs.EROFS
}

func (a *SMBAdapter) Truncate(handle vfs.VfsHandle, size uint64) error { return romfs.EROFS }
func (a *SMBAdapter) FSync(handle vfs.VfsHandle) error                 { return nil }
func (a *SMBAdapter) Flush(handle vfs.VfsHandle) error                 { return nil }

// --- Directories ---

func (a *SMBAdapter) Mkdir(path string, mode int) (*vfs.Attributes, error) {
	return nil, romfs.EROFS
}

// ReadDir returns the whole listing on the first call and io.EOF after.
// A positive offset restarts the enumeration.
func (a *SMBAdapter) ReadDir(handle vfs.VfsHandle, offset int, count int) ([]vfs.DirInfo, error) {
	h := romfs.HandleID(handle)
	d, ok := a.handles.Dir(h)
	if !ok {
		if _, isFile := a.handles.File(h); isFile {
			return nil, romfs.ENOTDIR
		}
		return nil, romfs.EBADF
	}
	if offset > 0 {
		a.handles.SetDirEnumDone(h, false)
		d.Reset()
	}
	if a.handles.IsDirEnumDone(h) {
		return nil, io.EOF
	}

	var entries []vfs.DirInfo
	for {
		e, err := d.Next()
		if err != nil {
			break
		}
		entries = append(entries, vfs.DirInfo{
			Name:       e.Name(),
			Attributes: *a.attributes(e.Stat()),
		})
	}
	d.Reset()
	a.handles.SetDirEnumDone(h, true)

	if count > 0 && count < len(entries) {
		return entries[:count], nil
	}
	return entries, nil
}

// --- Metadata ---

func (a *SMBAdapter) GetAttr(handle vfs.VfsHandle) (*vfs.Attributes, error) {
	if handle == 0 {
		return a.statPath("/")
	}
	h := romfs.HandleID(handle)
	if f, ok := a.handles.File(h); ok {
		st, err := f.Stat()
		if err != nil {
			return nil, err
		}
		return a.attributes(st), nil
	}
	if p, ok := a.handles.Path(h); ok {
		return a.statPath(p)
	}
	return nil, romfs.EBADF
}

func (a *SMBAdapter) SetAttr(handle vfs.VfsHandle, attrs *vfs.Attributes) (*vfs.Attributes, error) {
	return nil, romfs.EROFS
}

func (a *SMBAdapter) Lookup(dirHandle vfs.VfsHandle, name string) (*vfs.Attributes, error) {
	log.Debugf("[SMB] Lookup: dirHandle=%d name=%q", dirHandle, name)
	dir := "/"
	if dirHandle != 0 {
		h := romfs.HandleID(dirHandle)
		if _, ok := a.handles.Dir(h); !ok {
			if _, isFile := a.handles.File(h); isFile {
				return nil, romfs.ENOTDIR
			}
			return nil, romfs.EBADF
		}
		dir, _ = a.handles.Path(h)
	}
	if name == "/" || name == "" || name == "." {
		return a.statPath(dir)
	}
	return a.statPath(dir + "/" + name)
}

func (a *SMBAdapter) StatFS(handle vfs.VfsHandle) (*vfs.FSAttributes, error) {
	t := a.fs.Tree()
	var used uint64
	t.Walk(func(n *tree.Node, _ int) bool {
		used += uint64(n.Size()+romfs.BlockSize-1) / romfs.BlockSize
		return true
	})
	attrs := &vfs.FSAttributes{}
	attrs.SetBlockSize(romfs.BlockSize)
	attrs.SetIOSize(romfs.BlockSize)
	attrs.SetBlocks(used)
	attrs.SetFreeBlocks(0)
	attrs.SetAvailableBlocks(0)
	attrs.SetFiles(uint64(t.Len()))
	attrs.SetFreeFiles(0)
	return attrs, nil
}

// --- Mutations ---

func (a *SMBAdapter) Unlink(handle vfs.VfsHandle) error { return romfs.EROFS }

func (a *SMBAdapter) Rename(handle vfs.VfsHandle, newName string, flags int) error {
	return romfs.EROFS
}

func (a *SMBAdapter) Readlink(handle vfs.VfsHandle) (string, error) {
	return "", romfs.EINVAL
}

func (a *SMBAdapter) Symlink(handle vfs.VfsHandle, target string, mode int) (*vfs.Attributes, error) {
	return nil, romfs.EROFS
}

func (a *SMBAdapter) Link(srcNode vfs.VfsNode, dstNode vfs.VfsNode, name string) (*vfs.Attributes, error) {
	return nil, romfs.EROFS
}

// --- Extended attributes ---

func (a *SMBAdapter) Listxattr(handle vfs.VfsHandle) ([]string, error) {
	return []string{}, nil
}

func (a *SMBAdapter) Getxattr(handle vfs.VfsHandle, name string, buf []byte) (int, error) {
	return 0, romfs.ENOTSUP
}

func (a *SMBAdapter) Setxattr(handle vfs.VfsHandle, name string, value []byte) error {
	return romfs.EROFS
}

func (a *SMBAdapter) Removexattr(handle vfs.VfsHandle, name string) error {
	return romfs.EROFS
}

// --- Helpers ---

func (a *SMBAdapter) statPath(p string) (*vfs.Attributes, error) {
	st, err := a.fs.Stat(common.AbsPath(p))
	if err != nil {
		return nil, err
	}
	return a.attributes(st), nil
}

// attributes converts a romfs stat to vfs.Attributes. Directories report
// 0555 so clients can traverse them.
func (a *SMBAdapter) attributes(st *romfs.Stat) *vfs.Attributes {
	attrs := &vfs.Attributes{}
	mode := uint32(0o444)
	fileType := vfs.FileTypeRegularFile
	if st.FileType() == romfs.FileTypeDirectory {
		mode = 0o555
		fileType = vfs.FileTypeDirectory
	}
	mtime := time.Unix(st.Mtime, 0)

	attrs.SetFileHandle(vfs.VfsNode(st.Ino + 1))
	attrs.SetInodeNumber(st.Ino + 1)
	attrs.SetSizeBytes(uint64(st.Size))
	attrs.SetLinkCount(st.Nlink)
	attrs.SetUID(a.uid)
	attrs.SetGID(a.gid)
	attrs.SetPermissions(vfs.NewPermissionsFromMode(mode))
	attrs.SetUnixMode(mode)
	attrs.SetLastDataModificationTime(mtime)
	attrs.SetLastStatusChangeTime(mtime)
	attrs.SetAccessTime(mtime)
	attrs.SetBirthTime(mtime)
	attrs.SetChangeID(uint64(st.Mtime))
	attrs.SetFileType(fileType)
	return attrs
}

var _ vfs.VFSFileSystem = (*SMBAdapter)(nil)
