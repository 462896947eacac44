package vfs

import "sync"

// HandleID is the type for VFS handles
type HandleID uint64

// openHandle represents an open file or directory
type openHandle struct {
	path        string
	file        *File
	dir         *Dir
	dirEnumDone bool // True if directory enumeration completed (for SMB)
}

// HandleManager maps integer handles to open files and directory cursors for
// host surfaces that address objects by number. Unlike RomFS it is safe for
// concurrent use.
type HandleManager struct {
	mu         sync.RWMutex
	handles    map[HandleID]*openHandle
	nextHandle HandleID
}

// NewHandleManager creates a new handle manager
func NewHandleManager() *HandleManager {
	return &HandleManager{
		handles:    make(map[HandleID]*openHandle),
		nextHandle: 1,
	}
}

func (hm *HandleManager) allocate(info *openHandle) HandleID {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	handle := hm.nextHandle
	hm.nextHandle++
	hm.handles[handle] = info
	return handle
}

// AllocateFile creates a new handle for an open file
func (hm *HandleManager) AllocateFile(path string, f *File) HandleID {
	return hm.allocate(&openHandle{path: path, file: f})
}

// AllocateDir creates a new handle for a directory cursor
func (hm *HandleManager) AllocateDir(path string, d *Dir) HandleID {
	return hm.allocate(&openHandle{path: path, dir: d})
}

// File returns the open file behind h.
func (hm *HandleManager) File(h HandleID) (*File, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	info, ok := hm.handles[h]
	if !ok || info.file == nil {
		return nil, false
	}
	return info.file, true
}

// Dir returns the directory cursor behind h.
func (hm *HandleManager) Dir(h HandleID) (*Dir, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	info, ok := hm.handles[h]
	if !ok || info.dir == nil {
		return nil, false
	}
	return info.dir, true
}

// Path returns the path h was opened with.
func (hm *HandleManager) Path(h HandleID) (string, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	info, ok := hm.handles[h]
	if !ok {
		return "", false
	}
	return info.path, true
}

// Release frees a handle, closing the file behind it
func (hm *HandleManager) Release(h HandleID) error {
	hm.mu.Lock()
	info, ok := hm.handles[h]
	delete(hm.handles, h)
	hm.mu.Unlock()

	if !ok {
		return EBADF
	}
	if info.file != nil {
		return info.file.Close()
	}
	return info.dir.Close()
}

// SetDirEnumDone marks directory enumeration as complete
func (hm *HandleManager) SetDirEnumDone(h HandleID, done bool) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	if info, ok := hm.handles[h]; ok {
		info.dirEnumDone = done
	}
}

// IsDirEnumDone checks if directory enumeration is complete
func (hm *HandleManager) IsDirEnumDone(h HandleID) bool {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	if info, ok := hm.handles[h]; ok {
		return info.dirEnumDone
	}
	return false
}

// Len returns the number of open handles
func (hm *HandleManager) Len() int {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	return len(hm.handles)
}

// Clear removes all handles, returning the count of handles cleared
// Used at unmount so stale handles cannot outlive the tree they point into
func (hm *HandleManager) Clear() int {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	count := len(hm.handles)
	hm.handles = make(map[HandleID]*openHandle)
	// Don't reset nextHandle to avoid handle ID reuse issues
	return count
}
