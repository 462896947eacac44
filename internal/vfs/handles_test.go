package vfs

import (
	"os"
	"sync"
	"testing"
)

func newHandleFS(t *testing.T) *RomFS {
	t.Helper()
	return newTestFS(t, sampleMembers)
}

func TestNewHandleManager(t *testing.T) {
	hm := NewHandleManager()
	if hm == nil {
		t.Fatal("NewHandleManager returned nil")
	}
	if hm.handles == nil {
		t.Error("handles map is nil")
	}
	if hm.nextHandle != 1 {
		t.Errorf("nextHandle = %d, want 1", hm.nextHandle)
	}
}

func TestAllocate(t *testing.T) {
	rfs := newHandleFS(t)
	hm := NewHandleManager()

	f, err := rfs.Open("/helloworld.txt", os.O_RDONLY)
	if err != nil {
		t.Fatal(err)
	}
	d, err := rfs.OpenDir("/dir")
	if err != nil {
		t.Fatal(err)
	}

	h1 := hm.AllocateFile("/helloworld.txt", f)
	h2 := hm.AllocateDir("/dir", d)

	if h1 == 0 || h2 == 0 {
		t.Error("handles should not be 0")
	}
	if h1 != 1 || h2 != 2 {
		t.Error("handles should be sequential")
	}

	if got, ok := hm.File(h1); !ok || got != f {
		t.Error("File(h1) should return the allocated file")
	}
	if _, ok := hm.Dir(h1); ok {
		t.Error("Dir(h1) should fail for a file handle")
	}
	if got, ok := hm.Dir(h2); !ok || got != d {
		t.Error("Dir(h2) should return the allocated cursor")
	}
	if p, ok := hm.Path(h2); !ok || p != "/dir" {
		t.Errorf("Path(h2) = %q, want /dir", p)
	}
}

func TestRelease(t *testing.T) {
	rfs := newHandleFS(t)
	hm := NewHandleManager()

	f, _ := rfs.Open("/helloworld.txt", os.O_RDONLY)
	h := hm.AllocateFile("/helloworld.txt", f)

	if err := hm.Release(h); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, ok := hm.File(h); ok {
		t.Error("handle should be gone after Release")
	}
	if _, err := f.Read(make([]byte, 1)); err != EBADF {
		t.Errorf("Read after Release = %v, want EBADF", err)
	}
	if err := hm.Release(h); err != EBADF {
		t.Errorf("double Release = %v, want EBADF", err)
	}
}

func TestDirEnumDone(t *testing.T) {
	rfs := newHandleFS(t)
	hm := NewHandleManager()

	d, _ := rfs.OpenDir("/")
	h := hm.AllocateDir("/", d)

	if hm.IsDirEnumDone(h) {
		t.Error("new handle should not be done")
	}
	hm.SetDirEnumDone(h, true)
	if !hm.IsDirEnumDone(h) {
		t.Error("handle should be done")
	}
	if hm.IsDirEnumDone(999) {
		t.Error("unknown handle should not be done")
	}
}

func TestClear(t *testing.T) {
	rfs := newHandleFS(t)
	hm := NewHandleManager()

	for i := 0; i < 5; i++ {
		d, _ := rfs.OpenDir("/")
		hm.AllocateDir("/", d)
	}
	if n := hm.Clear(); n != 5 {
		t.Errorf("Clear() = %d, want 5", n)
	}
	if hm.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", hm.Len())
	}
	d, _ := rfs.OpenDir("/")
	if h := hm.AllocateDir("/", d); h != 6 {
		t.Errorf("handle after Clear = %d, want 6 (no reuse)", h)
	}
}

func TestConcurrentAllocate(t *testing.T) {
	rfs := newHandleFS(t)
	hm := NewHandleManager()

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[HandleID]bool)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := rfs.Open("/big.bin", os.O_RDONLY)
			if err != nil {
				t.Error(err)
				return
			}
			h := hm.AllocateFile("/big.bin", f)
			mu.Lock()
			seen[h] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != 50 {
		t.Errorf("got %d unique handles, want 50", len(seen))
	}
}
