package daemon

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	log "github.com/sirupsen/logrus"

	"romfs/internal/common"
	"romfs/internal/device"
	"romfs/internal/mount"
)

// shutdownWait bounds how long Run waits for Serve to return.
const shutdownWait = 2 * time.Second

// Daemon serves one archive through one export until stopped
type Daemon struct {
	settings *Settings
	archive  []byte
	table    *device.Table

	// LogToStderr keeps log output on stderr instead of LogPath().
	LogToStderr bool

	lock    *flock.Flock
	logFile *os.File
	ctl     *mount.Controller

	mu       sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
	readyCh  chan struct{}
}

// New creates a daemon for archive. table may be nil, in which case
// device.Default is used.
func New(settings *Settings, archive []byte, table *device.Table) *Daemon {
	if table == nil {
		table = device.Default
	}
	return &Daemon{
		settings: settings,
		archive:  archive,
		table:    table,
		stopCh:   make(chan struct{}),
		readyCh:  make(chan struct{}),
	}
}

// Ready is closed once the archive is mounted and the export is starting.
func (d *Daemon) Ready() <-chan struct{} {
	return d.readyCh
}

// Controller returns the mount controller, or nil before Run mounts.
func (d *Daemon) Controller() *mount.Controller {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ctl
}

// Stop asks Run to shut down.
func (d *Daemon) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
}

// Run mounts the archive, starts the export and blocks until a signal,
// Stop, or an export failure.
func (d *Daemon) Run() error {
	if err := d.settings.Validate(); err != nil {
		return err
	}
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	// Acquire exclusive lock
	d.lock = flock.New(LockPath(d.settings.ShareName))
	locked, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("share %q: %w", d.settings.ShareName, common.ErrAlreadyServing)
	}
	defer d.lock.Unlock()

	if err := d.setupLogging(); err != nil {
		return err
	}
	if d.logFile != nil {
		defer d.logFile.Close()
	}

	ctl := mount.New(d.archive, d.table, mount.WithName(d.settings.DeviceName))
	if err := ctl.Mount(); err != nil {
		return err
	}
	defer func() {
		if err := ctl.Unmount(); err != nil && !errors.Is(err, common.ErrNotMounted) {
			log.Warnf("[Daemon] Unmount: %v", err)
		}
	}()

	server, err := NewServer(d.settings, ctl.FS())
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.ctl = ctl
	d.mu.Unlock()

	control := NewControlServer(SocketPath(d.settings.ShareName), d.handleRequest)
	if err := control.Start(); err != nil {
		log.Warnf("[Daemon] Control socket unavailable: %v", err)
	} else {
		defer control.Stop()
	}

	addr := ServeAddr(d.settings)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(addr)
	}()
	log.Infof("[Daemon] Serving %s: via %s at %s (PID %d)", ctl.Name()+":", d.settings.Export, addr, os.Getpid())
	close(d.readyCh)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var serveErr error
	select {
	case sig := <-sigCh:
		log.Infof("[Daemon] Received signal %v, shutting down...", sig)
	case <-d.stopCh:
		log.Infof("[Daemon] Stop requested, shutting down...")
	case serveErr = <-errCh:
		log.Errorf("[Daemon] Export stopped: %v", serveErr)
		errCh = nil
	}

	server.Shutdown()
	if errCh != nil {
		select {
		case serveErr = <-errCh:
		case <-time.After(shutdownWait):
			log.Warnf("[Daemon] Timeout waiting for export to stop")
		}
	}

	log.Infof("[Daemon] Stopped")
	return serveErr
}

func (d *Daemon) setupLogging() error {
	if err := ConfigureLogging(d.settings.LogLevel, os.Stderr); err != nil {
		return err
	}
	if d.LogToStderr || isLogOff(d.settings.LogLevel) {
		return nil
	}
	f, err := openLogFile()
	if err != nil {
		return err
	}
	d.logFile = f
	log.SetOutput(f)
	return nil
}
