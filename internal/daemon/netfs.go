package daemon

import (
	"fmt"

	"romfs/internal/common"
	"romfs/internal/vfs"
)

// NetFSServer abstracts the host export (NFS, FUSE or SMB)
type NetFSServer interface {
	// Serve starts the server on the given address and blocks until
	// Shutdown. Network exports take "host:port"; FUSE takes a mount point.
	Serve(addr string) error

	// Shutdown stops the server
	Shutdown()
}

// NewServer creates the export selected by settings for fs.
func NewServer(settings *Settings, fs *vfs.RomFS) (NetFSServer, error) {
	switch settings.Export {
	case ExportNFS:
		return NewNFSServer(fs), nil
	case ExportFUSE:
		srv, err := NewFUSEServer(fs, FUSEOptions{
			FsName:     settings.DeviceName,
			Name:       settings.ShareName,
			AllowOther: settings.AllowOther,
			Timeout:    settings.Timeout(),
		})
		if err != nil {
			return nil, err
		}
		return srv, nil
	case ExportSMB:
		return newSMBServer(fs, settings.ShareName)
	default:
		return nil, fmt.Errorf("%w %q", common.ErrUnknownExport, settings.Export)
	}
}

// ServeAddr returns the address argument Serve expects for settings.
func ServeAddr(settings *Settings) string {
	if settings.Export == ExportFUSE {
		return settings.MountPoint
	}
	return settings.Listen
}
