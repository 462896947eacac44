//go:build !smb

package daemon

import (
	"fmt"

	"romfs/internal/common"
	"romfs/internal/vfs"
)

const smbSupported = false

// newSMBServer reports that SMB support was not compiled in.
func newSMBServer(fs *vfs.RomFS, shareName string) (NetFSServer, error) {
	return nil, fmt.Errorf("smb export (rebuild with -tags smb): %w", common.ErrUnsupported)
}
