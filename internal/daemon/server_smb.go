//go:build smb

package daemon

import (
	"strings"
	"sync"

	smb2 "github.com/macos-fuse-t/go-smb2/server"
	"github.com/macos-fuse-t/go-smb2/vfs"
	log "github.com/sirupsen/logrus"

	romfs "romfs/internal/vfs"
)

const smbSupported = true

// netbiosNameLen is the longest NetBIOS name an NTLM challenge may carry.
const netbiosNameLen = 15

// SMBServer exports one read-only share over go-smb2. Only guest sessions
// are offered since there is nothing to protect from writes.
type SMBServer struct {
	share  string
	server *smb2.Server
	once   sync.Once
}

// NewSMBServer creates an SMB server exporting fs as shareName
func NewSMBServer(fs vfs.VFSFileSystem, shareName string) *SMBServer {
	cfg := &smb2.ServerConfig{
		AllowGuest:  true,
		MaxIOReads:  4,
		MaxIOWrites: 1, // writes are refused by the adapter anyway
	}
	host := strings.ToLower(shareName)
	auth := &smb2.NTLMAuthenticator{
		NbDomain:   "WORKGROUP",
		NbName:     netbiosName(shareName),
		DnsName:    host + ".local",
		DnsDomain:  ".local",
		AllowGuest: true,
	}
	return &SMBServer{
		share:  shareName,
		server: smb2.NewServer(cfg, auth, map[string]vfs.VFSFileSystem{shareName: fs}),
	}
}

// netbiosName returns the upper-cased, length-limited NetBIOS form of name.
func netbiosName(name string) string {
	name = strings.ToUpper(name)
	if len(name) > netbiosNameLen {
		name = name[:netbiosNameLen]
	}
	return name
}

// Serve listens on addr and blocks until Shutdown.
func (s *SMBServer) Serve(addr string) error {
	log.Infof("[SMB] Serving share %q on %s", s.share, addr)
	return s.server.Serve(addr)
}

// Shutdown stops the server. It is safe to call more than once.
func (s *SMBServer) Shutdown() {
	s.once.Do(func() { s.server.Shutdown() })
}

func newSMBServer(fs *romfs.RomFS, shareName string) (NetFSServer, error) {
	return NewSMBServer(NewSMBAdapter(fs), shareName), nil
}
