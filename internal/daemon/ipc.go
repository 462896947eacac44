package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"

	"romfs/internal/mount"
	"romfs/internal/util"
)

// Request types
const (
	RequestStatus = "status"
	RequestStop   = "stop"
)

// SocketPath returns the control socket path for a share
func SocketPath(share string) string {
	return filepath.Join(getConfigDir(), share+".sock")
}

// Request is a control request sent to a serving daemon
type Request struct {
	Type string `json:"type"`
}

// Response is the reply to a control request
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	PID     int    `json:"pid,omitempty"`

	Share   string       `json:"share,omitempty"`
	Device  string       `json:"device,omitempty"`
	Export  Export       `json:"export,omitempty"`
	Addr    string       `json:"addr,omitempty"`
	MountID string       `json:"mount_id,omitempty"`
	Stats   *mount.Stats `json:"stats,omitempty"`
}

// ControlServer answers control requests on a unix socket
type ControlServer struct {
	path     string
	handler  func(*Request) *Response
	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// NewControlServer creates a control server listening on path
func NewControlServer(path string, handler func(*Request) *Response) *ControlServer {
	return &ControlServer{path: path, handler: handler}
}

// Start creates the socket and begins accepting connections
func (s *ControlServer) Start() error {
	// Remove a stale socket left by a crashed daemon; the serve lock
	// guarantees no live daemon owns it.
	os.Remove(s.path)

	var listener net.Listener
	err := util.Retry(context.Background(), func() error {
		var err error
		listener, err = net.Listen("unix", s.path)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create socket: %w", err)
	}
	if err := os.Chmod(s.path, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to restrict socket: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.wg.Add(1)
	go s.accept(listener)
	return nil
}

// Stop closes the socket and waits for in-flight requests
func (s *ControlServer) Stop() {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()
	if listener == nil {
		return
	}
	listener.Close()
	s.wg.Wait()
	os.Remove(s.path)
}

func (s *ControlServer) accept(listener net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Debugf("[Control] Accept: %v", err)
			}
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *ControlServer) handleConn(conn net.Conn) {
	defer conn.Close()

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		return
	}
	resp := s.handler(&req)
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		log.Debugf("[Control] Reply to %s: %v", req.Type, err)
	}
}

// Client talks to a serving daemon over its control socket
type Client struct {
	conn net.Conn
}

// Connect connects to the daemon serving share
func Connect(share string) (*Client, error) {
	conn, err := net.Dial("unix", SocketPath(share))
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Send sends a request and returns the response
func (c *Client) Send(req *Request) (*Response, error) {
	if err := json.NewEncoder(c.conn).Encode(req); err != nil {
		return nil, err
	}

	var resp Response
	if err := json.NewDecoder(c.conn).Decode(&resp); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("daemon closed connection")
		}
		return nil, err
	}
	return &resp, nil
}

// Status asks the daemon what it is serving
func (c *Client) Status() (*Response, error) {
	return c.Send(&Request{Type: RequestStatus})
}

// Stop asks the daemon to shut down
func (c *Client) Stop() (*Response, error) {
	return c.Send(&Request{Type: RequestStop})
}

// IsServing reports whether a daemon answers on the share's socket
func IsServing(share string) bool {
	client, err := Connect(share)
	if err != nil {
		return false
	}
	client.Close()
	return true
}

// handleRequest answers control requests for a running daemon
func (d *Daemon) handleRequest(req *Request) *Response {
	switch req.Type {
	case RequestStatus:
		resp := &Response{
			Success: true,
			PID:     os.Getpid(),
			Share:   d.settings.ShareName,
			Export:  d.settings.Export,
			Addr:    ServeAddr(d.settings),
		}
		if ctl := d.Controller(); ctl != nil && ctl.Mounted() {
			stats := ctl.Stats()
			resp.Device = ctl.Name()
			resp.MountID = ctl.MountID().String()
			resp.Stats = &stats
		}
		return resp
	case RequestStop:
		d.Stop()
		return &Response{Success: true, Message: "stopping", PID: os.Getpid()}
	default:
		return &Response{Success: false, Error: fmt.Sprintf("unknown request type: %s", req.Type)}
	}
}
