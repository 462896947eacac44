package daemon

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	nfs "github.com/willscott/go-nfs"
)

// maxLogSize is the size past which the log file is halved on startup.
const maxLogSize = 50 * 1024 * 1024

// ConfigureLogging sets the logrus level and output (case insensitive).
// "off", "none" and "" discard all output. The go-nfs logger follows the
// level but keeps its own output.
func ConfigureLogging(level string, out io.Writer) error {
	level = strings.ToLower(level)
	if isLogOff(level) {
		log.SetOutput(io.Discard)
		nfs.Log.SetLevel(nfs.PanicLevel)
		return nil
	}

	switch level {
	case "trace":
		log.SetLevel(log.TraceLevel)
		nfs.Log.SetLevel(nfs.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
		nfs.Log.SetLevel(nfs.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
		nfs.Log.SetLevel(nfs.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
		nfs.Log.SetLevel(nfs.WarnLevel)
	default:
		return fmt.Errorf("unknown log level %q (want trace, debug, info, warn or off)", level)
	}
	log.SetOutput(out)
	return nil
}

// openLogFile opens LogPath for appending, halving it first if it has
// grown past maxLogSize.
func openLogFile() (*os.File, error) {
	if err := truncateLogFile(LogPath(), maxLogSize); err != nil {
		// Non-fatal, just log to stderr
		fmt.Fprintf(os.Stderr, "Warning: failed to truncate log file: %v\n", err)
	}
	f, err := os.OpenFile(LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// truncateLogFile truncates the log file if it exceeds maxSize bytes.
// It keeps the last half of the file content to preserve recent logs.
func truncateLogFile(logPath string, maxSize int64) error {
	info, err := os.Stat(logPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() <= maxSize {
		return nil
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		return err
	}

	// Keep the last half, starting at a line boundary
	startIdx := len(data) - len(data)/2
	for i := startIdx; i < len(data); i++ {
		if data[i] == '\n' {
			startIdx = i + 1
			break
		}
	}

	kept := data[startIdx:]
	header := []byte(fmt.Sprintf("--- Log truncated at %s (kept last %d bytes) ---\n",
		time.Now().Format(time.RFC3339), len(kept)))

	return os.WriteFile(logPath, append(header, kept...), 0600)
}

func isLogOff(level string) bool {
	switch strings.ToLower(level) {
	case "", "off", "none":
		return true
	}
	return false
}
