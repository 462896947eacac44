package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"romfs/internal/artifacts"
	"romfs/internal/common"
	"romfs/internal/mount"
)

// Export names the host surface a share is served through.
type Export string

const (
	ExportNFS  Export = "nfs"
	ExportFUSE Export = "fuse"
	ExportSMB  Export = "smb"
)

// ParseExport parses an export name (case insensitive).
func ParseExport(s string) (Export, error) {
	switch e := Export(strings.ToLower(s)); e {
	case ExportNFS, ExportFUSE, ExportSMB:
		return e, nil
	}
	return "", fmt.Errorf("%w %q (want nfs, fuse or smb)", common.ErrUnknownExport, s)
}

// getConfigDir returns the config directory path.
// Uses ROMFS_CONFIG_DIR env var if set, otherwise defaults to ~/.romfs.
// This is computed dynamically to support test isolation.
func getConfigDir() string {
	if dir := os.Getenv("ROMFS_CONFIG_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".romfs")
}

// ConfigDir returns the configuration directory path
func ConfigDir() string {
	return getConfigDir()
}

// SettingsPath returns the settings file path
func SettingsPath() string {
	return filepath.Join(getConfigDir(), "settings.yaml")
}

// LockPath returns the serve lock path for a share
func LockPath(share string) string {
	return filepath.Join(getConfigDir(), share+".lock")
}

// LogPath returns the log file path.
// Uses ROMFS_LOG env var if set, otherwise defaults to config_dir/romfs.log.
func LogPath() string {
	if envPath := os.Getenv("ROMFS_LOG"); envPath != "" {
		return envPath
	}
	return filepath.Join(getConfigDir(), "romfs.log")
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	return os.MkdirAll(getConfigDir(), 0700)
}

// InitConfigDir creates the config directory and writes the default
// settings file from the embedded template if none exists.
func InitConfigDir() error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	settingsPath := SettingsPath()
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		if err := os.WriteFile(settingsPath, artifacts.GlobalSettings, 0600); err != nil {
			return fmt.Errorf("failed to create default settings: %w", err)
		}
	}
	return nil
}

// Settings configures one served share.
type Settings struct {
	LogLevel     string `yaml:"log_level"`     // trace, debug, info, warn, off (default: off)
	Export       Export `yaml:"export"`        // nfs, fuse, smb (default: nfs)
	Listen       string `yaml:"listen"`        // address for network exports
	ShareName    string `yaml:"share_name"`    // export share name, also names the lock
	DeviceName   string `yaml:"device_name"`   // device label, default "romfs"
	MountPoint   string `yaml:"mount_point"`   // fuse mount point
	AllowOther   bool   `yaml:"allow_other"`   // fuse allow_other
	EntryTimeout int    `yaml:"entry_timeout"` // fuse cache timeout (seconds)
}

// ApplyDefaults fills zero-value fields with their defaults.
func (s *Settings) ApplyDefaults() {
	if s.LogLevel == "" {
		s.LogLevel = "off"
	}
	s.Export = Export(strings.ToLower(string(s.Export)))
	if s.Export == "" {
		s.Export = ExportNFS
	}
	if s.Listen == "" {
		s.Listen = "127.0.0.1:12049"
	}
	if s.ShareName == "" {
		s.ShareName = "romfs"
	}
	if s.DeviceName == "" {
		s.DeviceName = mount.DefaultName
	}
	if s.EntryTimeout <= 0 {
		s.EntryTimeout = 60
	}
}

// Validate checks fields that have no sensible default.
func (s *Settings) Validate() error {
	if _, err := ParseExport(string(s.Export)); err != nil {
		return err
	}
	if s.Export == ExportFUSE && s.MountPoint == "" {
		return fmt.Errorf("export fuse requires mount_point")
	}
	if strings.ContainsAny(s.ShareName, `/\:`) {
		return fmt.Errorf("invalid share name %q", s.ShareName)
	}
	if strings.Contains(s.DeviceName, ":") {
		return fmt.Errorf("invalid device name %q", s.DeviceName)
	}
	return nil
}

// Timeout returns EntryTimeout as a duration.
func (s *Settings) Timeout() time.Duration {
	return time.Duration(s.EntryTimeout) * time.Second
}

// loadDefaultSettings parses default settings from embedded artifact.
func loadDefaultSettings() Settings {
	var settings Settings
	if err := yaml.Unmarshal(artifacts.GlobalSettings, &settings); err != nil {
		panic("failed to parse embedded settings: " + err.Error())
	}
	return settings
}

// LoadSettings loads settings from path, or from SettingsPath() when path
// is empty. A missing file yields the embedded defaults.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		path = SettingsPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			settings := loadDefaultSettings()
			settings.ApplyDefaults()
			return &settings, nil
		}
		return nil, err
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	settings.ApplyDefaults()
	return &settings, nil
}

// SaveSettings writes settings to SettingsPath().
func SaveSettings(settings *Settings) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	header := []byte("# RomFS daemon settings\n# See: romfs serve --help\n\n")
	return os.WriteFile(SettingsPath(), append(header, data...), 0600)
}
