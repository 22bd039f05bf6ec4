// Package storage persists the scoreboard configuration on flash using LittleFS.
// It handles atomic writes, version checking, and cleanup of temporary files.
package storage

import (
	"errors"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/config"

	"tinygo.org/x/tinyfs"
	"tinygo.org/x/tinyfs/littlefs"
)

const (
	configDir  = "/config"
	configFile = "/config/scoreboard.bin"
	tempSuffix = ".tmp"
)

var (
	ErrConfigNotFound = errors.New("config not found")
	ErrInvalidConfig  = errors.New("invalid config data")
)

// Manager handles config persistence using LittleFS.
type Manager struct {
	fs       *littlefs.LFS
	blockDev tinyfs.BlockDevice
	mounted  bool
	logger   *slog.Logger
}

// Stats provides information about storage usage.
type Stats struct {
	TotalSpace int64
	UsedSpace  int64
	FreeSpace  int64
	HasConfig  bool
}

// New initializes the storage system with the given block device.
// It mounts the filesystem and performs boot-time cleanup.
// If format is true and mount fails, it will format the filesystem.
func New(blockDev tinyfs.BlockDevice, format bool, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	lfs := littlefs.New(blockDev)

	// Configure LittleFS for RP2040 flash
	lfs.Configure(&littlefs.Config{
		CacheSize:     512,
		LookaheadSize: 128,
	})

	err := lfs.Mount()
	if err != nil {
		if !format {
			return nil, err
		}
		logger.Warn("mount failed, formatting", "error", err)
		if err := lfs.Format(); err != nil {
			return nil, err
		}
		if err := lfs.Mount(); err != nil {
			return nil, err
		}
	}

	m := &Manager{
		fs:       lfs,
		blockDev: blockDev,
		mounted:  true,
		logger:   logger,
	}

	if err := m.bootCleanup(); err != nil {
		logger.Warn("boot cleanup failed", "error", err)
	}

	needsWipe, err := m.checkVersion()
	if err != nil {
		// Unreadable record: treat like first boot, the next save replaces it
		logger.Warn("config unreadable", "error", err)
		needsWipe = false
	}

	if needsWipe {
		// Intentional: the operator re-provisions after a format change
		logger.Info("config version changed, wiping", "want", config.CurrentVersion)
		if err := m.wipeAll(); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Close unmounts the filesystem.
func (m *Manager) Close() error {
	if m.mounted {
		m.mounted = false
		return m.fs.Unmount()
	}
	return nil
}

// bootCleanup removes temporary files left over from interrupted writes.
func (m *Manager) bootCleanup() error {
	entries, err := m.readDir(configDir)
	if err != nil {
		// Config dir might not exist yet
		if isNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, tempSuffix) {
			tempPath := path.Join(configDir, name)
			m.logger.Debug("removing stale temp file", "path", tempPath)
			m.fs.Remove(tempPath)
		}
	}
	return nil
}

// readDir reads the directory entries at the given path.
func (m *Manager) readDir(dirPath string) ([]os.FileInfo, error) {
	f, err := m.fs.Open(dirPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !f.IsDir() {
		return nil, errors.New("not a directory")
	}

	return f.Readdir(-1)
}

// checkVersion reads the stored config and checks if its version matches.
// Returns true if the config should be wiped (version mismatch).
func (m *Manager) checkVersion() (bool, error) {
	var cfg config.Config
	if err := m.LoadConfig(&cfg); err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			// First boot
			return false, nil
		}
		return false, err
	}

	return cfg.Version != config.CurrentVersion, nil
}

// wipeAll removes all configuration files.
func (m *Manager) wipeAll() error {
	// Missing file is fine: nothing to wipe
	m.fs.Remove(configFile)
	return nil
}

// ensureDirs creates the config directory if it doesn't exist.
func (m *Manager) ensureDirs() error {
	if err := m.fs.Mkdir(configDir, 0755); err != nil && !isExist(err) {
		return err
	}
	return nil
}

// isExist checks if an error is "already exists".
// LittleFS errors don't always match os.IsExist, so we check the message too.
func isExist(err error) bool {
	if err == nil {
		return false
	}
	if os.IsExist(err) {
		return true
	}
	return strings.Contains(err.Error(), "already exists")
}

// isNotExist is isExist's counterpart for missing entries.
func isNotExist(err error) bool {
	if err == nil {
		return false
	}
	if os.IsNotExist(err) {
		return true
	}
	return strings.Contains(err.Error(), "No directory entry")
}

// LoadConfig loads the stored configuration.
func (m *Manager) LoadConfig(cfg *config.Config) error {
	f, err := m.fs.Open(configFile)
	if err != nil {
		if isNotExist(err) {
			return ErrConfigNotFound
		}
		return err
	}
	defer f.Close()

	buf := make([]byte, config.Size)
	n, err := f.Read(buf)
	if err != nil {
		return err
	}
	if n != config.Size {
		return ErrInvalidConfig
	}

	return cfg.UnmarshalBinary(buf)
}

// SaveConfig saves the configuration atomically.
func (m *Manager) SaveConfig(cfg *config.Config) error {
	if err := m.ensureDirs(); err != nil {
		return err
	}

	// Set version
	cfg.Version = config.CurrentVersion

	data, err := cfg.MarshalBinary()
	if err != nil {
		return err
	}

	if err := m.atomicWrite(configFile, data); err != nil {
		return err
	}
	m.logger.Info("config saved", "host", cfg.GetHost(), "port", cfg.Port)
	return nil
}

// ConfigExists checks if a configuration has been stored.
func (m *Manager) ConfigExists() bool {
	f, err := m.fs.Open(configFile)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// GetStats returns storage statistics.
func (m *Manager) GetStats() (*Stats, error) {
	// LittleFS doesn't have a direct "free space" call.
	// Config record + ~32 bytes LittleFS overhead, plus directory entries.
	exists := m.ConfigExists()
	used := int64(100)
	if exists {
		used += config.Size + 32
	}

	total := m.blockDev.Size()

	return &Stats{
		TotalSpace: total,
		UsedSpace:  used,
		FreeSpace:  total - used,
		HasConfig:  exists,
	}, nil
}

// atomicWrite writes data to a temporary file, syncs it, then renames.
// This ensures atomic updates - the original file is never in a partially written state.
func (m *Manager) atomicWrite(filepath string, data []byte) error {
	tempPath := filepath + tempSuffix

	// Remove temp file if it exists (from interrupted previous write)
	m.fs.Remove(tempPath)

	f, err := m.fs.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		m.fs.Remove(tempPath)
		return err
	}

	// Sync ensures data hits flash
	if syncer, ok := f.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			f.Close()
			m.fs.Remove(tempPath)
			return err
		}
	}

	if err := f.Close(); err != nil {
		m.fs.Remove(tempPath)
		return err
	}

	// LittleFS rename doesn't replace
	m.fs.Remove(filepath)

	if err := m.fs.Rename(tempPath, filepath); err != nil {
		m.fs.Remove(tempPath)
		return err
	}

	return nil
}

// ForceWipe erases the stored configuration (factory reset).
func (m *Manager) ForceWipe() error {
	m.logger.Info("config wiped")
	return m.wipeAll()
}
