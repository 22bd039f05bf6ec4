// Package config defines the scoreboard's persisted settings.
// The record is a fixed-size struct with a hand-packed binary layout so it can
// be stored on flash and sent over the provisioning link without allocation
// beyond one buffer.
package config

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// CurrentVersion is the config format version.
// Bump this when making breaking changes to the config format.
// When firmware boots and finds a different version in flash, the config is wiped.
const CurrentVersion uint16 = 1

// Size is the length of a marshaled Config.
const Size = 252

// Flags
const (
	// FlagMergePartial applies the parsed prefix of a truncated or malformed
	// status line instead of keeping the previous state.
	FlagMergePartial uint32 = 1 << iota
	// FlagLoadingLights turns every indicator blue while a fetch is in flight.
	FlagLoadingLights
)

// Defaults
const (
	DefaultHost             = "192.168.1.117"
	DefaultPort             = 9999
	DefaultPath             = "/gp/dbd.php"
	DefaultRefreshMs        = 60000
	DefaultRotateMs         = 2000
	DefaultReceiveTimeoutMs = 1000
	DefaultRestartDelayMs   = 5000
	DefaultIntensity        = 15
)

// WatchdogTimeoutMs is how long the running firmware may go without feeding
// the watchdog. The loop feeds it on every rotate and refresh tick, so the
// rotate interval and a worst-case fetch (dial plus receive, each bounded by
// the receive timeout) must both fit inside it.
const WatchdogTimeoutMs = 8000

// Config is the scoreboard configuration.
// Total size: 252 bytes
// Layout:
//
//	[0-1]:     Version (uint16)
//	[2-5]:     Flags (uint32)
//	[6-37]:    SSID ([32]byte)
//	[38-101]:  Passphrase ([64]byte)
//	[102-165]: Host ([64]byte)
//	[166-229]: Path ([64]byte)
//	[230-231]: Port (uint16)
//	[232-235]: RefreshMs (uint32)
//	[236-239]: RotateMs (uint32)
//	[240-243]: ReceiveTimeoutMs (uint32)
//	[244-247]: RestartDelayMs (uint32)
//	[248]:     Intensity (uint8)
//	[249]:     Reserved (uint8)
//	[250-251]: Reserved for future use
type Config struct {
	Version          uint16   // Config format version
	Flags            uint32   // Feature flags
	SSID             [32]byte // WiFi network (null-terminated if shorter)
	Passphrase       [64]byte // WiFi passphrase (null-terminated if shorter)
	Host             [64]byte // Status server host or IP
	Path             [64]byte // Request path
	Port             uint16   // Status server TCP port
	RefreshMs        uint32   // Interval between fetches
	RotateMs         uint32   // Interval between view changes
	ReceiveTimeoutMs uint32   // Bound on one receive
	RestartDelayMs   uint32   // Error scene hold time before restart
	Intensity        uint8    // LED brightness 0-15
	Reserved1        uint8    // Padding
	Reserved2        uint16   // Reserved for future use
}

// Errors
var (
	ErrInvalidSize = errors.New("invalid config size")
)

// Default returns a Config populated with the factory settings. The WiFi
// credentials are left empty.
func Default() Config {
	c := Config{
		Version:          CurrentVersion,
		Port:             DefaultPort,
		RefreshMs:        DefaultRefreshMs,
		RotateMs:         DefaultRotateMs,
		ReceiveTimeoutMs: DefaultReceiveTimeoutMs,
		RestartDelayMs:   DefaultRestartDelayMs,
		Intensity:        DefaultIntensity,
	}
	c.SetHost(DefaultHost)
	c.SetPath(DefaultPath)
	return c
}

// MarshalBinary implements encoding.BinaryMarshaler for Config.
func (c *Config) MarshalBinary() ([]byte, error) {
	buf := make([]byte, Size)
	binary.LittleEndian.PutUint16(buf[0:], c.Version)
	binary.LittleEndian.PutUint32(buf[2:], c.Flags)
	copy(buf[6:38], c.SSID[:])
	copy(buf[38:102], c.Passphrase[:])
	copy(buf[102:166], c.Host[:])
	copy(buf[166:230], c.Path[:])
	binary.LittleEndian.PutUint16(buf[230:], c.Port)
	binary.LittleEndian.PutUint32(buf[232:], c.RefreshMs)
	binary.LittleEndian.PutUint32(buf[236:], c.RotateMs)
	binary.LittleEndian.PutUint32(buf[240:], c.ReceiveTimeoutMs)
	binary.LittleEndian.PutUint32(buf[244:], c.RestartDelayMs)
	buf[248] = c.Intensity
	buf[249] = c.Reserved1
	binary.LittleEndian.PutUint16(buf[250:], c.Reserved2)
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for Config.
func (c *Config) UnmarshalBinary(data []byte) error {
	if len(data) < Size {
		return ErrInvalidSize
	}

	c.Version = binary.LittleEndian.Uint16(data[0:])
	c.Flags = binary.LittleEndian.Uint32(data[2:])
	copy(c.SSID[:], data[6:38])
	copy(c.Passphrase[:], data[38:102])
	copy(c.Host[:], data[102:166])
	copy(c.Path[:], data[166:230])
	c.Port = binary.LittleEndian.Uint16(data[230:])
	c.RefreshMs = binary.LittleEndian.Uint32(data[232:])
	c.RotateMs = binary.LittleEndian.Uint32(data[236:])
	c.ReceiveTimeoutMs = binary.LittleEndian.Uint32(data[240:])
	c.RestartDelayMs = binary.LittleEndian.Uint32(data[244:])
	c.Intensity = data[248]
	c.Reserved1 = data[249]
	c.Reserved2 = binary.LittleEndian.Uint16(data[250:])
	return nil
}

// Marshal writes the Config to w in binary format.
// Returns the number of bytes written.
func (c *Config) Marshal(w io.Writer) (int, error) {
	buf, err := c.MarshalBinary()
	if err != nil {
		return 0, err
	}
	return w.Write(buf)
}

// Unmarshal reads the Config from r in binary format.
func (c *Config) Unmarshal(r io.Reader) error {
	buf := make([]byte, Size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	return c.UnmarshalBinary(buf)
}

// Validate reports the first setting that would stop the board from working.
func (c *Config) Validate() error {
	if c.GetHost() == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port == 0 {
		return fmt.Errorf("port must be non-zero")
	}
	if p := c.GetPath(); p == "" || p[0] != '/' {
		return fmt.Errorf("path %q must start with /", p)
	}
	if c.RefreshMs == 0 {
		return fmt.Errorf("refresh interval must be non-zero")
	}
	if c.RotateMs == 0 {
		return fmt.Errorf("rotate interval must be non-zero")
	}
	if c.ReceiveTimeoutMs == 0 {
		return fmt.Errorf("receive timeout must be non-zero")
	}
	if c.ReceiveTimeoutMs >= c.RefreshMs {
		return fmt.Errorf("receive timeout %dms must be shorter than refresh interval %dms",
			c.ReceiveTimeoutMs, c.RefreshMs)
	}
	if c.RotateMs >= WatchdogTimeoutMs {
		return fmt.Errorf("rotate interval %dms must be shorter than the %dms watchdog",
			c.RotateMs, WatchdogTimeoutMs)
	}
	if 2*uint64(c.ReceiveTimeoutMs) >= WatchdogTimeoutMs {
		return fmt.Errorf("receive timeout %dms allows a fetch to outlast the %dms watchdog",
			c.ReceiveTimeoutMs, WatchdogTimeoutMs)
	}
	if c.Intensity > 15 {
		return fmt.Errorf("intensity %d out of range 0-15", c.Intensity)
	}
	return nil
}

// Has reports whether flag is set.
func (c *Config) Has(flag uint32) bool {
	return c.Flags&flag != 0
}

// Refresh returns the fetch interval.
func (c *Config) Refresh() time.Duration {
	return time.Duration(c.RefreshMs) * time.Millisecond
}

// Rotate returns the view rotation interval.
func (c *Config) Rotate() time.Duration {
	return time.Duration(c.RotateMs) * time.Millisecond
}

// ReceiveTimeout returns the bound on one receive.
func (c *Config) ReceiveTimeout() time.Duration {
	return time.Duration(c.ReceiveTimeoutMs) * time.Millisecond
}

// RestartDelay returns how long the error scene is held before restarting.
func (c *Config) RestartDelay() time.Duration {
	return time.Duration(c.RestartDelayMs) * time.Millisecond
}

// GetSSID returns the WiFi network name.
func (c *Config) GetSSID() string { return getString(c.SSID[:]) }

// SetSSID sets the WiFi network name, truncated to 31 bytes.
func (c *Config) SetSSID(s string) { setString(c.SSID[:], s) }

// GetPassphrase returns the WiFi passphrase.
func (c *Config) GetPassphrase() string { return getString(c.Passphrase[:]) }

// SetPassphrase sets the WiFi passphrase, truncated to 63 bytes.
func (c *Config) SetPassphrase(s string) { setString(c.Passphrase[:], s) }

// GetHost returns the status server host.
func (c *Config) GetHost() string { return getString(c.Host[:]) }

// SetHost sets the status server host, truncated to 63 bytes.
func (c *Config) SetHost(s string) { setString(c.Host[:], s) }

// GetPath returns the request path.
func (c *Config) GetPath() string { return getString(c.Path[:]) }

// SetPath sets the request path, truncated to 63 bytes.
func (c *Config) SetPath(s string) { setString(c.Path[:], s) }

// getString returns the field as a string (up to null terminator).
func getString(field []byte) string {
	for i, b := range field {
		if b == 0 {
			return string(field[:i])
		}
	}
	return string(field)
}

// setString stores s, always leaving room for a null terminator. Bytes past
// the terminator are zeroed so the record marshals deterministically.
func setString(field []byte, s string) {
	n := copy(field[:len(field)-1], s)
	for i := n; i < len(field); i++ {
		field[i] = 0
	}
}
