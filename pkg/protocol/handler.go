package protocol

import (
	"encoding/binary"
	"errors"
	"log/slog"

	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/state"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/storage"
)

// Firmware version reported by CmdGetVersion.
const (
	FirmwareMajor = 1
	FirmwareMinor = 0
)

// DiscoverReply identifies the board to a host scanning serial ports.
const DiscoverReply = "scoreboard"

// Handler processes protocol commands.
type Handler struct {
	storage *storage.Manager
	status  *state.Published
	logger  *slog.Logger
}

// NewHandler creates a new protocol handler. status is the loop's published
// state; it may be nil before the loop has started.
func NewHandler(sm *storage.Manager, status *state.Published, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		storage: sm,
		status:  status,
		logger:  logger,
	}
}

// Handle processes a command frame and returns a response.
func (h *Handler) Handle(frame *Frame) *Response {
	switch frame.Cmd {
	case CmdPing:
		return h.handlePing(frame.Payload)
	case CmdGetConfig:
		return h.handleGetConfig()
	case CmdSetConfig:
		return h.handleSetConfig(frame.Payload)
	case CmdGetStatus:
		return h.handleGetStatus()
	case CmdGetStorageStats:
		return h.handleGetStorageStats()
	case CmdFactoryReset:
		return h.handleFactoryReset()
	case CmdGetVersion:
		return h.handleGetVersion()
	case CmdDiscover:
		return &Response{Status: StatusOK, Payload: []byte(DiscoverReply)}
	case CmdRestart:
		h.logger.Info("restart requested")
		return &Response{Status: StatusOK, Restart: true}
	default:
		return &Response{Status: StatusInvalidCmd}
	}
}

// handlePing responds with the same payload (echo).
func (h *Handler) handlePing(payload []byte) *Response {
	return &Response{
		Status:  StatusOK,
		Payload: payload,
	}
}

// handleGetConfig returns the stored configuration with the passphrase
// blanked.
func (h *Handler) handleGetConfig() *Response {
	var cfg config.Config
	if err := h.storage.LoadConfig(&cfg); err != nil {
		if errors.Is(err, storage.ErrConfigNotFound) {
			return &Response{Status: StatusNotFound}
		}
		h.logger.Error("load config", "error", err)
		return &Response{Status: StatusError}
	}

	cfg.SetPassphrase("")

	data, err := cfg.MarshalBinary()
	if err != nil {
		return &Response{Status: StatusError}
	}

	return &Response{
		Status:  StatusOK,
		Payload: data,
	}
}

// handleSetConfig validates and stores a configuration. An empty passphrase
// keeps the stored one, so a config read back with GetConfig can be
// written again unchanged. The board uses it after the next restart.
// Payload: [Config:252 bytes]
func (h *Handler) handleSetConfig(payload []byte) *Response {
	if len(payload) != config.Size {
		return &Response{Status: StatusInvalidData}
	}

	var cfg config.Config
	if err := cfg.UnmarshalBinary(payload); err != nil {
		return &Response{Status: StatusInvalidData}
	}

	if cfg.Version != config.CurrentVersion {
		return &Response{Status: StatusVersionMismatch}
	}

	if err := cfg.Validate(); err != nil {
		h.logger.Warn("rejected config", "error", err)
		return &Response{Status: StatusInvalidData, Payload: []byte(err.Error())}
	}

	if cfg.GetPassphrase() == "" {
		var stored config.Config
		if err := h.storage.LoadConfig(&stored); err == nil {
			cfg.Passphrase = stored.Passphrase
		}
	}

	if err := h.storage.SaveConfig(&cfg); err != nil {
		h.logger.Error("save config", "error", err)
		return &Response{Status: StatusError}
	}

	return &Response{Status: StatusOK}
}

// handleGetStatus returns the loop's last published status.
// Response: [Status:52 bytes]
func (h *Handler) handleGetStatus() *Response {
	if h.status == nil {
		return &Response{Status: StatusNotFound}
	}

	st := h.status.Load()
	data, err := st.MarshalBinary()
	if err != nil {
		return &Response{Status: StatusError}
	}

	return &Response{
		Status:  StatusOK,
		Payload: data,
	}
}

// handleGetStorageStats returns storage statistics.
// Response: [Total:4][Used:4][Free:4][HasConfig:1]
func (h *Handler) handleGetStorageStats() *Response {
	stats, err := h.storage.GetStats()
	if err != nil {
		return &Response{Status: StatusError}
	}

	payload := make([]byte, 13)
	binary.LittleEndian.PutUint32(payload[0:], uint32(stats.TotalSpace))
	binary.LittleEndian.PutUint32(payload[4:], uint32(stats.UsedSpace))
	binary.LittleEndian.PutUint32(payload[8:], uint32(stats.FreeSpace))
	if stats.HasConfig {
		payload[12] = 1
	}

	return &Response{
		Status:  StatusOK,
		Payload: payload,
	}
}

// handleFactoryReset wipes all configuration.
func (h *Handler) handleFactoryReset() *Response {
	if err := h.storage.ForceWipe(); err != nil {
		return &Response{Status: StatusError}
	}
	return &Response{Status: StatusOK}
}

// handleGetVersion returns firmware and config version info.
// Response: [FirmwareVersionMajor:1][FirmwareVersionMinor:1][ConfigVersion:2]
func (h *Handler) handleGetVersion() *Response {
	payload := make([]byte, 4)
	payload[0] = FirmwareMajor
	payload[1] = FirmwareMinor
	binary.LittleEndian.PutUint16(payload[2:], config.CurrentVersion)

	return &Response{
		Status:  StatusOK,
		Payload: payload,
	}
}
