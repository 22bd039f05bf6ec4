package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/state"
	"github.com/tuffrabit/tinygo-scoreboard-rp2040/pkg/storage"

	"tinygo.org/x/tinyfs"
)

func newTestHandler(t *testing.T) (*Handler, *storage.Manager, *state.Published) {
	blockDev := tinyfs.NewMemoryDevice(256, 4096, 64)
	mgr, err := storage.New(blockDev, true, nil)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	pub := state.NewPublished()
	return NewHandler(mgr, pub, nil), mgr, pub
}

func newTestConfig() config.Config {
	cfg := config.Default()
	cfg.SetSSID("lab")
	cfg.SetPassphrase("s3cret-pass")
	cfg.SetHost("10.1.2.3")
	cfg.Port = 8081
	return cfg
}

func TestFrameEncodingDecoding(t *testing.T) {
	// Create a frame
	original := &Frame{
		Cmd:     CmdGetConfig,
		Payload: []byte{1, 2, 3, 4},
	}

	// Write to buffer
	var buf bytes.Buffer
	if err := WriteFrame(&buf, original); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	// Read back
	decoded, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}

	// Verify
	if decoded.Cmd != original.Cmd {
		t.Errorf("Cmd: expected 0x%x, got 0x%x", original.Cmd, decoded.Cmd)
	}
	if !bytes.Equal(decoded.Payload, original.Payload) {
		t.Errorf("Payload: expected %v, got %v", original.Payload, decoded.Payload)
	}
}

func TestReadResponseSkipsLogOutput(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("time=12:00:00 level=INFO msg=\"fetched status\"\r\n")
	if err := WriteResponse(&buf, &Response{Status: StatusOK, Payload: []byte("scoreboard")}); err != nil {
		t.Fatalf("WriteResponse failed: %v", err)
	}

	resp, err := ReadResponse(&buf, 256)
	if err != nil {
		t.Fatalf("ReadResponse failed: %v", err)
	}
	if resp.Status != StatusOK || string(resp.Payload) != "scoreboard" {
		t.Errorf("got status %s payload %q", StatusName(resp.Status), resp.Payload)
	}
}

func TestReadResponseGivesUp(t *testing.T) {
	buf := bytes.NewBufferString("no frame here at all")

	if _, err := ReadResponse(buf, 4); err != ErrInvalidFrame {
		t.Errorf("Expected ErrInvalidFrame, got %v", err)
	}

	if _, err := ReadResponse(bytes.NewReader(nil), 4); !errors.Is(err, io.EOF) {
		t.Errorf("Expected EOF on empty input, got %v", err)
	}
}

func TestPingCommand(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	frame := &Frame{
		Cmd:     CmdPing,
		Payload: []byte{0xAA, 0xBB, 0xCC},
	}

	resp := handler.Handle(frame)

	if resp.Status != StatusOK {
		t.Errorf("Expected status OK, got 0x%x", resp.Status)
	}
	if !bytes.Equal(resp.Payload, frame.Payload) {
		t.Errorf("Expected echo payload, got %v", resp.Payload)
	}
}

func TestGetSetConfig(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	// Set config
	cfg := newTestConfig()
	data, _ := cfg.MarshalBinary()

	setResp := handler.Handle(&Frame{Cmd: CmdSetConfig, Payload: data})
	if setResp.Status != StatusOK {
		t.Fatalf("SetConfig failed: status 0x%x", setResp.Status)
	}

	// Get config back
	getResp := handler.Handle(&Frame{Cmd: CmdGetConfig})
	if getResp.Status != StatusOK {
		t.Fatalf("GetConfig failed: status 0x%x", getResp.Status)
	}

	// Verify
	var loaded config.Config
	if err := loaded.UnmarshalBinary(getResp.Payload); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if loaded.GetHost() != "10.1.2.3" {
		t.Errorf("Host: expected %q, got %q", "10.1.2.3", loaded.GetHost())
	}
	if loaded.Port != 8081 {
		t.Errorf("Port: expected 8081, got %d", loaded.Port)
	}
	if loaded.GetPassphrase() != "" {
		t.Errorf("Passphrase should not be readable, got %q", loaded.GetPassphrase())
	}
}

func TestSetConfigKeepsPassphrase(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	cfg := newTestConfig()
	data, _ := cfg.MarshalBinary()
	handler.Handle(&Frame{Cmd: CmdSetConfig, Payload: data})

	// Write back what GetConfig returned, with a new host
	getResp := handler.Handle(&Frame{Cmd: CmdGetConfig})
	var edited config.Config
	edited.UnmarshalBinary(getResp.Payload)
	edited.SetHost("10.9.9.9")
	data, _ = edited.MarshalBinary()

	if resp := handler.Handle(&Frame{Cmd: CmdSetConfig, Payload: data}); resp.Status != StatusOK {
		t.Fatalf("SetConfig failed: status 0x%x", resp.Status)
	}

	var stored config.Config
	if err := mgr.LoadConfig(&stored); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if stored.GetPassphrase() != "s3cret-pass" {
		t.Errorf("Passphrase: expected stored value kept, got %q", stored.GetPassphrase())
	}
	if stored.GetHost() != "10.9.9.9" {
		t.Errorf("Host: expected %q, got %q", "10.9.9.9", stored.GetHost())
	}
}

func TestSetConfigRejectsInvalid(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	cfg := newTestConfig()
	cfg.Port = 0
	data, _ := cfg.MarshalBinary()

	resp := handler.Handle(&Frame{Cmd: CmdSetConfig, Payload: data})
	if resp.Status != StatusInvalidData {
		t.Errorf("Expected StatusInvalidData, got 0x%x", resp.Status)
	}
	if len(resp.Payload) == 0 {
		t.Error("Expected a reason in the payload")
	}
	if mgr.ConfigExists() {
		t.Error("Invalid config should not be stored")
	}
}

func TestConfigVersionMismatch(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	cfg := newTestConfig()
	cfg.Version = config.CurrentVersion + 1 // Wrong version
	data, _ := cfg.MarshalBinary()

	resp := handler.Handle(&Frame{Cmd: CmdSetConfig, Payload: data})
	if resp.Status != StatusVersionMismatch {
		t.Errorf("Expected StatusVersionMismatch, got 0x%x", resp.Status)
	}
}

func TestNotFound(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: CmdGetConfig})
	if resp.Status != StatusNotFound {
		t.Errorf("Expected StatusNotFound, got 0x%x", resp.Status)
	}
}

func TestGetStatus(t *testing.T) {
	handler, mgr, pub := newTestHandler(t)
	defer mgr.Close()

	s := state.New()
	s.CurrentUsers = 42
	s.FetchedAt = time.UnixMilli(1700000000123)
	pub.Store(state.Status{State: s, View: 2, Last: state.OutcomeOK, Fetches: 3, Failures: 1})

	resp := handler.Handle(&Frame{Cmd: CmdGetStatus})
	if resp.Status != StatusOK {
		t.Fatalf("GetStatus failed: status 0x%x", resp.Status)
	}
	if len(resp.Payload) != state.StatusSize {
		t.Fatalf("Expected %d bytes, got %d", state.StatusSize, len(resp.Payload))
	}

	var st state.Status
	if err := st.UnmarshalBinary(resp.Payload); err != nil {
		t.Fatalf("Failed to unmarshal status: %v", err)
	}
	if st.State.CurrentUsers != 42 || st.View != 2 || st.Fetches != 3 || st.Failures != 1 {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestGetStatusWithoutLoop(t *testing.T) {
	blockDev := tinyfs.NewMemoryDevice(256, 4096, 64)
	mgr, err := storage.New(blockDev, true, nil)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	defer mgr.Close()

	resp := NewHandler(mgr, nil, nil).Handle(&Frame{Cmd: CmdGetStatus})
	if resp.Status != StatusNotFound {
		t.Errorf("Expected StatusNotFound, got 0x%x", resp.Status)
	}
}

func TestStorageStats(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: CmdGetStorageStats})
	if resp.Status != StatusOK {
		t.Fatalf("GetStorageStats failed: status 0x%x", resp.Status)
	}

	// Verify response format: [Total:4][Used:4][Free:4][HasConfig:1]
	if len(resp.Payload) != 13 {
		t.Fatalf("Expected 13 bytes, got %d", len(resp.Payload))
	}

	total := binary.LittleEndian.Uint32(resp.Payload[0:4])
	used := binary.LittleEndian.Uint32(resp.Payload[4:8])
	free := binary.LittleEndian.Uint32(resp.Payload[8:12])

	if total == 0 {
		t.Error("Total space should not be zero")
	}
	if used > total {
		t.Errorf("Used space (%d) should not exceed total (%d)", used, total)
	}
	if free > total {
		t.Errorf("Free space (%d) should not exceed total (%d)", free, total)
	}
	if resp.Payload[12] != 0 {
		t.Error("Expected no config initially")
	}
}

func TestFactoryReset(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	cfg := newTestConfig()
	data, _ := cfg.MarshalBinary()
	handler.Handle(&Frame{Cmd: CmdSetConfig, Payload: data})

	resetResp := handler.Handle(&Frame{Cmd: CmdFactoryReset})
	if resetResp.Status != StatusOK {
		t.Errorf("FactoryReset failed: status 0x%x", resetResp.Status)
	}

	if resp := handler.Handle(&Frame{Cmd: CmdGetConfig}); resp.Status != StatusNotFound {
		t.Errorf("Expected config gone after reset, got 0x%x", resp.Status)
	}
}

func TestGetVersion(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: CmdGetVersion})
	if resp.Status != StatusOK {
		t.Fatalf("GetVersion failed: status 0x%x", resp.Status)
	}

	// Verify response format: [FirmwareVersionMajor:1][FirmwareVersionMinor:1][ConfigVersion:2]
	if len(resp.Payload) != 4 {
		t.Fatalf("Expected 4 bytes, got %d", len(resp.Payload))
	}

	if resp.Payload[0] != FirmwareMajor || resp.Payload[1] != FirmwareMinor {
		t.Errorf("Firmware version: got %d.%d", resp.Payload[0], resp.Payload[1])
	}
	configVersion := binary.LittleEndian.Uint16(resp.Payload[2:4])
	if configVersion != config.CurrentVersion {
		t.Errorf("Expected config version %d, got %d", config.CurrentVersion, configVersion)
	}
}

func TestDiscoverCommand(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: CmdDiscover})
	if resp.Status != StatusOK {
		t.Fatalf("CmdDiscover failed: status 0x%x", resp.Status)
	}

	if string(resp.Payload) != DiscoverReply {
		t.Errorf("Expected payload '%s', got '%s'", DiscoverReply, string(resp.Payload))
	}
}

func TestRestartCommand(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: CmdRestart})
	if resp.Status != StatusOK || !resp.Restart {
		t.Errorf("Expected OK with restart, got 0x%x restart=%v", resp.Status, resp.Restart)
	}

	// Nothing else asks for a restart
	if handler.Handle(&Frame{Cmd: CmdPing}).Restart {
		t.Error("Ping should not restart")
	}
}

func TestInvalidCommand(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	resp := handler.Handle(&Frame{Cmd: 0xFF})
	if resp.Status != StatusInvalidCmd {
		t.Errorf("Expected StatusInvalidCmd, got 0x%x", resp.Status)
	}
}

func TestInvalidData(t *testing.T) {
	handler, mgr, _ := newTestHandler(t)
	defer mgr.Close()

	// Try to set config with wrong size
	frame := &Frame{
		Cmd:     CmdSetConfig,
		Payload: []byte{1, 2, 3}, // Too short
	}

	resp := handler.Handle(frame)
	if resp.Status != StatusInvalidData {
		t.Errorf("Expected StatusInvalidData, got 0x%x", resp.Status)
	}
}

func TestCRCMismatch(t *testing.T) {
	// Create a frame with invalid CRC
	buf := &bytes.Buffer{}
	buf.WriteByte(SyncByte)
	buf.WriteByte(CmdPing)
	lenBytes := make([]byte, 2)
	binary.LittleEndian.PutUint16(lenBytes, 0)
	buf.Write(lenBytes)
	// Write wrong CRC
	buf.Write([]byte{0xFF, 0xFF})

	_, err := ReadFrame(buf)
	if err != ErrCRCMismatch {
		t.Errorf("Expected ErrCRCMismatch, got %v", err)
	}
}

func TestInvalidFrame(t *testing.T) {
	// Write wrong sync byte
	buf := &bytes.Buffer{}
	buf.WriteByte(0x55) // Wrong sync

	_, err := ReadFrame(buf)
	if err != ErrInvalidFrame {
		t.Errorf("Expected ErrInvalidFrame, got %v", err)
	}
}

func TestOversizedLength(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteByte(SyncByte)
	buf.WriteByte(CmdPing)
	buf.Write([]byte{0xFF, 0xFF})

	if _, err := ReadFrame(buf); err != ErrInvalidFrame {
		t.Errorf("Expected ErrInvalidFrame, got %v", err)
	}
}

func TestNames(t *testing.T) {
	if CommandName(CmdRestart) != "Restart" {
		t.Errorf("CommandName(CmdRestart) = %q", CommandName(CmdRestart))
	}
	if CommandName(0xEE) != "CmdEE" {
		t.Errorf("CommandName(0xEE) = %q", CommandName(0xEE))
	}
	if StatusName(StatusVersionMismatch) != "VerMis" {
		t.Errorf("StatusName(StatusVersionMismatch) = %q", StatusName(StatusVersionMismatch))
	}
	if got := HexPrefix([]byte{0xAA, 0x01, 0x02}, 2); got != "AA01.." {
		t.Errorf("HexPrefix = %q", got)
	}
}
