// Package protocol implements the binary serial protocol used to provision
// the scoreboard from a PC over USB.
// The protocol is designed to be simple, efficient, and suitable for TinyGo.
//
// Frame format:
//
//	[SYNC:1][CMD:1][LEN:2][PAYLOAD:LEN][CRC:2]
//	- SYNC: 0xAA (frame start marker)
//	- CMD: Command byte
//	- LEN: Payload length (uint16, little-endian)
//	- PAYLOAD: Variable length data
//	- CRC: CRC16-CCITT of [CMD][LEN][PAYLOAD]
//
// Response format is identical, with a status code in place of CMD.
package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

const (
	SyncByte = 0xAA

	// MaxPayload bounds LEN to keep a corrupt header from allocating.
	MaxPayload = 4096

	// Command codes (PC → Device)
	CmdGetConfig       = 0x01
	CmdSetConfig       = 0x02
	CmdGetStatus       = 0x03
	CmdGetStorageStats = 0x07
	CmdPing            = 0x08
	CmdFactoryReset    = 0x09
	CmdGetVersion      = 0x10
	CmdDiscover        = 0x11
	CmdRestart         = 0x12

	// Response status codes (Device → PC)
	StatusOK              = 0x00
	StatusError           = 0x01
	StatusInvalidCmd      = 0x02
	StatusInvalidData     = 0x03
	StatusNotFound        = 0x04
	StatusNoSpace         = 0x05
	StatusVersionMismatch = 0x06
	StatusCRCError        = 0x07
)

var (
	ErrInvalidFrame = errors.New("invalid frame")
	ErrCRCMismatch  = errors.New("CRC mismatch")
	ErrTimeout      = errors.New("timeout")
)

// Frame represents a protocol frame.
type Frame struct {
	Cmd     uint8
	Payload []byte
}

// Response represents a protocol response.
type Response struct {
	Status  uint8
	Payload []byte

	// Restart asks the caller to reboot the board once the response has
	// been written. It is not sent on the wire.
	Restart bool
}

// ReadFrame reads and validates a frame from the reader.
func ReadFrame(r io.Reader) (*Frame, error) {
	// Read sync byte
	sync := make([]byte, 1)
	if _, err := io.ReadFull(r, sync); err != nil {
		return nil, err
	}
	if sync[0] != SyncByte {
		return nil, ErrInvalidFrame
	}

	return readBody(r)
}

// ReadResponse reads a response frame, skipping up to maxSkip bytes of
// unrelated output (log lines share the link) before the sync byte.
func ReadResponse(r io.Reader, maxSkip int) (*Response, error) {
	b := make([]byte, 1)
	for skipped := 0; ; skipped++ {
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, err
		}
		if b[0] == SyncByte {
			break
		}
		if skipped >= maxSkip {
			return nil, ErrInvalidFrame
		}
	}

	frame, err := readBody(r)
	if err != nil {
		return nil, err
	}
	return &Response{Status: frame.Cmd, Payload: frame.Payload}, nil
}

// readBody reads everything after the sync byte.
func readBody(r io.Reader) (*Frame, error) {
	// Read header (cmd + len)
	header := make([]byte, 3)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	cmd := header[0]
	length := binary.LittleEndian.Uint16(header[1:])

	// Sanity check on length
	if length > MaxPayload {
		return nil, ErrInvalidFrame
	}

	// Read payload
	var payload []byte
	if length > 0 {
		payload = make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}

	// Read CRC
	crcBytes := make([]byte, 2)
	if _, err := io.ReadFull(r, crcBytes); err != nil {
		return nil, err
	}
	receivedCRC := binary.LittleEndian.Uint16(crcBytes)

	// Verify CRC
	calculatedCRC := calcCRC(append(header, payload...))
	if receivedCRC != calculatedCRC {
		return nil, ErrCRCMismatch
	}

	return &Frame{
		Cmd:     cmd,
		Payload: payload,
	}, nil
}

// WriteResponse writes a response frame to the writer.
func WriteResponse(w io.Writer, resp *Response) error {
	return writeFrame(w, resp.Status, resp.Payload)
}

// WriteFrame writes a request frame (PC side).
func WriteFrame(w io.Writer, frame *Frame) error {
	return writeFrame(w, frame.Cmd, frame.Payload)
}

func writeFrame(w io.Writer, code uint8, payload []byte) error {
	payloadLen := uint16(len(payload))
	frameLen := 1 + 1 + 2 + int(payloadLen) + 2 // sync + code + len + payload + crc

	buf := make([]byte, 0, frameLen)

	// Sync byte
	buf = append(buf, SyncByte)

	// Command or status
	buf = append(buf, code)

	// Length
	buf = binary.LittleEndian.AppendUint16(buf, payloadLen)

	// Payload
	buf = append(buf, payload...)

	// CRC (of code + len + payload)
	crc := calcCRC(buf[1:]) // Skip sync byte
	buf = binary.LittleEndian.AppendUint16(buf, crc)

	_, err := w.Write(buf)
	return err
}

// calcCRC calculates CRC16-CCITT.
// Polynomial: 0x1021, Initial: 0xFFFF
func calcCRC(data []byte) uint16 {
	var crc uint16 = 0xFFFF

	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}

	return crc
}
