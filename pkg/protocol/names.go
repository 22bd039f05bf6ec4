package protocol

import (
	"fmt"
	"strings"
)

// CommandName returns a short name for a command code.
func CommandName(cmd uint8) string {
	switch cmd {
	case CmdGetConfig:
		return "GetCfg"
	case CmdSetConfig:
		return "SetCfg"
	case CmdGetStatus:
		return "GetSts"
	case CmdGetStorageStats:
		return "GetStor"
	case CmdPing:
		return "Ping"
	case CmdFactoryReset:
		return "FctRst"
	case CmdGetVersion:
		return "GetVer"
	case CmdDiscover:
		return "Discvr"
	case CmdRestart:
		return "Restart"
	default:
		return fmt.Sprintf("Cmd%02X", cmd)
	}
}

// StatusName returns a short name for a status code.
func StatusName(status uint8) string {
	switch status {
	case StatusOK:
		return "OK"
	case StatusError:
		return "Err"
	case StatusInvalidCmd:
		return "InvCmd"
	case StatusInvalidData:
		return "InvData"
	case StatusNotFound:
		return "NotFnd"
	case StatusNoSpace:
		return "NoSpace"
	case StatusVersionMismatch:
		return "VerMis"
	case StatusCRCError:
		return "CRC"
	default:
		return fmt.Sprintf("Sts%02X", status)
	}
}

// HexPrefix formats the first max bytes of p as hex, with ".." when
// truncated. Used to keep frame logs short.
func HexPrefix(p []byte, max int) string {
	var b strings.Builder
	for i := 0; i < len(p) && i < max; i++ {
		fmt.Fprintf(&b, "%02X", p[i])
	}
	if len(p) > max {
		b.WriteString("..")
	}
	return b.String()
}
