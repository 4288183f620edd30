package modem

// Command codes understood by the firmware.
const (
	CodeStatus   = "P"
	CodeSend     = "M"
	CodeRevision = "v"
	CodeID       = "ID"
	CodePower    = "G"
)

// Protocol bytes.
const (
	// OK is the status byte of a successful reply.
	OK byte = 'O'
	// Terminator ends every command and reply.
	Terminator byte = ';'
	// Null starts every command frame.
	Null byte = 0
)

// MaxPayload is the largest payload the send command can describe.
const MaxPayload = 0xff

// MaxIDReply is the capacity of the ID reply buffer, including the "OK"
// trailer but not the terminator.
const MaxIDReply = 8

var flushFrame = []byte{Null, Terminator}

// Frame encodes a command frame.
func Frame(code string, payload []byte) []byte {
	b := make([]byte, 0, len(code)+len(payload)+4)
	b = append(b, Null, 'S', 'F')
	b = append(b, code...)
	b = append(b, payload...)
	return append(b, Terminator)
}

// PowerLevel is the normalized transmit power setting, 0 (lowest) to
// 5 (maximum).
type PowerLevel uint8

// Power levels as documented by the firmware.
const (
	PowerMin PowerLevel = iota
	Power0dBm
	Power14dBm
	Power16dBm
	Power18dBm
	PowerMax

	powerLevels = 6
)

// NormalizePower maps any value onto a valid PowerLevel.
func NormalizePower(power uint8) PowerLevel {
	return PowerLevel(power % powerLevels)
}

// String describes the output power.
func (p PowerLevel) String() string {
	switch p {
	case PowerMin:
		return "-25..-30dBm"
	case Power0dBm:
		return "0dBm"
	case Power14dBm:
		return "14dBm"
	case Power16dBm:
		return "16dBm"
	case Power18dBm:
		return "18dBm"
	case PowerMax:
		return "max(18-19dBm)"
	default:
		return "invalid"
	}
}
