// Package sim simulates the Sigfox modem firmware.
package sim

import (
	"fmt"
	"sync"

	"github.com/robotalks/sigfox.go/pkg/modem"
)

// Replies of the simulated firmware.
const (
	ReplyOK   = "OK;"
	ReplyKO   = "KO;"
	ReplySent = "SENT;"
)

// Modem is a simulated modem. It consumes command bytes and produces
// replies. Exported fields may be changed between commands.
type Modem struct {
	// ID is the device identifier reported on "ID".
	ID uint32
	// Rev is the firmware revision, 0 replies "KO;" as old firmwares do.
	Rev uint8
	// Status is the status byte replied on "P".
	Status byte
	// SendStatus is the status byte replied on "M".
	SendStatus byte
	// Power is the last accepted power level.
	Power uint8

	sent  [][]byte
	state parseState
	code  []byte
	data  []byte
	need  int
	lock  sync.Mutex
}

type parseState int

const (
	stateIdle    parseState = iota // waiting for NUL
	stateHeader                    // NUL received, expecting 'S' or ';'
	stateHeaderF                   // expecting 'F'
	stateCode                      // collecting command code
	stateLen                       // waiting for send length
	stateData                      // collecting send payload
	stateEnd                       // expecting terminator
)

// New creates a Modem answering OK to everything.
func New(id uint32, rev uint8) *Modem {
	return &Modem{
		ID:         id,
		Rev:        rev,
		Status:     modem.OK,
		SendStatus: modem.OK,
	}
}

// Sent returns payloads transmitted so far.
func (m *Modem) Sent() [][]byte {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([][]byte(nil), m.sent...)
}

// Feed consumes one byte and returns the reply bytes it triggers.
func (m *Modem) Feed(b byte) []byte {
	m.lock.Lock()
	defer m.lock.Unlock()
	switch m.state {
	case stateIdle:
		if b == modem.Null {
			m.state = stateHeader
		}
	case stateHeader:
		switch b {
		case 'S':
			m.state = stateHeaderF
		case modem.Terminator:
			m.state = stateIdle
			return []byte(ReplyKO)
		default:
			return m.abort()
		}
	case stateHeaderF:
		if b != 'F' {
			return m.abort()
		}
		m.code, m.state = m.code[:0], stateCode
	case stateCode:
		return m.parseCode(b)
	case stateLen:
		m.need, m.data = int(b), make([]byte, 0, b)
		if m.need == 0 {
			m.state = stateEnd
		} else {
			m.state = stateData
		}
	case stateData:
		m.data = append(m.data, b)
		if len(m.data) >= m.need {
			m.state = stateEnd
		}
	case stateEnd:
		m.state = stateIdle
		if b != modem.Terminator {
			return []byte(ReplyKO)
		}
		return m.execute()
	}
	return nil
}

func (m *Modem) parseCode(b byte) []byte {
	if b == modem.Terminator {
		m.state = stateIdle
		return m.execute()
	}
	m.code = append(m.code, b)
	switch string(m.code) {
	case modem.CodeSend:
		m.state = stateLen
	case modem.CodePower:
		m.data, m.need, m.state = m.data[:0], 1, stateData
	}
	if len(m.code) > 2 {
		return m.abort()
	}
	return nil
}

func (m *Modem) abort() []byte {
	m.state = stateIdle
	return []byte(ReplyKO)
}

func (m *Modem) execute() []byte {
	switch string(m.code) {
	case modem.CodeStatus:
		return []byte{m.Status, modem.Terminator}
	case modem.CodeSend:
		if m.SendStatus != modem.OK {
			return []byte{m.SendStatus, modem.Terminator}
		}
		m.sent = append(m.sent, append([]byte(nil), m.data...))
		return []byte(ReplyOK + ReplySent)
	case modem.CodeRevision:
		if m.Rev == 0 {
			return []byte(ReplyKO)
		}
		return []byte(fmt.Sprintf("%02d", m.Rev%100) + ReplyOK)
	case modem.CodeID:
		reply := []byte{byte(m.ID >> 24), byte(m.ID >> 16), byte(m.ID >> 8), byte(m.ID)}
		return append(reply, ReplyOK...)
	case modem.CodePower:
		if len(m.data) != 1 || m.data[0] > uint8(modem.PowerMax) {
			return []byte(ReplyKO)
		}
		m.Power = m.data[0]
		return []byte(ReplyOK)
	default:
		return []byte(ReplyKO)
	}
}
