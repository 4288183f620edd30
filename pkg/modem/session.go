package modem

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Transport is the byte-level link to the modem.
// Read and Peek are only called after Available reported enough bytes.
type Transport interface {
	WriteByte(c byte) error
	Available() int
	ReadByte() (byte, error)
	Peek() (byte, error)
}

// Clock provides the millisecond counter driving the duty-cycle gate.
// The counter is allowed to wrap around.
type Clock interface {
	Millis() uint32
}

// ClockFunc is func form of Clock.
type ClockFunc func() uint32

// Millis implements Clock.
func (f ClockFunc) Millis() uint32 { return f() }

// NewMonotonicClock creates a Clock counting milliseconds since its creation.
func NewMonotonicClock() Clock {
	start := time.Now()
	return ClockFunc(func() uint32 {
		return uint32(time.Since(start) / time.Millisecond)
	})
}

// Defaults of Session.
const (
	// DefaultSendInterval is the minimum spacing between two transmissions
	// in milliseconds: 1% duty cycle of a ~6 seconds transmission.
	DefaultSendInterval uint32 = 600000
	// DefaultPollInterval is the delay between two checks of available bytes.
	DefaultPollInterval = time.Millisecond
	// NeverSent is the last send timestamp of a session which never sent.
	NeverSent uint32 = 0xffffffff
)

// Result is the outcome of an operation gated by the modem or duty cycle.
type Result int

const (
	// ResultRejected means the modem replied with a non-OK status.
	ResultRejected Result = iota
	// ResultOK means the modem accepted the command.
	ResultOK
	// ResultGateClosed means the duty-cycle gate refused to transmit,
	// nothing was written to the modem.
	ResultGateClosed
)

// OK is the boolean view of the result.
func (r Result) OK() bool {
	return r == ResultOK
}

// String implements fmt.Stringer.
func (r Result) String() string {
	switch r {
	case ResultOK:
		return "OK"
	case ResultGateClosed:
		return "GateClosed"
	case ResultRejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// Stats are cumulative counters since the session was created.
type Stats struct {
	// Commands is the number of command frames written.
	Commands int
	// TxBytes is the number of bytes written to the transport.
	TxBytes int
	// RxBytes is the number of bytes consumed from the transport.
	RxBytes int
	// Attempts is the number of transmissions handed to the modem.
	Attempts int
	// Sent is the number of transmissions accepted by the modem.
	Sent int
	// Rejected is the number of non-OK status replies.
	Rejected int
	// LastSendTime is the wall-clock time of the last transmission attempt.
	LastSendTime time.Time
}

// Session is the command/response protocol handler for a single modem.
// It owns the transport; nothing else may read or write it while the
// session is in use. Operations are serialized.
//
// Every wait for reply bytes is unbounded unless Timeout is set. Cancelling
// ctx or hitting Timeout in the middle of an exchange leaves the reply
// partially read, call Begin to resynchronize.
type Session struct {
	Transport Transport
	Clock     Clock
	// Timeout bounds each wait for reply bytes, 0 waits forever.
	Timeout time.Duration
	// PollInterval is the delay between checks of available bytes.
	PollInterval time.Duration
	// SendInterval is the minimum spacing between transmissions in
	// milliseconds. Values below DefaultSendInterval are ignored.
	SendInterval uint32

	lastSend uint32
	stats    Stats
	lock     sync.Mutex
}

// NewSession creates a Session over the transport.
func NewSession(t Transport) *Session {
	return &Session{
		Transport:    t,
		Clock:        NewMonotonicClock(),
		PollInterval: DefaultPollInterval,
		SendInterval: DefaultSendInterval,
		lastSend:     NeverSent,
	}
}

// Begin flushes any partial command from the modem's input buffer and
// consumes its idle acknowledgment ("KO;").
func (s *Session) Begin(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.write(flushFrame); err != nil {
		return err
	}
	if err := s.waitAvailable(ctx, 3); err != nil {
		return err
	}
	return s.discard(3)
}

// IsReady reports whether a transmission is currently permitted.
// The modem is only queried when the duty-cycle gate is open.
func (s *Session) IsReady(ctx context.Context) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.gateClosed(s.now()) {
		return false, nil
	}
	return s.queryStatus(ctx)
}

// ReadyIn returns the time left before the duty-cycle gate opens.
// It doesn't talk to the modem.
func (s *Session) ReadyIn() time.Duration {
	s.lock.Lock()
	defer s.lock.Unlock()
	now := s.now()
	if !s.gateClosed(now) {
		return 0
	}
	return time.Duration(s.interval()-(now-s.lastSend)+1) * time.Millisecond
}

// Send transmits the payload.
// The gate timestamp advances as soon as the command is handed to the
// modem, even if the modem later reports a failure.
func (s *Session) Send(ctx context.Context, data []byte) (Result, error) {
	if len(data) > MaxPayload {
		return ResultRejected, fmt.Errorf("%w: %d bytes", ErrPayloadTooLong, len(data))
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.gateClosed(s.now()) {
		return ResultGateClosed, nil
	}
	ready, err := s.queryStatus(ctx)
	if err != nil {
		return ResultRejected, err
	}
	if !ready {
		return ResultRejected, nil
	}

	s.lastSend = s.now()
	s.stats.Attempts++
	s.stats.LastSendTime = time.Now()

	payload := make([]byte, 0, len(data)+1)
	payload = append(payload, byte(len(data)))
	payload = append(payload, data...)
	if err = s.write(Frame(CodeSend, payload)); err != nil {
		return ResultRejected, err
	}
	status, err := s.nextReturn(ctx)
	if err != nil {
		return ResultRejected, err
	}
	if status != OK {
		s.stats.Rejected++
		return ResultRejected, nil
	}
	// asynchronous notification once the radio is done.
	if _, err = s.nextReturn(ctx); err != nil {
		return ResultRejected, err
	}
	s.stats.Sent++
	return ResultOK, nil
}

// Rev queries the firmware revision, 0 if the modem doesn't report one.
func (s *Session) Rev(ctx context.Context) (uint8, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.write(Frame(CodeRevision, nil)); err != nil {
		return 0, err
	}
	if err := s.waitAvailable(ctx, 3); err != nil {
		return 0, err
	}
	b, err := s.Transport.Peek()
	if err != nil {
		return 0, err
	}
	if b == 'K' {
		return 0, s.discard(3)
	}
	if err = s.waitAvailable(ctx, 5); err != nil {
		return 0, err
	}
	d0, err := s.readByte()
	if err != nil {
		return 0, err
	}
	d1, err := s.readByte()
	if err != nil {
		return 0, err
	}
	// digits are not validated.
	rev := 10*(d0-'0') + (d1 - '0')
	return rev, s.discard(3)
}

// ID queries the device identifier.
func (s *Session) ID(ctx context.Context) (uint32, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if err := s.write(Frame(CodeID, nil)); err != nil {
		return 0, err
	}
	var reply [MaxIDReply]byte
	n := 0
	for {
		if err := s.waitAvailable(ctx, 1); err != nil {
			return 0, err
		}
		b, err := s.Transport.Peek()
		if err != nil {
			return 0, err
		}
		if b == Terminator {
			break
		}
		if b, err = s.readByte(); err != nil {
			return 0, err
		}
		if n < len(reply) {
			reply[n] = b
		}
		n++
	}
	if err := s.discard(1); err != nil {
		return 0, err
	}
	if n > len(reply) {
		return 0, fmt.Errorf("%w: %d bytes", ErrReplyOverflow, n)
	}
	// last 2 bytes are the "OK" trailer.
	if n < 2 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedReply, reply[:n])
	}
	var id uint32
	for i := 0; i < n-2; i++ {
		id += uint32(reply[i]) << (uint(n-3-i) * 8)
	}
	return id, nil
}

// SetPower sets the transmit power, normalized by NormalizePower.
func (s *Session) SetPower(ctx context.Context, power uint8) (Result, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	level := NormalizePower(power)
	if err := s.write(Frame(CodePower, []byte{byte(level)})); err != nil {
		return ResultRejected, err
	}
	status, err := s.nextReturn(ctx)
	if err != nil {
		return ResultRejected, err
	}
	if status != OK {
		s.stats.Rejected++
		return ResultRejected, nil
	}
	return ResultOK, nil
}

// Stats returns a copy of the counters.
func (s *Session) Stats() Stats {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.stats
}

func (s *Session) now() uint32 {
	return s.Clock.Millis()
}

func (s *Session) interval() uint32 {
	if s.SendInterval < DefaultSendInterval {
		return DefaultSendInterval
	}
	return s.SendInterval
}

func (s *Session) gateClosed(now uint32) bool {
	if s.lastSend == NeverSent {
		return false
	}
	return now >= s.lastSend && now-s.lastSend <= s.interval()
}

func (s *Session) queryStatus(ctx context.Context) (bool, error) {
	if err := s.write(Frame(CodeStatus, nil)); err != nil {
		return false, err
	}
	status, err := s.nextReturn(ctx)
	if err != nil {
		return false, err
	}
	if status != OK {
		s.stats.Rejected++
		return false, nil
	}
	return true, nil
}

// nextReturn reads a simple reply and returns its first byte.
func (s *Session) nextReturn(ctx context.Context) (byte, error) {
	if err := s.waitAvailable(ctx, 1); err != nil {
		return 0, err
	}
	first, err := s.readByte()
	if err != nil {
		return 0, err
	}
	for {
		if err = s.waitAvailable(ctx, 1); err != nil {
			return 0, err
		}
		b, err := s.readByte()
		if err != nil {
			return 0, err
		}
		if b == Terminator {
			return first, nil
		}
	}
}

func (s *Session) write(frame []byte) error {
	for _, b := range frame {
		if err := s.Transport.WriteByte(b); err != nil {
			return err
		}
		s.stats.TxBytes++
	}
	s.stats.Commands++
	return nil
}

func (s *Session) readByte() (byte, error) {
	b, err := s.Transport.ReadByte()
	if err == nil {
		s.stats.RxBytes++
	}
	return b, err
}

func (s *Session) discard(n int) error {
	for ; n > 0; n-- {
		if _, err := s.readByte(); err != nil {
			return err
		}
	}
	return nil
}

// errorReporter is implemented by transports which can fail in the
// background, e.g. a closed serial port.
type errorReporter interface {
	Err() error
}

func (s *Session) waitAvailable(ctx context.Context, n int) error {
	if s.Transport.Available() >= n {
		return nil
	}
	var deadline <-chan time.Time
	if s.Timeout > 0 {
		timer := time.NewTimer(s.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	poll := s.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for s.Transport.Available() < n {
		if r, ok := s.Transport.(errorReporter); ok {
			if err := r.Err(); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return ErrTimeout
		case <-ticker.C:
		}
	}
	return nil
}
