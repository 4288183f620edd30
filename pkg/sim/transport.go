package sim

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"
)

// Transport connects a Session directly to a simulated Modem.
// Replies become available as soon as the command's last byte is written.
type Transport struct {
	Modem *Modem

	rx     []byte
	writes int
	lock   sync.Mutex
}

// NewTransport creates a Transport over the modem.
func NewTransport(m *Modem) *Transport {
	return &Transport{Modem: m}
}

// Inject appends unsolicited bytes to the receive buffer.
func (t *Transport) Inject(p []byte) {
	t.lock.Lock()
	t.rx = append(t.rx, p...)
	t.lock.Unlock()
}

// Writes returns the number of bytes written so far.
func (t *Transport) Writes() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.writes
}

// WriteByte implements modem.Transport.
func (t *Transport) WriteByte(c byte) error {
	reply := t.Modem.Feed(c)
	t.lock.Lock()
	t.writes++
	t.rx = append(t.rx, reply...)
	t.lock.Unlock()
	return nil
}

// Available implements modem.Transport.
func (t *Transport) Available() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.rx)
}

// ReadByte implements modem.Transport.
func (t *Transport) ReadByte() (byte, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if len(t.rx) == 0 {
		return 0, io.EOF
	}
	b := t.rx[0]
	t.rx = t.rx[1:]
	return b, nil
}

// Peek implements modem.Transport.
func (t *Transport) Peek() (byte, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if len(t.rx) == 0 {
		return 0, io.EOF
	}
	return t.rx[0], nil
}

// Serve runs the modem over a byte stream until ctx is done or the stream
// fails.
func Serve(ctx context.Context, m *Modem, rw io.ReadWriter) error {
	errCh := make(chan error, 1)
	go func() {
		buf := make([]byte, 64)
		for {
			n, err := rw.Read(buf)
			for _, b := range buf[:n] {
				if reply := m.Feed(b); len(reply) > 0 {
					glog.V(2).Infof("reply %q", reply)
					if _, werr := rw.Write(reply); werr != nil {
						errCh <- werr
						return
					}
				}
			}
			if err != nil {
				errCh <- err
				return
			}
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
