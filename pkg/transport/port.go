// Package transport adapts byte streams to the modem link.
package transport

import (
	"errors"
	"io"
	"sync"

	"github.com/golang/glog"
)

// ErrNoData indicates a read on an empty receive buffer.
var ErrNoData = errors.New("no data available")

// Port implements modem.Transport over an io.ReadWriteCloser.
// A background loop keeps reading the stream into a buffer so
// Available, Peek and ReadByte never block.
type Port struct {
	stream io.ReadWriteCloser
	buf    []byte
	err    error
	lock   sync.Mutex
	doneCh chan struct{}
}

// NewPort wraps the stream and starts reading from it.
func NewPort(stream io.ReadWriteCloser) *Port {
	p := &Port{stream: stream, doneCh: make(chan struct{})}
	go p.readLoop()
	return p
}

// WriteByte implements modem.Transport.
func (p *Port) WriteByte(c byte) error {
	_, err := p.stream.Write([]byte{c})
	return err
}

// Available implements modem.Transport.
func (p *Port) Available() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return len(p.buf)
}

// ReadByte implements modem.Transport.
func (p *Port) ReadByte() (byte, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if len(p.buf) == 0 {
		return 0, p.emptyErr()
	}
	b := p.buf[0]
	p.buf = p.buf[1:]
	return b, nil
}

// Peek implements modem.Transport.
func (p *Port) Peek() (byte, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if len(p.buf) == 0 {
		return 0, p.emptyErr()
	}
	return p.buf[0], nil
}

// Err returns the error which stopped the read loop, if any.
func (p *Port) Err() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.err
}

// Done is closed when the read loop stops.
func (p *Port) Done() <-chan struct{} {
	return p.doneCh
}

// Close implements io.Closer.
func (p *Port) Close() error {
	return p.stream.Close()
}

func (p *Port) emptyErr() error {
	if p.err != nil {
		return p.err
	}
	return ErrNoData
}

func (p *Port) readLoop() {
	defer close(p.doneCh)
	chunk := make([]byte, 64)
	for {
		n, err := p.stream.Read(chunk)
		if n > 0 {
			glog.V(3).Infof("rx %q", chunk[:n])
		}
		p.lock.Lock()
		p.buf = append(p.buf, chunk[:n]...)
		if err != nil {
			p.err = err
		}
		p.lock.Unlock()
		if err != nil {
			return
		}
	}
}
