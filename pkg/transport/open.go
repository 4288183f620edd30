package transport

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/golang/glog"
	tarm "github.com/tarm/serial"
	"go.bug.st/serial"
	"golang.org/x/net/websocket"
)

// DefaultBaudRate is the symbol rate of the modem's UART.
const DefaultBaudRate = 9600

// DialTimeout bounds opening network transports.
var DialTimeout = 5 * time.Second

// Open opens a stream by URL and wraps it as a Port.
//
// Supported URLs:
//
//	serial:///dev/ttyUSB0?baud=9600  go.bug.st/serial (also a bare device path)
//	tarm:///dev/ttyAMA0?baud=9600    github.com/tarm/serial
//	tcp://host:port                  raw TCP serial server (e.g. ser2net)
//	ws://host/path, wss://host/path  websocket serial bridge, binary frames
func Open(portURL string) (*Port, error) {
	stream, err := OpenStream(portURL)
	if err != nil {
		return nil, err
	}
	return NewPort(stream), nil
}

// OpenStream opens the raw stream referred by the URL.
func OpenStream(portURL string) (io.ReadWriteCloser, error) {
	u, err := url.Parse(portURL)
	if err != nil {
		return nil, fmt.Errorf("invalid port URL: %v", err)
	}
	baud := DefaultBaudRate
	if val := u.Query().Get("baud"); val != "" {
		if baud, err = strconv.Atoi(val); err != nil || baud <= 0 {
			return nil, fmt.Errorf("invalid baud rate: %q", val)
		}
	}
	glog.V(1).Infof("open %s", portURL)
	switch u.Scheme {
	case "", "serial":
		p, err := serial.Open(u.Path, &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err != nil {
			return nil, fmt.Errorf("open serial port %q: %w", u.Path, err)
		}
		return p, nil
	case "tarm":
		p, err := tarm.OpenPort(&tarm.Config{Name: u.Path, Baud: baud})
		if err != nil {
			return nil, fmt.Errorf("open serial port %q: %w", u.Path, err)
		}
		return p, nil
	case "tcp":
		conn, err := net.DialTimeout("tcp", u.Host, DialTimeout)
		if err != nil {
			return nil, err
		}
		return conn, nil
	case "ws", "wss":
		origin := "http://" + u.Host + "/"
		if u.Scheme == "wss" {
			origin = "https://" + u.Host + "/"
		}
		conn, err := websocket.Dial(portURL, "", origin)
		if err != nil {
			return nil, err
		}
		conn.PayloadType = websocket.BinaryFrame
		return conn, nil
	default:
		return nil, fmt.Errorf("unknown port URL scheme: %q", u.Scheme)
	}
}

// ListSerialPorts enumerates serial ports on this host.
func ListSerialPorts() ([]string, error) {
	return serial.GetPortsList()
}
