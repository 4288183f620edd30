// Package sh provides an interactive shell talking to a modem.
package sh

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/sigfox.go/pkg/env"
	"github.com/robotalks/sigfox.go/pkg/modem"
	"github.com/robotalks/sigfox.go/pkg/transport"
)

// Device is the modem session used by the shell commands.
type Device interface {
	Begin(context.Context) error
	IsReady(context.Context) (bool, error)
	ReadyIn() time.Duration
	Send(context.Context, []byte) (modem.Result, error)
	Rev(context.Context) (uint8, error)
	ID(context.Context) (uint32, error)
	SetPower(context.Context, uint8) (modem.Result, error)
	Stats() modem.Stats
}

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell  *ishell.Shell
	Config *env.Config
	Device Device

	port interface{ Close() error }
}

const (
	shellKey       = "$shell"
	closedPrompt   = "[closed] > "
	defaultTimeout = 30 * time.Second
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&OpenCmd,
		&CloseCmd,
		&BeginCmd,
		&ReadyCmd,
		&SendCmd,
		&RevCmd,
		&IDCmd,
		&PowerCmd,
		&StatsCmd,
		&PortsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Open opens the port and starts a session on it.
func (s *Shell) Open(portURL string) error {
	conf := *s.Config
	if portURL != "" {
		conf.Port = portURL
	}
	if conf.Timeout == 0 {
		conf.Timeout = defaultTimeout
	}
	session, port, err := conf.OpenSession()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err = session.Begin(ctx); err != nil {
		port.Close()
		return fmt.Errorf("begin: %w", err)
	}
	if level, ok := conf.PowerLevel(); ok {
		if _, err = session.SetPower(ctx, uint8(level)); err != nil {
			port.Close()
			return fmt.Errorf("set power: %w", err)
		}
	}
	s.Close()
	s.Device, s.port = session, port
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", conf.Port))
	return nil
}

// Close closes the current session.
func (s *Shell) Close() {
	if s.port != nil {
		s.port.Close()
		s.port = nil
	}
	s.Device = nil
	s.Shell.SetPrompt(closedPrompt)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Print prints the value as JSON when requested, or the text otherwise.
func (s *Shell) Print(c *ishell.Context, value interface{}, text string) {
	if !s.OutputJSON {
		c.Println(text)
		return
	}
	out, err := json.Marshal(value)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// MustBeOpen wraps command func requires an open session. The session is
// opened with the configured port when there's none.
func MustBeOpen(fn func(c *ishell.Context, s *Shell)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := ShellFrom(c)
		if s.Device == nil {
			if err := s.Open(""); err != nil {
				c.Err(err)
				return
			}
		}
		fn(c, s)
	}
}

// ParsePayload parses command arguments into a payload: hex bytes by
// default, or text following -s.
func ParsePayload(args []string) ([]byte, error) {
	if len(args) > 0 && args[0] == "-s" {
		return []byte(strings.Join(args[1:], " ")), nil
	}
	data, err := hex.DecodeString(strings.Join(args, ""))
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %v", err)
	}
	return data, nil
}

type resultOutput struct {
	Result  string `json:"result"`
	ReadyIn string `json:"ready_in,omitempty"`
}

func printResult(c *ishell.Context, s *Shell, res modem.Result) {
	out := resultOutput{Result: res.String()}
	text := out.Result
	if res == modem.ResultGateClosed {
		out.ReadyIn = s.Device.ReadyIn().Round(time.Second).String()
		text += ", ready in " + out.ReadyIn
	}
	s.Print(c, out, text)
}

var (
	// OpenCmd opens a modem port.
	OpenCmd = ishell.Cmd{
		Name: "open",
		Help: "[URL]",
		Func: func(c *ishell.Context) {
			var portURL string
			if len(c.Args) > 0 {
				portURL = c.Args[0]
			}
			if err := ShellFrom(c).Open(portURL); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes current port.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Close()
		},
	}

	// BeginCmd resynchronizes the modem.
	BeginCmd = ishell.Cmd{
		Name: "begin",
		Func: MustBeOpen(func(c *ishell.Context, s *Shell) {
			if err := s.Device.Begin(context.Background()); err != nil {
				c.Err(err)
				return
			}
			s.Print(c, resultOutput{Result: "OK"}, "OK")
		}),
	}

	// ReadyCmd checks whether a transmission is permitted.
	ReadyCmd = ishell.Cmd{
		Name: "ready",
		Func: MustBeOpen(func(c *ishell.Context, s *Shell) {
			ready, err := s.Device.IsReady(context.Background())
			if err != nil {
				c.Err(err)
				return
			}
			wait := s.Device.ReadyIn()
			text := strconv.FormatBool(ready)
			if wait > 0 {
				text += ", ready in " + wait.Round(time.Second).String()
			}
			s.Print(c, map[string]interface{}{"ready": ready, "ready_in_ms": wait.Milliseconds()}, text)
		}),
	}

	// SendCmd transmits a payload.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "HEX | -s TEXT",
		Func: MustBeOpen(func(c *ishell.Context, s *Shell) {
			data, err := ParsePayload(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			res, err := s.Device.Send(context.Background(), data)
			if err != nil {
				c.Err(err)
				return
			}
			printResult(c, s, res)
		}),
	}

	// RevCmd queries the firmware revision.
	RevCmd = ishell.Cmd{
		Name:    "rev",
		Aliases: []string{"version"},
		Func: MustBeOpen(func(c *ishell.Context, s *Shell) {
			rev, err := s.Device.Rev(context.Background())
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, map[string]uint8{"revision": rev}, strconv.Itoa(int(rev)))
		}),
	}

	// IDCmd queries the device ID.
	IDCmd = ishell.Cmd{
		Name: "id",
		Func: MustBeOpen(func(c *ishell.Context, s *Shell) {
			id, err := s.Device.ID(context.Background())
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, map[string]uint32{"id": id}, fmt.Sprintf("%08X", id))
		}),
	}

	// PowerCmd sets transmit power.
	PowerCmd = ishell.Cmd{
		Name: "power",
		Help: "LEVEL(0-5)",
		Func: MustBeOpen(func(c *ishell.Context, s *Shell) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("power level expected"))
				return
			}
			level, err := strconv.ParseUint(c.Args[0], 10, 8)
			if err != nil {
				c.Err(fmt.Errorf("invalid power level: %v", err))
				return
			}
			res, err := s.Device.SetPower(context.Background(), uint8(level))
			if err != nil {
				c.Err(err)
				return
			}
			if res.OK() {
				c.Printf("power %s\n", modem.NormalizePower(uint8(level)))
			}
			printResult(c, s, res)
		}),
	}

	// StatsCmd prints session counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Func: MustBeOpen(func(c *ishell.Context, s *Shell) {
			stats := s.Device.Stats()
			s.Print(c, stats, fmt.Sprintf("commands %d, tx %dB, rx %dB, attempts %d, sent %d, rejected %d",
				stats.Commands, stats.TxBytes, stats.RxBytes, stats.Attempts, stats.Sent, stats.Rejected))
		}),
	}

	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name:    "ports",
		Aliases: []string{"list", "l"},
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ports, err := transport.ListSerialPorts()
			if err != nil {
				c.Err(err)
				return
			}
			if ports == nil {
				ports = []string{}
			}
			s.Print(c, ports, strings.Join(ports, "\n"))
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf, err := env.Load()
	if err != nil {
		log.Fatalln(err)
	}
	New(conf).Run(flag.Args()...)
}
