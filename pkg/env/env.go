// Package env provides configuration shared by the binaries.
package env

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/sigfox.go/pkg/bridge"
	"github.com/robotalks/sigfox.go/pkg/modem"
	"github.com/robotalks/sigfox.go/pkg/mqtt"
	"github.com/robotalks/sigfox.go/pkg/transport"
)

// Config provides common options to open a modem session.
type Config struct {
	// Port is the URL of the modem link, see transport.Open.
	Port string `yaml:"port"`
	// Name identifies the device on MQTT, defaults to a host based name.
	Name string `yaml:"name"`
	// MQTTBrokerURL specifies the MQTT broker to use.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string `yaml:"mqtt"`
	// Timeout bounds each wait for modem replies, 0 waits forever.
	Timeout time.Duration `yaml:"timeout"`
	// PollInterval is the delay between checks for reply bytes.
	PollInterval time.Duration `yaml:"poll_interval"`
	// SendInterval is the minimum spacing between transmissions. It can't
	// go below the regulatory 10 minutes.
	SendInterval time.Duration `yaml:"send_interval"`
	// Power is applied after Begin when in [0, 5], -1 keeps the modem's.
	Power int `yaml:"power"`
}

var (
	defaultConfig = Config{
		Port:          "serial:///dev/ttyUSB0",
		MQTTBrokerURL: "mqtt://localhost:1883/sigfox/",
		PollInterval:  modem.DefaultPollInterval,
		SendInterval:  time.Duration(modem.DefaultSendInterval) * time.Millisecond,
		Power:         -1,
	}
	baseConfig Config
	configFile string
)

func init() {
	if err := applyEnv(&defaultConfig, os.Getenv); err != nil {
		log.Printf("ignored environment: %v", err)
	}
	baseConfig = defaultConfig
}

func applyEnv(conf *Config, getenv func(string) string) error {
	if val := getenv("SIGFOX_PORT"); val != "" {
		conf.Port = val
	}
	if val := getenv("SIGFOX_NAME"); val != "" {
		conf.Name = val
	}
	if val := getenv("SIGFOX_MQTT_URL"); val != "" {
		conf.MQTTBrokerURL = val
	}
	if val := getenv("SIGFOX_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("SIGFOX_TIMEOUT: %v", err)
		}
		conf.Timeout = d
	}
	return nil
}

// flagFields copies the value bound to a flag between configs.
var flagFields = map[string]func(dst, src *Config){
	"port":          func(d, s *Config) { d.Port = s.Port },
	"name":          func(d, s *Config) { d.Name = s.Name },
	"mqtt":          func(d, s *Config) { d.MQTTBrokerURL = s.MQTTBrokerURL },
	"timeout":       func(d, s *Config) { d.Timeout = s.Timeout },
	"poll":          func(d, s *Config) { d.PollInterval = s.PollInterval },
	"send-interval": func(d, s *Config) { d.SendInterval = s.SendInterval },
	"power":         func(d, s *Config) { d.Power = s.Power },
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&configFile, "config", configFile, "YAML config file.")
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Modem port URL (serial://, tarm://, tcp://, ws://).")
	flag.StringVar(&defaultConfig.Name, "name", defaultConfig.Name, "Device name on MQTT.")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL.")
	flag.DurationVar(&defaultConfig.Timeout, "timeout", defaultConfig.Timeout, "Modem reply timeout, 0 waits forever.")
	flag.DurationVar(&defaultConfig.PollInterval, "poll", defaultConfig.PollInterval, "Reply polling interval.")
	flag.DurationVar(&defaultConfig.SendInterval, "send-interval", defaultConfig.SendInterval, "Minimum interval between transmissions.")
	flag.IntVar(&defaultConfig.Power, "power", defaultConfig.Power, "Transmit power level 0-5, -1 keeps the current one.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Load creates a Config from defaults, the environment, the file given by
// -config and the command line, in increasing precedence.
func Load() (*Config, error) {
	if configFile == "" {
		return NewConfig(), nil
	}
	conf := baseConfig
	if err := conf.LoadFile(configFile); err != nil {
		return nil, err
	}
	flag.Visit(func(f *flag.Flag) {
		if copyField := flagFields[f.Name]; copyField != nil {
			copyField(&conf, &defaultConfig)
		}
	})
	return &conf, nil
}

// MustLoad loads Config and fails on error.
func MustLoad() *Config {
	conf, err := Load()
	if err != nil {
		log.Fatalln(err)
	}
	return conf
}

// LoadFile overrides the config with values from a YAML file.
func (c *Config) LoadFile(fn string) error {
	data, err := ioutil.ReadFile(fn)
	if err != nil {
		return err
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %v", fn, err)
	}
	return nil
}

// DeviceName returns Name, or a name derived from the host.
func (c *Config) DeviceName() string {
	if c.Name != "" {
		return c.Name
	}
	return "sigfox-" + HostID()[:12]
}

// OpenSession opens the port and creates a session over it.
// The session isn't started, call Begin on it.
func (c *Config) OpenSession() (*modem.Session, *transport.Port, error) {
	port, err := transport.Open(c.Port)
	if err != nil {
		return nil, nil, err
	}
	s := modem.NewSession(port)
	s.Timeout = c.Timeout
	s.PollInterval = c.PollInterval
	s.SendInterval = millis(c.SendInterval)
	return s, port, nil
}

// PowerLevel returns the normalized power to apply after Begin, false when
// the modem's current setting is kept.
func (c *Config) PowerLevel() (modem.PowerLevel, bool) {
	if c.Power < 0 {
		return 0, false
	}
	return modem.PowerLevel(c.Power % 6), true
}

// millis converts d to milliseconds, saturating at the uint32 range.
func millis(d time.Duration) uint32 {
	ms := d / time.Millisecond
	if ms <= 0 {
		return 0
	}
	if ms > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(ms)
}

// NewQueue creates the MQTT queue for the device. The retained info topic
// is cleared by the broker when the device disconnects unexpectedly.
func (c *Config) NewQueue() (*mqtt.Queue, error) {
	opts, topicPrefix, err := mqtt.ClientOptionsFromURL(c.MQTTBrokerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid MQTT URL: %v", err)
	}
	name := c.DeviceName()
	opts.SetBinaryWill(topicPrefix+name+"/"+bridge.TopicInfo, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("sigfox:" + name)
	}
	return mqtt.NewQueue(opts, topicPrefix), nil
}
