package env

import (
	"flag"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/sigfox.go/pkg/modem"
)

func TestApplyEnv(t *testing.T) {
	vars := map[string]string{
		"SIGFOX_PORT":     "tcp://localhost:4000",
		"SIGFOX_NAME":     "dev1",
		"SIGFOX_MQTT_URL": "mqtt://broker:1883/",
		"SIGFOX_TIMEOUT":  "2s",
	}
	var conf Config
	require.NoError(t, applyEnv(&conf, func(key string) string { return vars[key] }))
	assert.Equal(t, "tcp://localhost:4000", conf.Port)
	assert.Equal(t, "dev1", conf.Name)
	assert.Equal(t, "mqtt://broker:1883/", conf.MQTTBrokerURL)
	assert.Equal(t, 2*time.Second, conf.Timeout)

	vars["SIGFOX_TIMEOUT"] = "soon"
	require.Error(t, applyEnv(&conf, func(key string) string { return vars[key] }))
}

func TestLoadFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "sigfox-env")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	fn := filepath.Join(dir, "sigfox.yaml")
	require.NoError(t, ioutil.WriteFile(fn, []byte(`
port: tarm:///dev/ttyS1?baud=19200
name: meter-7
timeout: 3s
send_interval: 15m
power: 4
`), 0644))

	conf := NewConfig()
	require.NoError(t, conf.LoadFile(fn))
	assert.Equal(t, "tarm:///dev/ttyS1?baud=19200", conf.Port)
	assert.Equal(t, "meter-7", conf.DeviceName())
	assert.Equal(t, 3*time.Second, conf.Timeout)
	assert.Equal(t, 15*time.Minute, conf.SendInterval)
	assert.Equal(t, 4, conf.Power)
	assert.Equal(t, modem.DefaultPollInterval, conf.PollInterval, "untouched by the file")

	require.Error(t, conf.LoadFile(filepath.Join(dir, "missing.yaml")))
	require.NoError(t, ioutil.WriteFile(fn, []byte("power: [1"), 0644))
	require.Error(t, conf.LoadFile(fn))
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "sigfox-env")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	fn := filepath.Join(dir, "sigfox.yaml")
	require.NoError(t, ioutil.WriteFile(fn, []byte("port: tcp://file:1\npower: 1\n"), 0644))

	SetupFlags()
	require.NoError(t, flag.Set("config", fn))
	require.NoError(t, flag.Set("power", "3"))
	defer func() { configFile = "" }()

	conf, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "tcp://file:1", conf.Port)
	assert.Equal(t, 3, conf.Power)
}

func TestDeviceNameDefault(t *testing.T) {
	conf := Config{}
	name := conf.DeviceName()
	assert.Len(t, name, len("sigfox-")+12)
	assert.Equal(t, name, conf.DeviceName(), "stable")
}

func TestNewQueue(t *testing.T) {
	conf := Config{Name: "dev1", MQTTBrokerURL: "mqtt://localhost:1883/sigfox"}
	q, err := conf.NewQueue()
	require.NoError(t, err)
	assert.Equal(t, "sigfox/", q.TopicPrefix)

	conf.MQTTBrokerURL = "://bad"
	_, err = conf.NewQueue()
	require.Error(t, err)
}

func TestPowerLevel(t *testing.T) {
	conf := Config{Power: -1}
	_, ok := conf.PowerLevel()
	require.False(t, ok)
	for _, power := range []int{0, 5, 8, 256, 262, 300} {
		conf.Power = power
		level, ok := conf.PowerLevel()
		require.True(t, ok)
		require.Equalf(t, modem.PowerLevel(power%6), level, "power %d", power)
	}
}

func TestMillis(t *testing.T) {
	require.Equal(t, uint32(600000), millis(10*time.Minute))
	require.Equal(t, uint32(0), millis(-time.Second))
	require.Equal(t, uint32(math.MaxUint32), millis(50*24*time.Hour))
	require.Equal(t, uint32(math.MaxUint32), millis(time.Duration(math.MaxInt64)))
}
