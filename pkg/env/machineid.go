package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
)

// HostID retrieves an ID identifying this host for the application. The raw
// machine ID isn't exposed.
func HostID() string {
	id, err := machineid.ProtectedID("sigfox")
	if err == nil {
		return id
	}
	host, _ := os.Hostname()
	for len(host) < 12 {
		host += "-"
	}
	return host
}
