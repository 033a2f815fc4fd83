package instance

import "os"

var idEnvVars = []string{"PACKDROP_INSTANCE_ID", "K_REVISION", "DYNO"}

// ID names the running process for log correlation: the first platform
// variable set, then the hostname, then "local".
func ID() string {
	for _, key := range idEnvVars {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
