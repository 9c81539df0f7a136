package instance

import (
	"os"
	"strings"
)

// GetID identifies this process in logs: UNIVEND_INSTANCE_ID, then the
// host name, then "local".
func GetID() string {
	if id := strings.TrimSpace(os.Getenv("UNIVEND_INSTANCE_ID")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
