package instance

import (
	"os"

	"github.com/pasabuy/pasabuy-backend/pkg/env"
)

// GetID names the running process for log correlation: the platform dyno
// name when present, then WORKER_ID, then the host name.
func GetID() string {
	if id := env.First("", "DYNO", "WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
