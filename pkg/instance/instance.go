package instance

import (
	"os"
	"strings"
)

// GetID identifies this process in logs and lock values. WORKER_ID wins, then
// the hostname (the pod name on Cloud Run/GKE).
func GetID() string {
	if id := strings.TrimSpace(os.Getenv("WORKER_ID")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
