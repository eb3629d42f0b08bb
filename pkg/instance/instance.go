package instance

import "os"

// GetID identifies this worker replica in logs. It prefers FASHIONSTORE_INSTANCE_ID, then the hostname.
func GetID() string {
	if id := os.Getenv("FASHIONSTORE_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
