package singleinstance

import (
	"os"
	"strconv"
)

const (
	residentHost = "127.0.0.1"

	defaultPortStart = 49500
	defaultPortEnd   = 49550

	pingRequest    = "PING\n"
	pongResponse   = "PONG\n"
	triggerRequest = "TRIGGER\n"
)

// getPortRange reads SCREENSNAP_PORT_START/END, clamped to the
// unprivileged range. A degenerate range collapses to the start port.
func getPortRange() (int, int) {
	start := portFromEnv("SCREENSNAP_PORT_START", defaultPortStart)
	end := portFromEnv("SCREENSNAP_PORT_END", defaultPortEnd)
	if end < start {
		end = start
	}
	return start, end
}

func portFromEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	if n < 1024 {
		return 1024
	}
	if n > 65535 {
		return 65535
	}
	return n
}
