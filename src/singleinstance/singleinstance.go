// Package singleinstance keeps one resident screensnap per machine and
// lets follow-up invocations delegate a capture trigger to it over
// loopback TCP. The wire protocol is line-based: PING/PONG to detect a
// resident, then a TRIGGER request answered with SUCCESS or ERROR.
package singleinstance

import "context"

// Server is the resident side. Start fails when another resident
// already holds the port, which doubles as the second-instance check.
type Server interface {
	Start(ctx context.Context) error
	Port() int
	// Next blocks until a trigger request arrives.
	Next(ctx context.Context) (Conn, error)
	Close() error
}

// Conn is one accepted trigger request awaiting a reply.
type Conn interface {
	RespondSuccess(msg string) error
	RespondError(msg string) error
}

// Client is the delegating side.
type Client interface {
	// TryTrigger hands a capture trigger to a resident instance.
	// delegated=false means no resident was found on any port.
	TryTrigger(ctx context.Context) (delegated bool, err error)
}

func NewServer() Server { return newTCPServer() }
func NewClient() Client { return newTCPClient() }
