package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

type tcpServer struct {
	ln       net.Listener
	incoming chan Conn

	closeOnce sync.Once
	closed    chan struct{}
}

func newTCPServer() *tcpServer {
	return &tcpServer{
		incoming: make(chan Conn, 4),
		closed:   make(chan struct{}),
	}
}

// Start binds the first port of the configured range. A second resident
// fails here, which is exactly the single-instance guarantee.
func (s *tcpServer) Start(ctx context.Context) error {
	start, _ := getPortRange()
	ln, err := net.Listen("tcp", net.JoinHostPort(residentHost, strconv.Itoa(start)))
	if err != nil {
		return fmt.Errorf("bind resident port %d: %w", start, err)
	}
	s.ln = ln
	go s.acceptLoop()
	return nil
}

func (s *tcpServer) Port() int {
	if s.ln == nil {
		return 0
	}
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *tcpServer) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *tcpServer) handle(conn net.Conn) {
	conn.SetDeadline(time.Now().Add(2 * time.Second))
	br := bufio.NewReader(conn)
	line, err := br.ReadString('\n')
	if err != nil {
		conn.Close()
		return
	}
	switch line {
	case pingRequest:
		conn.Write([]byte(pongResponse))
		conn.Close()
	case triggerRequest:
		conn.SetDeadline(time.Now().Add(10 * time.Second))
		sc := &serverConn{conn: conn}
		select {
		case s.incoming <- sc:
		case <-s.closed:
			sc.RespondError("resident shutting down")
		}
	default:
		conn.Write([]byte("ERROR\nunknown request"))
		conn.Close()
	}
}

func (s *tcpServer) Next(ctx context.Context) (Conn, error) {
	select {
	case c := <-s.incoming:
		return c, nil
	case <-s.closed:
		return nil, errors.New("server closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *tcpServer) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.ln != nil {
			s.ln.Close()
		}
	})
	return nil
}

type serverConn struct {
	conn net.Conn
	once sync.Once
}

func (c *serverConn) RespondSuccess(msg string) error {
	return c.respond("SUCCESS\n", msg)
}

func (c *serverConn) RespondError(msg string) error {
	return c.respond("ERROR\n", msg)
}

func (c *serverConn) respond(status, msg string) error {
	var err error
	c.once.Do(func() {
		w := bufio.NewWriter(c.conn)
		if _, err = w.WriteString(status + msg); err == nil {
			err = w.Flush()
		}
		c.conn.Close()
	})
	return err
}
