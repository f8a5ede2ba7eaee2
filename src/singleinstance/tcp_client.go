package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

type tcpClient struct{}

func newTCPClient() Client { return &tcpClient{} }

// ping reports whether a resident answers on addr. Anything other than
// a prompt PONG means the port belongs to someone else.
func ping(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))
	if _, err := io.WriteString(conn, pingRequest); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}

func (c *tcpClient) TryTrigger(ctx context.Context) (bool, error) {
	deadline := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			deadline = d
		}
	}
	start, end := getPortRange()
	for port := start; port <= end; port++ {
		addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
		if !ping(addr, deadline) {
			continue
		}
		conn, err := net.DialTimeout("tcp", addr, deadline)
		if err != nil {
			continue
		}
		conn.SetDeadline(time.Now().Add(10 * time.Second))
		w := bufio.NewWriter(conn)
		if _, err := w.WriteString(triggerRequest); err != nil {
			conn.Close()
			return true, err
		}
		if err := w.Flush(); err != nil {
			conn.Close()
			return true, err
		}
		br := bufio.NewReader(conn)
		status, err := br.ReadString('\n')
		if err != nil {
			conn.Close()
			return true, err
		}
		switch status {
		case "SUCCESS\n":
			io.Copy(io.Discard, br)
			conn.Close()
			return true, nil
		case "ERROR\n":
			msg, _ := io.ReadAll(br)
			conn.Close()
			return true, errors.New(strings.TrimSpace(string(msg)))
		}
		conn.Close()
		return true, errors.New("unexpected response " + strings.TrimSpace(status))
	}
	return false, nil
}
