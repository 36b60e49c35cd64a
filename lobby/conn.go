package lobby

import (
	"bufio"
	"io"
	"net"
	"strings"
	"sync"

	"connect4-server/games"
)

// Conn is a line-oriented player connection. Send and Close may be called
// from any goroutine; ReadLine only from the owning session.
type Conn interface {
	games.Endpoint
	// ReadLine returns the next line without its terminator.
	ReadLine() (string, error)
	RemoteAddr() string
}

// tcpConn frames the protocol as newline-terminated text over a socket.
type tcpConn struct {
	conn      net.Conn
	reader    *bufio.Reader
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func NewTCPConn(conn net.Conn) Conn {
	return &tcpConn{
		conn:   conn,
		reader: bufio.NewReader(conn),
	}
}

func (c *tcpConn) ReadLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		// a final unterminated line is still a line
		if err == io.EOF && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (c *tcpConn) Send(lines ...string) error {
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := io.WriteString(c.conn, sb.String())
	return err
}

func (c *tcpConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func (c *tcpConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
