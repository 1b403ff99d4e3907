package main

import (
	"bufio"
	"net"

	"github.com/pkg/errors"
)

// Conn is a connection to a client.
type Conn struct {
	conn net.Conn
	rw   *bufio.ReadWriter
}

// NewConn initializes a Conn from a net.Conn.
func NewConn(conn net.Conn) Conn {
	return Conn{
		conn: conn,
		rw:   bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn)),
	}
}

// Close closes the underlying connection.
func (c Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the remote network address.
func (c Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// ReadLine reads one complete message from the connection. The
// terminating newline and an optional preceding carriage return are
// stripped. Any read error, including EOF with a partial line buffered,
// means the client is gone.
func (c Conn) ReadLine() (string, error) {
	line, err := c.rw.ReadString('\n')
	if err != nil {
		return "", errors.Wrap(err, "error reading")
	}

	line = line[:len(line)-1]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}

	return line, nil
}

// Write writes a string to the connection and flushes it.
func (c Conn) Write(s string) error {
	sz, err := c.rw.WriteString(s)
	if err != nil {
		return errors.Wrap(err, "error writing")
	}

	if sz != len(s) {
		return errors.New("short write")
	}

	if err := c.rw.Flush(); err != nil {
		return errors.Wrap(err, "error flushing")
	}

	return nil
}

// WriteMessage encodes and writes a message to the connection.
func (c Conn) WriteMessage(m Message) error {
	return c.Write(m.Encode())
}
