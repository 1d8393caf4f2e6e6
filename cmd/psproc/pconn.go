package main

import (
	"net"
	"time"
)

const (
	tcpKeepAlivePeriod = 30 * time.Second
	dialTimeout        = 5 * time.Second
)

// A PConn is a persistent TCP connection. It opens a connection lazily when used and reopens the connection
// on errors.
// It can also be thought of as a connection pool of size 1. A PConn is not safe for concurrent use.
type PConn struct {
	c    net.Conn
	addr string
}

func DialPConn(addr string) *PConn {
	return &PConn{addr: addr}
}

func (c *PConn) connect() error {
	d := net.Dialer{Timeout: dialTimeout, KeepAlive: tcpKeepAlivePeriod}
	conn, err := d.Dial("tcp", c.addr)
	if err != nil {
		return err
	}
	c.c = conn
	return nil
}

// Write sends b, connecting first if necessary. If a write on an established connection fails, the
// connection is dropped and the write is tried once more on a new one.
func (c *PConn) Write(b []byte) (int, error) {
	hadConn := c.c != nil
	if !hadConn {
		if err := c.connect(); err != nil {
			return 0, err
		}
	}
	n, err := c.c.Write(b)
	if err != nil {
		c.c.Close()
		c.c = nil
		if hadConn {
			return c.Write(b)
		}
	}
	return n, err
}

func (c *PConn) Close() error {
	if c.c == nil {
		return nil
	}
	err := c.c.Close()
	c.c = nil
	return err
}
