package main

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPConnWrite(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			received <- err.Error()
			return
		}
		defer conn.Close()
		b, _ := io.ReadAll(conn)
		received <- string(b)
	}()

	c := DialPConn(ln.Addr().String())
	require.Nil(t, c.c, "connected before the first write")
	for _, msg := range []string{"a.b 1 100\n", "a.c 2 100\n"} {
		n, err := c.Write([]byte(msg))
		require.NoError(t, err)
		require.Equal(t, len(msg), n)
	}
	require.NoError(t, c.Close())
	require.Equal(t, "a.b 1 100\na.c 2 100\n", <-received)
}

func TestPConnDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	c := DialPConn(addr)
	_, err = c.Write([]byte("x 1 1\n"))
	require.Error(t, err)
	require.NoError(t, c.Close())
}
