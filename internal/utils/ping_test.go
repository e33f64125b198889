package utils

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPingService(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	ctx := context.Background()
	addr := ln.Addr().String()

	assert.NoError(t, PingService(ctx, "http://"+addr, time.Second))
	assert.NoError(t, PingService(ctx, addr, time.Second))

	assert.Error(t, PingService(ctx, "http://", time.Second))
	assert.Error(t, PingService(ctx, "://bad url", time.Second))

	// nothing listens on a port that was just released
	closed, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	closedAddr := closed.Addr().String()
	require.NoError(t, closed.Close())
	assert.Error(t, PingService(ctx, "http://"+closedAddr, time.Second))
}
