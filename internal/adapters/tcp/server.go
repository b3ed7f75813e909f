// Package tcp serves the relay wire protocol over raw TCP streams.
package tcp

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/Relay/internal/core"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSendQueue = 256
	readBufferSize   = 32 << 10
	writeWait        = 5 * time.Second
)

// Conn is the core.Transport of one TCP client.
type Conn struct {
	nc   net.Conn
	send chan core.Frame
	done chan struct{}

	once   sync.Once
	closed atomic.Bool
}

func newConn(nc net.Conn, queue int) *Conn {
	return &Conn{nc: nc, send: make(chan core.Frame, queue), done: make(chan struct{})}
}

func (c *Conn) TrySend(f core.Frame) error {
	if c.closed.Load() {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
		return nil
	default:
		return core.ErrBackpressure
	}
}

func (c *Conn) Connected() bool { return !c.closed.Load() }

func (c *Conn) Close() {
	c.once.Do(func() {
		c.closed.Store(true)
		close(c.done)
		_ = c.nc.Close()
	})
}

func (c *Conn) RemoteAddr() string { return c.nc.RemoteAddr().String() }

// Server accepts TCP clients and hands their byte streams to the hub.
type Server struct {
	Hub       core.Hub
	SendQueue int
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log.Info().Str("module", "adapters.tcp").Str("addr", ln.Addr().String()).Msg("tcp listening")
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handle(nc)
	}
}

func (s *Server) handle(nc net.Conn) {
	queue := s.SendQueue
	if queue <= 0 {
		queue = DefaultSendQueue
	}
	c := newConn(nc, queue)
	sid, err := s.Hub.Open(c)
	if err != nil {
		log.Warn().Err(err).Str("module", "adapters.tcp").Msg("hub refused connection")
		c.Close()
		return
	}
	log.Info().Str("module", "adapters.tcp").Str("sid", string(sid)).Str("remote", c.RemoteAddr()).Msg("new TCP connection")

	go s.writeLoop(sid, c)
	s.readLoop(sid, c)
}

func (s *Server) readLoop(sid core.SessionID, c *Conn) {
	defer func() {
		c.Close()
		s.Hub.Disconnect(sid)
		log.Info().Str("module", "adapters.tcp").Str("sid", string(sid)).Msg("connection closed")
	}()

	buf := make([]byte, readBufferSize)
	for {
		n, err := c.nc.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.Hub.Feed(sid, chunk)
		}
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Debug().Err(err).Str("module", "adapters.tcp").Str("sid", string(sid)).Msg("read ended")
			}
			return
		}
	}
}

func (s *Server) writeLoop(sid core.SessionID, c *Conn) {
	for {
		select {
		case <-c.done:
			return
		case f := <-c.send:
			_ = c.nc.SetWriteDeadline(time.Now().Add(writeWait))
			if _, err := c.nc.Write(f); err != nil {
				log.Warn().Err(err).Str("module", "adapters.tcp").Str("sid", string(sid)).Msg("write failed")
				c.Close()
				return
			}
		}
	}
}
