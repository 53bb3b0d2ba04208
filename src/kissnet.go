package soti

/*------------------------------------------------------------------
 *
 * Purpose:   	Provide the decoded frames as a KISS TNC over TCP, so
 *		ordinary packet radio applications can watch the
 *		satellite's downlink.
 *
 * Description:	Up to MAX_NET_CLIENTS applications can be attached at
 *		once.  Every frame goes to all of them.  A client that
 *		can't keep up, or goes away, is disconnected and the slot
 *		becomes free for the next one.
 *
 *		We never transmit, so what the clients send is only
 *		logged.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const kissWriteTimeout = 2 * time.Second

type KISSServer struct {
	listener net.Listener
	logger   *log.Logger
	metrics  *Metrics

	mu      sync.Mutex
	clients [MAX_NET_CLIENTS]net.Conn
}

func ListenKISS(ctx context.Context, port int, logger *log.Logger, metrics *Metrics) (*KISSServer, error) {
	var lc net.ListenConfig

	var listener, err = lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("KISS TCP port %d: %w", port, err)
	}

	return &KISSServer{listener: listener, logger: logger, metrics: metrics}, nil
}

// Port is the TCP port actually bound, useful when 0 was asked for.
func (s *KISSServer) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

/*-------------------------------------------------------------------
 *
 * Name:        Serve
 *
 * Purpose:     Wait for connection requests from applications.
 *
 * Description:	The client can go away and come back again and
 *		re-establish communication without restarting.
 *		Returns once ctx is done.
 *
 *--------------------------------------------------------------------*/

func (s *KISSServer) Serve(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.listener.Close()
		s.closeAll()
	}()

	s.logger.Info("Ready to accept KISS TCP client applications", "port", s.Port())

	for {
		var conn, err = s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("KISS accept failed", "err", err)
			continue
		}

		var client = s.attach(conn)
		if client < 0 {
			s.logger.Warn("Too many KISS TCP clients, refusing", "remote", conn.RemoteAddr())
			conn.Close()
			continue
		}

		s.logger.Info("Attached to KISS TCP client application", "client", client, "remote", conn.RemoteAddr())
		go s.listenClient(client, conn)
	}
}

func (s *KISSServer) attach(conn net.Conn) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		if s.clients[c] == nil {
			s.clients[c] = conn
			s.metrics.ClientConnected("kiss")
			return c
		}
	}

	return -1
}

func (s *KISSServer) detach(client int, conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clients[client] == conn {
		s.clients[client] = nil
		conn.Close()
		s.metrics.ClientDisconnected("kiss")
	}
}

func (s *KISSServer) closeAll() {
	s.mu.Lock()
	var conns = s.clients
	s.mu.Unlock()

	for c, conn := range conns {
		if conn != nil {
			s.detach(c, conn)
		}
	}
}

// Read from one client until it goes away.
func (s *KISSServer) listenClient(client int, conn net.Conn) {
	defer s.detach(client, conn)

	var kf kissFrameReader
	var buf = make([]byte, 256)

	for {
		var n, err = conn.Read(buf)
		for _, ch := range buf[:n] {
			var frame = kf.Feed(ch)
			if frame == nil {
				continue
			}

			var msg, uerr = kissUnwrap(frame)
			if uerr != nil {
				s.logger.Warn("KISS frame from client", "client", client, "err", uerr)
			}
			if len(msg) > 0 {
				s.logger.Debug("Ignoring KISS frame from client, receive only", "client", client, "type", fmt.Sprintf("%02x", msg[0]), "len", len(msg)-1)
			}
		}

		if err != nil {
			s.logger.Info("KISS TCP client application has gone away", "client", client)
			return
		}
	}
}

// Emit sends decoded frames to every attached client.  Other records are
// not KISS material.
func (s *KISSServer) Emit(r Record) {
	if r.Kind != RecordFrame {
		return
	}

	var msg = KISSDataFrame(0, r.Raw)

	s.mu.Lock()
	var conns = s.clients
	s.mu.Unlock()

	for c, conn := range conns {
		if conn == nil {
			continue
		}

		conn.SetWriteDeadline(time.Now().Add(kissWriteTimeout)) //nolint:errcheck
		if _, err := conn.Write(msg); err != nil {
			s.logger.Warn("KISS TCP client write failed, disconnecting", "client", c, "err", err)
			s.detach(c, conn)
		}
	}
}
