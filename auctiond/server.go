package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"time"

	"github.com/openland/landauction/engine"
	"github.com/openland/landauction/engineapi"
	"github.com/openland/landauction/receipt"
)

const (
	readTimeout    = 30 * time.Second
	requestTimeout = 30 * time.Second
)

// Server answers one JSON request per connection against an Engine.
type Server struct {
	engine     *engine.Engine
	keys       *receipt.KeyManager // nil when receipts are not signed
	maxWorkers int
}

// NewServer creates a Server handling at most maxWorkers connections at once.
// keys may be nil when the engine settles without receipts.
func NewServer(e *engine.Engine, keys *receipt.KeyManager, maxWorkers int) *Server {
	return &Server{engine: e, keys: keys, maxWorkers: maxWorkers}
}

// Serve accepts connections until ctx ends or the listener fails.
// Each connection takes a worker slot; connections arriving while every slot is
// busy are closed immediately.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	stop := context.AfterFunc(ctx, func() {
		if err := listener.Close(); err != nil {
			log.Printf("ERROR: Failed to close listener: %v", err)
		}
	})
	defer stop()

	semaphore := make(chan struct{}, s.maxWorkers)
	log.Printf("INFO: Worker pool initialized with %d max concurrent workers", s.maxWorkers)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Printf("ERROR: Failed to accept connection: %v", err)
			continue
		}

		// Acquire worker slot - immediate rejection if pool full
		select {
		case semaphore <- struct{}{}:
			go func(c net.Conn) {
				defer func() { <-semaphore }()
				s.handleConnection(ctx, c)
			}(conn)
		default:
			log.Printf("INFO: No workers available, rejecting connection (pool full)")
			if err := conn.Close(); err != nil {
				log.Printf("ERROR: Failed to close rejected connection: %v", err)
			}
		}
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Panic recovered in handleConnection: %v", r)
		}
		if err := conn.Close(); err != nil {
			log.Printf("ERROR: Failed to close connection: %v", err)
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

	var req engineapi.Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		log.Printf("ERROR: Failed to decode request: %v", err)
		s.writeResponse(conn, engineapi.ErrorResponse("", "", "", "malformed request"))
		return
	}

	log.Printf("INFO: Received request type: %s", req.Type)

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	response := s.dispatch(ctx, req)

	if s.writeResponse(conn, response) {
		log.Printf("INFO: Successfully sent response for %s", req.Type)
	}
}

func (s *Server) writeResponse(conn net.Conn, response engineapi.Response) bool {
	if err := json.NewEncoder(conn).Encode(response); err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
		return false
	}
	return true
}
