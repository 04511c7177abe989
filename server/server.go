// Package server accepts raw character streams from networked
// scanners. Serial-to-ethernet wedges and network scanners in
// keyboard-emulation mode stream the decoded characters over a plain
// TCP connection; each byte is timestamped on arrival and handed to
// the keystroke sink, which decides whether the run is a scan.
package server

import (
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"
)

// KeySink consumes timestamped keystrokes. The scan classifier is the
// production sink.
type KeySink interface {
	Key(r rune, at time.Time)
}

// Server is a TCP listener that feeds connection bytes to a KeySink.
type Server struct {
	sink     KeySink
	listener net.Listener
	address  string
	mu       sync.Mutex
	running  bool
	wg       sync.WaitGroup
	logger   *log.Logger
}

// New creates a new ingest server.
func New(sink KeySink, address string) *Server {
	logger := log.New(os.Stdout, "[INGEST] ", log.LstdFlags|log.Lmsgprefix)
	return NewWithLogger(sink, address, logger)
}

// NewWithLogger creates a new ingest server with a custom logger.
func NewWithLogger(sink KeySink, address string, logger *log.Logger) *Server {
	return &Server{
		sink:    sink,
		address: address,
		logger:  logger,
	}
}

// Start starts the TCP server and blocks until Stop is called.
func (s *Server) Start() error {
	if err := s.listen(); err != nil {
		return err
	}
	s.acceptConnections()
	return nil
}

// StartAsync starts the TCP server in a goroutine (non-blocking).
func (s *Server) StartAsync() error {
	if err := s.listen(); err != nil {
		return err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptConnections()
	}()
	return nil
}

func (s *Server) listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Println("Error: Server already running")
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		s.logger.Printf("Error: Failed to start server: %v", err)
		return fmt.Errorf("failed to start server: %w", err)
	}

	s.listener = listener
	s.running = true
	s.logger.Printf("Listening for scanner connections on %s", s.address)
	return nil
}

// acceptConnections handles incoming scanner connections.
func (s *Server) acceptConnections() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			running := s.running
			s.mu.Unlock()

			if !running {
				s.logger.Println("Server shutting down, stopping accept loop")
				return
			}
			s.logger.Printf("Error accepting connection: %v", err)
			continue
		}

		s.logger.Printf("Scanner connected from %s", conn.RemoteAddr())
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection streams one scanner's bytes into the sink.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.logger.Printf("Scanner disconnected: %s", conn.RemoteAddr())
		conn.Close()
	}()

	clientAddr := conn.RemoteAddr().String()
	buf := make([]byte, 256)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			if err != io.EOF {
				s.logger.Printf("Error reading from scanner %s: %v", clientAddr, err)
			}
			return
		}

		// One arrival time per read: bytes delivered in the same
		// segment were sent as one burst.
		at := time.Now()
		for _, b := range buf[:n] {
			if b == 0 {
				continue
			}
			s.sink.Key(rune(b), at)
		}
	}
}

// Stop stops the TCP server and waits for connections to drain.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener.Close()
	}

	s.wg.Wait()
	s.logger.Println("Ingest server stopped")
	return nil
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.address
}

// Addr returns the bound listener address, or nil before Start. With a
// ":0" listen address this is the way to learn the assigned port.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
