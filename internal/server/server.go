package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/mspprobe/internal/discovery"
	"github.com/muurk/mspprobe/internal/logging"
	"github.com/muurk/mspprobe/internal/session"
	"github.com/muurk/mspprobe/internal/transport"
)

// DefaultPollInterval is how often the connectivity poll reads the program
// counter when the config does not override it.
const DefaultPollInterval = 5 * time.Second

// Config holds the server configuration
type Config struct {
	Host     string
	Port     int
	LogLevel string

	// Device is the serial device path, used to reopen the link after a
	// drop. Empty disables automatic reconnection.
	Device string

	// PollInterval is the connectivity poll period. Zero selects
	// DefaultPollInterval; negative disables the poll.
	PollInterval time.Duration

	// Announce publishes the server over mDNS when set.
	Announce bool

	// InstanceName is the mDNS instance name. Defaults to the hostname.
	InstanceName string
}

// Server exposes one probe session over WebSocket.
type Server struct {
	config     *Config
	session    *session.Session
	httpServer *http.Server
	announcer  *discovery.Announcer
	wg         sync.WaitGroup
	stopPoll   chan struct{}

	mu        sync.Mutex
	connected bool
}

// New creates a Server around an open session.
func New(config *Config, sess *session.Session) (*Server, error) {
	if err := logging.Initialize(config.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	if config.PollInterval == 0 {
		config.PollInterval = DefaultPollInterval
	}
	return &Server{
		config:    config,
		session:   sess,
		stopPoll:  make(chan struct{}),
		connected: true,
	}, nil
}

// Start runs the server and blocks until a shutdown signal or a listener
// error.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	logging.Info("Starting mspprobe WebSocket server",
		zap.String("addr", addr),
		zap.String("profile", s.session.Profile().Name),
		zap.String("log_level", s.config.LogLevel),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.config.Announce {
		announcer, err := discovery.Announce(s.config.InstanceName, s.config.Port,
			map[string]string{"profile": s.session.Profile().Name})
		if err != nil {
			logging.Warn("mDNS announce failed, continuing without it", zap.Error(err))
		} else {
			s.announcer = announcer
			logging.Info("Announced over mDNS",
				zap.String("service", discovery.ServiceType))
		}
	}

	if s.config.PollInterval > 0 {
		s.wg.Add(1)
		go s.pollLoop()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		err := s.httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	logging.Info("Server listening for connections", zap.String("addr", addr))

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown stops the listener, the poll, and the mDNS announcement.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	if s.announcer != nil {
		s.announcer.Close()
	}

	close(s.stopPoll)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logging.Error("Error shutting down HTTP server", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All workers stopped")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	logging.Sync()
	return nil
}

// Connected reports the outcome of the most recent connectivity poll.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Server) setConnected(connected bool) {
	s.mu.Lock()
	s.connected = connected
	s.mu.Unlock()
}

// pollLoop reads the program counter at a fixed interval. A failed read
// marks the probe disconnected and triggers a reconnect attempt.
func (s *Server) pollLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopPoll:
			return
		case <-ticker.C:
			pc, err := s.session.ReadPC()
			if err == nil {
				if !s.Connected() {
					logging.Info("Probe link recovered", zap.Uint32("pc", pc))
				}
				s.setConnected(true)
				continue
			}

			logging.Warn("Connectivity poll failed", zap.Error(err))
			s.setConnected(false)
			s.reconnect()
		}
	}
}

// reconnect reopens the serial device and swaps the fresh transport into
// the session. Failures are logged and retried on the next poll tick.
func (s *Server) reconnect() {
	if s.config.Device == "" {
		return
	}

	tr, err := transport.OpenSerial(s.config.Device, s.session.Profile().Link.Baud)
	if err != nil {
		logging.Warn("Reconnect attempt failed",
			zap.String("device", s.config.Device),
			zap.Error(err),
		)
		return
	}

	s.session.ReplaceTransport(tr)
	logging.Info("Reopened probe transport", zap.String("device", s.config.Device))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if s.Connected() {
		fmt.Fprintln(w, "ok")
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	fmt.Fprintln(w, "probe disconnected")
}
