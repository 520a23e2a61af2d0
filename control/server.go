package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/micha/triggerhappy/logging"
)

// DefaultReadTimeout bounds how long a client may take to send its message.
const DefaultReadTimeout = 5 * time.Second

// ErrServerClosed is returned by Serve after Close.
var ErrServerClosed = errors.New("control server closed")

// Devices is the set of watched devices.
type Devices interface {
	Add(path string) error
	Remove(path string) error
}

// Switch turns rule firing on and off.
type Switch interface {
	SetEnabled(enabled bool)
}

// Server accepts commands on a unix socket and applies them one at a time.
type Server struct {
	path        string
	ln          net.Listener
	devices     Devices
	triggers    Switch
	readTimeout time.Duration
	log         zerolog.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithReadTimeout sets how long a client may take to send its message.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.readTimeout = d
		}
	}
}

// Listen binds the socket at path. A stale socket left behind by a previous
// daemon is replaced; a live one is an error.
func Listen(path string, devices Devices, triggers Switch, opts ...Option) (*Server, error) {
	if err := removeStale(path); err != nil {
		return nil, err
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", path, err)
	}

	s := &Server{
		path:        path,
		ln:          ln,
		devices:     devices,
		triggers:    triggers,
		readTimeout: DefaultReadTimeout,
		log:         logging.GetLogger("control"),
		closed:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Addr returns the socket path.
func (s *Server) Addr() string {
	return s.path
}

// Serve accepts connections until a QUIT command arrives, in which case it
// returns nil. It returns ctx.Err() when ctx is cancelled and
// ErrServerClosed after Close. Shutting the rest of the daemon down is left
// to the caller.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.closed:
		}
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			select {
			case <-s.closed:
				return ErrServerClosed
			default:
			}
			return fmt.Errorf("failed to accept control connection: %w", err)
		}

		cmd, err := s.receive(conn)
		conn.Close()
		if err != nil {
			s.log.Warn().Err(err).Msg("Ignoring control message")
			continue
		}

		if s.apply(cmd) {
			s.Close()
			return nil
		}
	}
}

// Close stops accepting commands and removes the socket file.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.ln.Close()
		if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	})
	return err
}

func (s *Server) receive(conn net.Conn) (Command, error) {
	if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
		return Command{}, err
	}
	buf := make([]byte, MessageSize)
	if _, err := io.ReadFull(conn, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Command{}, ErrShortMessage
		}
		return Command{}, fmt.Errorf("failed to read control message: %w", err)
	}
	var cmd Command
	if err := cmd.UnmarshalBinary(buf); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// apply runs one command and reports whether it was QUIT.
func (s *Server) apply(cmd Command) bool {
	s.log.Info().Stringer("command", cmd).Msg("Received command")

	if cmd.Kind.NeedsParam() && cmd.Param == "" {
		s.log.Warn().Stringer("command", cmd.Kind).Msg("Command is missing its device")
		return false
	}

	switch cmd.Kind {
	case Add:
		if err := s.devices.Add(cmd.Param); err != nil {
			s.log.Error().Err(err).Str("device", cmd.Param).Msg("Unable to add device")
		}
	case Remove:
		if err := s.devices.Remove(cmd.Param); err != nil {
			s.log.Error().Err(err).Str("device", cmd.Param).Msg("Unable to remove device")
		}
	case Enable:
		s.triggers.SetEnabled(true)
	case Disable:
		s.triggers.SetEnabled(false)
	case Quit:
		return true
	}
	return false
}

// removeStale deletes a socket file nobody is listening on.
func removeStale(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a socket", path)
	}
	if conn, err := net.DialTimeout("unix", path, time.Second); err == nil {
		conn.Close()
		return fmt.Errorf("%s is in use by another daemon", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove stale socket %s: %w", path, err)
	}
	return nil
}

// Send connects to the daemon socket and delivers one command. Success only
// means the message was written; the daemon does not reply.
func Send(path string, cmd Command) error {
	buf, err := cmd.MarshalBinary()
	if err != nil {
		return err
	}
	conn, err := net.Dial("unix", path)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", path, err)
	}
	defer conn.Close()

	if _, err := conn.Write(buf); err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	return nil
}
