package control

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/leonardotrapani/streamscribe/internal/bus"
	"github.com/leonardotrapani/streamscribe/internal/session"
)

const clientTimeout = 5 * time.Second

// StatusFunc reports the state of the session the server is bound to.
type StatusFunc func() session.Status

// Server accepts stop and status requests for one running session over the
// control socket. At most one server runs per user, guarded by the pid file.
type Server struct {
	paths  bus.Paths
	status StatusFunc

	stopOnce  sync.Once
	stopCh    chan struct{}
	closeOnce sync.Once
	closed    chan struct{}

	ln net.Listener
	wg sync.WaitGroup
}

func New(paths bus.Paths, status StatusFunc) *Server {
	return &Server{
		paths:  paths,
		status: status,
		stopCh: make(chan struct{}),
		closed: make(chan struct{}),
	}
}

// Start claims the pid file and begins serving.
func (s *Server) Start() error {
	if err := s.paths.CheckExisting(); err != nil {
		return err
	}

	ln, err := s.paths.Listen()
	if err != nil {
		return fmt.Errorf("failed to listen on control socket: %w", err)
	}

	if err := s.paths.CreatePidFile(); err != nil {
		ln.Close()
		return fmt.Errorf("failed to create PID file: %w", err)
	}

	s.ln = ln
	s.wg.Add(1)
	go s.serve()

	log.Debug("control: listening", "socket", s.paths.Sock())
	return nil
}

// StopRequested is closed once a client asks the session to stop.
func (s *Server) StopRequested() <-chan struct{} {
	return s.stopCh
}

// Close stops serving and removes the socket and pid file.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		if s.ln == nil {
			return
		}
		err = s.ln.Close()
		s.wg.Wait()
		if rmErr := s.paths.RemovePidFile(); rmErr != nil {
			log.Debug("control: removing pid file", "err", rmErr)
		}
	})
	return err
}

func (s *Server) serve() {
	defer s.wg.Done()

	for {
		c, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("control: accept failed", "err", err)
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(c)
		}()
	}
}

func (s *Server) handle(c net.Conn) {
	defer c.Close()

	// a silent client must not hold up Close
	_ = c.SetDeadline(time.Now().Add(clientTimeout))

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		log.Debug("control: client read error", "err", err)
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 || line[0] == '\n' {
		fmt.Fprint(c, "ERR empty\n")
		return
	}
	cmd := line[0]

	switch cmd {
	case 'q':
		s.stopOnce.Do(func() {
			log.Info("control: stop requested")
			close(s.stopCh)
		})
		fmt.Fprint(c, "OK stopping\n")
	case 's':
		st := s.status()
		fmt.Fprintf(c, "STATUS state=%s frames=%d fragments=%d stop_sent=%t last=%q\n",
			st.State, st.FramesSent, st.Fragments, st.StopSent, st.LastFragment)
	case 'v':
		fmt.Fprintf(c, "STATUS proto=%s\n", bus.ProtoVer)
	default:
		log.Warn("control: unknown command", "cmd", string(cmd))
		fmt.Fprintf(c, "ERR unknown=%q\n", cmd)
	}
}
