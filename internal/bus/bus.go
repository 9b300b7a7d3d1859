package bus

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const SockName = "control.sock"
const PidName = "streamscribe.pid"
const ProtoVer = "0.1"

// commandTimeout bounds a full request/response exchange on the socket.
const commandTimeout = 5 * time.Second

// ErrNoSession is returned by SendCommand when nothing is listening.
var ErrNoSession = errors.New("no streaming session running")

// Paths locates the control socket and pid file of a session.
type Paths struct {
	Dir string
}

// ~/.cache/streamscribe
func DefaultPaths() (Paths, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return Paths{}, err
	}
	return Paths{Dir: filepath.Join(dir, "streamscribe")}, nil
}

func (p Paths) Sock() string { return filepath.Join(p.Dir, SockName) }
func (p Paths) Pid() string  { return filepath.Join(p.Dir, PidName) }

func (p Paths) Listen() (net.Listener, error) {
	if err := os.MkdirAll(p.Dir, 0o700); err != nil {
		return nil, err
	}
	_ = os.Remove(p.Sock()) // stale socket from last run
	return net.Listen("unix", p.Sock())
}

func (p Paths) Dial() (net.Conn, error) {
	return net.DialTimeout("unix", p.Sock(), commandTimeout)
}

// SendCommand writes a one-byte command and returns the single-line reply.
func (p Paths) SendCommand(cmd byte) (string, error) {
	c, err := p.Dial()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED) {
			return "", ErrNoSession
		}
		return "", err
	}
	defer c.Close()

	_ = c.SetDeadline(time.Now().Add(commandTimeout))

	if _, err := c.Write([]byte{cmd, '\n'}); err != nil {
		return "", err
	}

	return bufio.NewReader(c).ReadString('\n')
}

// CheckExisting fails when the pid file names a live process.
func (p Paths) CheckExisting() error {
	pidData, err := os.ReadFile(p.Pid())
	if os.IsNotExist(err) {
		return nil // no existing session
	}
	if err != nil {
		return err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		return nil // invalid pid file, assume stale
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}

	// signal 0 only checks that the process exists
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return nil // process not alive, stale pid file
	}

	return fmt.Errorf("streaming session already running with PID %d", pid)
}

func (p Paths) CreatePidFile() error {
	if err := os.MkdirAll(p.Dir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(p.Pid(), []byte(strconv.Itoa(os.Getpid())), 0o600)
}

func (p Paths) RemovePidFile() error {
	return os.Remove(p.Pid())
}

// SendCommand talks to the session under the default paths.
func SendCommand(cmd byte) (string, error) {
	p, err := DefaultPaths()
	if err != nil {
		return "", err
	}
	return p.SendCommand(cmd)
}
