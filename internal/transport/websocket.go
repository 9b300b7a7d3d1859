package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Options configures Dial.
type Options struct {
	URL    string
	APIKey string
	// UserID is sent as the X-End-UserID routing header.
	UserID string
	// InsecureSkipVerify disables TLS certificate and host name checks.
	InsecureSkipVerify bool
	HandshakeTimeout   time.Duration
	// WriteTimeout bounds each Send. A service that stops reading makes
	// Send fail instead of blocking forever.
	WriteTimeout time.Duration
	// Inbox is the number of received messages buffered ahead of Receive.
	Inbox int
}

const defaultWriteTimeout = 10 * time.Second

type inbound struct {
	payload []byte
	err     error
}

// WebSocket implements Channel on top of a gorilla websocket connection.
// A single reader goroutine feeds Receive; writes are serialized.
type WebSocket struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex
	inbox   chan inbound

	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup
}

// Dial connects to the service. Credentials travel as headers.
func Dial(ctx context.Context, opts Options) (*WebSocket, error) {
	wsURL, err := validateURL(opts.URL)
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}

	headers := http.Header{}
	if opts.APIKey != "" {
		headers.Set("Authorization", "Bearer "+opts.APIKey)
	}
	if opts.UserID != "" {
		headers.Set("X-End-UserID", opts.UserID)
	}

	dialer := *websocket.DefaultDialer
	if opts.HandshakeTimeout > 0 {
		dialer.HandshakeTimeout = opts.HandshakeTimeout
	}
	if opts.InsecureSkipVerify {
		log.Warn("transport: TLS certificate verification disabled")
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	log.Debug("transport: connecting", "url", wsURL)
	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			log.Error("transport: dial failed", "status", resp.StatusCode)
			return nil, &TransportError{Op: "dial", Err: fmt.Errorf("%w (http status %d)", err, resp.StatusCode)}
		}
		return nil, &TransportError{Op: "dial", Err: err}
	}

	inboxSize := opts.Inbox
	if inboxSize <= 0 {
		inboxSize = 64
	}

	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}

	ws := &WebSocket{
		conn:         conn,
		writeTimeout: writeTimeout,
		inbox:        make(chan inbound, inboxSize),
		closed:       make(chan struct{}),
	}

	ws.wg.Add(1)
	go ws.readLoop()

	log.Info("transport: connected", "url", wsURL)
	return ws, nil
}

func validateURL(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported url scheme %q (want ws or wss)", u.Scheme)
	}
	return u.String(), nil
}

// readLoop pumps frames into the inbox until the connection fails.
// The terminal error is delivered as the last inbox entry.
func (w *WebSocket) readLoop() {
	defer w.wg.Done()
	defer close(w.inbox)

	for {
		_, message, err := w.conn.ReadMessage()
		if err != nil {
			select {
			case <-w.closed:
				return
			default:
			}
			select {
			case w.inbox <- inbound{err: err}:
			case <-w.closed:
			}
			return
		}

		select {
		case w.inbox <- inbound{payload: message}:
		case <-w.closed:
			return
		}
	}
}

func (w *WebSocket) Send(payload []byte) error {
	select {
	case <-w.closed:
		return &TransportError{Op: "send", Err: ErrClosed}
	default:
	}

	w.writeMu.Lock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	err := w.conn.WriteMessage(websocket.TextMessage, payload)
	w.writeMu.Unlock()

	if err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	return nil
}

func (w *WebSocket) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg, ok := <-w.inbox:
		if !ok {
			return nil, &TransportError{Op: "receive", Err: ErrClosed}
		}
		if msg.err != nil {
			return nil, &TransportError{Op: "receive", Err: msg.err}
		}
		return msg.payload, nil
	case <-timer.C:
		return nil, ErrReceiveTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close sends a normal closure frame (best effort), closes the socket and
// waits for the reader to exit. It does not wait for a Send in progress; the
// closed socket makes that Send fail. Calling it more than once is harmless.
func (w *WebSocket) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closed)

		// WriteControl may run concurrently with WriteMessage
		_ = w.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))

		err = w.conn.Close()
		w.wg.Wait()
		log.Debug("transport: closed")
	})
	return err
}
