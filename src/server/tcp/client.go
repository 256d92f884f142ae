package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"sync"
	"time"
)

var ErrNotConnected = errors.New("socket not connected")

type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Handler receives transport events. Callbacks run on the client's own
// goroutine and must not block for long.
type Handler struct {
	OnStatus func(status Status, err error)
	OnData   func(chunk []byte)
}

type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Client keeps one TCP session to the matrix open, re-dialing at a fixed
// interval after every failure until Close is called.
type Client struct {
	addr              string
	reconnectInterval time.Duration
	writeTimeout      time.Duration
	handler           Handler
	dial              DialFunc

	mu   sync.Mutex
	conn net.Conn

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(host string, port int, reconnectInterval time.Duration, handler Handler) *Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		addr:              net.JoinHostPort(host, strconv.Itoa(port)),
		reconnectInterval: reconnectInterval,
		writeTimeout:      5 * time.Second,
		handler:           handler,
		dial:              dialer.DialContext,
		ctx:               ctx,
		cancel:            cancel,
		done:              make(chan struct{}),
	}
}

// SetDialer replaces the dial function. Call before Start.
func (c *Client) SetDialer(dial DialFunc) {
	c.dial = dial
}

func (c *Client) Addr() string {
	return c.addr
}

// Start launches the connect loop.
func (c *Client) Start() {
	go c.connectLoop()
}

// Done is closed once the connect loop has exited.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) connectLoop() {
	defer close(c.done)

	for {
		if c.ctx.Err() != nil {
			return
		}

		c.emitStatus(StatusConnecting, nil)
		conn, err := c.dial(c.ctx, "tcp", c.addr)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			log.Printf("TCP: connect %s failed: %v", c.addr, err)
			c.emitStatus(StatusDisconnected, err)
			if !c.waitReconnect() {
				return
			}
			continue
		}

		if tc, ok := conn.(*net.TCPConn); ok {
			tc.SetNoDelay(false)
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		log.Printf("TCP: connected to %s", c.addr)
		c.emitStatus(StatusConnected, nil)

		err = c.readLoop(conn)

		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
		conn.Close()

		if c.ctx.Err() != nil {
			return
		}
		log.Printf("TCP: connection to %s lost: %v", c.addr, err)
		c.emitStatus(StatusDisconnected, err)
		if !c.waitReconnect() {
			return
		}
	}
}

func (c *Client) readLoop(conn net.Conn) error {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 && c.handler.OnData != nil && c.ctx.Err() == nil {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			c.handler.OnData(chunk)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("connection closed by peer")
			}
			return err
		}
	}
}

func (c *Client) waitReconnect() bool {
	timer := time.NewTimer(c.reconnectInterval)
	defer timer.Stop()
	select {
	case <-c.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *Client) emitStatus(status Status, err error) {
	if c.ctx.Err() != nil {
		return
	}
	if c.handler.OnStatus != nil {
		c.handler.OnStatus(status, err)
	}
}

// Connected reports whether a socket is currently established.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Send writes line followed by CRLF. It never queues: without an
// established socket it returns ErrNotConnected.
func (c *Client) Send(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if _, err := io.WriteString(c.conn, line+"\r\n"); err != nil {
		return fmt.Errorf("send %q: %w", line, err)
	}
	return nil
}

// Close cancels any pending dial or reconnect wait and closes the socket
// before returning. No events are emitted afterwards, except possibly a data
// chunk that was already being delivered.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		c.mu.Lock()
		if c.conn != nil {
			err = c.conn.Close()
			c.conn = nil
		}
		c.mu.Unlock()
	})
	return err
}
