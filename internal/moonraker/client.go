// Package moonraker drives a Klipper printer through Moonraker's JSON-RPC
// WebSocket API.
package moonraker

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrConnectionLost is returned for calls in flight when the socket drops.
	ErrConnectionLost = errors.New("moonraker: connection lost")
	// ErrTimeout is returned when no response arrives in time.
	ErrTimeout = errors.New("moonraker: request timed out")
)

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      int64  `json:"id"`
}

// RPCError is an error object returned by Moonraker.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("moonraker: %s (code %d)", e.Message, e.Code)
}

type rpcResponse struct {
	ID     *int64          `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

type pendingCall struct {
	ch   chan rpcResponse
	conn *websocket.Conn
}

// Client is a JSON-RPC 2.0 client. Calls may be made from any goroutine;
// responses are matched to requests by id and notifications are ignored.
type Client struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	url     string
	logger  *slog.Logger
	timeout time.Duration
	retries int
	nextID  int64
	pending map[int64]pendingCall
}

// Dial connects to wsURL, retrying up to retries times.
func Dial(wsURL string, logger *slog.Logger, timeout time.Duration, retries int) (*Client, error) {
	if _, err := url.Parse(wsURL); err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if retries <= 0 {
		retries = 10
	}

	c := &Client{
		url:     wsURL,
		logger:  logger,
		timeout: timeout,
		retries: retries,
		pending: make(map[int64]pendingCall),
	}
	if err := c.connectWithRetry(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	u, err := url.Parse(c.url)
	if err != nil {
		return fmt.Errorf("invalid ws url: %w", err)
	}

	d := websocket.Dialer{
		HandshakeTimeout: 2 * time.Second,
	}
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		return err
	}

	c.conn = conn
	go c.readLoop(conn)
	return nil
}

func (c *Client) connectWithRetry() error {
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		err := c.connect()
		if err == nil {
			c.logger.Info("connected to moonraker", "url", c.url)
			return nil
		}
		lastErr = err
		c.logger.Warn("connection failed; retrying...", "error", err, "attempt", attempt+1)
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("failed to connect after %d attempts: %w", c.retries, lastErr)
}

func (c *Client) ensureConnected() error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.logger.Warn("connection lost; reconnecting...")
	return c.connectWithRetry()
}

// Connected reports whether a socket is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.drop(conn, err)
			return
		}

		var resp rpcResponse
		if err := json.Unmarshal(message, &resp); err != nil {
			c.logger.Warn("failed to parse moonraker message", "error", err)
			continue
		}
		if resp.ID == nil {
			// Status notifications are not subscribed to; polling covers them.
			continue
		}

		c.mu.Lock()
		call, ok := c.pending[*resp.ID]
		delete(c.pending, *resp.ID)
		c.mu.Unlock()
		if ok {
			call.ch <- resp
		}
	}
}

// drop fails every call made on conn.
func (c *Client) drop(conn *websocket.Conn, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == conn {
		c.logger.Warn("moonraker connection closed", "error", err)
		c.conn = nil
		conn.Close()
	}
	for id, call := range c.pending {
		if call.conn == conn {
			close(call.ch)
			delete(c.pending, id)
		}
	}
}

// Call sends method and decodes the result into out (which may be nil).
func (c *Client) Call(method string, params any, out any) error {
	if err := c.ensureConnected(); err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return fmt.Errorf("no websocket connection")
	}
	c.nextID++
	id := c.nextID

	payload, err := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: id})
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("marshal request: %w", err)
	}

	ch := make(chan rpcResponse, 1)
	c.pending[id] = pendingCall{ch: ch, conn: conn}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		delete(c.pending, id)
		c.conn = nil // Mark connection as broken
		conn.Close()
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return fmt.Errorf("%s: %w", method, ErrConnectionLost)
		}
		if resp.Error != nil {
			return fmt.Errorf("%s: %w", method, resp.Error)
		}
		if out != nil {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("%s: decode result: %w", method, err)
			}
		}
		return nil

	case <-timer.C:
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", method, ErrTimeout)
	}
}

// Close closes the WebSocket connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return nil
}
