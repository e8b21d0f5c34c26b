package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// remoteSentinels are matched against error text coming back over the
// wire so callers can use errors.Is on remote failures.
var remoteSentinels = []error{
	apperrors.ErrCollectionNotFound,
	apperrors.ErrDocumentNotFound,
	apperrors.ErrMalformedIndex,
	apperrors.ErrIndexUnavailable,
	apperrors.ErrInvalidInput,
	apperrors.ErrRateLimited,
	apperrors.ErrTimeout,
}

// ErrConnClosed is returned by every call after the connection broke.
var ErrConnClosed = errors.New("rpc connection closed")

// response mirrors Response with Data left encoded.
type response struct {
	ID    string          `json:"id"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
	Code  int             `json:"code,omitempty"`
}

// Client is a lightweight JSON-over-TCP RPC client. Calls are serialised
// over one connection; once a call fails on the transport the client is
// unusable and must be re-dialled.
type Client struct {
	conn    net.Conn
	encoder *json.Encoder
	decoder *json.Decoder
	mu      sync.Mutex
	nextID  atomic.Int64
	broken  bool
}

// Dial connects to an RPC server at the given address. A zero timeout
// waits for the operating system's default.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}
	return &Client{
		conn:    conn,
		encoder: json.NewEncoder(conn),
		decoder: json.NewDecoder(conn),
	}, nil
}

// Call invokes the named RPC method with params and decodes the response
// into result. The ctx deadline, if any, bounds the round trip and is
// passed on to the server. Call is safe for concurrent use.
func (c *Client) Call(ctx context.Context, method string, params any, result any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding %s params: %w", method, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return fmt.Errorf("%s: %w", method, ErrConnClosed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	req := Request{
		Method: method,
		ID:     strconv.FormatInt(c.nextID.Add(1), 10),
		Params: raw,
	}
	deadline, ok := ctx.Deadline()
	if ok {
		req.TimeoutMs = max(time.Until(deadline).Milliseconds(), 1)
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return c.fail(fmt.Errorf("setting deadline: %w", err))
	}

	if err := c.encoder.Encode(req); err != nil {
		return c.fail(fmt.Errorf("sending %s: %w", method, err))
	}
	var resp response
	if err := c.decoder.Decode(&resp); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return c.fail(fmt.Errorf("%s: %w", method, apperrors.ErrTimeout))
		}
		return c.fail(fmt.Errorf("reading %s response: %w", method, err))
	}
	if resp.ID != req.ID {
		return c.fail(fmt.Errorf("%s: response id %q does not match request %q", method, resp.ID, req.ID))
	}

	if resp.Error != "" {
		return remoteError(method, resp)
	}
	if result != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, result); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

// fail marks the connection unusable. A reply that never arrived would
// otherwise be read as the answer to the next call.
func (c *Client) fail(err error) error {
	c.broken = true
	c.conn.Close()
	return err
}

func remoteError(method string, resp response) error {
	sentinel := apperrors.ErrInternal
	for _, s := range remoteSentinels {
		if strings.Contains(resp.Error, s.Error()) {
			sentinel = s
			break
		}
	}
	return apperrors.Newf(sentinel, resp.Code, "rpc %s: %s", method, resp.Error)
}

// Close closes the underlying TCP connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
