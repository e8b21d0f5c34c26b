package rpc

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/grpc"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

// Client is a typed DocSearch client. Calls pass through a circuit
// breaker so a dead search process fails fast.
type Client struct {
	conn    *grpc.Client
	breaker *resilience.CircuitBreaker
}

func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := grpc.Dial(addr, timeout)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn:    conn,
		breaker: resilience.NewCircuitBreaker("rpc-"+addr, resilience.CircuitBreakerConfig{
			Tolerate: answered,
		}),
	}, nil
}

// answered reports an error the server replied with, which means the
// server is healthy.
func answered(err error) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr)
}

func (c *Client) call(ctx context.Context, method string, req, resp any) error {
	return c.breaker.Execute(func() error {
		return c.conn.Call(ctx, method, req, resp)
	})
}

func (c *Client) Search(ctx context.Context, req *proto.SearchRequest) (*proto.SearchResponse, error) {
	var resp proto.SearchResponse
	if err := c.call(ctx, proto.MethodSearch, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Document(ctx context.Context, req *proto.DocumentRequest) (*proto.DocumentResponse, error) {
	var resp proto.DocumentResponse
	if err := c.call(ctx, proto.MethodDocument, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Lookup(ctx context.Context, req *proto.LookupRequest) (*proto.LookupResponse, error) {
	var resp proto.LookupResponse
	if err := c.call(ctx, proto.MethodLookup, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Collections(ctx context.Context) (*proto.CollectionsResponse, error) {
	var resp proto.CollectionsResponse
	if err := c.call(ctx, proto.MethodCollections, &proto.CollectionsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Health(ctx context.Context) (*proto.HealthCheckResponse, error) {
	var resp proto.HealthCheckResponse
	if err := c.call(ctx, proto.MethodHealth, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
