// Package gql implements the item table on top of a Supabase project's
// pg_graphql endpoint. Change notifications come from a separate Feed,
// usually the realtime package.
package gql

import (
	"context"
	"net/http"
	"strings"

	"github.com/machinebox/graphql"

	"github.com/robby/homestock/internal/logging"
	"github.com/robby/homestock/internal/remote"
)

// DefaultPageSize is the number of rows requested per page by FetchAll.
const DefaultPageSize = 1000

// Client is a pg_graphql client for the items collection.
type Client struct {
	gql      *graphql.Client
	apiKey   string
	token    string
	feed     remote.Feed
	pageSize int
}

type options struct {
	httpClient *http.Client
	token      string
	feed       remote.Feed
	pageSize   int
}

// Option configures a Client.
type Option func(*options)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithAccessToken sends token as the bearer credential instead of the API
// key, for projects with row level security tied to a signed-in user.
func WithAccessToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithFeed sets the change feed returned by Subscribe.
func WithFeed(f remote.Feed) Option {
	return func(o *options) { o.feed = f }
}

// WithPageSize overrides DefaultPageSize.
func WithPageSize(n int) Option {
	return func(o *options) { o.pageSize = n }
}

// Endpoint returns the pg_graphql URL of a project.
func Endpoint(projectURL string) string {
	return strings.TrimRight(projectURL, "/") + "/graphql/v1"
}

// New creates a client for the project at projectURL.
func New(projectURL, apiKey string, opts ...Option) *Client {
	o := options{pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}

	var clientOpts []graphql.ClientOption
	if o.httpClient != nil {
		clientOpts = append(clientOpts, graphql.WithHTTPClient(o.httpClient))
	}
	gc := graphql.NewClient(Endpoint(projectURL), clientOpts...)
	gc.Log = func(s string) { logging.Logger.Debug("graphql", "msg", s) }

	token := o.token
	if token == "" {
		token = apiKey
	}
	if o.pageSize <= 0 {
		o.pageSize = DefaultPageSize
	}

	return &Client{
		gql:      gc,
		apiKey:   apiKey,
		token:    token,
		feed:     o.feed,
		pageSize: o.pageSize,
	}
}

// makeRequest executes a GraphQL request with the project's credentials.
func (c *Client) makeRequest(ctx context.Context, req *graphql.Request, resp interface{}) error {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.gql.Run(ctx, req, resp)
}

// Subscribe delegates to the configured feed.
func (c *Client) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	if c.feed == nil {
		return nil, remote.ErrNoFeed
	}
	return c.feed.Subscribe(ctx)
}

var _ remote.Table = (*Client)(nil)
