package courier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/lu-zhengda/courier/internal/domain"
	"github.com/lu-zhengda/courier/internal/provider"
)

const (
	DefaultInboxURL    = "https://inbox.courier.com/q"
	DefaultRealtimeURL = "wss://realtime.courier.com"
	DefaultAPIURL      = "https://api.courier.com"
	DefaultTimeout     = 30 * time.Second
)

var _ provider.Provider = (*Client)(nil)

// Options configures endpoints and the underlying HTTP client. Zero values
// fall back to the production endpoints.
type Options struct {
	InboxURL    string
	RealtimeURL string
	APIURL      string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

func (o Options) withDefaults() Options {
	if o.InboxURL == "" {
		o.InboxURL = DefaultInboxURL
	}
	if o.RealtimeURL == "" {
		o.RealtimeURL = DefaultRealtimeURL
	}
	if o.APIURL == "" {
		o.APIURL = DefaultAPIURL
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// Client implements provider.Provider against the Courier inbox GraphQL
// endpoint, the REST API and the realtime socket for one session.
type Client struct {
	session domain.Session
	opts    Options
	http    *http.Client
}

// New creates a client for the given session. Sessions carrying an access
// token authenticate with a bearer token; client key sessions send the key
// and user id as headers.
func New(session domain.Session, opts Options) *Client {
	opts = opts.withDefaults()

	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: opts.Timeout}
	}

	httpClient := base
	if session.AccessToken != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: session.AccessToken,
			TokenType:   "Bearer",
		}))
		httpClient.Timeout = base.Timeout
	}

	return &Client{session: session, opts: opts, http: httpClient}
}

func (c *Client) log() *log.Entry {
	return log.WithField("component", "courier_client").WithField("user", c.session.UserID)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-courier-user-id", c.session.UserID)
	req.Header.Set("x-request-id", uuid.NewString())
	if c.session.ClientKey != "" {
		req.Header.Set("x-courier-client-key", c.session.ClientKey)
	}
	if c.session.TenantID != "" {
		req.Header.Set("x-courier-tenant-id", c.session.TenantID)
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// graphQL posts a query to the inbox endpoint and decodes data into out.
func (c *Client) graphQL(ctx context.Context, op, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.InboxURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to %s: %w: %w", op, domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w: %w", op, domain.ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("failed to %s: %w: status %d", op, domain.ErrTransport, resp.StatusCode)
	}

	var gql graphQLResponse
	if err := json.Unmarshal(raw, &gql); err != nil {
		return fmt.Errorf("failed to decode %s response: %w: %w", op, domain.ErrParse, err)
	}
	if len(gql.Errors) > 0 {
		return fmt.Errorf("failed to %s: %w: %s", op, domain.ErrTransport, gql.Errors[0].Message)
	}
	if out == nil {
		return nil
	}
	if len(gql.Data) == 0 || string(gql.Data) == "null" {
		return fmt.Errorf("failed to decode %s response: %w: empty data", op, domain.ErrParse)
	}
	if err := json.Unmarshal(gql.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w: %w", op, domain.ErrParse, err)
	}

	c.log().WithField("op", op).Trace("graphql_ok")
	return nil
}

func (c *Client) filterParams(archived bool) map[string]any {
	params := map[string]any{"archived": archived}
	if c.session.TenantID != "" {
		params["accountId"] = c.session.TenantID
	}
	return params
}

// FetchPage returns one page of the requested partition.
func (c *Client) FetchPage(ctx context.Context, opts provider.PageOptions) (*domain.MessageSet, error) {
	vars := map[string]any{
		"params": c.filterParams(opts.Feed == domain.FeedTypeArchive),
		"limit":  domain.ClampPaginationLimit(opts.Limit),
	}
	if opts.Cursor != "" {
		vars["after"] = opts.Cursor
	}

	var data messagesData
	if err := c.graphQL(ctx, "fetch "+opts.Feed.String()+" page", messagesQuery, vars, &data); err != nil {
		return nil, err
	}
	return mapPage(data.Messages), nil
}

// FetchUnreadCount returns the server-side unread count.
func (c *Client) FetchUnreadCount(ctx context.Context) (int, error) {
	params := map[string]any{"status": "unread"}
	if c.session.TenantID != "" {
		params["accountId"] = c.session.TenantID
	}

	var data countData
	if err := c.graphQL(ctx, "fetch unread count", unreadCountQuery, map[string]any{"params": params}, &data); err != nil {
		return 0, err
	}
	return max(data.Count, 0), nil
}

// Mutate sends a tracking mutation.
func (c *Client) Mutate(ctx context.Context, m provider.Mutation) error {
	query, ok := mutationQueries[m.Kind]
	if !ok {
		return fmt.Errorf("unsupported mutation kind: %d", int(m.Kind))
	}

	vars := map[string]any{}
	if m.Kind != provider.MutationMarkAllRead {
		if m.MessageID == "" {
			return fmt.Errorf("%s mutation requires a message id", m.Kind)
		}
		vars["messageId"] = m.MessageID
	}
	if m.Kind == provider.MutationClick {
		if m.TrackingID == "" {
			return fmt.Errorf("clicked mutation requires a tracking id")
		}
		vars["trackingId"] = m.TrackingID
	}
	return c.graphQL(ctx, "mark message "+m.Kind.String(), query, vars, nil)
}
