package courier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lu-zhengda/courier/internal/domain"
	"github.com/lu-zhengda/courier/internal/provider"
)

type capturedRequest struct {
	Method string
	Path   string
	Header http.Header
	GQL    graphQLRequest
	Body   map[string]any
}

func newTestServer(t *testing.T, respond func(r capturedRequest) (int, string)) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var reqs []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		c := capturedRequest{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone()}
		if r.URL.Path == "/q" {
			_ = json.Unmarshal(raw, &c.GQL)
		} else if len(raw) > 0 {
			_ = json.Unmarshal(raw, &c.Body)
		}
		reqs = append(reqs, c)
		status, body := respond(c)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func newTestClient(srv *httptest.Server, session domain.Session) *Client {
	return New(session, Options{
		InboxURL:   srv.URL + "/q",
		APIURL:     srv.URL,
		HTTPClient: srv.Client(),
	})
}

func TestClient_FetchPage(t *testing.T) {
	srv, reqs := newTestServer(t, func(r capturedRequest) (int, string) {
		return http.StatusOK, `{"data":{"messages":{
			"totalCount": 3,
			"pageInfo": {"startCursor": "cur-1", "hasNextPage": true},
			"nodes": [
				{"messageId": "a", "title": "A", "created": "2025-06-15T10:30:00Z"},
				{"messageId": "b", "title": "B", "created": "2025-06-15T10:00:00Z", "read": "2025-06-15T11:00:00Z"}
			]}}}`
	})
	c := newTestClient(srv, domain.Session{UserID: "user-1", AccessToken: "tok", TenantID: "tenant-1"})

	set, err := c.FetchPage(context.Background(), provider.PageOptions{Feed: domain.FeedTypeArchive, Limit: 500, Cursor: "cur-0"})
	require.NoError(t, err)
	require.Len(t, set.Messages, 2)
	assert.Equal(t, 3, set.TotalCount)
	assert.True(t, set.CanPaginate)
	assert.Equal(t, "cur-1", set.PaginationCursor)
	assert.True(t, set.Messages[1].IsRead())

	require.Len(t, *reqs, 1)
	r := (*reqs)[0]
	assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
	assert.Equal(t, "user-1", r.Header.Get("x-courier-user-id"))
	assert.Equal(t, "tenant-1", r.Header.Get("x-courier-tenant-id"))
	assert.Contains(t, r.GQL.Query, "GetInboxMessages")
	assert.Equal(t, float64(domain.MaxPaginationLimit), r.GQL.Variables["limit"])
	assert.Equal(t, "cur-0", r.GQL.Variables["after"])
	params := r.GQL.Variables["params"].(map[string]any)
	assert.Equal(t, true, params["archived"])
	assert.Equal(t, "tenant-1", params["accountId"])
}

func TestClient_ClientKeyAuth(t *testing.T) {
	srv, reqs := newTestServer(t, func(r capturedRequest) (int, string) {
		return http.StatusOK, `{"data":{"count":7}}`
	})
	c := newTestClient(srv, domain.Session{UserID: "user-1", ClientKey: "ck"})

	n, err := c.FetchUnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	r := (*reqs)[0]
	assert.Empty(t, r.Header.Get("Authorization"))
	assert.Equal(t, "ck", r.Header.Get("x-courier-client-key"))
	params := r.GQL.Variables["params"].(map[string]any)
	assert.Equal(t, "unread", params["status"])
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"graphql errors", http.StatusOK, `{"errors":[{"message":"denied"}]}`, domain.ErrTransport},
		{"http status", http.StatusInternalServerError, `oops`, domain.ErrTransport},
		{"malformed body", http.StatusOK, `{"data":`, domain.ErrParse},
		{"null data", http.StatusOK, `{"data":null}`, domain.ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, func(capturedRequest) (int, string) { return tt.status, tt.body })
			c := newTestClient(srv, domain.Session{UserID: "u", ClientKey: "ck"})

			_, err := c.FetchPage(context.Background(), provider.PageOptions{Limit: 10})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_Mutate(t *testing.T) {
	srv, reqs := newTestServer(t, func(capturedRequest) (int, string) {
		return http.StatusOK, `{"data":{"ok":true}}`
	})
	c := newTestClient(srv, domain.Session{UserID: "u", ClientKey: "ck"})
	ctx := context.Background()

	require.NoError(t, c.Mutate(ctx, provider.Mutation{Kind: provider.MutationRead, MessageID: "m1"}))
	require.NoError(t, c.Mutate(ctx, provider.Mutation{Kind: provider.MutationClick, MessageID: "m1", TrackingID: "t1"}))
	require.NoError(t, c.Mutate(ctx, provider.Mutation{Kind: provider.MutationMarkAllRead}))

	assert.Error(t, c.Mutate(ctx, provider.Mutation{Kind: provider.MutationArchive}))
	assert.Error(t, c.Mutate(ctx, provider.Mutation{Kind: provider.MutationClick, MessageID: "m1"}))

	require.Len(t, *reqs, 3)
	assert.Contains(t, (*reqs)[0].GQL.Query, "read(messageId: $messageId)")
	assert.Equal(t, "m1", (*reqs)[0].GQL.Variables["messageId"])
	assert.Equal(t, "t1", (*reqs)[1].GQL.Variables["trackingId"])
	assert.Contains(t, (*reqs)[2].GQL.Query, "markAllRead")
	assert.Empty(t, (*reqs)[2].GQL.Variables)
}

func TestClient_Tokens(t *testing.T) {
	srv, reqs := newTestServer(t, func(capturedRequest) (int, string) { return http.StatusNoContent, "" })
	c := newTestClient(srv, domain.Session{UserID: "user 1", AccessToken: "tok"})
	ctx := context.Background()

	require.NoError(t, c.PutToken(ctx, domain.PushToken{Token: "fcm-token"}))
	require.NoError(t, c.DeleteToken(ctx, "fcm-token"))

	require.Len(t, *reqs, 2)
	assert.Equal(t, http.MethodPut, (*reqs)[0].Method)
	assert.Equal(t, "/users/user 1/tokens/fcm-token", (*reqs)[0].Path)
	assert.Equal(t, domain.PushProviderFCM, (*reqs)[0].Body["provider_key"])
	assert.Equal(t, http.MethodDelete, (*reqs)[1].Method)
}

func TestClient_Send(t *testing.T) {
	srv, reqs := newTestServer(t, func(capturedRequest) (int, string) {
		return http.StatusAccepted, `{"requestId":"req-1"}`
	})
	c := newTestClient(srv, domain.Session{UserID: "u", AccessToken: "tok"})

	id, err := c.Send(context.Background(), provider.SendRequest{UserID: "other", Title: "Hi", Body: "There"})
	require.NoError(t, err)
	assert.Equal(t, "req-1", id)

	msg := (*reqs)[0].Body["message"].(map[string]any)
	assert.Equal(t, "other", msg["to"].(map[string]any)["user_id"])
	assert.Equal(t, "Hi", msg["content"].(map[string]any)["title"])

	_, err = c.Send(context.Background(), provider.SendRequest{})
	assert.Error(t, err)
}

func TestClient_RESTFailure(t *testing.T) {
	srv, _ := newTestServer(t, func(capturedRequest) (int, string) { return http.StatusUnauthorized, `{"message":"nope"}` })
	c := newTestClient(srv, domain.Session{UserID: "u", AccessToken: "tok"})

	err := c.PutToken(context.Background(), domain.PushToken{Token: "x"})
	assert.ErrorIs(t, err, domain.ErrTransport)
}
