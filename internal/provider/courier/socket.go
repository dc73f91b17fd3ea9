package courier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/lu-zhengda/courier/internal/domain"
	"github.com/lu-zhengda/courier/internal/provider"
)

const socketVersion = "5"

var _ provider.Socket = (*Socket)(nil)

// Socket is the realtime inbox connection for one user. Handlers run on
// the socket's read goroutine.
type Socket struct {
	url      string
	session  domain.Session
	handlers provider.SocketHandlers
	dialer   *websocket.Dialer

	writeMu sync.Mutex
	mu      sync.Mutex
	conn    *websocket.Conn
	closed  atomic.Bool
}

// OpenSocket prepares a realtime socket. Nothing is dialed until Connect.
func (c *Client) OpenSocket(h provider.SocketHandlers) (provider.Socket, error) {
	u, err := url.Parse(c.opts.RealtimeURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse realtime url: %w: %w", domain.ErrSocket, err)
	}

	q := u.Query()
	if c.session.AccessToken != "" {
		q.Set("auth", c.session.AccessToken)
	}
	if c.session.ClientKey != "" {
		q.Set("clientKey", c.session.ClientKey)
	}
	u.RawQuery = q.Encode()

	return &Socket{
		url:      u.String(),
		session:  c.session,
		handlers: h,
		dialer:   &websocket.Dialer{HandshakeTimeout: c.opts.Timeout, Proxy: http.ProxyFromEnvironment},
	}, nil
}

func (s *Socket) log() *log.Entry {
	return log.WithField("component", "courier_socket").WithField("user", s.session.UserID)
}

// Connect dials the realtime endpoint and starts reading frames.
func (s *Socket) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return nil
	}

	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect socket: %w: %w", domain.ErrSocket, err)
	}
	s.conn = conn
	s.closed.Store(false)
	go s.readPump(conn)

	s.log().Debug("socket_connected")
	return nil
}

type subscribeFrame struct {
	Action string        `json:"action"`
	Data   subscribeData `json:"data"`
}

type subscribeData struct {
	Channel   string `json:"channel"`
	Event     string `json:"event"`
	Version   string `json:"version"`
	AccountID string `json:"accountId,omitempty"`
}

// Subscribe asks for every inbox event on the user's channel.
func (s *Socket) Subscribe(ctx context.Context) error {
	return s.write(ctx, "subscribe", subscribeFrame{
		Action: "subscribe",
		Data: subscribeData{
			Channel:   s.session.UserID,
			Event:     "*",
			Version:   socketVersion,
			AccountID: s.session.TenantID,
		},
	})
}

// KeepAlive sends a keep-alive frame.
func (s *Socket) KeepAlive(ctx context.Context) error {
	return s.write(ctx, "keep alive", map[string]string{"action": "keepAlive"})
}

func (s *Socket) write(ctx context.Context, op string, frame any) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("failed to %s: %w: not connected", op, domain.ErrSocket)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(10 * time.Second)
	}
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("failed to %s: %w: %w", op, domain.ErrSocket, err)
	}
	return nil
}

// Disconnect closes the connection. It is safe to call more than once.
func (s *Socket) Disconnect() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	s.closed.Store(true)

	s.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()

	s.log().Debug("socket_disconnected")
	if err := conn.Close(); err != nil {
		return fmt.Errorf("failed to close socket: %w: %w", domain.ErrSocket, err)
	}
	return nil
}

type socketFrame struct {
	Type      string          `json:"type"`
	Event     string          `json:"event"`
	MessageID string          `json:"messageId"`
	Data      json.RawMessage `json:"data"`
}

func (s *Socket) readPump(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, net.ErrClosed) {
				return
			}
			s.fail(fmt.Errorf("failed to read socket: %w: %w", domain.ErrSocket, err))
			return
		}
		s.handleFrame(data)
	}
}

func (s *Socket) handleFrame(data []byte) {
	var frame socketFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.fail(fmt.Errorf("failed to decode socket frame: %w: %w", domain.ErrParse, err))
		return
	}

	switch {
	case frame.Type == "message":
		var node messageNode
		if err := json.Unmarshal(frame.Data, &node); err != nil || node.MessageID == "" {
			s.fail(fmt.Errorf("failed to decode socket message: %w: %v", domain.ErrParse, err))
			return
		}
		if s.handlers.OnMessage != nil {
			s.handlers.OnMessage(mapNode(node))
		}
	case frame.Type == "event" || (frame.Type == "" && frame.Event != ""):
		kind, ok := provider.ParseSocketEventType(frame.Event)
		if !ok {
			s.log().WithField("event", frame.Event).Trace("socket_event_skipped")
			return
		}
		if s.handlers.OnEvent != nil {
			s.handlers.OnEvent(provider.SocketEvent{Type: kind, MessageID: frame.MessageID})
		}
	default:
		s.log().WithField("type", frame.Type).Trace("socket_frame_skipped")
	}
}

func (s *Socket) fail(err error) {
	s.log().WithError(err).Warn("socket_error")
	if s.handlers.OnError != nil {
		s.handlers.OnError(err)
	}
}
