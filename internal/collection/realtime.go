package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	heartbeatInterval = 25 * time.Second
	readTimeout       = 60 * time.Second
	writeTimeout      = 10 * time.Second
	maxMessageSize    = 512 * 1024
)

// Channel events.
const (
	EventJoin      = "phx_join"
	EventReply     = "phx_reply"
	EventHeartbeat = "heartbeat"
	EventChange    = "postgres_changes"
)

// Message is the websocket envelope used by the realtime channel.
type Message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
}

// ChangePayload is the payload of an [EventChange] message.
type ChangePayload struct {
	Type      models.RemoteEvent `json:"type"`
	Table     string             `json:"table"`
	Record    *models.Todo       `json:"record,omitempty"`
	OldRecord *models.Todo       `json:"old_record,omitempty"`
}

// Topic is the channel topic for the todo table.
func (c *Client) Topic() string { return "realtime:public:" + c.table }

// Subscribe opens the change feed. The returned channel is closed when ctx ends or
// the connection drops; callers resubscribe to resume.
func (c *Client) Subscribe(ctx context.Context) (<-chan models.RemoteChange, error) {
	if c.realtimeURL == "" {
		return nil, fmt.Errorf("%w: realtime url is required", shared.ErrMissingConfig)
	}

	u, err := url.Parse(c.realtimeURL)
	if err != nil {
		return nil, fmt.Errorf("%w: realtime url: %v", shared.ErrInvalidConfig, err)
	}
	q := u.Query()
	if c.anonKey != "" {
		q.Set("apikey", c.anonKey)
	}
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()

	token, err := c.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("%w: dial realtime: %v", shared.ErrServiceUnavailable, err)
	}

	sub := &subscription{client: c, conn: conn, out: make(chan models.RemoteChange, 64)}

	join, _ := json.Marshal(map[string]any{"access_token": token, "table": c.table})
	if err := sub.write(Message{Topic: c.Topic(), Event: EventJoin, Payload: join, Ref: uuid.NewString()}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: join channel: %v", shared.ErrServiceUnavailable, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	go sub.heartbeat(subCtx)
	go func() {
		<-subCtx.Done()
		sub.close()
	}()
	go func() {
		defer cancel()
		sub.readPump(subCtx)
	}()

	return sub.out, nil
}

type subscription struct {
	client *Client
	conn   *websocket.Conn
	out    chan models.RemoteChange

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (s *subscription) write(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *subscription) close() {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		s.conn.Close()
	})
}

func (s *subscription) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			msg := Message{Topic: "phoenix", Event: EventHeartbeat, Payload: json.RawMessage(`{}`), Ref: uuid.NewString()}
			if err := s.write(msg); err != nil {
				s.client.logger.Debug("realtime heartbeat failed", "err", err)
				return
			}
		}
	}
}

func (s *subscription) readPump(ctx context.Context) {
	defer close(s.out)
	defer s.close()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	topic := s.client.Topic()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.client.logger.Warn("realtime connection lost", "err", err)
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(readTimeout))

		change, ok, err := decodeChange(data, topic)
		if err != nil {
			s.client.logger.Warn("skipping malformed realtime message", "err", err)
			continue
		}
		if !ok {
			continue
		}

		select {
		case s.out <- change:
		case <-ctx.Done():
			return
		}
	}
}

var errNoRecord = errors.New("change without record")

// decodeChange extracts a row change from a channel message. ok is false for
// replies, heartbeats and other topics.
func decodeChange(data []byte, topic string) (models.RemoteChange, bool, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return models.RemoteChange{}, false, err
	}
	if msg.Topic != topic || msg.Event != EventChange {
		return models.RemoteChange{}, false, nil
	}

	var payload ChangePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return models.RemoteChange{}, false, err
	}

	record := payload.Record
	if payload.Type == models.RemoteDelete && payload.OldRecord != nil {
		record = payload.OldRecord
	}
	if record == nil || record.TodoID == "" {
		return models.RemoteChange{}, false, errNoRecord
	}

	switch payload.Type {
	case models.RemoteInsert, models.RemoteUpdate, models.RemoteDelete:
		return models.RemoteChange{Event: payload.Type, Record: *record}, true, nil
	default:
		return models.RemoteChange{}, false, fmt.Errorf("unknown change type %q", payload.Type)
	}
}
