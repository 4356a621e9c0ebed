package room

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
)

// chatHistory is a bounded insertion-ordered log. Once full, the oldest
// entry is evicted. Entries are never mutated after insertion.
type chatHistory struct {
	capacity int
	messages []ChatMessage
}

func newChatHistory(capacity int) *chatHistory {
	return &chatHistory{
		capacity: capacity,
		messages: make([]ChatMessage, 0, capacity),
	}
}

func (h *chatHistory) append(msg ChatMessage) {
	if len(h.messages) == h.capacity {
		h.messages = h.messages[1:]
	}
	h.messages = append(h.messages, msg)
}

func (h *chatHistory) snapshot() []ChatMessage {
	snapshot := make([]ChatMessage, len(h.messages))
	copy(snapshot, h.messages)
	return snapshot
}

// systemMessageLocked appends a stored system notice so late joiners see the
// same timeline. Caller must hold s.mu.
func (s *service) systemMessageLocked(text string) ChatMessage {
	msg := ChatMessage{
		Nickname:  "system",
		Text:      text,
		IsSystem:  true,
		Timestamp: nowMillis(),
	}
	s.history.append(msg)
	return msg
}

type SendChatParams struct {
	SenderConn *websocket.Conn
	Text       string
	Image      string
}

type SendChatResponse struct {
	Message ChatMessage
	Conns   []*websocket.Conn
}

// SendChat stores the message and returns it for fanout to everyone,
// including the sender, so all clients render the same timeline.
func (s *service) SendChat(ctx context.Context, params *SendChatParams) (SendChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, err := s.sessionRepo.GetByConn(params.SenderConn)
	if err != nil {
		return SendChatResponse{}, fmt.Errorf("failed to get session: %w", err)
	}

	msg := ChatMessage{
		Nickname:  sender.Nickname,
		Text:      params.Text,
		IsAdmin:   sender.IsAdmin,
		Timestamp: nowMillis(),
		AvatarURL: sender.AvatarURL,
		Image:     params.Image,
	}
	s.history.append(msg)

	return SendChatResponse{
		Message: msg,
		Conns:   s.sessionRepo.Conns(),
	}, nil
}

// JoinNotice builds the transient "user joined" message. It is deliberately
// not stored: liveness churn would clutter the replayed history.
func (s *service) JoinNotice(nickname string) ChatMessage {
	return ChatMessage{
		Nickname:  "system",
		Text:      fmt.Sprintf("%s joined", nickname),
		IsSystem:  true,
		Timestamp: nowMillis(),
	}
}
