package room

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type VideoInput struct {
	URL       string  `json:"url" validate:"required"`
	Title     string  `json:"title"`
	Thumbnail string  `json:"thumbnail"`
	Author    string  `json:"author"`
	Duration  float64 `json:"duration" validate:"gte=0"`
}

type QueueResponse struct {
	Queue        []QueueItem
	CurrentIndex int
	Conns        []*websocket.Conn
}

// queueStateLocked snapshots the queue for a full-state broadcast. The room
// is small, so shipping the whole queue on every change beats maintaining a
// diff protocol.
func (s *service) queueStateLocked() ([]QueueItem, int) {
	queue := make([]QueueItem, len(s.state.queue))
	copy(queue, s.state.queue)
	return queue, s.state.currentIndex
}

func (s *service) queueResponseLocked() QueueResponse {
	queue, currentIndex := s.queueStateLocked()
	return QueueResponse{
		Queue:        queue,
		CurrentIndex: currentIndex,
		Conns:        s.sessionRepo.Conns(),
	}
}

func (s *service) newQueueItemLocked(video *VideoInput, addedById string) QueueItem {
	return QueueItem{
		Id:        uuid.NewString(),
		URL:       video.URL,
		Title:     video.Title,
		Thumbnail: video.Thumbnail,
		Author:    video.Author,
		Duration:  video.Duration,
		AddedById: addedById,
		AddedAt:   nowMillis(),
	}
}

type AddToQueueParams struct {
	SenderConn *websocket.Conn
	Video      VideoInput
}

// AddToQueue appends to the tail. Open to every participant.
func (s *service) AddToQueue(ctx context.Context, params *AddToQueueParams) (QueueResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, err := s.sessionRepo.GetByConn(params.SenderConn)
	if err != nil {
		return QueueResponse{}, fmt.Errorf("failed to get session: %w", err)
	}

	s.state.queue = append(s.state.queue, s.newQueueItemLocked(&params.Video, sender.MemberId))
	s.persistLocked()

	return s.queueResponseLocked(), nil
}

type PlayNextParams struct {
	SenderConn *websocket.Conn
	Video      VideoInput
}

// PlayNext prepends to the head. When a queue item is currently active the
// index moves up by one so it keeps pointing at the same logical item.
func (s *service) PlayNext(ctx context.Context, params *PlayNextParams) (QueueResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, err := s.sessionRepo.GetByConn(params.SenderConn)
	if err != nil {
		return QueueResponse{}, fmt.Errorf("failed to get session: %w", err)
	}
	if !s.canPerformLocked(&sender, ActionQueuePlayNext) {
		return QueueResponse{}, ErrPermissionDenied
	}

	item := s.newQueueItemLocked(&params.Video, sender.MemberId)
	s.state.queue = append([]QueueItem{item}, s.state.queue...)
	if s.state.currentIndex >= 0 {
		s.state.currentIndex++
	}
	s.persistLocked()

	return s.queueResponseLocked(), nil
}

type PlayNowParams struct {
	SenderConn *websocket.Conn
	Video      VideoInput
}

type PlayNowResponse struct {
	URL          string
	Queue        []QueueItem
	CurrentIndex int
	Users        []Member
	Conns        []*websocket.Conn
}

// PlayNow bypasses the queue entirely: the media is loaded immediately and
// playback is no longer sourced from the queue.
func (s *service) PlayNow(ctx context.Context, params *PlayNowParams) (PlayNowResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, err := s.sessionRepo.GetByConn(params.SenderConn)
	if err != nil {
		return PlayNowResponse{}, fmt.Errorf("failed to get session: %w", err)
	}
	if !s.canPerformLocked(&sender, ActionQueuePlayNow) {
		return PlayNowResponse{}, ErrPermissionDenied
	}

	s.loadLocked(params.Video.URL)
	s.persistLocked()

	queue, currentIndex := s.queueStateLocked()
	return PlayNowResponse{
		URL:          params.Video.URL,
		Queue:        queue,
		CurrentIndex: currentIndex,
		Users:        s.membersLocked(),
		Conns:        s.sessionRepo.Conns(),
	}, nil
}

type RemoveFromQueueParams struct {
	SenderConn *websocket.Conn
	ItemId     string
}

// RemoveFromQueue deletes by item identity. Removing an item before the
// active one shifts the index down; removing the active item itself detaches
// playback from the queue without interrupting it.
func (s *service) RemoveFromQueue(ctx context.Context, params *RemoveFromQueueParams) (QueueResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, err := s.sessionRepo.GetByConn(params.SenderConn)
	if err != nil {
		return QueueResponse{}, fmt.Errorf("failed to get session: %w", err)
	}
	if !s.canPerformLocked(&sender, ActionQueueRemove) {
		return QueueResponse{}, ErrPermissionDenied
	}

	removedAt := -1
	for i, item := range s.state.queue {
		if item.Id == params.ItemId {
			removedAt = i
			break
		}
	}
	if removedAt == -1 {
		return QueueResponse{}, ErrQueueItemNotFound
	}

	s.state.queue = append(s.state.queue[:removedAt], s.state.queue[removedAt+1:]...)
	switch {
	case removedAt == s.state.currentIndex:
		s.state.currentIndex = -1
	case removedAt < s.state.currentIndex:
		s.state.currentIndex--
	}
	s.persistLocked()

	return s.queueResponseLocked(), nil
}

type ReorderQueueParams struct {
	SenderConn *websocket.Conn
	FromIndex  int
	ToIndex    int
}

// ReorderQueue moves one element; the active index follows the same logical
// item across the move.
func (s *service) ReorderQueue(ctx context.Context, params *ReorderQueueParams) (QueueResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, err := s.sessionRepo.GetByConn(params.SenderConn)
	if err != nil {
		return QueueResponse{}, fmt.Errorf("failed to get session: %w", err)
	}
	if !s.canPerformLocked(&sender, ActionQueueReorder) {
		return QueueResponse{}, ErrPermissionDenied
	}

	from, to := params.FromIndex, params.ToIndex
	if from < 0 || from >= len(s.state.queue) || to < 0 || to >= len(s.state.queue) {
		return QueueResponse{}, ErrInvalidIndex
	}

	if from != to {
		item := s.state.queue[from]
		s.state.queue = append(s.state.queue[:from], s.state.queue[from+1:]...)
		rest := make([]QueueItem, 0, len(s.state.queue)+1)
		rest = append(rest, s.state.queue[:to]...)
		rest = append(rest, item)
		rest = append(rest, s.state.queue[to:]...)
		s.state.queue = rest

		switch current := s.state.currentIndex; {
		case current == from:
			s.state.currentIndex = to
		case from < current && to >= current:
			s.state.currentIndex--
		case from > current && to <= current && current >= 0:
			s.state.currentIndex++
		}
	}
	s.persistLocked()

	return s.queueResponseLocked(), nil
}

type GetQueueParams struct {
	SenderConn *websocket.Conn
}

func (s *service) GetQueue(ctx context.Context, params *GetQueueParams) (QueueState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.sessionRepo.GetByConn(params.SenderConn); err != nil {
		return QueueState{}, fmt.Errorf("failed to get session: %w", err)
	}

	queue, currentIndex := s.queueStateLocked()
	return QueueState{Queue: queue, CurrentIndex: currentIndex}, nil
}

type VideoEndedParams struct {
	SenderConn *websocket.Conn
}

type VideoEndedResponse struct {
	// Advanced reports whether a next target was promoted; when false the
	// player state was left untouched.
	Advanced     bool
	URL          string
	Queue        []QueueItem
	CurrentIndex int
	Conns        []*websocket.Conn
}

// VideoEnded drives the FIFO auto-advance. A finished queue-sourced video is
// consumed from the head; if playback was not sourced from the queue the head
// is promoted without being consumed first. The new target starts at zero
// and playing, since clients report the end only once they are idle.
func (s *service) VideoEnded(ctx context.Context, params *VideoEndedParams) (VideoEndedResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.sessionRepo.GetByConn(params.SenderConn); err != nil {
		return VideoEndedResponse{}, fmt.Errorf("failed to get session: %w", err)
	}

	if len(s.state.queue) == 0 {
		s.state.currentIndex = -1
		queue, currentIndex := s.queueStateLocked()
		return VideoEndedResponse{
			Queue:        queue,
			CurrentIndex: currentIndex,
			Conns:        s.sessionRepo.Conns(),
		}, nil
	}

	if s.state.currentIndex >= 0 {
		s.state.queue = s.state.queue[1:]
	}

	resp := VideoEndedResponse{Conns: s.sessionRepo.Conns()}
	if len(s.state.queue) > 0 {
		next := s.state.queue[0]
		s.state.currentIndex = 0
		s.state.player = Player{
			URL:       next.URL,
			Time:      0,
			Paused:    false,
			Timestamp: nowMillis(),
		}
		resp.Advanced = true
		resp.URL = next.URL
		s.logger.InfoContext(ctx, "queue auto-advance", "url", next.URL)
	} else {
		s.state.currentIndex = -1
	}
	s.persistLocked()

	resp.Queue, resp.CurrentIndex = s.queueStateLocked()
	return resp, nil
}
