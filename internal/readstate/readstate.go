// Package readstate tracks which notices each user has already seen.
package readstate

import (
	"context"
	"fmt"
	"time"

	"notice_board/internal/model"
)

// Markers maps notice IDs to the time a single user first read them.
type Markers map[string]time.Time

// IsRead reports whether a marker exists for noticeID.
func (m Markers) IsRead(noticeID string) bool {
	_, ok := m[noticeID]
	return ok
}

// MarkRead records noticeID as read at the given time unless a marker
// already exists. It returns true when a new marker was created.
func (m Markers) MarkRead(noticeID string, at time.Time) bool {
	if _, ok := m[noticeID]; ok {
		return false
	}
	m[noticeID] = at
	return true
}

// Decorate pairs each notice with its read state. Markers for notices not in
// the list are ignored.
func Decorate(notices []model.Notice, m Markers) []model.FeedNotice {
	out := make([]model.FeedNotice, len(notices))
	for i, n := range notices {
		out[i] = model.FeedNotice{Notice: n, IsRead: m.IsRead(n.ID)}
	}
	return out
}

// Store persists read markers.
type Store interface {
	ReadMarkers(ctx context.Context, userID string) (Markers, error)
	// MarkRead creates the marker if absent and is a no-op otherwise.
	MarkRead(ctx context.Context, userID, noticeID string) error
}

// Tracker exposes read state backed by a Store.
type Tracker struct {
	store Store
}

// NewTracker creates a Tracker.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// Markers loads the read markers of userID.
func (t *Tracker) Markers(ctx context.Context, userID string) (Markers, error) {
	m, err := t.store.ReadMarkers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load read markers: %w", err)
	}
	if m == nil {
		m = Markers{}
	}
	return m, nil
}

// Decorate loads the markers of userID and applies them to notices.
func (t *Tracker) Decorate(ctx context.Context, userID string, notices []model.Notice) ([]model.FeedNotice, error) {
	m, err := t.Markers(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Decorate(notices, m), nil
}

// MarkRead records that userID has seen noticeID. Safe to repeat.
func (t *Tracker) MarkRead(ctx context.Context, userID, noticeID string) error {
	if err := t.store.MarkRead(ctx, userID, noticeID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}
