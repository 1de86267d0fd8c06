// Package favourites maintains the ordered favourite list of each user.
package favourites

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"notice_board/internal/model"
)

// Set is an insertion-ordered list of favourited notice IDs without duplicates.
type Set []string

// Contains reports whether noticeID is favourited.
func (s Set) Contains(noticeID string) bool {
	return lo.Contains(s, noticeID)
}

// Toggle removes noticeID if present and appends it otherwise. The receiver
// is not modified.
func (s Set) Toggle(noticeID string) Set {
	if s.Contains(noticeID) {
		return lo.Without(s, noticeID)
	}
	out := make(Set, len(s), len(s)+1)
	copy(out, s)
	return append(out, noticeID)
}

// Resolve returns the favourited notices in favouriting order. IDs that no
// longer refer to a notice in notices are skipped.
func Resolve(s Set, notices []model.Notice) []model.Notice {
	byID := lo.KeyBy(notices, func(n model.Notice) string { return n.ID })
	out := make([]model.Notice, 0, len(s))
	for _, id := range s {
		if n, ok := byID[id]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Store persists favourite lists.
type Store interface {
	Favourites(ctx context.Context, userID string) ([]string, error)
	SetFavourite(ctx context.Context, userID, noticeID string, favourite bool) error
}

// Index exposes favourites backed by a Store.
type Index struct {
	store Store
}

// NewIndex creates an Index.
func NewIndex(store Store) *Index {
	return &Index{store: store}
}

// Set loads the favourites of userID.
func (x *Index) Set(ctx context.Context, userID string) (Set, error) {
	ids, err := x.store.Favourites(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load favourites: %w", err)
	}
	return Set(ids), nil
}

// Toggle flips noticeID in the favourites of userID and returns the
// resulting set.
func (x *Index) Toggle(ctx context.Context, userID, noticeID string) (Set, error) {
	current, err := x.Set(ctx, userID)
	if err != nil {
		return nil, err
	}
	next := current.Toggle(noticeID)
	if err := x.store.SetFavourite(ctx, userID, noticeID, next.Contains(noticeID)); err != nil {
		return nil, fmt.Errorf("save favourite: %w", err)
	}
	return next, nil
}

// IsFavourite reports whether userID has favourited noticeID.
func (x *Index) IsFavourite(ctx context.Context, userID, noticeID string) (bool, error) {
	s, err := x.Set(ctx, userID)
	if err != nil {
		return false, err
	}
	return s.Contains(noticeID), nil
}

// Resolve returns the favourited notices of userID found in notices.
func (x *Index) Resolve(ctx context.Context, userID string, notices []model.Notice) ([]model.Notice, error) {
	s, err := x.Set(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Resolve(s, notices), nil
}
