// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"notice_board/internal/model"
	"notice_board/internal/readstate"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrCodeUsed is returned when a registration code has already been redeemed.
var ErrCodeUsed = errors.New("registration code already used")

// ErrDuplicate is returned when a unique record already exists.
var ErrDuplicate = errors.New("already exists")

// Storage is the interface for all persistence operations.
type Storage interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, p model.Profile) error

	CreateNotice(ctx context.Context, n *model.Notice) error
	GetNotice(ctx context.Context, id string) (*model.Notice, error)
	// ListNotices returns the candidate notices for a role. Faculty lists are
	// narrowed to ownerID. The result is advisory; callers still apply the
	// visibility rules.
	ListNotices(ctx context.Context, role model.Role, ownerID string) ([]model.Notice, error)
	UpdateNotice(ctx context.Context, n *model.Notice) error
	DeleteNotice(ctx context.Context, id string) error

	ReadMarkers(ctx context.Context, userID string) (readstate.Markers, error)
	MarkRead(ctx context.Context, userID, noticeID string) error

	Favourites(ctx context.Context, userID string) ([]string, error)
	SetFavourite(ctx context.Context, userID, noticeID string, favourite bool) error

	CreateReport(ctx context.Context, r *model.Report) error
	ListReports(ctx context.Context, noticeID string) ([]model.Report, error)

	CreateCode(ctx context.Context, c *model.RegistrationCode) error
	// RedeemCode consumes code and creates u with the role bound to it.
	RedeemCode(ctx context.Context, code string, u *model.User) error

	CreateSource(ctx context.Context, s *model.Source) error
	GetSource(ctx context.Context, id int64) (*model.Source, error)
	ListSources(ctx context.Context) ([]model.Source, error)
	ListDueSources(ctx context.Context, interval time.Duration) ([]model.Source, error)
	UpdateSource(ctx context.Context, s *model.Source) error
	DeleteSource(ctx context.Context, id int64) error

	MarkSourceItemSeen(ctx context.Context, sourceID int64, guid string) error
	IsSourceItemSeen(ctx context.Context, sourceID int64, guid string) (bool, error)

	Close() error
}
