// Package board wires storage to the notice feed: it loads the viewer and the
// candidate notices, runs them through the feed pipeline, and persists the
// effects of user actions.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"notice_board/internal/favourites"
	"notice_board/internal/feed"
	"notice_board/internal/model"
	"notice_board/internal/readstate"
	"notice_board/internal/storage"
	"notice_board/internal/visibility"
)

// Errors returned by Service.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrInvalid   = errors.New("invalid input")
)

// Draft carries the author-controlled fields of a notice.
type Draft struct {
	Title         string
	Description   string
	Category      model.Category
	Pinned        bool
	ScheduledDate string
	ScheduledTime string
	Attachments   []model.Attachment
	Target        model.Target
}

// Service implements the notice board use cases.
type Service struct {
	store   storage.Storage
	gate    *visibility.Gate
	builder *feed.Builder
	reads   *readstate.Tracker
	favs    *favourites.Index
	log     *slog.Logger
}

// New creates a Service.
func New(store storage.Storage, gate *visibility.Gate, log *slog.Logger) *Service {
	return &Service{
		store:   store,
		gate:    gate,
		builder: feed.New(gate),
		reads:   readstate.NewTracker(store),
		favs:    favourites.NewIndex(store),
		log:     log,
	}
}

// User returns a user by ID.
func (s *Service) User(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, notFound(err, "get user")
	}
	return u, nil
}

// UserByTelegramID returns the user linked to a Telegram account.
func (s *Service) UserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	u, err := s.store.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, notFound(err, "get user")
	}
	return u, nil
}

// Feed builds the notice feed of userID.
func (s *Service) Feed(ctx context.Context, userID string, opts feed.Options) ([]model.FeedNotice, error) {
	u, err := s.User(ctx, userID)
	if err != nil {
		return nil, err
	}

	notices, err := s.store.ListNotices(ctx, u.Role, u.ID)
	if err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	markers, err := s.reads.Markers(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	favs, err := s.favs.Set(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	items := s.builder.Build(notices, u.Viewer(), feed.ViewerState{Read: markers, Favourites: favs}, opts)
	s.log.Debug("feed built", "user_id", u.ID, "role", u.Role, "candidates", len(notices), "shown", len(items))
	return items, nil
}

// Open returns a notice visible to userID and records it as read. The
// returned read state is the one before opening.
func (s *Service) Open(ctx context.Context, userID, noticeID string) (*model.FeedNotice, error) {
	u, n, err := s.visibleNotice(ctx, userID, noticeID)
	if err != nil {
		return nil, err
	}

	markers, err := s.reads.Markers(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	fav, err := s.favs.IsFavourite(ctx, u.ID, n.ID)
	if err != nil {
		return nil, err
	}

	out := readstate.Decorate([]model.Notice{*n}, markers)[0]
	out.IsFavourite = fav

	if !out.IsRead {
		if err := s.reads.MarkRead(ctx, u.ID, n.ID); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

// MarkRead records that userID has seen noticeID.
func (s *Service) MarkRead(ctx context.Context, userID, noticeID string) error {
	return s.reads.MarkRead(ctx, userID, noticeID)
}

// ToggleFavourite flips noticeID in the favourites of userID and reports
// whether it is now a favourite. Adding requires the notice to be visible;
// removing works for notices that no longer exist.
func (s *Service) ToggleFavourite(ctx context.Context, userID, noticeID string) (favourites.Set, bool, error) {
	current, err := s.favs.Set(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if !current.Contains(noticeID) {
		if _, _, err := s.visibleNotice(ctx, userID, noticeID); err != nil {
			return nil, false, err
		}
	}

	next, err := s.favs.Toggle(ctx, userID, noticeID)
	if err != nil {
		return nil, false, err
	}
	return next, next.Contains(noticeID), nil
}

// Publish creates a notice authored by authorID.
func (s *Service) Publish(ctx context.Context, authorID string, d Draft) (*model.Notice, error) {
	author, err := s.User(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if author.Role != model.RoleAdmin && author.Role != model.RoleFaculty {
		return nil, fmt.Errorf("%w: only faculty and admins can publish", ErrForbidden)
	}

	n := &model.Notice{
		PublishedBy:     author.ID,
		PublishedByName: author.Name,
		IsPinned:        d.Pinned,
	}
	if err := s.applyDraft(n, d); err != nil {
		return nil, err
	}
	if err := s.store.CreateNotice(ctx, n); err != nil {
		return nil, fmt.Errorf("create notice: %w", err)
	}

	s.log.Info("notice published",
		"notice_id", n.ID,
		"author_id", author.ID,
		"category", n.Category,
		"scheduled", n.IsScheduled,
	)
	return n, nil
}

// Edit replaces the author-controlled fields of a notice. The pin is kept
// unless the draft asks for one; SetPinned unpins.
func (s *Service) Edit(ctx context.Context, userID, noticeID string, d Draft) (*model.Notice, error) {
	n, err := s.ownedNotice(ctx, userID, noticeID)
	if err != nil {
		return nil, err
	}
	if err := s.applyDraft(n, d); err != nil {
		return nil, err
	}
	if d.Pinned {
		n.IsPinned = true
	}
	if err := s.store.UpdateNotice(ctx, n); err != nil {
		return nil, notFound(err, "update notice")
	}
	return n, nil
}

// SetPinned pins or unpins a notice.
func (s *Service) SetPinned(ctx context.Context, userID, noticeID string, pinned bool) (*model.Notice, error) {
	n, err := s.ownedNotice(ctx, userID, noticeID)
	if err != nil {
		return nil, err
	}
	n.IsPinned = pinned
	if err := s.store.UpdateNotice(ctx, n); err != nil {
		return nil, notFound(err, "update notice")
	}
	return n, nil
}

// Delete removes a notice. Favourites and read markers pointing at it are
// left behind and ignored by later feeds.
func (s *Service) Delete(ctx context.Context, userID, noticeID string) (*model.Notice, error) {
	n, err := s.ownedNotice(ctx, userID, noticeID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteNotice(ctx, n.ID); err != nil {
		return nil, notFound(err, "delete notice")
	}
	s.log.Info("notice deleted", "notice_id", n.ID, "user_id", userID)
	return n, nil
}

// Report files a complaint about a notice visible to userID.
func (s *Service) Report(ctx context.Context, userID, noticeID, reason string) (*model.Report, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalid)
	}
	u, n, err := s.visibleNotice(ctx, userID, noticeID)
	if err != nil {
		return nil, err
	}

	r := &model.Report{NoticeID: n.ID, UserID: u.ID, Reason: reason}
	if err := s.store.CreateReport(ctx, r); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, fmt.Errorf("%w: notice already reported", ErrInvalid)
		}
		return nil, fmt.Errorf("create report: %w", err)
	}
	s.log.Info("notice reported", "notice_id", n.ID, "user_id", u.ID)
	return r, nil
}

// Reports lists complaints about a notice. Admins only.
func (s *Service) Reports(ctx context.Context, userID, noticeID string) ([]model.Report, error) {
	if err := s.requireRole(ctx, userID, model.RoleAdmin); err != nil {
		return nil, err
	}
	reports, err := s.store.ListReports(ctx, noticeID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// IssueCode creates a single-use registration code for role. Admins only.
func (s *Service) IssueCode(ctx context.Context, adminID string, role model.Role) (*model.RegistrationCode, error) {
	if err := s.requireRole(ctx, adminID, model.RoleAdmin); err != nil {
		return nil, err
	}
	c := &model.RegistrationCode{Code: uuid.NewString(), Role: role, CreatedBy: adminID}
	if err := s.store.CreateCode(ctx, c); err != nil {
		return nil, fmt.Errorf("create code: %w", err)
	}
	return c, nil
}

// Register redeems code for a new user linked to telegramID.
func (s *Service) Register(ctx context.Context, code string, telegramID int64, name string) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	u := &model.User{TelegramID: telegramID, Name: name}
	err := s.store.RedeemCode(ctx, strings.TrimSpace(code), u)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("%w: unknown registration code", ErrInvalid)
	case errors.Is(err, storage.ErrCodeUsed):
		return nil, fmt.Errorf("%w: registration code already used", ErrInvalid)
	case errors.Is(err, storage.ErrDuplicate):
		return nil, fmt.Errorf("%w: account already registered", ErrInvalid)
	case err != nil:
		return nil, fmt.Errorf("redeem code: %w", err)
	}
	s.log.Info("user registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// EnsureAdmin returns the user linked to telegramID, creating it as an
// admin when absent.
func (s *Service) EnsureAdmin(ctx context.Context, telegramID int64, name string) (*model.User, error) {
	u, err := s.store.GetUserByTelegramID(ctx, telegramID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u = &model.User{TelegramID: telegramID, Name: name, Role: model.RoleAdmin}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	s.log.Info("admin provisioned", "user_id", u.ID, "telegram_id", telegramID)
	return u, nil
}

// UpdateProfile replaces the academic profile of userID.
func (s *Service) UpdateProfile(ctx context.Context, userID string, p model.Profile) error {
	if err := s.store.UpdateProfile(ctx, userID, p); err != nil {
		return notFound(err, "update profile")
	}
	return nil
}

func (s *Service) applyDraft(n *model.Notice, d Draft) error {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	category := d.Category
	if category == "" {
		category = model.CategoryAcademic
	}
	if _, ok := model.ParseCategory(string(category)); !ok {
		return fmt.Errorf("%w: unknown category %q", ErrInvalid, category)
	}

	n.Title = title
	n.Description = strings.TrimSpace(d.Description)
	n.Category = category
	n.Attachments = d.Attachments
	n.Target = d.Target
	n.IsScheduled = false
	n.ScheduledPublishDate = ""
	n.ScheduledPublishTime = ""

	if strings.TrimSpace(d.ScheduledDate) == "" {
		// A notice that is live now cannot carry a future publish time.
		if now := s.now(); n.CreatedAt.IsZero() || n.CreatedAt.After(now) {
			n.CreatedAt = now
		}
		return nil
	}

	n.IsScheduled = true
	n.ScheduledPublishDate = strings.TrimSpace(d.ScheduledDate)
	n.ScheduledPublishTime = strings.TrimSpace(d.ScheduledTime)
	at, ok := visibility.ScheduledInstant(*n, s.gate.Location)
	if !ok {
		return fmt.Errorf("%w: scheduled date must be YYYY-MM-DD", ErrInvalid)
	}
	n.CreatedAt = at.UTC()
	return nil
}

func (s *Service) now() time.Time {
	now := time.Now
	if s.gate.Now != nil {
		now = s.gate.Now
	}
	return now().UTC().Truncate(time.Second)
}

func (s *Service) visibleNotice(ctx context.Context, userID, noticeID string) (*model.User, *model.Notice, error) {
	u, err := s.User(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	n, err := s.store.GetNotice(ctx, noticeID)
	if err != nil {
		return nil, nil, notFound(err, "get notice")
	}
	if !s.gate.CanView(*n, u.Viewer()) {
		return nil, nil, fmt.Errorf("notice %s: %w", noticeID, ErrNotFound)
	}
	return u, n, nil
}

// ownedNotice loads a notice that userID may modify: its author or an admin.
func (s *Service) ownedNotice(ctx context.Context, userID, noticeID string) (*model.Notice, error) {
	u, err := s.User(ctx, userID)
	if err != nil {
		return nil, err
	}
	n, err := s.store.GetNotice(ctx, noticeID)
	if err != nil {
		return nil, notFound(err, "get notice")
	}
	if u.Role == model.RoleAdmin {
		return n, nil
	}
	if u.Role != model.RoleFaculty || n.PublishedBy != u.ID {
		return nil, fmt.Errorf("%w: only the author or an admin can change this notice", ErrForbidden)
	}
	return n, nil
}

func (s *Service) requireRole(ctx context.Context, userID string, role model.Role) error {
	u, err := s.User(ctx, userID)
	if err != nil {
		return err
	}
	if u.Role != role {
		return fmt.Errorf("%w: requires %s role", ErrForbidden, role)
	}
	return nil
}

func notFound(err error, op string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
