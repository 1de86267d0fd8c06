package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/xid"
	_ "modernc.org/sqlite" // SQLite driver registration.

	"notice_board/internal/model"
	"notice_board/internal/readstate"
	"notice_board/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=OFF"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("disable foreign keys: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func nowString() string {
	return time.Now().UTC().Format(timeLayout)
}

// --- users ---

const userColumns = `id, telegram_id, name, role, course, department, year, semester, section, grp, roll_no, created_at`

// CreateUser inserts a new user and populates its ID and CreatedAt.
func (s *SQLite) CreateUser(ctx context.Context, u *model.User) error {
	return createUser(ctx, s.db, u)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func createUser(ctx context.Context, db execer, u *model.User) error {
	if u.ID == "" {
		u.ID = xid.New().String()
	}
	now := nowString()
	p := u.Profile
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.TelegramID, u.Name, string(u.Role),
		p.Course, p.Department, p.Year, p.Semester, p.Section, p.Group, p.RollNo, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user: %w", ErrDuplicate)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetUser returns a user by ID.
func (s *SQLite) GetUser(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByTelegramID returns the user linked to a Telegram account.
func (s *SQLite) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = ?`, telegramID)
	return scanUser(row)
}

// UpdateProfile replaces the academic profile of a user.
func (s *SQLite) UpdateProfile(ctx context.Context, userID string, p model.Profile) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET course = ?, department = ?, year = ?, semester = ?, section = ?, grp = ?, roll_no = ?
		 WHERE id = ?`,
		p.Course, p.Department, p.Year, p.Semester, p.Section, p.Group, p.RollNo, userID,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return requireAffected(res, "update profile")
}

// --- notices ---

const noticeColumns = `id, title, description, category, published_by, published_by_name, created_at,
	is_pinned, is_scheduled, scheduled_date, scheduled_time, attachments, target`

// CreateNotice inserts a notice. ID is generated when empty and CreatedAt
// defaults to now when zero.
func (s *SQLite) CreateNotice(ctx context.Context, n *model.Notice) error {
	if n.ID == "" {
		n.ID = xid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	attachments, target, err := encodeNoticeJSON(n)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notices (`+noticeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.Description, string(n.Category), n.PublishedBy, n.PublishedByName,
		n.CreatedAt.UTC().Format(timeLayout), boolToInt(n.IsPinned), boolToInt(n.IsScheduled),
		n.ScheduledPublishDate, n.ScheduledPublishTime, attachments, target,
	)
	if err != nil {
		return fmt.Errorf("insert notice: %w", err)
	}
	return nil
}

// GetNotice returns a notice by ID.
func (s *SQLite) GetNotice(ctx context.Context, id string) (*model.Notice, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+noticeColumns+` FROM notices WHERE id = ?`, id)
	return scanNotice(row)
}

// ListNotices returns candidate notices for role, newest first.
func (s *SQLite) ListNotices(ctx context.Context, role model.Role, ownerID string) ([]model.Notice, error) {
	query := `SELECT ` + noticeColumns + ` FROM notices`
	var args []any
	if role == model.RoleFaculty {
		query += ` WHERE published_by = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY created_at DESC, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var notices []model.Notice
	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			return nil, err
		}
		notices = append(notices, *n)
	}
	return notices, rows.Err()
}

// UpdateNotice persists the mutable fields of a notice.
func (s *SQLite) UpdateNotice(ctx context.Context, n *model.Notice) error {
	attachments, target, err := encodeNoticeJSON(n)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE notices SET title = ?, description = ?, category = ?, created_at = ?, is_pinned = ?,
		        is_scheduled = ?, scheduled_date = ?, scheduled_time = ?, attachments = ?, target = ?
		 WHERE id = ?`,
		n.Title, n.Description, string(n.Category), n.CreatedAt.UTC().Format(timeLayout),
		boolToInt(n.IsPinned), boolToInt(n.IsScheduled), n.ScheduledPublishDate, n.ScheduledPublishTime,
		attachments, target, n.ID,
	)
	if err != nil {
		return fmt.Errorf("update notice: %w", err)
	}
	return requireAffected(res, "update notice")
}

// DeleteNotice removes a notice and its reports. Read markers and
// favourites referring to it are left in place.
func (s *SQLite) DeleteNotice(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE notice_id = ?`, id); err != nil {
		return fmt.Errorf("delete reports: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM notices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete notice: %w", err)
	}
	if err := requireAffected(res, "delete notice"); err != nil {
		return err
	}
	return tx.Commit()
}

// --- read markers ---

// ReadMarkers returns every read marker of userID.
func (s *SQLite) ReadMarkers(ctx context.Context, userID string) (readstate.Markers, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT notice_id, read_at FROM read_markers WHERE user_id = ?`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query read markers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	m := readstate.Markers{}
	for rows.Next() {
		var noticeID, readAt string
		if err := rows.Scan(&noticeID, &readAt); err != nil {
			return nil, fmt.Errorf("scan read marker: %w", err)
		}
		m[noticeID], _ = time.Parse(timeLayout, readAt)
	}
	return m, rows.Err()
}

// MarkRead records a read marker unless one exists already.
func (s *SQLite) MarkRead(ctx context.Context, userID, noticeID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO read_markers (user_id, notice_id, read_at) VALUES (?, ?, ?)`,
		userID, noticeID, nowString(),
	)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// --- favourites ---

// Favourites returns the favourited notice IDs of userID in favouriting order.
func (s *SQLite) Favourites(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT notice_id FROM favourites WHERE user_id = ? ORDER BY created_at, rowid`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query favourites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan favourite: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetFavourite adds or removes a favourite. Both directions are idempotent.
func (s *SQLite) SetFavourite(ctx context.Context, userID, noticeID string, favourite bool) error {
	var err error
	if favourite {
		_, err = s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO favourites (user_id, notice_id, created_at) VALUES (?, ?, ?)`,
			userID, noticeID, nowString(),
		)
	} else {
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM favourites WHERE user_id = ? AND notice_id = ?`, userID, noticeID,
		)
	}
	if err != nil {
		return fmt.Errorf("set favourite: %w", err)
	}
	return nil
}

// --- reports ---

// CreateReport inserts a report. A user may report a notice once.
func (s *SQLite) CreateReport(ctx context.Context, r *model.Report) error {
	now := nowString()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (notice_id, user_id, reason, created_at) VALUES (?, ?, ?, ?)`,
		r.NoticeID, r.UserID, r.Reason, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert report: %w", ErrDuplicate)
		}
		return fmt.Errorf("insert report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	r.ID = id
	r.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// ListReports returns the reports filed against a notice.
func (s *SQLite) ListReports(ctx context.Context, noticeID string) ([]model.Report, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, notice_id, user_id, reason, created_at FROM reports WHERE notice_id = ? ORDER BY id`, noticeID,
	)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reports []model.Report
	for rows.Next() {
		var r model.Report
		var created string
		if err := rows.Scan(&r.ID, &r.NoticeID, &r.UserID, &r.Reason, &created); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		r.CreatedAt, _ = time.Parse(timeLayout, created)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// --- registration codes ---

// CreateCode stores a new registration code.
func (s *SQLite) CreateCode(ctx context.Context, c *model.RegistrationCode) error {
	now := nowString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO registration_codes (code, role, created_by, created_at) VALUES (?, ?, ?, ?)`,
		c.Code, string(c.Role), c.CreatedBy, now,
	)
	if err != nil {
		return fmt.Errorf("insert code: %w", err)
	}
	c.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// RedeemCode marks code as used by u and inserts u with the code's role in
// one transaction. A code can be redeemed exactly once.
func (s *SQLite) RedeemCode(ctx context.Context, code string, u *model.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var role string
	var usedBy sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT role, used_by FROM registration_codes WHERE code = ?`, code,
	).Scan(&role, &usedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("query code: %w", err)
	}
	if usedBy.Valid {
		return ErrCodeUsed
	}

	if u.ID == "" {
		u.ID = xid.New().String()
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE registration_codes SET used_by = ?, used_at = ? WHERE code = ? AND used_by IS NULL`,
		u.ID, nowString(), code,
	)
	if err != nil {
		return fmt.Errorf("redeem code: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return ErrCodeUsed
	}

	u.Role = model.Role(role)
	if err := createUser(ctx, tx, u); err != nil {
		return err
	}
	return tx.Commit()
}

// --- sources ---

const sourceColumns = `id, name, url, category, is_active, last_check_at, created_at`

// CreateSource inserts a new import source and populates its ID and CreatedAt.
func (s *SQLite) CreateSource(ctx context.Context, src *model.Source) error {
	now := nowString()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (name, url, category, is_active, created_at) VALUES (?, ?, ?, ?, ?)`,
		src.Name, src.URL, string(src.Category), boolToInt(src.IsActive), now,
	)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	src.ID = id
	src.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetSource returns a single source by its ID.
func (s *SQLite) GetSource(ctx context.Context, id int64) (*model.Source, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)
	return scanSource(row)
}

// ListSources returns all import sources.
func (s *SQLite) ListSources(ctx context.Context) ([]model.Source, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSources(rows)
}

// ListDueSources returns active sources not checked within interval.
func (s *SQLite) ListDueSources(ctx context.Context, interval time.Duration) ([]model.Source, error) {
	threshold := time.Now().UTC().Add(-interval).Format(timeLayout)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sourceColumns+`
		 FROM sources
		 WHERE is_active = 1
		   AND (last_check_at IS NULL OR datetime(last_check_at) <= datetime(?))
		 ORDER BY id`,
		threshold,
	)
	if err != nil {
		return nil, fmt.Errorf("query due sources: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSources(rows)
}

// UpdateSource persists changes to an existing source.
func (s *SQLite) UpdateSource(ctx context.Context, src *model.Source) error {
	var lastCheck *string
	if src.LastCheckAt != nil {
		v := src.LastCheckAt.UTC().Format(timeLayout)
		lastCheck = &v
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE sources SET name = ?, url = ?, category = ?, is_active = ?, last_check_at = ? WHERE id = ?`,
		src.Name, src.URL, string(src.Category), boolToInt(src.IsActive), lastCheck, src.ID,
	)
	if err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	return nil
}

// DeleteSource removes a source and its seen items. Notices already
// imported from it stay published.
func (s *SQLite) DeleteSource(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM source_items WHERE source_id = ?`, id); err != nil {
		return fmt.Errorf("delete source_items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	return tx.Commit()
}

// MarkSourceItemSeen records that an RSS item has been imported.
func (s *SQLite) MarkSourceItemSeen(ctx context.Context, sourceID int64, guid string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO source_items (source_id, guid) VALUES (?, ?)`,
		sourceID, guid,
	)
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

// IsSourceItemSeen checks whether an RSS item has already been imported.
func (s *SQLite) IsSourceItemSeen(ctx context.Context, sourceID int64, guid string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM source_items WHERE source_id = ? AND guid = ?`,
		sourceID, guid,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check seen: %w", err)
	}
	return count > 0, nil
}

// --- helpers ---

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

func encodeNoticeJSON(n *model.Notice) (string, string, error) {
	attachments := n.Attachments
	if attachments == nil {
		attachments = []model.Attachment{}
	}
	a, err := json.Marshal(attachments)
	if err != nil {
		return "", "", fmt.Errorf("encode attachments: %w", err)
	}
	t, err := json.Marshal(n.Target)
	if err != nil {
		return "", "", fmt.Errorf("encode target: %w", err)
	}
	return string(a), string(t), nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanUser(row scannable) (*model.User, error) {
	var u model.User
	var role, created string
	p := &u.Profile
	err := row.Scan(&u.ID, &u.TelegramID, &u.Name, &role,
		&p.Course, &p.Department, &p.Year, &p.Semester, &p.Section, &p.Group, &p.RollNo, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Role = model.Role(role)
	u.CreatedAt, _ = time.Parse(timeLayout, created)
	return &u, nil
}

func scanNotice(row scannable) (*model.Notice, error) {
	var n model.Notice
	var category, created, attachments, target string
	var pinned, scheduled int
	err := row.Scan(&n.ID, &n.Title, &n.Description, &category, &n.PublishedBy, &n.PublishedByName, &created,
		&pinned, &scheduled, &n.ScheduledPublishDate, &n.ScheduledPublishTime, &attachments, &target)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan notice: %w", err)
	}
	n.Category = model.Category(category)
	n.CreatedAt, _ = time.Parse(timeLayout, created)
	n.IsPinned = pinned == 1
	n.IsScheduled = scheduled == 1
	if attachments != "" {
		if err := json.Unmarshal([]byte(attachments), &n.Attachments); err != nil {
			return nil, fmt.Errorf("decode attachments of %s: %w", n.ID, err)
		}
	}
	// A target that fails to decode is treated as global.
	if target != "" {
		_ = json.Unmarshal([]byte(target), &n.Target)
	}
	return &n, nil
}

func scanSource(row scannable) (*model.Source, error) {
	var src model.Source
	var category string
	var isActive int
	var lastCheck, created sql.NullString
	err := row.Scan(&src.ID, &src.Name, &src.URL, &category, &isActive, &lastCheck, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan source: %w", err)
	}
	src.Category = model.Category(category)
	src.IsActive = isActive == 1
	if lastCheck.Valid {
		t, _ := time.Parse(timeLayout, lastCheck.String)
		src.LastCheckAt = &t
	}
	if created.Valid {
		src.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &src, nil
}

func scanSources(rows *sql.Rows) ([]model.Source, error) {
	var sources []model.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *src)
	}
	return sources, rows.Err()
}
