package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"notice_board/internal/model"
)

var ignoreUserTS = cmpopts.IgnoreFields(model.User{}, "CreatedAt")
var ignoreSourceTS = cmpopts.IgnoreFields(model.Source{}, "CreatedAt", "LastCheckAt")

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUserCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	u := model.User{
		TelegramID: 555,
		Name:       "Asha",
		Role:       model.RoleStudent,
		Profile:    model.Profile{Course: "BTech", Department: "CSE", Year: "3", RollNo: "1901001"},
	}
	if err := s.CreateUser(ctx, &u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := s.GetUserByTelegramID(ctx, 555)
	if err != nil {
		t.Fatalf("get by telegram id: %v", err)
	}
	if diff := cmp.Diff(u, *got, ignoreUserTS); diff != "" {
		t.Errorf("GetUserByTelegramID mismatch (-want +got):\n%s", diff)
	}

	profile := model.Profile{Course: "BTech", Department: "CSE", Year: "4", Semester: "7", Section: "B", Group: "G2", RollNo: "1901001"}
	if err := s.UpdateProfile(ctx, u.ID, profile); err != nil {
		t.Fatalf("update profile: %v", err)
	}
	got, err = s.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(profile, got.Profile); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}

	dup := model.User{TelegramID: 555, Name: "Again", Role: model.RoleStudent}
	if err := s.CreateUser(ctx, &dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	if _, err := s.GetUser(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateProfile(ctx, "missing", profile); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on update, got %v", err)
	}
}

func TestNoticeRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	n := model.Notice{
		Title:                "Mid-sem exam schedule",
		Description:          "Timetable attached",
		Category:             model.CategoryExam,
		PublishedBy:          "fac-1",
		PublishedByName:      "Dr. Rao",
		CreatedAt:            time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC),
		IsPinned:             true,
		IsScheduled:          true,
		ScheduledPublishDate: "2026-10-20",
		ScheduledPublishTime: "09:00",
		Attachments:          []model.Attachment{{Name: "timetable.pdf", URL: "https://files.example.edu/t.pdf", Kind: model.AttachmentPDF}},
		Target: model.Target{
			Departments:         []string{"CSE", "IT"},
			Years:               []string{"3"},
			SpecificRollNumbers: []string{"1901099"},
		},
	}
	if err := s.CreateNotice(ctx, &n); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetNotice(ctx, n.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(n, *got); diff != "" {
		t.Errorf("GetNotice mismatch (-want +got):\n%s", diff)
	}

	n.Title = "Mid-sem exam schedule (revised)"
	n.IsPinned = false
	n.Target = model.Target{}
	if err := s.UpdateNotice(ctx, &n); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = s.GetNotice(ctx, n.ID)
	if diff := cmp.Diff(n, *got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("after update (-want +got):\n%s", diff)
	}

	if err := s.DeleteNotice(ctx, n.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetNotice(ctx, n.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteNotice(ctx, n.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListNoticesByRole(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	for i, owner := range []string{"fac-1", "fac-2", "fac-1"} {
		n := model.Notice{
			ID:          []string{"a", "b", "c"}[i],
			Title:       "notice",
			Category:    model.CategoryAcademic,
			PublishedBy: owner,
			CreatedAt:   base.AddDate(0, 0, i),
		}
		if err := s.CreateNotice(ctx, &n); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	tests := []struct {
		name  string
		role  model.Role
		owner string
		want  []string
	}{
		{name: "student gets everything", role: model.RoleStudent, want: []string{"c", "b", "a"}},
		{name: "admin gets everything", role: model.RoleAdmin, want: []string{"c", "b", "a"}},
		{name: "faculty gets own", role: model.RoleFaculty, owner: "fac-1", want: []string{"c", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notices, err := s.ListNotices(ctx, tt.role, tt.owner)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			var got []string
			for _, n := range notices {
				got = append(got, n.ID)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ListNotices mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadMarkersIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if err := s.MarkRead(ctx, "u1", "n1"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	first, err := s.ReadMarkers(ctx, "u1")
	if err != nil {
		t.Fatalf("markers: %v", err)
	}

	if err := s.MarkRead(ctx, "u1", "n1"); err != nil {
		t.Fatalf("mark read again: %v", err)
	}
	if err := s.MarkRead(ctx, "u2", "n1"); err != nil {
		t.Fatalf("mark read other user: %v", err)
	}

	second, _ := s.ReadMarkers(ctx, "u1")
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("markers changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(1, len(second)); diff != "" {
		t.Errorf("marker count (-want +got):\n%s", diff)
	}
}

func TestFavouritesOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	for _, id := range []string{"n3", "n1", "n2"} {
		if err := s.SetFavourite(ctx, "u1", id, true); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}
	_ = s.SetFavourite(ctx, "u1", "n1", true)
	_ = s.SetFavourite(ctx, "u1", "n3", false)
	_ = s.SetFavourite(ctx, "u1", "n3", true)
	_ = s.SetFavourite(ctx, "u1", "missing", false)

	got, err := s.Favourites(ctx, "u1")
	if err != nil {
		t.Fatalf("favourites: %v", err)
	}
	if diff := cmp.Diff([]string{"n1", "n2", "n3"}, got); diff != "" {
		t.Errorf("Favourites mismatch (-want +got):\n%s", diff)
	}
}

func TestFavouritesOrderByCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	rows := []struct{ id, at string }{
		{"n2", "2026-10-15T10:00:00Z"},
		{"n1", "2026-10-15T09:00:00Z"},
		{"n3", "2026-10-15T10:00:00Z"},
	}
	for _, r := range rows {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO favourites (user_id, notice_id, created_at) VALUES (?, ?, ?)`, "u1", r.id, r.at,
		); err != nil {
			t.Fatalf("insert %s: %v", r.id, err)
		}
	}
	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		t.Fatalf("vacuum: %v", err)
	}

	got, err := s.Favourites(ctx, "u1")
	if err != nil {
		t.Fatalf("favourites: %v", err)
	}
	if diff := cmp.Diff([]string{"n1", "n2", "n3"}, got); diff != "" {
		t.Errorf("Favourites mismatch (-want +got):\n%s", diff)
	}
}

func TestReports(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	r := model.Report{NoticeID: "n1", UserID: "u1", Reason: "spam"}
	if err := s.CreateReport(ctx, &r); err != nil {
		t.Fatalf("create: %v", err)
	}
	again := model.Report{NoticeID: "n1", UserID: "u1", Reason: "spam again"}
	if err := s.CreateReport(ctx, &again); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	got, err := s.ListReports(ctx, "n1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]model.Report{r}, got, cmpopts.IgnoreFields(model.Report{}, "CreatedAt")); diff != "" {
		t.Errorf("ListReports mismatch (-want +got):\n%s", diff)
	}
}

func TestRedeemCode(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	code := model.RegistrationCode{Code: "abc-123", Role: model.RoleFaculty, CreatedBy: "adm"}
	if err := s.CreateCode(ctx, &code); err != nil {
		t.Fatalf("create code: %v", err)
	}

	u := model.User{TelegramID: 42, Name: "Dr. Rao", Role: model.RoleStudent}
	if err := s.RedeemCode(ctx, "abc-123", &u); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if diff := cmp.Diff(model.RoleFaculty, u.Role); diff != "" {
		t.Errorf("role (-want +got):\n%s", diff)
	}
	stored, err := s.GetUserByTelegramID(ctx, 42)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if diff := cmp.Diff(model.RoleFaculty, stored.Role); diff != "" {
		t.Errorf("stored role (-want +got):\n%s", diff)
	}

	other := model.User{TelegramID: 43, Name: "Someone"}
	if err := s.RedeemCode(ctx, "abc-123", &other); !errors.Is(err, ErrCodeUsed) {
		t.Errorf("expected ErrCodeUsed, got %v", err)
	}
	if _, err := s.GetUserByTelegramID(ctx, 43); !errors.Is(err, ErrNotFound) {
		t.Errorf("user should not be created on failed redeem, got %v", err)
	}
	if err := s.RedeemCode(ctx, "nope", &other); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRedeemCodeRollsBackOnDuplicateUser(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	existing := model.User{TelegramID: 7, Name: "Existing", Role: model.RoleStudent}
	if err := s.CreateUser(ctx, &existing); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := s.CreateCode(ctx, &model.RegistrationCode{Code: "c1", Role: model.RoleAdmin, CreatedBy: "x"}); err != nil {
		t.Fatalf("create code: %v", err)
	}

	dup := model.User{TelegramID: 7, Name: "Existing"}
	if err := s.RedeemCode(ctx, "c1", &dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	fresh := model.User{TelegramID: 8, Name: "Fresh"}
	if err := s.RedeemCode(ctx, "c1", &fresh); err != nil {
		t.Errorf("code should still be redeemable: %v", err)
	}
}

func TestSourceCRUDAndDue(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	src := model.Source{Name: "University News", URL: "https://uni.example.edu/rss", Category: model.CategoryImportant, IsActive: true}
	if err := s.CreateSource(ctx, &src); err != nil {
		t.Fatalf("create: %v", err)
	}
	paused := model.Source{Name: "Paused", URL: "https://p.example.edu/rss", Category: model.CategoryAcademic, IsActive: false}
	if err := s.CreateSource(ctx, &paused); err != nil {
		t.Fatalf("create paused: %v", err)
	}

	got, err := s.GetSource(ctx, src.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(src, *got, ignoreSourceTS); diff != "" {
		t.Errorf("GetSource mismatch (-want +got):\n%s", diff)
	}

	due, err := s.ListDueSources(ctx, 15*time.Minute)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if diff := cmp.Diff(1, len(due)); diff != "" {
		t.Fatalf("due count (-want +got):\n%s", diff)
	}

	now := time.Now().UTC()
	src.LastCheckAt = &now
	if err := s.UpdateSource(ctx, &src); err != nil {
		t.Fatalf("update: %v", err)
	}
	due, _ = s.ListDueSources(ctx, 15*time.Minute)
	if diff := cmp.Diff(0, len(due)); diff != "" {
		t.Errorf("recently checked source should not be due (-want +got):\n%s", diff)
	}

	if err := s.MarkSourceItemSeen(ctx, src.ID, "guid-1"); err != nil {
		t.Fatalf("mark seen: %v", err)
	}
	_ = s.MarkSourceItemSeen(ctx, src.ID, "guid-1")
	seen, err := s.IsSourceItemSeen(ctx, src.ID, "guid-1")
	if err != nil || !seen {
		t.Errorf("IsSourceItemSeen = %v, %v; want true", seen, err)
	}

	if err := s.DeleteSource(ctx, src.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	seen, _ = s.IsSourceItemSeen(ctx, src.ID, "guid-1")
	if seen {
		t.Error("seen items should be removed with the source")
	}
	all, _ := s.ListSources(ctx)
	if diff := cmp.Diff(1, len(all)); diff != "" {
		t.Errorf("sources left (-want +got):\n%s", diff)
	}
}
