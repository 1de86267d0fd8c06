package favourites

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samber/lo"

	"notice_board/internal/model"
)

type memStore struct {
	lists map[string][]string
	err   error
}

func (s *memStore) Favourites(_ context.Context, userID string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]string(nil), s.lists[userID]...), nil
}

func (s *memStore) SetFavourite(_ context.Context, userID, noticeID string, favourite bool) error {
	if s.err != nil {
		return s.err
	}
	list := lo.Without(s.lists[userID], noticeID)
	if favourite {
		list = append(list, noticeID)
	}
	s.lists[userID] = list
	return nil
}

func TestSetToggle(t *testing.T) {
	tests := []struct {
		name string
		set  Set
		id   string
		want Set
	}{
		{name: "add to empty", set: nil, id: "a", want: Set{"a"}},
		{name: "append keeps order", set: Set{"a", "b"}, id: "c", want: Set{"a", "b", "c"}},
		{name: "remove from middle", set: Set{"a", "b", "c"}, id: "b", want: Set{"a", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.set.Toggle(tt.id)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Toggle() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSetToggleTwiceRestores(t *testing.T) {
	for _, start := range []Set{{}, {"x"}, {"x", "y"}} {
		got := start.Toggle("y").Toggle("y")
		if diff := cmp.Diff(start.Contains("y"), got.Contains("y")); diff != "" {
			t.Errorf("start %v: state not restored (-want +got):\n%s", start, diff)
		}
	}
}

func TestSetToggleDoesNotModifyReceiver(t *testing.T) {
	s := make(Set, 2, 8)
	s[0], s[1] = "a", "b"
	_ = s.Toggle("c")
	_ = s.Toggle("a")
	if diff := cmp.Diff(Set{"a", "b"}, s); diff != "" {
		t.Errorf("receiver modified (-want +got):\n%s", diff)
	}
}

func TestResolve(t *testing.T) {
	notices := []model.Notice{{ID: "n1"}, {ID: "n2"}, {ID: "n3"}}

	got := Resolve(Set{"n3", "gone", "n1"}, notices)
	want := []model.Notice{{ID: "n3"}, {ID: "n1"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestIndex(t *testing.T) {
	ctx := context.Background()
	store := &memStore{lists: map[string][]string{}}
	x := NewIndex(store)

	set, err := x.Toggle(ctx, "u1", "n1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if diff := cmp.Diff(Set{"n1"}, set); diff != "" {
		t.Errorf("after add (-want +got):\n%s", diff)
	}

	fav, err := x.IsFavourite(ctx, "u1", "n1")
	if err != nil || !fav {
		t.Fatalf("IsFavourite = %v, %v; want true", fav, err)
	}

	set, err = x.Toggle(ctx, "u1", "n1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if diff := cmp.Diff(0, len(set)); diff != "" {
		t.Errorf("after remove (-want +got):\n%s", diff)
	}

	fav, _ = x.IsFavourite(ctx, "u1", "n1")
	if fav {
		t.Error("expected n1 to be removed")
	}
}

func TestIndexResolveDropsDangling(t *testing.T) {
	ctx := context.Background()
	store := &memStore{lists: map[string][]string{"u1": {"n2", "deleted", "n1"}}}
	x := NewIndex(store)

	got, err := x.Resolve(ctx, "u1", []model.Notice{{ID: "n1"}, {ID: "n2"}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if diff := cmp.Diff([]model.Notice{{ID: "n2"}, {ID: "n1"}}, got); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestIndexStoreError(t *testing.T) {
	x := NewIndex(&memStore{err: errors.New("locked")})
	if _, err := x.Toggle(context.Background(), "u1", "n1"); err == nil {
		t.Error("expected error")
	}
}
