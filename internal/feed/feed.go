// Package feed assembles the notice list shown to a viewer.
package feed

import (
	"slices"
	"strings"

	"github.com/samber/lo"

	"notice_board/internal/favourites"
	"notice_board/internal/model"
	"notice_board/internal/readstate"
	"notice_board/internal/visibility"
)

// Options narrows a feed.
type Options struct {
	SearchText     string
	Category       string
	FavouritesOnly bool
}

// ViewerState is the per-user state a feed is decorated with.
type ViewerState struct {
	Read       readstate.Markers
	Favourites favourites.Set
}

// Builder runs the feed pipeline. It performs no I/O.
type Builder struct {
	Gate *visibility.Gate
}

// New creates a Builder around gate.
func New(gate *visibility.Gate) *Builder {
	return &Builder{Gate: gate}
}

// Build returns the notices viewer may see, narrowed by opts, pinned first
// and newest first, each decorated with read and favourite state. Notices
// with equal pin state and timestamp keep their input order.
func (b *Builder) Build(notices []model.Notice, viewer model.Viewer, state ViewerState, opts Options) []model.FeedNotice {
	visible := b.Gate.VisibleNotices(notices, viewer)

	if opts.FavouritesOnly {
		visible = favourites.Resolve(state.Favourites, visible)
	}

	if c := strings.TrimSpace(opts.Category); c != "" && !strings.EqualFold(c, model.CategoryAll) {
		visible = lo.Filter(visible, func(n model.Notice, _ int) bool {
			return strings.EqualFold(string(n.Category), c)
		})
	}

	if q := strings.TrimSpace(opts.SearchText); q != "" {
		q = strings.ToLower(q)
		visible = lo.Filter(visible, func(n model.Notice, _ int) bool {
			return MatchesSearch(n, q)
		})
	}

	Sort(visible)

	out := readstate.Decorate(visible, state.Read)
	for i := range out {
		out[i].IsFavourite = state.Favourites.Contains(out[i].ID)
	}
	return out
}

// MatchesSearch reports whether the title or the description of n contains
// the lower-cased query.
func MatchesSearch(n model.Notice, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(n.Title), lowerQuery) ||
		strings.Contains(strings.ToLower(n.Description), lowerQuery)
}

// Sort orders notices pinned first, then by CreatedAt descending. The sort
// is stable.
func Sort(notices []model.Notice) {
	slices.SortStableFunc(notices, func(a, b model.Notice) int {
		if a.IsPinned != b.IsPinned {
			if a.IsPinned {
				return -1
			}
			return 1
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
