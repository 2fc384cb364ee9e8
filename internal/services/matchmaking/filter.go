package matchmaking

import (
	"sort"

	"github.com/jwren/castellan/internal/model"
)

// VisibleToViewer reports whether a session should appear in the given
// viewer's game list. A session is hidden when its owner has blocked the
// viewer, or the viewer has blocked any seated player. Computed fresh per
// broadcast; block lists change between broadcasts.
func VisibleToViewer(session *model.Session, viewer *model.UserDetails) bool {
	if viewer == nil {
		return true
	}
	if session.OwnerHasBlocked(viewer.Username) {
		return false
	}
	for _, name := range session.ActivePlayerNames() {
		if viewer.HasBlocked(name) {
			return false
		}
	}
	return true
}

// GameListForViewer builds the per-viewer game list: block-list filtered,
// pending games first, newest first within each bucket.
func GameListForViewer(sessions []*model.Session, viewer *model.UserDetails) []model.SessionSummary {
	var visible []*model.Session
	for _, s := range sessions {
		if VisibleToViewer(s, viewer) {
			visible = append(visible, s)
		}
	}

	summaries := make([]model.SessionSummary, 0, len(visible))
	for _, s := range visible {
		summaries = append(summaries, s.Summary(""))
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].Started != summaries[j].Started {
			return !summaries[i].Started
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	return summaries
}

// UserListForViewer drops users the viewer has blocked from a user-list
// snapshot
func UserListForViewer(users []model.UserSummary, viewer *model.UserDetails) []model.UserSummary {
	if viewer == nil {
		return users
	}
	filtered := make([]model.UserSummary, 0, len(users))
	for _, u := range users {
		if viewer.HasBlocked(u.Username) {
			continue
		}
		filtered = append(filtered, u)
	}
	return filtered
}
