package bot

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"notice_board/internal/audience"
	"notice_board/internal/model"
)

const (
	statusActive = "active"
	statusPaused = "paused"

	displayLayout = "2006-01-02 15:04"
	maxFeedItems  = 20
	maxButtons    = 8
)

// FormatFeed formats a feed listing under header.
func FormatFeed(header string, items []model.FeedNotice, loc *time.Location) string {
	if len(items) == 0 {
		return header + "\n\nNo notices to show."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d):\n", header, len(items))
	for i, n := range items {
		if i == maxFeedItems {
			fmt.Fprintf(&b, "\n...and %d more. Narrow with /feed <category> or /search <text>.\n", len(items)-maxFeedItems)
			break
		}
		fmt.Fprintf(&b, "\n%d. %s%s\n", i+1, badges(n), n.Title)
		fmt.Fprintf(&b, "   %s | %s | %s\n", n.Category, n.PublishedByName, n.CreatedAt.In(loc).Format(displayLayout))
		fmt.Fprintf(&b, "   /open %s\n", n.ID)
	}
	return b.String()
}

// FormatNotice formats the full view of a single notice.
func FormatNotice(n model.FeedNotice, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s\n", badges(n), n.Title)
	fmt.Fprintf(&b, "%s | by %s\n", n.Category, n.PublishedByName)
	if n.IsScheduled {
		fmt.Fprintf(&b, "Scheduled for %s\n", n.CreatedAt.In(loc).Format(displayLayout))
	} else {
		fmt.Fprintf(&b, "Published %s\n", n.CreatedAt.In(loc).Format(displayLayout))
	}
	fmt.Fprintf(&b, "For: %s\n", FormatAudience(n.Target))
	if n.Description != "" {
		b.WriteString("\n")
		b.WriteString(n.Description)
		b.WriteString("\n")
	}
	if len(n.Attachments) > 0 {
		b.WriteString("\nAttachments:\n")
		for _, a := range n.Attachments {
			fmt.Fprintf(&b, "  %s (%s): %s\n", a.Name, a.Kind, a.URL)
		}
	}
	fmt.Fprintf(&b, "\nID: %s", n.ID)
	return b.String()
}

// FormatAudience summarises a notice target.
func FormatAudience(t model.Target) string {
	if audience.IsGlobal(t) {
		return "everyone"
	}
	var parts []string
	add := func(label string, values []string) {
		if len(values) > 0 {
			parts = append(parts, label+" "+strings.Join(values, ", "))
		}
	}
	add("course", t.Courses)
	add("dept", t.Departments)
	add("year", t.Years)
	add("sem", t.Semesters)
	add("section", t.Sections)
	add("group", t.Groups)
	add("roll no", t.SpecificRollNumbers)
	return strings.Join(parts, "; ")
}

// FormatProfile formats a user's account details.
func FormatProfile(u *model.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", u.Name, u.Role)
	if u.Role != model.RoleStudent {
		return b.String()
	}
	p := u.Profile
	for _, row := range [][2]string{
		{"Course", p.Course},
		{"Department", p.Department},
		{"Year", p.Year},
		{"Semester", p.Semester},
		{"Section", p.Section},
		{"Group", p.Group},
		{"Roll no", p.RollNo},
	} {
		value := row[1]
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(&b, "%s: %s\n", row[0], value)
	}
	return b.String()
}

// FormatSourceList formats the registered import sources.
func FormatSourceList(sources []model.Source) string {
	if len(sources) == 0 {
		return "No import sources yet. Use /addsource <url> [category] to add one."
	}
	var b strings.Builder
	b.WriteString("Import sources:\n")
	for _, s := range sources {
		status := statusActive
		if !s.IsActive {
			status = statusPaused
		}
		fmt.Fprintf(&b, "\n#%d %s [%s] (%s)\n", s.ID, s.Name, s.Category, status)
		fmt.Fprintf(&b, "   %s\n", s.URL)
		if s.LastCheckAt != nil {
			fmt.Fprintf(&b, "   last check: %s\n", s.LastCheckAt.Format("2006-01-02 15:04 UTC"))
		}
	}
	return b.String()
}

// FormatReports formats the complaints filed against a notice.
func FormatReports(noticeID string, reports []model.Report) string {
	if len(reports) == 0 {
		return fmt.Sprintf("No reports for notice %s.", noticeID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Reports for notice %s:\n", noticeID)
	for _, r := range reports {
		fmt.Fprintf(&b, "\n%s  %s\n", r.CreatedAt.Format("2006-01-02 15:04 UTC"), r.Reason)
	}
	return b.String()
}

func badges(n model.FeedNotice) string {
	var b strings.Builder
	if n.IsPinned {
		b.WriteString("[PINNED] ")
	}
	if !n.IsRead {
		b.WriteString("[NEW] ")
	}
	if n.IsFavourite {
		b.WriteString("* ")
	}
	return b.String()
}

func feedKeyboard(items []model.FeedNotice) *tgbotapi.InlineKeyboardMarkup {
	if len(items) == 0 {
		return nil
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, n := range items {
		if i == maxButtons {
			break
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Open %d", i+1), cmdOpen+":"+n.ID))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func noticeKeyboard(n model.FeedNotice) tgbotapi.InlineKeyboardMarkup {
	label := "Add to favourites"
	if n.IsFavourite {
		label = "Remove from favourites"
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cmdFav+":"+n.ID),
		),
	)
}
