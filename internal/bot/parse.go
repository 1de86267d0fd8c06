package bot

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/samber/lo"

	"notice_board/internal/board"
	"notice_board/internal/model"
)

// ParseNoticeArg extracts a notice ID from a command argument string.
func ParseNoticeArg(args string) (string, error) {
	id, _ := nextToken(args)
	if id == "" {
		return "", fmt.Errorf("notice ID is required")
	}
	return id, nil
}

// ParseIDArg extracts a numeric source ID from a command argument string.
func ParseIDArg(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("source ID is required")
	}
	id, err := strconv.ParseInt(strings.Fields(s)[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid source ID %q", s)
	}
	return id, nil
}

// ParseRegisterArgs extracts a registration code and display name.
func ParseRegisterArgs(args string) (string, string, error) {
	code, name := nextToken(args)
	if code == "" || name == "" {
		return "", "", fmt.Errorf("usage: /register <code> <your name>")
	}
	return code, name, nil
}

// ParseReportArgs extracts a notice ID and a free-text reason.
func ParseReportArgs(args string) (string, string, error) {
	id, reason := nextToken(args)
	if id == "" || reason == "" {
		return "", "", fmt.Errorf("usage: /report <id> <reason>")
	}
	return id, reason, nil
}

// ParseAddSourceArgs extracts a feed URL and an optional category.
// Format: <url> [category]
func ParseAddSourceArgs(args string) (string, model.Category, error) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		return "", "", fmt.Errorf("usage: /addsource <url> [category]")
	}
	category := model.CategoryImportant
	if len(parts) > 1 {
		c, ok := model.ParseCategory(parts[1])
		if !ok {
			return "", "", unknownCategory(parts[1])
		}
		category = c
	}
	return parts[0], category, nil
}

// ParseProfileArgs applies profile flags to base.
// Format: [-course X] [-dept X] [-year X] [-sem X] [-sec X] [-group X] [-roll X]
func ParseProfileArgs(args string, base model.Profile) (model.Profile, error) {
	p := base
	parts := strings.Fields(args)
	if len(parts) == 0 || len(parts)%2 != 0 {
		return model.Profile{}, fmt.Errorf("usage: /profile -course <course> -dept <dept> -year <year> -sem <sem> -sec <section> -group <group> -roll <roll no>")
	}
	for i := 0; i < len(parts); i += 2 {
		field := profileField(&p, parts[i])
		if field == nil {
			return model.Profile{}, fmt.Errorf("unknown flag %q", parts[i])
		}
		*field = parts[i+1]
	}
	return p, nil
}

// ParsePostArgs parses the arguments of /post.
// Format: [flags] <title> | <description>
//
// Flags: -cat <category>, -pin, -at <YYYY-MM-DD> [HH:MM], -file <url>, and
// the audience flags -course, -dept, -year, -sem, -sec, -group, -roll taking
// comma-separated values.
func ParsePostArgs(args string) (board.Draft, error) {
	var d board.Draft
	rest := strings.TrimSpace(args)

	for strings.HasPrefix(rest, "-") {
		var flag, value string
		flag, rest = nextToken(rest)

		switch flag {
		case "-pin":
			d.Pinned = true
			continue
		case "-at":
			value, rest = nextToken(rest)
			if value == "" {
				return board.Draft{}, fmt.Errorf("-at needs a date (YYYY-MM-DD)")
			}
			d.ScheduledDate = value
			if tok, after := nextToken(rest); isClock(tok) {
				d.ScheduledTime = tok
				rest = after
			}
			continue
		}

		value, rest = nextToken(rest)
		if value == "" {
			return board.Draft{}, fmt.Errorf("flag %s needs a value", flag)
		}

		switch flag {
		case "-cat":
			c, ok := model.ParseCategory(value)
			if !ok {
				return board.Draft{}, unknownCategory(value)
			}
			d.Category = c
		case "-file":
			d.Attachments = append(d.Attachments, attachmentFromURL(value))
		default:
			dim := targetDimension(&d.Target, flag)
			if dim == nil {
				return board.Draft{}, fmt.Errorf("unknown flag %q", flag)
			}
			*dim = append(*dim, splitList(value)...)
		}
	}

	title, desc, _ := strings.Cut(rest, "|")
	d.Title = strings.TrimSpace(title)
	d.Description = strings.TrimSpace(desc)
	if d.Title == "" {
		return board.Draft{}, fmt.Errorf("usage: /post [flags] <title> | <description>")
	}
	return d, nil
}

func targetDimension(t *model.Target, flag string) *[]string {
	switch flag {
	case "-course":
		return &t.Courses
	case "-dept":
		return &t.Departments
	case "-year":
		return &t.Years
	case "-sem":
		return &t.Semesters
	case "-sec":
		return &t.Sections
	case "-group":
		return &t.Groups
	case "-roll":
		return &t.SpecificRollNumbers
	}
	return nil
}

func profileField(p *model.Profile, flag string) *string {
	switch flag {
	case "-course":
		return &p.Course
	case "-dept":
		return &p.Department
	case "-year":
		return &p.Year
	case "-sem":
		return &p.Semester
	case "-sec":
		return &p.Section
	case "-group":
		return &p.Group
	case "-roll":
		return &p.RollNo
	}
	return nil
}

func attachmentFromURL(raw string) model.Attachment {
	name := path.Base(raw)
	kind := model.AttachmentDocument
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		kind = model.AttachmentPDF
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		kind = model.AttachmentImage
	}
	return model.Attachment{Name: name, URL: raw, Kind: kind}
}

func splitList(s string) []string {
	values := lo.Map(strings.Split(s, ","), func(v string, _ int) string {
		return strings.TrimSpace(v)
	})
	return lo.Filter(values, func(v string, _ int) bool { return v != "" })
}

func isClock(s string) bool {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func unknownCategory(s string) error {
	names := lo.Map(model.Categories, func(c model.Category, _ int) string { return string(c) })
	return fmt.Errorf("unknown category %q, use: %s", s, strings.Join(names, ", "))
}

// nextToken splits s into its first whitespace-delimited word and the rest,
// preserving the formatting of the rest.
func nextToken(s string) (string, string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}
