// Package model defines the domain types used across the application.
package model

import (
	"strings"
	"time"
)

// Role is the access level of a board user.
type Role string

// Supported roles.
const (
	RoleAdmin   Role = "admin"
	RoleFaculty Role = "faculty"
	RoleStudent Role = "student"
)

// ParseRole converts user input into a Role.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleFaculty, RoleStudent:
		return r, true
	}
	return "", false
}

// Category classifies a notice.
type Category string

// Supported notice categories.
const (
	CategoryAcademic  Category = "Academic"
	CategoryExam      Category = "Exam"
	CategoryHoliday   Category = "Holiday"
	CategoryPlacement Category = "Placement"
	CategoryCultural  Category = "Cultural"
	CategoryImportant Category = "Important"
)

// CategoryAll is the pseudo-category that disables category filtering.
const CategoryAll = "All"

// Categories lists every category in display order.
var Categories = []Category{
	CategoryAcademic,
	CategoryExam,
	CategoryHoliday,
	CategoryPlacement,
	CategoryCultural,
	CategoryImportant,
}

// ParseCategory matches s case-insensitively against the known categories.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// AttachmentKind is the type of a notice attachment.
type AttachmentKind string

// Supported attachment kinds.
const (
	AttachmentPDF      AttachmentKind = "pdf"
	AttachmentImage    AttachmentKind = "image"
	AttachmentDocument AttachmentKind = "document"
)

// Attachment is a file linked from a notice. The file itself lives elsewhere.
type Attachment struct {
	Name string         `json:"name"`
	URL  string         `json:"url"`
	Kind AttachmentKind `json:"kind"`
}

// Target describes the audience of a notice. An empty dimension places no
// restriction on that dimension.
type Target struct {
	Courses             []string `json:"courses,omitempty"`
	Departments         []string `json:"departments,omitempty"`
	Years               []string `json:"years,omitempty"`
	Semesters           []string `json:"semesters,omitempty"`
	Sections            []string `json:"sections,omitempty"`
	Groups              []string `json:"groups,omitempty"`
	SpecificRollNumbers []string `json:"specificRollNumbers,omitempty"`
}

// Notice is a published board entry.
type Notice struct {
	ID              string
	Title           string
	Description     string
	Category        Category
	PublishedBy     string
	PublishedByName string
	// CreatedAt is the effective publish time. For scheduled notices it is
	// the scheduled instant.
	CreatedAt            time.Time
	IsPinned             bool
	IsScheduled          bool
	ScheduledPublishDate string
	ScheduledPublishTime string
	Attachments          []Attachment
	Target               Target
}

// FeedNotice is a notice decorated with per-viewer state.
type FeedNotice struct {
	Notice
	IsRead      bool
	IsFavourite bool
}

// Profile holds the academic attributes of a student.
type Profile struct {
	Course     string
	Department string
	Year       string
	Semester   string
	Section    string
	Group      string
	RollNo     string
}

// Viewer is the identity a feed is computed for.
type Viewer struct {
	ID      string
	Role    Role
	Profile Profile
}

// User is a registered board member.
type User struct {
	ID         string
	TelegramID int64
	Name       string
	Role       Role
	Profile    Profile
	CreatedAt  time.Time
}

// Viewer returns the viewing identity of the user.
func (u User) Viewer() Viewer {
	return Viewer{ID: u.ID, Role: u.Role, Profile: u.Profile}
}

// ReadMarker records that a user has seen a notice.
type ReadMarker struct {
	UserID   string
	NoticeID string
	ReadAt   time.Time
}

// Report is a student complaint about a notice.
type Report struct {
	ID        int64
	NoticeID  string
	UserID    string
	Reason    string
	CreatedAt time.Time
}

// RegistrationCode is a single-use token granting a role.
type RegistrationCode struct {
	Code      string
	Role      Role
	CreatedBy string
	UsedBy    string
	CreatedAt time.Time
	UsedAt    *time.Time
}

// Source is an external RSS feed imported as global notices.
type Source struct {
	ID          int64
	Name        string
	URL         string
	Category    Category
	IsActive    bool
	LastCheckAt *time.Time
	CreatedAt   time.Time
}
