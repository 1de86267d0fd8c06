// Package audience decides whether a student belongs to a notice's target audience.
package audience

import (
	"strings"

	"github.com/samber/lo"

	"notice_board/internal/model"
)

// Matches reports whether profile is part of the audience described by target.
//
// Every non-empty dimension must contain the profile's attribute (AND across
// dimensions). An empty dimension imposes no restriction. A roll number listed
// in SpecificRollNumbers matches regardless of the dimensions. A target with
// every dimension empty is global.
func Matches(target model.Target, profile model.Profile) bool {
	if IsGlobal(target) {
		return true
	}
	if contains(target.SpecificRollNumbers, profile.RollNo) {
		return true
	}
	if !hasDimensions(target) {
		// Only roll numbers were listed and this profile is not one of them.
		return false
	}

	return dimensionMatches(target.Courses, profile.Course) &&
		dimensionMatches(target.Departments, profile.Department) &&
		dimensionMatches(target.Years, profile.Year) &&
		dimensionMatches(target.Semesters, profile.Semester) &&
		dimensionMatches(target.Sections, profile.Section) &&
		dimensionMatches(target.Groups, profile.Group)
}

// IsGlobal reports whether target places no restriction at all.
func IsGlobal(target model.Target) bool {
	return !hasDimensions(target) && len(target.SpecificRollNumbers) == 0
}

func hasDimensions(t model.Target) bool {
	return len(t.Courses) > 0 ||
		len(t.Departments) > 0 ||
		len(t.Years) > 0 ||
		len(t.Semesters) > 0 ||
		len(t.Sections) > 0 ||
		len(t.Groups) > 0
}

// dimensionMatches fails closed when the profile lacks the attribute.
func dimensionMatches(allowed []string, value string) bool {
	if len(allowed) == 0 {
		return true
	}
	return contains(allowed, value)
}

func contains(set []string, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	return lo.ContainsBy(set, func(s string) bool {
		return strings.TrimSpace(s) == value
	})
}
