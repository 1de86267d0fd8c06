package audience

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"notice_board/internal/model"
)

var cseThirdYear = model.Profile{
	Course:     "BTech",
	Department: "CSE",
	Year:       "3",
	Semester:   "5",
	Section:    "A",
	Group:      "G1",
	RollNo:     "1901001",
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name    string
		target  model.Target
		profile model.Profile
		want    bool
	}{
		{
			name:    "global target matches everyone",
			target:  model.Target{},
			profile: cseThirdYear,
			want:    true,
		},
		{
			name:    "global target matches empty profile",
			target:  model.Target{},
			profile: model.Profile{},
			want:    true,
		},
		{
			name:    "empty slices are treated as no restriction",
			target:  model.Target{Courses: []string{}, Departments: []string{}, Sections: []string{}},
			profile: model.Profile{},
			want:    true,
		},
		{
			name:    "single dimension match",
			target:  model.Target{Departments: []string{"CSE", "IT"}},
			profile: cseThirdYear,
			want:    true,
		},
		{
			name:    "single dimension miss",
			target:  model.Target{Departments: []string{"ECE"}},
			profile: cseThirdYear,
			want:    false,
		},
		{
			name: "all dimensions must match",
			target: model.Target{
				Courses:     []string{"BTech"},
				Departments: []string{"CSE"},
				Years:       []string{"3"},
				Semesters:   []string{"5"},
				Sections:    []string{"A", "B"},
			},
			profile: cseThirdYear,
			want:    true,
		},
		{
			name: "one failing dimension rejects",
			target: model.Target{
				Courses:     []string{"BTech"},
				Departments: []string{"CSE"},
				Sections:    []string{"B"},
			},
			profile: cseThirdYear,
			want:    false,
		},
		{
			name:    "missing profile attribute fails closed",
			target:  model.Target{Sections: []string{"A"}},
			profile: model.Profile{Course: "BTech", Department: "CSE"},
			want:    false,
		},
		{
			name:    "groups restrict like other dimensions",
			target:  model.Target{Departments: []string{"CSE"}, Groups: []string{"G2"}},
			profile: cseThirdYear,
			want:    false,
		},
		{
			name:    "groups match",
			target:  model.Target{Groups: []string{"G1"}},
			profile: cseThirdYear,
			want:    true,
		},
		{
			name: "roll number widens a targeted notice",
			target: model.Target{
				Departments:         []string{"CSE"},
				SpecificRollNumbers: []string{"1901099"},
			},
			profile: model.Profile{Department: "ECE", RollNo: "1901099"},
			want:    true,
		},
		{
			name: "unlisted roll number outside the dimensions",
			target: model.Target{
				Departments:         []string{"CSE"},
				SpecificRollNumbers: []string{"1901099"},
			},
			profile: model.Profile{Department: "ECE", RollNo: "1901001"},
			want:    false,
		},
		{
			name: "unlisted roll number inside the dimensions",
			target: model.Target{
				Departments:         []string{"CSE"},
				SpecificRollNumbers: []string{"1901099"},
			},
			profile: cseThirdYear,
			want:    true,
		},
		{
			name:    "roll numbers only: listed student",
			target:  model.Target{SpecificRollNumbers: []string{"1901001"}},
			profile: cseThirdYear,
			want:    true,
		},
		{
			name:    "roll numbers only: other student",
			target:  model.Target{SpecificRollNumbers: []string{"1901099"}},
			profile: cseThirdYear,
			want:    false,
		},
		{
			name:    "empty roll number never matches the list",
			target:  model.Target{SpecificRollNumbers: []string{""}},
			profile: model.Profile{},
			want:    false,
		},
		{
			name:    "surrounding whitespace is ignored",
			target:  model.Target{Departments: []string{" CSE "}},
			profile: model.Profile{Department: "CSE"},
			want:    true,
		},
		{
			name:    "comparison is case sensitive",
			target:  model.Target{Departments: []string{"cse"}},
			profile: cseThirdYear,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Matches(tt.target, tt.profile)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Matches() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMatchesSectionMissAlwaysRejects(t *testing.T) {
	others := []model.Target{
		{Sections: []string{"B"}},
		{Sections: []string{"B"}, Courses: []string{"BTech"}},
		{Sections: []string{"B", "C"}, Departments: []string{"CSE"}, Years: []string{"3"}},
		{Sections: []string{"B"}, SpecificRollNumbers: []string{"1901099"}},
	}
	for i, target := range others {
		if Matches(target, cseThirdYear) {
			t.Errorf("target %d: expected no match for section %q", i, cseThirdYear.Section)
		}
	}
}

func TestIsGlobal(t *testing.T) {
	tests := []struct {
		name   string
		target model.Target
		want   bool
	}{
		{name: "zero value", target: model.Target{}, want: true},
		{name: "department set", target: model.Target{Departments: []string{"CSE"}}, want: false},
		{name: "roll numbers only", target: model.Target{SpecificRollNumbers: []string{"1"}}, want: false},
		{name: "groups only", target: model.Target{Groups: []string{"G1"}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, IsGlobal(tt.target)); diff != "" {
				t.Errorf("IsGlobal() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
