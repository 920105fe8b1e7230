package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldPost(t *testing.T) {
	f := New(nil, nil, nil)

	tests := []struct {
		name  string
		title string
		want  bool
	}{
		{"exam routine with program", "CSIT Exam Routine Published", true},
		{"allow keyword only", "Urgent Notice Regarding Form Fill", true},
		{"program code only", "BCA 5th Semester Class Resumption", true},
		{"nepali exam notice", "बि.एस्सी. परीक्षा तालिका प्रकाशित", true},
		{"nepali result", "स्नातक तह नतिजा", true},
		{"deny wins over allow", "PhD Scholarship Notice", false},
		{"deny wins mixed case", "MPhil Exam Routine", false},
		{"nepali deny wins", "छात्रवृत्ति सम्बन्धी सूचना", false},
		{"tender rejected", "Invitation for Tender Bids", false},
		{"no allow token", "Library Opening Hours", false},
		{"empty title", "", false},
		{"whitespace title", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.ShouldPost(tt.title), "title: %q", tt.title)
		})
	}
}

func TestShouldPostCustomLists(t *testing.T) {
	f := New([]string{"workshop"}, []string{"mba"}, []string{"cancelled"})

	assert.True(t, f.ShouldPost("Workshop on Go"))
	assert.True(t, f.ShouldPost("MBA Orientation"))
	assert.False(t, f.ShouldPost("Workshop Cancelled"))
	// Default lists must not leak into custom configurations.
	assert.False(t, f.ShouldPost("CSIT Exam Routine"))
}

func TestNoticeType(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"CSIT Exam Routine Published", "routine"},
		{"BCA Result Notice", "result"},
		{"Exam Center Notice", "exam"},
		{"Admission Open for BIM", "admission"},
		{"General Notice", "notice"},
		{"परीक्षा तालिका", "routine"},
		{"नतिजा प्रकाशित", "result"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NoticeType(tt.title), "title: %q", tt.title)
	}
}
