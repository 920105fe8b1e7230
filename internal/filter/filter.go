// Package filter decides from title text alone whether a notice is worth
// publishing. Matching is substring containment over a lowercased title,
// deliberately tolerant of false positives: a borderline notice slipping
// through costs one extra post, a missed exam routine costs much more.
package filter

import "strings"

// Default keyword lists, English and Nepali. A config may replace any of
// them wholesale.
var (
	// DefaultDenyKeywords name categories that are never relevant to the
	// target audience. Deny always wins over allow.
	DefaultDenyKeywords = []string{
		"phd", "ph.d", "mphil", "m.phil", "m. phil",
		"scholarship", "fellowship",
		"tender", "quotation", "procurement",
		"विद्यावारिधि", "छात्रवृत्ति", "बोलपत्र", "दरभाउ",
	}

	// DefaultAllowKeywords are urgency and notice-type terms.
	DefaultAllowKeywords = []string{
		"exam", "examination", "routine", "result", "re-exam",
		"admit card", "schedule", "notice", "urgent", "form fill",
		"postponed", "rescheduled", "center", "centre",
		"परीक्षा", "नतिजा", "तालिका", "रुटिन", "सूचना", "केन्द्र", "स्थगित",
	}

	// DefaultAllowPrograms are the program codes the page covers.
	DefaultAllowPrograms = []string{
		"csit", "b.sc.csit", "bsc.csit", "bca", "bit", "bim", "bbm",
	}
)

type Filter struct {
	deny          []string
	allowKeywords []string
	allowPrograms []string
}

// New builds a Filter from the given lists. Empty lists fall back to the
// package defaults so a zero-value config still behaves sensibly.
func New(allowKeywords, allowPrograms, deny []string) *Filter {
	if len(allowKeywords) == 0 {
		allowKeywords = DefaultAllowKeywords
	}
	if len(allowPrograms) == 0 {
		allowPrograms = DefaultAllowPrograms
	}
	if len(deny) == 0 {
		deny = DefaultDenyKeywords
	}
	return &Filter{
		deny:          lowered(deny),
		allowKeywords: lowered(allowKeywords),
		allowPrograms: lowered(allowPrograms),
	}
}

// ShouldPost reports whether a notice title is relevant. Pure and total:
// an empty title rejects, no input errors.
func (f *Filter) ShouldPost(title string) bool {
	normalized := strings.ToLower(strings.TrimSpace(title))
	if normalized == "" {
		return false
	}

	if containsAny(normalized, f.deny) {
		return false
	}

	return containsAny(normalized, f.allowKeywords) || containsAny(normalized, f.allowPrograms)
}

// NoticeType derives a coarse category from the title, used in the post
// message.
func NoticeType(title string) string {
	normalized := strings.ToLower(title)
	switch {
	case strings.Contains(normalized, "routine") || strings.Contains(normalized, "schedule") ||
		strings.Contains(normalized, "तालिका") || strings.Contains(normalized, "रुटिन"):
		return "routine"
	case strings.Contains(normalized, "result") || strings.Contains(normalized, "नतिजा"):
		return "result"
	case strings.Contains(normalized, "exam") || strings.Contains(normalized, "परीक्षा"):
		return "exam"
	case strings.Contains(normalized, "admission") || strings.Contains(normalized, "भर्ना"):
		return "admission"
	default:
		return "notice"
	}
}

func containsAny(s string, tokens []string) bool {
	for _, token := range tokens {
		if token != "" && strings.Contains(s, token) {
			return true
		}
	}
	return false
}

func lowered(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, token := range tokens {
		out[i] = strings.ToLower(token)
	}
	return out
}
