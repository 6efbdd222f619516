package profile

import "strings"

// MinSkills is the number of distinct skills needed for the skills item.
const MinSkills = 5

// Item is one row of the completion checklist.
type Item struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	Weight    int    `json:"weight"`
	Satisfied bool   `json:"satisfied"`
}

// Report is a completion score together with the checklist that produced it.
type Report struct {
	Score int    `json:"score"`
	Items []Item `json:"items"`
}

// Policy controls how text fields are judged present.
//
// The zero Policy counts any non-empty string, including whitespace-only
// strings, as present.
type Policy struct {
	TrimWhitespace bool
}

type check struct {
	key    string
	label  string
	weight int
	ok     func(p Profile, pol Policy) bool
}

// checklist is the canonical weight table. Weights sum to 100.
var checklist = []check{
	{"fullName", "Full name", 10, func(p Profile, pol Policy) bool { return pol.present(p.FullName) }},
	{"headline", "Headline", 10, func(p Profile, pol Policy) bool { return pol.present(p.Headline) }},
	{"location", "Location", 5, func(p Profile, pol Policy) bool { return pol.present(p.Location) }},
	{"email", "Email", 5, func(p Profile, pol Policy) bool { return pol.present(p.Email) }},
	{"linkedin", "LinkedIn", 10, func(p Profile, pol Policy) bool { return pol.present(p.LinkedIn) }},
	{"avatar", "Profile photo", 10, func(p Profile, pol Policy) bool { return pol.present(p.AvatarURL) }},
	{"banner", "Banner image", 5, func(p Profile, pol Policy) bool { return pol.present(p.BannerURL) }},
	{"education", "Education", 15, func(p Profile, _ Policy) bool { return len(p.Education) >= 1 }},
	{"experience", "Experience", 15, func(p Profile, _ Policy) bool { return len(p.Experience) >= 1 }},
	{"skills", "At least 5 skills", 15, func(p Profile, pol Policy) bool {
		return pol.distinctSkills(p.Skills) >= MinSkills
	}},
}

// Score returns the completion percentage of p under the default policy.
func Score(p Profile) int {
	return Policy{}.Score(p)
}

// Breakdown returns the checklist for p under the default policy.
func Breakdown(p Profile) []Item {
	return Policy{}.Breakdown(p)
}

// Score returns the sum of satisfied weights, clamped to 100.
func (pol Policy) Score(p Profile) int {
	return pol.Report(p).Score
}

// Breakdown returns every checklist item in table order.
func (pol Policy) Breakdown(p Profile) []Item {
	return pol.Report(p).Items
}

// Report evaluates the checklist once and returns both score and items.
func (pol Policy) Report(p Profile) Report {
	items := make([]Item, 0, len(checklist))
	sum := 0
	for _, c := range checklist {
		ok := c.ok(p, pol)
		if ok {
			sum += c.weight
		}
		items = append(items, Item{Key: c.key, Label: c.label, Weight: c.weight, Satisfied: ok})
	}
	return Report{Score: min(100, sum), Items: items}
}

func (pol Policy) present(s string) bool {
	if pol.TrimWhitespace {
		return strings.TrimSpace(s) != ""
	}
	return s != ""
}

// distinctSkills counts distinct skill values. The literal policy counts
// every entry, blank ones included; TrimWhitespace compares trimmed values
// and skips blanks.
func (pol Policy) distinctSkills(values []string) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if pol.TrimWhitespace {
			if v = strings.TrimSpace(v); v == "" {
				continue
			}
		}
		seen[v] = struct{}{}
	}
	return len(seen)
}
