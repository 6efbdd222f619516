package profile

import (
	"fmt"
	"strings"
)

// RenderResume renders p as a plain-text resume. Empty header fields are
// replaced with placeholders; empty sections are omitted.
func RenderResume(p Profile) string {
	var b strings.Builder

	fmt.Fprintln(&b, or(p.FullName, "Your Name"))
	fmt.Fprintln(&b, or(p.Headline, "Professional Headline"))
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Contact Information:")
	fmt.Fprintf(&b, "Email: %s\n", or(p.Email, "your.email@example.com"))
	fmt.Fprintf(&b, "Location: %s\n", or(p.Location, "Your Location"))
	fmt.Fprintf(&b, "LinkedIn: %s\n", or(p.LinkedIn, "Your LinkedIn Profile"))

	if len(p.Experience) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "EXPERIENCE:")
		for _, e := range p.Experience {
			fmt.Fprintln(&b)
			fmt.Fprintf(&b, "%s - %s\n", e.Role, e.Company)
			writeLine(&b, e.Duration)
			writeLine(&b, e.Project)
		}
	}

	if len(p.Education) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "EDUCATION:")
		for _, e := range p.Education {
			fmt.Fprintln(&b)
			fmt.Fprintf(&b, "%s - %s\n", e.Degree, e.Institution)
			if e.Field != "" {
				fmt.Fprintf(&b, "Field: %s\n", e.Field)
			}
			if e.GPA != "" {
				fmt.Fprintf(&b, "GPA: %s\n", e.GPA)
			}
		}
	}

	if len(p.Skills) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "SKILLS:")
		fmt.Fprintln(&b, strings.Join(p.Skills, ", "))
	}

	return strings.TrimSpace(b.String()) + "\n"
}

// RenderATS renders the minimal three-line resume accepted by applicant
// tracking systems.
func RenderATS(p Profile) string {
	return fmt.Sprintf("Name: %s\nHeadline: %s\nSkills: %s\n",
		p.FullName, p.Headline, strings.Join(p.Skills, ", "))
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func writeLine(b *strings.Builder, s string) {
	if s != "" {
		fmt.Fprintln(b, s)
	}
}
