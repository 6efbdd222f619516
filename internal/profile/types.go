package profile

// Profile is the user's editable career record. Every field is optional;
// the zero value is the empty profile shown on first load.
type Profile struct {
	FullName   string       `json:"fullName" yaml:"fullName"`
	Headline   string       `json:"headline" yaml:"headline"`
	Location   string       `json:"location" yaml:"location"`
	Email      string       `json:"email" yaml:"email"`
	LinkedIn   string       `json:"linkedin" yaml:"linkedin"`
	AvatarURL  string       `json:"avatarUrl" yaml:"avatarUrl"`
	BannerURL  string       `json:"bannerUrl" yaml:"bannerUrl"`
	Education  []Education  `json:"education" yaml:"education"`
	Experience []Experience `json:"experience" yaml:"experience"`
	Skills     []string     `json:"skills" yaml:"skills"` // distinct values, insertion order kept
}

// Education is one entry of the education section.
type Education struct {
	Degree      string `json:"degree" yaml:"degree"`
	Institution string `json:"institution" yaml:"institution"`
	Field       string `json:"field,omitempty" yaml:"field,omitempty"`
	GPA         string `json:"gpa,omitempty" yaml:"gpa,omitempty"`
}

// Experience is one entry of the experience section.
type Experience struct {
	Company  string `json:"company" yaml:"company"`
	Role     string `json:"role" yaml:"role"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
	Project  string `json:"project,omitempty" yaml:"project,omitempty"`
}

// Personal is the contact section, saved as a whole.
type Personal struct {
	FullName string `json:"fullName"`
	Headline string `json:"headline"`
	Location string `json:"location"`
	Email    string `json:"email"`
	LinkedIn string `json:"linkedin"`
}

// PersonalPatch is a partial update of the contact section. Nil fields
// keep their current value.
type PersonalPatch struct {
	FullName *string `json:"fullName,omitempty"`
	Headline *string `json:"headline,omitempty"`
	Location *string `json:"location,omitempty"`
	Email    *string `json:"email,omitempty"`
	LinkedIn *string `json:"linkedin,omitempty"`
}

// Default returns the empty profile with non-nil sections so that it
// serializes as empty arrays rather than null.
func Default() Profile {
	return Profile{
		Education:  []Education{},
		Experience: []Experience{},
		Skills:     []string{},
	}
}
