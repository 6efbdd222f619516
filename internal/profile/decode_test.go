package profile

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecode_Empty(t *testing.T) {
	got := Decode(nil)
	if diff := cmp.Diff(Default(), got); diff != "" {
		t.Errorf("Decode(nil) mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_MalformedDocument(t *testing.T) {
	got := Decode([]byte(`{"fullName": "Jane"`))
	if diff := cmp.Diff(Default(), got); diff != "" {
		t.Errorf("Decode(malformed) mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_NotAnObject(t *testing.T) {
	got := Decode([]byte(`["a","b"]`))
	if diff := cmp.Diff(Default(), got); diff != "" {
		t.Errorf("Decode(array) mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_MalformedFieldKeepsRest(t *testing.T) {
	doc := `{
		"fullName": "Jane",
		"headline": 42,
		"skills": "go",
		"education": [{"degree": "BSc", "institution": "IST"}]
	}`
	got := Decode([]byte(doc))

	want := Default()
	want.FullName = "Jane"
	want.Education = []Education{{Degree: "BSc", Institution: "IST"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_NullFields(t *testing.T) {
	got := Decode([]byte(`{"fullName": null, "skills": null, "experience": null}`))
	if diff := cmp.Diff(Default(), got); diff != "" {
		t.Errorf("Decode(nulls) mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_DedupesSkills(t *testing.T) {
	got := Decode([]byte(`{"skills": ["go", "sql", "go", "k8s", "sql"]}`))
	want := []string{"go", "sql", "k8s"}
	if diff := cmp.Diff(want, got.Skills); diff != "" {
		t.Errorf("skills mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	p := fullProfile()
	data, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if diff := cmp.Diff(p, Decode(data)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeYAML(t *testing.T) {
	doc := `
fullName: Jane Doe
headline: Backend Engineer
linkedin: linkedin.com/in/janedoe
education:
  - degree: BSc
    institution: IST
    field: Computer Science
experience:
  - company: Acme
    role: Engineer
    duration: 2021 - Present
skills: [go, sql, go]
`
	got := DecodeYAML([]byte(doc))

	want := Default()
	want.FullName = "Jane Doe"
	want.Headline = "Backend Engineer"
	want.LinkedIn = "linkedin.com/in/janedoe"
	want.Education = []Education{{Degree: "BSc", Institution: "IST", Field: "Computer Science"}}
	want.Experience = []Experience{{Company: "Acme", Role: "Engineer", Duration: "2021 - Present"}}
	want.Skills = []string{"go", "sql"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DecodeYAML mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeYAML_MalformedFieldKeepsRest(t *testing.T) {
	doc := `
fullName: Jane
education: "not a list"
skills:
  - a
  - b
`
	got := DecodeYAML([]byte(doc))
	if got.FullName != "Jane" {
		t.Errorf("FullName = %q, want %q", got.FullName, "Jane")
	}
	if len(got.Education) != 0 {
		t.Errorf("Education = %v, want empty", got.Education)
	}
	if diff := cmp.Diff([]string{"a", "b"}, got.Skills); diff != "" {
		t.Errorf("skills mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeYAML_AcceptsJSON(t *testing.T) {
	got := DecodeYAML([]byte(`{"fullName": "Jane", "skills": ["a"]}`))
	if got.FullName != "Jane" || len(got.Skills) != 1 {
		t.Errorf("DecodeYAML(json) = %+v", got)
	}
}

func TestParseJSON(t *testing.T) {
	p, err := ParseJSON([]byte(`{"fullName":"Jane","skills":["go","go"]}`))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if p.FullName != "Jane" || len(p.Skills) != 1 {
		t.Errorf("ParseJSON = %+v", p)
	}

	for _, doc := range []string{`null`, `[]`, `"x"`, `{"fullName":`, ``} {
		if _, err := ParseJSON([]byte(doc)); !errors.Is(err, ErrNotObject) {
			t.Errorf("ParseJSON(%q) error = %v, want ErrNotObject", doc, err)
		}
	}
}

func TestParseYAML(t *testing.T) {
	p, err := ParseYAML([]byte("fullName: Jane\nheadline: Engineer\n"))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if p.FullName != "Jane" || p.Headline != "Engineer" {
		t.Errorf("ParseYAML = %+v", p)
	}

	for _, doc := range []string{"null\n", "~", "- a\n", "plain text", "", "a: [b\n"} {
		if _, err := ParseYAML([]byte(doc)); !errors.Is(err, ErrNotObject) {
			t.Errorf("ParseYAML(%q) error = %v, want ErrNotObject", doc, err)
		}
	}
}
