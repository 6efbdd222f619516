package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"
)

// ErrNotObject is returned by ParseJSON and ParseYAML when the document
// root is not an object. A null document is rejected too.
var ErrNotObject = errors.New("profile document must be an object")

// ParseJSON decodes an incoming JSON profile. Unlike Decode it rejects a
// document that is malformed or whose root is not an object.
func ParseJSON(data []byte) (Profile, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if fields == nil {
		return Profile{}, ErrNotObject
	}
	return Decode(data), nil
}

// ParseYAML is ParseJSON for YAML documents.
func ParseYAML(data []byte) (Profile, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return Profile{}, ErrNotObject
	}
	return DecodeYAML(data), nil
}

// Decode parses a persisted profile document. It never fails: a malformed
// document yields Default(), and a malformed field keeps its default while
// the rest of the document is still used.
func Decode(data []byte) Profile {
	p := Default()
	if len(data) == 0 {
		return p
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		slog.Warn("malformed profile document, using defaults", "error", err)
		return p
	}

	decodeField(fields, "fullName", &p.FullName)
	decodeField(fields, "headline", &p.Headline)
	decodeField(fields, "location", &p.Location)
	decodeField(fields, "email", &p.Email)
	decodeField(fields, "linkedin", &p.LinkedIn)
	decodeField(fields, "avatarUrl", &p.AvatarURL)
	decodeField(fields, "bannerUrl", &p.BannerURL)
	decodeField(fields, "education", &p.Education)
	decodeField(fields, "experience", &p.Experience)
	decodeField(fields, "skills", &p.Skills)

	return normalize(p)
}

// DecodeYAML parses a YAML profile document with the same fallback rules
// as Decode. JSON is valid YAML, so this also accepts JSON input.
func DecodeYAML(data []byte) Profile {
	p := Default()
	if len(data) == 0 {
		return p
	}

	var fields map[string]yaml.Node
	if err := yaml.Unmarshal(data, &fields); err != nil {
		slog.Warn("malformed profile document, using defaults", "error", err)
		return p
	}

	decodeNode(fields, "fullName", &p.FullName)
	decodeNode(fields, "headline", &p.Headline)
	decodeNode(fields, "location", &p.Location)
	decodeNode(fields, "email", &p.Email)
	decodeNode(fields, "linkedin", &p.LinkedIn)
	decodeNode(fields, "avatarUrl", &p.AvatarURL)
	decodeNode(fields, "bannerUrl", &p.BannerURL)
	decodeNode(fields, "education", &p.Education)
	decodeNode(fields, "experience", &p.Experience)
	decodeNode(fields, "skills", &p.Skills)

	return normalize(p)
}

// Encode serializes p for the persisted store.
func Encode(p Profile) ([]byte, error) {
	return json.Marshal(normalize(p))
}

// decodeField unmarshals fields[key] into target, logging a warning and
// leaving target untouched if the value is malformed. JSON null is treated
// as absent.
func decodeField[T any](fields map[string]json.RawMessage, key string, target *T) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		slog.Warn("malformed profile field, using default", "key", key, "error", err)
		return
	}
	*target = v
}

func decodeNode[T any](fields map[string]yaml.Node, key string, target *T) {
	node, ok := fields[key]
	if !ok || node.Tag == "!!null" {
		return
	}
	var v T
	if err := node.Decode(&v); err != nil {
		slog.Warn("malformed profile field, using default", "key", key, "error", err)
		return
	}
	*target = v
}

// normalize replaces nil sections with empty ones and drops duplicate skills.
func normalize(p Profile) Profile {
	if p.Education == nil {
		p.Education = []Education{}
	}
	if p.Experience == nil {
		p.Experience = []Experience{}
	}
	p.Skills = dedupe(p.Skills)
	return p
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
