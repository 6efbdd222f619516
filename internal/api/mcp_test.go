package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/growthcharter/internal/profile"
	"github.com/kalambet/growthcharter/internal/settings"
	"github.com/kalambet/growthcharter/internal/storage"
)

// --- mocks ---

type failingKV struct{ err error }

func (f failingKV) Get(string) (string, error) { return "", f.err }
func (f failingKV) Set(string, string) error   { return f.err }

// --- helpers ---

func newTestMCPDeps(t *testing.T) (MCPDeps, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return MCPDeps{
		Profile:  profile.NewManager(store),
		Settings: settings.NewManager(store),
	}, store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestNewMCPServer(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	if s := NewMCPServer(deps); s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}

func TestMCPTool_CompletionScore_Empty(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpCompletionScore(deps)

	result, err := handler(context.Background(), makeCallToolRequest("completion_score", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", toolText(t, result))
	}
	text := toolText(t, result)
	if !strings.HasPrefix(text, "Profile is 0% complete.") {
		t.Errorf("text = %q", text)
	}
	if !strings.Contains(text, "Full name (+10)") || !strings.Contains(text, "At least 5 skills (+15)") {
		t.Errorf("missing items not listed: %q", text)
	}
}

func TestMCPTool_CompletionScore_Complete(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	err := deps.Profile.Replace(profile.Profile{
		FullName: "Jane Doe", Headline: "Engineer", Location: "Berlin",
		Email: "jane@example.com", LinkedIn: "linkedin.com/in/jane",
		AvatarURL: "a.png", BannerURL: "b.png",
		Education:  []profile.Education{{Degree: "BSc", Institution: "TU"}},
		Experience: []profile.Experience{{Company: "Acme", Role: "SWE"}},
		Skills:     []string{"Go", "SQL", "Docker", "Kubernetes", "Linux"},
	})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}

	result, _ := mcpCompletionScore(deps)(context.Background(), makeCallToolRequest("completion_score", nil))
	if text := toolText(t, result); text != "Profile is 100% complete." {
		t.Errorf("text = %q", text)
	}
}

func TestMCPTool_CompletionScore_StoreError(t *testing.T) {
	deps := MCPDeps{Profile: profile.NewManager(failingKV{err: errors.New("disk gone")})}

	result, err := mcpCompletionScore(deps)(context.Background(), makeCallToolRequest("completion_score", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
}

func TestMCPTool_UpdatePersonal(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	if err := deps.Profile.UpdatePersonal(profile.Personal{Email: "old@example.com", Location: "Berlin"}); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	req := makeCallToolRequest("update_personal", map[string]interface{}{
		"fullName": "Jane Doe",
		"email":    "jane@example.com",
	})
	result, err := mcpUpdatePersonal(deps)(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", toolText(t, result))
	}
	if text := toolText(t, result); !strings.Contains(text, "20% complete") {
		t.Errorf("text = %q, want score 20%%", text)
	}

	p, _ := deps.Profile.GetProfile()
	if p.FullName != "Jane Doe" || p.Email != "jane@example.com" {
		t.Errorf("profile = %+v", p)
	}
	if p.Location != "Berlin" {
		t.Errorf("Location = %q, omitted field should be kept", p.Location)
	}
}

func TestMCPTool_UpdatePersonal_BadArgumentType(t *testing.T) {
	deps, _ := newTestMCPDeps(t)

	req := makeCallToolRequest("update_personal", map[string]interface{}{"fullName": 42})
	result, err := mcpUpdatePersonal(deps)(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for non-string fullName")
	}
	if p, _ := deps.Profile.GetProfile(); p.FullName != "" {
		t.Errorf("FullName = %q, want unchanged", p.FullName)
	}
}

func TestMCPTool_AddSkill(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpAddSkill(deps)

	for _, s := range []string{"Go", " Go ", "SQL"} {
		result, err := handler(context.Background(), makeCallToolRequest("add_skill", map[string]interface{}{"skill": s}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("add_skill(%q) failed: %s", s, toolText(t, result))
		}
	}

	p, _ := deps.Profile.GetProfile()
	if len(p.Skills) != 2 || p.Skills[0] != "Go" || p.Skills[1] != "SQL" {
		t.Errorf("Skills = %v, want [Go SQL]", p.Skills)
	}
}

func TestMCPTool_AddSkill_Missing(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpAddSkill(deps)

	for _, args := range []map[string]interface{}{nil, {"skill": "   "}} {
		result, err := handler(context.Background(), makeCallToolRequest("add_skill", args))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Errorf("expected error result for args %v", args)
		}
	}
}

func TestMCPTool_RenderResume(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	deps.Profile.UpdatePersonal(profile.Personal{FullName: "Jane Doe", Headline: "Engineer"})
	deps.Profile.SetSkills([]string{"Go", "SQL"})

	result, _ := mcpRenderResume(deps)(context.Background(), makeCallToolRequest("render_resume", map[string]interface{}{"format": "ats"}))
	want := "Name: Jane Doe\nHeadline: Engineer\nSkills: Go, SQL\n"
	if got := toolText(t, result); got != want {
		t.Errorf("ats resume = %q, want %q", got, want)
	}

	result, _ = mcpRenderResume(deps)(context.Background(), makeCallToolRequest("render_resume", nil))
	if got := toolText(t, result); !strings.HasPrefix(got, "Jane Doe\nEngineer\n") {
		t.Errorf("txt resume = %q", got)
	}

	result, _ = mcpRenderResume(deps)(context.Background(), makeCallToolRequest("render_resume", map[string]interface{}{"format": "pdf"}))
	if !result.IsError {
		t.Error("expected error for unsupported format")
	}
}

func TestMCPResource_Profile(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	deps.Profile.UpdatePersonal(profile.Personal{FullName: "Jane Doe"})

	contents, err := mcpResourceProfile(deps)(context.Background(), makeReadResourceRequest("profile://current"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if tc.URI != "profile://current" || tc.MIMEType != "application/json" {
		t.Errorf("resource = %s (%s)", tc.URI, tc.MIMEType)
	}

	var p profile.Profile
	if err := json.Unmarshal([]byte(tc.Text), &p); err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if p.FullName != "Jane Doe" {
		t.Errorf("FullName = %q", p.FullName)
	}
}

func TestMCPResource_Settings(t *testing.T) {
	deps, _ := newTestMCPDeps(t)

	contents, err := mcpResourceSettings(deps)(context.Background(), makeReadResourceRequest("settings://current"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc := contents[0].(mcp.TextResourceContents)

	var s settings.Settings
	if err := json.Unmarshal([]byte(tc.Text), &s); err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if s != settings.Default() {
		t.Errorf("settings = %+v, want defaults", s)
	}
}

func TestMCPResource_Profile_StoreError(t *testing.T) {
	deps := MCPDeps{Profile: profile.NewManager(failingKV{err: errors.New("disk gone")})}

	if _, err := mcpResourceProfile(deps)(context.Background(), makeReadResourceRequest("profile://current")); err == nil {
		t.Fatal("expected error")
	}
}
