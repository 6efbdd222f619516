package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/growthcharter/internal/account"
	"github.com/kalambet/growthcharter/internal/profile"
	"github.com/kalambet/growthcharter/internal/settings"
	"github.com/kalambet/growthcharter/internal/storage"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func setupAppHandler(t *testing.T) (http.Handler, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	profileMgr := profile.NewManager(store)
	settingsMgr := settings.NewManager(store)

	handler := NewAppHandler(AppDeps{
		Profile:  profileMgr,
		Settings: settingsMgr,
		Account:  account.NewService(store, profileMgr, settingsMgr),
		Now:      func() time.Time { return fixedNow },
	})
	return handler, store
}

func do(t *testing.T, h http.Handler, method, url, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeProfile(t *testing.T, rr *httptest.ResponseRecorder) profile.Profile {
	t.Helper()
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", rr.Code, rr.Body.String())
	}
	var p profile.Profile
	if err := json.NewDecoder(rr.Body).Decode(&p); err != nil {
		t.Fatalf("decoding profile: %v", err)
	}
	return p
}

func errorType(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding error envelope: %v", err)
	}
	return resp.Error.Type
}

func TestHealth(t *testing.T) {
	h, _ := setupAppHandler(t)
	rr := do(t, h, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK || rr.Body.String() != `{"status":"ok"}` {
		t.Errorf("health = %d %s", rr.Code, rr.Body.String())
	}
}

func TestRequestIDHeader(t *testing.T) {
	h, _ := setupAppHandler(t)

	rr := do(t, h, http.MethodGet, "/health", "")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated X-Request-ID")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want propagated abc-123", got)
	}
}

func TestGetProfile_Empty(t *testing.T) {
	h, _ := setupAppHandler(t)

	rr := do(t, h, http.MethodGet, "/profile", "")
	if !strings.Contains(rr.Body.String(), `"skills":[]`) {
		t.Errorf("empty profile should serialize skills as [], got %s", rr.Body.String())
	}
	p := decodeProfile(t, rr)
	if p.FullName != "" || len(p.Skills) != 0 {
		t.Errorf("expected empty profile, got %+v", p)
	}
}

func TestReplaceProfile(t *testing.T) {
	h, store := setupAppHandler(t)

	body := `{"fullName":"Jane Doe","headline":"Engineer","skills":["Go","Go","SQL"],"education":"bad"}`
	p := decodeProfile(t, do(t, h, http.MethodPut, "/profile", body))
	if p.FullName != "Jane Doe" || p.Headline != "Engineer" {
		t.Errorf("profile = %+v", p)
	}
	if len(p.Skills) != 2 {
		t.Errorf("Skills = %v, want deduplicated", p.Skills)
	}
	if len(p.Education) != 0 {
		t.Errorf("malformed education should default to empty, got %v", p.Education)
	}

	raw, err := store.Get(profile.StorageKey)
	if err != nil {
		t.Fatalf("profile not persisted: %v", err)
	}
	if !strings.Contains(raw, "Jane Doe") {
		t.Errorf("persisted = %s", raw)
	}
}

func TestReplaceProfile_InvalidJSON(t *testing.T) {
	h, _ := setupAppHandler(t)

	for _, body := range []string{`{"fullName":`, `["a"]`, `"text"`} {
		rr := do(t, h, http.MethodPut, "/profile", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("PUT /profile %s: status = %d, want 400", body, rr.Code)
			continue
		}
		if typ := errorType(t, rr); typ != "invalid_request_error" {
			t.Errorf("error type = %q", typ)
		}
	}
}

func TestReplaceProfile_NullKeepsStoredProfile(t *testing.T) {
	h, _ := setupAppHandler(t)

	do(t, h, http.MethodPut, "/profile", `{"fullName":"Jane","skills":["a"]}`)

	for _, body := range []string{`null`, ` null `} {
		rr := do(t, h, http.MethodPut, "/profile", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("PUT /profile %q: status = %d, want 400", body, rr.Code)
		}
	}

	p := decodeProfile(t, do(t, h, http.MethodGet, "/profile", ""))
	if p.FullName != "Jane" || len(p.Skills) != 1 {
		t.Errorf("stored profile changed: %+v", p)
	}
}

func TestPatchPersonal_KeepsOmittedFields(t *testing.T) {
	h, _ := setupAppHandler(t)

	do(t, h, http.MethodPatch, "/profile/personal", `{"fullName":"Jane","location":"Berlin"}`)
	p := decodeProfile(t, do(t, h, http.MethodPatch, "/profile/personal", `{"headline":"Engineer"}`))

	if p.FullName != "Jane" || p.Location != "Berlin" || p.Headline != "Engineer" {
		t.Errorf("profile = %+v", p)
	}
}

func TestSectionEditors(t *testing.T) {
	h, _ := setupAppHandler(t)

	decodeProfile(t, do(t, h, http.MethodPut, "/profile/media", `{"avatarUrl":"a.png","bannerUrl":"b.png"}`))
	decodeProfile(t, do(t, h, http.MethodPut, "/profile/education",
		`[{"degree":"BSc","institution":"TU Berlin","field":"CS"},{"degree":"","institution":""}]`))
	p := decodeProfile(t, do(t, h, http.MethodPut, "/profile/experience",
		`[{"company":"Acme","role":"SWE","duration":"2020-2023"},{}]`))

	if p.AvatarURL != "a.png" || p.BannerURL != "b.png" {
		t.Errorf("media = %q %q", p.AvatarURL, p.BannerURL)
	}
	if len(p.Education) != 1 || p.Education[0].Field != "CS" {
		t.Errorf("Education = %+v, want the one non-empty entry", p.Education)
	}
	if len(p.Experience) != 1 || p.Experience[0].Duration != "2020-2023" {
		t.Errorf("Experience = %+v, want the one non-empty entry", p.Experience)
	}
}

func TestSectionEditors_BadBody(t *testing.T) {
	h, _ := setupAppHandler(t)

	cases := []struct{ method, path, body string }{
		{http.MethodPut, "/profile/education", `{"degree":"BSc"}`},
		{http.MethodPut, "/profile/experience", `nope`},
		{http.MethodPut, "/profile/skills", `"Go"`},
		{http.MethodPut, "/profile/media", `[1]`},
		{http.MethodPatch, "/profile/personal", `{"fullName":42}`},
		{http.MethodPatch, "/settings", `{"privacy":true}`},
	}
	for _, c := range cases {
		if rr := do(t, h, c.method, c.path, c.body); rr.Code != http.StatusBadRequest {
			t.Errorf("%s %s: status = %d, want 400", c.method, c.path, rr.Code)
		}
	}
}

func TestSkills(t *testing.T) {
	h, _ := setupAppHandler(t)

	p := decodeProfile(t, do(t, h, http.MethodPut, "/profile/skills", `[" Go ","","SQL","Go","Machine Learning"]`))
	if len(p.Skills) != 3 {
		t.Fatalf("Skills = %v, want [Go SQL Machine Learning]", p.Skills)
	}

	p = decodeProfile(t, do(t, h, http.MethodPost, "/profile/skills", `{"skill":"Docker"}`))
	if p.Skills[len(p.Skills)-1] != "Docker" {
		t.Errorf("Skills = %v, want Docker appended", p.Skills)
	}

	p = decodeProfile(t, do(t, h, http.MethodDelete, "/profile/skills/Machine%20Learning", ""))
	for _, s := range p.Skills {
		if s == "Machine Learning" {
			t.Errorf("skill not removed: %v", p.Skills)
		}
	}
}

func TestAddSkill_Blank(t *testing.T) {
	h, _ := setupAppHandler(t)

	rr := do(t, h, http.MethodPost, "/profile/skills", `{"skill":"  "}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestCompletion(t *testing.T) {
	h, _ := setupAppHandler(t)

	do(t, h, http.MethodPatch, "/profile/personal", `{"fullName":"Jane","headline":"Engineer","location":"Berlin"}`)

	rr := do(t, h, http.MethodGet, "/profile/completion", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var report profile.Report
	if err := json.NewDecoder(rr.Body).Decode(&report); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if report.Score != 25 {
		t.Errorf("Score = %d, want 25", report.Score)
	}
	if len(report.Items) != 10 {
		t.Errorf("len(Items) = %d, want 10", len(report.Items))
	}
}

func TestResume(t *testing.T) {
	h, _ := setupAppHandler(t)
	do(t, h, http.MethodPatch, "/profile/personal", `{"fullName":"Jane Doe","headline":"Engineer"}`)
	do(t, h, http.MethodPut, "/profile/skills", `["Go","SQL"]`)

	rr := do(t, h, http.MethodGet, "/profile/resume", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "SKILLS:\nGo, SQL") {
		t.Errorf("resume = %q", rr.Body.String())
	}
	if rr.Header().Get("Content-Disposition") != "" {
		t.Error("inline resume should not set Content-Disposition")
	}

	rr = do(t, h, http.MethodGet, "/profile/resume?format=ats&download=1", "")
	if rr.Body.String() != "Name: Jane Doe\nHeadline: Engineer\nSkills: Go, SQL\n" {
		t.Errorf("ats resume = %q", rr.Body.String())
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "ats_resume.txt") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	if rr := do(t, h, http.MethodGet, "/profile/resume?format=pdf", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("format=pdf status = %d, want 400", rr.Code)
	}
}

func TestSettings(t *testing.T) {
	h, _ := setupAppHandler(t)

	rr := do(t, h, http.MethodGet, "/settings", "")
	var s settings.Settings
	json.NewDecoder(rr.Body).Decode(&s)
	if s != settings.Default() {
		t.Errorf("initial settings = %+v, want defaults", s)
	}

	rr = do(t, h, http.MethodPatch, "/settings", `{"phone":"+1 555 0100","notifications":{"email":false,"push":true,"marketing":true}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	json.NewDecoder(rr.Body).Decode(&s)
	if s.Phone != "+1 555 0100" || s.Notifications.Email || !s.Notifications.Marketing {
		t.Errorf("settings = %+v", s)
	}
	if !s.Privacy.ProfileVisible || s.Security.LastPasswordChange != "Never" {
		t.Errorf("untouched sections changed: %+v", s)
	}
}

func TestExport(t *testing.T) {
	h, _ := setupAppHandler(t)

	rr := do(t, h, http.MethodGet, "/export", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, account.ExportFileName) {
		t.Errorf("Content-Disposition = %q", cd)
	}

	var doc map[string]json.RawMessage
	if err := json.NewDecoder(rr.Body).Decode(&doc); err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	if string(doc["profile"]) != "{}" || string(doc["settings"]) != "{}" {
		t.Errorf("empty export = %s / %s, want {} placeholders", doc["profile"], doc["settings"])
	}
	if string(doc["exportDate"]) != `"2025-06-01T12:00:00Z"` {
		t.Errorf("exportDate = %s", doc["exportDate"])
	}
}

func TestDeleteAccount(t *testing.T) {
	h, store := setupAppHandler(t)

	do(t, h, http.MethodPatch, "/profile/personal", `{"fullName":"Jane"}`)
	do(t, h, http.MethodPatch, "/settings", `{"phone":"123"}`)
	store.Set("onboardingData", `{"step":2}`)

	rr := do(t, h, http.MethodDelete, "/account", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	keys, _ := store.Keys()
	if len(keys) != 0 {
		t.Errorf("keys after delete = %v", keys)
	}
	p := decodeProfile(t, do(t, h, http.MethodGet, "/profile", ""))
	if p.FullName != "" {
		t.Errorf("profile after delete = %+v, want empty", p)
	}
}

func TestNotFoundAndMethod(t *testing.T) {
	h, _ := setupAppHandler(t)

	rr := do(t, h, http.MethodGet, "/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
	if typ := errorType(t, rr); typ != "not_found" {
		t.Errorf("error type = %q", typ)
	}

	if rr := do(t, h, http.MethodPost, "/settings", `{}`); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /settings status = %d, want 405", rr.Code)
	}
}

func TestStoreErrorIs500(t *testing.T) {
	broken := failingKV{err: errors.New("disk gone")}
	h := NewAppHandler(AppDeps{
		Profile:  profile.NewManager(broken),
		Settings: settings.NewManager(broken),
	})

	for _, path := range []string{"/profile", "/profile/completion", "/settings"} {
		rr := do(t, h, http.MethodGet, path, "")
		if rr.Code != http.StatusInternalServerError {
			t.Errorf("GET %s status = %d, want 500", path, rr.Code)
		}
	}
}

func TestCORS(t *testing.T) {
	store := storage.NewMemory()
	h := NewAppHandler(AppDeps{
		Profile:        profile.NewManager(store),
		Settings:       settings.NewManager(store),
		Account:        account.NewService(store),
		AllowedOrigins: []string{"http://localhost:3000"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/profile", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin got Access-Control-Allow-Origin = %q", got)
	}
}

func TestRecoverer(t *testing.T) {
	h := RequestLogger(Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}
