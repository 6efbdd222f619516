package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/growthcharter/internal/account"
	"github.com/kalambet/growthcharter/internal/profile"
	"github.com/kalambet/growthcharter/internal/settings"
)

// AppDeps holds everything the HTTP API needs.
type AppDeps struct {
	Profile  *profile.Manager
	Settings *settings.Manager
	Account  *account.Service

	// AllowedOrigins enables CORS for the listed origins. Empty disables CORS.
	AllowedOrigins []string

	// Now defaults to time.Now; overridden in tests to pin export dates.
	Now func() time.Time
}

type MediaRequest struct {
	AvatarURL string `json:"avatarUrl"`
	BannerURL string `json:"bannerUrl"`
}

type SkillRequest struct {
	Skill string `json:"skill"`
}

func NewAppHandler(deps AppDeps) http.Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	r := chi.NewRouter()
	r.Use(RequestID, RequestLogger, Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpError(w, http.StatusNotFound, "not_found", "no route for %s %s", r.Method, r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpError(w, http.StatusMethodNotAllowed, "invalid_request_error", "method %s not allowed on %s", r.Method, r.URL.Path)
	})

	r.Get("/health", handleHealth)

	r.Route("/profile", func(r chi.Router) {
		r.Get("/", handleGetProfile(deps))
		r.Put("/", handleReplaceProfile(deps))
		r.Patch("/personal", handlePatchPersonal(deps))
		r.Put("/media", handleSetMedia(deps))
		r.Put("/education", handleSetEducation(deps))
		r.Put("/experience", handleSetExperience(deps))
		r.Put("/skills", handleSetSkills(deps))
		r.Post("/skills", handleAddSkill(deps))
		r.Delete("/skills/{skill}", handleRemoveSkill(deps))
		r.Get("/completion", handleCompletion(deps))
		r.Get("/resume", handleResume(deps))
	})

	r.Get("/settings", handleGetSettings(deps))
	r.Patch("/settings", handlePatchSettings(deps))

	r.Get("/export", handleExport(deps))
	r.Delete("/account", handleDeleteAccount(deps))

	if len(deps.AllowedOrigins) == 0 {
		return r
	}
	return CORS(deps.AllowedOrigins)(r)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// --- Profile ---

func handleGetProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Profile.GetProfile()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get profile: %v", err)
			return
		}
		writeJSON(w, p)
	}
}

func handleReplaceProfile(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading request body: %v", err)
			return
		}
		p, err := profile.ParseJSON(body)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid profile: %v", err)
			return
		}

		if err := deps.Profile.Replace(p); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save profile: %v", err)
			return
		}
		respondProfile(w, deps)
	}
}

func handlePatchPersonal(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch profile.PersonalPatch
		if !decodeBody(w, r, &patch) {
			return
		}
		if err := deps.Profile.PatchPersonal(patch); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to update personal info: %v", err)
			return
		}
		respondProfile(w, deps)
	}
}

func handleSetMedia(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MediaRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := deps.Profile.SetMedia(req.AvatarURL, req.BannerURL); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to update media: %v", err)
			return
		}
		respondProfile(w, deps)
	}
}

func handleSetEducation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var entries []profile.Education
		if !decodeBody(w, r, &entries) {
			return
		}
		if err := deps.Profile.SetEducation(entries); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to update education: %v", err)
			return
		}
		respondProfile(w, deps)
	}
}

func handleSetExperience(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var entries []profile.Experience
		if !decodeBody(w, r, &entries) {
			return
		}
		if err := deps.Profile.SetExperience(entries); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to update experience: %v", err)
			return
		}
		respondProfile(w, deps)
	}
}

func handleSetSkills(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var skills []string
		if !decodeBody(w, r, &skills) {
			return
		}
		if err := deps.Profile.SetSkills(skills); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to update skills: %v", err)
			return
		}
		respondProfile(w, deps)
	}
}

func handleAddSkill(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SkillRequest
		if !decodeBody(w, r, &req) {
			return
		}
		err := deps.Profile.AddSkill(req.Skill)
		if errors.Is(err, profile.ErrEmptySkill) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "skill is required")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to add skill: %v", err)
			return
		}
		respondProfile(w, deps)
	}
}

func handleRemoveSkill(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skill := chi.URLParam(r, "skill")
		if err := deps.Profile.RemoveSkill(skill); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to remove skill: %v", err)
			return
		}
		respondProfile(w, deps)
	}
}

func handleCompletion(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := deps.Profile.Completion()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to score profile: %v", err)
			return
		}
		writeJSON(w, report)
	}
}

func handleResume(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render, filename := profile.RenderResume, "resume.txt"
		switch format := r.URL.Query().Get("format"); format {
		case "", "txt":
		case "ats":
			render, filename = profile.RenderATS, "ats_resume.txt"
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unsupported resume format %q (want txt or ats)", format)
			return
		}

		p, err := deps.Profile.GetProfile()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get profile: %v", err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if r.URL.Query().Get("download") != "" {
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		}
		io.WriteString(w, render(p))
	}
}

func respondProfile(w http.ResponseWriter, deps AppDeps) {
	p, err := deps.Profile.GetProfile()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to get profile: %v", err)
		return
	}
	writeJSON(w, p)
}

// --- Settings ---

func handleGetSettings(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := deps.Settings.Get()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get settings: %v", err)
			return
		}
		writeJSON(w, s)
	}
}

func handlePatchSettings(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch settings.Patch
		if !decodeBody(w, r, &patch) {
			return
		}
		s, err := deps.Settings.Save(patch)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save settings: %v", err)
			return
		}
		writeJSON(w, s)
	}
}

// --- Account ---

func handleExport(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := deps.Account.Export(deps.Now())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to export data: %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", account.ExportFileName))
		if err := account.WriteExport(w, doc); err != nil {
			slog.Warn("writing export", "error", err)
		}
	}
}

func handleDeleteAccount(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Account.Delete(); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete account: %v", err)
			return
		}
		writeJSON(w, map[string]string{"status": "deleted"})
	}
}
