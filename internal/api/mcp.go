package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/growthcharter/internal/profile"
	"github.com/kalambet/growthcharter/internal/settings"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Profile  *profile.Manager
	Settings *settings.Manager
	Version  string
}

// NewMCPServer creates an MCP server exposing the profile and settings to
// local AI tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"growthcharter",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("growthcharter: the user's career profile, its completion score and a plain-text resume."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("completion_score",
			mcp.WithDescription("Return the profile completion percentage and which checklist items are missing."),
		),
		mcpCompletionScore(deps),
	)

	s.AddTool(
		mcp.NewTool("update_personal",
			mcp.WithDescription("Update contact fields of the profile. Omitted fields keep their current value."),
			mcp.WithString("fullName", mcp.Description("Full name")),
			mcp.WithString("headline", mcp.Description("Professional headline")),
			mcp.WithString("location", mcp.Description("City, country")),
			mcp.WithString("email", mcp.Description("Contact email")),
			mcp.WithString("linkedin", mcp.Description("LinkedIn profile URL")),
		),
		mcpUpdatePersonal(deps),
	)

	s.AddTool(
		mcp.NewTool("add_skill",
			mcp.WithDescription("Add a skill to the profile. Duplicates are ignored."),
			mcp.WithString("skill", mcp.Description("Skill name"), mcp.Required()),
		),
		mcpAddSkill(deps),
	)

	s.AddTool(
		mcp.NewTool("render_resume",
			mcp.WithDescription("Render the profile as a plain-text resume."),
			mcp.WithString("format", mcp.Description("txt (default) or ats"), mcp.Enum("txt", "ats")),
		),
		mcpRenderResume(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"profile://current",
			"Career Profile",
			mcp.WithResourceDescription("Current career profile as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"settings://current",
			"Account Settings",
			mcp.WithResourceDescription("Notification, privacy and security settings as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceSettings(deps),
	)

	return s
}

func mcpCompletionScore(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		report, err := deps.Profile.Completion()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to score profile: %v", err)), nil
		}

		var missing []string
		for _, it := range report.Items {
			if !it.Satisfied {
				missing = append(missing, fmt.Sprintf("%s (+%d)", it.Label, it.Weight))
			}
		}
		text := fmt.Sprintf("Profile is %d%% complete.", report.Score)
		if len(missing) > 0 {
			text += " Missing: " + strings.Join(missing, ", ") + "."
		}
		return mcpText(text), nil
	}
}

func mcpUpdatePersonal(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var patch profile.PersonalPatch
		if err := req.BindArguments(&patch); err != nil {
			return mcpError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if err := deps.Profile.PatchPersonal(patch); err != nil {
			return mcpError(fmt.Sprintf("failed to update profile: %v", err)), nil
		}

		report, err := deps.Profile.Completion()
		if err != nil {
			return mcpText("Updated personal info."), nil
		}
		return mcpText(fmt.Sprintf("Updated personal info. Profile is %d%% complete.", report.Score)), nil
	}
}

func mcpAddSkill(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		skill, err := req.RequireString("skill")
		if err != nil {
			return mcpError("skill is required"), nil
		}

		err = deps.Profile.AddSkill(skill)
		if errors.Is(err, profile.ErrEmptySkill) {
			return mcpError("skill is required"), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to add skill: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Added skill %s", strings.TrimSpace(skill))), nil
	}
}

func mcpRenderResume(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := deps.Profile.GetProfile()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get profile: %v", err)), nil
		}
		switch format := req.GetString("format", "txt"); format {
		case "txt", "":
			return mcpText(profile.RenderResume(p)), nil
		case "ats":
			return mcpText(profile.RenderATS(p)), nil
		default:
			return mcpError(fmt.Sprintf("unsupported format %q", format)), nil
		}
	}
}

func mcpResourceProfile(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		p, err := deps.Profile.GetProfile()
		if err != nil {
			return nil, fmt.Errorf("failed to get profile: %w", err)
		}
		return jsonResource(req.Params.URI, p)
	}
}

func mcpResourceSettings(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		s, err := deps.Settings.Get()
		if err != nil {
			return nil, fmt.Errorf("failed to get settings: %w", err)
		}
		return jsonResource(req.Params.URI, s)
	}
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
