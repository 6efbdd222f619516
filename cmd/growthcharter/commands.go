package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kalambet/growthcharter/internal/account"
	"github.com/kalambet/growthcharter/internal/config"
	"github.com/kalambet/growthcharter/internal/filesync"
	"github.com/kalambet/growthcharter/internal/profile"
	"github.com/kalambet/growthcharter/internal/settings"
)

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage your career profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/profile")
		if err != nil {
			return err
		}

		var p profile.Profile
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

// personalFields are the keys accepted by PATCH /profile/personal.
var personalFields = []string{"fullName", "headline", "location", "email", "linkedin"}

var mediaFields = []string{"avatarUrl", "bannerUrl"}

var profileSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set a single profile field",
	Long: `Set a single profile field.

Fields: fullName, headline, location, email, linkedin, avatarUrl, bannerUrl.
Pass an empty string to clear a field.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		field, value := args[0], args[1]
		if !slices.Contains(personalFields, field) && !slices.Contains(mediaFields, field) {
			return fmt.Errorf("unknown profile field %q (valid: %s)", field,
				strings.Join(append(slices.Clone(personalFields), mediaFields...), ", "))
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		var p profile.Profile
		if slices.Contains(personalFields, field) {
			resp, err := client.patch(ctx, "/profile/personal", map[string]string{field: value})
			if err != nil {
				return err
			}
			if err := decodeJSON(resp, &p); err != nil {
				return err
			}
		} else {
			resp, err := client.get(ctx, "/profile")
			if err != nil {
				return err
			}
			if err := decodeJSON(resp, &p); err != nil {
				return err
			}
			media := map[string]string{"avatarUrl": p.AvatarURL, "bannerUrl": p.BannerURL}
			media[field] = value
			resp, err = client.put(ctx, "/profile/media", media)
			if err != nil {
				return err
			}
			if err := decodeJSON(resp, &p); err != nil {
				return err
			}
		}

		printSuccess("Set %s = %s", field, value)
		return nil
	},
}

var profileEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open profile JSON in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		resp, err := client.get(ctx, "/profile")
		if err != nil {
			return err
		}
		var p profile.Profile
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}

		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return err
		}

		tmpFile, err := os.CreateTemp("", "growthcharter-profile-*.json")
		if err != nil {
			return fmt.Errorf("creating temp file: %w", err)
		}
		tmpPath := tmpFile.Name()
		defer os.Remove(tmpPath)

		if _, err := tmpFile.Write(data); err != nil {
			tmpFile.Close()
			return err
		}
		tmpFile.Close()

		editorCmd := exec.Command(editor, tmpPath)
		editorCmd.Stdin = os.Stdin
		editorCmd.Stdout = os.Stdout
		editorCmd.Stderr = os.Stderr
		if err := editorCmd.Run(); err != nil {
			return fmt.Errorf("editor exited with error: %w", err)
		}

		edited, err := os.ReadFile(tmpPath)
		if err != nil {
			return err
		}
		updated, err := filesync.Parse(tmpPath, edited)
		if err != nil {
			return err
		}

		if err := putProfile(ctx, client, updated); err != nil {
			return err
		}
		printSuccess("Profile updated")
		return nil
	},
}

var profileScoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Show the profile completion score and checklist",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/profile/completion")
		if err != nil {
			return err
		}
		var report profile.Report
		if err := decodeJSON(resp, &report); err != nil {
			return err
		}

		printReport(cmd.OutOrStdout(), report)
		return nil
	},
}

var profileResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Render the profile as a plain-text resume",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		if format != "txt" && format != "ats" {
			return fmt.Errorf("unsupported format %q (want txt or ats)", format)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/profile/resume?format="+url.QueryEscape(format))
		if err != nil {
			return err
		}

		if output == "" {
			return copyBody(resp, cmd.OutOrStdout())
		}
		if err := writeFile(output, resp); err != nil {
			return err
		}
		printSuccess("Resume written to %s", output)
		return nil
	},
}

var profileImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the profile with a JSON or YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := args[0]
		if err := filesync.SyncOnce(path, &remoteTarget{ctx: cmd.Context(), client: client}); err != nil {
			return fmt.Errorf("importing %s: %w", path, err)
		}
		printSuccess("Imported profile from %s", path)
		return nil
	},
}

var profileSyncCmd = &cobra.Command{
	Use:   "sync <file>",
	Short: "Watch a JSON or YAML profile file and push every change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		w := filesync.New(path, &remoteTarget{ctx: ctx, client: client},
			filesync.WithSyncHook(func(err error) {
				if err != nil {
					printError("sync failed: %v", err)
					return
				}
				printSuccess("Synced %s", path)
			}))

		printStep("Watching %s (Ctrl-C to stop)", path)
		return w.Run(ctx)
	},
}

func init() {
	profileResumeCmd.Flags().String("format", "txt", "resume layout: txt or ats")
	profileResumeCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")

	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileEditCmd)
	profileCmd.AddCommand(profileScoreCmd)
	profileCmd.AddCommand(profileResumeCmd)
	profileCmd.AddCommand(profileImportCmd)
	profileCmd.AddCommand(profileSyncCmd)
}

// remoteTarget replaces the profile held by a running server.
type remoteTarget struct {
	ctx    context.Context
	client *apiClient
}

func (t *remoteTarget) Replace(p profile.Profile) error {
	return putProfile(t.ctx, t.client, p)
}

func putProfile(ctx context.Context, client *apiClient, p profile.Profile) error {
	resp, err := client.put(ctx, "/profile", p)
	if err != nil {
		return err
	}
	var saved profile.Profile
	return decodeJSON(resp, &saved)
}

func printReport(w io.Writer, report profile.Report) {
	fmt.Fprintf(w, "%s %s %d%%\n\n", colorize(styleBold, "Profile completion"), scoreBar(report.Score, 20), report.Score)
	for _, item := range report.Items {
		mark := colorize(styleSuccess, "✓")
		if !item.Satisfied {
			mark = colorize(styleMuted, "·")
		}
		fmt.Fprintf(w, "  %s %-20s %3d%%\n", mark, item.Label, item.Weight)
	}
}

// --- skills ---

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "List, add or remove skills",
}

var skillsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List skills",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/profile")
		if err != nil {
			return err
		}
		var p profile.Profile
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}

		if len(p.Skills) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No skills yet.")
			return nil
		}
		for _, s := range p.Skills {
			fmt.Fprintln(cmd.OutOrStdout(), s)
		}
		return nil
	},
}

var skillsAddCmd = &cobra.Command{
	Use:   "add <skill>...",
	Short: "Add one or more skills",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		for _, skill := range args {
			resp, err := client.post(cmd.Context(), "/profile/skills", map[string]string{"skill": skill})
			if err != nil {
				return err
			}
			var p profile.Profile
			if err := decodeJSON(resp, &p); err != nil {
				return fmt.Errorf("adding %q: %w", skill, err)
			}
			printSuccess("Added %s", skill)
		}
		return nil
	},
}

var skillsRemoveCmd = &cobra.Command{
	Use:   "remove <skill>",
	Short: "Remove a skill",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/profile/skills/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var p profile.Profile
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}
		printSuccess("Removed %s", args[0])
		return nil
	},
}

func init() {
	skillsCmd.AddCommand(skillsListCmd)
	skillsCmd.AddCommand(skillsAddCmd)
	skillsCmd.AddCommand(skillsRemoveCmd)
}

// --- settings ---

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or update account settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show account settings as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/settings")
		if err != nil {
			return err
		}
		var s settings.Settings
		if err := decodeJSON(resp, &s); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), s)
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one account setting",
	Long: `Set one account setting.

Keys: ` + strings.Join(settingKeys, ", "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if !slices.Contains(settingKeys, key) {
			return fmt.Errorf("unknown setting %q (valid: %s)", key, strings.Join(settingKeys, ", "))
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		resp, err := client.get(ctx, "/settings")
		if err != nil {
			return err
		}
		var cur settings.Settings
		if err := decodeJSON(resp, &cur); err != nil {
			return err
		}

		patch, err := settingPatch(cur, key, value)
		if err != nil {
			return err
		}
		resp, err = client.patch(ctx, "/settings", patch)
		if err != nil {
			return err
		}
		if err := decodeJSON(resp, &cur); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

var settingKeys = []string{
	"email",
	"phone",
	"notifications.email",
	"notifications.push",
	"notifications.marketing",
	"privacy.profileVisible",
	"privacy.showEmail",
	"privacy.showPhone",
	"security.twoFactor",
	"security.lastPasswordChange",
}

// settingPatch builds the patch that changes key to value. Sections are
// replaced whole on the server, so the patch carries the full section
// taken from cur.
func settingPatch(cur settings.Settings, key, value string) (settings.Patch, error) {
	var patch settings.Patch

	section, field, _ := strings.Cut(key, ".")
	switch section {
	case "email":
		patch.Email = &value
		return patch, nil
	case "phone":
		patch.Phone = &value
		return patch, nil
	case "security":
		if field == "lastPasswordChange" {
			sec := cur.Security
			sec.LastPasswordChange = value
			patch.Security = &sec
			return patch, nil
		}
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return patch, fmt.Errorf("%s expects true or false, got %q", key, value)
	}

	switch key {
	case "notifications.email", "notifications.push", "notifications.marketing":
		n := cur.Notifications
		switch field {
		case "email":
			n.Email = b
		case "push":
			n.Push = b
		case "marketing":
			n.Marketing = b
		}
		patch.Notifications = &n
	case "privacy.profileVisible", "privacy.showEmail", "privacy.showPhone":
		p := cur.Privacy
		switch field {
		case "profileVisible":
			p.ProfileVisible = b
		case "showEmail":
			p.ShowEmail = b
		case "showPhone":
			p.ShowPhone = b
		}
		patch.Privacy = &p
	case "security.twoFactor":
		sec := cur.Security
		sec.TwoFactor = b
		patch.Security = &sec
	default:
		return patch, fmt.Errorf("unknown setting %q", key)
	}
	return patch, nil
}

// --- data ---

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Export or delete your data",
}

var dataExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export profile and settings as one JSON document",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/export")
		if err != nil {
			return err
		}
		if output == "-" {
			return copyBody(resp, cmd.OutOrStdout())
		}
		if err := writeFile(output, resp); err != nil {
			return err
		}
		printSuccess("Data exported to %s", output)
		return nil
	},
}

var dataDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the profile and settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete your profile and settings. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Deleting account data...")
		resp, err := client.delete(cmd.Context(), "/account")
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Account data deleted")
		return nil
	},
}

func init() {
	dataExportCmd.Flags().StringP("output", "o", account.ExportFileName, `output file path ("-" for stdout)`)
	dataDeleteCmd.Flags().Bool("confirm", false, "confirm deletion")
	dataCmd.AddCommand(dataExportCmd)
	dataCmd.AddCommand(dataDeleteCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(styleBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}

		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeFile stores a successful response body at path.
func writeFile(path string, resp *http.Response) error {
	f, err := os.Create(path)
	if err != nil {
		resp.Body.Close()
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := copyBody(resp, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
