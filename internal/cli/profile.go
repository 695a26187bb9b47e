package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Kavirubc/cofound/internal/card"
	"github.com/Kavirubc/cofound/internal/github"
	"github.com/Kavirubc/cofound/internal/profile"
	"github.com/Kavirubc/cofound/internal/recommend"
	"github.com/Kavirubc/cofound/internal/session"
	"github.com/Kavirubc/cofound/pkg/models"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Profile management commands",
	}

	cmd.AddCommand(newProfileCreateCmd())
	cmd.AddCommand(newProfileUpdateCmd())
	cmd.AddCommand(newProfileShowCmd())
	cmd.AddCommand(newProfileLinkedInCmd())
	return cmd
}

func newProfileCreateCmd() *cobra.Command {
	var (
		file     string
		token    string
		links    []string
		projects int
		setup    models.ProfileSetup
		kind     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create your member profile and sign in",
		Long: `Creates a profile from flags or a YAML file (--file). Flags override
values from the file. A GitHub username is verified and added as a link.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			if file != "" {
				fromFile, err := loadSetupFile(file)
				if err != nil {
					return err
				}
				setup = mergeSetup(fromFile, setup)
			}
			if kind != "" {
				setup.ProfileType = models.ProfileType(strings.ToLower(kind))
			}
			extra, err := parseLinks(links)
			if err != nil {
				return err
			}
			setup.Links = append(setup.Links, extra...)

			if err := profile.NewValidator().Setup(&setup); err != nil {
				var verr *profile.ValidationError
				if errors.As(err, &verr) {
					printFieldErrors(a, verr)
					return fmt.Errorf("profile is incomplete")
				}
				return err
			}

			if setup.GitHubUsername != "" {
				if err := addGitHubLink(ctx, a, &setup); err != nil {
					return err
				}
			}

			if token == "" {
				token = os.Getenv(tokenEnv)
			}
			tokens := models.AuthTokens{AccessToken: token}
			client := a.client(&session.Session{Tokens: tokens})

			user, err := client.CreateUser(ctx, setup)
			if err != nil {
				return fmt.Errorf("failed to create profile: %w", err)
			}

			if projects > 0 && setup.GitHubUsername != "" {
				importProjects(ctx, a, client, user, setup.GitHubUsername, projects)
			}

			if _, err := a.sessions.Login(*user, tokens); err != nil {
				return err
			}

			a.printer.Success("Profile created for %s (%s)", displayName(user), user.ID)
			a.printer.Info("Run 'cofound browse' to start discovering co-founders.")
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&file, "file", "f", "", "YAML file with the profile fields")
	f.StringVar(&token, "token", "", "access token sent as a bearer token")
	f.StringVar(&setup.FullName, "name", "", "full name")
	f.StringVar(&setup.Email, "email", "", "email address")
	f.StringVar(&setup.Bio, "bio", "", "short bio")
	f.StringVar(&setup.StartupIdea, "idea", "", "your startup idea")
	f.StringVar(&setup.LookingFor, "looking-for", "", "who you are looking for")
	f.StringVar(&kind, "type", "", "profile type: founder, cofounder, mentor or investor")
	f.StringVar(&setup.LinkedInURL, "linkedin", "", "LinkedIn profile URL")
	f.StringVar(&setup.GitHubUsername, "github", "", "GitHub username")
	f.StringArrayVar(&links, "link", nil, "extra link as name=url (repeatable)")
	f.IntVar(&projects, "github-projects", 0, "import this many public GitHub repositories as projects")

	return cmd
}

func newProfileUpdateCmd() *cobra.Command {
	var (
		bio, idea, lookingFor string
		role, city, state     string
		skills                []string
		sets                  []string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update fields of your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			sess, err := a.requireSession()
			if err != nil {
				return err
			}

			fields := map[string]any{}
			f := cmd.Flags()
			for flag, pair := range map[string]struct {
				key   string
				value *string
			}{
				"bio":         {"bio", &bio},
				"idea":        {"startupIdea", &idea},
				"looking-for": {"lookingFor", &lookingFor},
				"role":        {"role", &role},
				"city":        {"city", &city},
				"state":       {"state", &state},
			} {
				if f.Changed(flag) {
					fields[pair.key] = *pair.value
				}
			}
			if f.Changed("skills") {
				fields["skills"] = skills
			}
			extra, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			for k, v := range extra {
				fields[k] = v
			}
			if len(fields) == 0 {
				return fmt.Errorf("nothing to update: pass at least one field flag")
			}

			user, err := a.client(sess).UpdateProfile(ctx, sess.UserID(), fields)
			if err != nil {
				return fmt.Errorf("failed to update profile: %w", err)
			}
			if err := a.sessions.UpdateUser(*user); err != nil {
				return err
			}

			keys := make([]string, 0, len(fields))
			for k := range fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			a.printer.Success("Updated %s", strings.Join(keys, ", "))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&bio, "bio", "", "short bio")
	f.StringVar(&idea, "idea", "", "your startup idea")
	f.StringVar(&lookingFor, "looking-for", "", "who you are looking for")
	f.StringVar(&role, "role", "", "current role")
	f.StringVar(&city, "city", "", "city")
	f.StringVar(&state, "state", "", "state or region")
	f.StringSliceVar(&skills, "skills", nil, "comma-separated skills")
	f.StringArrayVar(&sets, "set", nil, "any other field as key=value (repeatable)")

	return cmd
}

func newProfileShowCmd() *cobra.Command {
	var cached bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show your profile as others see it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			sess, err := a.requireSession()
			if err != nil {
				return err
			}

			user := &sess.User
			if !cached {
				fresh, err := a.client(sess).GetProfile(ctx, sess.UserID())
				if err != nil {
					a.printer.Warning("Showing cached profile: %v", err)
				} else {
					user = fresh
					if err := a.sessions.UpdateUser(*fresh); err != nil {
						a.logger.Warn("failed to refresh session", slog.String("error", err.Error()))
					}
				}
			}

			c, err := userCandidate(user)
			if err != nil {
				return err
			}
			view := card.View{Expanded: true, UseColors: a.printer.UseColors()}
			view.Render(a.printer.Out(), c)

			if len(user.Links) > 0 {
				a.printer.Header("Links")
				for _, l := range user.Links {
					a.printer.Print("%s: %s", l.Name, l.URL)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&cached, "cached", false, "do not contact the backend")
	return cmd
}

func newProfileLinkedInCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "linkedin <profile-url>",
		Short: "Preview what the service knows about a LinkedIn profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			id, err := profile.ExtractLinkedInID(args[0])
			if err != nil {
				return err
			}

			sess, _ := a.sessions.Load()
			p, err := a.client(sess).LinkedInProfile(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to fetch LinkedIn profile: %w", err)
			}

			a.printer.Header(p.FullName)
			if p.Role != "" {
				a.printer.Print("%s", p.Role)
			}
			if loc := strings.Trim(p.City+", "+p.State, ", "); loc != "" {
				a.printer.Print("%s", loc)
			}
			if len(p.Skills) > 0 {
				a.printer.Print("Skills: %s", strings.Join(p.Skills, ", "))
			}
			for _, e := range p.Experiences {
				a.printer.Print("  • %s at %s", e.Title, e.Company)
			}
			for _, e := range p.Education {
				a.printer.Print("  • %s", e.School)
			}
			return nil
		},
	}
}

// loadSetupFile reads a ProfileSetup from YAML (JSON also parses)
func loadSetupFile(path string) (models.ProfileSetup, error) {
	var setup models.ProfileSetup
	data, err := os.ReadFile(path)
	if err != nil {
		return setup, fmt.Errorf("failed to read profile file: %w", err)
	}
	if err := yaml.Unmarshal(data, &setup); err != nil {
		return setup, fmt.Errorf("failed to parse profile file: %w", err)
	}
	return setup, nil
}

// mergeSetup returns base with every non-empty field of override applied
func mergeSetup(base, override models.ProfileSetup) models.ProfileSetup {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&base.FullName, override.FullName)
	set(&base.Email, override.Email)
	set(&base.Bio, override.Bio)
	set(&base.StartupIdea, override.StartupIdea)
	set(&base.LookingFor, override.LookingFor)
	set(&base.LinkedInURL, override.LinkedInURL)
	set(&base.GitHubUsername, override.GitHubUsername)
	if override.ProfileType != "" {
		base.ProfileType = override.ProfileType
	}
	base.Links = append(base.Links, override.Links...)
	return base
}

// parseLinks parses name=url pairs
func parseLinks(raw []string) ([]models.Link, error) {
	links := make([]models.Link, 0, len(raw))
	for _, r := range raw {
		name, u, ok := strings.Cut(r, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid link %q: expected name=url", r)
		}
		links = append(links, models.Link{Name: strings.TrimSpace(name), URL: strings.TrimSpace(u)})
	}
	return links, nil
}

// parseAssignments parses key=value pairs
func parseAssignments(raw []string) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for _, r := range raw {
		k, v, ok := strings.Cut(r, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid assignment %q: expected key=value", r)
		}
		out[k] = v
	}
	return out, nil
}

// addGitHubLink verifies the username and records the profile link
func addGitHubLink(ctx context.Context, a *app, setup *models.ProfileSetup) error {
	gh, err := a.githubClient()
	if err != nil {
		a.printer.Warning("Skipping GitHub verification: %v", err)
		return nil
	}

	link, err := gh.ProfileLink(ctx, setup.GitHubUsername)
	switch {
	case errors.Is(err, github.ErrUserNotFound):
		return fmt.Errorf("githubUsername: no GitHub account named %q", setup.GitHubUsername)
	case err != nil:
		a.printer.Warning("Skipping GitHub verification: %v", err)
		return nil
	}

	for _, l := range setup.Links {
		if strings.EqualFold(l.URL, link.URL) {
			return nil
		}
	}
	setup.Links = append(setup.Links, link)
	return nil
}

// importProjects copies public repositories onto the new profile. Failure
// only warns: the profile already exists.
func importProjects(ctx context.Context, a *app, client *recommend.Client, user *models.User, username string, limit int) {
	gh, err := a.githubClient()
	if err != nil {
		a.printer.Warning("Skipping project import: %v", err)
		return
	}
	projects, err := gh.PublicProjects(ctx, username, limit)
	if err != nil || len(projects) == 0 {
		if err != nil {
			a.printer.Warning("Skipping project import: %v", err)
		}
		return
	}

	updated, err := client.UpdateProfile(ctx, user.ID, map[string]any{"accomplishment_projects": projects})
	if err != nil {
		a.printer.Warning("Failed to import projects: %v", err)
		return
	}
	*user = *updated
	a.printer.Info("Imported %d projects from GitHub", len(projects))
}

func printFieldErrors(a *app, verr *profile.ValidationError) {
	names := make([]string, 0, len(verr.Fields))
	for name := range verr.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a.printer.Error("%s", verr.Fields[name])
	}
}

// userCandidate presents a profile through the same card as candidates
func userCandidate(u *models.User) (models.Candidate, error) {
	var c models.Candidate
	data, err := json.Marshal(u)
	if err != nil {
		return c, fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("failed to decode profile: %w", err)
	}
	return c, nil
}
