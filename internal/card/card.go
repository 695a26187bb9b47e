// Package card renders a candidate profile as a terminal card
package card

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/Kavirubc/cofound/internal/gesture"
	"github.com/Kavirubc/cofound/pkg/models"
)

const maxSkills = 3

// View is the presentation state of the top card. Expanding is purely
// local and never touches the queue.
type View struct {
	Expanded  bool
	UseColors bool
}

// Toggle flips between the summary and the full profile
func (v *View) Toggle() {
	v.Expanded = !v.Expanded
}

// Render writes c to w. The summary shows name, role, location, idea,
// the first skills and what the candidate is looking for; the expanded
// view adds bio, experience, education and achievements.
func (v View) Render(w io.Writer, c models.Candidate) {
	title := color.New(color.Bold, color.FgWhite)
	label := color.New(color.FgCyan)
	if !v.UseColors {
		title.DisableColor()
		label.DisableColor()
	}

	name := c.Name()
	if name == "" {
		name = "Unnamed"
	}
	title.Fprintln(w, name)
	if role := c.String("role"); role != "" {
		fmt.Fprintln(w, role)
	}
	if loc := c.Location(); loc != "" {
		fmt.Fprintf(w, "📍 %s\n", loc)
	}

	section(w, label, "Startup idea", c.String("startupIdea"))

	if skills := c.Strings("skills"); len(skills) > 0 {
		shown := skills[:min(len(skills), maxSkills)]
		line := strings.Join(shown, " · ")
		if extra := len(skills) - len(shown); extra > 0 {
			line += fmt.Sprintf(" +%d", extra)
		}
		section(w, label, "Skills", line)
	}

	section(w, label, "Looking for", c.String("lookingFor"))

	if !v.Expanded {
		return
	}

	section(w, label, "About", c.String("bio"))
	list(w, label, "Experience", entries(c, "experiences", experienceLine))
	list(w, label, "Education", entries(c, "education", educationLine))
	list(w, label, "Achievements", c.Strings("accomplishment_projects"))
}

// Overlay labels the card while it is being dragged past a threshold
func Overlay(state gesture.State, threshold float64) string {
	switch {
	case state.Pending != nil:
		return stamp(state.Pending.Kind)
	case state.Phase != gesture.Dragging:
		return ""
	case state.Displacement.X >= threshold:
		return stamp(models.Accept)
	case state.Displacement.X <= -threshold:
		return stamp(models.Reject)
	}
	return ""
}

func stamp(kind models.DecisionKind) string {
	switch kind {
	case models.Reject:
		return "PASS"
	case models.Accept:
		return "INTERESTED"
	case models.SuperAccept:
		return "SUPER"
	}
	return ""
}

// Stack renders the names of the cards waiting behind the top one
func Stack(w io.Writer, upcoming []models.Candidate) {
	if len(upcoming) == 0 {
		return
	}
	names := make([]string, len(upcoming))
	for i, c := range upcoming {
		names[i] = c.Name()
		if names[i] == "" {
			names[i] = c.ID
		}
	}
	fmt.Fprintf(w, "Up next: %s\n", strings.Join(names, ", "))
}

func section(w io.Writer, label *color.Color, name, body string) {
	if body == "" {
		return
	}
	label.Fprintf(w, "\n%s\n", name)
	fmt.Fprintln(w, body)
}

func list(w io.Writer, label *color.Color, name string, items []string) {
	if len(items) == 0 {
		return
	}
	label.Fprintf(w, "\n%s\n", name)
	for _, it := range items {
		fmt.Fprintf(w, "  • %s\n", it)
	}
}

func entries(c models.Candidate, key string, format func(map[string]any) string) []string {
	raw, ok := c.Fields[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if s := format(m); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func experienceLine(m map[string]any) string {
	title, company := str(m["title"]), str(m["company"])
	switch {
	case title != "" && company != "":
		return title + " at " + company
	case title != "":
		return title
	default:
		return company
	}
}

func educationLine(m map[string]any) string {
	school := str(m["school"])
	degree := strings.TrimSpace(str(m["degree_name"]) + " " + str(m["field_of_study"]))
	switch {
	case school != "" && degree != "":
		return degree + ", " + school
	case school != "":
		return school
	default:
		return degree
	}
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
