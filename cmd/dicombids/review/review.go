// Package review lets the operator correct a session plan before it is written.
package review

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/dicombids/internal/batch"
	"github.com/mrsinham/dicombids/internal/bids"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// Choices are the answers of the review form.
type Choices struct {
	Subject string   // subject index
	Session string   // session index
	Keep    []string // series directory names to keep
	Confirm bool
}

// Defaults returns the choices that leave plan unchanged.
func Defaults(plan *batch.Plan) Choices {
	e := plan.Namer.Entities()
	c := Choices{
		Subject: indexText(e.Subject),
		Session: indexText(e.Session),
		Confirm: true,
	}
	for _, entry := range plan.Entries {
		c.Keep = append(c.Keep, entry.Series.Name)
	}
	return c
}

func indexText(e bids.Entity) string {
	if !e.Indexed {
		return ""
	}
	return strconv.Itoa(e.Index)
}

func validIndex(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return errors.New("enter a non-negative number")
	}
	return nil
}

// Apply renames and filters plan according to c.
func Apply(plan *batch.Plan, c Choices) error {
	e := plan.Namer.Entities()
	var err error
	if e.Subject, err = withIndex(e.Subject, c.Subject); err != nil {
		return fmt.Errorf("subject: %w", err)
	}
	if e.Session, err = withIndex(e.Session, c.Session); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	n, err := bids.NewNamer(e, plan.Namer.Precision())
	if err != nil {
		return err
	}
	plan.SetNamer(n)

	var drop []string
	for _, entry := range plan.Entries {
		if !slices.Contains(c.Keep, entry.Series.Name) {
			drop = append(drop, entry.Series.Name)
		}
	}
	for _, name := range drop {
		plan.Deselect(name)
	}
	return nil
}

func withIndex(e bids.Entity, text string) (bids.Entity, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return bids.Entity{Label: e.Label}, nil
	}
	if err := validIndex(text); err != nil {
		return e, err
	}
	n, _ := strconv.Atoi(text)
	return bids.LabelIndex(e.Label, n), nil
}

func newForm(plan *batch.Plan, c *Choices) *huh.Form {
	options := make([]huh.Option[string], 0, len(plan.Entries))
	for _, entry := range plan.Entries {
		label := fmt.Sprintf("%s → %s/%s", entry.Series.Name, entry.Classification.Datatype, entry.File.Filename)
		options = append(options, huh.NewOption(label, entry.Series.Name).Selected(true))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title(titleStyle.Render("Review "+plan.Input)).
				Description(subtitleStyle.Render(fmt.Sprintf("%d series mapped, %d excluded", len(plan.Entries), len(plan.Excluded)))),
			huh.NewInput().
				Title("Subject index").
				Value(&c.Subject).
				Validate(validIndex),
			huh.NewInput().
				Title("Session index").
				Value(&c.Session).
				Validate(validIndex),
		),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Series to convert").
				Options(options...).
				Value(&c.Keep),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Write the batch document?").
				Affirmative("Write").
				Negative("Skip").
				Value(&c.Confirm),
		),
	).WithProgramOptions(tea.WithAltScreen())
}

// Run shows the review form and applies the answers to plan. It returns false
// when the operator aborts or declines.
func Run(plan *batch.Plan) (bool, error) {
	c := Defaults(plan)
	if err := newForm(plan, &c).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("running review: %w", err)
	}
	if !c.Confirm {
		return false, nil
	}
	if err := Apply(plan, c); err != nil {
		return false, err
	}
	return true, nil
}
