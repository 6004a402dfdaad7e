// Package config loads the optional project file that tunes how series are mapped.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/mrsinham/dicombids/internal/bids"
	"github.com/mrsinham/dicombids/internal/errs"
)

// EnvPath names the environment variable holding the project file path.
const EnvPath = "DICOMBIDS_CONFIG"

// Config is the project configuration. Zero subject/session indices mean
// "detect from the input path".
type Config struct {
	Subject      int    `yaml:"subject,omitempty"`
	SubjectLabel string `yaml:"subject_label,omitempty"`
	Session      int    `yaml:"session,omitempty"`
	SessionLabel string `yaml:"session_label,omitempty"`
	Precision    int    `yaml:"precision"`

	OutputDir string `yaml:"output_dir"`
	ConfigDir string `yaml:"config_dir"`

	SkipIncomplete bool     `yaml:"skip_incomplete"`
	SkipFieldmaps  bool     `yaml:"skip_fieldmaps"`
	Ignore         []string `yaml:"ignore"`
	Discover       string   `yaml:"discover,omitempty"`

	Options Options       `yaml:"options"`
	Tasks   []TaskMapping `yaml:"tasks"`
	Rules   []Rule        `yaml:"rules,omitempty"`
}

// Options mirrors the converter options block of a batch document.
type Options struct {
	IsGz             bool `yaml:"isGz"`
	IsFlipY          bool `yaml:"isFlipY"`
	IsVerbose        bool `yaml:"isVerbose"`
	IsCreateBIDS     bool `yaml:"isCreateBIDS"`
	IsOnlySingleFile bool `yaml:"isOnlySingleFile"`
}

// TaskMapping maps a SeriesDescription substring to a task label. Without a
// task, the label is derived from Match.
type TaskMapping struct {
	Match string `yaml:"match"`
	Task  string `yaml:"task,omitempty"`
}

// Label returns Task, or Match folded to a BIDS label ("N-Back Test" gives "NBackTest").
func (t TaskMapping) Label() string {
	if t.Task != "" {
		return t.Task
	}
	return bids.SanitizeLabel(t.Match)
}

// Rule maps series directories whose name matches a doublestar pattern
// (case-insensitive) to a datatype and suffix.
type Rule struct {
	Match       string `yaml:"match"`
	Datatype    string `yaml:"datatype"`
	Suffix      string `yaml:"suffix"`
	Task        string `yaml:"task,omitempty"`
	Acquisition string `yaml:"acq,omitempty"`
	Direction   string `yaml:"dir,omitempty"`
	Run         int    `yaml:"run,omitempty"`
}

// Default returns the configuration used when no project file is given.
func Default() Config {
	return Config{
		Precision:      bids.DefaultPrecision,
		OutputDir:      "./out/",
		ConfigDir:      ".",
		SkipIncomplete: true,
		Ignore:         []string{"*localizer*"},
		Options: Options{
			IsGz:         true,
			IsCreateBIDS: true,
		},
		Tasks: []TaskMapping{
			{Match: "Resting", Task: "rest"},
			{Match: "Task", Task: "stroop"},
		},
	}
}

// Path returns flagValue, or the EnvPath variable when flagValue is empty.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvPath)
}

// Load reads the project file at path over Default(). An empty path returns
// the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	const op = "config.Load"
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errs.New(op, errs.KindInvalidConfig, path, fmt.Errorf("read file: %w", err))
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errs.New(op, errs.KindInvalidConfig, path, fmt.Errorf("strict config parse error: %w", err))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Config{}, errs.New(op, errs.KindInvalidConfig, path, errors.New("config file contains multiple documents or trailing content"))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, errs.New(op, errs.KindInvalidConfig, path, err)
	}
	return cfg, nil
}

// Validate checks indices, labels, tasks and rules.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Precision < 1 || c.Precision > 9 {
		add("precision %d out of range 1..9", c.Precision)
	}
	if c.Subject < 0 || c.Session < 0 {
		add("subject and session indices must not be negative")
	}
	for _, l := range []string{c.SubjectLabel, c.SessionLabel} {
		if err := bids.CheckLabel(l); err != nil {
			add("%v", err)
		}
	}
	for _, p := range c.Ignore {
		if !doublestar.ValidatePattern(p) {
			add("ignore: bad pattern %q", p)
		}
	}
	if c.Discover != "" && !doublestar.ValidatePattern(c.Discover) {
		add("discover: bad pattern %q", c.Discover)
	}

	for i, t := range c.Tasks {
		if t.Match == "" {
			add("tasks[%d]: match is empty", i)
		}
		if err := bids.CheckLabel(t.Task); err != nil {
			add("tasks[%d]: %v", i, err)
		} else if t.Match != "" && t.Label() == "" {
			add("tasks[%d]: no task given and match %q has no letters or digits to derive one", i, t.Match)
		}
	}

	for i, r := range c.Rules {
		if r.Match == "" || !doublestar.ValidatePattern(r.Match) {
			add("rules[%d]: bad match pattern %q", i, r.Match)
		}
		dt, ok := bids.ParseDatatype(r.Datatype)
		if !ok {
			add("rules[%d]: unknown datatype %q", i, r.Datatype)
		} else if !dt.AllowsSuffix(r.Suffix) {
			add("rules[%d]: suffix %q is not valid for %s", i, r.Suffix, dt)
		}
		if dt == bids.Func && r.Task == "" {
			add("rules[%d]: functional rules need a task", i)
		}
		for _, l := range []string{r.Task, r.Acquisition, r.Direction} {
			if err := bids.CheckLabel(l); err != nil {
				add("rules[%d]: %v", i, err)
			}
		}
		if r.Run < 0 {
			add("rules[%d]: run must not be negative", i)
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// TaskFor returns the task label of the first mapping whose match occurs in description.
func (c Config) TaskFor(description string) (string, bool) {
	for _, t := range c.Tasks {
		if strings.Contains(description, t.Match) {
			return t.Label(), true
		}
	}
	return "", false
}
