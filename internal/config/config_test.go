package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsinham/dicombids/internal/errs"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dicombids.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load(\"\") mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, cfg.Options.IsGz)
	assert.True(t, cfg.Options.IsCreateBIDS)
	assert.False(t, cfg.Options.IsFlipY)
	assert.True(t, cfg.SkipIncomplete)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
subject: 7
session_label: pre
precision: 3
skip_fieldmaps: true
ignore: ["*scout*", "phoenix*"]
options:
  isGz: false
  isCreateBIDS: true
tasks:
  - match: Nback
    task: nback
rules:
  - match: "*_SWI_*"
    datatype: anat
    suffix: T2starw
    acq: swi
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Subject)
	assert.Equal(t, "pre", cfg.SessionLabel)
	assert.Equal(t, 3, cfg.Precision)
	assert.True(t, cfg.SkipFieldmaps)
	assert.True(t, cfg.SkipIncomplete, "unset keys keep their default")
	assert.Equal(t, "./out/", cfg.OutputDir)
	assert.Equal(t, []string{"*scout*", "phoenix*"}, cfg.Ignore)
	assert.False(t, cfg.Options.IsGz)
	assert.Equal(t, []TaskMapping{{Match: "Nback", Task: "nback"}}, cfg.Tasks)
	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, "swi", cfg.Rules[0].Acquisition)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown key", "subjet: 3\n", "strict config parse error"},
		{"trailing document", "precision: 2\n---\nprecision: 3\n", "multiple documents"},
		{"precision", "precision: 0\n", "precision 0 out of range"},
		{"bad label", "subject_label: pre-op\n", "malformed BIDS label"},
		{"bad task", "tasks: [{match: Rest, task: rest_1}]\n", "tasks[0]"},
		{"underivable task", "tasks: [{match: '__'}]\n", "no task given"},
		{"unknown datatype", "rules: [{match: '*', datatype: perf, suffix: asl}]\n", `unknown datatype "perf"`},
		{"bad suffix", "rules: [{match: '*', datatype: anat, suffix: bold}]\n", `suffix "bold" is not valid for anat`},
		{"func without task", "rules: [{match: '*', datatype: func, suffix: bold}]\n", "need a task"},
		{"bad pattern", "ignore: ['[abc']\n", "bad pattern"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
			assert.True(t, errs.IsKind(err, errs.KindInvalidConfig), "kind of %v", err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errs.IsKind(err, errs.KindInvalidConfig))
}

func TestPath(t *testing.T) {
	t.Setenv(EnvPath, "/etc/dicombids.yaml")
	assert.Equal(t, "flag.yaml", Path("flag.yaml"))
	assert.Equal(t, "/etc/dicombids.yaml", Path(""))
}

func TestTaskFor(t *testing.T) {
	cfg := Default()
	tests := map[string]string{
		"Resting":           "rest",
		"Resting_PhysioLog": "rest",
		"Task_run1":         "stroop",
		"T1_MPRAGE":         "",
	}
	for desc, want := range tests {
		got, ok := cfg.TaskFor(desc)
		assert.Equal(t, want != "", ok, desc)
		assert.Equal(t, want, got, desc)
	}
}

func TestTaskFor_DerivedLabel(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
tasks:
  - match: "N-Back"
  - match: Émotion
  - match: Resting
    task: rest
`))
	require.NoError(t, err)

	tests := map[string]string{
		"fMRI_N-Back_run1": "NBack",
		"Émotion_faces":    "Emotion",
		"Resting_State":    "rest",
	}
	for desc, want := range tests {
		got, ok := cfg.TaskFor(desc)
		assert.True(t, ok, desc)
		assert.Equal(t, want, got, desc)
	}
	assert.Equal(t, "NBack", cfg.Tasks[0].Label())
}
