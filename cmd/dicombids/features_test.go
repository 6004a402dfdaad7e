package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/mrsinham/dicombids/internal/batch"
	"github.com/mrsinham/dicombids/internal/dicom/dicomtest"
)

// world is the state of one scenario: a scratch tree and the last run.
type world struct {
	tmpDir   string
	args     []string
	exitCode int
	stdout   string
	output   string
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "dicombids",
		ScenarioInitializer: initScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if status := suite.Run(); status != 0 {
		t.Fatalf("feature suite exited with status %d", status)
	}
}

func initScenario(sc *godog.ScenarioContext) {
	w := &world{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		tmpDir, err := os.MkdirTemp("", "dicombids-e2e-*")
		if err != nil {
			return ctx, err
		}
		*w = world{tmpDir: tmpDir}
		return ctx, nil
	})

	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		if w.tmpDir != "" {
			_ = os.RemoveAll(w.tmpDir)
		}
		return ctx, nil
	})

	sc.Step(`^a session "([^"]*)" with series:$`, w.aSessionWithSeries)
	sc.Step(`^a file "([^"]*)" with:$`, w.aFileWith)
	sc.Step(`^I run dicombids with "([^"]*)"$`, w.iRunDicombidsWith)
	sc.Step(`^the exit code should be (\d+)$`, w.theExitCodeShouldBe)
	sc.Step(`^the output should contain "(.*)"$`, w.theOutputShouldContain)
	sc.Step(`^"([^"]*)" should exist$`, w.shouldExist)
	sc.Step(`^"([^"]*)" should not exist$`, w.shouldNotExist)
	sc.Step(`^the standard output should hold (\d+) documents$`, w.stdoutShouldHoldDocuments)
	sc.Step(`^the document "([^"]*)" should map (\d+) series$`, w.theDocumentShouldMap)
	sc.Step(`^the document "([^"]*)" should contain "([^"]*)"$`, w.theDocumentShouldContain)
	sc.Step(`^the document "([^"]*)" should not contain "([^"]*)"$`, w.theDocumentShouldNotContain)
	sc.Step(`^running the same command again should produce identical output$`, w.rerunShouldMatch)
}

func (w *world) expand(s string) string {
	return strings.ReplaceAll(s, "{tmpdir}", w.tmpDir)
}

// seriesKinds are the fixtures a feature table may name.
var seriesKinds = map[string]func() dicomtest.Series{
	"T1w": func() dicomtest.Series {
		s := dicomtest.T1w()
		s.Pixels = true
		return s
	},
	"bold-rest": func() dicomtest.Series { return dicomtest.Bold("Resting", 1, 1) },
	"bold-task": func() dicomtest.Series { return dicomtest.Bold("Task", 1, 1) },
	"bold-incomplete": func() dicomtest.Series {
		s := dicomtest.Bold("Task", 1, 1)
		s.Files = 2
		return s
	},
	"physio-rest": func() dicomtest.Series { return dicomtest.Physio("Resting_PhysioLog") },
	"fmap-mag1":   func() dicomtest.Series { return dicomtest.Fieldmap("M", 1) },
	"fmap-mag2":   func() dicomtest.Series { return dicomtest.Fieldmap("M", 2) },
	"fmap-phase":  func() dicomtest.Series { return dicomtest.Fieldmap("P", 2) },
	"t2star":      func() dicomtest.Series { return dicomtest.T2star("M", 1) },
	"dwi":         dicomtest.Diffusion,
}

func (w *world) aSessionWithSeries(session string, table *godog.Table) error {
	root := filepath.Join(w.tmpDir, session)
	for i, row := range table.Rows {
		if i == 0 {
			continue
		}
		name, kind := row.Cells[0].Value, row.Cells[1].Value
		dir := filepath.Join(root, name)

		switch kind {
		case "not-dicom":
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(dir, "screenshot.txt"), []byte("not a dicom"), 0o644); err != nil {
				return err
			}
		case "nested":
			if err := os.MkdirAll(filepath.Join(dir, "nested"), 0o755); err != nil {
				return err
			}
		default:
			fixture, ok := seriesKinds[kind]
			if !ok {
				return fmt.Errorf("unknown series kind %q", kind)
			}
			if err := dicomtest.WriteSeries(dir, fixture()); err != nil {
				return fmt.Errorf("write %s: %w", name, err)
			}
		}
	}
	return nil
}

func (w *world) aFileWith(name string, content *godog.DocString) error {
	return os.WriteFile(filepath.Join(w.tmpDir, name), []byte(content.Content), 0o644)
}

// run executes the root command in-process, the way main does.
func (w *world) run(args []string) (stdout, stderr string, code int) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	code = 0
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(&errOut, "Error: %v\n", err)
		code = 1
	}
	return out.String(), errOut.String(), code
}

func (w *world) iRunDicombidsWith(args string) error {
	w.args = splitArgs(w.expand(args))
	stdout, stderr, code := w.run(w.args)
	w.stdout = stdout
	w.output = stdout + stderr
	w.exitCode = code
	return nil
}

func (w *world) theExitCodeShouldBe(expected int) error {
	if w.exitCode != expected {
		return fmt.Errorf("expected exit code %d, got %d\nOutput:\n%s", expected, w.exitCode, w.output)
	}
	return nil
}

func (w *world) theOutputShouldContain(expected string) error {
	expected = strings.ReplaceAll(w.expand(expected), `\"`, `"`)
	if !strings.Contains(w.output, expected) {
		return fmt.Errorf("output does not contain %q\nOutput:\n%s", expected, w.output)
	}
	return nil
}

func (w *world) shouldExist(path string) error {
	path = w.expand(path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("path does not exist: %s\nOutput:\n%s", path, w.output)
	}
	return nil
}

func (w *world) shouldNotExist(path string) error {
	path = w.expand(path)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("path exists: %s\nOutput:\n%s", path, w.output)
	}
	return nil
}

func (w *world) stdoutShouldHoldDocuments(count int) error {
	docs, err := batch.ParseAll([]byte(w.stdout), "stdout")
	if err != nil {
		return fmt.Errorf("decode stdout: %w\n%s", err, w.stdout)
	}
	if len(docs) != count {
		return fmt.Errorf("expected %d documents, got %d\n%s", count, len(docs), w.stdout)
	}
	return nil
}

func (w *world) theDocumentShouldMap(path string, count int) error {
	doc, err := batch.Load(w.expand(path))
	if err != nil {
		return err
	}
	if len(doc.Files) != count {
		return fmt.Errorf("expected %d files, got %d\nOutput:\n%s", count, len(doc.Files), w.output)
	}
	return nil
}

func (w *world) readDocument(path string) (string, error) {
	data, err := os.ReadFile(w.expand(path))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (w *world) theDocumentShouldContain(path, expected string) error {
	content, err := w.readDocument(path)
	if err != nil {
		return err
	}
	if !strings.Contains(content, w.expand(expected)) {
		return fmt.Errorf("document does not contain %q\n%s", w.expand(expected), content)
	}
	return nil
}

func (w *world) theDocumentShouldNotContain(path, unexpected string) error {
	content, err := w.readDocument(path)
	if err != nil {
		return err
	}
	if strings.Contains(content, w.expand(unexpected)) {
		return fmt.Errorf("document contains %q\n%s", w.expand(unexpected), content)
	}
	return nil
}

func (w *world) rerunShouldMatch() error {
	stdout, _, code := w.run(w.args)
	if code != 0 {
		return fmt.Errorf("second run exited with %d", code)
	}
	if stdout != w.stdout {
		return fmt.Errorf("output differs between runs:\n%s\n---\n%s", w.stdout, stdout)
	}
	return nil
}

// splitArgs splits a command line on blanks. Double quotes group words and
// are dropped; no shell expansion happens, so globs reach the command as typed.
func splitArgs(line string) []string {
	var (
		args   []string
		word   strings.Builder
		quoted bool
		inWord bool
	)
	flush := func() {
		if inWord {
			args = append(args, word.String())
			word.Reset()
			inWord = false
		}
	}
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			inWord = true
		case (r == ' ' || r == '\t') && !quoted:
			flush()
		default:
			word.WriteRune(r)
			inWord = true
		}
	}
	flush()
	return args
}
