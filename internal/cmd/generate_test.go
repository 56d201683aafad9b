package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prysmsh/tpsdk/internal/output"
	"github.com/prysmsh/tpsdk/pkg/codegen"
	"github.com/prysmsh/tpsdk/pkg/definition"
	"github.com/prysmsh/tpsdk/pkg/validate"
	"github.com/prysmsh/tpsdk/plugins/counter"
)

func counterDescription(t *testing.T) *definition.Description {
	t.Helper()
	d, err := counter.Description()
	if err != nil {
		t.Fatalf("Description err = %v", err)
	}
	return d
}

func invalidDescription(t *testing.T) *definition.Description {
	t.Helper()
	d := counterDescription(t)
	c := &d.Categories[0]
	c.Actions = append(c.Actions, c.Actions[0])
	return d
}

func never(string) (bool, error) { return false, nil }

func TestRunGenerate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	var buf bytes.Buffer
	w := output.NewWriterTo("table", &buf, &buf)
	opts := generateOptions{pkg: "counter", outDir: dir, sdkImport: codegen.DefaultSDKImport}

	if err := runGenerate(w, counterDescription(t), opts, never); err != nil {
		t.Fatalf("runGenerate err = %v", err)
	}
	entry, err := os.ReadFile(filepath.Join(dir, EntryFile))
	if err != nil {
		t.Fatalf("read entry.tp: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(entry, &doc); err != nil {
		t.Fatalf("entry.tp is not JSON: %v", err)
	}
	if doc["id"] != counter.ID {
		t.Errorf("entry.tp id = %v", doc["id"])
	}
	src, err := os.ReadFile(filepath.Join(dir, "counter_gen.go"))
	if err != nil {
		t.Fatalf("read generated source: %v", err)
	}
	if !bytes.Contains(src, []byte("package counter")) {
		t.Errorf("generated source:\n%s", src)
	}
	if !strings.Contains(buf.String(), "wrote") {
		t.Errorf("output = %q", buf.String())
	}

	err = runGenerate(w, counterDescription(t), opts, never)
	if err == nil || !strings.Contains(err.Error(), "--force") {
		t.Errorf("second run err = %v, want refusal", err)
	}

	var asked []string
	yes := func(path string) (bool, error) {
		asked = append(asked, path)
		return true, nil
	}
	if err := runGenerate(w, counterDescription(t), opts, yes); err != nil {
		t.Fatalf("confirmed run err = %v", err)
	}
	if len(asked) != 2 {
		t.Errorf("confirm asked for %v, want both files", asked)
	}

	opts.force = true
	if err := runGenerate(w, counterDescription(t), opts, never); err != nil {
		t.Errorf("forced run err = %v", err)
	}
}

func TestRunGenerateEntryOnly(t *testing.T) {
	dir := t.TempDir()
	w := output.NewWriterTo("quiet", &bytes.Buffer{}, &bytes.Buffer{})
	opts := generateOptions{pkg: "counter", outDir: dir, entryOnly: true}
	if err := runGenerate(w, counterDescription(t), opts, never); err != nil {
		t.Fatalf("runGenerate err = %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != EntryFile {
		t.Errorf("dir = %v, want only %s", entries, EntryFile)
	}
}

func TestRunGenerateWritesNothingOnFailure(t *testing.T) {
	tests := []struct {
		name string
		d    func(*testing.T) *definition.Description
		pkg  string
		is   error
	}{
		{"projection", counterDescription, "not-a-package", codegen.ErrProjection},
		{"validation", invalidDescription, "counter", validate.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			w := output.NewWriterTo("quiet", &bytes.Buffer{}, &bytes.Buffer{})
			err := runGenerate(w, tt.d(t), generateOptions{pkg: tt.pkg, outDir: dir}, never)
			if !errors.Is(err, tt.is) {
				t.Errorf("err = %v, want %v", err, tt.is)
			}
			if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("output directory created: %v", err)
			}
		})
	}
}

func TestRunGenerateKeepsPairConsistent(t *testing.T) {
	dir := t.TempDir()
	entryPath := filepath.Join(dir, EntryFile)
	if err := os.WriteFile(entryPath, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	// A non-empty directory in place of the source file makes its rename fail.
	blocker := filepath.Join(dir, "counter_gen.go")
	if err := os.MkdirAll(filepath.Join(blocker, "keep"), 0o755); err != nil {
		t.Fatal(err)
	}

	w := output.NewWriterTo("quiet", &bytes.Buffer{}, &bytes.Buffer{})
	opts := generateOptions{pkg: "counter", outDir: dir, force: true}
	if err := runGenerate(w, counterDescription(t), opts, never); err == nil {
		t.Fatal("runGenerate err = nil")
	}
	got, err := os.ReadFile(entryPath)
	if err != nil || string(got) != "old" {
		t.Errorf("entry.tp = %q, %v; want previous contents", got, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("dir = %v, want only %s and the blocker", entries, EntryFile)
	}
}

func TestRunValidate(t *testing.T) {
	var buf bytes.Buffer
	m, err := runValidate(output.NewWriterTo("table", &buf, &buf), counterDescription(t), false)
	if err != nil || m == nil {
		t.Fatalf("runValidate = %v, %v", m, err)
	}
	if !strings.Contains(buf.String(), counter.ID+" is valid") {
		t.Errorf("output = %q", buf.String())
	}

	buf.Reset()
	_, err = runValidate(output.NewWriterTo("json", &buf, &buf), invalidDescription(t), false)
	if !errors.Is(err, validate.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	var report validationReport
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("report is not JSON: %v\n%s", err, buf.String())
	}
	if report.Valid || len(report.Violations) == 0 {
		t.Fatalf("report = %+v", report)
	}
	found := false
	for _, v := range report.Violations {
		if v.Kind == string(validate.KindDuplicateID) && v.ID == counter.ActionIncrement {
			found = true
		}
	}
	if !found {
		t.Errorf("no duplicate-id violation for %s in %+v", counter.ActionIncrement, report.Violations)
	}
}

func TestEntityRows(t *testing.T) {
	rows := entityRows(counterDescription(t))
	if len(rows) == 0 || rows[0].Kind != "category" {
		t.Fatalf("rows = %+v", rows)
	}
	byID := map[string]entityRow{}
	for _, r := range rows {
		byID[r.Kind+" "+r.ID] = r
	}
	inc, ok := byID["action "+counter.ActionIncrement]
	if !ok {
		t.Fatalf("no increment row in %+v", rows)
	}
	if !strings.Contains(inc.Detail, "hold") || !strings.Contains(inc.Detail, counter.DataStep+":number") {
		t.Errorf("increment detail = %q", inc.Detail)
	}
	if r := byID["event "+counter.EventReached]; !strings.Contains(r.Detail, "on "+counter.StateCount) {
		t.Errorf("reached detail = %q", r.Detail)
	}
	if r := byID["setting "+counter.SettingAnnounce]; r.Detail != "switch = Off" {
		t.Errorf("announce detail = %q", r.Detail)
	}
}
