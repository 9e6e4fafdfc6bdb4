package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"draftpad/internal/config"
	"draftpad/internal/store"
	"draftpad/pkg/draftdoc"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "data_dir: " + dir + "\nwatch: false\nstorage:\n  compression: true\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path, filepath.Join(dir, "draftpad", "content.draft")
}

func runCLI(t *testing.T, launch Launcher, args []string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd(launch)
	var outBuf, errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func TestPathPrintsDocumentPath(t *testing.T) {
	cfgPath, docPath := writeConfig(t)
	out, _, err := runCLI(t, nil, []string{"path", "--config", cfgPath})
	if err != nil {
		t.Fatalf("path failed: %v", err)
	}
	if strings.TrimSpace(out) != docPath {
		t.Fatalf("got %q, want %q", strings.TrimSpace(out), docPath)
	}
}

func TestExportMissingDocumentPrintsNothing(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	out, _, err := runCLI(t, nil, []string{"export", "--config", cfgPath})
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if out != "" {
		t.Fatalf("expected no output, got %q", out)
	}
}

func TestEditorSessionIsFlushedAndExported(t *testing.T) {
	cfgPath, docPath := writeConfig(t)

	launch := func(ctx context.Context, cfg *config.Config, st *store.Store, log *slog.Logger) error {
		if st.Phase() != store.PhaseReady {
			t.Errorf("store not ready when the editor starts")
		}
		doc := draftdoc.NewDocument("")
		doc.Blocks = append(doc.Blocks,
			draftdoc.NewTextBlock(1, "first line", draftdoc.DefaultStyleAttr()),
			draftdoc.NewTextBlock(2, "second line", draftdoc.DefaultStyleAttr()),
		)
		st.SetContent(doc)
		return nil
	}
	if _, _, err := runCLI(t, launch, []string{"--config", cfgPath}); err != nil {
		t.Fatalf("editor run failed: %v", err)
	}
	if _, err := os.Stat(docPath); err != nil {
		t.Fatalf("document not saved on exit: %v", err)
	}

	out, _, err := runCLI(t, nil, []string{"export", "--config", cfgPath})
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if out != "first line\nsecond line\n" {
		t.Fatalf("unexpected export: %q", out)
	}

	out, _, err = runCLI(t, nil, []string{"inspect", "--config", cfgPath})
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	for _, want := range []string{"envelope:   compressed", "Text Block", "Formatting Directive"} {
		if !strings.Contains(out, want) {
			t.Fatalf("inspect output missing %q:\n%s", want, out)
		}
	}
}

func TestExportToFile(t *testing.T) {
	cfgPath, docPath := writeConfig(t)
	doc := draftdoc.NewDocument("")
	doc.Blocks = append(doc.Blocks, draftdoc.NewTextBlock(1, "hello", draftdoc.DefaultStyleAttr()))
	if err := draftdoc.Save(docPath, doc); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(t.TempDir(), "out.txt")
	if _, _, err := runCLI(t, nil, []string{"export", "--config", cfgPath, "-o", dest}); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	b, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "hello" {
		t.Fatalf("unexpected file contents: %q", b)
	}
}

func TestEditorUnavailableWithoutLauncher(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	if _, _, err := runCLI(t, nil, []string{"--config", cfgPath}); err == nil {
		t.Fatal("expected an error without a launcher")
	}
}

func TestInvalidConfigIsReported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("autosave:\n  interval: -1s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCLI(t, nil, []string{"path", "--config", path}); err == nil {
		t.Fatal("expected config error")
	}
}
