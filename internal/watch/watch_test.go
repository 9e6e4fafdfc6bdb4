package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"draftpad/internal/store"
	"draftpad/pkg/draftdoc"
)

type countingReloader struct {
	calls atomic.Int32
}

func (c *countingReloader) Reload() (bool, error) {
	c.calls.Add(1)
	return true, nil
}

func startWatcher(t *testing.T, path string, target Reloader) {
	t.Helper()
	w, err := New(path, target, Options{Delay: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestBurstOfWritesReloadsOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "content.draft")
	r := &countingReloader{}
	startWatcher(t, path, r)

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte{byte(i)}, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, 2*time.Second, func() bool { return r.calls.Load() > 0 })
	time.Sleep(200 * time.Millisecond)
	if got := r.calls.Load(); got != 1 {
		t.Fatalf("expected 1 reload, got %d", got)
	}
}

func TestOtherFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	r := &countingReloader{}
	startWatcher(t, filepath.Join(dir, "content.draft"), r)

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(250 * time.Millisecond)
	if got := r.calls.Load(); got != 0 {
		t.Fatalf("expected no reloads, got %d", got)
	}
}

func TestExternalSaveReachesStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "content.draft")

	st, err := store.New(store.Options{Path: path, Interval: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.Load(); err != nil {
		t.Fatal(err)
	}
	reloaded := make(chan *draftdoc.Document, 1)
	st.Subscribe(func(ev store.Event) {
		if ev.Kind != store.EventReloaded {
			return
		}
		select {
		case reloaded <- ev.Doc:
		default:
		}
	})
	startWatcher(t, path, st)

	doc := draftdoc.NewDocument("")
	doc.Blocks = append(doc.Blocks, draftdoc.NewTextBlock(1, "from elsewhere", draftdoc.DefaultStyleAttr()))
	if err := draftdoc.Save(path, doc); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-reloaded:
		if draftdoc.PlainText(got) != "from elsewhere" {
			t.Fatalf("unexpected reloaded text: %q", draftdoc.PlainText(got))
		}
	case <-time.After(3 * time.Second):
		t.Fatal("store was not reloaded")
	}
}
