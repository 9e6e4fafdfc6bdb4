package store

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"draftpad/pkg/draftdoc"
)

const testInterval = 30 * time.Millisecond

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, path string, opts Options) *Store {
	t.Helper()
	opts.Path = path
	if opts.Interval == 0 {
		opts.Interval = testInterval
	}
	opts.Logger = quietLogger()
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { s.debounce.Stop() })
	return s
}

func textDoc(text string) *draftdoc.Document {
	doc := draftdoc.NewDocument("")
	doc.Blocks = append(doc.Blocks, draftdoc.NewTextBlock(1, text, draftdoc.DefaultStyleAttr()))
	return doc
}

func waitFor(t *testing.T, ch <-chan Event, kind EventKind) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %v event", kind)
		}
	}
}

func subscribe(s *Store) <-chan Event {
	ch := make(chan Event, 64)
	s.Subscribe(func(ev Event) { ch <- ev })
	return ch
}

func TestNewRequiresPath(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, ErrNoPath) {
		t.Fatalf("expected ErrNoPath, got %v", err)
	}
}

func TestHelloScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draftpad", "content.draft")
	s := newTestStore(t, path, Options{})
	events := subscribe(s)

	doc, err := s.Load()
	if err != nil {
		t.Fatalf("load of missing file should not fail: %v", err)
	}
	if !draftdoc.IsEmpty(doc) {
		t.Fatalf("expected empty document, got %q", draftdoc.PlainText(doc))
	}
	if s.Phase() != PhaseReady {
		t.Fatalf("expected ready after load, got %v", s.Phase())
	}

	s.SetContent(textDoc("Hello"))
	waitFor(t, events, EventSaved)

	loaded, err := draftdoc.Load(path)
	if err != nil {
		t.Fatalf("persisted file does not load: %v", err)
	}
	if got := draftdoc.PlainText(loaded); got != "Hello" {
		t.Fatalf("persisted text = %q, want Hello", got)
	}
}

func TestNoSaveWhileLoading(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.draft")
	s := newTestStore(t, path, Options{})

	s.SetContent(textDoc("typed before load"))
	if s.Pending() {
		t.Fatalf("save scheduled while loading")
	}
	time.Sleep(4 * testInterval)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file, stat err = %v", err)
	}
	if s.Phase() != PhaseLoading {
		t.Fatalf("phase changed without load: %v", s.Phase())
	}
}

func TestBurstOfEditsSavesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.draft")
	s := newTestStore(t, path, Options{})
	var saves atomic.Int32
	s.Subscribe(func(ev Event) {
		if ev.Kind == EventSaved {
			saves.Add(1)
		}
	})
	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}

	for _, text := range []string{"H", "He", "Hel", "Hell", "Hello"} {
		s.SetContent(textDoc(text))
		time.Sleep(2 * time.Millisecond)
	}
	time.Sleep(6 * testInterval)

	if got := saves.Load(); got != 1 {
		t.Fatalf("expected 1 save, got %d", got)
	}
	loaded, err := draftdoc.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := draftdoc.PlainText(loaded); got != "Hello" {
		t.Fatalf("expected last edit to win, got %q", got)
	}
}

func TestEmptyDocumentIsNotWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.draft")
	s := newTestStore(t, path, Options{})
	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}

	s.SetContent(textDoc(""))
	if err := s.Save(); err != nil {
		t.Fatalf("save of empty document failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file for empty document, stat err = %v", err)
	}
}

func TestClearingContentKeepsPreviousFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.draft")
	s := newTestStore(t, path, Options{})
	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}
	s.SetContent(textDoc("keep me"))
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	s.SetContent(draftdoc.NewDocument(""))
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("empty document overwrote the previous file")
	}
}

func TestCorruptFileLoadsEmptyWithError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.draft")
	if err := os.WriteFile(path, []byte("this is not a document"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := newTestStore(t, path, Options{})
	events := subscribe(s)

	doc, err := s.Load()
	var lerr *LoadError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected *LoadError, got %T %v", err, err)
	}
	if lerr.Path != path || !errors.Is(err, draftdoc.ErrInvalidMagic) {
		t.Fatalf("unexpected load error: %v", err)
	}
	if !draftdoc.IsEmpty(doc) {
		t.Fatalf("expected empty document after corrupt load")
	}
	if s.Phase() != PhaseReady {
		t.Fatalf("expected ready after failed load")
	}
	if ev := waitFor(t, events, EventLoaded); ev.Err == nil {
		t.Fatalf("loaded event should carry the load error")
	}
}

func TestBoldRunSurvivesLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.draft")
	bold := draftdoc.DefaultStyleAttr()
	bold.Bold = true
	want := draftdoc.NewDocument("")
	want.Blocks = append(want.Blocks, draftdoc.Block{
		ID:   7,
		Kind: draftdoc.BlockKindText,
		Text: &draftdoc.TextBlock{
			UTF8: []byte("bold plain"),
			Runs: []draftdoc.StyleRun{
				{Start: 0, End: 4, Attr: bold},
				{Start: 4, End: 10, Attr: draftdoc.DefaultStyleAttr()},
			},
		},
	})
	if err := draftdoc.Save(path, want); err != nil {
		t.Fatal(err)
	}

	s := newTestStore(t, path, Options{})
	got, err := s.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !draftdoc.Equal(want, got) {
		t.Fatalf("bold run not reproduced: %#v", got.Blocks)
	}
}

func TestSaveFailureKeepsPreviousFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.draft")
	good := newTestStore(t, path, Options{})
	if _, err := good.Load(); err != nil {
		t.Fatal(err)
	}
	good.SetContent(textDoc("first"))
	if err := good.Flush(); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	broken := newTestStore(t, path, Options{
		Save: draftdoc.SaveOptions{Encryption: draftdoc.EncryptionOptions{Enabled: true}},
	})
	events := subscribe(broken)
	if _, err := broken.Load(); err != nil {
		t.Fatal(err)
	}
	broken.SetContent(textDoc("second"))
	err = broken.Save()

	var serr *SaveError
	if !errors.As(err, &serr) || !errors.Is(err, draftdoc.ErrPasswordRequired) {
		t.Fatalf("expected *SaveError wrapping ErrPasswordRequired, got %v", err)
	}
	waitFor(t, events, EventSaveFailed)

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("failed save modified the previous file")
	}
}

func TestCloseFlushesPendingSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.draft")
	s := newTestStore(t, path, Options{Interval: time.Hour})
	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}
	s.SetContent(textDoc("unsaved"))
	if !s.Pending() {
		t.Fatalf("expected pending save")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	loaded, err := draftdoc.Load(path)
	if err != nil {
		t.Fatalf("expected flushed file: %v", err)
	}
	if draftdoc.PlainText(loaded) != "unsaved" {
		t.Fatalf("unexpected flushed text %q", draftdoc.PlainText(loaded))
	}

	s.SetContent(textDoc("after close"))
	if s.Pending() {
		t.Fatalf("closed store scheduled a save")
	}
}

func TestSetContentCopiesInput(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "content.draft"), Options{})
	doc := textDoc("original")
	s.SetContent(doc)
	doc.Blocks[0].Text.UTF8[0] = 'X'

	if got := draftdoc.PlainText(s.Content()); got != "original" {
		t.Fatalf("store shares memory with caller: %q", got)
	}
}

func TestEncryptedStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.draft")
	opts := Options{
		Save: draftdoc.SaveOptions{Compression: true, Encryption: draftdoc.EncryptionOptions{Enabled: true, Password: "pw"}},
		Load: draftdoc.LoadOptions{Password: "pw"},
	}
	a := newTestStore(t, path, opts)
	if _, err := a.Load(); err != nil {
		t.Fatal(err)
	}
	a.SetContent(textDoc("secret"))
	if err := a.Flush(); err != nil {
		t.Fatal(err)
	}

	b := newTestStore(t, path, opts)
	doc, err := b.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if draftdoc.PlainText(doc) != "secret" {
		t.Fatalf("unexpected text %q", draftdoc.PlainText(doc))
	}
}

func TestReloadPicksUpExternalChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.draft")
	s := newTestStore(t, path, Options{})
	events := subscribe(s)
	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}
	s.SetContent(textDoc("mine"))
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}

	if changed, err := s.Reload(); err != nil || changed {
		t.Fatalf("reload of own write: changed=%v err=%v", changed, err)
	}

	if err := draftdoc.Save(path, textDoc("theirs")); err != nil {
		t.Fatal(err)
	}
	changed, err := s.Reload()
	if err != nil || !changed {
		t.Fatalf("expected reload, changed=%v err=%v", changed, err)
	}
	ev := waitFor(t, events, EventReloaded)
	if draftdoc.PlainText(ev.Doc) != "theirs" || draftdoc.PlainText(s.Content()) != "theirs" {
		t.Fatalf("reload did not replace content")
	}
	if s.Pending() {
		t.Fatalf("reload must not schedule a save")
	}
}

func TestReloadSkippedWhileSavePending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.draft")
	if err := draftdoc.Save(path, textDoc("disk")); err != nil {
		t.Fatal(err)
	}
	s := newTestStore(t, path, Options{Interval: time.Hour})
	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}
	s.SetContent(textDoc("local edit"))
	if err := draftdoc.Save(path, textDoc("external")); err != nil {
		t.Fatal(err)
	}

	if changed, err := s.Reload(); err != nil || changed {
		t.Fatalf("reload should defer to pending edit, changed=%v err=%v", changed, err)
	}
	if draftdoc.PlainText(s.Content()) != "local edit" {
		t.Fatalf("local edit lost")
	}
}

func TestReloadKeepsEditWhoseSaveIsWaitingForDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.draft")
	s := newTestStore(t, path, Options{})
	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}
	if err := draftdoc.Save(path, textDoc("external")); err != nil {
		t.Fatal(err)
	}

	// The timer fires while another disk operation holds saveMu.
	s.saveMu.Lock()
	s.SetContent(textDoc("local edit"))
	time.Sleep(4 * testInterval)
	if !s.Pending() {
		s.saveMu.Unlock()
		t.Fatalf("edit whose save has not run should still be pending")
	}
	s.saveMu.Unlock()

	if changed, err := s.Reload(); err != nil || changed {
		t.Fatalf("reload replaced an unsaved edit, changed=%v err=%v", changed, err)
	}
	if got := draftdoc.PlainText(s.Content()); got != "local edit" {
		t.Fatalf("in-memory document = %q, want local edit", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.Pending() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	loaded, err := draftdoc.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := draftdoc.PlainText(loaded); got != "local edit" {
		t.Fatalf("file holds %q, want local edit", got)
	}
}

func TestCloseWaitsForFiredSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.draft")
	s := newTestStore(t, path, Options{})
	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}

	s.saveMu.Lock()
	s.SetContent(textDoc("last burst"))
	time.Sleep(4 * testInterval)

	done := make(chan error, 1)
	go func() { done <- s.Close() }()
	select {
	case err := <-done:
		s.saveMu.Unlock()
		t.Fatalf("Close returned before the save could run: %v", err)
	case <-time.After(2 * testInterval):
	}
	s.saveMu.Unlock()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("close failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
	loaded, err := draftdoc.Load(path)
	if err != nil {
		t.Fatalf("expected file after close: %v", err)
	}
	if got := draftdoc.PlainText(loaded); got != "last burst" {
		t.Fatalf("file holds %q, want last burst", got)
	}
}

func TestBlankParagraphsAreSaved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.draft")
	s := newTestStore(t, path, Options{})
	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}
	doc := draftdoc.NewDocument("")
	doc.Blocks = append(doc.Blocks,
		draftdoc.NewTextBlock(1, "", draftdoc.DefaultStyleAttr()),
		draftdoc.NewTextBlock(2, "", draftdoc.DefaultStyleAttr()))
	s.SetContent(doc)
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	loaded, err := draftdoc.Load(path)
	if err != nil {
		t.Fatalf("expected a file for a lone newline: %v", err)
	}
	if len(loaded.Blocks) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(loaded.Blocks))
	}
}

func TestReloadBeforeLoadDoesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.draft")
	if err := draftdoc.Save(path, textDoc("disk")); err != nil {
		t.Fatal(err)
	}
	s := newTestStore(t, path, Options{})
	if changed, err := s.Reload(); err != nil || changed {
		t.Fatalf("reload while loading: changed=%v err=%v", changed, err)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "content.draft"), Options{})
	var n atomic.Int32
	cancel := s.Subscribe(func(Event) { n.Add(1) })
	s.SetContent(textDoc("a"))
	cancel()
	s.SetContent(textDoc("b"))
	if got := n.Load(); got != 1 {
		t.Fatalf("expected 1 delivered event, got %d", got)
	}
}

func TestEventQueueKeepsReloadBehindManyEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.draft")
	s := newTestStore(t, path, Options{Interval: time.Hour})
	var q EventQueue
	s.Subscribe(q.Push)
	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		s.SetContent(textDoc("edit"))
	}
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if err := draftdoc.Save(path, textDoc("theirs")); err != nil {
		t.Fatal(err)
	}
	if changed, err := s.Reload(); err != nil || !changed {
		t.Fatalf("expected reload, changed=%v err=%v", changed, err)
	}

	events := q.Take()
	if len(events) != 103 {
		t.Fatalf("expected 103 queued events, got %d", len(events))
	}
	last := events[len(events)-1]
	if last.Kind != EventReloaded || draftdoc.PlainText(last.Doc) != "theirs" {
		t.Fatalf("last event = %v, want reloaded", last.Kind)
	}
	if len(q.Take()) != 0 {
		t.Fatal("Take should empty the queue")
	}
}
