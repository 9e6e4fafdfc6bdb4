// Package store owns the canonical document and decides when it is written to
// disk.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"draftpad/internal/debounce"
	"draftpad/pkg/draftdoc"
)

type Phase int32

const (
	PhaseLoading Phase = iota
	PhaseReady
)

func (p Phase) String() string {
	if p == PhaseReady {
		return "ready"
	}
	return "loading"
}

type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("store: load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("store: save %s: %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

var ErrNoPath = errors.New("store: document path is required")

type Options struct {
	Path     string
	Interval time.Duration
	Save     draftdoc.SaveOptions
	Load     draftdoc.LoadOptions
	Logger   *slog.Logger
}

// Store holds one document. SetContent is the only way to change it; saves
// happen on a debounce timer once the initial Load has completed.
type Store struct {
	path     string
	saveOpts draftdoc.SaveOptions
	loadOpts draftdoc.LoadOptions
	log      *slog.Logger
	debounce *debounce.Debouncer

	// saveMu serializes disk access. It is taken before mu.
	saveMu sync.Mutex

	mu    sync.Mutex
	doc   *draftdoc.Document
	phase Phase
	// dirty is set by SetContent and cleared when a save snapshots the
	// document. It stays set while a fired timer waits for saveMu.
	dirty   bool
	closed  bool
	lastSum uint64
	hasSum  bool

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

func New(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, ErrNoPath
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Store{
		path:     opts.Path,
		saveOpts: opts.Save,
		loadOpts: opts.Load,
		log:      log.With("component", "store"),
		doc:      draftdoc.NewDocument(""),
		subs:     map[int]func(Event){},
	}
	s.debounce = debounce.New(opts.Interval, s.saveFromTimer)
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Content returns a copy of the current document.
func (s *Store) Content() *draftdoc.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return draftdoc.CloneDocument(s.doc)
}

// Load reads the persisted document. A missing file yields an empty document
// and no error; an unreadable or corrupt one yields an empty document and a
// *LoadError. The store is Ready afterwards either way.
func (s *Store) Load() (*draftdoc.Document, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	doc := draftdoc.NewDocument("")
	var loadErr error
	var sum uint64
	var hasSum bool

	b, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.log.Debug("no persisted document", "path", s.path)
	case err != nil:
		loadErr = &LoadError{Path: s.path, Err: err}
	default:
		decoded, derr := draftdoc.DecodeWithOptions(b, s.loadOpts)
		if derr != nil {
			loadErr = &LoadError{Path: s.path, Err: derr}
		} else {
			doc = decoded
			sum, hasSum = xxhash.Sum64(b), true
		}
	}
	if loadErr != nil {
		s.log.Warn("failed to load document, starting empty", "path", s.path, "error", loadErr)
	}

	s.mu.Lock()
	s.debounce.Cancel()
	s.doc = doc
	s.phase = PhaseReady
	s.dirty = false
	s.lastSum, s.hasSum = sum, hasSum
	out := draftdoc.CloneDocument(doc)
	s.mu.Unlock()

	s.log.Debug("document loaded", "path", s.path, "blocks", len(out.Blocks))
	s.emit(Event{Kind: EventLoaded, Doc: draftdoc.CloneDocument(out), Err: loadErr})
	return out, loadErr
}

// SetContent replaces the document with a copy of doc and, once the store is
// Ready, schedules a save.
func (s *Store) SetContent(doc *draftdoc.Document) {
	cp := draftdoc.CloneDocument(doc)
	if cp == nil {
		cp = draftdoc.NewDocument("")
	}

	s.mu.Lock()
	if cp.Metadata.CreatedUnix == 0 {
		cp.Metadata.CreatedUnix = s.doc.Metadata.CreatedUnix
	}
	s.doc = cp
	if s.phase == PhaseReady && !s.closed {
		s.dirty = true
		s.debounce.Schedule()
	}
	s.mu.Unlock()

	s.emit(Event{Kind: EventChanged})
}

// Save writes the current document now. An empty document is not written.
func (s *Store) Save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.saveLocked(false)
}

// saveLocked writes the document with saveMu held. With onlyDirty set it
// returns early when nothing changed since the last snapshot.
func (s *Store) saveLocked(onlyDirty bool) error {
	s.mu.Lock()
	if onlyDirty && !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snap := draftdoc.CloneDocument(s.doc)
	s.dirty = false
	s.mu.Unlock()

	if draftdoc.IsEmpty(snap) {
		s.log.Debug("skipping save of empty document", "path", s.path)
		return nil
	}

	now := time.Now().Unix()
	if snap.Metadata.CreatedUnix == 0 {
		snap.Metadata.CreatedUnix = now
	}
	snap.Metadata.ModifiedUnix = now

	blob, err := draftdoc.EncodeWithOptions(snap, s.saveOpts)
	if err == nil {
		err = draftdoc.WriteFileAtomic(s.path, blob, 0o644)
	}
	if err != nil {
		serr := &SaveError{Path: s.path, Err: err}
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		s.log.Error("failed to save document", "path", s.path, "error", err)
		s.emit(Event{Kind: EventSaveFailed, Err: serr})
		return serr
	}

	s.mu.Lock()
	s.lastSum, s.hasSum = xxhash.Sum64(blob), true
	s.mu.Unlock()

	s.log.Debug("document saved", "path", s.path, "bytes", len(blob), "blocks", len(snap.Blocks))
	s.emit(Event{Kind: EventSaved})
	return nil
}

func (s *Store) saveFromTimer() {
	_ = s.saveIfDirty()
}

func (s *Store) saveIfDirty() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.saveLocked(true)
}

// Pending reports whether edits have not been written yet, including a save
// whose timer fired but which is still waiting for the disk.
func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Flush writes unsaved edits immediately. It returns once any save already in
// progress has finished.
func (s *Store) Flush() error {
	s.debounce.Cancel()
	return s.saveIfDirty()
}

// Close flushes unsaved edits and stops scheduling new saves. Later
// SetContent calls only change the in-memory document.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.debounce.Stop()
	s.mu.Unlock()
	return s.saveIfDirty()
}

// Reload re-reads the file after an external change. It reports whether the
// document was replaced. Nothing happens while a local save is pending, before
// the first Load, or when the file is the one this store last wrote or read.
func (s *Store) Reload() (bool, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	skip := s.phase != PhaseReady || s.dirty
	s.mu.Unlock()
	if skip {
		return false, nil
	}

	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &LoadError{Path: s.path, Err: err}
	}
	sum := xxhash.Sum64(b)

	s.mu.Lock()
	same := s.hasSum && s.lastSum == sum
	s.mu.Unlock()
	if same {
		return false, nil
	}

	doc, err := draftdoc.DecodeWithOptions(b, s.loadOpts)
	if err != nil {
		lerr := &LoadError{Path: s.path, Err: err}
		s.log.Warn("ignoring unreadable external change", "path", s.path, "error", err)
		return false, lerr
	}

	s.mu.Lock()
	if s.dirty {
		s.mu.Unlock()
		return false, nil
	}
	s.doc = doc
	s.lastSum, s.hasSum = sum, true
	out := draftdoc.CloneDocument(doc)
	s.mu.Unlock()

	s.log.Info("reloaded document after external change", "path", s.path, "blocks", len(out.Blocks))
	s.emit(Event{Kind: EventReloaded, Doc: out})
	return true, nil
}
