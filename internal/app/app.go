package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.design/x/clipboard"

	"draftpad/internal/config"
	"draftpad/internal/editor"
	"draftpad/internal/render"
	"draftpad/internal/store"
	"draftpad/internal/ui"
)

type App struct {
	ctx   context.Context
	cfg   *config.Config
	store *store.Store
	log   *slog.Logger

	theme   ui.Theme
	fonts   *ui.FontBank
	state   *editor.State
	history *editor.History

	events      store.EventQueue
	unsubscribe func()
	save        ui.SaveStatus

	// imageClipboard is false when the system clipboard could not be opened
	// for images; text paste still works.
	imageClipboard bool
	images         *imageCache

	frameBuffer *render.FrameBuffer
	canvas      *ebiten.Image
	docLayer    *ebiten.Image
	layout      ui.Layout
	doc         *ui.DocLayout
	docDirty    bool

	uiScales   []float32
	uiScaleIdx int
	frameTick  uint64

	// status is a transient message shown in the status bar until statusUntil.
	status      string
	statusUntil uint64

	lastCaret  editor.Position
	caretMoved bool

	scrollY       float64
	maxY          float64
	dragSelecting bool

	screenW int
	screenH int
}

// Run opens the editor window for st and blocks until the window closes or
// ctx is cancelled. It satisfies cli.Launcher.
func Run(ctx context.Context, cfg *config.Config, st *store.Store, log *slog.Logger) error {
	a, err := New(ctx, cfg, st, log)
	if err != nil {
		return err
	}
	defer a.unsubscribe()

	ebiten.SetWindowTitle(cfg.AppName)
	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(240, 200, -1, -1)
	ebiten.SetWindowFloating(true)
	if err := ebiten.RunGame(a); err != nil {
		return fmt.Errorf("run game loop: %w", err)
	}
	return nil
}

func New(ctx context.Context, cfg *config.Config, st *store.Store, log *slog.Logger) (*App, error) {
	fonts, err := ui.NewFontBank()
	if err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	a := &App{
		ctx:      ctx,
		cfg:      cfg,
		store:    st,
		log:      log.With("component", "app"),
		theme:    ui.DefaultTheme(),
		fonts:    fonts,
		state:    editor.NewState(st.Content()),
		history:  editor.NewHistory(editor.DefaultHistoryLimit),
		images:   newImageCache(),
		uiScales: []float32{1.0, 1.25, 1.5, 2.0},
		docDirty: true,
	}
	a.unsubscribe = st.Subscribe(a.forwardEvent)

	if err := clipboard.Init(); err != nil {
		a.log.Warn("image clipboard unavailable", "error", err)
	} else {
		a.imageClipboard = true
	}
	return a, nil
}

// forwardEvent runs on store goroutines; the game loop picks events up in
// Update. Edits come from the game loop itself, so EventChanged is skipped.
func (a *App) forwardEvent(ev store.Event) {
	if ev.Kind == store.EventChanged {
		return
	}
	a.events.Push(ev)
}

func (a *App) drainEvents() {
	for _, ev := range a.events.Take() {
		a.handleEvent(ev)
	}
}

func (a *App) handleEvent(ev store.Event) {
	switch ev.Kind {
	case store.EventSaved:
		a.save.MarkSaved(time.Now())
	case store.EventSaveFailed:
		a.save.MarkFailed(ev.Err)
		a.setStatus("Save failed")
	case store.EventReloaded:
		a.state = editor.NewState(ev.Doc)
		a.history.Reset()
		a.docDirty = true
		a.caretMoved = true
		a.setStatus("Reloaded from disk")
	}
}

// commit hands the edited document to the store, which schedules the save.
func (a *App) commit() {
	a.store.SetContent(a.state.Doc)
	a.docDirty = true
	a.caretMoved = true
}

const statusFrames = 150

func (a *App) setStatus(msg string) {
	a.status = msg
	a.statusUntil = a.frameTick + statusFrames
}

func (a *App) statusMessage() string {
	if a.frameTick > a.statusUntil {
		return ""
	}
	return a.status
}

func (a *App) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	a.screenW = max(outsideWidth, 240)
	a.screenH = max(outsideHeight, 200)
	return a.screenW, a.screenH
}

func (a *App) scale() float32 { return a.uiScales[a.uiScaleIdx] }

func (a *App) bumpUIScale(delta int) {
	next := a.uiScaleIdx + delta
	if next < 0 || next >= len(a.uiScales) {
		return
	}
	a.uiScaleIdx = next
	a.docDirty = true
	a.setStatus(fmt.Sprintf("Zoom %.0f%%", a.scale()*100))
}
