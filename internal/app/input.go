package app

import (
	"unicode/utf8"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"draftpad/internal/imaging"
	"draftpad/pkg/draftdoc"
)

const (
	repeatDelay    = 30
	repeatInterval = 3
)

// pressed reports a key press, repeating while the key is held.
func pressed(k ebiten.Key) bool {
	d := inpututil.KeyPressDuration(k)
	return d == 1 || (d >= repeatDelay && (d-repeatDelay)%repeatInterval == 0)
}

func (a *App) Update() error {
	a.frameTick++
	a.drainEvents()
	if a.ctx.Err() != nil || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	a.refreshLayout()

	ctrl := ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta)
	shift := ebiten.IsKeyPressed(ebiten.KeyShift)
	alt := ebiten.IsKeyPressed(ebiten.KeyAlt)

	_, wheelY := ebiten.Wheel()
	if wheelY != 0 {
		a.scrollY -= wheelY * 36
		a.clampScroll()
	}
	a.handleMouse(shift)

	mutated := false
	recordMutation := func() {
		if mutated {
			return
		}
		a.history.Record(a.state)
		mutated = true
	}

	switch {
	case ctrl && alt:
		a.handleImageKeys(recordMutation)
	case ctrl:
		if a.handleCommandKeys(shift, recordMutation) {
			a.ensureCaretVisible()
			return nil
		}
	}

	a.handleNavigation(ctrl, shift)

	if !ctrl {
		if pressed(ebiten.KeyEnter) || pressed(ebiten.KeyKPEnter) {
			recordMutation()
			a.state.SplitBlockAtCaret()
		}
		if pressed(ebiten.KeyBackspace) {
			recordMutation()
			a.state.Backspace()
		}
		if pressed(ebiten.KeyDelete) {
			recordMutation()
			a.state.DeleteForward()
		}
		if pressed(ebiten.KeyTab) {
			recordMutation()
			_ = a.state.InsertTextAtCaret("    ")
		}
		for _, r := range ebiten.AppendInputChars(nil) {
			if r < 0x20 || !utf8.ValidRune(r) {
				continue
			}
			recordMutation()
			_ = a.state.InsertTextAtCaret(string(r))
		}
	}

	if mutated {
		a.commit()
	}
	a.ensureCaretVisible()
	return nil
}

// handleCommandKeys runs Ctrl shortcuts. It reports whether the frame's input
// is fully handled.
func (a *App) handleCommandKeys(shift bool, recordMutation func()) bool {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyZ):
		a.undo()
		return true
	case inpututil.IsKeyJustPressed(ebiten.KeyY):
		a.redo()
		return true
	case shift && inpututil.IsKeyJustPressed(ebiten.KeyP):
		a.insertImageFromDialog()
		return true
	case inpututil.IsKeyJustPressed(ebiten.KeyV):
		a.paste()
		return true
	case inpututil.IsKeyJustPressed(ebiten.KeyX):
		a.cut()
		return true
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyA) {
		a.state.SelectAll()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		a.copySelection()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) || inpututil.IsKeyJustPressed(ebiten.KeyKPAdd) {
		a.bumpUIScale(1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) || inpututil.IsKeyJustPressed(ebiten.KeyKPSubtract) {
		a.bumpUIScale(-1)
	}

	styleKeys := []struct {
		key   ebiten.Key
		apply func()
	}{
		{ebiten.KeyB, a.state.ToggleBold},
		{ebiten.KeyI, a.state.ToggleItalic},
		{ebiten.KeyU, a.state.ToggleUnderline},
		{ebiten.KeyPeriod, func() { a.state.AdjustFontSize(2) }},
		{ebiten.KeyComma, func() { a.state.AdjustFontSize(-2) }},
		{ebiten.KeyL, func() { a.state.SetAlignment(draftdoc.AlignLeft) }},
		{ebiten.KeyE, func() { a.state.SetAlignment(draftdoc.AlignCenter) }},
		{ebiten.KeyR, func() { a.state.SetAlignment(draftdoc.AlignRight) }},
		{ebiten.KeyJ, func() { a.state.SetAlignment(draftdoc.AlignJustified) }},
	}
	for _, sk := range styleKeys {
		if inpututil.IsKeyJustPressed(sk.key) {
			recordMutation()
			sk.apply()
		}
	}

	if pressed(ebiten.KeyBackspace) {
		recordMutation()
		a.state.DeleteWordBackward()
	}
	if pressed(ebiten.KeyDelete) {
		recordMutation()
		a.state.DeleteWordForward()
	}
	return false
}

// handleImageKeys resizes and aligns the selected image.
func (a *App) handleImageKeys(recordMutation func()) {
	if _, _, ok := a.state.SelectedImage(); !ok {
		return
	}
	sizes := map[ebiten.Key]int{
		ebiten.Key1: imaging.WidthSmall,
		ebiten.Key2: imaging.WidthMedium,
		ebiten.Key3: imaging.WidthLarge,
	}
	for key, width := range sizes {
		if inpututil.IsKeyJustPressed(key) {
			recordMutation()
			a.state.ResizeSelectedImage(width)
		}
	}
	aligns := map[ebiten.Key]draftdoc.Align{
		ebiten.KeyBracketLeft:  draftdoc.AlignLeft,
		ebiten.KeyBackslash:    draftdoc.AlignCenter,
		ebiten.KeyBracketRight: draftdoc.AlignRight,
	}
	for key, align := range aligns {
		if inpututil.IsKeyJustPressed(key) {
			recordMutation()
			a.state.AlignSelectedImage(align)
		}
	}
}

func (a *App) handleNavigation(ctrl, shift bool) {
	moveWithSelection := func(move func()) {
		if shift {
			a.state.EnsureSelectionAnchor()
		} else {
			a.state.ClearSelection()
		}
		move()
		if shift {
			a.state.UpdateSelectionFromCaret()
		}
	}

	if pressed(ebiten.KeyArrowUp) {
		moveWithSelection(func() { a.moveVertical(-1) })
	}
	if pressed(ebiten.KeyArrowDown) {
		moveWithSelection(func() { a.moveVertical(1) })
	}
	if pressed(ebiten.KeyArrowLeft) {
		if ctrl {
			moveWithSelection(a.state.MoveCaretWordLeft)
		} else {
			moveWithSelection(a.state.MoveCaretLeft)
		}
	}
	if pressed(ebiten.KeyArrowRight) {
		if ctrl {
			moveWithSelection(a.state.MoveCaretWordRight)
		} else {
			moveWithSelection(a.state.MoveCaretRight)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyHome) {
		if ctrl {
			moveWithSelection(func() { a.state.SetCaret(0, 0) })
		} else {
			moveWithSelection(a.state.MoveCaretToLineStart)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnd) {
		if ctrl {
			moveWithSelection(func() {
				last := a.state.BlockCount() - 1
				a.state.SetCaret(last, a.state.BlockLen(last))
			})
		} else {
			moveWithSelection(a.state.MoveCaretToLineEnd)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyPageDown) {
		a.scrollY += float64(a.layout.Content.H) * 0.8
		a.clampScroll()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyPageUp) {
		a.scrollY -= float64(a.layout.Content.H) * 0.8
		a.clampScroll()
	}
}

// moveVertical moves the caret to the visual line above or below, keeping
// its horizontal position.
func (a *App) moveVertical(dir int) {
	doc := a.documentLayout()
	caret, ok := doc.CaretRect(a.caretPosition())
	if !ok {
		a.state.MoveBlock(dir)
		return
	}
	y := caret.Y - 1
	if dir > 0 {
		y = caret.Y + caret.H + 1
	}
	if y < 0 || y > doc.Height {
		return
	}
	p := doc.HitTest(caret.X, y)
	a.state.SetCaret(p.Block, p.Byte)
}

func (a *App) handleMouse(shift bool) {
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		if !a.layout.Content.Contains(x, y) {
			return
		}
		p := a.documentLayout().HitTest(a.toDocument(x, y))
		if !shift {
			a.state.ClearSelection()
		}
		a.state.EnsureSelectionAnchor()
		a.state.SetCaret(p.Block, p.Byte)
		a.state.UpdateSelectionFromCaret()
		if a.state.IsMedia(p.Block) && !shift {
			a.state.SelectBlock(p.Block)
			return
		}
		a.dragSelecting = true
	}
	if a.dragSelecting && ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) && !inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		p := a.documentLayout().HitTest(a.toDocument(ebiten.CursorPosition()))
		a.state.SetCaret(p.Block, p.Byte)
		a.state.UpdateSelectionFromCaret()
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		a.dragSelecting = false
	}
}

func (a *App) toDocument(x, y int) (int, int) {
	return x - a.layout.Content.X, y - a.layout.Content.Y + int(a.scrollY)
}

func (a *App) undo() {
	if st, ok := a.history.Undo(a.state); ok {
		a.state = st
		a.commit()
	}
}

func (a *App) redo() {
	if st, ok := a.history.Redo(a.state); ok {
		a.state = st
		a.commit()
	}
}
