package app

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	textclip "github.com/atotto/clipboard"
	"github.com/sqweek/dialog"
	"golang.design/x/clipboard"

	"draftpad/internal/imaging"
	"draftpad/pkg/draftdoc"
)

// copySelection puts the selected image on the image clipboard as PNG, or the
// selected text on the text clipboard.
func (a *App) copySelection() {
	if !a.state.HasSelection() {
		return
	}
	text := a.state.SelectedText()
	if _, img, ok := a.state.SelectedImage(); ok && text == "" {
		if err := a.copyImage(img); err != nil {
			a.log.Warn("copy image", "error", err)
			a.setStatus("Copy failed")
			return
		}
		a.setStatus("Image copied")
		return
	}
	if err := textclip.WriteAll(text); err != nil {
		a.log.Warn("copy text", "error", err)
		a.setStatus("Copy failed")
	}
}

func (a *App) copyImage(img *draftdoc.ImageBlock) error {
	if !a.imageClipboard {
		return errors.New("image clipboard unavailable")
	}
	data := img.Data
	if img.Format != "png" {
		src, _, err := imaging.Decode(img.Data)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, src); err != nil {
			return fmt.Errorf("encode png: %w", err)
		}
		data = buf.Bytes()
	}
	clipboard.Write(clipboard.FmtImage, data)
	return nil
}

func (a *App) cut() {
	if !a.state.HasSelection() {
		return
	}
	a.copySelection()
	a.history.Record(a.state)
	if a.state.DeleteSelection() {
		a.commit()
	}
}

// paste prefers an image on the clipboard and falls back to text.
func (a *App) paste() {
	if a.imageClipboard {
		if data := clipboard.Read(clipboard.FmtImage); len(data) > 0 {
			a.insertImage(data, "clipboard")
			return
		}
	}
	text, err := textclip.ReadAll()
	if err != nil {
		a.log.Debug("read clipboard", "error", err)
		return
	}
	if text == "" {
		return
	}
	a.history.Record(a.state)
	if err := a.state.InsertTextAtCaret(text); err != nil {
		a.setStatus("Paste failed")
		return
	}
	a.commit()
}

func (a *App) insertImageFromDialog() {
	path, err := dialog.File().
		Title("Insert image").
		Filter("Images", "png", "jpg", "jpeg", "gif", "bmp", "tif", "tiff", "webp").
		Load()
	if err != nil {
		if !errors.Is(err, dialog.ErrCancelled) {
			a.log.Warn("image dialog", "error", err)
		}
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		a.log.Warn("read image", "path", path, "error", err)
		a.setStatus("Could not read " + filepath.Base(path))
		return
	}
	a.insertImage(data, filepath.Base(path))
}

func (a *App) insertImage(data []byte, source string) {
	a.history.Record(a.state)
	if err := a.state.InsertImage(data, a.cfg.Editor.MaxImageWidth); err != nil {
		a.log.Warn("insert image", "source", source, "error", err)
		a.setStatus("Unsupported image")
		return
	}
	a.commit()
	a.setStatus("Inserted image")
}
