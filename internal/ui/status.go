package ui

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"draftpad/pkg/draftdoc"
)

// SaveStatus tracks the outcome of the most recent save for the status bar.
type SaveStatus struct {
	Err     error
	SavedAt time.Time
}

func (s *SaveStatus) MarkSaved(at time.Time) {
	s.Err = nil
	s.SavedAt = at
}

func (s *SaveStatus) MarkFailed(err error) { s.Err = err }

func (s SaveStatus) Indicator(theme Theme, pending bool) color.RGBA {
	switch {
	case s.Err != nil:
		return theme.Failed
	case pending:
		return theme.Pending
	default:
		return theme.Saved
	}
}

func (s SaveStatus) Label(pending bool) string {
	switch {
	case s.Err != nil:
		return "Save failed: " + s.Err.Error()
	case pending:
		return "Editing"
	case s.SavedAt.IsZero():
		return "Saved"
	default:
		return "Saved " + s.SavedAt.Format("15:04:05")
	}
}

// StyleSummary describes attr compactly, e.g. "14pt B I center".
func StyleSummary(attr draftdoc.StyleAttr) string {
	parts := []string{fmt.Sprintf("%dpt", attr.FontSizePt)}
	if attr.Bold {
		parts = append(parts, "B")
	}
	if attr.Italic {
		parts = append(parts, "I")
	}
	if attr.Underline {
		parts = append(parts, "U")
	}
	if attr.Align != draftdoc.AlignLeft {
		parts = append(parts, attr.Align.String())
	}
	return strings.Join(parts, " ")
}
