package editor

import (
	"draftpad/internal/imaging"
	"draftpad/pkg/draftdoc"
)

// InsertImage embeds data at the caret, replacing any selection. The image is
// fitted to maxWidth, centered on its own line, and left selected.
func (s *State) InsertImage(data []byte, maxWidth int) error {
	info, err := imaging.DecodeInfo(data)
	if err != nil {
		return err
	}
	size := imaging.FitWidth(info.Width, info.Height, maxWidth)

	s.Normalize()
	if s.HasSelection() {
		s.DeleteSelection()
	}
	s.typing = nil

	at := s.mediaInsertIndex()
	s.insertBlock(at, draftdoc.NewImageBlock(nextBlockID(s.Doc.Blocks), draftdoc.ImageBlock{
		Format:   info.Format,
		Data:     data,
		PixelW:   uint32(info.Width),
		PixelH:   uint32(info.Height),
		DisplayW: uint32(size.W),
		DisplayH: uint32(size.H),
		Align:    draftdoc.AlignCenter,
	}))
	s.SelectBlock(at)
	return nil
}

// mediaInsertIndex returns where an image goes for the current caret,
// splitting the paragraph when the caret is inside it.
func (s *State) mediaInsertIndex() int {
	cur := s.CurrentBlock
	if s.IsMedia(cur) {
		return cur + s.CaretByte
	}
	if s.CaretByte == 0 {
		return cur
	}
	s.splitTextBlock(cur, s.CaretByte)
	return cur + 1
}

// SelectedImage returns the first image lying wholly inside the selection.
func (s *State) SelectedImage() (int, *draftdoc.ImageBlock, bool) {
	start, end, ok := s.SelectionRange()
	if !ok {
		return -1, nil, false
	}
	for i := start.Block; i <= end.Block; i++ {
		if !s.IsMedia(i) {
			continue
		}
		if comparePos(start, Position{Block: i}) <= 0 && comparePos(Position{Block: i, Byte: 1}, end) <= 0 {
			return i, s.Doc.Blocks[i].Image, true
		}
	}
	return -1, nil, false
}

// ResizeSelectedImage sets the selected image's display width, keeping its
// aspect ratio.
func (s *State) ResizeSelectedImage(width int) bool {
	_, img, ok := s.SelectedImage()
	if !ok || width <= 0 {
		return false
	}
	w, h := aspectSource(img)
	size := imaging.ScaleToWidth(w, h, width)
	img.DisplayW, img.DisplayH = uint32(size.W), uint32(size.H)
	return true
}

func (s *State) ResizeSelectedImageHeight(height int) bool {
	_, img, ok := s.SelectedImage()
	if !ok || height <= 0 {
		return false
	}
	w, h := aspectSource(img)
	size := imaging.ScaleToHeight(w, h, height)
	img.DisplayW, img.DisplayH = uint32(size.W), uint32(size.H)
	return true
}

func (s *State) AlignSelectedImage(align draftdoc.Align) bool {
	_, img, ok := s.SelectedImage()
	if !ok || align > draftdoc.AlignRight {
		return false
	}
	img.Align = align
	return true
}

func aspectSource(img *draftdoc.ImageBlock) (int, int) {
	if img.PixelW > 0 && img.PixelH > 0 {
		return int(img.PixelW), int(img.PixelH)
	}
	return int(img.DisplayW), int(img.DisplayH)
}
