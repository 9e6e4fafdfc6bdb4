package draftdoc

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MagicString = "DRAFTPAD-RICHTEXT"
	VersionV1   = uint16(1)
	FlagIndexed = uint16(1 << 0)

	DefaultFontSizePt = uint16(14)
	DefaultColorRGBA  = uint32(0x202020FF)
)

type BlockKind uint8

const (
	BlockKindMetadata BlockKind = 0
	BlockKindText     BlockKind = 1
	BlockKindMedia    BlockKind = 2
	BlockKindStyle    BlockKind = 3
)

func (k BlockKind) String() string {
	switch k {
	case BlockKindMetadata:
		return "metadata"
	case BlockKindText:
		return "text"
	case BlockKindMedia:
		return "media"
	case BlockKindStyle:
		return "style"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

type FontFamily uint8

const (
	FontFamilySans FontFamily = iota
	FontFamilySerif
	FontFamilyMonospace
)

// Align is a paragraph alignment. Text runs carry the alignment of the
// paragraph they belong to; attachments carry their own.
type Align uint8

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
	AlignJustified
)

func (a Align) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	case AlignJustified:
		return "justified"
	default:
		return fmt.Sprintf("align(%d)", uint8(a))
	}
}

type Document struct {
	Metadata Metadata
	Blocks   []Block
}

type Metadata struct {
	Title        string
	AppVersion   string
	CreatedUnix  int64
	ModifiedUnix int64
}

// Block is one paragraph of styled text or one embedded image. Exactly one of
// Text and Image is set, matching Kind.
type Block struct {
	ID    uint64
	Kind  BlockKind
	Text  *TextBlock
	Image *ImageBlock
}

type TextBlock struct {
	UTF8 []byte
	Runs []StyleRun
}

type StyleRun struct {
	Start uint32
	End   uint32
	Attr  StyleAttr
}

type StyleAttr struct {
	Bold       bool
	Italic     bool
	Underline  bool
	Highlight  bool
	FontFamily FontFamily
	FontSizePt uint16
	ColorRGBA  uint32
	Align      Align
}

// ImageBlock is an attachment: the original image bytes plus the size and
// alignment it is displayed with. Data is never re-encoded.
type ImageBlock struct {
	Format   string
	Data     []byte
	PixelW   uint32
	PixelH   uint32
	DisplayW uint32
	DisplayH uint32
	Align    Align
}

var (
	ErrInvalidMagic      = errors.New("draftdoc: invalid magic")
	ErrUnsupportedVer    = errors.New("draftdoc: unsupported version")
	ErrMissingIndexFlag  = errors.New("draftdoc: index flag required")
	ErrInvalidTOC        = errors.New("draftdoc: invalid toc")
	ErrInvalidBlockRange = errors.New("draftdoc: invalid block range")
	ErrOverlappingBlocks = errors.New("draftdoc: overlapping block ranges")
	ErrChecksum          = errors.New("draftdoc: checksum mismatch")
	ErrPasswordRequired  = errors.New("draftdoc: password required")
	ErrInvalidPassword   = errors.New("draftdoc: invalid password")
	ErrInvalidSecureFile = errors.New("draftdoc: invalid secure file")
	ErrUnsupportedImage  = errors.New("draftdoc: unsupported image")
	ErrNilDocument       = errors.New("draftdoc: document is nil")
)

func NewDocument(title string) *Document {
	now := time.Now().Unix()
	return &Document{Metadata: Metadata{
		Title:        title,
		CreatedUnix:  now,
		ModifiedUnix: now,
	}}
}

func DefaultStyleAttr() StyleAttr {
	return StyleAttr{FontSizePt: DefaultFontSizePt, ColorRGBA: DefaultColorRGBA, FontFamily: FontFamilySans}
}

// NewTextBlock returns a text block whose whole content carries attr.
func NewTextBlock(id uint64, text string, attr StyleAttr) Block {
	tb := &TextBlock{UTF8: []byte(text)}
	tb.Runs = []StyleRun{{Start: 0, End: uint32(len(tb.UTF8)), Attr: attr}}
	return Block{ID: id, Kind: BlockKindText, Text: tb}
}

func NewImageBlock(id uint64, img ImageBlock) Block {
	cp := img
	cp.Data = append([]byte(nil), img.Data...)
	return Block{ID: id, Kind: BlockKindMedia, Image: &cp}
}

func CloneDocument(doc *Document) *Document {
	if doc == nil {
		return nil
	}
	out := &Document{Metadata: doc.Metadata, Blocks: make([]Block, len(doc.Blocks))}
	for i, b := range doc.Blocks {
		out.Blocks[i] = cloneBlock(b)
	}
	return out
}

func cloneBlock(b Block) Block {
	out := Block{ID: b.ID, Kind: b.Kind}
	if b.Text != nil {
		tb := &TextBlock{UTF8: append([]byte(nil), b.Text.UTF8...), Runs: make([]StyleRun, len(b.Text.Runs))}
		copy(tb.Runs, b.Text.Runs)
		out.Text = tb
	}
	if b.Image != nil {
		img := *b.Image
		img.Data = append([]byte(nil), b.Image.Data...)
		out.Image = &img
	}
	return out
}

// Equal reports whether a and b hold the same content. Metadata is ignored
// because saving stamps the modification time.
func Equal(a, b *Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.Blocks) != len(b.Blocks) {
		return false
	}
	for i := range a.Blocks {
		if !blocksEqual(a.Blocks[i], b.Blocks[i]) {
			return false
		}
	}
	return true
}

func blocksEqual(a, b Block) bool {
	if a.ID != b.ID || a.Kind != b.Kind {
		return false
	}
	if (a.Text == nil) != (b.Text == nil) || (a.Image == nil) != (b.Image == nil) {
		return false
	}
	if a.Text != nil {
		if !bytes.Equal(a.Text.UTF8, b.Text.UTF8) || len(a.Text.Runs) != len(b.Text.Runs) {
			return false
		}
		for i := range a.Text.Runs {
			if a.Text.Runs[i] != b.Text.Runs[i] {
				return false
			}
		}
	}
	if a.Image != nil {
		x, y := a.Image, b.Image
		if x.Format != y.Format || x.PixelW != y.PixelW || x.PixelH != y.PixelH ||
			x.DisplayW != y.DisplayW || x.DisplayH != y.DisplayH || x.Align != y.Align {
			return false
		}
		if !bytes.Equal(x.Data, y.Data) {
			return false
		}
	}
	return true
}

// IsEmpty reports whether doc has nothing worth persisting: at most one
// paragraph, holding no text. Two blank paragraphs are a line break and count
// as content.
func IsEmpty(doc *Document) bool {
	if doc == nil {
		return true
	}
	if len(doc.Blocks) > 1 {
		return false
	}
	for _, b := range doc.Blocks {
		switch b.Kind {
		case BlockKindMedia:
			if b.Image != nil {
				return false
			}
		case BlockKindText:
			if b.Text != nil && len(b.Text.UTF8) > 0 {
				return false
			}
		}
	}
	return true
}

// PlainText flattens doc to text, one paragraph per line. Attachments are
// rendered as a bracketed placeholder.
func PlainText(doc *Document) string {
	if doc == nil {
		return ""
	}
	lines := make([]string, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		switch {
		case b.Kind == BlockKindText && b.Text != nil:
			lines = append(lines, string(b.Text.UTF8))
		case b.Kind == BlockKindMedia && b.Image != nil:
			lines = append(lines, fmt.Sprintf("[image %dx%d %s]", b.Image.DisplayW, b.Image.DisplayH, b.Image.Format))
		}
	}
	return strings.Join(lines, "\n")
}

func Validate(doc *Document) error {
	if doc == nil {
		return ErrNilDocument
	}
	if !utf8.ValidString(doc.Metadata.Title) || !utf8.ValidString(doc.Metadata.AppVersion) {
		return errors.New("draftdoc: metadata fields must be valid UTF-8")
	}

	seenIDs := map[uint64]struct{}{}
	for i := range doc.Blocks {
		b := &doc.Blocks[i]
		if b.ID == metaBlockID || b.ID == fmtBlockID {
			return fmt.Errorf("draftdoc: block[%d] id is reserved", i)
		}
		if _, ok := seenIDs[b.ID]; ok {
			return fmt.Errorf("draftdoc: duplicate block id %d", b.ID)
		}
		seenIDs[b.ID] = struct{}{}

		switch b.Kind {
		case BlockKindText:
			if b.Text == nil {
				return fmt.Errorf("draftdoc: text block %d missing payload", b.ID)
			}
			if !utf8.Valid(b.Text.UTF8) {
				return fmt.Errorf("draftdoc: text block %d is not valid UTF-8", b.ID)
			}
			if err := validateRuns(b.Text); err != nil {
				return fmt.Errorf("draftdoc: block %d: %w", b.ID, err)
			}
		case BlockKindMedia:
			if b.Image == nil {
				return fmt.Errorf("draftdoc: media block %d missing payload", b.ID)
			}
			if err := validateImage(b.Image); err != nil {
				return fmt.Errorf("draftdoc: block %d: %w", b.ID, err)
			}
		default:
			return fmt.Errorf("draftdoc: unsupported block kind %d for save", b.Kind)
		}
	}
	return nil
}

func validateRuns(tb *TextBlock) error {
	txtLen := uint32(len(tb.UTF8))
	runs := append([]StyleRun(nil), tb.Runs...)
	sortRuns(runs)

	var lastEnd uint32
	for i, r := range runs {
		if r.Start > r.End {
			return fmt.Errorf("invalid run range %d..%d", r.Start, r.End)
		}
		if r.Start == r.End && !(txtLen == 0 && r.Start == 0) {
			return fmt.Errorf("invalid zero-length run %d..%d", r.Start, r.End)
		}
		if r.End > txtLen {
			return fmt.Errorf("run range %d..%d outside text length %d", r.Start, r.End, txtLen)
		}
		if i > 0 && r.Start < lastEnd {
			return fmt.Errorf("overlapping style runs around offset %d", r.Start)
		}
		if r.Attr.FontSizePt == 0 {
			return errors.New("font size must be non-zero")
		}
		if !IsValidFontFamily(r.Attr.FontFamily) {
			return errors.New("font family is invalid")
		}
		if !IsValidAlign(r.Attr.Align) {
			return errors.New("paragraph alignment is invalid")
		}
		lastEnd = r.End
	}
	return nil
}

func validateImage(img *ImageBlock) error {
	if len(img.Data) == 0 {
		return errors.New("image data is empty")
	}
	if img.Format == "" || !utf8.ValidString(img.Format) {
		return errors.New("image format is missing")
	}
	if img.DisplayW == 0 || img.DisplayH == 0 {
		return errors.New("image display size must be non-zero")
	}
	if !IsValidAlign(img.Align) {
		return errors.New("image alignment is invalid")
	}
	return nil
}

func sortRuns(runs []StyleRun) {
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].Start == runs[j].Start {
			return runs[i].End < runs[j].End
		}
		return runs[i].Start < runs[j].Start
	})
}

func IsValidFontFamily(f FontFamily) bool {
	return f == FontFamilySans || f == FontFamilySerif || f == FontFamilyMonospace
}

func IsValidAlign(a Align) bool {
	return a <= AlignJustified
}

func normalizeFontFamily(f FontFamily) FontFamily {
	if !IsValidFontFamily(f) {
		return FontFamilySans
	}
	return f
}

func normalizeAlign(a Align) Align {
	if !IsValidAlign(a) {
		return AlignLeft
	}
	return a
}
