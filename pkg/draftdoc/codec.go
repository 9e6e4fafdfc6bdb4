package draftdoc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"sort"
)

const (
	headerSize = len(MagicString) + 2 + 2 + 8 + 4
	tocEntSize = 8 + 1 + 8 + 4 + 4
	styleEntSz = 8 + 4 + 4 + 1 + 1 + 1 + 2 + 4

	metaBlockID = uint64(0)
	fmtBlockID  = ^uint64(0)

	offVersion  = len(MagicString)
	offFlags    = offVersion + 2
	offTOC      = offFlags + 2
	offTOCCount = offTOC + 8
)

const (
	flagBold uint8 = 1 << iota
	flagItalic
	flagUnderline
	flagHighlight
)

type FormattingDirectiveEntry struct {
	BlockID uint64
	Start   uint32
	End     uint32
	Attr    StyleAttr
}

type tocEntry struct {
	ID     uint64
	Kind   BlockKind
	Offset uint64
	Length uint32
	CRC32  uint32
}

type encodeResult struct {
	Blob      []byte
	Entries   []tocEntry
	TOCOffset uint64
	TOCLength uint32
}

type payloadEntry struct {
	ID      uint64
	Kind    BlockKind
	Payload []byte
}

func encodeDocumentDetailed(doc *Document) (*encodeResult, error) {
	payloads := make([]payloadEntry, 0, len(doc.Blocks)+2)
	payloads = append(payloads, payloadEntry{
		ID:      metaBlockID,
		Kind:    BlockKindMetadata,
		Payload: encodeMetadata(doc.Metadata),
	}, payloadEntry{
		ID:      fmtBlockID,
		Kind:    BlockKindStyle,
		Payload: encodeFormattingDirective(collectFormatting(doc)),
	})

	for _, b := range doc.Blocks {
		payload, err := encodeBlockPayload(b)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, payloadEntry{ID: b.ID, Kind: b.Kind, Payload: payload})
	}

	tocOffset := uint64(headerSize)
	tocLength := uint32(len(payloads) * tocEntSize)
	out := make([]byte, headerSize+int(tocLength))
	copy(out[:len(MagicString)], MagicString)

	entries := make([]tocEntry, 0, len(payloads))
	offset := uint64(len(out))
	for _, p := range payloads {
		entries = append(entries, tocEntry{
			ID:     p.ID,
			Kind:   p.Kind,
			Offset: offset,
			Length: uint32(len(p.Payload)),
			CRC32:  crc32.ChecksumIEEE(p.Payload),
		})
		out = append(out, p.Payload...)
		offset += uint64(len(p.Payload))
	}

	ptr := headerSize
	for _, e := range entries {
		binary.LittleEndian.PutUint64(out[ptr:ptr+8], e.ID)
		out[ptr+8] = byte(e.Kind)
		binary.LittleEndian.PutUint64(out[ptr+9:ptr+17], e.Offset)
		binary.LittleEndian.PutUint32(out[ptr+17:ptr+21], e.Length)
		binary.LittleEndian.PutUint32(out[ptr+21:ptr+25], e.CRC32)
		ptr += tocEntSize
	}

	binary.LittleEndian.PutUint16(out[offVersion:offFlags], VersionV1)
	binary.LittleEndian.PutUint16(out[offFlags:offTOC], FlagIndexed)
	binary.LittleEndian.PutUint64(out[offTOC:offTOCCount], tocOffset)
	binary.LittleEndian.PutUint32(out[offTOCCount:headerSize], uint32(len(entries)))

	return &encodeResult{Blob: out, Entries: entries, TOCOffset: tocOffset, TOCLength: tocLength}, nil
}

func decodeDocument(blob []byte) (*Document, error) {
	if len(blob) < headerSize || string(blob[:len(MagicString)]) != MagicString {
		return nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint16(blob[offVersion:offFlags]); v != VersionV1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVer, v)
	}
	if flags := binary.LittleEndian.Uint16(blob[offFlags:offTOC]); flags&FlagIndexed == 0 {
		return nil, ErrMissingIndexFlag
	}

	tocOffset := binary.LittleEndian.Uint64(blob[offTOC:offTOCCount])
	tocCount := binary.LittleEndian.Uint32(blob[offTOCCount:headerSize])
	if tocOffset > uint64(len(blob)) {
		return nil, ErrInvalidTOC
	}
	if end := tocOffset + uint64(tocCount)*uint64(tocEntSize); end > uint64(len(blob)) {
		return nil, ErrInvalidTOC
	}

	entries := make([]tocEntry, 0, tocCount)
	ptr := int(tocOffset)
	for i := 0; i < int(tocCount); i++ {
		entries = append(entries, tocEntry{
			ID:     binary.LittleEndian.Uint64(blob[ptr : ptr+8]),
			Kind:   BlockKind(blob[ptr+8]),
			Offset: binary.LittleEndian.Uint64(blob[ptr+9 : ptr+17]),
			Length: binary.LittleEndian.Uint32(blob[ptr+17 : ptr+21]),
			CRC32:  binary.LittleEndian.Uint32(blob[ptr+21 : ptr+25]),
		})
		ptr += tocEntSize
	}
	if err := validateEntryRanges(entries, len(blob)); err != nil {
		return nil, err
	}

	doc := &Document{}
	textIndex := map[uint64]int{}
	var directive []FormattingDirectiveEntry

	for _, e := range entries {
		payload := blob[e.Offset : e.Offset+uint64(e.Length)]
		if crc32.ChecksumIEEE(payload) != e.CRC32 {
			return nil, fmt.Errorf("%w: block %d", ErrChecksum, e.ID)
		}

		switch e.Kind {
		case BlockKindMetadata:
			m, err := decodeMetadata(payload)
			if err != nil {
				return nil, err
			}
			doc.Metadata = m
		case BlockKindStyle:
			d, err := decodeFormattingDirective(payload)
			if err != nil {
				return nil, err
			}
			directive = d
		case BlockKindText:
			tb, err := decodeTextBlock(payload)
			if err != nil {
				return nil, err
			}
			doc.Blocks = append(doc.Blocks, Block{ID: e.ID, Kind: BlockKindText, Text: tb})
			textIndex[e.ID] = len(doc.Blocks) - 1
		case BlockKindMedia:
			img, err := decodeImageBlock(payload)
			if err != nil {
				return nil, err
			}
			doc.Blocks = append(doc.Blocks, Block{ID: e.ID, Kind: BlockKindMedia, Image: img})
		default:
			// Unknown kinds stay skippable through the TOC.
		}
	}

	for _, d := range directive {
		if idx, ok := textIndex[d.BlockID]; ok {
			tb := doc.Blocks[idx].Text
			tb.Runs = append(tb.Runs, StyleRun{Start: d.Start, End: d.End, Attr: d.Attr})
		}
	}
	for _, idx := range textIndex {
		sortRuns(doc.Blocks[idx].Text.Runs)
	}
	return doc, nil
}

func collectFormatting(doc *Document) []FormattingDirectiveEntry {
	out := make([]FormattingDirectiveEntry, 0)
	for _, b := range doc.Blocks {
		if b.Kind != BlockKindText || b.Text == nil {
			continue
		}
		for _, r := range b.Text.Runs {
			out = append(out, FormattingDirectiveEntry{BlockID: b.ID, Start: r.Start, End: r.End, Attr: r.Attr})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BlockID == out[j].BlockID {
			if out[i].Start == out[j].Start {
				return out[i].End < out[j].End
			}
			return out[i].Start < out[j].Start
		}
		return out[i].BlockID < out[j].BlockID
	})
	return out
}

func encodeFormattingDirective(entries []FormattingDirectiveEntry) []byte {
	out := make([]byte, 0, 4+len(entries)*styleEntSz)
	out = appendU32(out, uint32(len(entries)))
	for _, e := range entries {
		out = appendU64(out, e.BlockID)
		out = appendU32(out, e.Start)
		out = appendU32(out, e.End)
		var flags uint8
		if e.Attr.Bold {
			flags |= flagBold
		}
		if e.Attr.Italic {
			flags |= flagItalic
		}
		if e.Attr.Underline {
			flags |= flagUnderline
		}
		if e.Attr.Highlight {
			flags |= flagHighlight
		}
		out = append(out, flags, byte(normalizeFontFamily(e.Attr.FontFamily)), byte(normalizeAlign(e.Attr.Align)))
		out = appendU16(out, e.Attr.FontSizePt)
		out = appendU32(out, e.Attr.ColorRGBA)
	}
	return out
}

func decodeFormattingDirective(b []byte) ([]FormattingDirectiveEntry, error) {
	if len(b) < 4 {
		return nil, errors.New("draftdoc: malformed formatting directive block")
	}
	count := int(binary.LittleEndian.Uint32(b[:4]))
	if len(b)-4 != count*styleEntSz {
		return nil, errors.New("draftdoc: malformed formatting directive entry length")
	}
	out := make([]FormattingDirectiveEntry, 0, count)
	ptr := 4
	for i := 0; i < count; i++ {
		e := b[ptr : ptr+styleEntSz]
		flags := e[16]
		out = append(out, FormattingDirectiveEntry{
			BlockID: binary.LittleEndian.Uint64(e[0:8]),
			Start:   binary.LittleEndian.Uint32(e[8:12]),
			End:     binary.LittleEndian.Uint32(e[12:16]),
			Attr: StyleAttr{
				Bold:       flags&flagBold != 0,
				Italic:     flags&flagItalic != 0,
				Underline:  flags&flagUnderline != 0,
				Highlight:  flags&flagHighlight != 0,
				FontFamily: normalizeFontFamily(FontFamily(e[17])),
				Align:      normalizeAlign(Align(e[18])),
				FontSizePt: binary.LittleEndian.Uint16(e[19:21]),
				ColorRGBA:  binary.LittleEndian.Uint32(e[21:25]),
			},
		})
		ptr += styleEntSz
	}
	return out, nil
}

func validateEntryRanges(entries []tocEntry, fileLen int) error {
	type rng struct{ start, end uint64 }
	ranges := make([]rng, 0, len(entries))
	for _, e := range entries {
		end := e.Offset + uint64(e.Length)
		if e.Offset > uint64(fileLen) || end > uint64(fileLen) || e.Offset < uint64(headerSize) {
			return ErrInvalidBlockRange
		}
		ranges = append(ranges, rng{start: e.Offset, end: end})
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })
	for i := 1; i < len(ranges); i++ {
		if ranges[i].start < ranges[i-1].end {
			return ErrOverlappingBlocks
		}
	}
	return nil
}

func encodeMetadata(m Metadata) []byte {
	out := make([]byte, 0, 64)
	out = appendString(out, m.Title)
	out = appendString(out, m.AppVersion)
	out = appendU64(out, uint64(m.CreatedUnix))
	out = appendU64(out, uint64(m.ModifiedUnix))
	return out
}

func decodeMetadata(b []byte) (Metadata, error) {
	var m Metadata
	var ok bool
	if m.Title, b, ok = readString(b); !ok {
		return m, errors.New("draftdoc: malformed metadata title")
	}
	if m.AppVersion, b, ok = readString(b); !ok {
		return m, errors.New("draftdoc: malformed metadata app version")
	}
	if len(b) < 16 {
		return m, errors.New("draftdoc: malformed metadata timestamps")
	}
	m.CreatedUnix = int64(binary.LittleEndian.Uint64(b[:8]))
	m.ModifiedUnix = int64(binary.LittleEndian.Uint64(b[8:16]))
	return m, nil
}

func encodeBlockPayload(b Block) ([]byte, error) {
	switch b.Kind {
	case BlockKindText:
		if b.Text == nil {
			return nil, errors.New("draftdoc: text block payload is nil")
		}
		out := make([]byte, 0, len(b.Text.UTF8)+4)
		out = appendU32(out, uint32(len(b.Text.UTF8)))
		return append(out, b.Text.UTF8...), nil
	case BlockKindMedia:
		if b.Image == nil {
			return nil, errors.New("draftdoc: media block payload is nil")
		}
		return encodeImageBlock(b.Image), nil
	default:
		return nil, fmt.Errorf("draftdoc: unsupported block kind %d", b.Kind)
	}
}

func decodeTextBlock(b []byte) (*TextBlock, error) {
	if len(b) < 4 {
		return nil, errors.New("draftdoc: malformed text block")
	}
	n := int(binary.LittleEndian.Uint32(b[:4]))
	if len(b) != 4+n {
		return nil, errors.New("draftdoc: malformed text payload")
	}
	return &TextBlock{UTF8: append([]byte(nil), b[4:]...)}, nil
}

func encodeImageBlock(img *ImageBlock) []byte {
	out := make([]byte, 0, len(img.Data)+len(img.Format)+29)
	out = appendString(out, img.Format)
	out = appendU32(out, img.PixelW)
	out = appendU32(out, img.PixelH)
	out = appendU32(out, img.DisplayW)
	out = appendU32(out, img.DisplayH)
	out = append(out, byte(normalizeAlign(img.Align)))
	out = appendU32(out, uint32(len(img.Data)))
	return append(out, img.Data...)
}

func decodeImageBlock(b []byte) (*ImageBlock, error) {
	format, b, ok := readString(b)
	if !ok {
		return nil, errors.New("draftdoc: malformed image format")
	}
	if len(b) < 21 {
		return nil, errors.New("draftdoc: malformed image header")
	}
	img := &ImageBlock{
		Format:   format,
		PixelW:   binary.LittleEndian.Uint32(b[0:4]),
		PixelH:   binary.LittleEndian.Uint32(b[4:8]),
		DisplayW: binary.LittleEndian.Uint32(b[8:12]),
		DisplayH: binary.LittleEndian.Uint32(b[12:16]),
		Align:    normalizeAlign(Align(b[16])),
	}
	n := int(binary.LittleEndian.Uint32(b[17:21]))
	if len(b[21:]) != n {
		return nil, errors.New("draftdoc: malformed image data")
	}
	img.Data = append([]byte(nil), b[21:]...)
	return img, nil
}

func appendString(dst []byte, s string) []byte {
	dst = appendU32(dst, uint32(len(s)))
	return append(dst, s...)
}

func readString(src []byte) (string, []byte, bool) {
	if len(src) < 4 {
		return "", nil, false
	}
	ln := int(binary.LittleEndian.Uint32(src[:4]))
	src = src[4:]
	if len(src) < ln {
		return "", nil, false
	}
	return string(src[:ln]), src[ln:], true
}

func appendU16(dst []byte, v uint16) []byte {
	return binary.LittleEndian.AppendUint16(dst, v)
}

func appendU32(dst []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, v)
}

func appendU64(dst []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, v)
}
