package draftdoc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

type LayoutSegment struct {
	Name    string
	Kind    BlockKind
	BlockID uint64
	Offset  uint64
	Length  uint32
}

type LayoutInfo struct {
	HeaderLength uint32
	IndexOffset  uint64
	IndexLength  uint32
	FileSize     uint64
	Segments     []LayoutSegment
}

// renameFile is swapped in tests to simulate a crash between write and rename.
var renameFile = os.Rename

func Encode(doc *Document) ([]byte, error) {
	return EncodeWithOptions(doc, SaveOptions{})
}

// EncodeWithOptions serializes doc, wrapping it in an envelope when
// compression or encryption is requested.
func EncodeWithOptions(doc *Document, opts SaveOptions) ([]byte, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	res, err := encodeDocumentDetailed(doc)
	if err != nil {
		return nil, err
	}
	if !opts.wrapped() {
		return res.Blob, nil
	}
	return wrapEnvelope(res.Blob, opts)
}

func Decode(b []byte) (*Document, error) {
	return DecodeWithOptions(b, LoadOptions{})
}

func DecodeWithOptions(b []byte, opts LoadOptions) (*Document, error) {
	var err error
	if isEnvelope(b) {
		if b, err = unwrapEnvelope(b, opts); err != nil {
			return nil, err
		}
	}
	doc, err := decodeDocument(b)
	if err != nil {
		return nil, err
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func Save(path string, doc *Document) error {
	return SaveWithOptions(path, doc, SaveOptions{})
}

// SaveWithOptions stamps doc's modification time, encodes it and replaces
// path atomically.
func SaveWithOptions(path string, doc *Document, opts SaveOptions) error {
	if doc == nil {
		return ErrNilDocument
	}
	now := time.Now().Unix()
	if doc.Metadata.CreatedUnix == 0 {
		doc.Metadata.CreatedUnix = now
	}
	doc.Metadata.ModifiedUnix = now

	blob, err := EncodeWithOptions(doc, opts)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, blob, 0o644)
}

func Load(path string) (*Document, error) {
	return LoadWithOptions(path, LoadOptions{})
}

func LoadWithOptions(path string, opts LoadOptions) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeWithOptions(b, opts)
}

// WriteFileAtomic writes data next to path and renames it into place, so a
// reader sees either the previous file or the complete new one.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	fail := func(err error) error {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if _, err := f.Write(data); err != nil {
		return fail(err)
	}
	if err := f.Sync(); err != nil {
		return fail(err)
	}
	if err := f.Chmod(perm); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := renameFile(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("draftdoc: replace %s: %w", path, err)
	}
	syncDir(dir)
	return nil
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

func InspectEnvelope(path string) (EnvelopeInfo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return EnvelopeInfo{}, err
	}
	return InspectEnvelopeBytes(b)
}

func InspectLayout(doc *Document) (*LayoutInfo, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	res, err := encodeDocumentDetailed(doc)
	if err != nil {
		return nil, err
	}

	segments := []LayoutSegment{
		{Name: "Header", Kind: BlockKindMetadata, BlockID: metaBlockID, Length: uint32(headerSize)},
		{Name: "Index", Kind: BlockKindStyle, BlockID: fmtBlockID, Offset: res.TOCOffset, Length: res.TOCLength},
	}
	for _, e := range res.Entries {
		segments = append(segments, LayoutSegment{
			Name:    segmentName(e.Kind),
			Kind:    e.Kind,
			BlockID: e.ID,
			Offset:  e.Offset,
			Length:  e.Length,
		})
	}
	sort.SliceStable(segments, func(i, j int) bool { return segments[i].Offset < segments[j].Offset })

	return &LayoutInfo{
		HeaderLength: uint32(headerSize),
		IndexOffset:  res.TOCOffset,
		IndexLength:  res.TOCLength,
		FileSize:     uint64(len(res.Blob)),
		Segments:     segments,
	}, nil
}

func segmentName(k BlockKind) string {
	switch k {
	case BlockKindMetadata:
		return "Metadata"
	case BlockKindStyle:
		return "Formatting Directive"
	case BlockKindText:
		return "Text Block"
	case BlockKindMedia:
		return "Media Block"
	default:
		return "Block"
	}
}

// IsCorrupt reports whether err came from undecodable file content, as opposed
// to a filesystem or password problem.
func IsCorrupt(err error) bool {
	for _, target := range []error{
		ErrInvalidMagic, ErrUnsupportedVer, ErrMissingIndexFlag, ErrInvalidTOC,
		ErrInvalidBlockRange, ErrOverlappingBlocks, ErrChecksum, ErrInvalidSecureFile,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
