package app

import (
	"github.com/cespare/xxhash/v2"
	"github.com/hajimehoshi/ebiten/v2"

	"draftpad/internal/imaging"
	"draftpad/pkg/draftdoc"
)

// cacheIdleFrames is how long an unused texture survives before it is freed.
const cacheIdleFrames = 600

type imageKey struct {
	sum  uint64
	w, h int
}

type cachedImage struct {
	img      *ebiten.Image
	err      error
	lastUsed uint64
}

// imageCache keeps one texture per image content and display size. Hashes of
// attachment bytes are memoized per backing array between sweeps.
type imageCache struct {
	entries map[imageKey]*cachedImage
	sums    map[*byte]uint64
}

func newImageCache() *imageCache {
	return &imageCache{
		entries: make(map[imageKey]*cachedImage),
		sums:    make(map[*byte]uint64),
	}
}

func (c *imageCache) sum(data []byte) uint64 {
	p := &data[0]
	if s, ok := c.sums[p]; ok {
		return s
	}
	s := xxhash.Sum64(data)
	c.sums[p] = s
	return s
}

func (c *imageCache) get(block *draftdoc.ImageBlock, w, h int, tick uint64) (*ebiten.Image, error) {
	if len(block.Data) == 0 || w <= 0 || h <= 0 {
		return nil, nil
	}
	key := imageKey{sum: c.sum(block.Data), w: w, h: h}
	if e, ok := c.entries[key]; ok {
		e.lastUsed = tick
		return e.img, e.err
	}

	e := &cachedImage{lastUsed: tick}
	src, _, err := imaging.Decode(block.Data)
	if err != nil {
		e.err = err
	} else {
		e.img = ebiten.NewImageFromImage(imaging.Resample(src, w, h))
	}
	c.entries[key] = e
	return e.img, e.err
}

// sweep frees textures that have not been drawn recently.
func (c *imageCache) sweep(tick uint64) {
	if tick%60 != 0 {
		return
	}
	for key, e := range c.entries {
		if tick-e.lastUsed < cacheIdleFrames {
			continue
		}
		if e.img != nil {
			e.img.Deallocate()
		}
		delete(c.entries, key)
	}
	clear(c.sums)
}
