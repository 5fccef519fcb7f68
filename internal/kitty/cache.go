package kitty

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/Tonksthebear/restty/internal/vt"
	"golang.org/x/sync/singleflight"
)

// ErrUnsupportedFormat is returned when an image uses a pixel format the
// cache cannot decode.
var ErrUnsupportedFormat = errors.New("kitty: unsupported image format")

// ErrSuperseded is returned when a newer signature was requested for the same
// image id while a decode was running. The stale result is released.
var ErrSuperseded = errors.New("kitty: image superseded")

// Signature identifies the pixel data behind an image id. A new signature for
// a known id means the image was retransmitted.
type Signature struct {
	ID      uint32
	Format  Format
	Width   int
	Height  int
	DataPtr uintptr
	DataLen int
}

// SignatureOf returns the signature of the image a placement refers to.
func SignatureOf(p Placement) Signature {
	return Signature{
		ID:      p.ImageID,
		Format:  p.Format,
		Width:   p.ImageWidth,
		Height:  p.ImageHeight,
		DataPtr: p.DataPtr,
		DataLen: p.DataLen,
	}
}

func (s Signature) key() string {
	return fmt.Sprintf("%d/%d/%dx%d/%x/%d", s.ID, s.Format, s.Width, s.Height, s.DataPtr, s.DataLen)
}

// CacheOption configures an ImageCache.
type CacheOption func(*ImageCache)

// WithReleaseFunc is called with every image the cache drops.
func WithReleaseFunc(fn func(Signature, image.Image)) CacheOption {
	return func(c *ImageCache) { c.release = fn }
}

// WithCacheLogger sets the logger used for failed background decodes.
func WithCacheLogger(l vt.Logger) CacheOption {
	return func(c *ImageCache) { c.logger = l }
}

type cacheEntry struct {
	sig Signature
	img image.Image
}

// ImageCache holds one decoded image per image id. Concurrent decodes of the
// same signature share a single decode. Only the most recently requested
// signature of an id may enter the cache.
type ImageCache struct {
	mu      sync.Mutex
	entries map[uint32]cacheEntry
	latest  map[uint32]Signature

	group   singleflight.Group
	decode  func(format Format, width, height int, data []byte) (image.Image, error)
	release func(Signature, image.Image)
	logger  vt.Logger
}

// NewImageCache creates an empty cache.
func NewImageCache(opts ...CacheOption) *ImageCache {
	c := &ImageCache{
		entries: make(map[uint32]cacheEntry),
		latest:  make(map[uint32]Signature),
		decode:  DecodeImage,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the decoded image for sig if it is cached.
func (c *ImageCache) Get(sig Signature) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[sig.ID]
	if !ok || e.sig != sig {
		return nil, false
	}
	return e.img, true
}

// Decode returns the cached image for sig, decoding data on a miss. An entry
// for the same id with a different signature is replaced and released. If
// another signature for the id is requested before the decode finishes, the
// result is released and ErrSuperseded returned.
func (c *ImageCache) Decode(sig Signature, data []byte) (image.Image, error) {
	c.mu.Lock()
	if e, ok := c.entries[sig.ID]; ok && e.sig == sig {
		c.mu.Unlock()
		return e.img, nil
	}
	c.latest[sig.ID] = sig
	c.mu.Unlock()

	v, err, _ := c.group.Do(sig.key(), func() (any, error) {
		if img, ok := c.Get(sig); ok {
			return img, nil
		}
		img, err := c.decode(sig.Format, sig.Width, sig.Height, data)
		if err != nil {
			return nil, err
		}
		if !c.store(sig, img) {
			return nil, ErrSuperseded
		}
		return img, nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode image %d: %w", sig.ID, err)
	}
	return v.(image.Image), nil
}

// DecodeAsync decodes in the background and calls done with the result.
// Callers that no longer care may ignore the callback.
func (c *ImageCache) DecodeAsync(sig Signature, data []byte, done func(image.Image, error)) {
	go func() {
		img, err := c.Decode(sig, data)
		if err != nil && c.logger != nil {
			c.logger.Printf("kitty: %v", err)
		}
		if done != nil {
			done(img, err)
		}
	}()
}

// store caches img unless a newer signature for its id was requested since.
// A rejected img is released.
func (c *ImageCache) store(sig Signature, img image.Image) bool {
	c.mu.Lock()
	if latest, ok := c.latest[sig.ID]; !ok || latest != sig {
		c.mu.Unlock()
		if c.release != nil {
			c.release(sig, img)
		}
		return false
	}
	old, had := c.entries[sig.ID]
	c.entries[sig.ID] = cacheEntry{sig: sig, img: img}
	c.mu.Unlock()

	if had && old.sig != sig && c.release != nil {
		c.release(old.sig, old.img)
	}
	return true
}

// Evict drops the image for id.
func (c *ImageCache) Evict(id uint32) {
	c.mu.Lock()
	e, ok := c.entries[id]
	delete(c.entries, id)
	delete(c.latest, id)
	c.mu.Unlock()

	if ok && c.release != nil {
		c.release(e.sig, e.img)
	}
}

// Retain evicts every image whose id is not in live.
func (c *ImageCache) Retain(live map[uint32]bool) {
	c.mu.Lock()
	var dropped []cacheEntry
	for id, e := range c.entries {
		if !live[id] {
			dropped = append(dropped, e)
			delete(c.entries, id)
		}
	}
	for id := range c.latest {
		if !live[id] {
			delete(c.latest, id)
		}
	}
	c.mu.Unlock()

	if c.release != nil {
		for _, e := range dropped {
			c.release(e.sig, e.img)
		}
	}
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// DecodeImage decodes transmitted pixel data. Raw formats need the declared
// width and height; PNG carries its own.
func DecodeImage(format Format, width, height int, data []byte) (image.Image, error) {
	switch format {
	case FormatRGBA, FormatRGB:
		if width <= 0 || height <= 0 {
			return nil, fmt.Errorf("invalid size %dx%d", width, height)
		}
		bpp := 4
		if format == FormatRGB {
			bpp = 3
		}
		want := width * height * bpp
		if len(data) < want {
			return nil, fmt.Errorf("short pixel data: got %d bytes, want %d", len(data), want)
		}
		img := image.NewNRGBA(image.Rect(0, 0, width, height))
		if format == FormatRGBA {
			copy(img.Pix, data[:want])
			return img, nil
		}
		for i, j := 0, 0; j < want; i, j = i+4, j+3 {
			img.Pix[i] = data[j]
			img.Pix[i+1] = data[j+1]
			img.Pix[i+2] = data[j+2]
			img.Pix[i+3] = 0xff
		}
		return img, nil
	case FormatPNG:
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("png: %w", err)
		}
		return img, nil
	}
	return nil, fmt.Errorf("%w: f=%d", ErrUnsupportedFormat, format)
}
