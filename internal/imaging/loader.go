package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// PDFRenderDPI is the resolution used to rasterise PDF pages.
const PDFRenderDPI = 150

// ImageCache provides thread-safe caching of loaded images to avoid redundant
// disk reads and PDF renders.
//
// The cache stores decoded image.Image objects keyed by the exact source
// string passed to Load, so "doc.pdf#page=2" and "doc.pdf#page=3" are
// separate entries. Once an image is loaded, subsequent Load() calls for the
// same source return the cached copy.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
// Batch runs over many files should evict each image once its regions are
// extracted.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	img, err := cache.Load("/path/to/scan.pdf#page=2")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// Use img...
//	cache.Evict("/path/to/scan.pdf#page=2")
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Source is a parsed image reference: a file path plus, for PDFs, a
// 1-based page number.
type Source struct {
	Path string
	Page int
}

// IsPDF reports whether the source names a PDF document.
func (s Source) IsPDF() bool {
	return strings.EqualFold(filepath.Ext(s.Path), ".pdf")
}

// String renders the source back into the form accepted by ParseSource.
func (s Source) String() string {
	if s.IsPDF() && s.Page > 1 {
		return fmt.Sprintf("%s#page=%d", s.Path, s.Page)
	}
	return s.Path
}

// ParseSource splits an optional "#page=N" suffix from a path. The suffix
// is only recognised on PDF paths; the page defaults to 1.
func ParseSource(ref string) (Source, error) {
	path, frag, found := strings.Cut(ref, "#")
	src := Source{Path: ref, Page: 1}
	if !found || !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return src, nil
	}
	src.Path = path
	key, val, ok := strings.Cut(frag, "=")
	if !ok || key != "page" {
		return Source{}, fmt.Errorf("invalid page selector %q: want #page=N", frag)
	}
	page, err := strconv.Atoi(val)
	if err != nil || page < 1 {
		return Source{}, fmt.Errorf("invalid page number %q: must be a positive integer", val)
	}
	src.Page = page
	return src, nil
}

// Load retrieves an image from the cache or loads it from disk if not cached.
//
// Supported formats are PNG, JPEG, GIF, BMP, TIFF and WebP. Raster images are
// decoded with EXIF auto-orientation applied. Paths ending in ".pdf" are
// rendered at PDFRenderDPI; append "#page=N" to select a page other than the
// first.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a supported image or PDF
//   - Returns error if the requested PDF page does not exist
func (c *ImageCache) Load(ref string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[ref]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	src, err := ParseSource(ref)
	if err != nil {
		return nil, err
	}

	var img image.Image
	if src.IsPDF() {
		img, err = renderPDFPage(src.Path, src.Page)
	} else {
		img, err = imaging.Open(src.Path, imaging.AutoOrientation(true))
		if err != nil {
			err = fmt.Errorf("failed to decode image: %w", err)
		}
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[ref] = img
	c.mu.Unlock()

	return img, nil
}

// renderPDFPage rasterises one 1-based page of a PDF document.
func renderPDFPage(path string, page int) (image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer doc.Close()

	if n := doc.NumPage(); page > n {
		return nil, fmt.Errorf("pdf page %d out of range: document has %d pages", page, n)
	}
	img, err := doc.ImageDPI(page-1, PDFRenderDPI)
	if err != nil {
		return nil, fmt.Errorf("failed to render pdf page %d: %w", page, err)
	}
	return img, nil
}

// Clear removes all images from the cache, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its source string.
// If the source is not in the cache, this method does nothing.
func (c *ImageCache) Evict(ref string) {
	c.mu.Lock()
	delete(c.images, ref)
	c.mu.Unlock()
}

// Len reports the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the format detected from the file extension, or "unknown".
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the image has an alpha (transparency) channel.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// Page is the rendered PDF page, or 0 for raster images.
	Page int `json:"page,omitempty"`
}

// LoadImageInfo loads an image and returns metadata about it.
//
// The image is loaded into the cache if not already present. Color depth is
// determined by the decoded Go image type:
//   - *image.RGBA64, *image.NRGBA64, *image.Gray16 -> "16-bit"
//   - All other types -> "8-bit"
func LoadImageInfo(cache *ImageCache, ref string) (*ImageInfo, error) {
	img, err := cache.Load(ref)
	if err != nil {
		return nil, err
	}
	src, err := ParseSource(ref)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(src.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	hasAlpha := false
	colorDepth := "8-bit"
	switch img.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	info := &ImageInfo{
		Width:         img.Bounds().Dx(),
		Height:        img.Bounds().Dy(),
		Format:        formatFromExt(src.Path),
		ColorDepth:    colorDepth,
		HasAlpha:      hasAlpha,
		FileSizeBytes: stat.Size(),
	}
	if src.IsPDF() {
		info.Page = src.Page
	}
	return info, nil
}

func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	case ".bmp":
		return "bmp"
	case ".tif", ".tiff":
		return "tiff"
	case ".webp":
		return "webp"
	case ".pdf":
		return "pdf"
	}
	return "unknown"
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an image without additional metadata.
func GetDimensions(cache *ImageCache, ref string) (*DimensionsResult, error) {
	img, err := cache.Load(ref)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
