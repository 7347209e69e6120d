// Package imaging loads images and turns them into labelable planes.
//
// It covers the image side of region detection: decoding files (PNG, JPEG,
// GIF, BMP, TIFF, WebP and rendered PDF pages), reducing a colour image to a
// single 8-bit channel, resolving regions of interest, and painting detected
// regions back onto the source as a coloured overlay.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// Planes returned by ExtractChannel are always anchored at the origin, so
// region coordinates are offsets from the image's top-left corner.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. ExtractChannel and the
// overlay functions are stateless and can be called concurrently.
//
// # Channels
//
// A ChannelSpec picks one of:
//   - gray: luminance
//   - threshold: 1 where luminance >= Threshold, else 0
//   - red, green, blue, alpha: one component of the non-premultiplied colour
//   - hue: HSV hue sector, with achromatic pixels in their own bucket
//   - palette: index of the nearest palette colour in CIE Lab
//
// # Performance Considerations
//
// For repeated operations on the same image, use ImageCache to avoid redundant
// disk reads and PDF renders. Consider using Evict() or Clear() to manage
// memory for long-running processes.
package imaging
