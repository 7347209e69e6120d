package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log"

	"github.com/ironsheep/region-tools-mcp/internal/batch"
	"github.com/ironsheep/region-tools-mcp/internal/detection"
	"github.com/ironsheep/region-tools-mcp/internal/export"
	"github.com/ironsheep/region-tools-mcp/internal/imaging"
	"github.com/ironsheep/region-tools-mcp/internal/spatial"
)

// errInvalidParams marks argument errors that are reported as -32602.
var errInvalidParams = errors.New("invalid params")

func invalidParams(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errInvalidParams, fmt.Sprintf(format, args...))
}

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "regions_detect").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Malformed arguments return -32602; other tool errors return -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}
	if s.settings.Debug() {
		log.Printf("tools/call %s %s", params.Name, params.Arguments)
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, errInvalidParams) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Resolves the preset, overrides and ROI into detection options
//  3. Loads images from cache as needed
//  4. Calls the appropriate imaging/detection/spatial/export function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Region Detection
	case "regions_detect":
		return s.handleRegionsDetect(args)
	case "regions_overlay":
		return s.handleRegionsOverlay(args)
	case "regions_at":
		return s.handleRegionsAt(args)
	case "regions_blobs":
		return s.handleRegionsBlobs(args)

	// Bulk and Output
	case "regions_batch":
		return s.handleRegionsBatch(args)
	case "regions_export":
		return s.handleRegionsExport(args)
	case "regions_presets":
		return s.handleRegionsPresets(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return invalidParams("%v", err)
	}
	return nil
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, invalidParams("path is required")
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, invalidParams("path is required")
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Detection option resolution ===

// detectArgs are shared by every regions_* tool. Explicit fields override
// the named preset; unset pointers leave the preset's value in place.
type detectArgs struct {
	Path    string `json:"path"`
	ROI     []int  `json:"roi,omitempty"`
	ROIName string `json:"roi_name,omitempty"`
	Preset  string `json:"preset,omitempty"`

	Channel    string   `json:"channel,omitempty"`
	Threshold  *int     `json:"threshold,omitempty"`
	BlurRadius *float64 `json:"blur_radius,omitempty"`
	HueBins    *int     `json:"hue_bins,omitempty"`
	Palette    []string `json:"palette,omitempty"`
	MinSize    *int     `json:"min_size,omitempty"`
	MaxSize    *int     `json:"max_size,omitempty"`
	MinValue   *int     `json:"min_value,omitempty"`
	MaxValue   *int     `json:"max_value,omitempty"`
	Quantize   *int     `json:"quantize,omitempty"`

	IncludeScanLines bool `json:"include_scanlines,omitempty"`
	IncludeContour   bool `json:"include_contour,omitempty"`
}

// options resolves everything except the ROI.
func (s *Server) options(a detectArgs) (detection.Options, error) {
	var opts detection.Options
	if a.Preset != "" {
		p, ok := s.presets.Lookup(a.Preset)
		if !ok {
			return opts, invalidParams("unknown preset %q (available: %v)", a.Preset, s.presets.Names())
		}
		var err error
		if opts, err = p.Options(); err != nil {
			return opts, err
		}
	}

	if a.Channel != "" {
		opts.Channel.Mode = imaging.ChannelMode(a.Channel)
	}
	if a.Threshold != nil {
		if *a.Threshold < 0 || *a.Threshold > 255 {
			return opts, invalidParams("threshold must be between 0 and 255, got %d", *a.Threshold)
		}
		opts.Channel.Threshold = uint8(*a.Threshold)
	}
	if a.BlurRadius != nil {
		opts.Channel.BlurRadius = *a.BlurRadius
	}
	if a.HueBins != nil {
		opts.Channel.HueBins = *a.HueBins
	}
	if len(a.Palette) > 0 {
		opts.Channel.Palette = a.Palette
	}
	if a.MinSize != nil {
		opts.MinSize = *a.MinSize
	}
	if a.MaxSize != nil {
		opts.MaxSize = *a.MaxSize
	}
	if a.MinValue != nil {
		opts.MinValue = a.MinValue
	}
	if a.MaxValue != nil {
		opts.MaxValue = a.MaxValue
	}
	if a.Quantize != nil {
		opts.Quantize = *a.Quantize
	}
	opts.IncludeScanLines = opts.IncludeScanLines || a.IncludeScanLines
	opts.IncludeContour = opts.IncludeContour || a.IncludeContour

	if err := opts.Validate(); err != nil {
		return opts, invalidParams("%v", err)
	}
	return opts, nil
}

// load resolves the options and ROI of a and loads the image.
func (s *Server) load(a detectArgs) (image.Image, detection.Options, error) {
	if a.Path == "" {
		return nil, detection.Options{}, invalidParams("path is required")
	}
	opts, err := s.options(a)
	if err != nil {
		return nil, opts, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, opts, err
	}
	// Channel planes are origin-anchored, so the ROI is resolved against
	// the image size rather than its bounds.
	b := img.Bounds()
	roi, err := imaging.ResolveROI(a.ROI, a.ROIName, image.Rect(0, 0, b.Dx(), b.Dy()))
	if err != nil {
		return nil, opts, invalidParams("%v", err)
	}
	opts.ROI = roi
	return img, opts, nil
}

func (s *Server) detect(a detectArgs) (*detection.RegionsResult, error) {
	img, opts, err := s.load(a)
	if err != nil {
		return nil, err
	}
	result, err := s.runner.Detect(img, opts)
	if err != nil {
		return nil, err
	}
	result.Source = a.Path
	return result, nil
}

// === Region Detection Handlers ===

func (s *Server) handleRegionsDetect(args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.detect(a)
}

type regionsOverlayArgs struct {
	detectArgs
	Alpha   float64 `json:"alpha"`
	Scale   float64 `json:"scale"`
	Outline bool    `json:"outline"`
	Labels  bool    `json:"labels"`
	Output  string  `json:"output,omitempty"`
}

type overlayFileResult struct {
	Output  string `json:"output"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Regions int    `json:"regions"`
}

func (s *Server) handleRegionsOverlay(args json.RawMessage) (interface{}, error) {
	var a regionsOverlayArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Alpha == 0 {
		a.Alpha = imaging.DefaultOverlayAlpha
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	img, opts, err := s.load(a.detectArgs)
	if err != nil {
		return nil, err
	}
	_, regs, _, err := s.runner.Regions(img, opts)
	if err != nil {
		return nil, err
	}

	overlay := imaging.OverlayOptions{
		Alpha:   a.Alpha,
		Scale:   a.Scale,
		Outline: a.Outline,
		Labels:  a.Labels,
	}
	// Only crop when the caller asked for an ROI.
	if len(a.ROI) > 0 || (a.ROIName != "" && a.ROIName != "full") {
		overlay.ROI = opts.ROI
	}

	if a.Output == "" {
		return imaging.RenderOverlay(img, regs, overlay)
	}
	out, err := imaging.DrawOverlay(img, regs, overlay)
	if err != nil {
		return nil, err
	}
	if err := imaging.SaveOverlay(out, a.Output); err != nil {
		return nil, err
	}
	return &overlayFileResult{
		Output:  a.Output,
		Width:   out.Bounds().Dx(),
		Height:  out.Bounds().Dy(),
		Regions: len(regs),
	}, nil
}

type regionsAtArgs struct {
	detectArgs
	X       int   `json:"x"`
	Y       int   `json:"y"`
	Nearest int   `json:"nearest,omitempty"`
	Within  []int `json:"within,omitempty"`
}

type regionsAtResult struct {
	X       int                       `json:"x"`
	Y       int                       `json:"y"`
	At      []detection.RegionSummary `json:"at"`
	Nearest []spatial.Hit             `json:"nearest,omitempty"`
	Within  []detection.RegionSummary `json:"within,omitempty"`
}

func (s *Server) handleRegionsAt(args json.RawMessage) (interface{}, error) {
	var a regionsAtArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Nearest < 0 {
		return nil, invalidParams("nearest must be non-negative, got %d", a.Nearest)
	}
	if len(a.Within) != 0 && len(a.Within) != 4 {
		return nil, invalidParams("within must be [x1, y1, x2, y2], got %d values", len(a.Within))
	}
	// Exact point containment needs the runs.
	a.IncludeScanLines = true

	result, err := s.detect(a.detectArgs)
	if err != nil {
		return nil, err
	}
	idx := spatial.NewIndex(result.ROI, result.Regions)

	out := &regionsAtResult{X: a.X, Y: a.Y, At: idx.At(a.X, a.Y)}
	if out.At == nil {
		out.At = []detection.RegionSummary{}
	}
	if a.Nearest > 0 {
		out.Nearest = idx.Nearest(a.X, a.Y, a.Nearest)
	}
	if len(a.Within) == 4 {
		out.Within = idx.Within(detection.Bounds{X1: a.Within[0], Y1: a.Within[1], X2: a.Within[2], Y2: a.Within[3]})
	}
	return out, nil
}

type regionsBlobsArgs struct {
	detectArgs
	MinArea       int      `json:"min_area"`
	MinConfidence float64  `json:"min_confidence"`
	Kinds         []string `json:"kinds,omitempty"`
}

func (s *Server) handleRegionsBlobs(args json.RawMessage) (interface{}, error) {
	var a regionsBlobsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	result, err := s.detect(a.detectArgs)
	if err != nil {
		return nil, err
	}
	return detection.FindBlobs(result, detection.BlobFilter{
		MinArea:       a.MinArea,
		MinConfidence: a.MinConfidence,
		Kinds:         a.Kinds,
	})
}

// === Bulk and Output Handlers ===

type regionsBatchArgs struct {
	detectArgs
	Paths   []string `json:"paths"`
	Workers int      `json:"workers,omitempty"`
	Output  string   `json:"output,omitempty"`
}

type regionsBatchResult struct {
	Items   []batch.Item  `json:"items"`
	Summary batch.Summary `json:"summary"`
	Output  string        `json:"output,omitempty"`
}

func (s *Server) handleRegionsBatch(args json.RawMessage) (interface{}, error) {
	var a regionsBatchArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, invalidParams("paths must list at least one image")
	}
	if a.ROIName != "" {
		return nil, invalidParams("roi_name is not supported for batches; use roi")
	}
	opts, err := s.options(a.detectArgs)
	if err != nil {
		return nil, err
	}
	if len(a.ROI) > 0 {
		if len(a.ROI) != 4 {
			return nil, invalidParams("roi must be [x1, y1, x2, y2], got %d values", len(a.ROI))
		}
		opts.ROI = image.Rect(a.ROI[0], a.ROI[1], a.ROI[2], a.ROI[3])
	}

	items, summary, err := batch.Run(context.Background(), s.cache, a.Paths, opts, batch.Limits{
		Workers: a.Workers,
		Debug:   s.settings.Debug(),
	})
	if err != nil {
		return nil, err
	}

	out := &regionsBatchResult{Items: items, Summary: summary}
	if a.Output != "" {
		if err := export.WriteFile(a.Output, export.FromBatch(items)); err != nil {
			return nil, err
		}
		out.Output = a.Output
	}
	return out, nil
}

type regionsExportArgs struct {
	detectArgs
	Output string `json:"output"`
}

type regionsExportResult struct {
	Output     string `json:"output"`
	Format     string `json:"format"`
	Compressed bool   `json:"compressed"`
	Regions    int    `json:"regions"`
}

func (s *Server) handleRegionsExport(args json.RawMessage) (interface{}, error) {
	var a regionsExportArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Output == "" {
		return nil, invalidParams("output is required")
	}
	format, err := export.FormatFromPath(a.Output)
	if err != nil {
		return nil, invalidParams("%v", err)
	}

	result, err := s.detect(a.detectArgs)
	if err != nil {
		return nil, err
	}
	if err := export.WriteFile(a.Output, export.NewDocument(result)); err != nil {
		return nil, err
	}
	return &regionsExportResult{
		Output:     a.Output,
		Format:     string(format.Kind),
		Compressed: format.Compress,
		Regions:    result.Count,
	}, nil
}

type regionsPresetsArgs struct {
	Name string `json:"name,omitempty"`
}

func (s *Server) handleRegionsPresets(args json.RawMessage) (interface{}, error) {
	var a regionsPresetsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Name == "" {
		return s.presets, nil
	}
	p, ok := s.presets.Lookup(a.Name)
	if !ok {
		return nil, invalidParams("unknown preset %q (available: %v)", a.Name, s.presets.Names())
	}
	return p, nil
}
