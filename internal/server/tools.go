package server

import "github.com/ironsheep/region-tools-mcp/internal/imaging"

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// pathProperty is the image reference accepted by every image tool.
func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file. PDFs accept a '#page=N' suffix (1-based, default 1)",
	}
}

// detectionProperties returns the schema shared by the regions_* tools,
// merged with extra.
func detectionProperties(extra map[string]interface{}) map[string]interface{} {
	channels := make([]string, len(imaging.ChannelModes))
	for i, m := range imaging.ChannelModes {
		channels[i] = string(m)
	}
	props := map[string]interface{}{
		"path": pathProperty(),
		"roi": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "integer"},
			"minItems":    4,
			"maxItems":    4,
			"description": "Region of interest [x1, y1, x2, y2], max edges exclusive. Default whole image",
		},
		"roi_name": map[string]interface{}{
			"type":        "string",
			"enum":        imaging.ROINames,
			"description": "Named region of interest instead of roi",
		},
		"preset": map[string]interface{}{
			"type":        "string",
			"description": "Name of a detection preset (see regions_presets). Explicit options override it",
		},
		"channel": map[string]interface{}{
			"type":        "string",
			"enum":        channels,
			"description": "How pixels are reduced to one comparable value. Default gray",
		},
		"threshold": map[string]interface{}{
			"type":        "integer",
			"description": "Cut-off for the threshold channel (0-255). Default 128",
		},
		"blur_radius": map[string]interface{}{
			"type":        "number",
			"description": "Gaussian blur radius applied before channel extraction. Default 0",
		},
		"hue_bins": map[string]interface{}{
			"type":        "integer",
			"description": "Number of hue sectors for the hue channel. Default 12",
		},
		"palette": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "Hex colours for the palette channel; each pixel maps to the nearest entry",
		},
		"min_size": map[string]interface{}{
			"type":        "integer",
			"description": "Minimum region size in pixels",
		},
		"max_size": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum region size in pixels. 0 means unbounded",
		},
		"min_value": map[string]interface{}{
			"type":        "integer",
			"description": "Minimum channel value of reported regions",
		},
		"max_value": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum channel value of reported regions",
		},
		"quantize": map[string]interface{}{
			"type":        "integer",
			"description": "Treat channel values in buckets of this width as equal. Default exact",
		},
		"include_scanlines": map[string]interface{}{
			"type":        "boolean",
			"description": "Include each region's horizontal runs",
		},
		"include_contour": map[string]interface{}{
			"type":        "boolean",
			"description": "Include each region's outer contour",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. The decoded image is cached for subsequent operations.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Region Detection
		{
			Name:        "regions_detect",
			Description: "Find connected regions of equal channel value. Returns each region's size, value, bounds, centroid, perimeter and hole count in discovery order.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": detectionProperties(nil),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "regions_overlay",
			Description: "Render detected regions over the image, each filled with a distinct colour, and return a base64-encoded PNG or write it to a file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": detectionProperties(map[string]interface{}{
					"alpha": map[string]interface{}{
						"type":        "number",
						"description": "Fill opacity in (0, 1]. Default 0.5",
						"default":     imaging.DefaultOverlayAlpha,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor for the output. Default 1.0",
						"default":     1.0,
					},
					"outline": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw region contours in opaque colour",
					},
					"labels": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw each region's index at its centroid",
					},
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Write the overlay to this file instead of returning it",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "regions_at",
			Description: "Find the regions containing a pixel, optionally with the nearest regions by centroid and the regions whose centroid lies in an area.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": detectionProperties(map[string]interface{}{
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
					"nearest": map[string]interface{}{
						"type":        "integer",
						"description": "Also return this many regions with the closest centroids",
					},
					"within": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "integer"},
						"description": "Also return regions whose centroid lies in [x1, y1, x2, y2]",
					},
				}),
				"required": []string{"path", "x", "y"},
			},
		},
		{
			Name:        "regions_blobs",
			Description: "Classify detected regions as rectangle, circle, line or irregular, largest first.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": detectionProperties(map[string]interface{}{
					"min_area": map[string]interface{}{
						"type":        "integer",
						"description": "Minimum blob area in pixels",
					},
					"min_confidence": map[string]interface{}{
						"type":        "number",
						"description": "Minimum classification confidence (0-1)",
					},
					"kinds": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "string",
							"enum": []string{"rectangle", "circle", "line", "irregular"},
						},
						"description": "Only return these kinds",
					},
				}),
				"required": []string{"path"},
			},
		},

		// Bulk and Output
		{
			Name:        "regions_batch",
			Description: "Detect regions in many images in parallel with the same options. Results keep input order; failures are reported per image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": detectionProperties(map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Absolute paths of the images",
					},
					"workers": map[string]interface{}{
						"type":        "integer",
						"description": "Images processed at once. Default from CPU count and free memory",
					},
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Also export the results to this .json/.yaml/.yml file, optionally .zst compressed",
					},
				}),
				"required": []string{"paths"},
			},
		},
		{
			Name:        "regions_export",
			Description: "Detect regions and write them to a JSON or YAML file, zstd compressed when the name ends in .zst.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": detectionProperties(map[string]interface{}{
					"output": map[string]interface{}{
						"type":        "string",
						"description": "Destination file: .json, .yaml or .yml, optionally followed by .zst",
					},
				}),
				"required": []string{"path", "output"},
			},
		},
		{
			Name:        "regions_presets",
			Description: "List the available detection presets, or show one by name.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Preset to show. Default lists all",
					},
				},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
