package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// sourceProperties are the mutually exclusive ways a tool call names its image.
func sourceProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to the image file",
		},
		"data_base64": map[string]interface{}{
			"type":        "string",
			"description": "Base64-encoded image bytes (alternative to path)",
		},
		"url": map[string]interface{}{
			"type":        "string",
			"description": "HTTP(S) URL of the image (alternative to path)",
		},
	}
}

func withSource(extra map[string]interface{}) map[string]interface{} {
	props := sourceProperties()
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
			Description: "Decode an image and return its dimensions, format, channel count, alpha presence and encoded size. Provide exactly one of path, data_base64 or url.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": sourceProperties(),
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image from its header. Provide exactly one of path, data_base64 or url.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": sourceProperties(),
			},
		},

		// Compression
		{
			Name: "image_compress",
			Description: "Re-encode an image as JPEG no larger than target_kb, keeping the largest resolution that fits. " +
				"The image is never scaled below min_scale; if even that exceeds the budget the min_scale result is returned anyway. " +
				"Alpha channels are dropped. Provide exactly one of path, data_base64 or url.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withSource(map[string]interface{}{
					"target_kb": map[string]interface{}{
						"type":        "number",
						"description": "Maximum output size in kilobytes (1 KB = 1024 bytes). Default from server config (400)",
					},
					"quality": map[string]interface{}{
						"type":        "integer",
						"description": "JPEG quality 1-100. Default from server config (85)",
						"minimum":     1,
						"maximum":     100,
					},
					"min_scale": map[string]interface{}{
						"type":        "number",
						"description": "Smallest allowed linear scale factor, in (0, 1]. Default from server config (0.1)",
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional file path to write the JPEG to",
					},
					"include_data": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the JPEG as base64. Defaults to true unless output_path is set",
					},
					"include_probes": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the per-attempt probe trace in the result. Default false",
					},
				}),
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
