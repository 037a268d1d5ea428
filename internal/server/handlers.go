package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ironsheep/image-budget-mcp/internal/compress"
	"github.com/ironsheep/image-budget-mcp/internal/imaging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_compress").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// invalidArgsError marks tool argument problems so they are reported as
// JSON-RPC invalid params rather than execution failures.
type invalidArgsError struct {
	err error
}

func (e *invalidArgsError) Error() string { return e.err.Error() }
func (e *invalidArgsError) Unwrap() error { return e.err }

func invalidArgs(format string, args ...interface{}) error {
	return &invalidArgsError{err: fmt.Errorf(format, args...)}
}

func isInvalidParams(err error) bool {
	var argErr *invalidArgsError
	var reqErr *compress.InvalidRequestError
	return errors.As(err, &argErr) || errors.As(err, &reqErr)
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Argument and parameter-range errors return code -32602; every other tool
// failure returns -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Debug("tool call failed", zap.String("tool", params.Name), zap.Error(err))
		if isInvalidParams(err) {
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
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_compress":
		return s.handleImageCompress(args)
	default:
		return nil, invalidArgs("unknown tool: %s", name)
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

func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = []byte("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return invalidArgs("invalid arguments: %v", err)
	}
	return nil
}

// sourceArgs names the image a tool operates on. Exactly one field must be set.
type sourceArgs struct {
	Path       string `json:"path"`
	DataBase64 string `json:"data_base64"`
	URL        string `json:"url"`
}

func (s *Server) source(a sourceArgs) (imaging.Source, error) {
	set := 0
	for _, v := range []string{a.Path, a.DataBase64, a.URL} {
		if v != "" {
			set++
		}
	}
	switch {
	case set == 0:
		return nil, invalidArgs("one of path, data_base64 or url is required")
	case set > 1:
		return nil, invalidArgs("only one of path, data_base64 or url may be given")
	}

	switch {
	case a.Path != "":
		return imaging.FileSource{Path: a.Path}, nil
	case a.URL != "":
		return imaging.URLSource{URL: a.URL, Timeout: s.fetchTimeout}, nil
	}

	data, err := base64.StdEncoding.DecodeString(a.DataBase64)
	if err != nil {
		return nil, invalidArgs("data_base64 is not valid base64: %v", err)
	}
	return imaging.BytesSource{Name: "data_base64", Data: data}, nil
}

func (s *Server) loadSource(args json.RawMessage) ([]byte, error) {
	var a sourceArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	src, err := s.source(a)
	if err != nil {
		return nil, err
	}
	return src.Load(context.Background())
}

// === Basic Image Information Handlers ===

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	data, err := s.loadSource(args)
	if err != nil {
		return nil, err
	}
	return imaging.Inspect(data)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	data, err := s.loadSource(args)
	if err != nil {
		return nil, err
	}
	return imaging.GetDimensions(data)
}

// === Compression Handler ===

type imageCompressArgs struct {
	sourceArgs
	TargetKB      *float64 `json:"target_kb"`
	Quality       *int     `json:"quality"`
	MinScale      *float64 `json:"min_scale"`
	OutputPath    string   `json:"output_path"`
	IncludeData   *bool    `json:"include_data"`
	IncludeProbes bool     `json:"include_probes"`
}

// CompressToolResult is the image_compress payload.
type CompressToolResult struct {
	compress.Result
	MimeType    string `json:"mime_type"`
	ImageBase64 string `json:"image_base64,omitempty"`
	OutputPath  string `json:"output_path,omitempty"`
}

func (s *Server) handleImageCompress(args json.RawMessage) (interface{}, error) {
	var a imageCompressArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}

	src, err := s.source(a.sourceArgs)
	if err != nil {
		return nil, err
	}

	params := s.defaults
	if a.TargetKB != nil {
		params.TargetKB = *a.TargetKB
	}
	if a.Quality != nil {
		params.Quality = *a.Quality
	}
	if a.MinScale != nil {
		params.MinScale = *a.MinScale
	}

	res, err := s.compressor.Compress(context.Background(), compress.Request{Source: src, Params: params})
	if err != nil {
		return nil, err
	}

	out := &CompressToolResult{Result: *res, MimeType: "image/jpeg"}
	if !a.IncludeProbes {
		out.Probes = nil
	}

	if a.OutputPath != "" {
		if err := os.WriteFile(a.OutputPath, res.Data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write output: %w", err)
		}
		out.OutputPath = a.OutputPath
	}

	includeData := a.OutputPath == ""
	if a.IncludeData != nil {
		includeData = *a.IncludeData
	}
	if includeData {
		out.ImageBase64 = base64.StdEncoding.EncodeToString(res.Data)
	}

	return out, nil
}
