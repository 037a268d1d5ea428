package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ironsheep/image-budget-mcp/internal/compress"
	"github.com/ironsheep/image-budget-mcp/internal/imaging"
)

// Version is reported in the initialize handshake. Set by main.
var Version = "0.1.0"

// Server handles MCP protocol communication
type Server struct {
	compressor   *compress.Compressor
	defaults     compress.Params
	fetchTimeout time.Duration
	logger       *zap.Logger
}

// Options configures a Server. Zero fields fall back to package defaults.
type Options struct {
	// Defaults fills in compression parameters a tool call leaves out.
	Defaults compress.Params

	// Normalize controls alpha handling.
	Normalize imaging.NormalizeOptions

	// FetchTimeout bounds url sources.
	FetchTimeout time.Duration

	Logger *zap.Logger
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a new MCP server instance
func New(opts Options) *Server {
	defaults := compress.DefaultParams()
	if opts.Defaults.TargetKB != 0 {
		defaults.TargetKB = opts.Defaults.TargetKB
	}
	if opts.Defaults.Quality != 0 {
		defaults.Quality = opts.Defaults.Quality
	}
	if opts.Defaults.MinScale != 0 {
		defaults.MinScale = opts.Defaults.MinScale
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = imaging.DefaultFetchTimeout
	}

	return &Server{
		compressor: compress.New(
			compress.WithLogger(logger),
			compress.WithNormalizeOptions(opts.Normalize),
		),
		defaults:     defaults,
		fetchTimeout: timeout,
		logger:       logger,
	}
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run() error {
	return s.Serve(os.Stdin, os.Stdout)
}

// Serve reads one JSON-RPC request per line from r and writes responses to w
// until r is exhausted.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Base64 image payloads can be large
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 64*1024*1024)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("failed to parse request", zap.Error(err))
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.logger.Error("failed to encode response", zap.Error(err))
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "image-budget-mcp",
				"version": Version,
			},
		},
	}
}
