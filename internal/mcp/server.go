package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pericope-app/pericope/internal/notes"
	"github.com/pericope-app/pericope/internal/study"
	"github.com/pericope-app/pericope/internal/theology"
	"go.uber.org/zap"
)

const protocolVersion = "2024-11-05"

var (
	errMissingNotesService    = errors.New("notes service dependency required")
	errMissingTheologyService = errors.New("theology service dependency required")
	errMissingStudyService    = errors.New("study service dependency required")
)

// ServerConfig bundles the dependencies for the stdio tool server.
type ServerConfig struct {
	NotesService    *notes.Service
	TheologyService *theology.Service
	StudyService    *study.Service
	Input           io.Reader
	Output          io.Writer
	Logger          *zap.Logger
}

// Server speaks JSON-RPC 2.0 over stdio and exposes the study library as
// MCP tools.
type Server struct {
	tools  *toolHandler
	input  io.Reader
	output io.Writer
	logger *zap.Logger
}

// NewServer validates configuration and constructs a Server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.NotesService == nil {
		return nil, errMissingNotesService
	}
	if cfg.TheologyService == nil {
		return nil, errMissingTheologyService
	}
	if cfg.StudyService == nil {
		return nil, errMissingStudyService
	}

	input := cfg.Input
	if input == nil {
		input = os.Stdin
	}
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		tools: &toolHandler{
			notes:    cfg.NotesService,
			theology: cfg.TheologyService,
			study:    cfg.StudyService,
		},
		input:  input,
		output: output,
		logger: logger,
	}, nil
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ServerInfo      serverInfo         `json:"serverInfo"`
	Capabilities    serverCapabilities `json:"capabilities"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type serverCapabilities struct {
	Tools *toolsCapability `json:"tools,omitempty"`
}

type toolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type listToolsResult struct {
	Tools []toolDefinition `json:"tools"`
}

type toolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema interface{} `json:"inputSchema"`
}

type callToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type callToolResult struct {
	Content []toolContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type toolContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Run reads newline-delimited JSON-RPC messages until EOF or cancellation.
func (s *Server) Run(ctx context.Context) error {
	reader := bufio.NewReader(s.input)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var req rpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			if err := s.sendError(nil, -32700, "parse error"); err != nil {
				return err
			}
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := s.sendResponse(resp); err != nil {
				return err
			}
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req *rpcRequest) *rpcResponse {
	switch req.Method {
	case "initialize":
		return &rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: initializeResult{
				ProtocolVersion: protocolVersion,
				ServerInfo:      serverInfo{Name: "pericope", Version: "1.0.0"},
				Capabilities:    serverCapabilities{Tools: &toolsCapability{}},
			},
		}
	case "tools/list":
		return &rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  listToolsResult{Tools: toolDefinitions()},
		}
	case "tools/call":
		return s.handleCallTool(ctx, req)
	case "notifications/initialized":
		return nil
	default:
		return &rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &rpcError{Code: -32601, Message: "method not found"},
		}
	}
}

func (s *Server) handleCallTool(ctx context.Context, req *rpcRequest) *rpcResponse {
	var params callToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return &rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &rpcError{Code: -32602, Message: "invalid params"},
		}
	}

	result, err := s.tools.Handle(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool call failed", zap.String("tool", params.Name), zap.Error(err))
		return &rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: callToolResult{
				Content: []toolContent{{Type: "text", Text: fmt.Sprintf("Error: %v", err)}},
				IsError: true,
			},
		}
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return &rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &rpcError{Code: -32603, Message: "internal error"},
		}
	}
	return &rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: callToolResult{
			Content: []toolContent{{Type: "text", Text: string(encoded)}},
		},
	}
}

func (s *Server) sendResponse(resp *rpcResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(s.output, "%s\n", data)
	return err
}

func (s *Server) sendError(id interface{}, code int, message string) error {
	return s.sendResponse(&rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: code, Message: message},
	})
}
