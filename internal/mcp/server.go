package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"financemcp/internal/provider"
	"financemcp/internal/slogx"
)

// Server dispatches JSON-RPC requests to registered tools. Tool calls run one at a time.
type Server struct {
	name    string
	version string
	tools   map[string]Tool
	order   []string
	calls   *semaphore.Weighted
	logger  *slog.Logger
}

// NewServer registers tools in the order given; tools/list reports them in that order.
func NewServer(name, version string, logger *slog.Logger, tools ...Tool) *Server {
	if logger == nil {
		logger = slogx.Discard()
	}
	s := &Server{
		name:    name,
		version: version,
		tools:   make(map[string]Tool, len(tools)),
		calls:   semaphore.NewWeighted(1),
		logger:  logger,
	}
	for _, t := range tools {
		def := t.Definition()
		if _, dup := s.tools[def.Name]; !dup {
			s.order = append(s.order, def.Name)
		}
		s.tools[def.Name] = t
	}
	return s
}

// HandleMessage decodes one JSON-RPC message and returns the encoded reply, or nil when
// the message is a notification.
func (s *Server) HandleMessage(ctx context.Context, creds provider.Credentials, raw []byte) []byte {
	var req Request
	if err := json.Unmarshal(bytes.TrimSpace(raw), &req); err != nil {
		return encode(errorResponse(nil, CodeParseError, "parse error: "+err.Error()))
	}
	resp := s.Dispatch(ctx, creds, req)
	if resp == nil {
		return nil
	}
	return encode(resp)
}

// Dispatch handles a decoded request. It returns nil for notifications.
func (s *Server) Dispatch(ctx context.Context, creds provider.Credentials, req Request) *Response {
	if req.IsNotification() {
		s.logger.Debug("mcp notification", "method", req.Method)
		return nil
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return errorResponse(req.ID, CodeInvalidRequest, "invalid request")
	}

	switch req.Method {
	case "initialize":
		return result(req.ID, initializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    map[string]any{"tools": map[string]any{}},
			ServerInfo:      serverInfo{Name: s.name, Version: s.version},
		})
	case "ping":
		return result(req.ID, map[string]any{})
	case "tools/list":
		defs := make([]ToolDefinition, 0, len(s.order))
		for _, name := range s.order {
			defs = append(defs, s.tools[name].Definition())
		}
		return result(req.ID, listToolsResult{Tools: defs})
	case "tools/call":
		return s.callTool(ctx, creds, req)
	default:
		return errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func (s *Server) callTool(ctx context.Context, creds provider.Credentials, req Request) *Response {
	var params callToolParams
	if len(req.Params) == 0 {
		return errorResponse(req.ID, CodeInvalidParams, "missing params")
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, CodeInvalidParams, "invalid params: "+err.Error())
	}
	tool, ok := s.tools[params.Name]
	if !ok {
		return errorResponse(req.ID, CodeInvalidParams, fmt.Sprintf("unknown tool: %s", params.Name))
	}

	if err := s.calls.Acquire(ctx, 1); err != nil {
		return errorResponse(req.ID, CodeInternalError, "request canceled while waiting: "+err.Error())
	}
	defer s.calls.Release(1)

	start := time.Now()
	res := tool.Call(ctx, creds, params.Arguments)
	s.logger.Info("tool call", "request_id", RequestID(ctx), "tool", params.Name, "is_error", res.IsError, "elapsed", time.Since(start))
	return result(req.ID, res)
}

func result(id json.RawMessage, v any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: v}
}

func errorResponse(id json.RawMessage, code int, msg string) *Response {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return &Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: msg}}
}

func encode(resp *Response) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(resp)
	return buf.Bytes()
}
