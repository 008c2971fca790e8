package tools

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// JSON-RPC 2.0 error codes used by the server.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

const protocolVersion = "2024-11-05"

// maxLineBytes bounds a single request line (payloads travel as tool
// arguments, so 4 MiB is generous).
const maxLineBytes = 4 << 20

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type callResult struct {
	Content []textContent `json:"content"`
	IsError bool          `json:"isError"`
}

// Server speaks line-delimited JSON-RPC 2.0 over a reader/writer pair
// (normally stdin/stdout) and dispatches tools/call requests into the
// registry. Expected operation failures come back as failed tool results;
// only malformed requests produce protocol-level errors.
type Server struct {
	reg    *Registry
	logger *slog.Logger
}

// NewServer creates a server over reg.
func NewServer(reg *Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{reg: reg, logger: logger}
}

// errLineTooLong marks a request line over maxLineBytes. The line is consumed
// so the session keeps going.
var errLineTooLong = errors.New("request line too long")

// Serve processes requests until r is exhausted or ctx is cancelled. An
// oversized request line is answered with a parse error and skipped; it does
// not end the session.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	br := bufio.NewReaderSize(r, 64*1024)
	enc := json.NewEncoder(w)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := readLine(br)
		if errors.Is(err, errLineTooLong) {
			if err := enc.Encode(errorResponse(nil, codeParseError, "request line too long")); err != nil {
				return err
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			if err := enc.Encode(errorResponse(nil, codeParseError, "parse error")); err != nil {
				return err
			}
			continue
		}

		resp := s.handle(ctx, &req)
		if resp == nil {
			// notification
			continue
		}
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
}

// readLine reads one newline-terminated line. A line over maxLineBytes is
// consumed to its end and reported as errLineTooLong.
func readLine(br *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := br.ReadSlice('\n')
		line = append(line, chunk...)
		switch {
		case err == nil:
			return line, nil
		case errors.Is(err, bufio.ErrBufferFull):
			if len(line) > maxLineBytes {
				if derr := discardLine(br); derr != nil {
					return nil, derr
				}
				return nil, errLineTooLong
			}
		case errors.Is(err, io.EOF):
			if len(line) == 0 {
				return nil, io.EOF
			}
			return line, nil
		default:
			return nil, err
		}
	}
}

// discardLine consumes input up to and including the next newline.
func discardLine(br *bufio.Reader) error {
	for {
		_, err := br.ReadSlice('\n')
		if err == nil || errors.Is(err, io.EOF) {
			return nil
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

func (s *Server) handle(ctx context.Context, req *rpcRequest) *rpcResponse {
	// requests without an id are notifications and get no response
	if len(req.ID) == 0 || string(req.ID) == "null" {
		s.logger.Debug("notification", "method", req.Method)
		return nil
	}

	if req.JSONRPC != "2.0" || req.Method == "" {
		return errorResponse(req.ID, codeInvalidRequest, "invalid request")
	}

	switch req.Method {
	case "initialize":
		return resultResponse(req.ID, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo": map[string]any{
				"name":    "wordpress-mcp",
				"version": "1.0.0",
			},
		})

	case "ping":
		return resultResponse(req.ID, map[string]any{})

	case "tools/list":
		return resultResponse(req.ID, map[string]any{"tools": s.reg.List()})

	case "tools/call":
		var params struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
			return errorResponse(req.ID, codeInvalidParams, "invalid tools/call params")
		}
		if params.Arguments == nil {
			params.Arguments = map[string]any{}
		}

		text, isError := s.reg.Call(ctx, params.Name, params.Arguments)
		return resultResponse(req.ID, callResult{
			Content: []textContent{{Type: "text", Text: text}},
			IsError: isError,
		})

	default:
		return errorResponse(req.ID, codeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func resultResponse(id json.RawMessage, result any) *rpcResponse {
	return &rpcResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id json.RawMessage, code int, msg string) *rpcResponse {
	if id == nil {
		id = json.RawMessage("null")
	}
	return &rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: msg}}
}
