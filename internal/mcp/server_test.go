package mcp_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"financemcp/internal/mcp"
	"financemcp/internal/provider"
)

// echoTool returns its arguments and the token it was called with.
type echoTool struct {
	name     string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
	panics   bool
}

func (e *echoTool) Definition() mcp.ToolDefinition {
	return mcp.ToolDefinition{Name: e.name, Description: "echo", InputSchema: map[string]any{"type": "object"}}
}

func (e *echoTool) Call(_ context.Context, creds provider.Credentials, args json.RawMessage) mcp.ToolResult {
	if e.panics {
		panic("boom")
	}
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		seen := e.maxSeen.Load()
		if n <= seen || e.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(e.delay)
	return mcp.TextResult("token=" + creds.TushareToken + " args=" + string(args))
}

type rpcReply struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *mcp.RPCError   `json:"error"`
}

func call(t *testing.T, s *mcp.Server, creds provider.Credentials, msg string) rpcReply {
	t.Helper()
	out := s.HandleMessage(t.Context(), creds, []byte(msg))
	require.NotNil(t, out)
	var r rpcReply
	require.NoError(t, json.Unmarshal(out, &r))
	return r
}

func TestServer_Initialize(t *testing.T) {
	t.Parallel()

	s := mcp.NewServer("FinanceMCP", "1.0.0", nil)

	r := call(t, s, provider.Credentials{}, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)

	require.Nil(t, r.Error)
	require.JSONEq(t, "1", string(r.ID))
	var res struct {
		ProtocolVersion string `json:"protocolVersion"`
		ServerInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
	}
	require.NoError(t, json.Unmarshal(r.Result, &res))
	require.Equal(t, mcp.ProtocolVersion, res.ProtocolVersion)
	require.Equal(t, "FinanceMCP", res.ServerInfo.Name)
	require.Equal(t, "1.0.0", res.ServerInfo.Version)
}

func TestServer_ToolsListKeepsRegistrationOrder(t *testing.T) {
	t.Parallel()

	s := mcp.NewServer("x", "1", nil, &echoTool{name: "b"}, &echoTool{name: "a"})

	r := call(t, s, provider.Credentials{}, `{"jsonrpc":"2.0","id":"l","method":"tools/list"}`)

	var res struct {
		Tools []mcp.ToolDefinition `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(r.Result, &res))
	require.Len(t, res.Tools, 2)
	require.Equal(t, "b", res.Tools[0].Name)
	require.Equal(t, "a", res.Tools[1].Name)
}

func TestServer_ToolsCall(t *testing.T) {
	t.Parallel()

	s := mcp.NewServer("x", "1", nil, &echoTool{name: "echo"})

	r := call(t, s, provider.Credentials{TushareToken: "tk"},
		`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"echo","arguments":{"code":"600519.SH"}}}`)

	require.Nil(t, r.Error)
	var res mcp.ToolResult
	require.NoError(t, json.Unmarshal(r.Result, &res))
	require.False(t, res.IsError)
	require.Equal(t, `token=tk args={"code":"600519.SH"}`, res.Text())
}

func TestServer_Errors(t *testing.T) {
	t.Parallel()

	s := mcp.NewServer("x", "1", nil, &echoTool{name: "echo"})

	cases := []struct {
		name string
		msg  string
		code int
	}{
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`, mcp.CodeMethodNotFound},
		{"unknown tool", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"nope"}}`, mcp.CodeInvalidParams},
		{"missing params", `{"jsonrpc":"2.0","id":1,"method":"tools/call"}`, mcp.CodeInvalidParams},
		{"bad params", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":[1]}`, mcp.CodeInvalidParams},
		{"parse error", `{"jsonrpc":`, mcp.CodeParseError},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"ping"}`, mcp.CodeInvalidRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := call(t, s, provider.Credentials{}, tc.msg)
			require.NotNil(t, r.Error)
			require.Equal(t, tc.code, r.Error.Code)
		})
	}
}

func TestServer_NotificationHasNoReply(t *testing.T) {
	t.Parallel()

	s := mcp.NewServer("x", "1", nil)

	out := s.HandleMessage(t.Context(), provider.Credentials{}, []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))

	require.Nil(t, out)
}

func TestServer_ToolCallsAreSerialized(t *testing.T) {
	t.Parallel()

	tool := &echoTool{name: "echo", delay: 20 * time.Millisecond}
	s := mcp.NewServer("x", "1", nil, tool)

	// Act: fire concurrent calls.
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.HandleMessage(context.Background(), provider.Credentials{},
				[]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{}}}`))
		}()
	}
	wg.Wait()

	// Assert
	require.Equal(t, int32(1), tool.maxSeen.Load())
}

func TestHandler_MCPOverHTTP(t *testing.T) {
	t.Parallel()

	s := mcp.NewServer("x", "1", nil, &echoTool{name: "echo"})
	srv := httptest.NewServer(s.Handler(5 * time.Second))
	defer srv.Close()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, srv.URL+"/mcp",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{"a":1}}}`))
	require.NoError(t, err)
	req.Header.Set(mcp.TokenHeader, " header-token ")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NotEmpty(t, res.Header.Get("X-Request-ID"))
	var r rpcReply
	require.NoError(t, json.NewDecoder(res.Body).Decode(&r))
	var tr mcp.ToolResult
	require.NoError(t, json.Unmarshal(r.Result, &tr))
	require.Equal(t, `token=header-token args={"a":1}`, tr.Text())
}

func TestHandler_Routes(t *testing.T) {
	t.Parallel()

	h := mcp.NewServer("x", "1", nil).Handler(0)

	for _, path := range []string{"/health", "/healthz"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rr.Code, path)
		require.Contains(t, rr.Body.String(), `"status":"ok"`)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/mcp", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Contains(t, rr.Header().Get("Access-Control-Allow-Headers"), mcp.TokenHeader)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/mcp",
		strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)))
	require.Equal(t, http.StatusAccepted, rr.Code)

	rr = httptest.NewRecorder()
	big := bytes.Repeat([]byte("a"), 2<<20)
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(big)))
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestHandler_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	h := mcp.NewServer("x", "1", nil, &echoTool{name: "echo", panics: true}).Handler(0)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/mcp",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo"}}`)))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestServeStdio(t *testing.T) {
	t.Parallel()

	s := mcp.NewServer("x", "1", nil, &echoTool{name: "echo"})
	in := strings.NewReader(strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
		``,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{}}}`,
	}, "\n"))
	var out bytes.Buffer

	err := s.ServeStdio(t.Context(), provider.Credentials{TushareToken: "env"}, in, &out)

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"id":1`)
	require.Contains(t, lines[1], `token=env args={}`)
}

func TestServeStdio_ReturnsOnCancelWhileReaderIsIdle(t *testing.T) {
	t.Parallel()

	// Arrange: a reader that never delivers a line.
	s := mcp.NewServer("x", "1", nil, &echoTool{name: "echo"})
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	ctx, cancel := context.WithCancel(t.Context())

	errc := make(chan error, 1)
	go func() {
		errc <- s.ServeStdio(ctx, provider.Credentials{}, pr, io.Discard)
	}()

	// Act
	cancel()

	// Assert
	select {
	case err := <-errc:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("ServeStdio did not return after cancel")
	}
}

func TestServeStdio_RepliesBeforeInputEnds(t *testing.T) {
	t.Parallel()

	// Arrange
	s := mcp.NewServer("x", "1", nil, &echoTool{name: "echo"})
	pr, pw := io.Pipe()
	outR, outW := io.Pipe()
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- s.ServeStdio(ctx, provider.Credentials{}, pr, outW)
	}()

	// Act: one request, input left open.
	go func() {
		_, _ = pw.Write([]byte(`{"jsonrpc":"2.0","id":7,"method":"ping"}` + "\n"))
	}()
	reply, err := bufio.NewReader(outR).ReadString('\n')

	// Assert
	require.NoError(t, err)
	require.Contains(t, reply, `"id":7`)

	require.NoError(t, pw.Close())
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ServeStdio did not return at end of input")
	}
}
