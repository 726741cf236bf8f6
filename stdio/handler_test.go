package stdio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ggoodman/mcp-userdir/storage/memory"
	"github.com/ggoodman/mcp-userdir/userserver"
	"github.com/ggoodman/mcp-userdir/users"
)

const protocolVersion = "2025-06-18"

// testHarness encapsulates pipes and collected output for stdio handler tests.
type testHarness struct {
	t      *testing.T
	stdinW io.WriteCloser
	outMu  sync.Mutex
	lines  []string
	done   chan error
	cancel context.CancelFunc
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newHarness(t *testing.T, opts ...Option) *testHarness {
	t.Helper()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	srv := userserver.New(users.NewBlobRepository(memory.New()))
	h := NewHandler(srv.MCP(), append([]Option{WithIO(inR, outW)}, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	th := &testHarness{t: t, stdinW: inW, done: make(chan error, 1), cancel: cancel}

	go func() {
		th.done <- h.Serve(ctx)
	}()

	go func() {
		sc := bufio.NewScanner(outR)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			th.outMu.Lock()
			th.lines = append(th.lines, line)
			th.outMu.Unlock()
		}
	}()

	t.Cleanup(func() {
		cancel()
		_ = inW.Close()
		_ = outR.Close()
	})
	return th
}

func (th *testHarness) send(msg map[string]any) {
	th.t.Helper()
	msg["jsonrpc"] = "2.0"
	b, err := json.Marshal(msg)
	if err != nil {
		th.t.Fatalf("marshal: %v", err)
	}
	if _, err := th.stdinW.Write(append(b, '\n')); err != nil {
		th.t.Fatalf("write stdin: %v", err)
	}
}

func (th *testHarness) nextLine(timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		th.outMu.Lock()
		if len(th.lines) > 0 {
			s := th.lines[0]
			th.lines = th.lines[1:]
			th.outMu.Unlock()
			return s, nil
		}
		th.outMu.Unlock()
		time.Sleep(2 * time.Millisecond)
	}
	return "", fmt.Errorf("timeout waiting for output line")
}

type response struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// expectResponse returns the response with the given id, skipping any
// notifications written in between.
func (th *testHarness) expectResponse(id int) response {
	th.t.Helper()
	for {
		line, err := th.nextLine(2 * time.Second)
		if err != nil {
			th.t.Fatalf("waiting for response %d: %v", id, err)
		}
		var probe map[string]json.RawMessage
		if err := json.Unmarshal([]byte(line), &probe); err != nil {
			th.t.Fatalf("invalid JSON on stdout: %q", line)
		}
		if _, ok := probe["id"]; !ok {
			continue
		}
		var res response
		if err := json.Unmarshal([]byte(line), &res); err != nil {
			th.t.Fatalf("decode response: %v", err)
		}
		if res.ID != id {
			th.t.Fatalf("expected response %d, got %s", id, line)
		}
		return res
	}
}

func (th *testHarness) initialize() {
	th.t.Helper()
	th.send(map[string]any{
		"id":     1,
		"method": "initialize",
		"params": map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{},
			"clientInfo":      map[string]any{"name": "client", "version": "0.0.1"},
		},
	})
	res := th.expectResponse(1)
	if res.Error != nil {
		th.t.Fatalf("initialize failed: %+v", res.Error)
	}
	var init struct {
		ServerInfo struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
		Capabilities map[string]json.RawMessage `json:"capabilities"`
	}
	if err := json.Unmarshal(res.Result, &init); err != nil {
		th.t.Fatalf("decode initialize result: %v", err)
	}
	if init.ServerInfo.Name != "mcp-server" || init.ServerInfo.Version != "1.0.0" {
		th.t.Fatalf("unexpected server info: %+v", init.ServerInfo)
	}
	for _, c := range []string{"tools", "resources", "prompts"} {
		if _, ok := init.Capabilities[c]; !ok {
			th.t.Errorf("capability %q not advertised", c)
		}
	}
	th.send(map[string]any{"method": "notifications/initialized", "params": map[string]any{}})
}

func TestServeToolCall(t *testing.T) {
	th := newHarness(t)
	th.initialize()

	th.send(map[string]any{
		"id":     2,
		"method": "tools/call",
		"params": map[string]any{"name": "example", "arguments": map[string]any{"message": "hi"}},
	})
	res := th.expectResponse(2)
	if res.Error != nil {
		t.Fatalf("tools/call failed: %+v", res.Error)
	}
	var out struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(res.Result, &out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(out.Content) != 1 || out.Content[0].Type != "text" || out.Content[0].Text != "Echo: hi" {
		t.Fatalf("unexpected content: %+v", out.Content)
	}
}

func TestServeReadsUsersResource(t *testing.T) {
	th := newHarness(t)
	th.initialize()

	th.send(map[string]any{
		"id":     2,
		"method": "resources/read",
		"params": map[string]any{"uri": "users://all"},
	})
	res := th.expectResponse(2)
	if res.Error != nil {
		t.Fatalf("resources/read failed: %+v", res.Error)
	}
	var out struct {
		Contents []struct {
			URI      string `json:"uri"`
			MIMEType string `json:"mimeType"`
			Text     string `json:"text"`
		} `json:"contents"`
	}
	if err := json.Unmarshal(res.Result, &out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(out.Contents) != 1 || out.Contents[0].Text != "[]" || out.Contents[0].MIMEType != "application/json" {
		t.Fatalf("unexpected contents: %+v", out.Contents)
	}
}

func TestServeUnknownMethod(t *testing.T) {
	th := newHarness(t)
	th.initialize()

	th.send(map[string]any{"id": 3, "method": "does/not/exist", "params": map[string]any{}})
	res := th.expectResponse(3)
	if res.Error == nil {
		t.Fatalf("expected error response, got result %s", res.Result)
	}
}

func TestWireLog(t *testing.T) {
	var wire syncBuffer
	th := newHarness(t, WithWireLog(&wire))
	th.initialize()

	deadline := time.Now().Add(2 * time.Second)
	for {
		got := wire.String()
		if strings.Contains(got, `"initialize"`) && strings.Contains(got, "serverInfo") {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("wire log missing traffic: %q", got)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	th := newHarness(t)
	th.initialize()

	th.cancel()
	select {
	case err := <-th.done:
		if err != nil {
			t.Fatalf("Serve returned %v after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServeStopsOnEOF(t *testing.T) {
	th := newHarness(t)
	th.initialize()

	_ = th.stdinW.Close()
	select {
	case err := <-th.done:
		if err != nil {
			t.Fatalf("Serve returned %v after EOF", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after EOF")
	}
}
