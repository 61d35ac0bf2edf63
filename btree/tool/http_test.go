package tool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPTool_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	out, err := NewHTTPTool().Call(context.Background(), map[string]any{
		"url": server.URL,
		"headers": map[string]any{
			"X-Token": "secret",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out["status_code"] != http.StatusOK {
		t.Errorf("status_code = %v, want 200", out["status_code"])
	}
	if body := out["body"].(string); !strings.Contains(body, `"ok":true`) {
		t.Errorf("body = %q", body)
	}
}

func TestHTTPTool_PostBody(t *testing.T) {
	var received string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(buf)
		received = string(buf)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	out, err := NewHTTPTool().Call(context.Background(), map[string]any{
		"url":    server.URL,
		"method": "post",
		"body":   `{"name":"x"}`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if out["status_code"] != http.StatusCreated {
		t.Errorf("status_code = %v, want 201", out["status_code"])
	}
	if received != `{"name":"x"}` {
		t.Errorf("server received %q", received)
	}
}

func TestHTTPTool_Validation(t *testing.T) {
	tool := NewHTTPTool()
	if _, err := tool.Call(context.Background(), map[string]any{}); err == nil {
		t.Error("missing url must fail")
	}
	if _, err := tool.Call(context.Background(), map[string]any{"url": "http://x", "method": "DELETE"}); err == nil {
		t.Error("unsupported method must fail")
	}
}
