package chassis

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/hazyhaar/calibre-mcp/pkg/kit"
	"github.com/hazyhaar/calibre-mcp/pkg/mcpquic"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func startChassis(t *testing.T) *Server {
	t.Helper()
	mcpSrv := server.NewMCPServer("calibre-test", "0.0.0", server.WithToolCapabilities(false))
	mcpSrv.AddTool(mcp.NewTool("transport"),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText(kit.GetTransport(ctx)), nil
		})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	srv, err := New(Config{
		Addr:      "127.0.0.1:0",
		Handler:   mux,
		MCPServer: mcpSrv,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("Start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("chassis not ready")
	}

	t.Cleanup(func() {
		cancel()
		stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		srv.Stop(stopCtx)
	})
	return srv
}

func TestChassis_MCPOverQUIC(t *testing.T) {
	srv := startChassis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := mcpquic.NewClient(srv.Addr(), mcpquic.ClientTLSConfig(true))
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Close()

	res, err := c.CallTool(ctx, "transport", nil)
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	tc, ok := mcp.AsTextContent(res.Content[0])
	if !ok {
		t.Fatalf("unexpected content %T", res.Content[0])
	}
	if tc.Text != "mcp_quic" {
		t.Errorf("transport = %q, want mcp_quic", tc.Text)
	}
}

func TestChassis_HTTPSHeaders(t *testing.T) {
	srv := startChassis(t)
	client := &http.Client{
		Timeout:   5 * time.Second,
		Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
	}

	resp, err := client.Get("https://" + srv.Addr() + "/v1/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Alt-Svc") == "" {
		t.Error("missing Alt-Svc")
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}
}

func TestTLSConfig(t *testing.T) {
	cfg, selfSigned, err := TLSConfig("", "")
	if err != nil {
		t.Fatalf("TLSConfig: %v", err)
	}
	if !selfSigned || len(cfg.Certificates) != 1 {
		t.Errorf("expected one self-signed cert")
	}
	if cfg.NextProtos[1] != mcpquic.ALPNProtocolMCP {
		t.Errorf("NextProtos = %v", cfg.NextProtos)
	}

	if _, _, err := TLSConfig("cert.pem", ""); err == nil {
		t.Error("expected error with cert but no key")
	}
}
