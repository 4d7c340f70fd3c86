package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/pulsecheck"
)

const (
	apiBase   = "http://localhost:3000"
	demoPhone = "01700000001"
)

func main() {
	// start the flapping target (see mock_server.go)
	go StartFlappingServer(":9999")

	m, err := pulsecheck.New(
		pulsecheck.WithSecret("demo-secret"),
		pulsecheck.WithPort(3000),
		pulsecheck.WithPollingInterval(5*time.Second),
		pulsecheck.WithResultCallback(func(r pulsecheck.Result) {
			if r.State != r.Previous {
				slog.Info("state change", "url", r.URL, "from", r.Previous, "to", r.State)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create monitor", "error", err)
		os.Exit(1)
	}
	defer m.Close()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		time.Sleep(200 * time.Millisecond)
		if err := seed(ctx); err != nil {
			slog.Error("failed to seed demo data", "error", err)
			stop()
		}
	}()

	fmt.Println()
	fmt.Println("  pulsecheck demo")
	fmt.Println()
	fmt.Println("  API:    " + apiBase)
	fmt.Println("  Target: http://lvh.me:9999/health (flips between 200 and 503)")
	fmt.Println("  Alerts are logged; press Ctrl+C to stop")
	fmt.Println()

	if err := m.Start(ctx); err != nil {
		slog.Error("pulsecheck error", "error", err)
		os.Exit(1)
	}
}

// seed registers a user, logs in and creates one check through the API.
// lvh.me resolves to 127.0.0.1.
func seed(ctx context.Context) error {
	if _, err := post(ctx, "/user", "", map[string]any{
		"firstName": "Demo", "lastName": "User", "phone": demoPhone,
		"password": "demo-password", "tosAgreement": true,
	}); err != nil {
		return err
	}

	var token struct {
		ID string `json:"id"`
	}
	body, err := post(ctx, "/token", "", map[string]string{"phone": demoPhone, "password": "demo-password"})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, &token); err != nil {
		return err
	}

	_, err = post(ctx, "/check", token.ID, map[string]any{
		"protocol": "http", "url": "lvh.me:9999/health", "method": "get",
		"successCodes": []int{200}, "timeoutSeconds": 3,
	})
	return err
}

func post(ctx context.Context, path, token string, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiBase+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("token", token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("POST %s: %d %s", path, resp.StatusCode, buf.String())
	}
	return buf.Bytes(), nil
}
