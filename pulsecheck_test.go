package pulsecheck

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jpalmerr/pulsecheck/internal/model"
	"github.com/jpalmerr/pulsecheck/internal/store"
)

const testPhone = "01711111111"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentMessage struct {
	phone, message string
}

type recordingNotifier struct {
	mu     sync.Mutex
	sent   []sentMessage
	closed bool
}

func (n *recordingNotifier) Send(_ context.Context, phone, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{phone, message})
	return nil
}

func (n *recordingNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}

func (n *recordingNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMessage(nil), n.sent...)
}

func newTestMonitor(t *testing.T, opts ...Option) *Monitor {
	t.Helper()
	base := []Option{
		WithSecret("test-secret"),
		WithBcryptCost(bcrypt.MinCost),
		WithLogger(testLogger()),
	}
	m, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return m
}

func call(t *testing.T, h http.Handler, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	if token != "" {
		req.Header.Set("token", token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// registerCheck signs up, logs in and creates one check through the API,
// then points the stored check at target.
func registerCheck(t *testing.T, m *Monitor, target string) string {
	t.Helper()
	h := m.Handler()

	rec := call(t, h, http.MethodPost, "/user", "", map[string]any{
		"firstName": "Ada", "lastName": "Lovelace", "phone": testPhone,
		"password": "abcd", "tosAgreement": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(t, h, http.MethodPost, "/token", "", map[string]string{"phone": testPhone, "password": "abcd"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var token model.Token
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))

	rec = call(t, h, http.MethodPost, "/check", token.ID, map[string]any{
		"protocol": "http", "url": "example.com", "method": "get",
		"successCodes": []int{200}, "timeoutSeconds": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var check model.Check
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &check))

	// the API only accepts public host names; the probe target is local
	ctx := context.Background()
	var stored model.Check
	require.NoError(t, m.store.Read(ctx, store.Checks, check.ID, &stored))
	stored.URL = strings.TrimPrefix(target, "http://")
	require.NoError(t, m.store.Update(ctx, store.Checks, check.ID, stored))
	return check.ID
}

func readCheck(t *testing.T, m *Monitor, id string) model.Check {
	t.Helper()
	var c model.Check
	require.NoError(t, m.store.Read(context.Background(), store.Checks, id, &c))
	return c
}

func TestNew_Defaults(t *testing.T) {
	m := newTestMonitor(t)

	assert.Equal(t, defaultPort, m.Port())
	assert.Equal(t, defaultPollingInterval, m.PollingInterval())
	assert.NoError(t, m.Close())
}

func TestNew_RequiresSecret(t *testing.T) {
	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret")
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"empty secret", WithSecret("")},
		{"port zero", WithPort(0)},
		{"port too high", WithPort(70000)},
		{"zero interval", WithPollingInterval(0)},
		{"negative ttl", WithTokenTTL(-time.Second)},
		{"equal id lengths", WithIDLengths(20, 20)},
		{"short id length", WithIDLengths(4, 25)},
		{"zero max checks", WithMaxChecks(0)},
		{"negative rate limit", WithLoginRateLimit(-1)},
		{"nil logger", WithLogger(nil)},
		{"nil store", WithStore(nil)},
		{"nil notifier", WithNotifier(nil)},
		{"bad bcrypt cost", WithBcryptCost(bcrypt.MaxCost + 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(WithSecret("s"), tt.opt)
			assert.Error(t, err)
		})
	}
}

func TestNew_NilCallbackIgnored(t *testing.T) {
	m := newTestMonitor(t, WithResultCallback(nil))
	assert.Empty(t, m.resultCallbacks)
}

func TestMonitor_EndToEnd(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer target.Close()

	notifier := &recordingNotifier{}
	m := newTestMonitor(t, WithNotifier(notifier))
	id := registerCheck(t, m, target.URL)

	assert.Equal(t, model.StateDown, readCheck(t, m, id).State)

	// first probe records up without alerting
	m.RunCycle(context.Background())
	check := readCheck(t, m, id)
	assert.Equal(t, model.StateUp, check.State)
	require.NotNil(t, check.LastChecked)
	assert.Empty(t, notifier.messages())

	// same state again: still no alert
	m.RunCycle(context.Background())
	assert.Empty(t, notifier.messages())

	healthy.Store(false)
	m.RunCycle(context.Background())
	assert.Equal(t, model.StateDown, readCheck(t, m, id).State)

	sent := notifier.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, testPhone, sent[0].phone)
	assert.Contains(t, sent[0].message, "currently down")
}

func TestMonitor_ResultCallback(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	var mu sync.Mutex
	var results []Result
	m := newTestMonitor(t,
		WithNotifier(&recordingNotifier{}),
		WithResultCallback(func(Result) { panic("callback exploded") }),
		WithResultCallback(func(r Result) {
			mu.Lock()
			defer mu.Unlock()
			results = append(results, r)
		}),
	)
	id := registerCheck(t, m, target.URL)

	m.RunCycle(context.Background())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 1, "panicking callback must not stop later callbacks")
	r := results[0]
	assert.Equal(t, id, r.CheckID)
	assert.Equal(t, testPhone, r.Phone)
	assert.Equal(t, StateDown, r.Previous)
	assert.Equal(t, StateUp, r.State)
	assert.Equal(t, http.StatusOK, r.StatusCode)
	assert.True(t, r.Persisted)
	assert.False(t, r.Alerted)
	assert.True(t, strings.HasPrefix(r.URL, "http://"))
	assert.False(t, r.CheckedAt.IsZero())
}

type closingStore struct {
	*store.MemoryStore
	err error
}

func (s closingStore) Close() error { return s.err }

func TestMonitor_Close(t *testing.T) {
	notifier := &recordingNotifier{}
	storeErr := errors.New("close failed")
	m := newTestMonitor(t,
		WithNotifier(notifier),
		WithStore(closingStore{MemoryStore: store.NewMemoryStore(), err: storeErr}),
	)

	err := m.Close()
	assert.ErrorIs(t, err, storeErr)
	assert.True(t, notifier.closed)
}

func TestInvokeCallbackSafe_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	assert.NotPanics(t, func() {
		invokeCallbackSafe(func(Result) { panic("boom") }, Result{CheckID: "abc"}, logger)
	})
	assert.Contains(t, buf.String(), "result callback panicked")
	assert.Contains(t, buf.String(), "abc")
}
