package poller

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/pulsecheck/internal/model"
	"github.com/jpalmerr/pulsecheck/internal/store"
)

// recordingGateway captures every message sent through it.
type recordingGateway struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

type sentMessage struct {
	phone   string
	message string
}

func (g *recordingGateway) Send(_ context.Context, phone, message string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.sent = append(g.sent, sentMessage{phone: phone, message: message})
	return nil
}

func (g *recordingGateway) Sent() []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sentMessage(nil), g.sent...)
}

// failingStore rejects every update.
type failingStore struct {
	*store.MemoryStore
}

func (failingStore) Update(context.Context, string, string, any) error {
	return errors.New("disk full")
}

var fixedNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func seededCheck(t *testing.T, s store.Store, state model.State, lastChecked *int64) model.Check {
	t.Helper()
	c := model.Check{
		ID:             "abcdefghijklmnopqrstuvwxy",
		Phone:          "01700000001",
		Protocol:       model.ProtocolHTTPS,
		URL:            "example.com/health",
		Method:         model.MethodGet,
		SuccessCodes:   []int{200, 204},
		TimeoutSeconds: 3,
		State:          state,
		LastChecked:    lastChecked,
	}
	require.NoError(t, s.Create(context.Background(), store.Checks, c.ID, c))
	return c
}

func ms(t time.Time) *int64 {
	v := t.UnixMilli()
	return &v
}

func newTestPipeline(s store.Store, gw *recordingGateway) *Pipeline {
	return NewPipeline(s, gw, func() time.Time { return fixedNow }, testLogger(), nil)
}

func TestPipeline_StateDerivation(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		want    model.State
	}{
		{name: "success code", outcome: Outcome{StatusCode: 200}, want: model.StateUp},
		{name: "other success code", outcome: Outcome{StatusCode: 204}, want: model.StateUp},
		{name: "unlisted code", outcome: Outcome{StatusCode: 500}, want: model.StateDown},
		{name: "redirect not listed", outcome: Outcome{StatusCode: 301}, want: model.StateDown},
		{name: "timeout", outcome: Outcome{Error: true, Reason: ReasonTimeout}, want: model.StateDown},
		{name: "transport error", outcome: Outcome{Error: true, Reason: "connection refused"}, want: model.StateDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := store.NewMemoryStore()
			check := seededCheck(t, s, model.StateDown, nil)

			tr := newTestPipeline(s, &recordingGateway{}).Process(context.Background(), check, tt.outcome)
			assert.Equal(t, tt.want, tr.Check.State)
			assert.True(t, tr.Persisted)

			var stored model.Check
			require.NoError(t, s.Read(context.Background(), store.Checks, check.ID, &stored))
			assert.Equal(t, tt.want, stored.State)
			require.NotNil(t, stored.LastChecked)
			assert.Equal(t, fixedNow.UnixMilli(), *stored.LastChecked)
		})
	}
}

func TestPipeline_FirstProbeNeverAlerts(t *testing.T) {
	for _, outcome := range []Outcome{{StatusCode: 200}, {StatusCode: 500}} {
		s := store.NewMemoryStore()
		gw := &recordingGateway{}
		check := seededCheck(t, s, model.StateDown, nil)

		tr := newTestPipeline(s, gw).Process(context.Background(), check, outcome)
		assert.False(t, tr.AlertWanted)
		assert.Empty(t, gw.Sent())
	}
}

func TestPipeline_TransitionAlertsOnce(t *testing.T) {
	s := store.NewMemoryStore()
	gw := &recordingGateway{}
	p := newTestPipeline(s, gw)
	ctx := context.Background()

	check := seededCheck(t, s, model.StateUp, ms(fixedNow.Add(-time.Minute)))

	tr := p.Process(ctx, check, Outcome{StatusCode: 503})
	assert.True(t, tr.AlertWanted)
	assert.True(t, tr.Alerted)
	require.Len(t, gw.Sent(), 1)
	msg := gw.Sent()[0]
	assert.Equal(t, "01700000001", msg.phone)
	assert.Equal(t, "Alert: Your check for GET https://example.com/health is currently down.", msg.message)
	assert.True(t, strings.Contains(msg.message, "down"))

	// next cycle sees the persisted down state and stays quiet
	tr = p.Process(ctx, tr.Check, Outcome{StatusCode: 503})
	assert.False(t, tr.AlertWanted)
	assert.Len(t, gw.Sent(), 1)

	// recovery alerts again
	tr = p.Process(ctx, tr.Check, Outcome{StatusCode: 200})
	assert.True(t, tr.Alerted)
	require.Len(t, gw.Sent(), 2)
	assert.Contains(t, gw.Sent()[1].message, "is currently up.")
}

func TestPipeline_PersistFailureSuppressesAlert(t *testing.T) {
	mem := store.NewMemoryStore()
	gw := &recordingGateway{}
	check := seededCheck(t, mem, model.StateUp, ms(fixedNow.Add(-time.Minute)))

	tr := newTestPipeline(failingStore{mem}, gw).Process(context.Background(), check, Outcome{StatusCode: 500})
	assert.True(t, tr.AlertWanted)
	assert.False(t, tr.Persisted)
	assert.False(t, tr.Alerted)
	assert.Empty(t, gw.Sent())
}

func TestPipeline_GatewayFailureKeepsState(t *testing.T) {
	s := store.NewMemoryStore()
	gw := &recordingGateway{err: errors.New("twilio down")}
	check := seededCheck(t, s, model.StateUp, ms(fixedNow.Add(-time.Minute)))

	tr := newTestPipeline(s, gw).Process(context.Background(), check, Outcome{StatusCode: 500})
	assert.True(t, tr.Persisted)
	assert.False(t, tr.Alerted)

	var stored model.Check
	require.NoError(t, s.Read(context.Background(), store.Checks, check.ID, &stored))
	assert.Equal(t, model.StateDown, stored.State)
}

func TestPipeline_Observer(t *testing.T) {
	s := store.NewMemoryStore()
	check := seededCheck(t, s, model.StateDown, nil)

	var seen []Transition
	p := NewPipeline(s, &recordingGateway{}, nil, nil, func(tr Transition) { seen = append(seen, tr) })
	p.Process(context.Background(), check, Outcome{StatusCode: 200})

	require.Len(t, seen, 1)
	assert.Equal(t, model.StateDown, seen[0].Previous)
	assert.Equal(t, model.StateUp, seen[0].Check.State)
}
