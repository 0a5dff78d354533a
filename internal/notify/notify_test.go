package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcus-mcp/marcus/internal/merrors"
	"github.com/marcus-mcp/marcus/internal/monitor"
)

func TestSlackNotifier_NotifyPatternFailsWithoutWebhookURL(t *testing.T) {
	n := NewSlackNotifier("", "#alerts", "")
	err := n.NotifyPattern(context.Background(), &monitor.ErrorPattern{
		PatternID:   "p1",
		PatternType: monitor.PatternBurst,
		Severity:    merrors.SeverityHigh,
		LastSeen:    time.Now(),
	})
	require.Error(t, err)
}

func TestSlackNotifier_DefaultsUsernameWhenEmpty(t *testing.T) {
	n := NewSlackNotifier("https://hooks.slack.example/x", "#alerts", "")
	assert.Equal(t, "marcus", n.username)
}

func TestToastNotifier_NotSupportedOffWindowsReturnsError(t *testing.T) {
	n := NewToastNotifier("", "")
	if n.IsSupported() {
		t.Skip("running on windows, skip negative-path test")
	}
	err := n.NotifyPattern(context.Background(), &monitor.ErrorPattern{
		PatternID:   "p1",
		PatternType: monitor.PatternFrequency,
		Severity:    merrors.SeverityLow,
	})
	require.Error(t, err)
}

func TestToastNotifier_DefaultsDashboardURL(t *testing.T) {
	n := NewToastNotifier("app", "")
	assert.Equal(t, "http://localhost:8080", n.dashboardURL)
}

type fakeNotifier struct {
	patternCalls int
	healthCalls  int
	failPattern  bool
}

func (f *fakeNotifier) NotifyPattern(ctx context.Context, p *monitor.ErrorPattern) error {
	f.patternCalls++
	if f.failPattern {
		return assert.AnError
	}
	return nil
}

func (f *fakeNotifier) NotifyHealthDegraded(ctx context.Context, r monitor.HealthReport) error {
	f.healthCalls++
	return nil
}

func TestRouter_FansOutToAllChannels(t *testing.T) {
	a := &fakeNotifier{}
	b := &fakeNotifier{}
	r := NewRouter(nil, a, b)

	err := r.NotifyPattern(context.Background(), &monitor.ErrorPattern{PatternID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 1, a.patternCalls)
	assert.Equal(t, 1, b.patternCalls)
}

func TestRouter_CollectsErrorsWithoutAbortingOtherChannels(t *testing.T) {
	a := &fakeNotifier{failPattern: true}
	b := &fakeNotifier{}
	r := NewRouter(nil, a, b)

	err := r.NotifyPattern(context.Background(), &monitor.ErrorPattern{PatternID: "p1"})
	require.Error(t, err)
	assert.Equal(t, 1, a.patternCalls)
	assert.Equal(t, 1, b.patternCalls)
}

func TestRouter_HealthDegradedFansOut(t *testing.T) {
	a := &fakeNotifier{}
	r := NewRouter(nil, a)
	err := r.NotifyHealthDegraded(context.Background(), monitor.HealthReport{Score: 40, Status: "degraded"})
	require.NoError(t, err)
	assert.Equal(t, 1, a.healthCalls)
}
