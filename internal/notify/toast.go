package notify

import (
	"context"
	"fmt"
	"runtime"

	"github.com/go-toast/toast"

	"github.com/marcus-mcp/marcus/internal/monitor"
)

// ToastNotifier shows Windows desktop toasts for C2 alerts, adapted
// from the teacher's ToastNotifier with the "Supervisor Needs Input"
// vocabulary generalized to patterns and health degradation.
type ToastNotifier struct {
	appID        string
	dashboardURL string
}

func NewToastNotifier(appID, dashboardURL string) *ToastNotifier {
	if appID == "" {
		appID = "marcus"
	}
	if dashboardURL == "" {
		dashboardURL = "http://localhost:8080"
	}
	return &ToastNotifier{appID: appID, dashboardURL: dashboardURL}
}

var _ monitor.Notifier = (*ToastNotifier)(nil)

func (t *ToastNotifier) NotifyPattern(ctx context.Context, p *monitor.ErrorPattern) error {
	return t.show(fmt.Sprintf("%s pattern detected", p.PatternType), p.Description, toast.Default)
}

func (t *ToastNotifier) NotifyHealthDegraded(ctx context.Context, r monitor.HealthReport) error {
	return t.show("Marcus health degraded", fmt.Sprintf("score=%d status=%s", r.Score, r.Status), toast.IM)
}

func (t *ToastNotifier) show(title, message string, audio toast.Audio) error {
	if runtime.GOOS != "windows" {
		return fmt.Errorf("notify: toast notifications only supported on windows")
	}

	notification := toast.Notification{
		AppID:   t.appID,
		Title:   title,
		Message: message,
		Audio:   audio,
		Actions: []toast.Action{
			{Type: "protocol", Label: "Open Dashboard", Arguments: t.dashboardURL},
		},
	}
	return notification.Push()
}

// IsSupported reports whether toast notifications can fire on this
// platform.
func (t *ToastNotifier) IsSupported() bool {
	return runtime.GOOS == "windows"
}
