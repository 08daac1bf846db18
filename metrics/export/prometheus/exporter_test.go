package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goAuthState "github.com/MrEthical07/goAuthState"
	"github.com/MrEthical07/goAuthState/identity"
)

type fakeSource struct {
	snapshot goAuthState.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goAuthState.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                         { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAuthState.MetricsSnapshot{
			Counters:   map[goAuthState.MetricID]uint64{},
			Histograms: map[goAuthState.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAuthState.MetricsSnapshot{
			Counters: map[goAuthState.MetricID]uint64{
				goAuthState.MetricSignInSuccess: 7,
			},
			Histograms: map[goAuthState.MetricID][]uint64{
				goAuthState.MetricSignInLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"goauthstate_sign_in_success_total 7",
		"goauthstate_sign_out_total 0",
		"goauthstate_sign_in_latency_seconds_bucket{le=\"0.05\"} 1",
		"goauthstate_sign_in_latency_seconds_bucket{le=\"+Inf\"} 36",
		"goauthstate_sign_in_latency_seconds_count 36",
		"goauthstate_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRenderSkipsDisabledHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAuthState.MetricsSnapshot{
			Counters:   map[goAuthState.MetricID]uint64{goAuthState.MetricSignOut: 1},
			Histograms: map[goAuthState.MetricID][]uint64{},
		},
	})

	if out := exp.Render(); strings.Contains(out, "latency") {
		t.Fatalf("histogram rendered without data:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAuthState.MetricsSnapshot{
			Counters:   map[goAuthState.MetricID]uint64{goAuthState.MetricSignInSuccess: 1},
			Histograms: map[goAuthState.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

// stubClient fails every provider call; the gateway still counts them.
type stubClient struct {
	identity.Client
}

func (stubClient) SignInWithPopup(context.Context, identity.ProviderID, identity.PopupOptions) (identity.User, error) {
	return identity.User{}, identity.ErrPopupClosed
}

func TestRenderFromGateway(t *testing.T) {
	cfg := goAuthState.DefaultConfig()
	cfg.Provider = goAuthState.ProviderConfig{
		APIKey:     "k",
		AuthDomain: "demo.example.com",
		ProjectID:  "demo-project",
		AppID:      "1:1:web:1",
	}
	g, err := goAuthState.New().WithConfig(cfg).WithClient(stubClient{}).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer g.Close()

	_ = g.SignInWithGoogle(context.Background(), goAuthState.Handlers{OnError: func(error) {}})

	out := NewPrometheusExporter(g).Render()
	if !strings.Contains(out, "goauthstate_sign_in_failure_total 1") {
		t.Fatalf("expected gateway failure counted, got:\n%s", out)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goAuthState.MetricsSnapshot{
			Counters: map[goAuthState.MetricID]uint64{
				goAuthState.MetricSignInSuccess:          1000,
				goAuthState.MetricSignInFailure:          40,
				goAuthState.MetricAnonymousSignInSuccess: 800,
				goAuthState.MetricSessionPublished:       4000,
			},
			Histograms: map[goAuthState.MetricID][]uint64{
				goAuthState.MetricSignInLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
