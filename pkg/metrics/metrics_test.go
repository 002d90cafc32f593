package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionCounters(t *testing.T) {
	before := testutil.ToFloat64(Submissions.WithLabelValues("Balances.transfer", "success"))
	Submissions.WithLabelValues("Balances.transfer", "success").Inc()
	after := testutil.ToFloat64(Submissions.WithLabelValues("Balances.transfer", "success"))
	assert.Equal(t, before+1, after)
}

func TestPushFrom(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		body string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		path = r.URL.Path
		body = string(b)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_pushed_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	err := PushFrom(context.Background(), reg, srv.URL, "dex", "staging")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/metrics/job/dnasmoke/scenario/dex/environment/staging", path)
	assert.NotEmpty(t, body)
}

func TestPushFromError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := PushFrom(context.Background(), prometheus.NewRegistry(), srv.URL, "dex", "")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to push metrics"))
}
