package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnachain/dna-smoke/pkg/logger"
	"github.com/dnachain/dna-smoke/pkg/scenario"
)

type fakeProgress struct {
	steps []scenario.Step
}

func (f *fakeProgress) Scenario() string       { return "dex" }
func (f *fakeProgress) Steps() []scenario.Step { return f.steps }

func get(t *testing.T, h http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if len(header) == 2 {
		req.Header.Set(header[0], header[1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	connected := false
	s := NewServer(":0", "ws://127.0.0.1:9944", nil, func() bool { return connected }, &logger.EmptyLogger{})
	h := s.Handler()

	assert.Equal(t, http.StatusOK, get(t, h, "/health").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/ready").Code)

	connected = true
	assert.Equal(t, http.StatusOK, get(t, h, "/ready").Code)
}

func TestStatus(t *testing.T) {
	progress := &fakeProgress{steps: []scenario.Step{
		{Index: 1, Name: "fund issuer", Role: logger.Issuer, Status: scenario.StepDone,
			TxHash: common.HexToHash("0xaa"), Block: common.HexToHash("0xbb"), Elapsed: 1500 * time.Millisecond},
		{Index: 2, Name: "fund trader", Role: logger.Trader, Status: scenario.StepSkipped},
	}}
	s := NewServer(":0", "ws://node:9944", progress, func() bool { return true }, &logger.EmptyLogger{})

	rec := get(t, s.Handler(), "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "dex", st.Scenario)
	assert.Equal(t, "ws://node:9944", st.NodeURL)
	assert.True(t, st.Ready)
	require.Len(t, st.Steps, 2)
	assert.Equal(t, "issuer", st.Steps[0].Role)
	assert.Equal(t, common.HexToHash("0xaa").Hex(), st.Steps[0].TxHash)
	assert.Equal(t, "1.5s", st.Steps[0].Elapsed)
	assert.Equal(t, "skipped", st.Steps[1].Status)
	assert.Empty(t, st.Steps[1].TxHash)
}

func TestMetricsAuth(t *testing.T) {
	t.Setenv("METRICS_API_KEY", "secret")
	s := NewServer(":0", "", nil, nil, &logger.EmptyLogger{})
	h := s.Handler()

	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/metrics").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/metrics", "Authorization", "Token secret").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/metrics", "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/metrics", "Authorization", "Bearer secret").Code)
}
