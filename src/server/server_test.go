package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intradaybot/src/metrics"
	"intradaybot/src/model"
	"intradaybot/src/trade"
)

type fakePositions []trade.ManagedPosition

func (f fakePositions) Snapshot() []trade.ManagedPosition { return f }

type fakeSignals []model.RankedSignal

func (f fakeSignals) LatestSignals() []model.RankedSignal { return f }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthcheck(t *testing.T) {
	s := New(fakePositions(nil), fakeSignals(nil), nil, nil)
	rec := get(t, s.Router(), "/healthcheck")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestPositionsAndSignals(t *testing.T) {
	positions := fakePositions{{TradeID: "t-1", Symbol: "AAPL", Qty: 667, AvgPrice: 100, StopPrice: 98.5}}
	signals := fakeSignals{{Symbol: "AAPL", Score: 75, Decision: model.DecisionEnterLong, Gate: model.GatePass}}
	h := New(positions, signals, nil, nil).Router()

	rec := get(t, h, "/positions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var gotPositions []trade.ManagedPosition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gotPositions))
	assert.Equal(t, []trade.ManagedPosition(positions), gotPositions)

	rec = get(t, h, "/signals/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	var gotSignals []model.RankedSignal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &gotSignals))
	require.Len(t, gotSignals, 1)
	assert.Equal(t, model.DecisionEnterLong, gotSignals[0].Decision)
}

func TestEmptyListsEncodeAsArrays(t *testing.T) {
	h := New(fakePositions(nil), fakeSignals(nil), nil, nil).Router()
	assert.Equal(t, "[]", strings.TrimSpace(get(t, h, "/positions").Body.String()))
	assert.Equal(t, "[]", strings.TrimSpace(get(t, h, "/signals/latest").Body.String()))
}

func TestMetricsEndpoint(t *testing.T) {
	reg := metrics.NewRegistry()
	reg.RecordNewsError()

	h := New(fakePositions(nil), fakeSignals(nil), reg.Handler(), nil).Router()
	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "intradaybot_news_errors_total 1")

	noMetrics := New(fakePositions(nil), fakeSignals(nil), nil, nil).Router()
	assert.Equal(t, http.StatusNotFound, get(t, noMetrics, "/metrics").Code)
}

func TestExtraRoutes(t *testing.T) {
	s := New(fakePositions(nil), fakeSignals(nil), nil, nil).
		Handle("/orders", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("orders"))
		}))
	rec := get(t, s.Router(), "/orders")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "orders", rec.Body.String())
}

func TestStartShutsDownOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	s := New(fakePositions(nil), fakeSignals(nil), nil, nil)
	go func() { done <- s.Start(ctx, strconv.Itoa(port), time.Second) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:" + strconv.Itoa(port) + "/healthcheck")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
