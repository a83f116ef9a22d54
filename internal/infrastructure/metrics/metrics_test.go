package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stockflow/internal/application/events"
	"github.com/jhoicas/stockflow/internal/domain/entity"
	"github.com/jhoicas/stockflow/internal/infrastructure/metrics"
)

func TestSubscriber_CuentaEventosYUnidades(t *testing.T) {
	m := metrics.New("stockflow_test")
	bus := events.NewBus()
	bus.Subscribe(m.Subscriber())

	ctx := context.Background()
	bus.Publish(ctx, events.Event{Type: events.StockTransferred, Movement: &entity.Movement{Quantity: 20}})
	bus.Publish(ctx, events.Event{Type: events.StockTransferred, Movement: &entity.Movement{Quantity: 5}})
	bus.Publish(ctx, events.Event{Type: events.RequestApproved, Request: &entity.Request{
		Type: entity.RequestTypePrepareOrder, Status: entity.RequestStatusCompleted,
	}})

	n, err := testutil.GatherAndCount(m.Registry(), "stockflow_test_events_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "una serie por tipo de evento")

	body := scrape(t, m)
	assert.Contains(t, body, `stockflow_test_events_total{type="stock_transferred"} 2`)
	assert.Contains(t, body, "stockflow_test_units_transferred_total 25")
	assert.Contains(t, body, `stockflow_test_requests_decided_total{request_type="prepare_order",status="completed"} 1`)
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	b, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(b)
}
