package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/recordhub/internal/api/middleware"
	"github.com/timmy/recordhub/internal/domain"
	"github.com/timmy/recordhub/internal/repository"
	"github.com/timmy/recordhub/internal/scheduler"
	"github.com/timmy/recordhub/internal/service"
	"github.com/timmy/recordhub/internal/testutil"
)

type fakeFirer struct {
	summary *service.Summary
	err     error
	calls   int
}

func (f *fakeFirer) Fire(ctx context.Context) (*service.Summary, error) {
	f.calls++
	return f.summary, f.err
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, store *repository.Store) {
	t.Helper()
	ctx := context.Background()

	recs := []domain.CanonicalRecord{
		{EntityID: "ent-a", ContentFingerprint: "fp-a", Source: "news_api", SourceID: "1",
			Data: domain.CanonicalFields{Title: "A", Content: "X"}, CreatedAt: base, UpdatedAt: base},
		{EntityID: "ent-a", ContentFingerprint: "fp-a", Source: "catalog_csv", SourceID: "c1",
			Data: domain.CanonicalFields{Title: "A", Content: "X"}, CreatedAt: base.Add(time.Minute), UpdatedAt: base.Add(time.Minute)},
		{EntityID: "ent-b", ContentFingerprint: "fp-b", Source: "news_api", SourceID: "2",
			Data: domain.CanonicalFields{Title: "B", Author: "ann"}, CreatedAt: base.Add(2 * time.Minute), UpdatedAt: base.Add(2 * time.Minute)},
		{EntityID: "ent-c", ContentFingerprint: "fp-c", Source: "news_api", SourceID: "3",
			Data: domain.CanonicalFields{Title: "C"}, CreatedAt: base.Add(3 * time.Minute), UpdatedAt: base.Add(3 * time.Minute)},
	}
	for i := range recs {
		require.NoError(t, store.Canonical.Upsert(ctx, &recs[i]))
	}
	require.NoError(t, store.Canonical.SoftDelete(ctx, "news_api", "3", base.Add(time.Hour)))

	failedEnd := base.Add(5 * time.Second)
	okEnd := base.Add(time.Hour + 5*time.Second)
	runs := []domain.RunRecord{
		{RunID: "run_news_api_00000001", Source: "news_api", Status: domain.RunStatusFailed,
			StartTime: base, EndTime: &failedEnd, ErrorMessage: "source unavailable", RecordsProcessed: 0},
		{RunID: "run_news_api_00000002", Source: "news_api", Status: domain.RunStatusSuccess,
			StartTime: base.Add(time.Hour), EndTime: &okEnd, RecordsProcessed: 3, RecordsInserted: 2, RecordsUpdated: 1},
	}
	for i := range runs {
		require.NoError(t, store.Runs.Create(ctx, &runs[i]))
	}

	require.NoError(t, store.Checkpoints.Upsert(ctx, &domain.Checkpoint{
		Source: "news_api", Position: "2", Status: domain.CheckpointSuccess, UpdatedAt: okEnd,
	}))
	_, err := store.Raw.InsertIfAbsent(ctx, &domain.RawRecord{
		SourceType: domain.SourceTypeAPI, Source: "news_api", ExternalID: "9",
		Payload: domain.JSONMap{"id": "9"}, IngestedAt: okEnd,
	})
	require.NoError(t, err)
}

func newTestRouter(t *testing.T, deps Deps) *gin.Engine {
	t.Helper()
	return SetupRouter(deps, "test", middleware.CORSConfig{AllowAllOrigins: true})
}

func do(t *testing.T, r http.Handler, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	var body map[string]interface{}
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestHealth(t *testing.T) {
	store := testutil.NewStore(t)
	r := newTestRouter(t, Deps{Store: store})

	w, body := do(t, r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["db_connected"])
	assert.Equal(t, "unknown", body["etl_status"])
	assert.Nil(t, body["etl_last_run"])

	seed(t, store)
	_, body = do(t, r, http.MethodGet, "/health")
	assert.Equal(t, "success", body["etl_status"])
	assert.Equal(t, "2024-03-01T13:00:05Z", body["etl_last_run"])

	sqlDB, err := store.DB().DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w, body = do(t, r, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", body["status"])
	assert.Equal(t, false, body["db_connected"])
}

func TestListData(t *testing.T) {
	store := testutil.NewStore(t)
	seed(t, store)
	r := newTestRouter(t, Deps{Store: store})

	t.Run("all live records newest first", func(t *testing.T) {
		w, body := do(t, r, http.MethodGet, "/api/v1/data")
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 3, body["total_count"])
		assert.EqualValues(t, 10, body["limit"])
		assert.EqualValues(t, 0, body["offset"])
		assert.NotEmpty(t, body["request_id"])
		assert.Contains(t, body, "api_latency_ms")

		data := body["data"].([]interface{})
		require.Len(t, data, 3)
		first := data[0].(map[string]interface{})
		assert.Equal(t, "B", first["title"])
		assert.Equal(t, "ann", first["author"])
		assert.Equal(t, "ent-b", first["entity_id"])
		assert.Equal(t, "2", first["source_id"])
	})

	t.Run("source filter and paging", func(t *testing.T) {
		_, body := do(t, r, http.MethodGet, "/api/v1/data?source=news_api&limit=1&offset=1")
		assert.EqualValues(t, 2, body["total_count"])
		data := body["data"].([]interface{})
		require.Len(t, data, 1)
		assert.Equal(t, "1", data[0].(map[string]interface{})["source_id"])
	})

	t.Run("unknown source is empty", func(t *testing.T) {
		_, body := do(t, r, http.MethodGet, "/api/v1/data?source=nope")
		assert.EqualValues(t, 0, body["total_count"])
		assert.Empty(t, body["data"])
	})

	for _, q := range []string{"limit=0", "limit=101", "limit=abc", "offset=-1"} {
		t.Run("rejects "+q, func(t *testing.T) {
			w, body := do(t, r, http.MethodGet, "/api/v1/data?"+q)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestRequestIDEchoedInPage(t *testing.T) {
	store := testutil.NewStore(t)
	r := newTestRouter(t, Deps{Store: store})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/data", nil)
	req.Header.Set("X-Request-ID", "abc")
	r.ServeHTTP(w, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "abc", body["request_id"])
}

func TestGetEntity(t *testing.T) {
	store := testutil.NewStore(t)
	seed(t, store)
	r := newTestRouter(t, Deps{Store: store})

	w, body := do(t, r, http.MethodGet, "/api/v1/entities/ent-a")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["count"])
	records := body["records"].([]interface{})
	assert.Equal(t, "news_api", records[0].(map[string]interface{})["source"])
	assert.Equal(t, "catalog_csv", records[1].(map[string]interface{})["source"])

	w, _ = do(t, r, http.MethodGet, "/api/v1/entities/ent-c")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/entities/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRaw(t *testing.T) {
	store := testutil.NewStore(t)
	seed(t, store)
	r := newTestRouter(t, Deps{Store: store})

	w, body := do(t, r, http.MethodGet, "/api/v1/raw/news_api/9")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "9", body["external_id"])
	assert.Equal(t, false, body["processed"])
	assert.Equal(t, "9", body["payload"].(map[string]interface{})["id"])

	w, _ = do(t, r, http.MethodGet, "/api/v1/raw/news_api/404")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStats(t *testing.T) {
	store := testutil.NewStore(t)
	r := newTestRouter(t, Deps{Store: store})

	w, body := do(t, r, http.MethodGet, "/api/v1/stats")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, body["last_run_id"])
	assert.Nil(t, body["last_failure_timestamp"])
	assert.Empty(t, body["runs"])
	assert.Empty(t, body["checkpoints"])
	assert.EqualValues(t, 0, body["pending_raw_records"])

	seed(t, store)
	_, body = do(t, r, http.MethodGet, "/api/v1/stats")
	assert.Equal(t, "run_news_api_00000002", body["last_run_id"])
	assert.Equal(t, "success", body["last_run_status"])
	assert.Equal(t, "2024-03-01T13:00:05Z", body["last_run_timestamp"])
	assert.Equal(t, "2024-03-01T12:00:05Z", body["last_failure_timestamp"])
	assert.EqualValues(t, 3, body["total_records_processed"])
	assert.EqualValues(t, 2, body["total_records_inserted"])
	assert.EqualValues(t, 1, body["total_records_updated"])
	assert.EqualValues(t, 0, body["total_records_failed"])
	assert.EqualValues(t, 3, body["canonical_records"])
	assert.EqualValues(t, 2, body["entities"])
	assert.Len(t, body["runs"], 2)
	assert.EqualValues(t, 1, body["pending_raw_records"])
	checkpoints := body["checkpoints"].([]interface{})
	require.Len(t, checkpoints, 1)
	assert.Equal(t, "2", checkpoints[0].(map[string]interface{})["last_processed_position"])

	_, body = do(t, r, http.MethodGet, "/api/v1/stats?limit=1")
	assert.Len(t, body["runs"], 1)

	w, _ = do(t, r, http.MethodGet, "/api/v1/stats?limit=500")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestETLRun(t *testing.T) {
	store := testutil.NewStore(t)

	tests := []struct {
		name       string
		firer      *fakeFirer
		wantStatus int
	}{
		{name: "success", firer: &fakeFirer{summary: &service.Summary{Attempts: 1}}, wantStatus: http.StatusOK},
		{name: "in flight", firer: &fakeFirer{err: scheduler.ErrAlreadyRunning}, wantStatus: http.StatusConflict},
		{name: "exhausted", firer: &fakeFirer{err: errors.Join(service.ErrInvocationExhausted, errors.New("boom"))}, wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, Deps{Store: store, Trigger: tt.firer})
			w, body := do(t, r, http.MethodPost, "/api/v1/etl/run")
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, 1, tt.firer.calls)
			if tt.wantStatus == http.StatusOK {
				assert.EqualValues(t, 1, body["attempts"])
			} else {
				assert.NotEmpty(t, body["error"])
			}
		})
	}

	t.Run("route absent without trigger", func(t *testing.T) {
		r := newTestRouter(t, Deps{Store: store})
		w, _ := do(t, r, http.MethodPost, "/api/v1/etl/run")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "recordhub_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	r := newTestRouter(t, Deps{Store: testutil.NewStore(t), Gatherer: reg})
	w, _ := do(t, r, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "recordhub_test_total 1")
}
