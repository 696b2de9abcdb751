package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveCollectors(t *testing.T) {
	Init()

	ObserveCrawl("cleaned_html", "success", 2*time.Second)
	require.Equal(t, float64(1),
		testutil.ToFloat64(crawlRequestsTotal.WithLabelValues("cleaned_html", "success")))

	ObserveExtraction("openai", "summary", "success", time.Second)
	ObserveExtraction("openai", "summary", "success", time.Second)
	require.Equal(t, float64(2),
		testutil.ToFloat64(extractionsTotal.WithLabelValues("openai", "summary", "success")))

	ObserveUpload("markdown", "failed")
	require.Equal(t, float64(1),
		testutil.ToFloat64(uploadsTotal.WithLabelValues("markdown", "failed")))
}

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	Init()

	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/files/{task_id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ts := httptest.NewServer(r)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/files/42")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	require.GreaterOrEqual(t,
		testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")), float64(1))
}
