package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/gaurav-prasanna/sheetpipe/core"
)

var _ core.Sink = (*Publisher)(nil)

type kbAPI struct {
	mu       sync.Mutex
	requests []request
	failNth  int
	auth     string
}

func (a *kbAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.auth = r.Header.Get("Authorization")

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	a.requests = append(a.requests, req)
	if len(a.requests) == a.failNth {
		http.Error(w, "duplicate UrlName", http.StatusBadRequest)
		return
	}
	ids := make([]string, 0, len(req.Records))
	for _, rec := range req.Records {
		ids = append(ids, "ka0-"+rec.URLName)
	}
	_ = json.NewEncoder(w).Encode(response{IDs: ids})
}

func records(n int) []core.OutputRecord {
	out := make([]core.OutputRecord, n)
	for i := range out {
		out[i] = core.OutputRecord{
			Position:     i,
			RecordTypeID: "012N00000036GnwIAE",
			Title:        fmt.Sprintf("doc_Sheet%d", i),
			URLName:      fmt.Sprintf("URL-20250102030405000-%d", i),
			Answer:       "<table></table>",
		}
	}
	return out
}

func TestPublish_Batches(t *testing.T) {
	api := &kbAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	p := New(Config{Endpoint: srv.URL, Token: "tok", BatchSize: 2, Limiter: rate.NewLimiter(rate.Inf, 1)})
	report, err := p.Publish(context.Background(), "run-1", records(5))
	require.NoError(t, err)

	assert.Equal(t, 3, report.Batches)
	assert.Zero(t, report.Failed)
	assert.Len(t, report.Created, 5)
	require.Len(t, api.requests, 3)
	assert.Equal(t, "run-1", api.requests[0].RunID)
	assert.Len(t, api.requests[2].Records, 1)
	assert.Equal(t, "doc_Sheet4", api.requests[2].Records[0].Title)
	assert.Equal(t, "Bearer tok", api.auth)
}

func TestPublish_FailedBatchDoesNotStopOthers(t *testing.T) {
	api := &kbAPI{failNth: 1}
	srv := httptest.NewServer(api)
	defer srv.Close()

	report, err := New(Config{Endpoint: srv.URL, BatchSize: 2}).Publish(context.Background(), "run", records(4))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch 1")
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, report.Created, 2)
	assert.Len(t, api.requests, 2)
}

func TestWrite_PublishesAggregate(t *testing.T) {
	api := &kbAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	res := &core.Result{RunID: "r", All: records(3)}
	require.NoError(t, New(Config{Endpoint: srv.URL}).Write(context.Background(), res))
	require.Len(t, api.requests, 1)
	assert.Len(t, api.requests[0].Records, 3)
}

func TestPublish_Nothing(t *testing.T) {
	report, err := New(Config{Endpoint: "http://127.0.0.1:0"}).Publish(context.Background(), "r", nil)
	require.NoError(t, err)
	assert.Zero(t, report.Batches)
}
