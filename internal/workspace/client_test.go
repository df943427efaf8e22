package workspace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scriba/internal/models"
)

func newTestClient(serverURL string, opts ...ClientOption) *Client {
	base := []ClientOption{
		WithBaseURL(serverURL),
		WithRateLimit(1000), // keep pacing out of test timing
		WithOperationTimeout(10 * time.Second),
	}
	return NewClient("test-token", "2022-06-28", append(base, opts...)...)
}

func TestCreatePageSendsHeaders(t *testing.T) {
	var gotAuth, gotVersion, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("Notion-Version")
		gotContentType = r.Header.Get("Content-Type")
		json.NewEncoder(w).Encode(Page{ID: "page-1", URL: "https://ws/page-1"})
	}))
	defer server.Close()

	page, err := newTestClient(server.URL).CreatePage(context.Background(), &CreatePageRequest{
		Parent: Parent{DatabaseID: "db-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "page-1", page.ID)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "2022-06-28", gotVersion)
	assert.Equal(t, "application/json", gotContentType)
}

func TestRetryOnTransientThenSuccess(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(Page{ID: "page-1"})
	}))
	defer server.Close()

	page, err := newTestClient(server.URL).RetrievePage(context.Background(), "page-1")
	require.NoError(t, err)
	assert.Equal(t, "page-1", page.ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRateLimitHonorsRetryAfterWithoutConsumingAttempt(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.Header().Set("Retry-After", "0.02")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(Page{ID: "page-1"})
	}))
	defer server.Close()

	// One retryable attempt would not survive two 429s if they consumed the
	// budget.
	client := newTestClient(server.URL, WithMaxRetries(1))
	page, err := client.RetrievePage(context.Background(), "page-1")
	require.NoError(t, err)
	assert.Equal(t, "page-1", page.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRetryAfterReplacesBackoffSleep(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&calls, 1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.Header().Set("Retry-After", "0.02")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			json.NewEncoder(w).Encode(Page{ID: "page-1"})
		}
	}))
	defer server.Close()

	started := time.Now()
	page, err := newTestClient(server.URL, WithMaxRetries(3)).RetrievePage(context.Background(), "page-1")
	elapsed := time.Since(started)

	require.NoError(t, err)
	assert.Equal(t, "page-1", page.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	// One backoff sleep after the 503, then just the Retry-After wait; a
	// second backoff sleep stacked on top would push this past a second.
	assert.Less(t, elapsed, 1200*time.Millisecond)
}

func TestNotFoundFailsImmediately(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"object_not_found","message":"Could not find page"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).RetrievePage(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "not-found is never retried")
}

func TestAuthFailureFailsImmediately(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"unauthorized","message":"API token is invalid"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).RetrievePage(context.Background(), "page-1")
	require.Error(t, err)
	assert.Equal(t, KindAuthFailure, KindOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestExhaustedAttempts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL, WithMaxRetries(2))
	_, err := client.RetrievePage(context.Background(), "page-1")
	require.Error(t, err)
	assert.Equal(t, KindTransient, KindOf(err))
	assert.Contains(t, err.Error(), "exhausted 2 attempts")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestAppendChildrenReturnsAssignedIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/blocks/parent-1/children", r.URL.Path)

		var req AppendChildrenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := AppendChildrenResponse{}
		for i := range req.Children {
			resp.Results = append(resp.Results, &models.Block{ID: "blk-" + string(rune('a'+i))})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	children := []*models.Block{
		{Type: models.BlockParagraph, Paragraph: &models.TextPayload{RichText: []models.RichText{models.NewRun("one")}}},
		{Type: models.BlockParagraph, Paragraph: &models.TextPayload{RichText: []models.RichText{models.NewRun("two")}}},
	}
	resp, err := newTestClient(server.URL).AppendChildren(context.Background(), "parent-1", children)
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "blk-a", resp.Results[0].ID)
}

func TestListChildrenPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("page_size"))
		if r.URL.Query().Get("start_cursor") == "" {
			json.NewEncoder(w).Encode(ListChildrenResponse{
				Results:    []*models.Block{{ID: "blk-1"}},
				HasMore:    true,
				NextCursor: "cursor-2",
			})
			return
		}
		json.NewEncoder(w).Encode(ListChildrenResponse{Results: []*models.Block{{ID: "blk-2"}}})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	first, err := client.ListChildren(context.Background(), "parent-1", "")
	require.NoError(t, err)
	assert.True(t, first.HasMore)

	second, err := client.ListChildren(context.Background(), "parent-1", first.NextCursor)
	require.NoError(t, err)
	assert.False(t, second.HasMore)
	assert.Equal(t, "blk-2", second.Results[0].ID)
}

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, KindRateLimited, classifyStatus(429, ""))
	assert.Equal(t, KindNotFound, classifyStatus(404, ""))
	assert.Equal(t, KindNotFound, classifyStatus(400, `{"code":"object_not_found"}`))
	assert.Equal(t, KindConflictRetryable, classifyStatus(409, `{"code":"conflict_error"}`))
	assert.Equal(t, KindValidation, classifyStatus(400, `{"code":"validation_error"}`))
	assert.Equal(t, KindAuthFailure, classifyStatus(401, ""))
	assert.Equal(t, KindAuthFailure, classifyStatus(403, ""))
	assert.Equal(t, KindTransient, classifyStatus(502, ""))
	assert.Equal(t, KindPermanent, classifyStatus(418, ""))
}

func TestRetryableKinds(t *testing.T) {
	assert.True(t, (&APIError{Kind: KindTransient}).Retryable())
	assert.True(t, (&APIError{Kind: KindRateLimited}).Retryable())
	assert.True(t, (&APIError{Kind: KindConflictRetryable}).Retryable())
	assert.False(t, (&APIError{Kind: KindValidation}).Retryable())
	assert.False(t, (&APIError{Kind: KindNotFound}).Retryable())
	assert.False(t, (&APIError{Kind: KindAuthFailure}).Retryable())
}

func TestOperationTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(Page{ID: "page-1"})
	}))
	defer server.Close()

	client := newTestClient(server.URL, WithOperationTimeout(50*time.Millisecond))
	_, err := client.RetrievePage(context.Background(), "page-1")
	require.Error(t, err)
	assert.Equal(t, KindTransient, KindOf(err))
}
