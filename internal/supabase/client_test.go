package supabase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "anon-key", nil)
	c.backoff = func(int) time.Duration { return time.Millisecond }
	return c
}

func TestFetchProjects(t *testing.T) {
	start := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.April, 30, 23, 59, 59, 0, time.UTC)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/projects", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "is.null", q.Get("deleted_at"))
		assert.Equal(t, "lte.2025-04-30T23:59:59Z", q.Get("start_date"))
		assert.Equal(t, "(end_date.gte.2025-03-01T00:00:00Z,and(end_date.is.null,start_date.gte.2025-03-01T00:00:00Z))", q.Get("or"))
		assert.Equal(t, "start_date.asc", q.Get("order"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"p1","title":"Roadshow","status":"active","priority":"high","event_type":"roadshow",
			 "start_date":"2025-03-03T09:00:00+00:00","end_date":"2025-03-05T18:00:00+00:00",
			 "crew_count":6,"filled_positions":4,"client_id":"c1","manager_id":null},
			{"id":"p2","title":"In-store","status":"planned","priority":"low",
			 "start_date":"2025-03-10","end_date":null},
			{"id":"p3","title":"Broken","status":"planned","priority":"low","start_date":"soon"}
		]`))
	})

	got, err := c.FetchProjects(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, "roadshow", got[0].EventType)
	assert.Equal(t, 6, got[0].CrewCount)
	assert.Equal(t, "c1", got[0].ClientID)
	assert.Empty(t, got[0].ManagerID)
	require.NotNil(t, got[0].EndDate)
	assert.True(t, got[0].EndDate.Equal(time.Date(2025, time.March, 5, 18, 0, 0, 0, time.UTC)))

	assert.Equal(t, "p2", got[1].ID)
	assert.Nil(t, got[1].EndDate)
	assert.Equal(t, 10, got[1].StartDate.Day())
}

func TestFetchUsers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/users", r.URL.Path)
		assert.Equal(t, "in.(u1,u2)", r.URL.Query().Get("id"))
		w.Write([]byte(`[{"id":"u1","full_name":"Aina","email":"aina@example.com","company_name":null}]`))
	})

	users, err := c.FetchUsers(context.Background(), []string{"u1", "u2"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Aina", users[0].FullName)

	users, err = c.FetchUsers(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, users)
}

func TestDoRequest_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[]`))
	})

	got, err := c.FetchProjects(context.Background(), time.Now(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoRequest_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.FetchUsers(context.Background(), []string{"u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
	assert.Equal(t, int32(4), calls.Load())
}

func TestDoRequest_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid API key"}`))
	})

	_, err := c.FetchProjects(context.Background(), time.Now(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
	assert.Equal(t, int32(1), calls.Load())
}
