package hookbase

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestDispatchSuccessReturnsPayloadVerbatim(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"foo":"bar"}`))
	})

	resp := New(srv.URL, "whr_test").Dispatch(context.Background(), http.MethodGet, "/x", nil)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Empty(t, resp.Error)
	assert.JSONEq(t, `{"foo":"bar"}`, string(resp.Data))
	assert.NoError(t, resp.Err())
}

func TestDispatchErrorFieldOn404(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	})

	resp := New(srv.URL, "whr_test").Dispatch(context.Background(), http.MethodGet, "/x", nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "not found", resp.Error)
	assert.Nil(t, resp.Data)
	assert.True(t, IsNotFound(resp.Err()))
}

func TestDispatchErrorMessageFallbacks(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"slow down"}`, "slow down"},
		{"nested error", `{"error":{"message":"bad filter"}}`, "bad filter"},
		{"plain text", `upstream exploded`, "Request failed"},
		{"empty", ``, "Request failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(tc.body))
			})
			resp := New(srv.URL, "whr_test").Dispatch(context.Background(), http.MethodGet, "/x", nil)
			assert.Equal(t, http.StatusTooManyRequests, resp.Status)
			assert.Equal(t, tc.want, resp.Error)
		})
	}
}

func TestDispatchNetworkFailureHasStatusZero(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	resp := New("http://"+addr, "whr_test").Dispatch(context.Background(), http.MethodGet, "/x", nil)
	assert.Equal(t, 0, resp.Status)
	assert.NotEmpty(t, resp.Error)
	assert.Nil(t, resp.Data)

	var apiErr *APIError
	require.ErrorAs(t, resp.Err(), &apiErr)
	assert.True(t, apiErr.Network())
}

func TestDispatchMalformedSuccessBodyIsTransportFailure(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"truncated":`))
	})
	resp := New(srv.URL, "whr_test").Dispatch(context.Background(), http.MethodGet, "/x", nil)
	assert.Equal(t, 0, resp.Status)
	assert.Contains(t, resp.Error, "invalid JSON")
}

func TestDispatchEmptySuccessBodyIsNull(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	resp := New(srv.URL, "whr_test").Dispatch(context.Background(), http.MethodDelete, "/x", nil)
	assert.Equal(t, http.StatusNoContent, resp.Status)
	assert.Equal(t, "null", string(resp.Data))
	assert.True(t, resp.OK())
}

func TestDispatchSendsHeadersAndBody(t *testing.T) {
	var got struct {
		method, path, auth, ctype, reqID, body string
	}
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got.method = r.Method
		got.path = r.URL.RequestURI()
		got.auth = r.Header.Get("Authorization")
		got.ctype = r.Header.Get("Content-Type")
		got.reqID = r.Header.Get("X-Request-Id")
		got.body = string(b)
		_, _ = w.Write([]byte(`{}`))
	})

	c := New(srv.URL+"/", "whr_secret")
	resp := c.Dispatch(context.Background(), http.MethodPost, "/api/x?page=2", map[string]any{"name": "n"})
	require.True(t, resp.OK())

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/x?page=2", got.path)
	assert.Equal(t, "Bearer whr_secret", got.auth)
	assert.Equal(t, "application/json", got.ctype)
	assert.Len(t, got.reqID, 36)
	assert.JSONEq(t, `{"name":"n"}`, got.body)
}

func TestDispatchDoesNotRetry(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	resp := New(srv.URL, "whr_test").Dispatch(context.Background(), http.MethodGet, "/x", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
	assert.EqualValues(t, 1, hits.Load())
}

func TestDispatchRecordsSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	})
	c := New(srv.URL, "whr_test", WithTracer(tp.Tracer("test")))
	c.Dispatch(context.Background(), http.MethodGet, "/x", nil)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "hookbase.dispatch", spans[0].Name())
	assert.Equal(t, "bad", spans[0].Status().Description)
}

func TestDoDecodesTypedPayload(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"src_1","name":"Stripe","is_active":1},{"id":"src_2","is_active":0}],"pagination":{"page":1,"pageSize":20,"total":2}}`))
	})

	page, err := Do[Page[Source]](context.Background(), New(srv.URL, "whr_test"), http.MethodGet, "/sources", nil)
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.True(t, bool(page.Data[0].IsActive))
	assert.False(t, bool(page.Data[1].IsActive))
	assert.Equal(t, 2, page.Pagination.Total)
}

func TestDoReturnsAPIError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"forbidden"}`))
	})
	_, err := Do[Source](context.Background(), New(srv.URL, "whr_test"), http.MethodGet, "/sources/x", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "HTTP 403: forbidden", apiErr.Describe())
}

func TestFlagDecoding(t *testing.T) {
	var v struct {
		A Flag `json:"a"`
		B Flag `json:"b"`
		C Flag `json:"c"`
		D Flag `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":1,"b":true,"c":"0","d":null}`), &v))
	assert.True(t, bool(v.A))
	assert.True(t, bool(v.B))
	assert.False(t, bool(v.C))
	assert.False(t, bool(v.D))

	assert.Error(t, json.Unmarshal([]byte(`{"a":7}`), &v))
}

func TestHeadersDecodeLeniently(t *testing.T) {
	var v struct {
		H Headers `json:"h"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"h":{"Content-Type":"application/json","Accept":["text/plain","*/*"],"X-Retry":3,"X-Empty":null}}`), &v))
	assert.Equal(t, Headers{
		"Content-Type": "application/json",
		"Accept":       "text/plain, */*",
		"X-Retry":      "3",
	}, v.H)

	require.NoError(t, json.Unmarshal([]byte(`{"h":"{\"X-Sig\":\"abc\"}"}`), &v))
	assert.Equal(t, Headers{"X-Sig": "abc"}, v.H)

	require.NoError(t, json.Unmarshal([]byte(`{"h":null}`), &v))
	assert.Nil(t, v.H)

	assert.Error(t, json.Unmarshal([]byte(`{"h":42}`), &v))
}

func TestDoDecodesEventWithMultiValueHeaders(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"evt_1","headers":{"X-Forwarded-For":["1.1.1.1","2.2.2.2"],"Stripe-Signature":"t=1"},"payload":{"a":1}}`))
	})

	ev, err := Do[Event](context.Background(), New(srv.URL, "whr_test"), http.MethodGet, "/events/evt_1", nil)
	require.NoError(t, err)
	assert.Equal(t, "1.1.1.1, 2.2.2.2", ev.Headers["X-Forwarded-For"])
	assert.Equal(t, "t=1", ev.Headers["Stripe-Signature"])
}
