package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/birdie-ai/qsql/server"
	"github.com/birdie-ai/qsql/slog"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
)

func TestQuery(t *testing.T) {
	t.Parallel()

	srv := newServer(t)

	type testcase struct {
		name       string
		query      string
		wantStatus int
		wantBody   string
	}

	for _, tc := range []testcase{
		{
			name:       "empty",
			query:      "",
			wantStatus: http.StatusOK,
			wantBody:   `{}`,
		},
		{
			name:       "filter",
			query:      "filter=" + url.QueryEscape("name(eq('x')),size(between(1,2))") + "&page=2",
			wantStatus: http.StatusOK,
			wantBody:   `{"where":{"name":["eq","x"],"size":["between",[1,2]]},"page":2}`,
		},
		{
			name:       "order",
			query:      "order=-createdAt,id&perPage=10",
			wantStatus: http.StatusOK,
			wantBody:   `{"order":{"createdAt":"desc","id":"asc"},"perPage":10}`,
		},
		{
			name:       "invalid filter",
			query:      "filter=" + url.QueryEscape("key(eq('value')"),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid page",
			query:      "page=one",
			wantStatus: http.StatusBadRequest,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			status, body := get(t, srv.URL+server.QueryPath+"?"+tc.query)
			if status != tc.wantStatus {
				t.Fatalf("got status %d; want %d: %s", status, tc.wantStatus, body)
			}
			if tc.wantStatus != http.StatusOK {
				var res server.ErrorResponse
				if err := json.Unmarshal([]byte(body), &res); err != nil {
					t.Fatal(err)
				}
				if res.Error == "" {
					t.Fatalf("want error message, got %s", body)
				}
				return
			}
			if body != tc.wantBody {
				t.Fatalf("got %s; want %s", body, tc.wantBody)
			}
		})
	}
}

func TestMongoDB(t *testing.T) {
	t.Parallel()

	srv := newServer(t)

	query := "filter=" + url.QueryEscape("name(eq('x'))") + "&order=-id&page=2&perPage=10"
	status, body := get(t, srv.URL+server.MongoDBPath+"?"+query)
	if status != http.StatusOK {
		t.Fatalf("got status %d: %s", status, body)
	}
	const want = `{"filter":{"name":{"$eq":"x"}},"sort":{"id":-1},"skip":10,"limit":10}`
	if body != want {
		t.Fatalf("got %s; want %s", body, want)
	}

	status, body = get(t, srv.URL+server.MongoDBPath+"?where="+url.QueryEscape(`{"name":["like","x"]}`))
	if status != http.StatusBadRequest {
		t.Fatalf("got status %d; want 400: %s", status, body)
	}
}

func TestSQL(t *testing.T) {
	t.Parallel()

	srv := newServer(t)

	query := "table=folders&filter=" + url.QueryEscape("id(in(1,2))") + "&order=name"
	status, body := get(t, srv.URL+server.SQLPath+"?"+query)
	if status != http.StatusOK {
		t.Fatalf("got status %d: %s", status, body)
	}
	var got server.SQLResponse
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatal(err)
	}
	want := server.SQLResponse{
		SQL:  `SELECT * FROM "folders" WHERE "id" IN (?, ?) ORDER BY "name" ASC`,
		Args: []any{1.0, 2.0},
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatal(diff)
	}

	status, body = get(t, srv.URL+server.SQLPath)
	if status != http.StatusBadRequest {
		t.Fatalf("got status %d for missing table; want 400: %s", status, body)
	}
	if !strings.Contains(body, "table") {
		t.Fatalf("want error about the table, got %s", body)
	}
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	srv := httptest.NewServer(server.NewHandler(registry))
	t.Cleanup(srv.Close)

	get(t, srv.URL+server.QueryPath+"?filter="+url.QueryEscape("a(eq(1))"))
	get(t, srv.URL+server.QueryPath+"?filter="+url.QueryEscape("a(eq(1)"))
	get(t, srv.URL+server.QueryPath+"?filter="+url.QueryEscape("a(eq(1)"))

	families, err := registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "qsql_compile_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			got[labels["target"]+"/"+labels["status"]] = m.GetCounter().GetValue()
		}
	}
	want := map[string]float64{"query/ok": 1, "query/invalid": 2}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatal(diff)
	}

	status, body := get(t, srv.URL+server.MetricsPath)
	if status != http.StatusOK {
		t.Fatalf("got status %d", status)
	}
	for _, name := range []string{"qsql_compile_total", "qsql_compile_duration_seconds", "qsql_build_info"} {
		if !strings.Contains(body, name) {
			t.Errorf("metric %q not exposed", name)
		}
	}
}

func TestInstrument(t *testing.T) {
	t.Parallel()

	traceIDs := make(chan string, 1)
	h := server.Instrument(http.HandlerFunc(func(_ http.ResponseWriter, req *http.Request) {
		traceID, ok := server.CtxGetTraceID(req.Context())
		if !ok {
			t.Error("request context has no trace ID")
		}
		if slog.FromCtx(req.Context()) == nil {
			t.Error("request context has no logger")
		}
		traceIDs <- traceID
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(server.TraceHeader, "trace-1")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got := <-traceIDs; got != "trace-1" {
		t.Fatalf("got trace ID %q; want %q", got, "trace-1")
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got := <-traceIDs; got == "" {
		t.Fatal("want generated trace ID")
	}
}

func TestInstrumentAccessLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewGoogleCloudHandler(&buf, nil))
	h := server.Instrument(http.HandlerFunc(func(res http.ResponseWriter, _ *http.Request) {
		res.WriteHeader(http.StatusTeapot)
		_, _ = res.Write([]byte("tea"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/query?page=1", nil)
	req.Header.Set("User-Agent", "test-agent")
	h.ServeHTTP(httptest.NewRecorder(), req.WithContext(slog.NewContext(req.Context(), log)))

	var got struct {
		HTTPRequest map[string]any `json:"httpRequest"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("%v: %s", err, buf.String())
	}
	if _, ok := got.HTTPRequest["latency"]; !ok {
		t.Fatalf("access log has no latency: %s", buf.String())
	}
	delete(got.HTTPRequest, "latency")
	want := map[string]any{
		"requestMethod": "GET",
		"requestUrl":    "/v1/query?page=1",
		"status":        418.0,
		"responseSize":  3.0,
		"userAgent":     "test-agent",
	}
	if diff := cmp.Diff(got.HTTPRequest, want); diff != "" {
		t.Fatal(diff)
	}
}

func TestShutdown(t *testing.T) {
	t.Parallel()

	handler := server.NewShutdownHandler(time.Minute)
	service1 := newFakeService()
	service2 := newFakeService()

	handler.Add(service1)
	handler.Add(service2)

	ctx, cancel := context.WithCancel(context.Background())
	waitDone := make(chan error)
	go func() {
		waitDone <- handler.Wait(ctx)
	}()

	select {
	case <-service1.calls:
		t.Fatal("service 1 shutdown called before cancellation")
	case <-service2.calls:
		t.Fatal("service 2 shutdown called before cancellation")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	// Both calls are received before answering any, so they must be concurrent.
	service1Call := <-service1.calls
	service2Call := <-service2.calls

	checkWaiting := func() {
		select {
		case <-waitDone:
			t.Fatal("handler.Wait() returned before services shutting down")
		case <-time.After(50 * time.Millisecond):
		}
	}

	checkWaiting()
	service1Call.sendResponse(nil)

	checkWaiting()
	service2Call.sendResponse(context.DeadlineExceeded)

	if err := <-waitDone; err == nil {
		t.Fatal("want shutdown error")
	}
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(server.NewHandler(prometheus.NewRegistry()))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, target string) (int, string) {
	t.Helper()

	res, err := http.Get(target)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = res.Body.Close()
	}()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	return res.StatusCode, string(body)
}

type (
	shutdownCall struct {
		response chan error
	}
	fakeService struct {
		calls chan shutdownCall
	}
)

func newFakeService() *fakeService {
	return &fakeService{calls: make(chan shutdownCall)}
}

func (f *fakeService) Shutdown(context.Context) error {
	call := shutdownCall{response: make(chan error)}
	f.calls <- call
	return <-call.response
}

func (s *shutdownCall) sendResponse(err error) {
	s.response <- err
	close(s.response)
}
