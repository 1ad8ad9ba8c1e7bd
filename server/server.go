// Package server exposes the qsql compiler over HTTP.
//
// Every endpoint takes a query envelope on the URL query string, the same
// format decoded by [qsql.FromQueryString]:
//
//	GET /v1/query?filter=...&order=...&page=...&perPage=...
//
// /v1/query answers the canonical query as JSON, /v1/mongodb the MongoDB
// filter and sort as extended JSON and /v1/sql the rendered SELECT of the
// table given by the "table" parameter. Failures answer {"error": "..."}.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/birdie-ai/qsql"
	"github.com/birdie-ai/qsql/mongodb"
	"github.com/birdie-ai/qsql/relational"
	"github.com/birdie-ai/qsql/slog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Handler endpoints.
const (
	QueryPath   = "/v1/query"
	MongoDBPath = "/v1/mongodb"
	SQLPath     = "/v1/sql"
	MetricsPath = "/metrics"
)

type (
	// SQLResponse is the body of a successful /v1/sql response.
	SQLResponse struct {
		SQL  string `json:"sql"`
		Args []any  `json:"args"`
	}

	// ErrorResponse is the body of a failed response.
	ErrorResponse struct {
		Error string `json:"error"`
	}

	// compileFunc compiles a decoded envelope into a response body.
	compileFunc func(req *http.Request, q qsql.Query) ([]byte, string, error)

	// badRequestError is a compile failure caused by the request.
	badRequestError struct {
		err error
	}
)

// NewHandler creates the handler of all endpoints, its metrics are registered
// on registry and served on [MetricsPath]. Requests are instrumented with
// [Instrument].
func NewHandler(registry *prometheus.Registry) http.Handler {
	m := newMetrics(registry)

	mux := http.NewServeMux()
	mux.Handle("GET "+QueryPath, m.compileHandler("query", compileQuery))
	mux.Handle("GET "+MongoDBPath, m.compileHandler("mongodb", compileMongoDB))
	mux.Handle("GET "+SQLPath, m.compileHandler("sql", compileSQL))
	mux.Handle("GET "+MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	return Instrument(mux)
}

func (m *metrics) compileHandler(target string, compile compileFunc) http.Handler {
	return http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		log := slog.FromCtx(req.Context()).With("target", target)
		start := time.Now()

		body, contentType, err := decodeAndCompile(req, compile)
		m.observe(target, err, time.Since(start))

		if err != nil {
			status := http.StatusInternalServerError
			var badReq badRequestError
			if errors.As(err, &badReq) {
				status = http.StatusBadRequest
				log.Debug("rejected query", "error", err)
			} else {
				log.Error("compiling query", "error", err)
			}
			writeJSON(res, status, ErrorResponse{Error: err.Error()})
			return
		}
		res.Header().Set("Content-Type", contentType)
		_, _ = res.Write(body)
	})
}

func decodeAndCompile(req *http.Request, compile compileFunc) ([]byte, string, error) {
	q, err := qsql.FromQueryString(req.URL.RawQuery)
	if err != nil {
		return nil, "", badRequestError{err}
	}
	return compile(req, q)
}

func compileQuery(_ *http.Request, q qsql.Query) ([]byte, string, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, "", fmt.Errorf("encoding query: %w", err)
	}
	return body, "application/json", nil
}

func compileMongoDB(_ *http.Request, q qsql.Query) ([]byte, string, error) {
	doc, err := mongodb.Find(q)
	if err != nil {
		return nil, "", badRequestError{err}
	}
	body, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, "", fmt.Errorf("encoding extended JSON: %w", err)
	}
	return body, "application/json", nil
}

func compileSQL(req *http.Request, q qsql.Query) ([]byte, string, error) {
	table := req.URL.Query().Get("table")
	if table == "" {
		return nil, "", badRequestError{errors.New(`missing "table" parameter`)}
	}
	opts, err := relational.Find(q)
	if err != nil {
		return nil, "", badRequestError{err}
	}
	stmt, args, err := opts.SQL(table)
	if err != nil {
		return nil, "", badRequestError{err}
	}
	if args == nil {
		args = []any{}
	}
	body, err := json.Marshal(SQLResponse{SQL: stmt, Args: args})
	if err != nil {
		return nil, "", fmt.Errorf("encoding SQL response: %w", err)
	}
	return body, "application/json", nil
}

func writeJSON(res http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(res, err.Error(), http.StatusInternalServerError)
		return
	}
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	_, _ = res.Write(body)
}

func (e badRequestError) Error() string {
	return e.err.Error()
}

func (e badRequestError) Unwrap() error {
	return e.err
}
