package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/birdie-ai/qsql"
	"github.com/birdie-ai/qsql/filter"
	"github.com/birdie-ai/qsql/mongodb"
	"github.com/birdie-ai/qsql/relational"
	"github.com/birdie-ai/qsql/server"
	"github.com/birdie-ai/qsql/slog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/sync/errgroup"
)

type (
	// WhereCmd compiles a filter expression.
	WhereCmd struct {
		Expr string `arg:"" help:"Filter expression, eg: name(eq('docs'))"`
	}

	// OrderCmd compiles an order expression.
	OrderCmd struct {
		Expr string `arg:"" help:"Order expression, eg: -createdAt,id"`
	}

	// FormatCmd rewrites a filter expression with sorted keys and canonical literals.
	FormatCmd struct {
		Expr string `arg:"" help:"Filter expression"`
	}

	// DecodeCmd decodes a query string.
	DecodeCmd struct {
		QueryString string `arg:"" help:"Query string with filter, where, order, page and perPage"`
	}

	// EncodeCmd encodes a JSON query as a query string.
	EncodeCmd struct {
		Query string `arg:"" help:"JSON query with where, order, page and perPage"`
	}

	// QueryFlags are the parts of a query given as flags.
	QueryFlags struct {
		Filter  string `help:"Filter expression" short:"f"`
		Order   string `help:"Order expression" short:"o"`
		Page    int    `help:"1-based page number"`
		PerPage int    `help:"Page size"`
	}

	// MongoDBCmd compiles a query into a MongoDB find document.
	MongoDBCmd struct {
		QueryFlags
		Canonical bool `help:"Write canonical instead of relaxed extended JSON"`
	}

	// SQLCmd compiles a query into a SELECT statement.
	SQLCmd struct {
		QueryFlags
		Table string `help:"Table to select from" required:""`
	}

	// ServeCmd serves the compiler over HTTP.
	ServeCmd struct {
		Addr            string        `help:"Address to listen on" default:":8080" env:"QSQL_ADDR"`
		ShutdownTimeout time.Duration `help:"Graceful shutdown period" default:"10s" env:"QSQL_SHUTDOWN_TIMEOUT"`
	}
)

// Run executes the where command.
func (cmd *WhereCmd) Run(ctx *Context) error {
	q, err := qsql.ToWhereQuery(cmd.Expr)
	if err != nil {
		return err
	}
	return writeJSON(ctx.Out, q)
}

// Run executes the order command.
func (cmd *OrderCmd) Run(ctx *Context) error {
	q, err := qsql.ToOrderQuery(cmd.Expr)
	if err != nil {
		return err
	}
	return writeJSON(ctx.Out, q)
}

// Run executes the format command.
func (cmd *FormatCmd) Run(ctx *Context) error {
	q, err := qsql.ToWhereQuery(cmd.Expr)
	if err != nil {
		return err
	}
	if err := filter.Encode(ctx.Out, q); err != nil {
		return err
	}
	_, err = fmt.Fprintln(ctx.Out)
	return err
}

// Run executes the decode command.
func (cmd *DecodeCmd) Run(ctx *Context) error {
	q, err := qsql.FromQueryString(cmd.QueryString)
	if err != nil {
		return err
	}
	return writeJSON(ctx.Out, q)
}

// Run executes the encode command.
func (cmd *EncodeCmd) Run(ctx *Context) error {
	var q qsql.Query
	if err := json.Unmarshal([]byte(cmd.Query), &q); err != nil {
		return fmt.Errorf("decoding query: %w", err)
	}
	s, err := qsql.ToQueryString(q)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(ctx.Out, s)
	return err
}

// Run executes the mongodb command.
func (cmd *MongoDBCmd) Run(ctx *Context) error {
	q, err := cmd.query()
	if err != nil {
		return err
	}
	doc, err := mongodb.Find(q)
	if err != nil {
		return err
	}
	data, err := bson.MarshalExtJSON(doc, cmd.Canonical, false)
	if err != nil {
		return fmt.Errorf("encoding extended JSON: %w", err)
	}
	_, err = fmt.Fprintf(ctx.Out, "%s\n", data)
	return err
}

// Run executes the sql command.
func (cmd *SQLCmd) Run(ctx *Context) error {
	q, err := cmd.query()
	if err != nil {
		return err
	}
	opts, err := relational.Find(q)
	if err != nil {
		return err
	}
	stmt, args, err := opts.SQL(cmd.Table)
	if err != nil {
		return err
	}
	if args == nil {
		args = []any{}
	}
	return writeJSON(ctx.Out, server.SQLResponse{SQL: stmt, Args: args})
}

// Run executes the serve command until SIGINT or SIGTERM.
func (cmd *ServeCmd) Run(*Context) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return cmd.serve(ctx, nil)
}

// serve serves until ctx is cancelled, calling listening once the
// listener is bound.
func (cmd *ServeCmd) serve(ctx context.Context, listening func(net.Addr)) error {
	log := slog.FromCtx(ctx).With("addr", cmd.Addr)

	ln, err := net.Listen("tcp", cmd.Addr)
	if err != nil {
		return fmt.Errorf("listening on %q: %w", cmd.Addr, err)
	}
	if listening != nil {
		listening(ln.Addr())
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	srv := &http.Server{
		Handler:           server.NewHandler(registry),
		ReadHeaderTimeout: 10 * time.Second,
	}
	shutdown := server.NewShutdownHandler(cmd.ShutdownTimeout)
	shutdown.Add(srv)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("serving")
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := shutdown.Wait(ctx)
		log.Info("shut down", "error", err)
		return err
	})
	return g.Wait()
}

func (f QueryFlags) query() (qsql.Query, error) {
	q := qsql.Query{Page: f.Page, PerPage: f.PerPage}
	if f.Page < 0 || f.PerPage < 0 {
		return qsql.Query{}, fmt.Errorf("%w: page and per page can't be negative", qsql.ErrInvalidParam)
	}
	var err error
	if f.Filter != "" {
		if q.Where, err = qsql.ToWhereQuery(f.Filter); err != nil {
			return qsql.Query{}, fmt.Errorf("compiling filter: %w", err)
		}
	}
	if f.Order != "" {
		if q.Order, err = qsql.ToOrderQuery(f.Order); err != nil {
			return qsql.Query{}, fmt.Errorf("compiling order: %w", err)
		}
	}
	return q, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
