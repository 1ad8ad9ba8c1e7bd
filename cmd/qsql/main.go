// Command qsql compiles filter and order expressions into canonical queries
// and the queries of their data stores, or serves the compiler over HTTP.
//
//	qsql where "name(eq('docs')),size(gt(10))"
//	qsql order -- -createdAt,id
//	qsql decode "filter=name(eq('docs'))&page=2&perPage=10"
//	qsql mongodb --filter "name(eq('docs'))" --order=-createdAt
//	qsql sql --table folders --filter "name(eq('docs'))"
//	qsql serve --addr :8080
//
// Logging is configured by QSQL_LOG_LEVEL and QSQL_LOG_FMT.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/birdie-ai/qsql/slog"
)

// Context is passed to every command.
type Context struct {
	Out io.Writer
}

// CLI is the command line interface.
type CLI struct {
	Where   WhereCmd   `cmd:"" help:"Compile a filter expression into a where query"`
	Order   OrderCmd   `cmd:"" help:"Compile an order expression into an order query"`
	Format  FormatCmd  `cmd:"" help:"Rewrite a filter expression in canonical form"`
	Decode  DecodeCmd  `cmd:"" help:"Decode a query string into a query"`
	Encode  EncodeCmd  `cmd:"" help:"Encode a JSON query into a query string"`
	MongoDB MongoDBCmd `cmd:"" name:"mongodb" help:"Compile a query into a MongoDB find document"`
	SQL     SQLCmd     `cmd:"" name:"sql" help:"Compile a query into a SQL SELECT"`
	Serve   ServeCmd   `cmd:"" help:"Serve the compiler over HTTP"`
}

func main() {
	cfg, err := slog.LoadConfig("QSQL")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading log config: %v\n", err)
		os.Exit(1)
	}
	if err := slog.Configure(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: configuring log: %v\n", err)
		os.Exit(1)
	}

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("qsql"),
		kong.Description("Compile qsql filter and order expressions."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(&Context{Out: os.Stdout}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
