// Command chbench runs a single query (or an argument-bound script of
// several) against a live server over the native protocol and reports
// timing, row counts, and any N+1-shaped query repetition it observes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mickamy/chnative/block"
	"github.com/mickamy/chnative/chclient"
	"github.com/mickamy/chnative/chdiag"
	"github.com/mickamy/chnative/chhighlight"
	"github.com/mickamy/chnative/chquery"
	"github.com/mickamy/chnative/chvalue"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("chbench", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "chbench — native-protocol query runner\n\nUsage:\n  chbench [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	addr := fs.String("addr", "localhost:9000", "server address")
	user := fs.String("user", "default", "username")
	password := fs.String("password", "", "password")
	database := fs.String("database", "", "default database")
	query := fs.String("query", "", "SQL text to run; ';'-separated statements are run in order (required unless -query-file is set)")
	queryFile := fs.String("query-file", "", "path to a file of ';'-separated statements, read instead of -query")
	args := fs.String("args", "", "comma-separated $N argument values, bound as string literals before splitting")
	repeat := fs.Int("repeat", 1, "number of times to run the statement(s), back to back")
	verbose := fs.Bool("verbose", false, "print syntax-highlighted SQL and per-statement timing")
	nplus1Threshold := fs.Int("nplus1-threshold", 0, "N+1 detection threshold (0 to disable)")
	nplus1Window := fs.Duration("nplus1-window", time.Second, "N+1 detection time window")
	nplus1Cooldown := fs.Duration("nplus1-cooldown", 10*time.Second, "N+1 alert cooldown per query")
	insertInto := fs.String("insert-into", "", "an \"INSERT INTO table (cols) VALUES\" prefix; when set, -insert-rows is sent as an untyped insert instead of running -query")
	insertRows := fs.String("insert-rows", "", "rows for -insert-into, ';'-separated rows of comma-separated cell values; column types are guessed per column")
	showVersion := fs.Bool("version", false, "show version and exit")

	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("chbench %s\n", version)
		return
	}

	if *insertInto != "" {
		if err := runInsert(*addr, *user, *password, *database, *insertInto, *insertRows); err != nil {
			log.Fatal(err)
		}
		return
	}

	sql, err := loadSQL(*query, *queryFile)
	if err != nil {
		fs.Usage()
		log.Fatal(err)
	}

	if err := run(*addr, *user, *password, *database, sql, *args, *repeat, *verbose,
		*nplus1Threshold, *nplus1Window, *nplus1Cooldown); err != nil {
		log.Fatal(err)
	}
}

// runInsert sends rows (";"-separated rows of comma-separated cell values,
// parsed as Int64 where possible and String otherwise) as a single untyped
// insert, letting block.BuildUntyped guess each column's Type from its
// first row rather than requiring the caller to implement chrow.Writer or
// wait on a server header.
func runInsert(addr, user, password, database, insertInto, rows string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := chclient.Connect(ctx, addr, chclient.Options{
		Username:        user,
		Password:        password,
		DefaultDatabase: database,
		ClientName:      "chbench",
	})
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	defer func() { _ = c.Close() }()

	values := parseRows(rows)
	if len(values) == 0 {
		return fmt.Errorf("-insert-rows is required with -insert-into")
	}

	columnNames := insertColumnNames(insertInto)
	b := block.BuildUntyped(columnNames, values)

	batches := make(chan *block.Block, 1)
	batches <- b
	close(batches)

	if err := c.InsertNative(ctx, insertInto, batches); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	log.Printf("inserted %d rows", b.Rows)
	return nil
}

// insertColumnNames extracts the parenthesized column list of an
// "INSERT INTO table (a, b, c)" prefix, or nil if none is present.
func insertColumnNames(insertInto string) []string {
	open := strings.IndexByte(insertInto, '(')
	close := strings.IndexByte(insertInto, ')')
	if open < 0 || close < open {
		return nil
	}
	parts := strings.Split(insertInto[open+1:close], ",")
	names := make([]string, len(parts))
	for i, p := range parts {
		names[i] = strings.TrimSpace(p)
	}
	return names
}

func parseRows(raw string) [][]chvalue.Value {
	if raw == "" {
		return nil
	}
	rows := strings.Split(raw, ";")
	out := make([][]chvalue.Value, len(rows))
	for i, row := range rows {
		cells := strings.Split(row, ",")
		values := make([]chvalue.Value, len(cells))
		for j, cell := range cells {
			values[j] = parseCellValue(strings.TrimSpace(cell))
		}
		out[i] = values
	}
	return out
}

func parseCellValue(cell string) chvalue.Value {
	if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return chvalue.Int64(n)
	}
	return chvalue.String(cell)
}

func loadSQL(query, queryFile string) (string, error) {
	if queryFile != "" {
		b, err := os.ReadFile(queryFile)
		if err != nil {
			return "", fmt.Errorf("read query file: %w", err)
		}
		return string(b), nil
	}
	if query == "" {
		return "", fmt.Errorf("one of -query or -query-file is required")
	}
	return query, nil
}

func run(addr, user, password, database, sql, rawArgs string, repeat int, verbose bool,
	nplus1Threshold int, nplus1Window, nplus1Cooldown time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := chclient.Options{
		Username:        user,
		Password:        password,
		DefaultDatabase: database,
		ClientName:      "chbench",
	}
	if nplus1Threshold > 0 {
		opts.Diagnostics = chdiag.New(nplus1Threshold, nplus1Window, nplus1Cooldown)
		opts.OnRepeatedQuery = func(a chdiag.Alert) {
			log.Printf("N+1 detected: %q (%d times in %s)", a.Query, a.Count, nplus1Window)
		}
	}

	c, err := chclient.Connect(ctx, addr, opts)
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	defer func() { _ = c.Close() }()

	bound := sql
	if rawArgs != "" {
		bound = chquery.Bind(sql, stringArgs(rawArgs))
	}
	statements := chquery.Split(bound)
	if len(statements) == 0 {
		return fmt.Errorf("no statements found in input")
	}

	for i := 0; i < repeat; i++ {
		for _, stmt := range statements {
			if err := runOne(ctx, c, stmt, verbose); err != nil {
				return err
			}
		}
	}

	p := c.Progress()
	log.Printf("done: read %d rows (%d bytes), wrote %d rows (%d bytes)",
		p.ReadRows, p.ReadBytes, p.WrittenRows, p.WrittenBytes)
	return nil
}

func runOne(ctx context.Context, c *chclient.Client, stmt string, verbose bool) error {
	if verbose {
		log.Printf("running: %s", chhighlight.SQL(stmt))
	}

	start := time.Now()
	rows, err := c.QueryRaw(ctx, stmt)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	var blocks, numRows int
	for b := range rows.Blocks {
		blocks++
		numRows += int(b.Rows)
		if verbose && b.Rows > 0 {
			printBlock(b)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if verbose {
		log.Printf("%d rows in %d blocks (%s)", numRows, blocks, time.Since(start))
	}
	return nil
}

// printBlock prints each row of b as tab-separated cells, in the literal
// SQL rendering chvalue.Value.String already provides.
func printBlock(b *block.Block) {
	names := make([]string, b.NumColumns())
	for i, col := range b.Columns {
		names[i] = col.Name
	}
	fmt.Println(strings.Join(names, "\t"))

	for r := uint64(0); r < b.Rows; r++ {
		cells := make([]string, b.NumColumns())
		for i, col := range b.Columns {
			cells[i] = col.Values[r].String()
		}
		fmt.Println(strings.Join(cells, "\t"))
	}
}

func stringArgs(raw string) []chvalue.Value {
	parts := strings.Split(raw, ",")
	out := make([]chvalue.Value, 0, len(parts))
	for _, p := range parts {
		out = append(out, chvalue.String(p))
	}
	return out
}
