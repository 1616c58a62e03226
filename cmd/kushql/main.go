// Command kushql is the query runner: it takes a single SQL file argument
// (or reads from standard input), and parses, plans, translates, and
// executes each statement in order, following spec section 6's CLI
// contract and, in spirit, cmd/sentra/main.go's flag-driven single-binary
// entry point.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kr/pretty"
	"github.com/mattn/go-isatty"

	"kushql/internal/catalog"
	"kushql/internal/kqerr"
	"kushql/internal/plan"
	"kushql/internal/sqlfront"
	"kushql/internal/translate"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("kushql", flag.ContinueOnError)
	fs.SetOutput(stderr)
	catalogPath := fs.String("catalog", "catalog.db", "path to the sqlite3 metadata database")
	dataDir := fs.String("data", ".", "directory column files are resolved relative to")
	skinnerMode := fs.String("skinner", "permute", "SkinnerJoin implementation: permute | recompile")
	explain := fs.Bool("explain", false, "print the planned operator tree to stderr before executing")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *skinnerMode != "permute" && *skinnerMode != "recompile" {
		fmt.Fprintf(stderr, "kushql: invalid -skinner value %q (want permute or recompile)\n", *skinnerMode)
		return 2
	}
	if *skinnerMode == "recompile" {
		fmt.Fprintln(stderr, "kushql: -skinner=recompile is not implemented (only the permutable SkinnerJoin variant is); see DESIGN.md")
		return 1
	}

	var src []byte
	var err error
	rest := fs.Args()
	switch len(rest) {
	case 0:
		src, err = io.ReadAll(stdin)
	case 1:
		src, err = os.ReadFile(rest[0])
	default:
		fmt.Fprintln(stderr, "kushql: usage: kushql [flags] [path-to-sql-file]")
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "kushql: %v\n", err)
		return 1
	}

	cat, err := catalog.LoadFromSQLite(*catalogPath)
	if err != nil {
		fmt.Fprintf(stderr, "kushql: loading catalog: %v\n", err)
		return 1
	}

	colorize := isatty.IsTerminal(os.Stderr.Fd())
	failed := false

	for _, stmtText := range splitStatements(string(src)) {
		if strings.TrimSpace(stmtText) == "" {
			continue
		}
		if err := runStatement(stmtText, cat, *dataDir, *explain, stdout, stderr, colorize); err != nil {
			failed = true
			reportError(stderr, err, colorize)
		}
	}

	if failed {
		return 1
	}
	return 0
}

func runStatement(stmtText string, cat *catalog.Catalog, dataDir string, explain bool, stdout, stderr io.Writer, colorize bool) error {
	start := time.Now()

	stmt, err := sqlfront.ParseSelect(stmtText)
	if err != nil {
		return err
	}

	op, err := plan.Plan(stmt, cat)
	if err != nil {
		return err
	}
	if explain {
		fmt.Fprintf(stderr, "-- plan for: %s\n", strings.TrimSpace(stmtText))
		pretty.Fprintf(stderr, "%# v\n", op)
	}

	exec, err := translate.Build(op, dataDir)
	if err != nil {
		return err
	}

	rowCount := 0
	writer := bufio.NewWriter(stdout)
	defer writer.Flush()
	err = exec.Execute(translate.SinkFunc(func(row translate.Row) error {
		rowCount++
		_, werr := writer.WriteString(formatRow(row) + "\n")
		return werr
	}))
	if err != nil {
		return err
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	fmt.Fprintf(stderr, "-- %s rows in %s\n", humanize.Comma(int64(rowCount)), humanize.RelTime(start, start.Add(elapsed), "", ""))
	return nil
}

// formatRow renders one output row as comma-separated fields, following
// spec section 8's scenario expectations: integer/date/bigint columns
// print as plain digits, AVG's floating-point result prints with
// exactly two decimal places, and text columns print unquoted.
func formatRow(row translate.Row) string {
	fields := make([]string, len(row))
	for i, v := range row {
		switch v.Type {
		case catalog.TypeDouble:
			fields[i] = strconv.FormatFloat(v.Float, 'f', 2, 64)
		case catalog.TypeText:
			fields[i] = v.Str
		case catalog.TypeBoolean:
			if v.Int != 0 {
				fields[i] = "true"
			} else {
				fields[i] = "false"
			}
		default:
			fields[i] = strconv.FormatInt(v.Int, 10)
		}
	}
	return strings.Join(fields, ",")
}

// splitStatements breaks a SQL source file into individual statements on
// top-level semicolons, ignoring semicolons inside string literals so a
// LIKE pattern or text value containing ';' isn't mistaken for a
// statement boundary.
func splitStatements(src string) []string {
	var stmts []string
	var cur strings.Builder
	inString := false
	for _, r := range src {
		switch {
		case r == '\'':
			inString = !inString
			cur.WriteRune(r)
		case r == ';' && !inString:
			stmts = append(stmts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if strings.TrimSpace(cur.String()) != "" {
		stmts = append(stmts, cur.String())
	}
	return stmts
}

func reportError(stderr io.Writer, err error, colorize bool) {
	stage, ok := kqerr.StageOf(err)
	msg := err.Error()
	if ok && colorize {
		fmt.Fprintf(stderr, "\x1b[31m%s error: %s\x1b[0m\n", stage, msg)
		return
	}
	fmt.Fprintf(stderr, "kushql: %s\n", msg)
}
