// Command climatectl inspects and prepares dataset files for the climate API.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"climate-server/internal/config"
	db "climate-server/internal/db"
	"climate-server/internal/logging"
	"climate-server/internal/schema"
)

var version = "dev"

const usage = `usage: %s <command>
  check  validate the dataset schema and print a summary
  init   create the climate tables in a new dataset file
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg, version, "climatectl"))

	ctx := context.Background()
	switch os.Args[1] {
	case "check":
		err = check(ctx, cfg, os.Stdout)
	case "init":
		err = initDataset(ctx, cfg.Path)
		if err == nil {
			fmt.Printf("created %s\n", cfg.Path)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func check(ctx context.Context, cfg config.Config, out io.Writer) error {
	conn, err := db.Open(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()

	if err := schema.Validate(ctx, conn); err != nil {
		return err
	}
	s, err := schema.Summarize(ctx, conn)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "tables:       %s\n", strings.Join(schema.TableNames(), ", "))
	fmt.Fprintf(out, "stations:     %d\n", s.Stations)
	fmt.Fprintf(out, "measurements: %d\n", s.Measurements)
	if s.Measurements > 0 {
		fmt.Fprintf(out, "date range:   %s .. %s\n", s.FirstDate, s.LastDate)
	}
	return nil
}

// initDataset only creates new files; an existing path is an error.
func initDataset(ctx context.Context, path string) error {
	path = filepath.Clean(path)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	conn, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()
	return schema.Bootstrap(ctx, conn)
}
