package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"notice_board/migrations"
)

const defaultDBPath = "./data/noticeboard.db"

type command struct {
	name  string
	help  string
	apply func(db *sql.DB, target int64) error
}

var commands = []command{
	{"up", "Migrate to the latest version, or to -to", func(db *sql.DB, target int64) error {
		if target > 0 {
			return goose.UpTo(db, ".", target)
		}
		return goose.Up(db, ".")
	}},
	{"up-one", "Migrate one version up", func(db *sql.DB, _ int64) error { return goose.UpByOne(db, ".") }},
	{"down", "Roll back one version, or down to -to", func(db *sql.DB, target int64) error {
		if target > 0 {
			return goose.DownTo(db, ".", target)
		}
		return goose.Down(db, ".")
	}},
	{"redo", "Roll back and reapply the latest migration", func(db *sql.DB, _ int64) error { return goose.Redo(db, ".") }},
	{"reset", "Roll back all migrations", func(db *sql.DB, _ int64) error { return goose.Reset(db, ".") }},
	{"status", "Show migration status", func(db *sql.DB, _ int64) error { return goose.Status(db, ".") }},
	{"version", "Show current version", func(db *sql.DB, _ int64) error { return goose.Version(db, ".") }},
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("load .env", "error", err)
		os.Exit(1)
	}

	if err := run(os.Args[1:], os.Stderr); err != nil {
		slog.Error("migrate", "error", err)
		os.Exit(1)
	}
}

func run(args []string, stderr io.Writer) error {
	flags := flag.NewFlagSet("migrate", flag.ContinueOnError)
	flags.SetOutput(stderr)
	dbPath := flags.String("db", envOrDefault("DATABASE_PATH", defaultDBPath), "path to sqlite database")
	target := flags.Int64("to", 0, "target version for up and down")
	flags.Usage = func() { usage(stderr) }
	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() == 0 {
		usage(stderr)
		return errors.New("no command given")
	}
	cmd, ok := lookup(flags.Arg(0))
	if !ok {
		return fmt.Errorf("unknown command: %s", flags.Arg(0))
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := migrations.Configure(); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}
	if err := cmd.apply(db, *target); err != nil {
		return fmt.Errorf("%s: %w", cmd.name, err)
	}
	return nil
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: migrate [-db path] [-to version] <command>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s  %s\n", c.name, c.help)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
