package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/auditmos/actionkit/config"
	"github.com/auditmos/actionkit/endpoint"
	"github.com/auditmos/actionkit/event"
	"github.com/auditmos/actionkit/logging"
	"github.com/auditmos/actionkit/metrics"
	"github.com/auditmos/actionkit/storage"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	app := NewApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func NewApp() *cli.App {
	return &cli.App{
		Name:    "actionkit",
		Usage:   "dispatch action chains and inspect their events",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file",
				EnvVars: []string{"ACTIONKIT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "event database path (overrides config)",
				EnvVars: []string{"ACTIONKIT_DB"},
			},
		},
		Commands: []*cli.Command{
			dispatchCommand(),
			eventsCommand(),
			runsCommand(),
			redactCommand(),
		},
	}
}

// loadConfig applies command line overrides on top of config.Load.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, err
	}
	if c.IsSet("db") {
		cfg.DB = c.String("db")
	}
	if c.IsSet("safe") {
		cfg.Safe = c.Bool("safe")
	}
	if c.IsSet("mask") {
		cfg.EventMask = c.String("mask")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("metrics") {
		cfg.Metrics = c.Bool("metrics")
	}
	return cfg, cfg.Validate()
}

func openDB(cfg config.Config) (*sql.DB, error) {
	db, err := storage.OpenDB(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

func dispatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "dispatch",
		Usage:     "resolve a dotted chain against the sample directory and run it",
		ArgsUsage: "<chain>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "params",
				Aliases: []string{"p"},
				Usage:   "JSON params for the last segment",
			},
			&cli.StringSliceFlag{
				Name:  "with",
				Usage: "JSON params for an inner segment, as name=JSON",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "also write events to stdout in JSONL format",
			},
			&cli.BoolFlag{
				Name:  "safe",
				Usage: "redact sensitive event details before they are stored",
			},
			&cli.StringFlag{
				Name:  "mask",
				Usage: "event types to record, e.g. error|warning or all",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "print dispatch metrics after the run",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("chain argument required")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			chain, err := buildChain(c.Args().First(), c.String("params"), c.StringSlice("with"))
			if err != nil {
				return err
			}
			return runDispatch(c.App.Writer, c.App.ErrWriter, cfg, chain, c.Bool("json"))
		},
	}
}

// buildChain parses a dotted chain and attaches JSON params: leafParams to
// the last segment and each name=JSON entry of inner to the first segment
// with that name.
func buildChain(dotted, leafParams string, inner []string) (endpoint.Chain, error) {
	chain := endpoint.ParseChain(dotted)
	if len(chain) == 0 {
		return nil, fmt.Errorf("chain must not be empty")
	}

	for _, arg := range inner {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("--with %q: expected name=JSON", arg)
		}
		params, err := decodeParams(raw)
		if err != nil {
			return nil, fmt.Errorf("--with %s: %w", name, err)
		}
		found := false
		for i := range chain {
			if chain[i].Name == name {
				chain[i].Params = params
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("--with %s: no such segment in %s", name, dotted)
		}
	}

	if leafParams != "" {
		params, err := decodeParams(leafParams)
		if err != nil {
			return nil, fmt.Errorf("--params: %w", err)
		}
		chain = chain.WithLeafParams(params)
	}
	return chain, nil
}

func decodeParams(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode params: %w", err)
	}
	return v, nil
}

func newLogger(cfg config.Config, w io.Writer) logging.Logger {
	return logging.NewLogger(logging.LoggerConfig{
		Output:    w,
		Formatter: logging.NewFormatter(cfg.LogFormat, w),
		Level:     cfg.Level(),
		Sanitize:  true,
	}).WithTraceID(uuid.NewString())
}

func runDispatch(stdout, stderr io.Writer, cfg config.Config, chain endpoint.Chain, jsonOutput bool) error {
	logger := newLogger(cfg, stderr)

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	runRepo := storage.NewSQLiteRunRepo(db)
	eventRepo := storage.NewSQLiteEventRepo(db)
	redactRepo := storage.NewSQLiteRedactRuleRepo(db)
	if err := redactRepo.Seed(); err != nil {
		return fmt.Errorf("seed redact rules: %w", err)
	}

	run, err := runRepo.Start(chain.String())
	if err != nil {
		return err
	}

	mask := cfg.Mask()
	sinks := []event.Log{
		storage.NewEventLog(eventRepo, run.ID, mask),
		logging.NewEventSink(logger.WithFields(logging.Fields{"run": run.ID}), "events", mask),
	}
	if jsonOutput {
		sinks = append(sinks, storage.NewJSONLog(stdout, run.ID, mask))
	}

	opts := []endpoint.Option{endpoint.WithLogger(logger)}
	var reg *prometheus.Registry
	if cfg.Metrics {
		reg = prometheus.NewRegistry()
		m := metrics.New(reg)
		sinks = append(sinks, m.EventLog(mask))
		opts = append(opts, endpoint.WithObserver(m))
	}

	log := event.Tee(sinks...)
	if cfg.Safe {
		redactor, err := storage.NewRedactorWithRepo(redactRepo)
		if err != nil {
			return fmt.Errorf("init redactor: %w", err)
		}
		log = redactor.Wrap(log)
	}

	d := endpoint.NewDispatcher(newDirectory().root(), opts...)
	out, dispatchErr := d.Dispatch(chain, log)

	if err := runRepo.Finish(run.ID, endpoint.Outcome(dispatchErr)); err != nil {
		logger.WithError(err).Error("cli", "finish run", "could not record outcome")
	}
	if reg != nil {
		if err := metrics.WriteText(stderr, reg); err != nil {
			return err
		}
	}

	if dispatchErr != nil {
		stored, err := eventRepo.List(storage.EventQuery{RequestID: run.ID, Mask: event.MaskOf(event.TypeError)})
		if err != nil {
			return err
		}
		printEvents(stderr, stored)
		return fmt.Errorf("dispatch %s (run %s): %w", chain, run.ID, dispatchErr)
	}

	if jsonOutput {
		return nil
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func eventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "list stored events",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "request",
				Aliases: []string{"r"},
				Usage:   "only events of this run",
			},
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Value:   "all",
				Usage:   "event types, e.g. error|warning",
			},
			&cli.IntFlag{
				Name:  "limit",
				Value: 100,
				Usage: "maximum number of events",
			},
			&cli.DurationFlag{
				Name:  "prune",
				Usage: "delete events older than this before listing",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			mask, err := event.ParseMask(c.String("type"))
			if err != nil {
				return err
			}

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			repo := storage.NewSQLiteEventRepo(db)
			if age := c.Duration("prune"); age > 0 {
				n, err := repo.Prune(time.Now().Add(-age))
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "pruned %d events\n", n)
			}

			stored, err := repo.List(storage.EventQuery{
				RequestID: c.String("request"),
				Mask:      mask,
				Limit:     c.Int("limit"),
			})
			if err != nil {
				return err
			}
			printEvents(c.App.Writer, stored)
			return nil
		},
	}
}

var typeColors = map[event.Type]*color.Color{
	event.TypeError:   color.New(color.FgRed, color.Bold),
	event.TypeWarning: color.New(color.FgYellow),
	event.TypeInfo:    color.New(color.FgCyan),
	event.TypeSuccess: color.New(color.FgGreen),
}

func printEvents(w io.Writer, stored []*storage.StoredEvent) {
	for _, se := range stored {
		e := se.Event
		name := fmt.Sprintf("%-7s", e.Type)
		if c, ok := typeColors[e.Type]; ok {
			name = c.Sprint(name)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%s %s %s", time.UnixMilli(se.CreatedAt).Format("15:04:05"), se.RequestID, name)
		if len(e.Path) > 0 {
			fmt.Fprintf(&b, " %s", e.Path)
		}
		if e.Code != "" {
			fmt.Fprintf(&b, " [%s]", e.Code)
		}
		if e.Message != "" {
			fmt.Fprintf(&b, " %s", e.Message)
		}
		if len(e.Details) > 0 {
			details, _ := json.Marshal(e.Details)
			fmt.Fprintf(&b, " %s", details)
		}
		fmt.Fprintln(w, b.String())
	}
}

func runsCommand() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "list recent dispatches",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Value: 20,
				Usage: "maximum number of runs",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := storage.NewSQLiteRunRepo(db).ListRecent(c.Int("limit"))
			if err != nil {
				return err
			}
			for _, r := range runs {
				duration := "-"
				if r.EndedAt > 0 {
					duration = (time.Duration(r.EndedAt-r.StartedAt) * time.Millisecond).String()
				}
				fmt.Fprintf(c.App.Writer, "%s %s %-24s %-8s %s\n",
					r.ID, time.UnixMilli(r.StartedAt).Format(time.DateTime), r.Outcome, duration, r.Chain)
			}
			return nil
		},
	}
}

func redactCommand() *cli.Command {
	withRepo := func(c *cli.Context, fn func(repo *storage.SQLiteRedactRuleRepo) error) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		repo := storage.NewSQLiteRedactRuleRepo(db)
		if err := repo.Seed(); err != nil {
			return fmt.Errorf("seed redact rules: %w", err)
		}
		return fn(repo)
	}

	return &cli.Command{
		Name:  "redact",
		Usage: "manage the detail keys redacted in safe mode, globally or per path",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list redaction rules",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Usage: "only rules that cover events at this dotted path"},
				},
				Action: func(c *cli.Context) error {
					return withRepo(c, func(repo *storage.SQLiteRedactRuleRepo) error {
						var rules []*storage.RedactRule
						var err error
						if c.IsSet("path") {
							rules, err = repo.ForPath(event.ParsePath(c.String("path")))
						} else {
							rules, err = repo.GetAll()
						}
						if err != nil {
							return err
						}
						for _, r := range rules {
							fmt.Fprintf(c.App.Writer, "%s %s\n", r.ID, r)
						}
						return nil
					})
				},
			},
			{
				Name:      "add",
				Usage:     "redact another detail key",
				ArgsUsage: "<key>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path", Usage: "limit the rule to events at or below this dotted path"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return fmt.Errorf("key argument required")
					}
					return withRepo(c, func(repo *storage.SQLiteRedactRuleRepo) error {
						rule, err := repo.Create(c.Args().First(), event.ParsePath(c.String("path")))
						if err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "%s %s\n", rule.ID, rule)
						return nil
					})
				},
			},
			{
				Name:      "remove",
				Usage:     "stop redacting a key",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return fmt.Errorf("id argument required")
					}
					return withRepo(c, func(repo *storage.SQLiteRedactRuleRepo) error {
						err := repo.Delete(c.Args().First())
						if errors.Is(err, storage.ErrRuleNotFound) {
							return fmt.Errorf("no redact rule with id %s", c.Args().First())
						}
						return err
					})
				},
			},
		},
	}
}
