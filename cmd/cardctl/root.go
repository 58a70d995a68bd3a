package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"cardcycle/internal/cli"
	"cardcycle/internal/config"
	"cardcycle/internal/storage"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app holds what the subcommands share once the store is open.
type app struct {
	cfg   *config.Config
	repo  *storage.SQLiteRepository
	svc   cli.StatementServices
	close func()
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:          "cardctl",
		Short:        "Operate credit card statement cycles",
		Long:         `cardctl runs statement roll-overs, recalculates closed cycles and shows cycle windows against the cardcycle database.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.LoadEnvFile()
			v.AutomaticEnv()
		},
	}

	pf := root.PersistentFlags()
	pf.String("db", "", "SQLite database path (env SQLITE_DB_PATH)")
	pf.String("timezone", "", "timezone statement days are counted in (env STATEMENT_TIMEZONE)")
	pf.String("log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	pf.Bool("publish", false, "publish statement events when AMQP_URL is set")
	_ = v.BindPFlag("SQLITE_DB_PATH", pf.Lookup("db"))
	_ = v.BindPFlag("STATEMENT_TIMEZONE", pf.Lookup("timezone"))
	_ = v.BindPFlag("LOG_LEVEL", pf.Lookup("log-level"))
	_ = v.BindPFlag("publish", pf.Lookup("publish"))

	root.AddCommand(
		newRollCmd(v),
		newRecalcCmd(v),
		newWindowCmd(v),
	)
	return root
}

// loadConfig reads the environment and lets flags bound in v override it.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg := config.Load()
	if s := v.GetString("SQLITE_DB_PATH"); s != "" {
		cfg.SQLiteDBPath = s
	}
	if s := v.GetString("STATEMENT_TIMEZONE"); s != "" {
		cfg.StatementTimezone = s
	}
	if s := v.GetString("LOG_LEVEL"); s != "" {
		cfg.LogLevel = s
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openApp(v *viper.Viper) (*app, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg.SlogLevel())
	slog.SetDefault(logger.With("component", "cardctl"))

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	closePublisher := func() {}
	svc := cli.NewStatementServices(cfg, repo, nil)
	if v.GetBool("publish") {
		pub, closeFn := cli.InitPublisher(logger, cfg)
		closePublisher = closeFn
		svc = cli.NewStatementServices(cfg, repo, pub)
	}

	return &app{
		cfg:  cfg,
		repo: repo,
		svc:  svc,
		close: func() {
			closePublisher()
			_ = repo.Close()
		},
	}, nil
}

// parseInstant accepts RFC 3339 or YYYY-MM-DD; a bare date means midday in
// loc so the calendar day is unambiguous.
func parseInstant(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t.Add(12 * time.Hour), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: want RFC 3339 or YYYY-MM-DD", s)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
