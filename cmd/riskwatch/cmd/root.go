package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/riskwatch/anchor"
	"github.com/rustyeddy/riskwatch/config"
	"github.com/rustyeddy/riskwatch/journal"
	"github.com/rustyeddy/riskwatch/mll"
	"github.com/rustyeddy/riskwatch/monitor"
	"github.com/rustyeddy/riskwatch/rollover"
	"github.com/rustyeddy/riskwatch/topstep"
)

var rootCmd = &cobra.Command{
	Use:   "riskwatch",
	Short: "A prop-firm account risk monitor with daily-loss-limit tracking",
	Long: `Riskwatch monitors funded trading accounts against their Maximum Loss
Limit (MLL). It maintains per-account high-water anchors, performs the daily
17:00 CT rollover, evaluates the loss floor against live equity, computes
daily P&L, and journals rollover and breach events.

Credentials come from the environment:
  TOPSTEP_USERNAME  broker API user name
  TOPSTEP_API_KEY   broker API key`,
}

var (
	configPath   string
	accountsPath string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "f", "", "path to config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVarP(&accountsPath, "accounts", "a", "accounts.yaml", "path to account starting-balance file")
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.Format == "json" {
		log = zerolog.New(os.Stderr)
	} else {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return log.Level(level).With().Timestamp().Logger()
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "csv":
		return journal.NewCSV(cfg.RolloversFile, cfg.BreachesFile)
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	default:
		return journal.Nop{}, nil
	}
}

func tierTable(cfg config.MLLConfig) mll.Table {
	if len(cfg.Tiers) == 0 {
		return mll.DefaultTable()
	}
	table := make(mll.Table, 0, len(cfg.Tiers))
	for _, tier := range cfg.Tiers {
		table = append(table, mll.Tier{
			MaxBalance: tier.MaxBalance,
			Budget:     tier.Budget,
			Label:      tier.Label,
		})
	}
	return table
}

// buildMonitor wires the full stack from configuration. The returned journal
// must be closed by the caller.
func buildMonitor(cfg *config.Config, log zerolog.Logger) (*monitor.Monitor, journal.Journal, error) {
	creds, err := config.LoadCredentials()
	if err != nil {
		return nil, nil, err
	}

	accounts, err := config.LoadAccounts(accountsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load accounts: %w", err)
	}

	store, err := anchor.Open(cfg.Anchors.Path, log)
	if err != nil {
		return nil, nil, fmt.Errorf("open anchor store: %w", err)
	}

	engine, err := rollover.New(store, cfg.Rollover.Timezone, cfg.Rollover.Hour,
		cfg.Rollover.Minute, cfg.Rollover.MinInterval(), log)
	if err != nil {
		return nil, nil, err
	}

	jnl, err := openJournal(cfg.Journal)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal: %w", err)
	}

	client := topstep.NewClient(topstep.Config{
		BaseURL:       cfg.API.BaseURL,
		AuthEndpoint:  cfg.API.AuthEndpoint,
		Timeout:       cfg.API.Timeout(),
		MaxRetries:    cfg.API.MaxRetries,
		RequestRate:   cfg.API.RequestRate,
		RefreshMargin: cfg.Auth.RefreshMargin(),
		Username:      creds.Username,
		APIKey:        creds.APIKey,
	}, log)

	m := monitor.New(client, store, engine, tierTable(cfg.MLL), accounts, jnl, log)
	return m, jnl, nil
}
