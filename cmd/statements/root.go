package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/nhle/card-statements/internal/credential"
	"github.com/nhle/card-statements/internal/logging"
	"github.com/nhle/card-statements/internal/model"
	"github.com/nhle/card-statements/internal/store"
)

// app holds the state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string
	envFile    string

	cfg     *model.AppConfig
	logger  *log.Logger
	closer  io.Closer
	vault   *credential.Vault
	secrets *credential.Resolver
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "statements",
		Short:         "Fetch and extract credit card statements from email",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.closer != nil {
				a.closer.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", model.DefaultConfigPath(), "path to the YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading secrets")

	root.AddCommand(
		newRunCmd(a),
		newTestConnectionCmd(a),
		newInitConfigCmd(a),
		newCredsCmd(a),
		newExportCmd(a),
		newParseCmd(a),
	)

	return root
}

// setup loads the environment, the config file and the logger. With --tui
// set, log lines go to the log file only.
func (a *app) setup(cmd *cobra.Command) error {
	if err := credential.LoadDotEnv(a.envFile); err != nil {
		return fmt.Errorf("loading %s: %w", a.envFile, err)
	}

	cfg, err := model.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg

	var console io.Writer = cmd.ErrOrStderr()
	if tui, err := cmd.Flags().GetBool("tui"); err == nil && tui {
		console = io.Discard
	}

	logger, closer, err := logging.New(cfg.Log, console, time.Now())
	if err != nil {
		return err
	}
	a.logger = logger
	a.closer = closer
	a.vault = credential.NewVault(logger)
	a.secrets = credential.NewResolver(a.vault)

	return nil
}

// openStore opens the configured database, creating its directory.
func (a *app) openStore() (*store.SQLiteStore, error) {
	if dir := filepath.Dir(a.cfg.DatabasePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}
	return store.NewSQLiteStore(a.cfg.DatabasePath)
}

var errNoCredentials = errors.New("EMAIL_ADDRESS and EMAIL_PASSWORD must be set in the environment, .env or keyring")
