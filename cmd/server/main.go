package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/todoapp/todo-reminder-api/internal/config"
	"github.com/todoapp/todo-reminder-api/internal/logging"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// cli carries what PersistentPreRunE loads for every subcommand.
type cli struct {
	configFile string
	cfg        *config.Config
	log        *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "todo-reminder-api",
		Short:         "Multi-user todo API with daily email reminders",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "YAML config file (overrides CONFIG_FILE)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API and the reminder scheduler",
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.serve(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "remind",
			Short: "Send today's reminders once and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.remind(cmd.Context(), cmd)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the store schema and indexes",
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.migrate(cmd.Context())
			},
		},
	)
	return root
}

func (c *cli) setup() error {
	if c.configFile != "" {
		if err := os.Setenv("CONFIG_FILE", c.configFile); err != nil {
			return err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return err
	}

	gin.SetMode(cfg.Server.GinMode)
	c.cfg = cfg
	c.log = log
	return nil
}
