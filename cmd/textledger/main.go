package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Veraticus/textledger/internal/common"
	"github.com/Veraticus/textledger/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	_ "time/tzdata" // sheet tabs are named in a fixed IANA zone
)

var version = "dev"

// app carries the state shared by every subcommand of one root command.
type app struct {
	v       *viper.Viper
	cfg     *config.Config
	logger  *slog.Logger
	cfgFile string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)

	rootCmd := &cobra.Command{
		Use:   "textledger",
		Short: "📒 Log transactions by text message",
		Long: `textledger: text it "golf 33" and it lands in your budget.

Messages arriving by SMS or Telegram are classified by Gemini into a fixed
taxonomy, recorded in a local ledger and appended to a Google Sheet.`,
		PersistentPreRunE: a.initConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.config/textledger/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	_ = a.v.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(a.authCmd())
	rootCmd.AddCommand(a.classifyCmd())
	rootCmd.AddCommand(a.historyCmd())
	rootCmd.AddCommand(a.migrateCmd())
	rootCmd.AddCommand(a.sendCmd())
	rootCmd.AddCommand(a.serveCmd())
	rootCmd.AddCommand(taxonomyCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) initConfig(_ *cobra.Command, _ []string) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(config.DefaultConfigDir())
		a.v.AddConfigPath(".")
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}

	if err := a.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := common.SetupLogger(a.v.GetString("logging.level"), a.v.GetString("logging.format")); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.logger = slog.Default()

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug("loaded config file", "path", used)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "textledger %s\n", version)
		},
	}
}
