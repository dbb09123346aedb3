package main

import (
	"fmt"

	"github.com/Veraticus/textledger/internal/engine"
	"github.com/Veraticus/textledger/internal/messaging"
	"github.com/Veraticus/textledger/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		Long: `Serve the SMS and Telegram webhooks.

Point your Twilio number's messaging webhook at POST /sms and your Telegram
bot's webhook at POST /telegram. Every message is classified, recorded in
the ledger and, when confident enough, appended to the Google Sheet.`,
		RunE: a.runServe,
	}

	cmd.Flags().String("port", "", "port to listen on (overrides PORT)")

	return cmd
}

func (a *app) runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		a.cfg.Server.Port = port
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	classifier, err := a.newClassifier(ctx)
	if err != nil {
		return err
	}

	store, err := a.openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	appender, err := a.newAppender(ctx)
	if err != nil {
		return err
	}

	opts := server.Options{
		Engine:     engine.New(classifier, store, appender, engineConfig(a.cfg), a.logger),
		Logger:     a.logger,
		WebhookURL: a.cfg.Twilio.WebhookURL,
	}

	if a.cfg.Telegram.Enabled() {
		bot, err := messaging.NewTelegramBot(a.cfg.Telegram.BotToken, a.cfg.Telegram.APIEndpoint, nil, a.logger)
		if err != nil {
			return err
		}
		opts.Telegram = bot
		if a.cfg.Telegram.UserID == 0 {
			a.logger.Warn("TELEGRAM_USER_ID is not set; telegram messages will be ignored")
		}
	}

	if a.cfg.Twilio.ValidateSignature {
		opts.Validator = messaging.NewSignatureValidator(a.cfg.Twilio.AuthToken)
	}

	srv, err := server.New(opts)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if a.cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	a.logger.Info("starting textledger",
		"version", version,
		"port", a.cfg.Server.Port,
		"ledger", store.Path(),
		"telegram", opts.Telegram != nil,
		"sheets", appender != nil,
		"validate_signature", opts.Validator != nil)

	return srv.Run(ctx, server.RunConfig{
		Addr:            a.cfg.Server.Addr(),
		ReadTimeout:     a.cfg.Server.ReadTimeout,
		WriteTimeout:    a.cfg.Server.WriteTimeout,
		ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
	})
}
