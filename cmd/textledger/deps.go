package main

import (
	"context"
	"fmt"

	"github.com/Veraticus/textledger/internal/config"
	"github.com/Veraticus/textledger/internal/engine"
	"github.com/Veraticus/textledger/internal/llm"
	"github.com/Veraticus/textledger/internal/service"
	"github.com/Veraticus/textledger/internal/sheets"
	"github.com/Veraticus/textledger/internal/storage"
)

// openStorage opens the ledger and brings its schema up to date.
func (a *app) openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(a.cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate ledger: %w", err)
	}
	return store, nil
}

// newClassifier builds the Gemini-backed classifier.
func (a *app) newClassifier(ctx context.Context) (*llm.Classifier, error) {
	gen, err := llm.NewGeminiGenerator(ctx, a.cfg.LLM, nil)
	if err != nil {
		return nil, err
	}

	a.logger.Info("using gemini model", "model", gen.Model())
	return llm.NewClassifier(a.cfg.LLM, gen, a.logger)
}

// newAppender returns nil when no spreadsheet is configured.
func (a *app) newAppender(ctx context.Context) (service.SheetAppender, error) {
	if !a.cfg.Sheets.Enabled() {
		a.logger.Info("google sheets export disabled: no spreadsheet id configured")
		return nil, nil
	}

	appender, err := sheets.NewAppender(ctx, a.cfg.Sheets, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up google sheets: %w", err)
	}
	return appender, nil
}

func engineConfig(cfg *config.Config) engine.Config {
	ec := engine.DefaultConfig()
	ec.AllowedSenders = cfg.Twilio.AllowedSenders
	ec.TelegramUserID = cfg.Telegram.UserID
	ec.MinConfidence = cfg.Sheets.MinConfidence
	return ec
}
