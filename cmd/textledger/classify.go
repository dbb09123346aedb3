package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Veraticus/textledger/internal/cli"
	"github.com/Veraticus/textledger/internal/engine"
	"github.com/Veraticus/textledger/internal/model"
	"github.com/Veraticus/textledger/internal/service"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func (a *app) classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [text]",
		Short: "Classify transaction text",
		Long: `Classify one transaction, or one per line of a file.

Results go through the same path as texted messages: they are recorded in
the ledger and, when confident enough, appended to the Google Sheet. Use
--dry-run to only print the classification.

Examples:
  textledger classify "mcdonalds, 12"
  textledger classify --file october.txt --concurrency 8
  cat messages.txt | textledger classify --file - --json`,
		RunE: a.runClassify,
	}

	cmd.Flags().StringP("file", "f", "", "read one message per line from a file (- for stdin)")
	cmd.Flags().Bool("json", false, "print results as JSON")
	cmd.Flags().Bool("dry-run", false, "classify only; do not record or export")
	cmd.Flags().Int("concurrency", 4, "messages classified at once with --file")

	return cmd
}

// classifyLine is one message's result as printed by classify.
type classifyLine struct {
	Result   *model.ClassificationResult `json:"result,omitempty"`
	Text     string                      `json:"text"`
	Error    string                      `json:"error,omitempty"`
	Exported bool                        `json:"exported"`
}

func (a *app) runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	file, _ := cmd.Flags().GetString("file")
	asJSON, _ := cmd.Flags().GetBool("json")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	if file == "" && len(args) == 0 {
		return errors.New("provide text to classify or --file")
	}
	if file != "" && len(args) > 0 {
		return errors.New("provide either text or --file, not both")
	}
	if concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1, got %d", concurrency)
	}

	if err := a.cfg.Validate(); err != nil {
		return err
	}

	classifier, err := a.newClassifier(ctx)
	if err != nil {
		return err
	}

	var (
		store    service.Storage
		appender service.SheetAppender
	)
	if !dryRun {
		ledger, err := a.openStorage(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = ledger.Close() }()
		store = ledger

		if appender, err = a.newAppender(ctx); err != nil {
			return err
		}
	}

	eng := engine.New(classifier, store, appender, engineConfig(a.cfg), a.logger)

	if file == "" {
		return classifyOne(ctx, cmd.OutOrStdout(), eng, strings.Join(args, " "), asJSON)
	}

	messages, err := readMessages(ctx, cmd.InOrStdin(), file)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return fmt.Errorf("no messages found in %s", file)
	}

	return classifyBatch(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), eng, messages, concurrency, asJSON)
}

func classifyOne(ctx context.Context, out io.Writer, eng *engine.Engine, text string, asJSON bool) error {
	line := process(ctx, eng, text)

	if asJSON {
		if err := writeJSON(out, line); err != nil {
			return err
		}
	} else if line.Error != "" {
		_, _ = fmt.Fprintln(out, cli.FormatError(line.Error))
	} else {
		_, _ = fmt.Fprintln(out, cli.FormatSuccess(eng.FormatReply(*line.Result, line.Exported)))
	}

	if line.Error != "" {
		return errors.New("classification failed")
	}
	return nil
}

func process(ctx context.Context, eng *engine.Engine, text string) classifyLine {
	outcome, err := eng.Process(ctx, model.InboundMessage{
		Channel: model.ChannelCLI,
		Sender:  "cli",
		Text:    text,
	})

	line := classifyLine{Text: text, Result: outcome.Result, Exported: outcome.Exported}
	if err != nil {
		line.Error = outcome.Reply
		if line.Error == "" {
			line.Error = err.Error()
		}
	}
	return line
}

func readMessages(ctx context.Context, stdin io.Reader, file string) ([]string, error) {
	input := stdin
	if file != "-" {
		f, err := os.Open(file) // #nosec G304 - user-provided input file
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", file, err)
		}
		defer func() { _ = f.Close() }()
		input = f
	}

	messages, err := cli.NewNonBlockingReader(input).ReadMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return messages, nil
}

// classifyBatch classifies messages on a bounded pool and prints results in
// input order.
func classifyBatch(ctx context.Context, out, progress io.Writer, eng *engine.Engine, messages []string, concurrency int, asJSON bool) error {
	interrupts := cli.NewInterruptHandler(progress)
	ctx, stop := interrupts.HandleInterrupts(ctx)
	defer stop()

	bar := cli.NewProgressBar(progress, len(messages))
	lines := make([]classifyLine, len(messages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, text := range messages {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lines[i] = process(gctx, eng, text)
			_ = bar.Add(1)
			return nil
		})
	}
	waitErr := g.Wait()
	_ = bar.Finish()

	// Messages skipped after an interrupt have no text.
	done := make([]classifyLine, 0, len(lines))
	failed := 0
	for _, line := range lines {
		if line.Text == "" {
			continue
		}
		if line.Error != "" {
			failed++
		}
		done = append(done, line)
	}

	if asJSON {
		if err := writeJSON(out, done); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintln(out, renderBatch(done))
		summary := fmt.Sprintf("%d classified, %d failed", len(done)-failed, failed)
		if failed > 0 {
			_, _ = fmt.Fprintln(out, cli.FormatWarning(summary))
		} else {
			_, _ = fmt.Fprintln(out, cli.FormatSuccess(summary))
		}
	}

	if interrupts.WasInterrupted() || errors.Is(waitErr, context.Canceled) {
		return fmt.Errorf("interrupted after %d of %d messages", len(done), len(messages))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d messages failed", failed, len(messages))
	}
	return nil
}

func renderBatch(lines []classifyLine) string {
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		if line.Result == nil {
			rows = append(rows, []string{line.Text, "-", "-", "-", "-", cli.ErrorStyle.Render(line.Error)})
			continue
		}
		exported := ""
		if line.Exported {
			exported = cli.SuccessIcon
		}
		rows = append(rows, []string{
			line.Text,
			string(line.Result.Type),
			line.Result.Data.Description,
			"$" + decimal.NewFromFloat(line.Result.Data.Amount).StringFixed(2),
			line.Result.Data.Category,
			cli.FormatPercent(line.Result.Confidence) + " " + exported,
		})
	}
	return cli.RenderTable([]string{"TEXT", "TYPE", "DESCRIPTION", "AMOUNT", "CATEGORY", "CONFIDENCE"}, rows)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}
