package main

import (
	"fmt"
	"time"

	"github.com/Veraticus/textledger/internal/cli"
	"github.com/Veraticus/textledger/internal/model"
	"github.com/Veraticus/textledger/internal/service"
	"github.com/spf13/cobra"
)

func (a *app) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently processed messages",
		Long: `List ledger records, newest first.

Every inbound message is recorded, including ones that failed to classify
and ones from senders who are not allowed to log transactions.`,
		RunE: a.runHistory,
	}

	cmd.Flags().Int("limit", 20, "maximum records to show (0 for all)")
	cmd.Flags().String("channel", "", "only show one channel (sms, telegram, api, cli)")
	cmd.Flags().Duration("since", 0, "only show records received within this long (e.g. 72h)")
	cmd.Flags().Bool("json", false, "print records as JSON")

	return cmd
}

func (a *app) runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	limit, _ := cmd.Flags().GetInt("limit")
	channel, _ := cmd.Flags().GetString("channel")
	since, _ := cmd.Flags().GetDuration("since")
	asJSON, _ := cmd.Flags().GetBool("json")

	filter := service.RecordFilter{
		Channel: model.Channel(channel),
		Limit:   limit,
	}
	if since > 0 {
		cutoff := time.Now().Add(-since)
		filter.Since = &cutoff
	}

	store, err := a.openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.ListRecords(ctx, filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(out, records)
	}

	if len(records) == 0 {
		_, _ = fmt.Fprintln(out, cli.FormatInfo("No messages recorded yet"))
		return nil
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		amount, category := "-", "-"
		if r.Status == model.RecordClassified {
			amount = "$" + r.Amount.StringFixed(2)
			category = r.Category
		}
		exported := ""
		if r.Exported {
			exported = cli.SuccessIcon
		}
		rows = append(rows, []string{
			r.ReceivedAt.Local().Format("2006-01-02 15:04"),
			string(r.Channel),
			string(r.Status),
			r.RawText,
			amount,
			category,
			exported,
		})
	}
	_, _ = fmt.Fprintln(out, cli.RenderTable(
		[]string{"RECEIVED", "CHANNEL", "STATUS", "TEXT", "AMOUNT", "CATEGORY", "SHEET"}, rows))

	counts, err := store.CountByStatus(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("\n%d classified, %d failed, %d rejected in total",
		counts[model.RecordClassified], counts[model.RecordFailed], counts[model.RecordRejected])))

	return nil
}
