package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/textledger/internal/cli"
	"github.com/Veraticus/textledger/internal/messaging"
	"github.com/spf13/cobra"
)

func (a *app) sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send an SMS from the Twilio number",
		Long: `Send a text message from TWILIO_NUMBER.

The recipient defaults to MY_NUMBER, which makes this a quick way to check
the Twilio credentials before pointing the webhook at the server.`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runSend,
	}

	cmd.Flags().String("to", "", "recipient number (default: MY_NUMBER)")

	return cmd
}

func (a *app) runSend(cmd *cobra.Command, args []string) error {
	to, _ := cmd.Flags().GetString("to")
	if to == "" {
		to = a.cfg.Twilio.ToNumber
	}

	sender, err := messaging.NewSMSSender(a.cfg.Twilio.AccountSID, a.cfg.Twilio.AuthToken, a.cfg.Twilio.FromNumber, a.logger)
	if err != nil {
		return err
	}

	sid, err := sender.Send(cmd.Context(), to, strings.Join(args, " "))
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Sent to %s (sid %s)", to, sid)))
	return nil
}
