package main

import (
	"fmt"

	"github.com/Veraticus/textledger/internal/cli"
	"github.com/Veraticus/textledger/internal/config"
	"github.com/Veraticus/textledger/internal/sheets"
	"github.com/spf13/cobra"
)

func (a *app) authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external services",
	}

	cmd.AddCommand(a.authSheetsCmd())

	return cmd
}

func (a *app) authSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Authenticate with Google Sheets",
		Long: `Authenticate with Google Sheets using OAuth2.

This command will:
1. Print a Google consent URL to open in your browser
2. Receive the authorization code on a local callback
3. Save the token and print the refresh token

Set GOOGLE_SHEETS_REFRESH_TOKEN to the printed value (together with the
client ID and secret) to export with OAuth2 instead of a service account.`,
		RunE: a.runAuthSheets,
	}

	cmd.Flags().String("client-id", "", "OAuth2 Client ID (overrides config)")
	cmd.Flags().String("client-secret", "", "OAuth2 Client Secret (overrides config)")
	cmd.Flags().String("callback", sheets.DefaultCallbackAddr, "host:port of the local OAuth2 callback")

	return cmd
}

func (a *app) runAuthSheets(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	oauth := sheets.OAuth2Config{
		ClientID:     a.cfg.Sheets.ClientID,
		ClientSecret: a.cfg.Sheets.ClientSecret,
		TokenFile:    config.TokenFile(a.v),
	}
	if id, _ := cmd.Flags().GetString("client-id"); id != "" {
		oauth.ClientID = id
	}
	if secret, _ := cmd.Flags().GetString("client-secret"); secret != "" {
		oauth.ClientSecret = secret
	}
	oauth.CallbackAddr, _ = cmd.Flags().GetString("callback")

	if oauth.ClientID == "" || oauth.ClientSecret == "" {
		return fmt.Errorf("google OAuth2 client ID and secret are required: set GOOGLE_SHEETS_CLIENT_ID and GOOGLE_SHEETS_CLIENT_SECRET or pass --client-id and --client-secret")
	}

	token, err := sheets.GetOrCreateToken(cmd.Context(), oauth, a.logger, func(authURL string) {
		_, _ = fmt.Fprintln(out, cli.FormatInfo("Open this URL in your browser to authorize textledger:"))
		_, _ = fmt.Fprintln(out, authURL)
	})
	if err != nil {
		return fmt.Errorf("google sheets authentication failed: %w", err)
	}

	_, _ = fmt.Fprintln(out, cli.FormatSuccess("Google Sheets authorized; token saved to "+oauth.TokenFile))
	_, _ = fmt.Fprintln(out, cli.RenderBox("Refresh token", token.RefreshToken+
		"\n\nexport GOOGLE_SHEETS_REFRESH_TOKEN=<the token above>"))
	return nil
}
