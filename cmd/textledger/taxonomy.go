package main

import (
	"fmt"
	"strings"

	"github.com/Veraticus/textledger/internal/cli"
	"github.com/Veraticus/textledger/internal/model"
	"github.com/spf13/cobra"
)

type taxonomyEntry struct {
	Type       model.TransactionType `json:"type"`
	Label      string                `json:"label"`
	Categories []string              `json:"categories"`
}

func taxonomyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "List transaction types and their categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			entries := make([]taxonomyEntry, 0, len(model.TransactionTypes()))
			for _, t := range model.TransactionTypes() {
				entries = append(entries, taxonomyEntry{
					Type:       t,
					Label:      t.Label(),
					Categories: model.CategoriesFor(t),
				})
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{string(e.Type), strings.Join(e.Categories, ", ")})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatTitle("Taxonomy"))
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderTable([]string{"TYPE", "CATEGORIES"}, rows))
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "print the taxonomy as JSON")

	return cmd
}
