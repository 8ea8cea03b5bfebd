package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newProvidersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List configured LLM providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			models, err := buildRouter(cmd.Context(), opts, opts.logger())
			if err != nil {
				return err
			}
			infos := models.Providers()
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return writeJSON(out, infos)
			}
			table := newTable(out, "Provider", "Type", "Default model", "Models", "Default")
			for _, p := range infos {
				def := ""
				if p.Default {
					def = "*"
				}
				_ = table.Append([]string{p.Name, string(p.Type), p.DefaultModel, strings.Join(p.Models, ", "), def})
			}
			return table.Render()
		},
	}
}
