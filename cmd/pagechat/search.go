package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/csheth/pagechat/internal/config"
	"github.com/csheth/pagechat/internal/search"
)

func newSearchCmd(root *rootOptions) *cobra.Command {
	var (
		limit       int
		withContext bool
	)
	cmd := &cobra.Command{
		Use:   "search <file.pdf> <query...>",
		Short: "Print the lines of a PDF that contain a query",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			ctl, err := openDocument(cmd.Context(), cfg, args[0])
			if err != nil {
				return err
			}
			defer ctl.Close()

			query := strings.Join(args[1:], " ")
			text := ctl.State().Snapshot().Text
			var results []search.Result
			if limit > 0 {
				results = search.First(text.Full, query, limit)
			} else {
				results = search.Search(text.Full, query)
			}
			out := cmd.OutOrStdout()
			if len(results) == 0 {
				_, err := fmt.Fprintf(out, "No matches for %q.\n", query)
				return err
			}
			for _, result := range results {
				page := text.PageForLine(result.Line)
				if _, err := fmt.Fprintf(out, "page %d: %s\n", page, strings.TrimSpace(result.Match)); err != nil {
					return err
				}
				if !withContext {
					continue
				}
				for _, line := range strings.Split(result.Context, "\n") {
					if _, err := fmt.Fprintf(out, "    | %s\n", line); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "stop after this many matches (0 for all)")
	cmd.Flags().BoolVarP(&withContext, "context", "C", false, "print the lines around each match")
	return cmd
}
