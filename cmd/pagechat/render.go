package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"pkt.systems/pslog"

	"github.com/csheth/pagechat/internal/config"
)

const fallbackTerminalWidth = 100

func newRenderCmd(root *rootOptions) *cobra.Command {
	var (
		page  int
		scale float64
		fit   bool
	)
	cmd := &cobra.Command{
		Use:   "render <file.pdf>",
		Short: "Print one rasterized page of a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if page < 1 {
				return fmt.Errorf("--page must be at least 1, got %d", page)
			}
			if fit && cmd.Flags().Changed("scale") {
				return errors.New("--fit and --scale are mutually exclusive")
			}
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			ctl, err := openDocument(ctx, cfg, args[0])
			if err != nil {
				return err
			}
			defer ctl.Close()

			if page != 1 {
				if err := ctl.Await(ctx, ctl.GoToPage(page)); err != nil {
					return err
				}
			}
			switch {
			case fit:
				ctl.SetContainerWidth(terminalWidth())
				if err := ctl.Await(ctx, ctl.ToggleFitToWidth()); err != nil {
					return err
				}
			case cmd.Flags().Changed("scale"):
				if err := ctl.Await(ctx, ctl.SetScale(scale)); err != nil {
					return err
				}
			}

			snap := ctl.State().Snapshot()
			if snap.Notice != "" {
				pslog.Ctx(ctx).Warn(snap.Notice)
			}
			if snap.Page == nil {
				return errors.New("page was not rendered")
			}
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "Page %d of %d, zoom %.0f%%\n\n", snap.Page.Page, snap.PageCount(), snap.Page.Scale*100); err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, snap.Page.String())
			return err
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page to render")
	cmd.Flags().Float64VarP(&scale, "scale", "s", 1.0, "zoom factor between 0.5 and 3.0")
	cmd.Flags().BoolVar(&fit, "fit", false, "scale the page to the terminal width")
	return cmd
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackTerminalWidth
	}
	return width
}
