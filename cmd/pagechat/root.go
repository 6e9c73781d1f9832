package main

import (
	"errors"
	"fmt"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/csheth/pagechat/internal/config"
	"github.com/csheth/pagechat/internal/logx"
	"github.com/csheth/pagechat/internal/session"
	"github.com/csheth/pagechat/internal/tui"
)

type rootOptions struct {
	configPath  string
	noAltScreen bool
	noWatch     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "pagechat [file.pdf]",
		Short:         "Read a PDF in the terminal and chat about it",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var initial string
			if len(args) == 1 {
				initial = args[0]
			}
			return runTUI(cmd, opts, initial)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.toml (default $XDG_CONFIG_HOME/pagechat/config.toml)")
	root.Flags().BoolVar(&opts.noAltScreen, "no-alt-screen", false, "disable the alternate screen buffer")
	root.Flags().BoolVar(&opts.noWatch, "no-watch", false, "do not reload the document when it changes on disk")

	root.AddCommand(newSearchCmd(opts))
	root.AddCommand(newRenderCmd(opts))
	root.AddCommand(newAskCmd())
	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

func runTUI(cmd *cobra.Command, opts *rootOptions, initial string) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	// The program owns the terminal, so everything is logged to a file.
	logFile, err := logx.OpenFile(cfg.Log.Path)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := logx.New(logFile, cfg.Log.Level, true)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	logger.Info("pagechat starting", "config", opts.configPath, "document", initial)

	ctx := pslog.ContextWithLogger(cmd.Context(), logger)
	state := session.New()
	viewerCtl, err := newViewer(cfg, state, logger)
	if err != nil {
		return err
	}
	chatCtl := newChat(state, logger, cfg.Chat.ReplyDelay)

	var programOpts []tea.ProgramOption
	if cfg.UI.AltScreen && !opts.noAltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	programOpts = append(programOpts, tea.WithMouseCellMotion(), tea.WithContext(ctx))
	program := tea.NewProgram(tui.New(tui.Config{
		Viewer:        viewerCtl,
		Chat:          chatCtl,
		Logger:        logger,
		Context:       ctx,
		InitialPath:   initial,
		Watch:         cfg.Document.Watch && !opts.noWatch,
		WatchInterval: cfg.Document.WatchInterval,
	}), programOpts...)

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			logger.Info("pagechat interrupted")
			return nil
		}
		logger.Error("program exited", "err", err)
		return fmt.Errorf("run tui: %w", err)
	}
	logger.Info("pagechat stopped")
	return nil
}
