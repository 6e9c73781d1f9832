package main

import (
	"context"
	"time"

	"pkt.systems/pslog"

	"github.com/csheth/pagechat/internal/assistant"
	"github.com/csheth/pagechat/internal/chat"
	"github.com/csheth/pagechat/internal/config"
	"github.com/csheth/pagechat/internal/document"
	"github.com/csheth/pagechat/internal/session"
	"github.com/csheth/pagechat/internal/viewer"
)

func newViewer(cfg config.Config, state *session.State, logger pslog.Logger) (*viewer.Controller, error) {
	validation, err := document.ParseValidation(cfg.Document.Validation)
	if err != nil {
		return nil, err
	}
	opener := document.NewPDFOpener(document.PDFOptions{Validation: validation})
	return viewer.New(state, opener, viewer.Options{
		DefaultScale:   cfg.Viewer.DefaultScale,
		ZoomStep:       cfg.Viewer.ZoomStep,
		FitPadding:     cfg.Viewer.FitPadding,
		ExtractWorkers: cfg.Document.ExtractWorkers,
		Logger:         logger,
	}), nil
}

// newChat builds the chat controller. A zero delay means no typing pause.
func newChat(state *session.State, logger pslog.Logger, delay time.Duration) *chat.Controller {
	if delay == 0 {
		delay = -1
	}
	return chat.New(state, assistant.NewCanned(nil, ""), chat.Options{
		ReplyDelay: delay,
		Logger:     logger,
	})
}

// openDocument loads path and renders its first page for the one-shot
// subcommands.
func openDocument(ctx context.Context, cfg config.Config, path string) (*viewer.Controller, error) {
	ctl, err := newViewer(cfg, session.New(), pslog.Ctx(ctx))
	if err != nil {
		return nil, err
	}
	if err := ctl.OpenAndWait(ctx, path); err != nil {
		return nil, err
	}
	return ctl, nil
}
