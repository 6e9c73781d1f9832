package main

import (
	"context"
	"log"
	"os"

	"pkt.systems/psi"
	"pkt.systems/pslog"

	"github.com/csheth/pagechat/internal/logx"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := logx.New(os.Stderr, os.Getenv("PAGECHAT_LOG_LEVEL"), false)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(os.Args[1:])
	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("pagechat command failed")
		return 1
	}
	return 0
}
