package main

import (
	"context"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/pagechat/internal/document/pdftest"
	"github.com/csheth/pagechat/internal/tuitest"
)

func TestPagechatOpensAndChats(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	t.Parallel()

	binary := buildBinary(t, moduleDir(t))
	home := t.TempDir()
	doc := pdftest.Write(t, home, "brief.pdf", pdftest.Spec{Pages: []string{"Opening remarks", "Quarterly results"}})

	rec, err := tuitest.Run(context.Background(), tuitest.Config{
		Command: []string{binary, "--no-alt-screen", "--no-watch", doc},
		Dir:     home,
		Env: []string{
			"XDG_CONFIG_HOME=" + home,
			"XDG_STATE_HOME=" + home,
			"PAGECHAT_CHAT_REPLY_DELAY=0s",
		},
		Width:  120,
		Height: 32,
		Steps: []tuitest.Step{
			{WaitFor: "Page 1 of 2", Input: tuitest.KeyRight},
			{WaitFor: "Page 2 of 2", Input: []byte("1")},
			{WaitFor: "Assistant ", Delay: 100 * time.Millisecond, Input: []byte("q")},
		},
		Timeout: 20 * time.Second,
	})
	require.NoError(t, err)

	plain := rec.Plain()
	assert.Contains(t, plain, "PAGECHAT")
	assert.Contains(t, plain, "Quarterly")
	assert.Contains(t, plain, "Loaded brief.pdf (2 pages).")
	_, ok := rec.LastFrameContaining("Page 2 of 2")
	assert.True(t, ok, "no frame showed the second page")
}

func moduleDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	return filepath.Dir(file)
}

func buildBinary(t *testing.T, cmdDir string) string {
	t.Helper()
	name := "pagechat-integration"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	binPath := filepath.Join(t.TempDir(), name)
	cmd := exec.Command("go", "build", "-o", binPath, ".")
	cmd.Dir = cmdDir
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build CLI: %s", strings.TrimSpace(string(output)))
	return binPath
}
