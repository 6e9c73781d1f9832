package tuitest

import (
	"bytes"
	"io"
)

// queryReply pairs a terminal query the program may emit with the answer a
// real terminal would give.
type queryReply struct {
	query []byte
	reply []byte
}

// termenv and bubbletea query the cursor position and colors at startup and
// stall until they get an answer.
var queryReplies = []queryReply{
	{query: []byte("\x1b[6n"), reply: []byte("\x1b[1;1R")},
	{query: []byte("\x1b[c"), reply: []byte("\x1b[?62;22c")},
	{query: []byte("\x1b]10;?\x07"), reply: []byte("\x1b]10;rgb:cccc/cccc/cccc\x07")},
	{query: []byte("\x1b]10;?\x1b\\"), reply: []byte("\x1b]10;rgb:cccc/cccc/cccc\x1b\\")},
	{query: []byte("\x1b]11;?\x07"), reply: []byte("\x1b]11;rgb:0000/0000/0000\x07")},
	{query: []byte("\x1b]11;?\x1b\\"), reply: []byte("\x1b]11;rgb:0000/0000/0000\x1b\\")},
}

const (
	responderWindow = 256
	responderTail   = 64
)

type terminalResponder struct {
	w   io.Writer
	buf []byte
}

func newTerminalResponder(w io.Writer) *terminalResponder {
	return &terminalResponder{w: w, buf: make([]byte, 0, responderWindow)}
}

func (tr *terminalResponder) Process(chunk []byte) {
	tr.buf = append(tr.buf, chunk...)
	for tr.answerNext() {
	}
	// A query can straddle two reads.
	if len(tr.buf) > responderWindow {
		tr.buf = tr.buf[len(tr.buf)-responderTail:]
	}
}

// answerNext replies to the earliest pending query in the buffer.
func (tr *terminalResponder) answerNext() bool {
	first, at := -1, -1
	for idx, qr := range queryReplies {
		pos := bytes.Index(tr.buf, qr.query)
		if pos >= 0 && (at < 0 || pos < at) {
			first, at = idx, pos
		}
	}
	if first < 0 {
		return false
	}
	qr := queryReplies[first]
	tr.buf = tr.buf[at+len(qr.query):]
	_, _ = tr.w.Write(qr.reply)
	return true
}
