package console

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/ironfoundry/forge/server"
)

func newTestConsole(t *testing.T) (*Console, *bytes.Buffer) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	conf := server.Config{Log: log}
	srv, err := conf.New()
	if err != nil {
		t.Fatalf("conf.New: %v", err)
	}
	var logBuf bytes.Buffer
	c := New(srv, slog.New(slog.NewTextHandler(&logBuf, nil)))
	return c, &logBuf
}

func TestExecuteStatusLogsSnapshot(t *testing.T) {
	c, logBuf := newTestConsole(t)
	if stop := c.execute("status"); stop {
		t.Fatal("status must not signal stop")
	}
	if !strings.Contains(logBuf.String(), "status") {
		t.Fatalf("expected a status log line, got %q", logBuf.String())
	}
}

func TestExecuteKickUnknownPlayerWarns(t *testing.T) {
	c, logBuf := newTestConsole(t)
	if stop := c.execute("kick nobody"); stop {
		t.Fatal("kick must not signal stop")
	}
	if !strings.Contains(logBuf.String(), "no such player online") {
		t.Fatalf("expected a warning about the missing player, got %q", logBuf.String())
	}
}

func TestExecuteKickWithoutNameErrors(t *testing.T) {
	c, logBuf := newTestConsole(t)
	c.execute("kick")
	if !strings.Contains(logBuf.String(), "usage: kick") {
		t.Fatalf("expected a usage error, got %q", logBuf.String())
	}
}

func TestExecuteStopSignalsAndClosesChannel(t *testing.T) {
	c, _ := newTestConsole(t)
	if stop := c.execute("stop"); !stop {
		t.Fatal("expected stop to signal true")
	}
	select {
	case <-c.Stopped():
	default:
		t.Fatal("expected Stopped() channel to be closed")
	}
}

func TestExecuteUnknownCommandErrors(t *testing.T) {
	c, logBuf := newTestConsole(t)
	c.execute("frobnicate")
	if !strings.Contains(logBuf.String(), "unknown command") {
		t.Fatalf("expected an unknown-command error, got %q", logBuf.String())
	}
}

func TestRunScannerStopsOnStopCommand(t *testing.T) {
	c, _ := newTestConsole(t)
	c.WithReader(strings.NewReader("status\nstop\n"))

	done := make(chan struct{})
	go func() { c.runScanner(context.Background()); close(done) }()

	select {
	case <-c.Stopped():
	case <-done:
		t.Fatal("scanner exited without executing stop")
	}
	<-done
}
