package workers

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"chat-relay/runtime"
	"chat-relay/services"
)

func newTestConsole(input string, stop context.CancelFunc) (*Console, *bytes.Buffer) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := runtime.NewRegistry()
	router := runtime.NewRouter(log, registry, nil)
	chat := services.NewChatService(router, registry)

	var out bytes.Buffer
	return NewConsole(log, chat, strings.NewReader(input), &out, stop), &out
}

func TestConsole_StatusAndHelp(t *testing.T) {
	req := require.New(t)
	console, out := newTestConsole("status\nhelp\n", func() {})

	// When the input stream drains, Run returns on its own
	err := console.Run(context.Background())

	req.NoError(err)
	req.Contains(out.String(), "Connected clients")
	req.Contains(out.String(), "Uptime")
	req.Contains(out.String(), "status  - Show server status")
}

func TestConsole_UnknownCommandShowsHelp(t *testing.T) {
	req := require.New(t)
	console, out := newTestConsole("frobnicate\n", func() {})

	req.NoError(console.Run(context.Background()))

	req.Contains(out.String(), "Unknown command: frobnicate")
	req.Contains(out.String(), "Available commands:")
}

func TestConsole_StopInvokesShutdown(t *testing.T) {
	req := require.New(t)
	stopped := make(chan struct{})
	console, out := newTestConsole("stop\n", func() { close(stopped) })

	go func() { _ = console.Run(context.Background()) }()

	select {
	case <-stopped:
		req.Contains(out.String(), "Stopping server...")
	case <-time.After(500 * time.Millisecond):
		req.Fail("stop command should invoke the shutdown trigger")
	}
}

func TestConsole_CancellationStopsRun(t *testing.T) {
	req := require.New(t)
	// A reader that never produces a line keeps the pump blocked
	console, _ := newTestConsole("", func() {})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = console.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		req.Fail("Run should return once the context is canceled")
	}
}
