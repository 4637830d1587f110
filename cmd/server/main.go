package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"chat-relay/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and owns the server lifecycle. Keeping the
// logic out of main ensures deferred cleanup executes before the process
// exits and keeps the entry point testable.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Moderation
	var filter runtime.ContentFilter
	if config.EnableModeration {
		maskChar, err := internal.MaskRune(config.MaskCharacter)
		if err != nil {
			return err
		}
		moderator, err := moderation.NewModerator(maskChar)
		if err != nil {
			return fmt.Errorf("building moderation automaton: %w", err)
		}
		filter = moderator
	}

	// 3. Core: registry, router, service facade
	registry := runtime.NewRegistry()
	router := runtime.NewRouter(log, registry, filter)
	chat := services.NewChatService(router, registry)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Transport endpoint. A port conflict aborts startup here; it is
	// the only process-fatal condition once configuration has loaded.
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := transport.NewServer(log, chat, address, config.MaxClients)
	if err := server.Listen(); err != nil {
		return err
	}

	console := workers.NewConsole(log, chat, os.Stdin, os.Stdout, stop)

	color.Green.Println("=================================")
	color.Green.Printf("Chat relay started on %s\n", server.Addr())
	color.Green.Printf("Max clients: %d\n", config.MaxClients)
	color.Green.Println("=================================")
	fmt.Println("Type 'help' for available commands or 'stop' to shutdown:")

	// 6. Supervised workers: acceptance loop + operator console
	sup := workers.NewSupervisor(log)
	done := make(chan struct{})
	go func() {
		sup.Add(server).Add(console).Run(ctx)
		close(done)
	}()

	// 7. Wait for Stop
	<-ctx.Done()
	log.Info("Shutting down gracefully...")

	// 8. Final cleanup, bounded by the shutdown timeout
	sup.Stop()
	select {
	case <-done:
		log.Info("Program stopped cleanly")
	case <-time.After(config.ShutdownTimeout):
		log.Warn("Shutdown timeout reached, exiting anyway")
	}
	return nil
}
