package workers

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/process"

	"chat-relay/services"
)

// Console is the operator command loop: status, help, stop.
// Input lines are pumped through a channel so the worker stays
// cancellable even though reads on the underlying stream block.
type Console struct {
	log     *slog.Logger
	chat    services.IChatService
	in      io.Reader
	out     io.Writer
	stop    context.CancelFunc
	started time.Time
}

func NewConsole(log *slog.Logger, chat services.IChatService, in io.Reader, out io.Writer, stop context.CancelFunc) *Console {
	return &Console{
		log:     log,
		chat:    chat,
		in:      in,
		out:     out,
		stop:    stop,
		started: time.Now(),
	}
}

func (c *Console) Run(ctx context.Context) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				c.log.Debug("Console input closed")
				return nil
			}
			c.dispatch(strings.ToLower(strings.TrimSpace(line)))
		}
	}
}

func (c *Console) dispatch(command string) {
	switch command {
	case "":
	case "status":
		c.printStatus()
	case "stop":
		fmt.Fprintln(c.out, "Stopping server...")
		c.stop()
	case "help":
		c.printHelp()
	default:
		fmt.Fprintf(c.out, "Unknown command: %s\n", command)
		c.printHelp()
	}
}

func (c *Console) printStatus() {
	count, names := c.chat.Status()

	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	table.Append([]string{"Connected clients", fmt.Sprintf("%d", count)})
	table.Append([]string{"Online users", strings.Join(names, ", ")})
	table.Append([]string{"Uptime", time.Since(c.started).Round(time.Second).String()})

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfo(); err == nil {
			table.Append([]string{"Resident memory", fmt.Sprintf("%d MiB", mem.RSS/1024/1024)})
		}
	}

	table.Render()
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, "Available commands:")
	fmt.Fprintln(c.out, "  status  - Show server status")
	fmt.Fprintln(c.out, "  stop    - Stop the server")
	fmt.Fprintln(c.out, "  help    - Show this help")
}
