package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/chirag127/TinyImage/internal/batch"
	"github.com/chirag127/TinyImage/internal/bus"
)

var (
	eventsURL     string
	eventsSubject string
	eventsJSON    bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Tail job events published by a running server",
	Args:  cobra.NoArgs,
	RunE:  runEvents,
}

func init() {
	defaultURL := os.Getenv("NATS_URL")
	if defaultURL == "" {
		defaultURL = nats.DefaultURL
	}
	f := eventsCmd.Flags()
	f.StringVar(&eventsURL, "nats-url", defaultURL, "NATS server URL")
	f.StringVar(&eventsSubject, "subject", bus.DefaultSubject, "subject prefix the server publishes under")
	f.BoolVar(&eventsJSON, "json", false, "print raw JSON events, one per line")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, _ []string) error {
	nc, err := bus.Connect(eventsURL)
	if err != nil {
		return err
	}
	defer nc.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logVerbose("subscribed to %s.> on %s", eventsSubject, eventsURL)
	enc := json.NewEncoder(os.Stdout)
	return bus.Subscribe(ctx, nc, eventsSubject, func(ev batch.Event) {
		if eventsJSON {
			_ = enc.Encode(ev)
			return
		}
		printEvent(ev)
	}, func(err error) {
		fmt.Fprintf(os.Stderr, "[tinyimage] warning: %v\n", err)
	})
}

func printEvent(ev batch.Event) {
	j := ev.Job
	line := fmt.Sprintf("%s  %s  %-10s  %s", ev.Timestamp.Format("15:04:05.000"), ev.SessionID[:min(8, len(ev.SessionID))], j.Status, j.Filename)
	switch j.Status {
	case batch.StatusCompleted:
		line += fmt.Sprintf("  %s → %s (%.1f%%)", formatBytes(j.OriginalSize), formatBytes(j.CompressedSize), j.CompressionRatio)
	case batch.StatusFailed:
		line += fmt.Sprintf("  [%s] %s", j.ErrorCode, j.Error)
	}
	fmt.Println(line)
}
