package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	nostr "github.com/mintwatch/mintwatch"
	"github.com/mintwatch/mintwatch/audit"
	"github.com/mintwatch/mintwatch/config"
	"github.com/mintwatch/mintwatch/snapshot"
)

var rootCmd = &cobra.Command{
	Use:          "mintwatch",
	Short:        "watches a mint-audit service and posts status updates to nostr",
	SilenceUsage: true,
	RunE:         run,
}

// publisher adapts the nostr client to the poller.
type publisher struct {
	client *nostr.Client
	log    *slog.Logger
}

func (p publisher) Publish(ctx context.Context, message string) error {
	post, outcomes, err := p.client.PublishText(ctx, message)
	if err != nil {
		return err
	}

	for _, outcome := range outcomes {
		if outcome.Err != nil {
			p.log.Warn("relay refused post", "relay", outcome.URL, "err", outcome.Err)
		}
	}

	p.log.Debug("posted", "id", post.ID)
	return nil
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
		nostr.InfoLogger.SetOutput(os.Stderr)
		nostr.DebugLogger.SetOutput(os.Stderr)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	client := nostr.NewClient(cfg.Endpoints(), nostr.WithNoticeHandler(func(relay, message string) {
		log.Info("relay notice", "relay", relay, "message", message)
	}))

	pubkey, err := client.SetIdentity(cfg.PrivateKey)
	if err != nil {
		return err
	}
	log.Info("identity loaded", "pubkey", pubkey)

	connected := 0
	for _, outcome := range client.ConnectAll(ctx) {
		if outcome.Err != nil {
			log.Warn("relay unreachable", "relay", outcome.URL, "err", outcome.Err)
			continue
		}
		log.Info("relay connected", "relay", outcome.URL)
		connected++
	}
	if connected == 0 {
		return fmt.Errorf("none of the %d configured relays is reachable", len(cfg.Relays))
	}
	defer client.DisconnectAll()

	store, err := snapshot.Open(cfg.SnapshotPath)
	if err != nil {
		return err
	}
	defer store.Close()

	poller := audit.NewPoller(
		audit.NewClient(cfg.AuditURL),
		publisher{client: client, log: log},
		store,
		cfg.PollInterval,
		log,
	)

	err = poller.Run(ctx)
	if ctx.Err() != nil {
		log.Info("shutting down")
		return nil
	}
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
