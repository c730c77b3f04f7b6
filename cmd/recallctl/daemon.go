package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/events"
	"github.com/recallhq/recall/internal/factory"
	"github.com/recallhq/recall/internal/health"
	"github.com/recallhq/recall/internal/logger"
	"github.com/recallhq/recall/internal/scanner"
	"github.com/recallhq/recall/internal/searchindex"
)

// pingCheckers builds one checker per external dependency: the vector store
// and the embedding provider.
func pingCheckers(cfg *config.Config, log zerolog.Logger) ([]*health.PingChecker, error) {
	idx, err := searchindex.NewWeaviateIndex(cfg.StoreURL, cfg.IdeaIndex, searchindex.Policy(cfg.Policy()), log)
	if err != nil {
		return nil, err
	}
	storePinger, ok := idx.(health.Pinger)
	if !ok {
		return nil, fmt.Errorf("store index does not expose a health probe")
	}

	emb, err := factory.NewEmbeddingProvider(cfg, log)
	if err != nil {
		return nil, err
	}
	embPinger, ok := emb.(health.Pinger)
	if !ok {
		return nil, fmt.Errorf("embedding provider %q does not expose a health probe", cfg.EmbedProvider)
	}

	return []*health.PingChecker{
		health.NewPingChecker("store", storePinger, log),
		health.NewPingChecker("embedder", embPinger, log),
	}, nil
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Probe the vector store and embedding provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			checkers, err := pingCheckers(cfg, logger.New("recallctl"))
			if err != nil {
				return err
			}
			down := false
			for _, c := range checkers {
				if err := c.Check(cmd.Context()); err != nil {
					fmt.Printf("%-10s DOWN  %v\n", c.Name(), err)
					down = true
					continue
				}
				fmt.Printf("%-10s UP\n", c.Name())
			}
			if down {
				return fmt.Errorf("one or more components are down")
			}
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the reminder due-scan loop, printing reminders as they fire",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logger.New("recallctl")
			cfg, err := config.New()
			if err != nil {
				return err
			}

			svc, err := service(ctx)
			if err != nil {
				return err
			}

			interval, _ := cmd.Flags().GetDuration("interval")
			mark, _ := cmd.Flags().GetBool("mark")

			checkers, err := pingCheckers(cfg, log)
			if err != nil {
				return err
			}
			deps := make([]health.Checker, len(checkers))
			for i, c := range checkers {
				deps[i] = c
				go c.Start(ctx, interval)
			}
			go health.NewServiceHealthChecker(log, deps...).Start(ctx, interval)

			bus := events.NewBus(64)
			worker := scanner.NewWorker(svc, bus, scanner.Config{Interval: interval, MarkSent: mark}, log)
			go func() {
				if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
					log.Error().Err(err).Msg("scanner exited")
				}
			}()

			enc := json.NewEncoder(os.Stdout)
			due := bus.Subscribe()
			for {
				select {
				case <-ctx.Done():
					return nil
				case evt := <-due:
					if err := enc.Encode(evt); err != nil {
						return err
					}
				}
			}
		},
	}
	cmd.Flags().Duration("interval", 30*time.Second, "Scan and health-check interval")
	cmd.Flags().Bool("mark", false, "Mark reminders sent after printing")
	return cmd
}
