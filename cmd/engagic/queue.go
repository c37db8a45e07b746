package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/engagic/pipeline/pkg/config"
	"github.com/engagic/pipeline/pkg/models"
)

// runQueue dispatches the "queue stats" and "queue reset <status>"
// subcommands spec.md §6 names.
func runQueue(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: engagic queue <stats|reset STATUS>")
	}

	p, err := wire(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.store.Close() }()

	switch args[0] {
	case "stats":
		return runQueueStats(ctx, p)
	case "reset":
		if len(args) < 2 {
			return fmt.Errorf("usage: engagic queue reset STATUS")
		}
		return runQueueReset(ctx, p, models.QueueStatus(args[1]))
	default:
		return fmt.Errorf("unknown queue subcommand %q", args[0])
	}
}

func runQueueStats(ctx context.Context, p *pipeline) error {
	stats, err := p.queue.Stats(ctx)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)
	bold.Println("queue status counts")
	for _, status := range []models.QueueStatus{
		models.QueueStatusPending,
		models.QueueStatusClaimed,
		models.QueueStatusCompleted,
		models.QueueStatusFailed,
	} {
		fmt.Printf("  %-10s %d\n", status, stats[status])
	}
	return nil
}

func runQueueReset(ctx context.Context, p *pipeline, status models.QueueStatus) error {
	n, err := p.queue.ResetStatus(ctx, status)
	if err != nil {
		return err
	}
	color.Green("reset %d %s job(s) to pending", n, status)
	return nil
}
