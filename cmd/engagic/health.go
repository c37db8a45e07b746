package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"

	"github.com/engagic/pipeline/pkg/config"
)

// runHealth prints the store's HealthStats rollup — city/meeting/queue
// counts and any cross-contamination findings (spec.md §4, supplemental
// cross-contamination check) — as a one-shot CLI report.
func runHealth(ctx context.Context, cfg *config.Config, _ []string) error {
	p, err := wire(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.store.Close() }()

	stats, err := p.store.HealthStats(ctx)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold)

	bold.Println("cities by status")
	for status, n := range stats.CitiesByStatus {
		fmt.Printf("  %-10s %d\n", status, n)
	}

	bold.Println("meetings by status")
	for status, n := range stats.MeetingsByStatus {
		fmt.Printf("  %-10s %d\n", status, n)
	}

	bold.Println("meetings by vendor")
	for vendor, n := range stats.MeetingsByVendor {
		fmt.Printf("  %-12s %d\n", vendor, n)
	}

	bold.Println("queue by status")
	for status, n := range stats.QueueByStatus {
		fmt.Printf("  %-10s %d\n", status, n)
	}

	if len(stats.ContaminatedCities) > 0 {
		color.Red("cross-contaminated cities:")
		for _, banana := range stats.ContaminatedCities {
			fmt.Printf("  %s\n", banana)
		}
	} else {
		color.Green("no cross-contamination detected")
	}

	return nil
}
