package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/zapponejosh/parish-api/internal/calendar"
)

// MonthCoverage summarises how complete one month of the calendar is.
type MonthCoverage struct {
	Month        string   `json:"month"`
	Days         int      `json:"days"`
	Stored       int      `json:"stored"`
	WithSaints   int      `json:"withSaints"`
	WithReadings int      `json:"withReadings"`
	Missing      []string `json:"missing,omitempty"`
}

func coverageCommand() *cli.Command {
	return &cli.Command{
		Name:  "coverage",
		Usage: "Report which days of a year have no saints or readings.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "year", Value: time.Now().Year()},
			&cli.StringFlag{Name: "o", Usage: "Write the report to a JSON file"},
		},
		Action: withEnv(func(ctx context.Context, e *env, c *cli.Context) error {
			svc := calendar.NewService(e.db, e.cfg.Location(), e.logger)
			year := c.Int("year")

			var report []MonthCoverage
			for m := time.January; m <= time.December; m++ {
				days, err := svc.ListMonth(ctx, year, m)
				if err != nil {
					return err
				}

				mc := MonthCoverage{
					Month: fmt.Sprintf("%d-%02d", year, m),
					Days:  time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day(),
				}
				complete := make(map[string]bool, len(days))
				for _, d := range days {
					mc.Stored++
					if len(d.Saints) > 0 {
						mc.WithSaints++
					}
					if len(d.Readings) > 0 {
						mc.WithReadings++
					}
					if len(d.Saints) > 0 && len(d.Readings) > 0 {
						complete[d.Date] = true
					}
				}
				for day := 1; day <= mc.Days; day++ {
					date := fmt.Sprintf("%d-%02d-%02d", year, m, day)
					if !complete[date] {
						mc.Missing = append(mc.Missing, date)
					}
				}
				report = append(report, mc)
			}

			total, missing := 0, 0
			fmt.Printf("%-8s %5s %7s %7s %9s %8s\n", "month", "days", "stored", "saints", "readings", "missing")
			for _, mc := range report {
				fmt.Printf("%-8s %5d %7d %7d %9d %8d\n",
					mc.Month, mc.Days, mc.Stored, mc.WithSaints, mc.WithReadings, len(mc.Missing))
				total += mc.Days
				missing += len(mc.Missing)
			}
			fmt.Printf("\n%d of %d day(s) have both saints and readings\n", total-missing, total)

			if path := c.String("o"); path != "" {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(path, data, 0644); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				fmt.Printf("report written to %s\n", path)
			}
			return nil
		}),
	}
}
