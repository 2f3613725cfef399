/*
main.go - Operator command line for the attendance engine

COMMANDS:
  hours    Compute the derived times of one day's clock values
  rules    Print the effective work rules as YAML
  bulk     Run a bulk status transition against the configured database
  remind   Send reminders for an outstanding category and period

  Configuration comes from the same environment (and .env file) as the
  server; --rules overrides RULES_FILE.

EXAMPLES:
  attendctl hours --date 2024-03-31 --start 22:00 --end 07:00 --rest 60
  attendctl bulk --category attendance --from 2024-03-01 --to 2024-03-31 --status submitted --notify
  attendctl remind --category attendance --period 2024-03
*/
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/warp/attendance-engine/approval"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/factory"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/notify"
	"github.com/warp/attendance-engine/store"
	"github.com/warp/attendance-engine/worktime"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// options are the persistent flags shared by every command.
type options struct {
	envFile   string
	rulesFile string
}

func (o *options) load() (*config.Config, factory.Settings, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return nil, factory.Settings{}, err
	}
	if o.rulesFile != "" {
		cfg.Rules.File = o.rulesFile
	}
	settings, err := cfg.Settings()
	return cfg, settings, err
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "attendctl",
		Short:         "Attendance time computation and approval operations",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "environment file to load")
	cmd.PersistentFlags().StringVar(&opts.rulesFile, "rules", "", "work rules document (overrides RULES_FILE)")

	cmd.AddCommand(newHoursCmd(opts), newRulesCmd(opts), newBulkCmd(opts), newRemindCmd(opts))
	return cmd
}

// =============================================================================
// hours
// =============================================================================

func newHoursCmd(opts *options) *cobra.Command {
	var (
		date, start, end string
		rest             int
		asJSON           bool
	)
	cmd := &cobra.Command{
		Use:   "hours",
		Short: "Compute active, overtime, late-night and legal-holiday hours for one day",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, settings, err := opts.load()
			if err != nil {
				return err
			}

			day, err := generic.ParseDate(date, settings.Location)
			if err != nil {
				return err
			}
			entry := generic.RawEntry{Date: day, RestMinutes: rest}
			if start != "" {
				c, err := generic.ParseClockTime(start)
				if err != nil {
					return fmt.Errorf("--start: %w", err)
				}
				entry.Start = &c
			}
			if end != "" {
				c, err := generic.ParseClockTime(end)
				if err != nil {
					return fmt.Errorf("--end: %w", err)
				}
				entry.End = &c
			}

			times := worktime.NewEngine(settings.Rules).Compute(entry)
			return printTimes(cmd.OutOrStdout(), times, asJSON)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day of the entry (YYYY-MM-DD)")
	cmd.Flags().StringVar(&start, "start", "", "clock-in time (HH:MM)")
	cmd.Flags().StringVar(&end, "end", "", "clock-out time (HH:MM); at or before start means the next day")
	cmd.Flags().IntVar(&rest, "rest", 0, "rest minutes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func printTimes(w io.Writer, t worktime.DerivedTimes, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	}
	fmt.Fprintf(w, "active:        %s\n", t.ActiveHours)
	fmt.Fprintf(w, "overtime:      %s\n", t.OvertimeHours)
	fmt.Fprintf(w, "late night:    %s\n", t.LateNightOvertimeHours)
	fmt.Fprintf(w, "legal holiday: %s\n", t.LegalHolidayActiveHours)
	return nil
}

// =============================================================================
// rules
// =============================================================================

func newRulesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the effective work rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, settings, err := opts.load()
			if err != nil {
				return err
			}
			out, err := settings.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// =============================================================================
// bulk / remind (database commands)
// =============================================================================

// withService opens the configured store and builds the approval service.
func withService(ctx context.Context, opts *options, fn func(*approval.Service, factory.Settings) error) error {
	cfg, settings, err := opts.load()
	if err != nil {
		return err
	}
	level, _ := cfg.Level()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	backend, err := store.Open(ctx, cfg.Database, settings.Location)
	if err != nil {
		return err
	}
	defer backend.Close()

	dispatcher := notify.NewDispatcher(
		&notify.DirectoryResolver{Subjects: backend, Log: log},
		notify.NewSender(cfg.Notify.SlackToken, log),
		log,
	)
	service := approval.NewService(backend, worktime.NewEngine(settings.Rules), dispatcher, log)
	return fn(service, settings)
}

func newBulkCmd(opts *options) *cobra.Command {
	var (
		category, from, to, status, actor, message string
		subjects                                   []string
		notifyFlag                                 bool
	)
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Move every eligible record in a date range to a status",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := generic.ParseCategory(category)
			if err != nil {
				return err
			}
			return withService(cmd.Context(), opts, func(s *approval.Service, settings factory.Settings) error {
				f, err := generic.ParseDate(from, settings.Location)
				if err != nil {
					return err
				}
				t, err := generic.ParseDate(to, settings.Location)
				if err != nil {
					return err
				}
				r, err := generic.NewDateRange(f, t)
				if err != nil {
					return err
				}

				ids := make([]generic.SubjectID, len(subjects))
				for i, id := range subjects {
					ids[i] = generic.SubjectID(id)
				}

				result, err := s.BulkTransition(cmd.Context(), approval.BulkRequest{
					Category:   c,
					Range:      r,
					Target:     generic.Status(status),
					ActorID:    actor,
					SubjectIDs: ids,
					Notify:     notifyFlag,
					Message:    message,
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "updated %d record(s)\n", result.UpdatedCount)
				for _, k := range result.Updated {
					fmt.Fprintf(out, "  %s\n", k)
				}
				if n := result.Notification; n != nil {
					fmt.Fprintf(out, "notified %d of %d recipient(s)\n", n.Sent, n.Recipients)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "approval category")
	cmd.Flags().StringVar(&from, "from", "", "first day of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&status, "status", "", "target status code")
	cmd.Flags().StringVar(&actor, "actor", "", "actor id recorded in the audit trail")
	cmd.Flags().StringSliceVar(&subjects, "subject", nil, "limit to these subject ids (default: all)")
	cmd.Flags().BoolVar(&notifyFlag, "notify", false, "notify the updated subjects")
	cmd.Flags().StringVar(&message, "message", "", "notification text (default: a status message)")
	for _, f := range []string{"category", "from", "to", "status"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newRemindCmd(opts *options) *cobra.Command {
	var category, period string
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Remind subjects whose category is not yet submitted for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := generic.ParseCategory(category)
			if err != nil {
				return err
			}
			p, err := generic.ParsePeriod(period)
			if err != nil {
				return err
			}
			return withService(cmd.Context(), opts, func(s *approval.Service, _ factory.Settings) error {
				n, err := s.RemindOutstanding(cmd.Context(), c, p)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reminded %d subject(s)\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", string(generic.CategoryAttendance), "approval category")
	cmd.Flags().StringVar(&period, "period", "", "period (YYYY-MM)")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}
