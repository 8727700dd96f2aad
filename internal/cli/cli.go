// Package cli implements planctl, the command line front end of the planner.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/mamadbah2/lineplan/internal/app"
	"github.com/mamadbah2/lineplan/internal/config"
	"github.com/mamadbah2/lineplan/internal/domain/models"
	"github.com/mamadbah2/lineplan/internal/service/optimization"
	"github.com/mamadbah2/lineplan/pkg/logger"
)

type rootOptions struct {
	envFile  string
	jsonOut  bool
	logLevel string
	opts     app.Options
}

// BuildCLI returns the planctl root command.
func BuildCLI() *cobra.Command {
	return buildCLI(app.Options{})
}

func buildCLI(opts app.Options) *cobra.Command {
	ro := &rootOptions{opts: opts}

	rootCmd := &cobra.Command{
		Use:   "planctl",
		Short: "Inspect and drive the production planner",
		Long: `planctl runs planning operations against the configured plant:
- metrics and reports
- automatic and targeted scheduling
- optimization what-if runs`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&ro.envFile, "env", "", "env file to load before reading the environment")
	rootCmd.PersistentFlags().BoolVar(&ro.jsonOut, "json", false, "print JSON instead of tables")
	rootCmd.PersistentFlags().StringVar(&ro.logLevel, "log-level", "warn", "log level")

	rootCmd.AddCommand(buildMetricsCommand(ro))
	rootCmd.AddCommand(buildScheduleCommand(ro))
	rootCmd.AddCommand(buildAutoScheduleCommand(ro))
	rootCmd.AddCommand(buildOptimizeCommand(ro))
	rootCmd.AddCommand(buildScanCommand(ro))

	return rootCmd
}

// withApp builds the application for one command and releases it afterwards.
func (ro *rootOptions) withApp(ctx context.Context, fn func(*app.App) error) (err error) {
	cfg, err := config.Load(ro.envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.New(ro.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, err := app.New(ctx, cfg, ro.opts, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err = multierr.Append(err, a.Close(closeCtx))
	}()

	return fn(a)
}

func (ro *rootOptions) printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func buildMetricsCommand(ro *rootOptions) *cobra.Command {
	var report bool

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show the current production metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ro.withApp(cmd.Context(), func(a *app.App) error {
				out := cmd.OutOrStdout()
				if report {
					r := a.Metrics.Report(cmd.Context())
					if ro.jsonOut {
						return ro.printJSON(out, r)
					}
					printMetrics(out, r.Metrics, r.Fallback)
					fmt.Fprintf(out, "\nRating: %s\n", r.Rating)
					for _, rec := range r.Recommendations {
						fmt.Fprintf(out, "- %s\n", rec)
					}
					return nil
				}

				snap := a.Metrics.Current(cmd.Context())
				if ro.jsonOut {
					return ro.printJSON(out, snap)
				}
				printMetrics(out, snap.Metrics, snap.Fallback)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&report, "report", false, "include order statistics and recommendations")
	return cmd
}

func printMetrics(w io.Writer, m models.ProductionMetrics, fallback bool) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Active lines\t%d\n", m.ActiveLines)
	fmt.Fprintf(tw, "Total capacity\t%.0f units/h\n", m.TotalCapacity)
	fmt.Fprintf(tw, "Efficiency\t%.1f%%\n", m.Efficiency*100)
	fmt.Fprintf(tw, "On-time delivery\t%.1f%%\n", m.OnTimeDelivery)
	fmt.Fprintf(tw, "Line utilization\t%.1f%%\n", m.LineUtilization)
	fmt.Fprintf(tw, "Throughput\t%d units/day\n", m.Throughput)
	fmt.Fprintf(tw, "Orders\t%d (%d critical, %d in progress, %d overdue)\n",
		m.TotalOrders, m.CriticalOrders, m.InProgressOrders, m.OverdueOrders)
	if fallback {
		fmt.Fprintf(tw, "Source\tdefaults (plant tables empty)\n")
	}
	_ = tw.Flush()
}

func buildScheduleCommand(ro *rootOptions) *cobra.Command {
	var (
		lineID string
		start  string
	)

	cmd := &cobra.Command{
		Use:   "schedule ORDER_ID",
		Short: "Schedule one order on the best line, or on --line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var at time.Time
			if start != "" {
				t, err := time.Parse(time.RFC3339, start)
				if err != nil {
					return fmt.Errorf("--start: %w", err)
				}
				at = t
			}
			if lineID == "" && start != "" {
				return fmt.Errorf("--start requires --line")
			}

			return ro.withApp(cmd.Context(), func(a *app.App) error {
				var (
					entry models.ScheduleEntry
					err   error
				)
				if lineID != "" {
					entry, err = a.Planning.ScheduleOrderOnLine(cmd.Context(), models.OrderID(args[0]), models.LineID(lineID), at)
				} else {
					entry, err = a.Planning.ScheduleOrder(cmd.Context(), models.OrderID(args[0]))
				}
				if err != nil {
					return err
				}
				if ro.jsonOut {
					return ro.printJSON(cmd.OutOrStdout(), entry)
				}
				printEntries(cmd.OutOrStdout(), []models.ScheduleEntry{entry})
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&lineID, "line", "", "book on this line instead of the best scoring one")
	cmd.Flags().StringVar(&start, "start", "", "RFC3339 start time (requires --line)")
	return cmd
}

func buildAutoScheduleCommand(ro *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "auto-schedule",
		Short: "Schedule pending orders by priority and due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ro.withApp(cmd.Context(), func(a *app.App) error {
				result := a.Planning.AutoSchedule(cmd.Context(), limit)
				out := cmd.OutOrStdout()
				if ro.jsonOut {
					return ro.printJSON(out, result)
				}
				fmt.Fprintf(out, "Scheduled %d order(s)\n", len(result.Scheduled))
				printEntries(out, result.Scheduled)
				for _, f := range result.Failures {
					fmt.Fprintf(out, "FAILED %s: %s\n", f.OrderID, f.Reason)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of orders to schedule (0 = all)")
	return cmd
}

func printEntries(w io.Writer, entries []models.ScheduleEntry) {
	if len(entries) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTRY\tORDER\tLINE\tSTART\tEND\tSTATUS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.OrderID, e.LineID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), e.Status)
	}
	_ = tw.Flush()
}

func buildOptimizeCommand(ro *rootOptions) *cobra.Command {
	var (
		w       models.OptimizationWeights
		rescale bool
		reset   bool
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Apply optimization weights to the baseline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ro.withApp(cmd.Context(), func(a *app.App) error {
				var (
					outcome optimization.Outcome
					err     error
				)
				if reset {
					outcome, err = a.Optimizer.Reset(cmd.Context())
				} else {
					outcome, err = a.Optimizer.Run(cmd.Context(), w, rescale)
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if ro.jsonOut {
					return ro.printJSON(out, outcome)
				}

				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "METRIC\tBASELINE\tRESULT")
				fmt.Fprintf(tw, "Efficiency\t%.1f%%\t%.1f%%\n", outcome.Baseline.Efficiency*100, outcome.Result.Efficiency*100)
				fmt.Fprintf(tw, "On-time delivery\t%.1f%%\t%.1f%%\n", outcome.Baseline.OnTimeDelivery, outcome.Result.OnTimeDelivery)
				fmt.Fprintf(tw, "Line utilization\t%.1f%%\t%.1f%%\n", outcome.Baseline.LineUtilization, outcome.Result.LineUtilization)
				fmt.Fprintf(tw, "Throughput\t%d\t%d\n", outcome.Baseline.Throughput, outcome.Result.Throughput)
				fmt.Fprintf(tw, "Overdue orders\t%d\t%d\n", outcome.Baseline.OverdueOrders, outcome.Result.OverdueOrders)
				_ = tw.Flush()
				fmt.Fprintf(out, "Overall improvement: %.1f%%, lines updated: %d\n", outcome.Overall, outcome.LinesUpdated)
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&w.MinimizeDelays, "minimize-delays", 0, "weight in [0,1]")
	cmd.Flags().Float64Var(&w.MaximizeEfficiency, "maximize-efficiency", 0, "weight in [0,1]")
	cmd.Flags().Float64Var(&w.BalanceWorkload, "balance-workload", 0, "weight in [0,1]")
	cmd.Flags().Float64Var(&w.MinimizeSetup, "minimize-setup", 0, "weight in [0,1]")
	cmd.Flags().BoolVar(&rescale, "rescale-lines", true, "rewrite active line efficiencies")
	cmd.Flags().BoolVar(&reset, "reset", false, "return to the baseline instead")
	return cmd
}

func buildScanCommand(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one reconciler scan and list anomalies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ro.withApp(cmd.Context(), func(a *app.App) error {
				anomalies, err := a.Reconciler.Scan(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if ro.jsonOut {
					return ro.printJSON(out, anomalies)
				}
				if len(anomalies) == 0 {
					fmt.Fprintln(out, "No anomalies")
					return nil
				}
				sort.SliceStable(anomalies, func(i, j int) bool { return anomalies[i].Subject() < anomalies[j].Subject() })
				for _, an := range anomalies {
					fmt.Fprintf(out, "%s\t%s\t%.1f\n", an.Kind, an.Subject(), an.Value)
				}
				return nil
			})
		},
	}
}
