package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fxrate_go/internal/domain"
	"fxrate_go/internal/infra/export"
	"fxrate_go/internal/service"
	"fxrate_go/internal/stats"
)

func currencyArg(arg string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(arg))
	if !domain.IsSupported(code) {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownCurrency, arg)
	}
	return code, nil
}

func daysFlag(cmd *cobra.Command) (int, error) {
	days, _ := cmd.Flags().GetInt("days")
	if days == 0 {
		days = boot.Config.History.DefaultDays
	}
	if days < 1 {
		return 0, domain.ErrInvalidDays
	}
	return days, nil
}

// --- Rates Command ---

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Fetch and record current rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		origin := boot.Rates.Refresh(cmd.Context())
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), boot.Rates.GetAllData())
		}
		return writeRatesTable(cmd.OutOrStdout(), boot.Rates.GetAllData(), origin)
	},
}

// --- History Command ---

var historyCmd = &cobra.Command{
	Use:   "history [currency]",
	Short: "Show daily history for a currency",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := currencyArg(args[0])
		if err != nil {
			return err
		}
		days, err := daysFlag(cmd)
		if err != nil {
			return err
		}

		series := boot.History.GetHistoricalData(code, days)
		if window, _ := cmd.Flags().GetInt("ma"); window > 0 {
			return writeMovingAverage(cmd.OutOrStdout(), series, stats.MovingAverage(series, window), window)
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), series)
		}
		return writeSeriesTable(cmd.OutOrStdout(), series)
	},
}

// --- Stats Command ---

var statsCmd = &cobra.Command{
	Use:   "stats [currency]",
	Short: "Show statistics for a currency over a window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := currencyArg(args[0])
		if err != nil {
			return err
		}
		days, err := daysFlag(cmd)
		if err != nil {
			return err
		}

		snap := boot.Market.Snapshot(code, days)
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), snap.ToMap())
		}
		return writeSnapshot(cmd.OutOrStdout(), code, days, snap)
	},
}

// --- Volume Command ---

var volumeCmd = &cobra.Command{
	Use:   "volume [currency]",
	Short: "Show trading volume for a period (today, 7_days, 14_days, 1_month)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := currencyArg(args[0])
		if err != nil {
			return err
		}
		period, _ := cmd.Flags().GetString("period")

		series := boot.History.GetVolumeData(code, period)
		return writeVolume(cmd.OutOrStdout(), code, period, series, stats.Calculate(series))
	},
}

// --- Overview Command ---

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Rank every currency by change, volatility and volume",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, err := daysFlag(cmd)
		if err != nil {
			return err
		}
		ov, err := boot.Market.Overview(cmd.Context(), days)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), ov)
		}
		return writeOverview(cmd.OutOrStdout(), ov)
	},
}

// --- Compare Command ---

var compareCmd = &cobra.Command{
	Use:   "compare [currency...]",
	Short: "Compare percent change of several currencies",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, err := daysFlag(cmd)
		if err != nil {
			return err
		}
		codes := make([]string, len(args))
		for i, a := range args {
			codes[i] = strings.ToUpper(a)
		}

		lines, err := boot.Market.Compare(cmd.Context(), codes, days)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return fmt.Errorf("%w: none of %v", domain.ErrUnknownCurrency, args)
		}
		return writeComparison(cmd.OutOrStdout(), lines, days)
	},
}

// --- Convert Command ---

var convertCmd = &cobra.Command{
	Use:   "convert [amount] [from] [to]",
	Short: "Convert an amount between currencies at current rates",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := decimal.NewFromString(args[0])
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[0], err)
		}
		from, to := strings.ToUpper(args[1]), strings.ToUpper(args[2])

		origin := boot.Rates.Refresh(cmd.Context())
		result, err := boot.Rates.Converter().Convert(amount, from, to)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s %s (%s rates)\n",
			amount.String(), from, result.StringFixed(4), to, origin)
		return nil
	},
}

// --- Export Command ---

var exportCmd = &cobra.Command{
	Use:   "export [currency]",
	Short: "Export a currency's history to csv, json or parquet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := currencyArg(args[0])
		if err != nil {
			return err
		}
		days, err := daysFlag(cmd)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "" {
			format = boot.Config.Export.Format
		}
		dir, _ := cmd.Flags().GetString("out")
		if dir == "" {
			dir = boot.Config.Export.Dir
		}

		saver, err := export.SaverFor(format)
		if err != nil {
			return err
		}
		series := boot.History.GetHistoricalData(code, days)
		path, err := export.WriteSeries(saver, series, dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", series.Len(), path)
		return nil
	},
}

// --- Reset Command ---

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the local database and start empty",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("refusing to delete %s without --yes", boot.Store.Path())
		}
		if err := boot.Store.Reset(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Database reset: %s\n", boot.Store.Path())
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{historyCmd, statsCmd, overviewCmd, compareCmd, exportCmd} {
		c.Flags().Int("days", 0, "lookback window in days (default: history.default_days)")
	}
	for _, c := range []*cobra.Command{ratesCmd, historyCmd, statsCmd, overviewCmd} {
		c.Flags().Bool("json", false, "print JSON instead of a table")
	}
	historyCmd.Flags().Int("ma", 0, "print an N-day moving average instead of raw points")
	volumeCmd.Flags().String("period", service.PeriodSevenDays, "today, 7_days, 14_days or 1_month")
	exportCmd.Flags().String("format", "", "csv, json or parquet (default: export.format)")
	exportCmd.Flags().String("out", "", "output directory (default: export.dir)")
	resetCmd.Flags().Bool("yes", false, "confirm deletion")
}
