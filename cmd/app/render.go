package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"fxrate_go/internal/domain"
	"fxrate_go/internal/service"
	"fxrate_go/internal/stats"
)

const dateLayout = "2006-01-02"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatVolume renders a volume in millions TWD; missing volume is "-".
func formatVolume(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.0fM", *v)
}

// formatRate keeps four significant decimals for sub-unit currencies.
func formatRate(r float64) string {
	if r < 0.01 {
		return fmt.Sprintf("%.6f", r)
	}
	return fmt.Sprintf("%.4f", r)
}

func sourceLabel(series domain.Series) string {
	if series.Generated {
		return "simulated"
	}
	return "stored"
}

func writeRatesTable(w io.Writer, lines []service.CurrentRate, origin domain.RateOrigin) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "CURRENCY\tRATE (TWD)\tCHANGE\tCHANGE %\tVOLUME\tLEVEL")
	gainers := 0
	for _, l := range lines {
		change, pct := "-", "-"
		if l.HasChange {
			change = fmt.Sprintf("%+.4f", l.Change)
			pct = fmt.Sprintf("%+.2f%%", l.ChangePercent)
			if l.Change > 0 {
				gainers++
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			l.Name, formatRate(l.Rate), change, pct, formatVolume(&l.Volume), l.Level)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d currencies, %d stronger vs TWD (%s rates)\n", len(lines), gainers, origin)
	return err
}

func writeSeriesTable(w io.Writer, series domain.Series) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "DATE\t%s RATE\tVOLUME\n", series.Currency)
	for _, p := range series.Points {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Timestamp.Format(dateLayout), formatRate(p.Rate), formatVolume(p.Volume))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d points (%s)\n", series.Len(), sourceLabel(series))
	return err
}

func writeMovingAverage(w io.Writer, series domain.Series, ma []float64, window int) error {
	if ma == nil {
		return fmt.Errorf("window %d does not fit %d points", window, series.Len())
	}
	tw := newTable(w)
	fmt.Fprintf(tw, "DATE\tRATE\tMA(%d)\n", window)
	offset := window - 1
	for i, avg := range ma {
		p := series.Points[i+offset]
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Timestamp.Format(dateLayout), formatRate(p.Rate), formatRate(avg))
	}
	return tw.Flush()
}

func writeSnapshot(w io.Writer, code string, days int, snap domain.StatisticsSnapshot) error {
	if !snap.HasData {
		_, err := fmt.Fprintf(w, "No data for %s\n", code)
		return err
	}
	tw := newTable(w)
	fmt.Fprintf(tw, "%s over %d days\t\n", domain.DisplayName(code), days)
	fmt.Fprintf(tw, "Current\t%s\n", formatRate(snap.Current))
	fmt.Fprintf(tw, "Change\t%+.4f (%+.2f%%)\n", snap.Change, snap.ChangePercent)
	fmt.Fprintf(tw, "Trend\t%s\n", snap.Trend)
	fmt.Fprintf(tw, "Min / Max\t%s / %s\n", formatRate(snap.Min), formatRate(snap.Max))
	fmt.Fprintf(tw, "Mean\t%s\n", formatRate(snap.Mean))
	fmt.Fprintf(tw, "Volatility\t%.4f\n", snap.Volatility)
	if v := snap.Volume; v != nil {
		fmt.Fprintf(tw, "Volume (current)\t%.0fM\n", v.Current)
		fmt.Fprintf(tw, "Volume (total / avg)\t%.0fM / %.0fM\n", v.Total, v.Avg)
		fmt.Fprintf(tw, "Volume trend\t%s (%+.1f%%)\n", v.Trend, v.ChangePercent)
	}
	return tw.Flush()
}

func writeVolume(w io.Writer, code, period string, series domain.Series, snap domain.StatisticsSnapshot) error {
	v := snap.Volume
	if v == nil {
		_, err := fmt.Fprintf(w, "No volume data for %s\n", code)
		return err
	}
	tw := newTable(w)
	fmt.Fprintf(tw, "%s volume, %s (%d days)\t\n", domain.DisplayName(code), period, service.PeriodDays(period))
	fmt.Fprintf(tw, "Current\t%.0fM\n", v.Current)
	fmt.Fprintf(tw, "Total\t%.0fM\n", v.Total)
	fmt.Fprintf(tw, "Average\t%.0fM\n", v.Avg)
	fmt.Fprintf(tw, "Max / Min\t%.0fM / %.0fM\n", v.Max, v.Min)
	fmt.Fprintf(tw, "Change\t%+.1f%% (%s)\n", v.ChangePercent, v.Trend)
	fmt.Fprintf(tw, "Level\t%s\n", stats.LevelOf(snap))
	fmt.Fprintf(tw, "Points\t%d (%s)\n", series.Len(), sourceLabel(series))
	return tw.Flush()
}

func writeOverview(w io.Writer, ov *service.MarketOverview) error {
	fmt.Fprintf(w, "Market overview, %d days: %d stronger, %d weaker vs TWD, avg change %+.2f%%\n\n",
		ov.Days, ov.Gainers, ov.Losers, ov.AvgChangePercent)

	tw := newTable(w)
	fmt.Fprintln(tw, "TOP GAINERS\t\tTOP LOSERS\t")
	for i := 0; i < len(ov.TopGainers) || i < len(ov.TopLosers); i++ {
		g, l := "\t", "\t"
		if i < len(ov.TopGainers) {
			g = fmt.Sprintf("%s\t%+.2f%%", ov.TopGainers[i].Currency, ov.TopGainers[i].Snapshot.ChangePercent)
		}
		if i < len(ov.TopLosers) {
			l = fmt.Sprintf("%s\t%+.2f%%", ov.TopLosers[i].Currency, ov.TopLosers[i].Snapshot.ChangePercent)
		}
		fmt.Fprintf(tw, "%s\t%s\n", g, l)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nVolatility ranking")
	tw = newTable(w)
	fmt.Fprintln(tw, "CURRENCY\tVOLATILITY\tCURRENT\tCHANGE %")
	for _, s := range ov.ByVolatility {
		fmt.Fprintf(tw, "%s\t%.4f\t%s\t%+.2f%%\n",
			s.Currency, s.Snapshot.Volatility, formatRate(s.Snapshot.Current), s.Snapshot.ChangePercent)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(ov.ByVolume) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nVolume ranking")
	tw = newTable(w)
	fmt.Fprintln(tw, "CURRENCY\tTOTAL\tAVG\tTREND")
	for _, s := range ov.ByVolume {
		v := s.Snapshot.Volume
		fmt.Fprintf(tw, "%s\t%.0fM\t%.0fM\t%+.1f%%\n", s.Currency, v.Total, v.Avg, v.ChangePercent)
	}
	return tw.Flush()
}

func writeComparison(w io.Writer, lines []service.ComparedSeries, days int) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "CURRENCY\tCHANGE OVER %dD\tVOLATILITY\tSOURCE\n", days)
	for _, l := range lines {
		last := 0.0
		if n := len(l.Normalized); n > 0 {
			last = l.Normalized[n-1]
		}
		fmt.Fprintf(tw, "%s\t%+.2f%%\t%.4f\t%s\n", l.Currency, last, l.Snapshot.Volatility, sourceLabel(l.Series))
	}
	return tw.Flush()
}
