package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	discountdomain "github.com/smallbiznis/menuya/internal/discount/domain"
	"github.com/smallbiznis/menuya/internal/realtime"
)

var (
	accent  = lipgloss.Color("#D97706")
	dim     = lipgloss.Color("#6B7280")
	success = lipgloss.Color("#22C55E")
	danger  = lipgloss.Color("#EF4444")
	warning = lipgloss.Color("#F59E0B")
	info    = lipgloss.Color("#8B949E")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	dimStyle   = lipgloss.NewStyle().Foreground(dim)
	passStyle  = lipgloss.NewStyle().Foreground(success)
	failStyle  = lipgloss.NewStyle().Foreground(danger)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2)

	bucketColors = map[realtime.Bucket]lipgloss.Color{
		realtime.BucketFree:            success,
		realtime.BucketOccupied:        info,
		realtime.BucketAwaitingOrder:   warning,
		realtime.BucketAwaitingPayment: danger,
	}
)

var bucketOrder = []realtime.Bucket{
	realtime.BucketFree,
	realtime.BucketOccupied,
	realtime.BucketAwaitingOrder,
	realtime.BucketAwaitingPayment,
}

// RenderTables renders the salon with one line per table and the bucket counts.
func RenderTables(view realtime.TablesView) string {
	var b strings.Builder

	counts := make([]string, 0, len(bucketOrder))
	for _, bucket := range bucketOrder {
		style := lipgloss.NewStyle().Foreground(bucketColors[bucket])
		counts = append(counts, style.Render(fmt.Sprintf("%s %d", bucket, view.Counts[bucket])))
	}
	b.WriteString(boxStyle.Render(titleStyle.Render("Tables") + "\n" + strings.Join(counts, dimStyle.Render("  ·  "))))
	b.WriteString("\n")

	if len(view.Tables) == 0 {
		b.WriteString("  " + dimStyle.Render("no tables yet") + "\n")
		return b.String()
	}

	for _, t := range view.Tables {
		style := lipgloss.NewStyle().Foreground(bucketColors[t.Bucket])
		line := fmt.Sprintf("  %s %-4d %s", style.Render("●"), t.Number, style.Render(string(t.Bucket)))
		var details []string
		if t.OrderState != "" {
			details = append(details, "order "+string(t.OrderState))
		}
		if t.AccountState != "" {
			details = append(details, "bill "+string(t.AccountState))
		}
		if len(details) > 0 {
			line += "  " + dimStyle.Render(strings.Join(details, ", "))
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// RenderDiscount renders a customer's current discount and game history.
func RenderDiscount(key string, current discountdomain.Current, results []discountdomain.GameResult) string {
	var b strings.Builder

	status := failStyle.Render("no discount")
	if current.HasDiscount {
		status = passStyle.Render(fmt.Sprintf("%d%% off the next bill", current.Percent))
	}
	b.WriteString(boxStyle.Render(titleStyle.Render(key) + "\n" + status))
	b.WriteString("\n")

	if len(results) == 0 {
		b.WriteString("  " + dimStyle.Render("no games played") + "\n")
		return b.String()
	}
	for _, r := range results {
		mark := dimStyle.Render("○")
		if r.WonFirstTry {
			mark = passStyle.Render("●")
		}
		b.WriteString(fmt.Sprintf("  %s %-12s %5d  %s\n", mark, r.Game, r.Score,
			dimStyle.Render(r.CreatedAt.Format("2006-01-02 15:04"))))
	}
	return b.String()
}
