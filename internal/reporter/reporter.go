// Package reporter renders the end-of-session summary printed on shutdown.
package reporter

import (
	"fmt"
	"os"
	"time"

	"energy-flow-monitor-go/internal/logger"
	"energy-flow-monitor-go/internal/models"

	"github.com/jedib0t/go-pretty/v6/table"
)

// PrintSummary prints a per-kind table of session totals to stdout.
func PrintSummary(stats map[models.Kind]models.SessionStats, start, end time.Time) {
	logger.S().Infof("session ran from %s to %s (%s)",
		start.Format("2006-01-02 15:04:05"),
		end.Format("2006-01-02 15:04:05"),
		end.Sub(start).Round(time.Second))

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Session Summary")
	t.AppendHeader(table.Row{"Kind", "Ticks", "Generated", "Outgoing", "Loss", "Final Storage"})

	var ticks int64
	var generated, outgoing, loss float64
	for _, kind := range models.Kinds {
		st, ok := stats[kind]
		if !ok {
			continue
		}
		t.AppendRow(table.Row{kind, st.Ticks, fmtF(st.Generated), fmtF(st.Outgoing), fmtF(st.Loss), fmtF(st.Storage)})
		ticks = st.Ticks
		generated += st.Generated
		outgoing += st.Outgoing
		loss += st.Loss
	}
	t.AppendFooter(table.Row{"Total", ticks, fmtF(generated), fmtF(outgoing), fmtF(loss), ""})
	t.Render()
}

func fmtF(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
