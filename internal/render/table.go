package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/HerbHall/hostsnap/internal/telemetry"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func (f *Formatter) renderTable(snap *telemetry.Snapshot) error {
	fmt.Fprintln(f.writer, titleStyle.Render("Host Snapshot"))
	fmt.Fprintln(f.writer, dimStyle.Render("sampled at "+snap.SampledAt.Format(time.RFC3339)))
	fmt.Fprintln(f.writer)

	var rows [][]string
	if snap.System != nil {
		rows = append(rows, []string{"OS", snap.System.OSDescription})
	}
	if c := snap.CPU; c != nil {
		rows = append(rows,
			[]string{"CPU", c.Name},
			[]string{"Logical cores", strconv.Itoa(c.CoreCount)},
			[]string{"CPU usage", formatPercent(c.Usage)},
		)
		if len(c.PerCoreUsage) > 0 {
			rows = append(rows, []string{"Per core", formatPerCore(c.PerCoreUsage)})
		}
	}
	if m := snap.Memory; m != nil {
		rows = append(rows,
			[]string{"Memory total", formatBytes(m.TotalPhysical)},
			[]string{"Memory used", formatBytes(m.UsedPhysical)},
			[]string{"Memory available", formatBytes(m.AvailablePhysical)},
		)
	}
	if len(rows) > 0 {
		fmt.Fprintln(f.writer, newTable([]string{"METRIC", "VALUE"}, rows))
	}

	if snap.ProcessError != "" {
		fmt.Fprintln(f.writer, warnStyle.Render("processes: "+snap.ProcessError))
		return nil
	}
	if snap.Processes == nil {
		return nil
	}
	procRows := make([][]string, 0, len(snap.Processes))
	for _, p := range snap.Processes {
		procRows = append(procRows, []string{
			strconv.Itoa(int(p.ProcessID)),
			p.Name,
			strconv.FormatFloat(p.CPUUsagePercent, 'f', 1, 64),
			strconv.FormatFloat(p.MemoryMB, 'f', 1, 64),
			strconv.FormatFloat(p.IOKBps, 'f', 1, 64),
			strconv.Itoa(p.ThreadCount),
		})
	}
	fmt.Fprintln(f.writer)
	fmt.Fprintln(f.writer, newTable([]string{"PID", "NAME", "CPU %", "MEM MB", "IO KB/s", "THREADS"}, procRows))
	return nil
}

func newTable(headers []string, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func formatPerCore(usage []float64) string {
	parts := make([]string, len(usage))
	for i, v := range usage {
		parts[i] = strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strings.Join(parts, " ")
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit && exp < 4; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTP"[exp])
}
