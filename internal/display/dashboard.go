// Package display renders the terminal operator dashboard: a periodic,
// read-only view over the counter bundle (§3) and the recent-flows ring
// buffer (§12); it does not show the rate deriver's samples. It is a supplemented
// feature, not the out-of-scope settings/history REST API (spec §1) — there
// is no query language and no write path, only a refreshing snapshot view
// built the way the teacher's TUI lays out tview widgets.
package display

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"netflow-collector/internal/keyedstore"
	"netflow-collector/internal/resolver"
	"netflow-collector/internal/store"
)

// Dashboard is a single-screen tview application refreshed on a timer.
type Dashboard struct {
	app    *tview.Application
	recent *store.RingBuffer
	kv     *keyedstore.Store

	statsView *tview.TextView
	flowTable *tview.Table
	layout    *tview.Flex

	refresh time.Duration
}

// New builds a Dashboard over recent (the ring buffer fed by the pipeline)
// and kv (the counter bundle), refreshing every interval.
func New(recent *store.RingBuffer, kv *keyedstore.Store, interval time.Duration) *Dashboard {
	if interval <= 0 {
		interval = time.Second
	}

	d := &Dashboard{
		app:     tview.NewApplication(),
		recent:  recent,
		kv:      kv,
		refresh: interval,
	}

	d.statsView = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	d.statsView.SetBorder(true).SetTitle(" counters ")

	d.flowTable = tview.NewTable().
		SetFixed(1, 0).
		SetSelectable(false, false)
	d.flowTable.SetBorder(true).SetTitle(" recent flows ")

	d.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(d.statsView, 7, 0, false).
		AddItem(d.flowTable, 0, 1, false)

	d.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC || event.Rune() == 'q' {
			d.app.Stop()
			return nil
		}
		return event
	})

	return d
}

// Run blocks, repainting the dashboard until ctx is cancelled or the
// operator quits.
func (d *Dashboard) Run(ctx context.Context) error {
	d.renderHeaders()

	go func() {
		ticker := time.NewTicker(d.refresh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				d.app.Stop()
				return
			case <-ticker.C:
				d.app.QueueUpdateDraw(d.render)
			}
		}
	}()

	return d.app.SetRoot(d.layout, true).Run()
}

func (d *Dashboard) renderHeaders() {
	headers := []string{"age", "exporter", "direction", "src", "dst", "service", "proto", "bytes", "packets"}
	for col, h := range headers {
		d.flowTable.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false))
	}
}

func (d *Dashboard) render() {
	d.renderStats()
	d.renderFlows()
}

func (d *Dashboard) renderStats() {
	stats := d.recent.Stats()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	total, _ := d.kv.Get(ctx, "stats:total_bytes")
	inbound, _ := d.kv.Get(ctx, "stats:inbound_bytes")
	outbound, _ := d.kv.Get(ctx, "stats:outbound_bytes")
	devices, _ := d.kv.SCard(ctx, "devices")

	d.statsView.Clear()
	fmt.Fprintf(d.statsView, "[yellow]flows decoded[white]  %d  (v5=%d v9=%d)\n", stats.TotalFlows, stats.V5Flows, stats.V9Flows)
	fmt.Fprintf(d.statsView, "[yellow]total bytes[white]    %s\n", blank(total))
	fmt.Fprintf(d.statsView, "[yellow]inbound bytes[white]  %s\n", blank(inbound))
	fmt.Fprintf(d.statsView, "[yellow]outbound bytes[white] %s\n", blank(outbound))
	fmt.Fprintf(d.statsView, "[yellow]known devices[white]  %d\n", devices)
	fmt.Fprintf(d.statsView, "[gray]press q or ctrl-c to quit[white]\n")
}

func blank(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func (d *Dashboard) renderFlows() {
	flows := d.recent.Recent(200)
	rowCount := d.flowTable.GetRowCount()
	for r := 1; r < rowCount; r++ {
		d.flowTable.RemoveRow(1)
	}

	now := time.Now()
	for i, f := range flows {
		row := i + 1
		svc := resolver.GetServiceName(f.DstPort, f.Protocol)
		if svc == "" {
			svc = "-"
		}
		d.flowTable.SetCell(row, 0, tview.NewTableCell(now.Sub(f.ReceivedAt).Round(time.Second).String()))
		d.flowTable.SetCell(row, 1, tview.NewTableCell(f.ExporterIP.String()))
		d.flowTable.SetCell(row, 2, tview.NewTableCell(string(f.Direction)))
		d.flowTable.SetCell(row, 3, tview.NewTableCell(fmt.Sprintf("%s:%d", f.SrcAddr, f.SrcPort)))
		d.flowTable.SetCell(row, 4, tview.NewTableCell(fmt.Sprintf("%s:%d", f.DstAddr, f.DstPort)))
		d.flowTable.SetCell(row, 5, tview.NewTableCell(svc))
		d.flowTable.SetCell(row, 6, tview.NewTableCell(f.ProtocolName()))
		d.flowTable.SetCell(row, 7, tview.NewTableCell(fmt.Sprintf("%d", f.Bytes)))
		d.flowTable.SetCell(row, 8, tview.NewTableCell(fmt.Sprintf("%d", f.Packets)))
	}
}
