package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/waqtapp/waqt/cmd/common"
	"github.com/waqtapp/waqt/internal/api"
	"github.com/waqtapp/waqt/internal/server"
	"github.com/waqtapp/waqt/pkg/prayer"
	"github.com/waqtapp/waqt/pkg/waqtcli"
)

var (
	todayFlags = []cli.Flag{
		cli.StringFlag{
			Name:  "date, d",
			Usage: "calendar date as YYYY-MM-DD (default: today)",
		},
	}
	monthFlags = []cli.Flag{
		cli.StringFlag{
			Name:  "month, m",
			Usage: "month as YYYY-MM (default: this month)",
		},
	}
	nextFlags = []cli.Flag{
		cli.StringFlag{
			Name:  "at",
			Usage: "reference instant as RFC 3339 (default: now)",
		},
		cli.BoolFlag{
			Name:  "watch, w",
			Usage: "keep a live countdown on screen",
		},
	}

	dayWidths = []int{12, 8, 8, 8}
)

func today(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client, ok := newClient(ctx, "today", nil)
	if !ok {
		return nil
	}
	defer client.Close()
	c, cancel := callCtx()
	defer cancel()

	day, err := client.Today(c, ctx.String("date"))
	if err != nil {
		common.PrintRuntimeErr(ctx, "today", "get_schedule", err)
		return nil
	}
	printDay(stdout, day)
	return nil
}

func month(ctx *cli.Context) error {
	client, ok := newClient(ctx, "month", nil)
	if !ok {
		return nil
	}
	defer client.Close()
	c, cancel := callCtx()
	defer cancel()

	m, err := client.Month(c, ctx.String("month"))
	if err != nil {
		common.PrintRuntimeErr(ctx, "month", "get_schedule", err)
		return nil
	}
	printMonth(stdout, m)
	return nil
}

func next(ctx *cli.Context) error {
	var at time.Time
	if s := ctx.String("at"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("invalid --at %q: %w", s, err))
		}
		at = t
	}
	watch := ctx.Bool("watch")
	notes := &noteBox{}
	var onReminder func(server.ReminderNotification)
	if watch {
		onReminder = notes.set
	}
	client, ok := newClient(ctx, "next", onReminder)
	if !ok {
		return nil
	}
	defer client.Close()

	if watch {
		sctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := watchNext(sctx, client, notes); err != nil {
			common.PrintRuntimeErr(ctx, "next", "watch", err)
		}
		return nil
	}

	c, cancel := callCtx()
	defer cancel()
	n, err := client.Next(c, at)
	if err != nil {
		common.PrintRuntimeErr(ctx, "next", "get_next", err)
		return nil
	}
	printNext(stdout, n)
	return nil
}

// noteBox holds the latest pushed reminder for the countdown bar.
type noteBox struct {
	mu   sync.Mutex
	text string
}

func (b *noteBox) set(r server.ReminderNotification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = fmt.Sprintf("%s (%s)", r.Title, r.DeliveredAt.Format("15:04"))
}

func (b *noteBox) get() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// watchNext shows one countdown bar per upcoming prayer until ctx ends.
func watchNext(ctx context.Context, client *waqtcli.Client, notes *noteBox) error {
	p := mpb.NewWithContext(ctx, mpb.WithOutput(stdout), mpb.WithWidth(40))
	defer p.Wait()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		c, cancel := context.WithTimeout(ctx, callTimeout)
		n, err := client.Next(c, time.Time{})
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if n == nil {
			fmt.Fprintln(stdout, "no upcoming prayer")
			return nil
		}
		target := n.Item.AdjustedTime
		total := int64(time.Until(target) / time.Second)
		label := n.Item.Label + " " + clock(target)
		bar := common.InitCountdownBar(p, label, total,
			func() string { return prayer.Countdown(target, time.Now()) },
			notes.get)
		for !bar.Completed() {
			select {
			case <-ctx.Done():
				bar.Abort(false)
				return nil
			case <-ticker.C:
				left := int64(time.Until(target) / time.Second)
				if left < 0 {
					left = 0
				}
				bar.SetCurrent(max(total, 1) - left)
			}
		}
	}
}

func qibla(ctx *cli.Context) error {
	client, ok := newClient(ctx, "qibla", nil)
	if !ok {
		return nil
	}
	defer client.Close()
	c, cancel := callCtx()
	defer cancel()

	q, err := client.Qibla(c)
	if err != nil {
		common.PrintRuntimeErr(ctx, "qibla", "get_direction", err)
		return nil
	}
	fmt.Fprintf(stdout, "Qibla from %s: %.1f° (%s)\n", placeName(q.Location), q.Bearing, q.Compass)
	return nil
}

func printDay(w io.Writer, d *api.Day) {
	fmt.Fprintf(w, "Prayer times for %s at %s\n", d.Date, placeName(d.Location))
	fmt.Fprintf(w, "Method: %s, juristic: %s, sunrise %s\n\n", d.CalculationMethod, d.JuristicMethod, clock(d.Sunrise))
	fmt.Fprintln(w, common.Row(dayWidths, "Prayer", "Time", "Base", "Offset"))
	fmt.Fprintln(w, common.Rule(dayWidths))
	for _, it := range d.Schedule {
		fmt.Fprintln(w, common.Row(dayWidths, it.Label, clock(it.AdjustedTime), clock(it.BaseTime), signed(it.OffsetMinutes)))
	}
}

func printMonth(w io.Writer, m *api.Month) {
	widths := []int{12}
	header := []string{"Date"}
	for _, id := range prayer.Sequence {
		widths = append(widths, 9)
		header = append(header, id.Label())
	}
	fmt.Fprintf(w, "Prayer times for %s\n\n", m.Month)
	fmt.Fprintln(w, common.Row(widths, header...))
	fmt.Fprintln(w, common.Rule(widths))
	for _, d := range m.Days {
		cells := []string{d.Date}
		for _, it := range d.Schedule {
			cells = append(cells, clock(it.AdjustedTime))
		}
		fmt.Fprintln(w, common.Row(widths, cells...))
	}
}

func printNext(w io.Writer, n *api.Next) {
	if n == nil {
		fmt.Fprintln(w, "no upcoming prayer")
		return
	}
	when := clock(n.Item.AdjustedTime)
	if n.RolledToNextDay {
		when += " tomorrow"
	}
	fmt.Fprintf(w, "Next: %s at %s (in %s)\n", n.Item.Label, when, n.Countdown)
}

func clock(t time.Time) string {
	if t.IsZero() {
		return "--:--"
	}
	return t.Format("15:04")
}

func signed(minutes int) string {
	if minutes == 0 {
		return "0"
	}
	return fmt.Sprintf("%+d", minutes)
}

func placeName(c prayer.Coordinates) string {
	coords := fmt.Sprintf("%.4f, %.4f", c.Latitude, c.Longitude)
	if label := strings.TrimSpace(c.Label); label != "" {
		return label + " (" + coords + ")"
	}
	return coords
}
