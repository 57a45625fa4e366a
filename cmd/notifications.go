package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli"
	"github.com/waqtapp/waqt/cmd/common"
	"github.com/waqtapp/waqt/internal/notify"
)

var (
	testNotifyFlags = []cli.Flag{
		cli.IntFlag{
			Name:  "delay, d",
			Usage: "seconds to wait before firing, 0 sends immediately",
		},
	}

	historyFlags = []cli.Flag{
		cli.IntFlag{
			Name:  "limit, n",
			Usage: "number of entries to show",
			Value: 20,
		},
	}

	pendingWidths = []int{30, 18, 24}
	historyWidths = []int{30, 18, 11, 24}
)

func pending(ctx *cli.Context) error {
	client, ok := newClient(ctx, "pending", nil)
	if !ok {
		return nil
	}
	defer client.Close()
	c, cancel := callCtx()
	defer cancel()

	res, err := client.Pending(c)
	if err != nil {
		common.PrintRuntimeErr(ctx, "pending", "list_pending", err)
		return nil
	}
	if len(res.Triggers) == 0 {
		fmt.Fprintln(stdout, "waqt: no reminders installed")
		return nil
	}
	fmt.Fprintln(stdout, common.Row(pendingWidths, "Reminder", "Fires", "Title"))
	fmt.Fprintln(stdout, common.Rule(pendingWidths))
	for _, p := range res.Triggers {
		title := p.Title
		if len(title) > pendingWidths[2]-2 {
			title = title[:pendingWidths[2]-5] + "..."
		}
		fmt.Fprintln(stdout, common.Row(pendingWidths, p.ID, p.FiresAt.Format("Jan 02 15:04"), title))
	}
	return nil
}

func history(ctx *cli.Context) error {
	limit := ctx.Int("limit")
	if limit <= 0 {
		return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("--limit must be positive"))
	}
	client, ok := newClient(ctx, "history", nil)
	if !ok {
		return nil
	}
	defer client.Close()
	c, cancel := callCtx()
	defer cancel()

	res, err := client.History(c, limit)
	if err != nil {
		common.PrintRuntimeErr(ctx, "history", "list_history", err)
		return nil
	}
	printHistory(stdout, res.Entries)
	return nil
}

func printHistory(w io.Writer, entries []notify.Fired) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "waqt: nothing has fired yet")
		return
	}
	fmt.Fprintln(w, common.Row(historyWidths, "Reminder", "Fired", "State", "Sinks"))
	fmt.Fprintln(w, common.Rule(historyWidths))
	for _, e := range entries {
		sinks := make([]string, 0, len(e.Deliveries))
		for _, a := range e.Deliveries {
			if a.Error != "" {
				sinks = append(sinks, a.Sink+"!")
				continue
			}
			sinks = append(sinks, a.Sink)
		}
		fmt.Fprintln(w, common.Row(historyWidths, e.ID, e.FiresAt.Format("Jan 02 15:04"), e.State, strings.Join(sinks, ",")))
	}
}

func rehydrate(ctx *cli.Context) error {
	client, ok := newClient(ctx, "rehydrate", nil)
	if !ok {
		return nil
	}
	defer client.Close()
	c, cancel := callCtx()
	defer cancel()

	res, err := client.Rehydrate(c)
	if err != nil {
		common.PrintRuntimeErr(ctx, "rehydrate", "rehydrate", err)
		return nil
	}
	fmt.Fprintf(stdout, "installed %d reminders\n", res.Installed)
	return nil
}

func testNotify(ctx *cli.Context) error {
	delay := time.Duration(ctx.Int("delay")) * time.Second
	if delay < 0 {
		return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("--delay must not be negative"))
	}
	client, ok := newClient(ctx, "test-notify", nil)
	if !ok {
		return nil
	}
	defer client.Close()
	c, cancel := callCtx()
	defer cancel()

	res, err := client.SendTest(c, delay)
	if err != nil {
		common.PrintRuntimeErr(ctx, "test-notify", "send", err)
		return nil
	}
	if res.Sent {
		fmt.Fprintln(stdout, "test notification sent")
		return nil
	}
	fmt.Fprintf(stdout, "test notification scheduled for %s\n", res.FiresAt.Format("15:04:05"))
	return nil
}
