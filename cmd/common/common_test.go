package common

import (
	"errors"
	"flag"
	"testing"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
)

func newTestContext() *cli.Context {
	app := cli.NewApp()
	app.Name = "waqt"
	app.Version = "test"
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	ctx := cli.NewContext(app, set, nil)
	ctx.Command = cli.Command{Name: "cmd"}
	return ctx
}

func TestInitCountdownBar(t *testing.T) {
	p := mpb.New(mpb.WithOutput(nil))
	bar := InitCountdownBar(p, "Asr", 0, func() string { return "00:00:01" }, func() string { return "" })
	if bar == nil {
		t.Fatal("expected a bar")
	}
	bar.SetCurrent(1)
	p.Wait()
	if !bar.Completed() {
		t.Fatal("a one second bar should complete at 1")
	}
}

func TestBeautAndReplic(t *testing.T) {
	if got := Beaut("hi", 4); got != " hi " {
		t.Fatalf("unexpected beaut output: %q", got)
	}
	if got := Beaut("hi", 5); got != " hi  " {
		t.Fatalf("unexpected beaut output for odd padding: %q", got)
	}
	vals := replic('x', 3)
	if len(vals) != 3 || vals[0] != 'x' {
		t.Fatalf("unexpected replic output: %v", vals)
	}
	if len(replic('x', -2)) != 0 {
		t.Fatal("negative count should yield nothing")
	}
}

func TestRowAndRule(t *testing.T) {
	widths := []int{6, 4}
	if got := Row(widths, "Fajr", "+5"); got != "| Fajr | +5 |" {
		t.Fatalf("Row() = %q", got)
	}
	if got := Row(widths, "Isha"); got != "| Isha |    |" {
		t.Fatalf("Row() with missing cell = %q", got)
	}
	if got := Rule(widths); got != "|------|----|" {
		t.Fatalf("Rule() = %q", got)
	}
}

func TestPrintRuntimeErr(t *testing.T) {
	PrintRuntimeErr(nil, "cmd", "action", nil)
	PrintRuntimeErr(newTestContext(), "cmd", "action", errors.New("boom"))
}

func TestPrintErrWithHelp(t *testing.T) {
	ctx := newTestContext()
	called := false
	orig := showAppHelpAndExit
	showAppHelpAndExit = func(*cli.Context, int) {
		called = true
	}
	defer func() { showAppHelpAndExit = orig }()

	if err := PrintErrWithHelp(ctx, errors.New("oops")); err != nil {
		t.Fatalf("PrintErrWithHelp: %v", err)
	}
	if !called {
		t.Fatalf("expected help to be called")
	}

	called = false
	if err := PrintErrWithHelp(ctx, errors.New("flag: help requested")); err != nil {
		t.Fatalf("PrintErrWithHelp: %v", err)
	}
	if !called {
		t.Fatalf("help requested should show help")
	}
}

func TestPrintErrWithCmdHelp(t *testing.T) {
	ctx := newTestContext()
	called := false
	orig := showCommandHelp
	showCommandHelp = func(*cli.Context, string) error {
		called = true
		return errors.New("still printed")
	}
	defer func() { showCommandHelp = orig }()

	if err := PrintErrWithCmdHelp(ctx, errors.New("oops")); err != nil {
		t.Fatalf("PrintErrWithCmdHelp: %v", err)
	}
	if !called {
		t.Fatalf("expected command help to be called")
	}
	if err := PrintErrWithCmdHelp(ctx, nil); err != nil {
		t.Fatalf("nil error: %v", err)
	}
}

func TestUsageErrorCallback(t *testing.T) {
	ctx := newTestContext()
	origCmd, origApp := showCommandHelp, showAppHelpAndExit
	cmdHelp, appHelp := false, false
	showCommandHelp = func(*cli.Context, string) error { cmdHelp = true; return nil }
	showAppHelpAndExit = func(*cli.Context, int) { appHelp = true }
	defer func() { showCommandHelp, showAppHelpAndExit = origCmd, origApp }()

	if err := UsageErrorCallback(ctx, errors.New("oops"), false); err != nil || !cmdHelp {
		t.Fatalf("command usage error: %v %v", err, cmdHelp)
	}
	ctx.Command = cli.Command{}
	if err := UsageErrorCallback(ctx, errors.New("oops"), false); err != nil || !appHelp {
		t.Fatalf("app usage error: %v %v", err, appHelp)
	}
}

func TestHelp(t *testing.T) {
	ctx := newTestContext()
	called := false
	orig := showAppHelpAndExit
	showAppHelpAndExit = func(*cli.Context, int) {
		called = true
	}
	defer func() { showAppHelpAndExit = orig }()

	if err := Help(ctx); err != nil {
		t.Fatalf("Help: %v", err)
	}
	if !called {
		t.Fatalf("expected help to be called")
	}
}

func TestHelpWithCommandArg(t *testing.T) {
	app := cli.NewApp()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	_ = set.Parse([]string{"today"})
	ctx := cli.NewContext(app, set, nil)
	ctx.Command = cli.Command{Name: "help"}
	var asked string
	orig := showCommandHelp
	showCommandHelp = func(_ *cli.Context, name string) error {
		asked = name
		return nil
	}
	defer func() { showCommandHelp = orig }()

	if err := Help(ctx); err != nil {
		t.Fatalf("Help: %v", err)
	}
	if asked != "today" {
		t.Fatalf("expected help for today, got %q", asked)
	}

	showCommandHelp = func(*cli.Context, string) error { return errors.New("boom") }
	if err := Help(ctx); err == nil {
		t.Fatalf("expected error from Help")
	}
}

func TestGetVersion(t *testing.T) {
	old := VersionCmdStr
	VersionCmdStr = "waqt v1.2.3"
	defer func() { VersionCmdStr = old }()

	if err := GetVersion(newTestContext()); err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if err := PrintErrWithHelp(newTestContext(), errors.New("bad -v")); err != nil {
		t.Fatalf("PrintErrWithHelp: %v", err)
	}
}
