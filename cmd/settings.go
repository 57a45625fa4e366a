package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli"
	"github.com/waqtapp/waqt/cmd/common"
	"github.com/waqtapp/waqt/internal/server"
	"github.com/waqtapp/waqt/pkg/prayer"
	"github.com/waqtapp/waqt/pkg/waqtcli"
)

var (
	locationFlags = []cli.Flag{
		cli.StringFlag{
			Name:  "label, l",
			Usage: "display name for the location",
		},
	}
	profileFlags = []cli.Flag{
		cli.StringFlag{
			Name:  "name",
			Usage: "profile name",
		},
		cli.StringFlag{
			Name:  "email",
			Usage: "profile email",
		},
	}
)

// withSettings runs call against the daemon and prints the settings it
// returns.
func withSettings(ctx *cli.Context, name, action string, call func(*waqtcli.Client) (*server.SettingsResult, error)) error {
	client, ok := newClient(ctx, name, nil)
	if !ok {
		return nil
	}
	defer client.Close()
	res, err := call(client)
	if err != nil {
		common.PrintRuntimeErr(ctx, name, action, err)
		return nil
	}
	printSettings(stdout, res)
	return nil
}

func showSettings(ctx *cli.Context) error {
	return withSettings(ctx, "settings", "get", func(c *waqtcli.Client) (*server.SettingsResult, error) {
		cctx, cancel := callCtx()
		defer cancel()
		return c.Settings(cctx)
	})
}

func setLocation(ctx *cli.Context) error {
	loc, err := parseLocation(ctx.Args(), ctx.String("label"))
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	return withSettings(ctx, "location", "set_location", func(c *waqtcli.Client) (*server.SettingsResult, error) {
		cctx, cancel := callCtx()
		defer cancel()
		return c.SetLocation(cctx, loc)
	})
}

func parseLocation(args []string, label string) (prayer.Coordinates, error) {
	if len(args) != 2 {
		return prayer.Coordinates{}, fmt.Errorf("expected <latitude> <longitude>, got %d arguments", len(args))
	}
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return prayer.Coordinates{}, fmt.Errorf("invalid latitude %q", args[0])
	}
	lng, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return prayer.Coordinates{}, fmt.Errorf("invalid longitude %q", args[1])
	}
	c := prayer.Coordinates{Latitude: lat, Longitude: lng, Label: label}
	return c, c.Validate()
}

func setMethod(ctx *cli.Context) error {
	method := ctx.Args().First()
	if method == "" {
		client, ok := newClient(ctx, "method", nil)
		if !ok {
			return nil
		}
		defer client.Close()
		cctx, cancel := callCtx()
		defer cancel()
		res, err := client.Settings(cctx)
		if err != nil {
			common.PrintRuntimeErr(ctx, "method", "get_methods", err)
			return nil
		}
		printMethods(stdout, res.Methods, res.Settings.CalculationMethod)
		return nil
	}
	return withSettings(ctx, "method", "set_method", func(c *waqtcli.Client) (*server.SettingsResult, error) {
		cctx, cancel := callCtx()
		defer cancel()
		return c.SetCalculationMethod(cctx, method)
	})
}

func setJuristic(ctx *cli.Context) error {
	method := ctx.Args().First()
	if method == "" {
		return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("missing juristic method"))
	}
	return withSettings(ctx, "juristic", "set_juristic", func(c *waqtcli.Client) (*server.SettingsResult, error) {
		cctx, cancel := callCtx()
		defer cancel()
		return c.SetJuristicMethod(cctx, method)
	})
}

func setOffset(ctx *cli.Context) error {
	id, minutes, err := parseOffset(ctx.Args())
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	return withSettings(ctx, "offset", "update_offset", func(c *waqtcli.Client) (*server.SettingsResult, error) {
		cctx, cancel := callCtx()
		defer cancel()
		return c.UpdateOffset(cctx, id, minutes)
	})
}

func parseOffset(raw []string) (string, int, error) {
	var args []string
	for _, a := range raw {
		if a != "--" {
			args = append(args, a)
		}
	}
	if len(args) != 2 {
		return "", 0, fmt.Errorf("expected <prayer> <minutes>, got %d arguments", len(args))
	}
	id, err := prayer.ParseID(args[0])
	if err != nil {
		return "", 0, err
	}
	minutes, err := strconv.Atoi(args[1])
	if err != nil {
		return "", 0, fmt.Errorf("invalid minutes %q", args[1])
	}
	return string(id), minutes, nil
}

func resetOffsets(ctx *cli.Context) error {
	return withSettings(ctx, "offset-reset", "reset_offsets", func(c *waqtcli.Client) (*server.SettingsResult, error) {
		cctx, cancel := callCtx()
		defer cancel()
		return c.ResetOffsets(cctx)
	})
}

func setProfile(ctx *cli.Context) error {
	name, email := ctx.String("name"), ctx.String("email")
	if name == "" && email == "" {
		return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("nothing to set: pass --name or --email"))
	}
	return withSettings(ctx, "profile", "set_profile", func(c *waqtcli.Client) (*server.SettingsResult, error) {
		cctx, cancel := callCtx()
		defer cancel()
		return c.SetProfile(cctx, name, email)
	})
}

func onboard(ctx *cli.Context) error {
	name, email := ctx.String("name"), ctx.String("email")
	return withSettings(ctx, "onboard", "complete_onboarding", func(c *waqtcli.Client) (*server.SettingsResult, error) {
		cctx, cancel := callCtx()
		defer cancel()
		if name != "" || email != "" {
			if _, err := c.SetProfile(cctx, name, email); err != nil {
				return nil, err
			}
		}
		return c.CompleteOnboarding(cctx)
	})
}

func printSettings(w io.Writer, res *server.SettingsResult) {
	s := res.Settings
	profile := s.Profile.Name
	if s.Profile.Email != "" {
		profile += " <" + s.Profile.Email + ">"
	}
	if strings.TrimSpace(profile) == "" {
		profile = "(not set)"
	}
	if s.Profile.UserID != "" {
		profile += ", synced as " + s.Profile.UserID
	}
	fmt.Fprintf(w, "Profile:     %s\n", profile)
	fmt.Fprintf(w, "Location:    %s\n", placeName(s.Location))
	fmt.Fprintf(w, "Method:      %s\n", s.CalculationMethod)
	fmt.Fprintf(w, "Juristic:    %s\n", s.JuristicMethod)
	fmt.Fprintf(w, "Onboarded:   %t\n", s.HasCompletedOnboarding)
	fmt.Fprintln(w, "Offsets:")
	for _, id := range prayer.Sequence {
		fmt.Fprintf(w, "  %-8s %s min\n", id, signed(s.PrayerOffsets[id]))
	}
}

func printMethods(w io.Writer, methods []prayer.Method, current prayer.CalculationMethod) {
	for _, m := range methods {
		mark := " "
		if m.ID == current {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %-20s %s\n", mark, m.ID, m.Label)
	}
}
