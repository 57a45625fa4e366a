package cmd

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/urfave/cli"
	"github.com/waqtapp/waqt/cmd/common"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

var (
	currentBuildArgs BuildArgs

	// stdout receives command output.
	stdout io.Writer = os.Stdout
)

func Execute(args []string, bArgs BuildArgs) error {
	currentBuildArgs = bArgs
	app := cli.App{
		Name:                  "waqt",
		HelpName:              "waqt",
		Usage:                 "Prayer times and reminders.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "waqt <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Commands: []cli.Command{
			{
				Name:   "daemon",
				Usage:  "run the reminder daemon in the foreground",
				Action: getDaemonAction(),
			},
			{
				Name:   "stop",
				Usage:  "stop the running daemon",
				Action: stopDaemon,
			},
			{
				Name:               "today",
				Aliases:            []string{"t"},
				Usage:              "show the prayer times of a day",
				Description:        TodayDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             today,
				Flags:              todayFlags,
			},
			{
				Name:               "month",
				Aliases:            []string{"m"},
				Usage:              "show the prayer times of a whole month",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             month,
				Flags:              monthFlags,
			},
			{
				Name:                   "next",
				Aliases:                []string{"n"},
				Usage:                  "show the upcoming prayer and a countdown",
				Description:            NextDescription,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				OnUsageError:           common.UsageErrorCallback,
				Action:                 next,
				Flags:                  nextFlags,
				UseShortOptionHandling: true,
			},
			{
				Name:   "qibla",
				Usage:  "show the qibla bearing from the configured location",
				Action: qibla,
			},
			{
				Name:   "pending",
				Usage:  "list the installed reminders",
				Action: pending,
			},
			{
				Name:               "history",
				Usage:              "list reminders that fired or were missed (failed sinks end in !)",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             history,
				Flags:              historyFlags,
			},
			{
				Name:   "rehydrate",
				Usage:  "recompute and reinstall reminders now",
				Action: rehydrate,
			},
			{
				Name:               "test-notify",
				Usage:              "send a test reminder",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             testNotify,
				Flags:              testNotifyFlags,
			},
			{
				Name:   "settings",
				Usage:  "show the current settings",
				Action: showSettings,
			},
			{
				Name:               "location",
				Usage:              "set the location prayer times are computed for",
				UsageText:          "<latitude> <longitude> [--label name]",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             setLocation,
				Flags:              locationFlags,
			},
			{
				Name:               "method",
				Usage:              "set the calculation method, or list them",
				UsageText:          "[METHOD]",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             setMethod,
			},
			{
				Name:               "juristic",
				Usage:              "set the Asr juristic method (STANDARD or HANAFI)",
				UsageText:          "<STANDARD|HANAFI>",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             setJuristic,
			},
			{
				Name:               "offset",
				Usage:              "shift one prayer by a number of minutes",
				UsageText:          "<prayer> <minutes>",
				Description:        OffsetDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             setOffset,
			},
			{
				Name:   "offset-reset",
				Usage:  "clear every prayer offset",
				Action: resetOffsets,
			},
			{
				Name:               "profile",
				Usage:              "set the profile name and email",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             setProfile,
				Flags:              profileFlags,
			},
			{
				Name:               "onboard",
				Usage:              "finish first-run setup and register the profile",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             onboard,
				Flags:              profileFlags,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of waqt",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		Action:      today,
		Flags:       todayFlags,
		HideHelp:    true,
		HideVersion: true,
	}
	app.Commands = append(app.Commands, getPlatformCommands()...)
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}
