package cmd

const HELP_TEMPL = `Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}
{{.Description}}{{if .VisibleCommands}}
Commands:{{range .VisibleCategories}}{{if .Name}}

{{.Name}}:{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{else}}{{range .VisibleCommands}}
{{"\t"}}{{index .Names 0}}{{"\t:\t"}}{{.Usage}}{{end}}{{end}}{{end}}{{end}}{{if .VisibleFlags}}{{end}}

Use "{{.HelpName}} help <command>" for more information about any command.

`

const CMD_HELP_TEMPL = `{{if .Description}}{{.Description}}{{else}}{{.HelpName}} - {{.Usage}}

{{end}}Usage:
        {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[arguments...]{{end}}{{if .VisibleFlags}}

Supported Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

`

const DESCRIPTION = `
Waqt computes the five daily prayer times for your location and
delivers a reminder before each one. Reminders are scheduled by the
daemon ("waqt daemon"); every other command talks to it.
`

const TodayDescription = `Shows the prayer times of one calendar day,
with each prayer's computed time, any offset you applied, and
sunrise. Without --date the daemon's current day is used.
`

const NextDescription = `Shows the prayer that comes next. After Isha
the next prayer is tomorrow's Fajr. With --watch the countdown stays
on screen, moves on to the following prayer when it is reached, and
shows reminders as the daemon sends them.
`

const OffsetDescription = `Shifts a prayer's time by a number of minutes,
between -720 and 720. Use a negative number to move it earlier:

        waqt offset isha -5

Reminders are rescheduled right away.
`
