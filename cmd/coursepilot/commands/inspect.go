package commands

import (
	"fmt"
	"strings"

	"coursepilot/internal/components/telemetry"
	"coursepilot/internal/config"
	"coursepilot/internal/form"
	"coursepilot/internal/login"
	"coursepilot/internal/runner"

	"github.com/PuerkitoBio/goquery"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var inspectLogin bool

func init() {
	inspectCmd.Flags().BoolVar(&inspectLogin, "login", false, "Log in before fetching the page.")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <path> [-c config.yaml] [--login]",
	Short: "Prints every form on a portal page with its fields, to help write selectors and strategies.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return configError(err)
		}
		tel := telemetry.SlogAPI{}

		session, err := runner.NewSession(cfg, "", false, tel)
		if err != nil {
			return configError(err)
		}
		if inspectLogin {
			err = login.NewFlow(cfg.Site.Login.LoginConfig(), cfg.LoginCredentials(), session, tel).Login(ctx)
			if err != nil {
				return failure(err)
			}
		}

		res, doc, err := session.Fetch(ctx, args[0], "GET")
		if err != nil {
			return failure(err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (status %d)\n", res.Url, res.Status)

		forms := doc.Find("form")
		if forms.Length() == 0 {
			fmt.Fprintln(out, "no forms on this page")
			return nil
		}
		forms.Each(func(i int, sel *goquery.Selection) {
			located := form.FromSelection(sel)

			fmt.Fprintf(out, "\nform #%d: %s %s\n", i+1, located.Method, located.Target(res.Url))
			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.AppendHeader(table.Row{"Name", "Kind", "Values", "Filled"})

			filled := previewValues(located, cfg)
			for _, control := range form.Controls(sel) {
				t.AppendRow(table.Row{
					control.Name,
					control.Kind,
					strings.Join(control.Values, " | "),
					filled[control.Name],
				})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()
		})
		return nil
	},
}

// previewValues is what an evaluation run would submit for f, using the
// configured fill strategy.
func previewValues(f form.Form, cfg config.Config) map[string]string {
	return f.Build(cfg.Site.Evaluate.FillStrategy())
}
