package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/reup/internal/report"
	"github.com/ppiankov/reup/internal/store"
)

var runsLimit int

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent ingest runs",
	Long: `List the most recent ingest runs recorded in the database, newest first,
with the fetch path taken and whether the payload had to be repaired.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		mode, err := report.ParseMode(cfg.Output.Format)
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		runs, err := st.Runs(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), runsTable(runs, mode).String())
		return nil
	},
}

func runsTable(runs []store.Run, mode report.Mode) *report.Table {
	t := report.NewTable(mode)
	t.Header("Started", "Source", "Path", "Repaired", "Records", "Duration", "Error")
	t.AlignRight(5, 6)
	for _, r := range runs {
		t.Row(
			r.StartedAt.Local().Format(time.DateTime),
			r.Source,
			r.Path,
			r.Repaired,
			r.Records,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.Error,
		)
	}
	return t
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to show")
}
