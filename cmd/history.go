package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jake-scott/raki/internal/pkg/audit"
)

var _historyCmdOpts struct {
	relayID string
	limit   int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the relay command journal, newest first",
	Args:  cobra.NoArgs,

	PreRunE: func(cmd *cobra.Command, args []string) error {
		// server and relay bind these keys too, so bind only once selected
		errPanic(viper.GetViper().BindPFlag("audit.db", cmd.Flags().Lookup("audit-db")))
		errPanic(viper.GetViper().BindPFlag("client.output", cmd.Flags().Lookup("output")))

		return checkRequiredFlags("audit.db")
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		return doHistory(os.Stdout)
	},
}

func init() {
	historyCmd.Flags().StringVar(&_historyCmdOpts.relayID, "relay", "", "only show entries for this relay")
	historyCmd.Flags().IntVar(&_historyCmdOpts.limit, "limit", 50, "maximum number of entries")
	historyCmd.Flags().String("audit-db", "", "sqlite journal written by the server")
	historyCmd.Flags().StringP("output", "o", "table", "output format: table, json or yaml")

	rootCmd.AddCommand(historyCmd)
}

func doHistory(w io.Writer) error {
	ctx := context.Background()

	j, err := audit.Open(ctx, viper.GetString("audit.db"))
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.List(ctx, audit.Filter{RelayID: _historyCmdOpts.relayID, Limit: _historyCmdOpts.limit})
	if err != nil {
		return err
	}

	return writeOutput(w, entries, func(tw io.Writer) {
		fmt.Fprintln(tw, "TIME\tRELAY\tACTION\tCOMMAND\tSTATE\tSOURCE\tERROR")
		for _, e := range entries {
			cmd := strings.TrimSpace(e.Command + " " + strings.Join(e.Args, " "))
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s -> %s\t%s\t%s\n",
				e.CreatedAt.Local().Format(time.RFC3339), e.RelayID, e.Action, cmd,
				e.Previous, e.Current, e.Source, e.Error)
		}
	})
}
