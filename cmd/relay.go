package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/go-openapi/swag"
	"github.com/korovkin/limiter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jake-scott/raki/internal/pkg/client"
	"github.com/jake-scott/raki/internal/pkg/logging"
	"github.com/jake-scott/raki/internal/pkg/models"
)

var _relayCmdOpts struct {
	server      string
	timeout     time.Duration
	output      string
	concurrency int

	// create
	kind         string
	pin          int
	activeLow    bool
	initialState string
	fault        bool

	// send
	ids []string
}

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Manage relays on a running server",
}

var relayListCmd = &cobra.Command{
	Use:   "list",
	Short: "List relays",
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		items, err := newClient().List(ctx)
		if err != nil {
			return err
		}

		return writeRelays(os.Stdout, items)
	},
}

var relayGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Query the state of a relay",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newClient().Get(context.Background(), args[0])
		if err != nil {
			return err
		}

		return writeRelays(os.Stdout, []models.Relay{r})
	},
}

var relayCreateCmd = &cobra.Command{
	Use:   "create <id>",
	Short: "Create a relay",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		req := models.RelayCreate{
			ID:           swag.String(args[0]),
			Kind:         swag.String(_relayCmdOpts.kind),
			ActiveLow:    _relayCmdOpts.activeLow,
			InitialState: _relayCmdOpts.initialState,
			Fault:        _relayCmdOpts.fault,
		}
		if cmd.Flags().Changed("pin") {
			req.Pin = swag.Int64(int64(_relayCmdOpts.pin))
		}

		r, err := newClient().Create(context.Background(), req)
		if err != nil {
			return err
		}

		return writeRelays(os.Stdout, []models.Relay{r})
	},
}

var relayDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete relays",
	Args:  cobra.MinimumNArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		for _, id := range args {
			if err := c.Delete(context.Background(), id); err != nil {
				return err
			}
		}

		return nil
	},
}

var relaySendCmd = &cobra.Command{
	Use:   "send <command> [args...]",
	Short: "Send a command to one or more relays",
	Long: `Send a command to one or more relays, eg.

  raki relay send TOGGLE --id porch --id hall
  raki relay send SET on --id porch`,
	Args: cobra.MinimumNArgs(1),

	PreRunE: func(cmd *cobra.Command, args []string) error {
		if len(_relayCmdOpts.ids) == 0 {
			return errors.New("at least one --id is required")
		}
		return nil
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		c := models.Command{Type: swag.String(args[0]), Args: args[1:]}
		return doSend(newClient(), c, _relayCmdOpts.ids, viper.GetInt("client.concurrency"))
	},
}

func init() {
	relayCmd.PersistentFlags().StringVar(&_relayCmdOpts.server, "server", "http://localhost:5000", "URL of the raki server")
	relayCmd.PersistentFlags().DurationVar(&_relayCmdOpts.timeout, "timeout", time.Second*10, "maximum duration of one request, eg. 1m or 10s")
	relayCmd.PersistentFlags().StringVarP(&_relayCmdOpts.output, "output", "o", "table", "output format: table, json or yaml")

	errPanic(viper.GetViper().BindPFlag("client.server", relayCmd.PersistentFlags().Lookup("server")))
	errPanic(viper.GetViper().BindPFlag("client.timeout", relayCmd.PersistentFlags().Lookup("timeout")))
	errPanic(viper.GetViper().BindPFlag("client.output", relayCmd.PersistentFlags().Lookup("output")))

	relayCreateCmd.Flags().StringVar(&_relayCmdOpts.kind, "kind", "test", "relay kind: gpio or test")
	relayCreateCmd.Flags().IntVar(&_relayCmdOpts.pin, "pin", 0, "GPIO line number (gpio only)")
	relayCreateCmd.Flags().BoolVar(&_relayCmdOpts.activeLow, "active-low", false, "drive the line low for ON (gpio only)")
	relayCreateCmd.Flags().StringVar(&_relayCmdOpts.initialState, "initial-state", "", "OFF, ON or UNKNOWN (test only)")
	relayCreateCmd.Flags().BoolVar(&_relayCmdOpts.fault, "fault", false, "make every write fail (test only)")

	relaySendCmd.Flags().StringArrayVar(&_relayCmdOpts.ids, "id", nil, "relay to send to, may be repeated")
	relaySendCmd.Flags().IntVar(&_relayCmdOpts.concurrency, "concurrency", 4, "maximum requests in flight")
	errPanic(viper.GetViper().BindPFlag("client.concurrency", relaySendCmd.Flags().Lookup("concurrency")))

	relayCmd.AddCommand(relayListCmd, relayGetCmd, relayCreateCmd, relayDeleteCmd, relaySendCmd)
	rootCmd.AddCommand(relayCmd)
}

func newClient() *client.Live {
	return client.NewLiveClient(viper.GetString("client.server")).WithTimeout(viper.GetDuration("client.timeout"))
}

// relaySender is the part of the client doSend needs
type relaySender interface {
	Send(ctx context.Context, id string, cmd models.Command) (models.Relay, error)
}

type sendResult struct {
	ID    string `json:"id" yaml:"id"`
	State string `json:"state,omitempty" yaml:"state,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// doSend fans the command out to every relay, at most maxConcurrent at a time
func doSend(c relaySender, cmd models.Command, ids []string, maxConcurrent int) error {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	var mu sync.Mutex
	results := make([]sendResult, 0, len(ids))
	failed := 0

	limit := limiter.NewConcurrencyLimiter(maxConcurrent)
	for _, id := range ids {
		id := id
		limit.ExecuteWithTicket(func(ticket int) {
			logging.Logger(nil).Debugf("send-goroutine %d: %s to %s", ticket, *cmd.Type, id)

			res := sendResult{ID: id}
			r, err := c.Send(context.Background(), id, cmd)
			if err != nil {
				res.Error = err.Error()
			} else {
				res.State = swag.StringValue(r.State)
			}

			mu.Lock()
			results = append(results, res)
			if err != nil {
				failed++
			}
			mu.Unlock()
		})
	}
	limit.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].ID < results[j].ID
	})

	if err := writeOutput(os.Stdout, results, func(tw io.Writer) {
		fmt.Fprintln(tw, "ID\tSTATE\tERROR")
		for _, r := range results {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.State, r.Error)
		}
	}); err != nil {
		return err
	}

	if failed > 0 {
		return errors.Errorf("%d of %d relays failed", failed, len(ids))
	}
	return nil
}

func writeRelays(w io.Writer, items []models.Relay) error {
	return writeOutput(w, items, func(tw io.Writer) {
		fmt.Fprintln(tw, "ID\tKIND\tSTATE")
		for _, r := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", swag.StringValue(r.ID), r.Kind, swag.StringValue(r.State))
		}
	})
}

// writeOutput renders v in the configured output format, table rows come
// from the table callback
func writeOutput(w io.Writer, v interface{}, table func(tw io.Writer)) error {
	switch format := viper.GetString("client.output"); format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	default:
		return errors.Errorf("unknown output format [%s]", format)
	}
}
