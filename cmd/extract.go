package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/probelab/fathom/internal/extract"
	"github.com/probelab/fathom/internal/fetch"
)

var extractCmd = &cobra.Command{
	Use:   "extract <url>",
	Short: "Fetch a page and run the address extraction cascade on it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := fetch.NewClient(fetch.Options{
			UserAgent:   cfg.Fetch.UserAgent,
			Timeout:     time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			RatePerHost: rate.Limit(cfg.Fetch.RatePerHost),
		})

		p, err := client.Page(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		// Static analysis has no response stream, so the network tier is off.
		res, found := extract.Address(p, nil)
		if !found {
			return eris.Errorf("extract: no address found on %s", args[0])
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(res), "extract: encode output")
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
