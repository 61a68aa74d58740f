package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/probelab/fathom/internal/amount"
	"github.com/probelab/fathom/internal/config"
	"github.com/probelab/fathom/internal/fetch"
	"github.com/probelab/fathom/internal/page"
)

var (
	detectFrom     string
	detectTo       string
	detectFallback float64
)

var detectMinCmd = &cobra.Command{
	Use:   "detect-min <url>",
	Short: "Fetch a page and run the minimum-amount cascade on it",
	Long:  "Runs the static tiers of the minimum-amount cascade (HTML attributes, validation text) against a fetched page snapshot. The network tier needs a live response feed and stays off here.",
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

		res := newDetector(nil, cfg.Probe).DetectMinimum(cmd.Context(), p, detectFrom, detectTo, detectFallback)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(res), "detect: encode output")
	},
}

// newDetector maps the probe config section onto the detector's knobs.
func newDetector(stream page.ResponseStream, pc config.ProbeConfig) *amount.Detector {
	d := amount.NewDetector(stream)
	if pc.APIWindowSecs > 0 {
		d.APIWindow = time.Duration(pc.APIWindowSecs) * time.Second
	}
	if pc.SettleMillis > 0 {
		d.SettleDelay = time.Duration(pc.SettleMillis) * time.Millisecond
	}
	if pc.LadderMaxIterations > 0 {
		d.LadderMaxIterations = pc.LadderMaxIterations
	}
	if pc.CacheTTLHours > 0 {
		d.CacheTTL = time.Duration(pc.CacheTTLHours) * time.Hour
	}
	return d
}

func init() {
	detectMinCmd.Flags().StringVar(&detectFrom, "from", "BTC", "currency being sent")
	detectMinCmd.Flags().StringVar(&detectTo, "to", "USDT", "currency being received")
	detectMinCmd.Flags().Float64Var(&detectFallback, "fallback", 0.001, "amount to report when every probe comes up empty")
	rootCmd.AddCommand(detectMinCmd)
}
