package main

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/probelab/fathom/internal/engine"
	"github.com/probelab/fathom/internal/fetch"
	"github.com/probelab/fathom/internal/form"
)

var classifyConcurrency int

// classification is the per-URL output of the classify command.
type classification struct {
	URL       string           `json:"url"`
	Signature engine.Signature `json:"signature"`
	Fields    []form.Field     `json:"fields,omitempty"`
	Error     string           `json:"error,omitempty"`
}

var classifyCmd = &cobra.Command{
	Use:   "classify <url>...",
	Short: "Fetch pages and report engine signature and field purposes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		classifier, err := newClassifier()
		if err != nil {
			return err
		}

		client := fetch.NewClient(fetch.Options{
			UserAgent:   cfg.Fetch.UserAgent,
			Timeout:     time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			RatePerHost: rate.Limit(cfg.Fetch.RatePerHost),
		})

		var (
			mu      sync.Mutex
			results []classification
		)

		g, gCtx := errgroup.WithContext(cmd.Context())
		g.SetLimit(classifyConcurrency)

		for _, u := range args {
			u := u
			g.Go(func() error {
				c := classification{URL: u}
				p, err := client.Page(gCtx, u)
				if err != nil {
					zap.L().Warn("classify: fetch failed", zap.String("url", u), zap.Error(err))
					c.Error = err.Error()
				} else {
					c.Signature = classifier.Classify(p)
					c.Fields = form.Analyze(p)
				}
				mu.Lock()
				results = append(results, c)
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(results), "classify: encode output")
	},
}

// newClassifier builds the engine classifier, honoring a configured
// indicators override file.
func newClassifier() (*engine.Classifier, error) {
	if cfg.Engine.IndicatorsFile == "" {
		return engine.New(), nil
	}
	indicators, err := engine.LoadIndicators(cfg.Engine.IndicatorsFile)
	if err != nil {
		return nil, err
	}
	return engine.NewWithIndicators(indicators), nil
}

func init() {
	classifyCmd.Flags().IntVar(&classifyConcurrency, "concurrency", 4, "max concurrent fetches")
	rootCmd.AddCommand(classifyCmd)
}
