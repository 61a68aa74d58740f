package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/probelab/fathom/internal/learned"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect and transfer the learned selector store",
}

var patternsBestCmd = &cobra.Command{
	Use:   "best <domain> <field>",
	Short: "Print the best selectors for a domain and field",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		selectors, err := store.BestSelectors(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		for _, s := range selectors {
			fmt.Println(s)
		}
		return nil
	},
}

var universalMinRate float64

var patternsUniversalCmd = &cobra.Command{
	Use:   "universal <field>",
	Short: "Print cross-domain selector patterns for a field",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		patterns, err := store.UniversalPatterns(cmd.Context(), args[0], universalMinRate)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(patterns), "patterns: encode output")
	},
}

var patternsExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Dump the full pattern table to a yaml or json file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		patterns, err := store.Export(cmd.Context())
		if err != nil {
			return err
		}

		var raw []byte
		if strings.EqualFold(filepath.Ext(args[0]), ".json") {
			raw, err = json.MarshalIndent(patterns, "", "  ")
		} else {
			raw, err = yaml.Marshal(patterns)
		}
		if err != nil {
			return eris.Wrap(err, "patterns: marshal export")
		}
		return eris.Wrapf(os.WriteFile(args[0], raw, 0o644), "patterns: write %s", args[0])
	},
}

var patternsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Merge a pattern dump into the store, adding counts per key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "patterns: read %s", args[0])
		}

		var patterns []learned.Pattern
		if strings.EqualFold(filepath.Ext(args[0]), ".json") {
			err = json.Unmarshal(raw, &patterns)
		} else {
			err = yaml.Unmarshal(raw, &patterns)
		}
		if err != nil {
			return eris.Wrapf(err, "patterns: parse %s", args[0])
		}

		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Import(cmd.Context(), patterns); err != nil {
			return err
		}
		fmt.Printf("imported %d patterns\n", len(patterns))
		return nil
	},
}

var patternsReportCmd = &cobra.Command{
	Use:   "report <file.xlsx>",
	Short: "Write a per-field success summary spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		patterns, err := store.Export(cmd.Context())
		if err != nil {
			return err
		}
		return writeReport(args[0], patterns)
	},
}

// writeReport aggregates the dump per (field, selector) and writes one sheet.
func writeReport(path string, patterns []learned.Pattern) error {
	type key struct{ field, selector string }
	type agg struct{ success, fail, domains int }

	byKey := map[key]*agg{}
	domains := map[key]map[string]bool{}
	for _, p := range patterns {
		k := key{p.FieldName, p.Selector}
		if byKey[k] == nil {
			byKey[k] = &agg{}
			domains[k] = map[string]bool{}
		}
		byKey[k].success += p.SuccessCount
		byKey[k].fail += p.FailCount
		domains[k][p.Domain] = true
	}

	keys := make([]key, 0, len(byKey))
	for k := range byKey {
		byKey[k].domains = len(domains[k])
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].field != keys[j].field {
			return keys[i].field < keys[j].field
		}
		return byKey[keys[i]].success > byKey[keys[j]].success
	})

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("patterns")
	if err != nil {
		return eris.Wrap(err, "patterns: add report sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"field", "selector", "successes", "failures", "domains", "smoothed_rate"} {
		header.AddCell().Value = h
	}
	for _, k := range keys {
		a := byKey[k]
		row := sheet.AddRow()
		row.AddCell().Value = k.field
		row.AddCell().Value = k.selector
		row.AddCell().SetInt(a.success)
		row.AddCell().SetInt(a.fail)
		row.AddCell().SetInt(a.domains)
		row.AddCell().SetFloat(float64(a.success) / float64(a.success+a.fail+1))
	}

	return eris.Wrapf(file.Save(path), "patterns: save report %s", path)
}

func init() {
	patternsUniversalCmd.Flags().Float64Var(&universalMinRate, "min-rate", 0.5, "minimum Laplace-smoothed success rate")
	patternsCmd.AddCommand(patternsBestCmd, patternsUniversalCmd, patternsExportCmd, patternsImportCmd, patternsReportCmd)
	rootCmd.AddCommand(patternsCmd)
}
