package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/ncopendata/opibase/internal/catalog"
	"github.com/ncopendata/opibase/internal/config"
	"github.com/ncopendata/opibase/internal/engine"
	"github.com/ncopendata/opibase/internal/layout"
	"github.com/ncopendata/opibase/internal/sink"
	"github.com/ncopendata/opibase/internal/source"
)

var (
	configPath string
	dataDir    string
	outputPath string
	refID      string
	batchSize  int
	jobs       int
	reportPath string
	verbose    bool
)

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to HCL run configuration")
	rootCmd.Flags().StringVarP(&dataDir, "data", "d", "", "Directory holding {ID}/{ID}.des and {ID}/{ID}.dat")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "SQLite database to create (overwritten)")
	rootCmd.Flags().StringVarP(&refID, "reference", "r", "", "Reference (primary key) file id")
	rootCmd.Flags().IntVarP(&batchSize, "batch-size", "b", 0, "Rows per insert transaction")
	rootCmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Parallel dependent-file workers")
	rootCmd.Flags().StringVar(&reportPath, "report", "", "Write a JSON run report to this path")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every rejected record")
}

var rootCmd = &cobra.Command{
	Use:   "opibase",
	Short: "Build a relational SQLite database from the NC DAC offender flat files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		store := source.NewOSStore(cfg.DataDir)
		reg, dependents, err := buildRegistry(store, cfg)
		if err != nil {
			return err
		}

		_ = os.Remove(cfg.Database) // overwrite
		db, err := sink.OpenSQLite(cfg.Database)
		if err != nil {
			return err
		}

		eng := &engine.Engine{
			Registry:  reg,
			Store:     store,
			Sink:      db,
			BatchSize: cfg.BatchSize,
			Jobs:      cfg.Jobs,
		}
		if verbose {
			eng.Log = log.New(os.Stderr, "", log.LstdFlags)
		}

		start := time.Now()
		fmt.Printf("Building %s from %s...\n", cfg.Database, cfg.DataDir)
		report, err := eng.Run(context.Background(), cfg.Reference, dependents)
		if report != nil {
			printReport(report)
			if reportPath != "" {
				if werr := writeReport(reportPath, report); werr != nil {
					return werr
				}
			}
		}
		if err != nil {
			return err
		}
		if report.Fatal() {
			return fmt.Errorf("failed files: %v", report.Failed())
		}
		fmt.Printf("Done in %v.\n", time.Since(start).Round(time.Millisecond))
		return nil
	},
}

// loadConfig resolves the run configuration: file (if given) over
// defaults, then explicit flags over both.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("data") {
		cfg.DataDir = dataDir
	}
	if cmd.Flags().Changed("output") {
		cfg.Database = outputPath
	}
	if cmd.Flags().Changed("reference") {
		cfg.Reference = refID
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize = batchSize
	}
	if cmd.Flags().Changed("jobs") {
		cfg.Jobs = jobs
	}
	return cfg, cfg.Validate()
}

// buildRegistry parses every available descriptor, wires key fields,
// and returns the registry plus the dependent file ids in catalog
// order. The reference file must be present; dependents missing from
// the data directory are skipped.
func buildRegistry(store *source.Store, cfg *config.Config) (*layout.Registry, []string, error) {
	ids := cfg.Files
	if len(ids) == 0 {
		for _, f := range catalog.Files {
			ids = append(ids, f.ID)
		}
	}

	refLayout, refKey, err := parseLayout(store, cfg.Reference)
	if err != nil {
		return nil, nil, fmt.Errorf("reference file %s: %w", cfg.Reference, err)
	}
	if err := refLayout.WireKeys(refKey, nil); err != nil {
		return nil, nil, fmt.Errorf("reference file %s: %w", cfg.Reference, err)
	}
	layouts := []*layout.RecordLayout{refLayout}

	var dependents []string
	for _, id := range ids {
		if id == cfg.Reference {
			continue
		}
		if !store.Has(id) {
			fmt.Printf("Skipping %s: not present in %s\n", id, cfg.DataDir)
			continue
		}
		l, key, err := parseLayout(store, id)
		if err != nil {
			return nil, nil, fmt.Errorf("file %s: %w", id, err)
		}
		if err := l.WireKeys(key, &layout.Ref{FileID: cfg.Reference, Field: refKey}); err != nil {
			return nil, nil, fmt.Errorf("file %s: %w", id, err)
		}
		layouts = append(layouts, l)
		dependents = append(dependents, id)
	}

	reg, err := layout.NewRegistry(layouts...)
	if err != nil {
		return nil, nil, err
	}
	return reg, dependents, nil
}

// parseLayout reads and parses one file's descriptor and identifies
// its offender key field.
func parseLayout(store *source.Store, id string) (*layout.RecordLayout, string, error) {
	des, err := store.Descriptor(id)
	if err != nil {
		return nil, "", err
	}
	l, err := layout.ParseDES(id, des)
	if err != nil {
		return nil, "", err
	}
	key := catalog.KeyField(l.FieldNames())
	if key == "" {
		return nil, "", fmt.Errorf("no key field among %v", catalog.KeyCandidates)
	}
	return l, key, nil
}

func printReport(r *engine.Report) {
	files := append([]engine.Summary(nil), r.Files...)
	sort.Slice(files, func(i, j int) bool { return files[i].FileID < files[j].FileID })
	for _, s := range files {
		if s.Fatal() {
			fmt.Printf("%s -> %s: FAILED: %v\n", s.FileID, s.Table, s.Err)
			continue
		}
		fmt.Printf("%s -> %s: %s read, %s inserted, %s malformed, %s orphaned, %s truncated\n",
			s.FileID, s.Table,
			formatCount(s.RecordsRead), formatCount(s.Accepted),
			formatCount(s.RejectedMalformed), formatCount(s.RejectedOrphan),
			formatCount(s.Truncated))
	}
	fmt.Printf("Reference %s: %s keys\n", r.Reference, formatCount(r.Keys))
}

func writeReport(path string, r *engine.Report) error {
	out, err := oj.Marshal(r, 2)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// formatCount renders n with thousands separators, e.g. 1234567 ->
// "1,234,567".
func formatCount(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
