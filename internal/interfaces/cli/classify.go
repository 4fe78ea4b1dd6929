package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/turtacn/ChemClassify/internal/config"
	"github.com/turtacn/ChemClassify/internal/engine"
	"github.com/turtacn/ChemClassify/internal/infrastructure/logging"
	"github.com/turtacn/ChemClassify/internal/infrastructure/metrics"
	"github.com/turtacn/ChemClassify/internal/rulespec"
	"github.com/turtacn/ChemClassify/pkg/errors"
	"github.com/turtacn/ChemClassify/pkg/types/classify"
)

type classifyFlags struct {
	rulesPath string
	inputPath string
	name      string
	workers   int

	aggregation string
	decay       float64
	threshold   float64
}

func newClassifyCommand(cfgPath *string) *cobra.Command {
	var flags classifyFlags

	cmd := &cobra.Command{
		Use:   "classify [SMILES...]",
		Short: "Classify structures and print results as JSON",
		Long: "Classify reads structures from positional SMILES arguments or from\n" +
			"an input file (one structure per line, optionally followed by a\n" +
			"name) and prints one JSON result per structure.  Parse failures\n" +
			"fail only their own line.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, args, *cfgPath, flags)
		},
	}

	cmd.Flags().StringVar(&flags.rulesPath, "rules", "", "path to the rule-set document")
	cmd.Flags().StringVar(&flags.inputPath, "input", "", "file with one SMILES per line, or - for stdin")
	cmd.Flags().StringVar(&flags.name, "name", "", "structure name for a single positional SMILES")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "batch worker count (0 = GOMAXPROCS)")
	cmd.Flags().StringVar(&flags.aggregation, "aggregation", "", "rule aggregation policy: max, any or all")
	cmd.Flags().Float64Var(&flags.decay, "decay", 0, "edge decay factor in (0,1]")
	cmd.Flags().Float64Var(&flags.threshold, "threshold", -1, "conflict confidence threshold in [0,1]")
	return cmd
}

func runClassify(cmd *cobra.Command, args []string, cfgPath string, flags classifyFlags) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	applyOverrides(cfg, flags)
	if cfg.Rules.Path == "" {
		return errors.InvalidParam("no rule-set document: pass --rules or set rules.path")
	}

	log, err := logging.NewLogger(logging.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return err
	}

	m := metrics.NewNopMetrics()
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		pm, err := metrics.NewPrometheusMetrics(reg)
		if err != nil {
			return err
		}
		m = pm
		go serveMetrics(cfg.Metrics.Listen, reg, log)
	}

	agg, err := classify.ParseRuleAggregation(cfg.Engine.Aggregation)
	if err != nil {
		return err
	}
	rs, err := rulespec.Load(cfg.Rules.Path)
	if err != nil {
		return err
	}
	classifier, err := engine.NewClassifier(rs,
		engine.WithAggregation(agg),
		engine.WithConflictThreshold(cfg.Engine.ConflictThreshold),
		engine.WithEdgeDecay(cfg.Engine.EdgeDecay),
		engine.WithLogger(log),
		engine.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	items, err := collectItems(args, flags)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return errors.InvalidParam("no structures: pass SMILES arguments or --input")
	}

	results, err := classifier.ClassifyBatch(cmd.Context(), items, cfg.Engine.BatchWorkers)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Error("structure failed",
				logging.String("name", r.Name),
				logging.Err(r.Err))
			continue
		}
		if err := enc.Encode(r.Result.ToDTO()); err != nil {
			return err
		}
	}
	if failed > 0 {
		return errors.New(errors.ErrCodeStructureInvalid, "some structures failed").
			WithDetail(fmt.Sprintf("failed=%d total=%d", failed, len(results)))
	}
	return nil
}

func applyOverrides(cfg *config.Config, flags classifyFlags) {
	if flags.rulesPath != "" {
		cfg.Rules.Path = flags.rulesPath
	}
	if flags.aggregation != "" {
		cfg.Engine.Aggregation = flags.aggregation
	}
	if flags.decay > 0 {
		cfg.Engine.EdgeDecay = flags.decay
	}
	if flags.threshold >= 0 {
		cfg.Engine.ConflictThreshold = flags.threshold
	}
	if flags.workers > 0 {
		cfg.Engine.BatchWorkers = flags.workers
	}
}

// collectItems merges positional SMILES and the optional input file.  Input
// lines are "SMILES" or "SMILES name with spaces"; blank lines and lines
// starting with # are skipped.
func collectItems(args []string, flags classifyFlags) ([]engine.BatchItem, error) {
	var items []engine.BatchItem
	for _, s := range args {
		name := ""
		if len(args) == 1 {
			name = flags.name
		}
		items = append(items, engine.BatchItem{Name: name, SMILES: s})
	}

	if flags.inputPath == "" {
		return items, nil
	}
	var in *os.File
	if flags.inputPath == "-" {
		in = os.Stdin
	} else {
		f, err := os.Open(flags.inputPath)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "failed to open input file").
				WithDetail("path=" + flags.inputPath)
		}
		defer f.Close()
		in = f
	}

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		smiles, name, _ := strings.Cut(line, " ")
		items = append(items, engine.BatchItem{
			Name:   strings.TrimSpace(name),
			SMILES: smiles,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "failed to read input file")
	}
	return items, nil
}

func serveMetrics(listen string, reg *prometheus.Registry, log logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(listen, mux); err != nil {
		log.Warn("metrics endpoint stopped", logging.Err(err))
	}
}
