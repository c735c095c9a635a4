package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/TrevorS/imm"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "imm",
		Short:         "Bayesian nonparametric clustering with infinite mixture models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

type runFlags struct {
	configPath string
	dataPath   string
	outPath    string
	logLevel   string
	jsonLogs   bool
	quiet      bool

	sampler string
	seed    uint64
	maxIter int
	warmup  int
	chains  int
	workers int
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run MCMC on a CSV of points and write the trace as JSON",
		Example: `  imm run --data points.csv --out trace.json
  imm run --config run.yaml --data points.csv --out trace.json.zst --seed 7`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInference(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "YAML run file")
	fl.StringVar(&f.dataPath, "data", "", "CSV file with one point per row (required)")
	fl.StringVar(&f.outPath, "out", "trace.json", "trace output; a .zst suffix compresses it")
	fl.StringVar(&f.logLevel, "log-level", "warn", "debug, info, warn or error")
	fl.BoolVar(&f.jsonLogs, "json-logs", false, "log as JSON")
	fl.BoolVar(&f.quiet, "quiet", false, "hide the progress bar")
	fl.StringVar(&f.sampler, "sampler", "", "gibbs, rgms or slice (overrides the run file)")
	fl.Uint64Var(&f.seed, "seed", 0, "random seed (overrides the run file)")
	fl.IntVar(&f.maxIter, "max-iter", 0, "iterations (overrides the run file)")
	fl.IntVar(&f.warmup, "warmup", 0, "warmup iterations (overrides the run file)")
	fl.IntVar(&f.chains, "chains", 0, "independent chains (overrides the run file)")
	fl.IntVar(&f.workers, "workers", 0, "parallel workers (overrides the run file)")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func runInference(cmd *cobra.Command, f runFlags) error {
	rf, err := loadRunFile(f.configPath)
	if err != nil {
		return err
	}
	fl := cmd.Flags()
	if fl.Changed("sampler") {
		rf.Sampler = f.sampler
	}
	if fl.Changed("seed") {
		rf.Seed = f.seed
	}
	if fl.Changed("max-iter") {
		rf.MaxIter = f.maxIter
	}
	if fl.Changed("warmup") {
		rf.Warmup = &f.warmup
	}
	if fl.Changed("chains") {
		rf.Chains = f.chains
	}
	if fl.Changed("workers") {
		rf.Workers = f.workers
	}

	in, err := os.Open(f.dataPath)
	if err != nil {
		return err
	}
	x, err := readPoints(in)
	in.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", f.dataPath, err)
	}

	process, err := rf.Process.build()
	if err != nil {
		return err
	}
	mixture, err := rf.Mixture.build(x)
	if err != nil {
		return err
	}
	sampler, err := newSampler(rf.Sampler, process, mixture)
	if err != nil {
		return err
	}
	cfg, err := rf.config()
	if err != nil {
		return err
	}
	c, err := rf.initial(len(x))
	if err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(f.logLevel)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if f.jsonLogs {
		cfg.Logger = imm.NewJSONLogger(level)
	} else {
		cfg.Logger = imm.NewTextLogger(level)
	}

	var prog *progress
	if !f.quiet {
		prog = newProgress(max(rf.Chains, 1) * max(cfg.MaxIter, 0))
		cfg.Metrics = prog
	}

	var traces []*imm.Trace
	if rf.Chains <= 1 {
		var t *imm.Trace
		t, err = sampler.Infer(x, c, cfg)
		traces = []*imm.Trace{t}
	} else {
		traces, err = imm.RunChains(context.Background(), sampler, x, c, cfg, rf.Chains)
	}
	if prog != nil {
		prog.finish()
	}
	if err != nil {
		return err
	}

	for k, t := range traces {
		path := f.outPath
		if len(traces) > 1 {
			path = chainPath(path, k)
		}
		if err := writeTrace(path, t); err != nil {
			return err
		}
		last := t.Samples[t.Len()-1]
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d samples, seed %d, %d clusters in last sample\n",
			path, t.Len(), t.Seed, last.NumClusters())
	}
	return nil
}

func writeTrace(path string, t *imm.Trace) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.WriteJSON(out, strings.HasSuffix(path, ".zst")); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// chainPath inserts the chain index before the file extensions:
// trace.json.zst becomes trace.2.json.zst.
func chainPath(path string, k int) string {
	dir, base := filepath.Split(path)
	stem, ext, _ := strings.Cut(base, ".")
	if ext != "" {
		ext = "." + ext
	}
	return filepath.Join(dir, fmt.Sprintf("%s.%d%s", stem, k, ext))
}
