// Package check runs one architecture check end to end: import, evaluate,
// write the report and gate.
package check

import (
	"context"

	"go.uber.org/zap"

	"github.com/phobologic/archcheck/internal/archrules"
	"github.com/phobologic/archcheck/internal/config"
	"github.com/phobologic/archcheck/internal/importer"
	"github.com/phobologic/archcheck/internal/model"
	"github.com/phobologic/archcheck/internal/report"
	"github.com/phobologic/archcheck/internal/rule"
)

// Options configures a run.
type Options struct {
	// Paths are the artifact locations, in class path order.
	Paths  []string
	Config *config.Config
	Logger *zap.Logger
}

// Run imports the artifacts and checks them against the configured rules.
// An import failure aborts before any report is written. Otherwise the
// report is always written, and a *report.GateFailure is returned alongside
// the summary when any rule was violated.
func Run(ctx context.Context, opts Options) (*report.Summary, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	rules, err := archrules.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	g, err := importer.Import(ctx, opts.Paths, importer.Options{Exclude: cfg.Exclude, Logger: log})
	if err != nil {
		return nil, err
	}

	return Verify(ctx, g, rules, cfg.OutputDir, log)
}

// Verify evaluates rules against an imported graph and gates on the result.
func Verify(ctx context.Context, g *model.Graph, rules []rule.Rule, outputDir string, log *zap.Logger) (*report.Summary, error) {
	if log == nil {
		log = zap.NewNop()
	}

	results, err := rule.EvaluateAll(ctx, g, rules)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		log.Debug("evaluated rule",
			zap.String("rule", r.Rule),
			zap.Int("violations", len(r.Violations)))
	}

	path, err := report.Write(outputDir, results)
	if err != nil {
		return nil, err
	}
	summary := &report.Summary{Report: path, Types: len(g.Types()), Results: results}

	if err := report.Gate(path, results); err != nil {
		log.Warn("architecture check failed",
			zap.String("report", path),
			zap.Int("violations", summary.Violations()))
		return summary, err
	}
	log.Info("architecture check passed",
		zap.Int("rules", len(rules)),
		zap.Int("types", summary.Types))
	return summary, nil
}
