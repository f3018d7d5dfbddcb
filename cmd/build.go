package cmd

import (
	"context"

	"github.com/conneroisu/bindery/internal/config"
	"github.com/conneroisu/bindery/internal/errors"
	"github.com/conneroisu/bindery/internal/logging"
	"github.com/conneroisu/bindery/internal/pipeline"
	"github.com/conneroisu/bindery/internal/scanner"
)

// book ties a content directory to the pipeline that builds it.
type book struct {
	cfg      *config.Config
	logger   logging.Logger
	scanner  *scanner.Scanner
	pipeline *pipeline.Pipeline
}

func newBook(cfg *config.Config, logger logging.Logger) (*book, error) {
	sc, err := scanner.New(cfg.Content.Dir, scanner.Options{
		Include:     cfg.Content.Include,
		Exclude:     cfg.Content.Exclude,
		Concurrency: cfg.Content.Concurrency,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &book{
		cfg:      cfg,
		logger:   logger,
		scanner:  sc,
		pipeline: pipeline.New(pipeline.WithInternalExtensions(cfg.Links.InternalExtensions)),
	}, nil
}

// build scans the content directory and runs the pipeline, applying strict
// mode from the configuration.
func (b *book) build(ctx context.Context) (*pipeline.Result, error) {
	op := logging.StartOperation(b.logger, "build")

	sources, err := b.scanner.Scan(ctx)
	if err != nil {
		op.EndWithError(ctx, err, "root", b.scanner.Root())
		return nil, err
	}

	res, err := b.pipeline.RunSources(ctx, sources)
	res, err = pipeline.Enforce(res, err, b.cfg.Validation.Strict)
	if err != nil {
		if state, halted := pipeline.Halted(err); halted {
			report, _ := errors.AsReport(err)
			op.Info(ctx, "Build halted", "state", state.String(), "sources", len(sources), "issues", len(report.Issues))
			return nil, err
		}
		op.EndWithError(ctx, err, "sources", len(sources))
		return nil, err
	}

	op.End(ctx,
		"chapters", res.Collection.Len(),
		"references", len(res.References),
		"warnings", len(res.Warnings.Issues),
	)
	return res, nil
}
