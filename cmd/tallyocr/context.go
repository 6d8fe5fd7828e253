package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gardar/tallyocr/pkg/artifacts"
	"github.com/gardar/tallyocr/pkg/ballot"
	"github.com/gardar/tallyocr/pkg/gdocai"
	"github.com/gardar/tallyocr/pkg/logging"
	"github.com/gardar/tallyocr/pkg/outcome"
	"github.com/gardar/tallyocr/pkg/pipeline"
	"github.com/gardar/tallyocr/pkg/tessocr"
	"github.com/gardar/tallyocr/pkg/textract"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *fileConfig
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*fileConfig, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = loadConfig(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(cfg *fileConfig) (*slog.Logger, error) {
	return logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
}

// resources are the stores shared by every command that touches ballot boxes
type resources struct {
	cfg      *fileConfig
	logger   *slog.Logger
	store    *artifacts.Store
	outcomes *outcome.Store
	closers  []func() error
}

func (r *resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		_ = r.closers[i]()
	}
}

func (c *commandContext) openResources(ctx context.Context) (*resources, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.logger(cfg)
	if err != nil {
		return nil, err
	}
	r := &resources{cfg: cfg, logger: logger}

	var locks artifacts.Locker
	if cfg.LockDir != "" {
		fl, err := artifacts.NewFileLocker(cfg.LockDir)
		if err != nil {
			return nil, err
		}
		locks = fl
	}
	r.store, err = artifacts.Open(ctx, cfg.StorageURL, locks)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, r.store.Close)

	r.outcomes, err = outcome.Open(cfg.OutcomeDB)
	if err != nil {
		r.Close()
		return nil, err
	}
	r.closers = append(r.closers, r.outcomes.Close)
	return r, nil
}

// secondary creates the configured secondary OCR provider; nil for "none"
func (r *resources) secondary(ctx context.Context) (pipeline.SecondaryOCR, error) {
	switch r.cfg.Secondary.Provider {
	case providerDocumentAI:
		client, err := gdocai.NewClient(ctx, r.cfg.documentAI())
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, client.Close)
		return pipeline.DocumentAI(client), nil
	case providerTesseract:
		if !tessocr.Available {
			return nil, tessocr.ErrUnavailable
		}
		return pipeline.Tesseract(tessocr.New(r.cfg.Secondary.Languages...)), nil
	default:
		return nil, nil
	}
}

func (r *resources) fallback(ctx context.Context) (*pipeline.Fallback, error) {
	secondary, err := r.secondary(ctx)
	if err != nil {
		return nil, fmt.Errorf("secondary OCR: %w", err)
	}
	return pipeline.NewFallback(r.store, secondary, r.cfg.timeouts().Secondary, r.logger), nil
}

func (r *resources) processor(ctx context.Context) (*pipeline.Processor, error) {
	primary, err := textract.NewClient(ctx, r.cfg.textract())
	if err != nil {
		return nil, fmt.Errorf("primary OCR: %w", err)
	}
	fb, err := r.fallback(ctx)
	if err != nil {
		return nil, err
	}
	matcher, err := r.cfg.matcher()
	if err != nil {
		return nil, err
	}
	timeouts := r.cfg.timeouts()
	return pipeline.NewProcessor(pipeline.Deps{
		Images:   ballot.NewFetcher(nil, timeouts.Fetch),
		Primary:  primary,
		Store:    r.store,
		Matcher:  matcher,
		Fallback: fb,
		Outcomes: r.outcomes,
		Timeouts: timeouts,
		Logger:   r.logger,
	})
}
