package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"go_inpaint/core"
	"go_inpaint/db"
	"go_inpaint/inpaint"
	"go_inpaint/logging"
	"go_inpaint/pipeline"
	"go_inpaint/pipeline/openaiedit"
	"go_inpaint/pipeline/sdapi"
	"go_inpaint/shutdown"
)

// newLoader builds the pipeline loader selected by cfg.Backend.
func newLoader(cfg *core.Config, logger *logging.Logger) (pipeline.Loader, error) {
	switch cfg.Backend {
	case core.BackendStub:
		var local []string
		for _, name := range inpaint.Names() {
			if spec, err := inpaint.Lookup(name); err == nil {
				local = append(local, spec.ModelID)
			}
		}
		return &pipeline.StubLoader{LocalModels: local}, nil
	case core.BackendSDAPI:
		return sdapi.New(sdapi.Config{Host: cfg.SDAPIHost, Timeout: cfg.SDAPITimeout}, logger)
	case core.BackendOpenAI:
		return openaiedit.New(openaiedit.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		}, logger)
	default:
		return nil, core.ErrUnknownBackend(cfg.Backend)
	}
}

// historyRecorder stores inpaint.Generation values through a db.Repository.
type historyRecorder struct {
	repo *db.Repository
}

// RecordGeneration implements inpaint.Recorder.
func (h historyRecorder) RecordGeneration(ctx context.Context, g inpaint.Generation) error {
	_, err := h.repo.InsertGeneration(ctx, generationRecord(g))
	return err
}

// generationRecord maps a generation outcome to a history row.
// This is a pure function with no side effects.
func generationRecord(g inpaint.Generation) db.GenerationRecord {
	m := g.Metrics
	rec := db.GenerationRecord{
		CorrelationID: m.CorrelationID,
		ModelName:     m.ModelName,
		Backend:       m.Backend,
		Sampler:       m.Sampler,
		Seed:          m.Seed,
		Steps:         m.Steps,
		GuidanceScale: m.GuidanceScale,
		MaskBlur:      m.MaskBlur,
		Width:         m.Width,
		Height:        m.Height,
		DurationMS:    m.Duration.Milliseconds(),
		Status:        db.StatusSuccess,
	}
	if g.Err != nil {
		rec.Status = db.StatusError
		rec.ErrorMessage = g.Err.Error()
	}
	return rec
}

// openHistory opens the history database and registers its cleanup.
func (a *app) openHistory(ctx context.Context, cfg *core.Config) (*db.Repository, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("history database path is empty")
	}
	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	a.cleanup.Register("database", shutdown.PriorityDatabase, func(context.Context) error {
		return database.Close()
	})
	a.logger.Debug("history database opened", zap.String("path", database.Path()))
	return db.NewRepository(database), nil
}
