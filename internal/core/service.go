package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/JonMunkholm/deprov/internal/logging"
)

// RunSummary is what the run history keeps about a generation. It never
// contains table contents and is never read back by the engine.
type RunSummary struct {
	Identity        string
	External        bool
	ChecklistSHA256 string
	Steps           int
	Warnings        int
	Notices         int
	DeviceExported  bool
	IPAddress       string
	UserAgent       string
	CreatedAt       time.Time
}

// RunRecorder persists run summaries.
type RunRecorder interface {
	RecordRun(ctx context.Context, run RunSummary) error
}

// NopRecorder discards summaries. It is used when no history database is
// configured.
type NopRecorder struct{}

// RecordRun does nothing.
func (NopRecorder) RecordRun(context.Context, RunSummary) error { return nil }

// Service wraps the engine for the web and CLI front ends: it logs each run
// and hands a summary to the recorder.
type Service struct {
	engine   *Engine
	recorder RunRecorder
}

// NewService creates a Service. A nil recorder disables history.
func NewService(engine *Engine, recorder RunRecorder) *Service {
	if engine == nil {
		engine = NewEngine()
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Service{engine: engine, recorder: recorder}
}

// Engine returns the underlying engine.
func (s *Service) Engine() *Engine {
	return s.engine
}

// Generate runs the engine for raw and records the outcome. A failure to
// record is logged, not returned: the generated artifacts are still valid.
func (s *Service) Generate(ctx context.Context, raw string, src Sources) (Result, error) {
	res, err := s.engine.Run(raw, src)
	if err != nil {
		return Result{}, fmt.Errorf("generate: %w", err)
	}

	logger := logging.WithFields(ctx, "identity", res.Identity.Handle)
	logger.Info("deprovisioning generated",
		"steps", len(res.Checklist.Steps),
		"warnings", len(res.Checklist.Warnings),
		"notices", len(res.Notices),
		"azure_groups", len(res.AzureRemoval),
		"device", res.DeviceExport != nil,
	)
	if res.SMFallback {
		logger.Warn("shared mailboxes matched through member list", "groups", len(res.SMGroups))
	}

	if err := s.recorder.RecordRun(ctx, Summarize(ctx, res, s.engine.now())); err != nil {
		logger.Warn("failed to record run", "error", err)
	}

	return res, nil
}

// Summarize builds the history entry for a result. Request metadata comes
// from ctx (see ContextWithIPAddress).
func Summarize(ctx context.Context, res Result, at time.Time) RunSummary {
	sum := sha256.Sum256([]byte(res.Checklist.Title + "\n" + res.Checklist.String()))
	return RunSummary{
		Identity:        res.Identity.Handle,
		External:        res.Identity.External(),
		ChecklistSHA256: hex.EncodeToString(sum[:]),
		Steps:           len(res.Checklist.Steps),
		Warnings:        len(res.Checklist.Warnings),
		Notices:         len(res.Notices),
		DeviceExported:  res.DeviceExport != nil,
		IPAddress:       GetIPAddressFromContext(ctx),
		UserAgent:       GetUserAgentFromContext(ctx),
		CreatedAt:       at.UTC(),
	}
}
