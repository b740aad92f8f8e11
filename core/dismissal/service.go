package dismissal

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/dismissal/core"
)

// Observer is notified of every analysis run.
type Observer interface {
	RecordsAnalyzed(report string, n int)
	HealthReported(report HealthReport)
}

type noopObserver struct{}

func (noopObserver) RecordsAnalyzed(string, int)  {}
func (noopObserver) HealthReported(HealthReport) {}

// Analysis holds the independent reports computed over one snapshot of the collection.
type Analysis struct {
	Inventory Inventory       `json:"inventory"`
	Integrity IntegrityReport `json:"integrity"`
	Outliers  OutlierReport   `json:"outliers"`
	Health    HealthReport    `json:"health"`
}

type Service struct {
	repo     Repository
	th       core.QualityThresholds
	logger   core.Logger
	observer Observer
}

func NewService(repo Repository, th core.QualityThresholds, logger core.Logger, observer Observer) *Service {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Service{repo: repo, th: th, logger: logger, observer: observer}
}

func (svc *Service) snapshot(ctx context.Context, report string) ([]Event, error) {
	events, err := svc.repo.QueryAllEvents(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying dismissal events")
	}
	svc.observer.RecordsAnalyzed(report, len(events))
	return events, nil
}

func (svc *Service) GetDataInventory(ctx context.Context) (Inventory, error) {
	events, err := svc.snapshot(ctx, "inventory")
	if err != nil {
		return Inventory{}, err
	}
	return BuildInventory(events), nil
}

func (svc *Service) ValidateFieldIntegrity(ctx context.Context) (IntegrityReport, error) {
	events, err := svc.snapshot(ctx, "integrity")
	if err != nil {
		return IntegrityReport{}, err
	}
	return ValidateFieldIntegrity(events, svc.th), nil
}

func (svc *Service) DetectOutliers(ctx context.Context) (OutlierReport, error) {
	events, err := svc.snapshot(ctx, "outliers")
	if err != nil {
		return OutlierReport{}, err
	}
	return DetectOutliers(events, svc.th), nil
}

func (svc *Service) GetDataHealthReport(ctx context.Context) (HealthReport, error) {
	events, err := svc.snapshot(ctx, "health")
	if err != nil {
		return HealthReport{}, err
	}
	report := BuildHealthReport(events, svc.th)
	svc.reportHealth(report)
	return report, nil
}

// Analyze reads the collection once and computes every report concurrently over that snapshot.
func (svc *Service) Analyze(ctx context.Context) (Analysis, error) {
	events, err := svc.snapshot(ctx, "analysis")
	if err != nil {
		return Analysis{}, err
	}

	var (
		out Analysis
		g   errgroup.Group
	)
	g.Go(func() error {
		out.Inventory = BuildInventory(events)
		return nil
	})
	g.Go(func() error {
		out.Integrity = ValidateFieldIntegrity(events, svc.th)
		return nil
	})
	g.Go(func() error {
		out.Outliers = DetectOutliers(events, svc.th)
		return nil
	})
	g.Go(func() error {
		out.Health = BuildHealthReport(events, svc.th)
		return nil
	})
	if err = g.Wait(); err != nil {
		return Analysis{}, err
	}

	svc.reportHealth(out.Health)
	return out, nil
}

// ImportEvents stores raw events and returns them with their generated IDs.
func (svc *Service) ImportEvents(ctx context.Context, events ...Event) ([]Event, error) {
	if len(events) == 0 {
		return []Event{}, nil
	}
	created, err := svc.repo.CreateEvents(ctx, events...)
	if err != nil {
		return nil, errors.Wrap(err, "creating dismissal events")
	}
	svc.logger.Info(fmt.Sprintf("imported %d dismissal events", len(created)))
	return created, nil
}

func (svc *Service) reportHealth(report HealthReport) {
	svc.observer.HealthReported(report)
	if report.Status == StatusCritical {
		svc.logger.Warn(fmt.Sprintf("dismissal data health is %s (score %d)", report.Status, report.HealthScore))
	}
}
