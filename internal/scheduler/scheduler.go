package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/leakwatch/leakwatch/internal/repository"
)

// Generator turns a manager's current channel aggregates into a daily
// report row.  The HTTP generate endpoint and the nightly cron job both go
// through it so the two paths cannot drift.
type Generator struct {
	Channels *repository.ChannelRepo
	Reports  *repository.ReportRepo
}

func NewGenerator(channels *repository.ChannelRepo, reports *repository.ReportRepo) *Generator {
	return &Generator{Channels: channels, Reports: reports}
}

// GenerateFor snapshots one manager's aggregates into daily_reports.
func (g *Generator) GenerateFor(ctx context.Context, managerID uint64) (*model.DailyReport, error) {
	agg, err := g.Channels.AggregateByManager(ctx, managerID)
	if err != nil {
		return nil, err
	}
	rep := &model.DailyReport{
		ManagerID:    managerID,
		Solved:       agg.SolvedChannels,
		Unsolved:     agg.UnsolvedChannels,
		WaterLost:    agg.TotalWaterLost,
		AvgSolveTime: agg.AvgSolveTime,
	}
	if err := g.Reports.Create(ctx, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// GenerateAll runs the aggregation for every manager.  One manager failing
// does not stop the rest; the first error is reported after the sweep.
func (g *Generator) GenerateAll(ctx context.Context) ([]*model.DailyReport, error) {
	ids, err := g.Reports.ManagerIDs(ctx)
	if err != nil {
		return nil, err
	}
	var (
		out      []*model.DailyReport
		firstErr error
	)
	for _, id := range ids {
		rep, err := g.GenerateFor(ctx, id)
		if err != nil {
			log.Printf("scheduler: report generation for manager %d failed: %v", id, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out = append(out, rep)
	}
	return out, firstErr
}

// Scheduler owns the nightly report cron.  Midnight local time, one run per
// day, matching the snapshots the reports endpoint serves.
type Scheduler struct {
	cron *cron.Cron
	gen  *Generator
}

func New(gen *Generator) *Scheduler {
	return &Scheduler{cron: cron.New(), gen: gen}
}

// Start registers the nightly job and launches the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc("0 0 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		reports, err := s.gen.GenerateAll(ctx)
		if err != nil {
			log.Printf("scheduler: nightly report run finished with errors: %v", err)
		}
		log.Printf("scheduler: nightly report run wrote %d report(s)", len(reports))
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
