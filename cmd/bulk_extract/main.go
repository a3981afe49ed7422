package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ecala/gradesync/internal/cache"
	"github.com/ecala/gradesync/internal/catalog"
	"github.com/ecala/gradesync/internal/domain"
	"github.com/ecala/gradesync/internal/extract"
	"github.com/ecala/gradesync/internal/moodle"
	"github.com/ecala/gradesync/internal/storage/factory"
)

func main() {
	specPath := flag.String("spec", "jobs.yaml", "path to the YAML job spec")
	flag.Parse()

	appSettings := NewAppConfig()
	cfg, err := appSettings.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	jobSpec, err := LoadJobSpec(*specPath)
	if err != nil {
		slog.Error("failed to load job spec", "error", err, "path", *specPath)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := factory.NewStore(ctx, &cfg.StorageConfig)
	if err != nil {
		slog.Error("failed to create durable store", "error", err)
		os.Exit(1)
	}

	client, err := moodle.NewWSClient(cfg.Moodle)
	if err != nil {
		slog.Error("failed to create upstream client", "error", err)
		os.Exit(1)
	}

	cat, err := catalog.Load(jobSpec.Rosters.Activities, jobSpec.Rosters.Courses)
	if err != nil {
		slog.Error("failed to load rosters", "error", err)
		os.Exit(1)
	}

	var opts []extract.EngineOption
	if jobSpec.ScopeDelayMs > 0 {
		opts = append(opts, extract.WithScopeDelay(time.Duration(jobSpec.ScopeDelayMs)*time.Millisecond))
	}
	engine := extract.NewEngine(
		store,
		client,
		cache.NewIndividual(jobSpec.Cache.Individual),
		cache.NewBulk(jobSpec.Cache.Bulk),
		opts...,
	)

	failed := 0
	for _, job := range jobSpec.Jobs {
		if err := runJob(ctx, engine, cat, job); err != nil {
			slog.Error("job failed", "job", job.Name, "error", err)
			failed++
		}
	}

	if failed > 0 {
		slog.Error("batch finished with failures", "failed", failed, "total", len(jobSpec.Jobs))
		os.Exit(1)
	}
	slog.Info("batch finished", "jobs", len(jobSpec.Jobs))
}

func runJob(ctx context.Context, engine *extract.Engine, cat *catalog.Catalog, job Job) error {
	var scopes []domain.ScopeRequest
	var identifier string
	switch job.Scope {
	case "course":
		scopes, identifier = cat.ByCourseName(job.Value)
	case "instructor":
		scopes, identifier = cat.ByInstructor(job.Value)
	case "classroom":
		scopes, identifier = cat.ByClassroom(job.Value)
	}
	if len(scopes) == 0 {
		return fmt.Errorf("no activities found for %s %q", job.Scope, job.Value)
	}

	slog.Info("running job",
		"job", job.Name, "scope", job.Scope, "value", job.Value, "assignments", len(scopes), "with_feedback", job.WithFeedback)

	result, err := engine.ResolveBulk(ctx, scopes, identifier, job.WithFeedback)
	if err != nil {
		return err
	}

	slog.Info("job finished",
		"job", job.Name,
		"run_id", result.RunID,
		"state", result.State,
		"records", len(result.Records),
		"warnings", len(result.Warnings))
	return nil
}
