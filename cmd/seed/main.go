// Command seed inserts one active plan per plan type when none exist yet.
package main

import (
	"context"
	"flag"
	"time"

	"pix-subscription/internal/config"
	"pix-subscription/internal/domain/model"
	"pix-subscription/internal/domain/ports/repository"
	pg "pix-subscription/internal/infra/db/postgres"
	"pix-subscription/internal/infra/logging"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "allow configuration from the environment only")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		panic(err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	plans := pg.NewPostgresPlanRepo(pool)
	existing, err := plans.ListActive(ctx, repository.NoTX)
	if err != nil {
		logger.Fatal().Err(err).Msg("list plans")
	}
	if len(existing) > 0 {
		for _, p := range existing {
			logger.Info().Str("plan", string(p.Interval)).Str("price", p.Price.StringFixed(2)).Msg("already present")
		}
		return
	}

	seed := []struct {
		Name     string
		Interval model.PlanType
		Price    string
	}{
		{"Mensal", model.PlanMonthly, "29.90"},
		{"Trimestral", model.PlanQuarterly, "79.90"},
		{"Semestral", model.PlanSemiannual, "149.90"},
		{"Anual", model.PlanYearly, "279.90"},
	}
	for _, s := range seed {
		p, err := model.NewPlan(uuid.NewString(), s.Name, s.Interval, decimal.RequireFromString(s.Price))
		if err != nil {
			logger.Fatal().Err(err).Str("plan", s.Name).Msg("build plan")
		}
		if err := plans.Save(ctx, repository.NoTX, p); err != nil {
			logger.Fatal().Err(err).Str("plan", s.Name).Msg("save plan")
		}
		logger.Info().Str("id", p.ID).Str("plan", string(p.Interval)).Str("price", s.Price).Msg("seeded")
	}
}
