package main

import (
	"time"

	"github.com/alejandrodnm/polyfusion/config"
	"github.com/alejandrodnm/polyfusion/internal/application/pipeline"
	"github.com/alejandrodnm/polyfusion/internal/arbitrage"
	"github.com/alejandrodnm/polyfusion/internal/council"
	"github.com/alejandrodnm/polyfusion/internal/features"
	"github.com/alejandrodnm/polyfusion/internal/model"
	"github.com/alejandrodnm/polyfusion/internal/narrative"
	"github.com/alejandrodnm/polyfusion/internal/risk"
	"github.com/alejandrodnm/polyfusion/internal/sentiment"
)

// buildComponents mapea el YAML sobre los DefaultConfig de cada paquete.
// Los campos a cero conservan el default.
func buildComponents(cfg *config.Config) pipeline.Components {
	fc := features.DefaultConfig()
	if v := cfg.Features.MinDataPoints; v > 0 {
		fc.MinDataPoints = v
	}
	if v := cfg.Features.BookLevels; v > 0 {
		fc.BookLevels = v
	}
	if v := cfg.Features.VolatilityMinutes; v > 0 {
		fc.VolatilityWindow = time.Duration(v) * time.Minute
	}
	if v := cfg.Features.SentimentHalfLifeHrs; v > 0 {
		fc.SentimentHalfLife = time.Duration(v * float64(time.Hour))
	}
	if v := cfg.Features.LatencyBudgetMs; v > 0 {
		fc.LatencyBudget = time.Duration(v * float64(time.Millisecond))
	}

	mc := model.DefaultConfig()
	if cfg.Model.StructWeight > 0 {
		mc.StructWeight = cfg.Model.StructWeight
		mc.SentimentWeight = cfg.Model.SentimentWeight
		mc.NarrativeWeight = cfg.Model.NarrativeWeight
	}
	if v := cfg.Model.MinEdge; v > 0 {
		mc.MinEdge = v
	}
	if v := cfg.Model.MinConfidence; v > 0 {
		mc.MinConfidence = v
	}
	if v := cfg.Model.MaxSpreadBps; v > 0 {
		mc.MaxSpreadBps = v
	}

	cc := council.DefaultConfig()
	cc.Timeout = cfg.CouncilTimeout()
	if v := cfg.Council.MaxDrawdown; v > 0 {
		cc.Doomer.MaxDrawdown = v
	}
	if v := cfg.Council.MinConsensus; v > 0 {
		cc.Judge.MinConsensus = v
	}

	ac := arbitrage.DefaultConfig()
	if v := cfg.Arbitrage.MaxIterations; v > 0 {
		ac.MaxIterations = v
	}
	if v := cfg.Arbitrage.MinProfit; v > 0 {
		ac.MinProfit = v
	}

	rc := risk.DefaultConfig()
	if v := cfg.Risk.MaxLeverage; v > 0 {
		rc.MaxLeverage = v
	}
	if v := cfg.Risk.HalfKellyDrawdown; v > 0 {
		rc.HalfKellyDrawdown = v
	}
	if v := cfg.Risk.ClusterCap; v > 0 {
		rc.ClusterCap = v
	}

	return pipeline.Components{
		Features:     features.New(fc, sentiment.New()),
		Narrative:    narrative.New(narrative.DefaultConfig()),
		Model:        model.New(mc),
		Council:      council.New(cc),
		Risk:         risk.NewManager(rc),
		Arbitrage:    arbitrage.NewDetector(ac),
		Correlations: risk.NewCorrelationTracker(cfg.Risk.CorrelationWindow, 0),
	}
}
