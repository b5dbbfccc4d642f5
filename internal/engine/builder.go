package engine

import (
	"assembly-line/internal/config"
	"assembly-line/internal/shift"
	"assembly-line/internal/station"
	"assembly-line/internal/types"
	"fmt"
)

// Build 按配置组装工站链、班次时钟和回填规则，返回协调器
// opts 中的 Rule 和 DefaultPhase 由配置决定，会被覆盖
func Build(cfg *config.Config, opts Options) (*Coordinator, error) {
	start, err := cfg.Start()
	if err != nil {
		return nil, err
	}
	clock, err := shift.NewClock(start, cfg.ShiftStartHour, cfg.ShiftEndHour)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}

	chain := station.NewChain()
	for _, sc := range cfg.Stations {
		cats := make([]types.Category, len(sc.Categories))
		for i, c := range sc.Categories {
			cats[i] = types.Category(c)
		}
		if !chain.Attach(station.NewStation(types.StationID(sc.ID), cats...)) {
			return nil, fmt.Errorf("%w: station %q rejected", config.ErrInvalid, sc.ID)
		}
	}
	if chain.Len() == 0 {
		return nil, fmt.Errorf("%w: no stations", config.ErrInvalid)
	}

	rule, err := NewBackfillRule(cfg.BackfillRule)
	if err != nil {
		return nil, fmt.Errorf("backfill_rule: %w", err)
	}
	opts.Rule = rule
	opts.DefaultPhase = cfg.DefaultPhase()

	return NewCoordinator(chain, clock, opts), nil
}
