package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/san-kum/featherstone/internal/config"
	"github.com/san-kum/featherstone/internal/experiment"
)

var (
	ErrUnknownParam = errors.New("optim: unknown parameter")
	ErrNoCandidate  = errors.New("optim: no candidate produced the metric")
)

// Setter writes one swept value into a configuration.
type Setter func(cfg *config.Config, value float64)

// Params lists the configuration fields a search can sweep.
var Params = map[string]Setter{
	"kp":            func(c *config.Config, v float64) { c.Control.Kp = v },
	"kd":            func(c *config.Config, v float64) { c.Control.Kd = v },
	"dt":            func(c *config.Config, v float64) { c.Dt = v },
	"initial_angle": func(c *config.Config, v float64) { c.Body.InitialAngle = v },
	"base_mass":     func(c *config.Config, v float64) { c.Body.BaseMass = v },
	"damping": func(c *config.Config, v float64) {
		c.Body.LinearDamping, c.Body.AngularDamping = v, v
	},
}

func ParamNames() []string {
	names := make([]string, 0, len(Params))
	for k := range Params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Candidate is one evaluated point of the grid.
type Candidate struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	logger     *zap.Logger
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameters but %d ranges", len(params), len(ranges))
	}
	for i, p := range params {
		if _, ok := Params[p]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownParam, p)
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("optim: empty range for %s", p)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges, logger: zap.NewNop()}, nil
}

func (g *GridSearch) SetLogger(l *zap.Logger) {
	if l != nil {
		g.logger = l
	}
}

// Search runs one experiment per grid point, derived from base, and
// returns the point that minimizes the named metric. Failed or non-finite
// points are kept in the candidate list and skipped for the minimum.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string) (Candidate, []Candidate, error) {
	var all []Candidate
	best := Candidate{Value: math.Inf(1)}

	err := g.searchRecursive(ctx, 0, make(map[string]float64), func(params map[string]float64) {
		c := g.evaluate(ctx, base, params, metricName)
		all = append(all, c)
		if c.Err == nil && c.Value < best.Value {
			best = c
		}
	})
	if err != nil {
		return Candidate{}, all, err
	}
	if best.Params == nil {
		return Candidate{}, all, ErrNoCandidate
	}
	return best, all, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, visit func(map[string]float64)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		visit(current)
		return nil
	}

	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[name] = val
		if err := g.searchRecursive(ctx, depth+1, next, visit); err != nil {
			return err
		}
	}
	return nil
}

func (g *GridSearch) evaluate(ctx context.Context, base *config.Config, params map[string]float64, metricName string) Candidate {
	cand := Candidate{Params: params, Value: math.NaN()}
	cfg := base.Clone()
	for name, v := range params {
		Params[name](cfg, v)
	}

	exp := experiment.New(cfg)
	defer exp.Close()
	if err := exp.Setup(); err != nil {
		cand.Err = err
		return cand
	}
	result, err := exp.Run(ctx)
	if err != nil {
		cand.Err = err
		return cand
	}

	val, ok := result.Metrics[metricName]
	switch {
	case !ok:
		cand.Err = fmt.Errorf("optim: metric %q not recorded", metricName)
	case math.IsNaN(val) || math.IsInf(val, 0):
		cand.Err = fmt.Errorf("optim: metric %q is not finite", metricName)
	case len(result.Errors) > 0:
		cand.Err = errors.Join(result.Errors...)
	default:
		cand.Value = val
	}
	g.logger.Debug("grid point", zap.Any("params", params), zap.Float64(metricName, cand.Value), zap.Error(cand.Err))
	return cand
}
