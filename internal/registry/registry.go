// Package registry picks the better of two registered model versions by a
// recorded metric and moves a target alias onto it.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/renergies99/solar-forecast-etl/internal/domain"
)

// ModelVersion is a registered model version resolved through an alias.
type ModelVersion struct {
	Name    string
	Version string
	RunID   string
}

// Registry is the model registry the promotion logic talks to.
type Registry interface {
	// AliasVersion resolves alias to the model version it points at.
	AliasVersion(ctx context.Context, model, alias string) (ModelVersion, error)
	// RunMetrics returns the latest value of every metric logged by a run.
	RunMetrics(ctx context.Context, runID string) (map[string]float64, error)
	// SetAlias points alias at version, replacing any previous assignment.
	SetAlias(ctx context.Context, model, alias, version string) error
}

// Goal says whether lower or higher metric values are better.
type Goal int

const (
	Minimize Goal = iota
	Maximize
)

func (g Goal) String() string {
	if g == Maximize {
		return "maximize"
	}
	return "minimize"
}

var metricGoals = map[string]Goal{
	"MAE":         Minimize,
	"RMSE":        Minimize,
	"MSE":         Minimize,
	"R2":          Maximize,
	"ADJUSTED_R2": Maximize,
}

// GoalFor returns the selection rule for metric, matched case-insensitively.
func GoalFor(metric string) (Goal, error) {
	g, ok := metricGoals[strings.ToUpper(metric)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownMetric, metric)
	}
	return g, nil
}

// Score is an alias's value for one metric.
type Score struct {
	Alias string
	Value float64
}

// PickBest returns the alias with the best value for metric. Ties keep the
// earlier alias.
func PickBest(metric string, scores ...Score) (string, error) {
	goal, err := GoalFor(metric)
	if err != nil {
		return "", err
	}
	if len(scores) == 0 {
		return "", errors.New("no scores to compare")
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if (goal == Minimize && s.Value < best.Value) || (goal == Maximize && s.Value > best.Value) {
			best = s
		}
	}
	return best.Alias, nil
}

// Selector compares aliases of a registered model and promotes the winner.
type Selector struct {
	reg    Registry
	logger *slog.Logger
}

// NewSelector creates a Selector over reg.
func NewSelector(reg Registry, logger *slog.Logger) *Selector {
	return &Selector{reg: reg, logger: logger}
}

// Score fetches metric for the version behind alias.
func (s *Selector) Score(ctx context.Context, model, alias, metric string) (Score, error) {
	mv, err := s.reg.AliasVersion(ctx, model, alias)
	if err != nil {
		return Score{}, fmt.Errorf("resolve alias %q: %w", alias, err)
	}
	metrics, err := s.reg.RunMetrics(ctx, mv.RunID)
	if err != nil {
		return Score{}, fmt.Errorf("metrics of %q (run %s): %w", alias, mv.RunID, err)
	}
	v, ok := lookupMetric(metrics, metric)
	if !ok {
		return Score{}, fmt.Errorf("%w: %s for alias %q", domain.ErrMissingMetric, metric, alias)
	}
	return Score{Alias: alias, Value: v}, nil
}

// SelectBestAlias compares a and b on metric. The metric name is checked
// before anything is fetched from the registry.
func (s *Selector) SelectBestAlias(ctx context.Context, model, a, b, metric string) (string, error) {
	if _, err := GoalFor(metric); err != nil {
		return "", err
	}

	scoreA, err := s.Score(ctx, model, a, metric)
	if err != nil {
		return "", err
	}
	scoreB, err := s.Score(ctx, model, b, metric)
	if err != nil {
		return "", err
	}

	best, err := PickBest(metric, scoreA, scoreB)
	if err != nil {
		return "", err
	}
	s.logger.Info("best alias selected",
		"model", model, "metric", metric, "winner", best,
		a, scoreA.Value, b, scoreB.Value)
	return best, nil
}

// Promote points target at the version currently behind winner.
func (s *Selector) Promote(ctx context.Context, model, winner, target string) (ModelVersion, error) {
	mv, err := s.reg.AliasVersion(ctx, model, winner)
	if err != nil {
		return ModelVersion{}, fmt.Errorf("resolve alias %q: %w", winner, err)
	}
	if err := s.reg.SetAlias(ctx, model, target, mv.Version); err != nil {
		return ModelVersion{}, fmt.Errorf("set alias %q: %w", target, err)
	}
	s.logger.Info("alias promoted", "model", model, "alias", target, "version", mv.Version, "from", winner)
	return mv, nil
}

// lookupMetric matches metric names case-insensitively, preferring an exact match.
func lookupMetric(metrics map[string]float64, metric string) (float64, bool) {
	if v, ok := metrics[metric]; ok {
		return v, true
	}
	for k, v := range metrics {
		if strings.EqualFold(k, metric) {
			return v, true
		}
	}
	return 0, false
}
