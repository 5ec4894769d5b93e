package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/normalizer"
)

// IndicatorLookup finds stored indicators whose value equals one of values.
type IndicatorLookup interface {
	FindByValues(ctx context.Context, values []string) ([]models.IocRecord, error)
}

// IocMatchSource scores inputs against community-submitted indicators.
// The confidence of the strongest match becomes the score.
type IocMatchSource struct {
	lookup IndicatorLookup
}

func NewIocMatchSource(lookup IndicatorLookup) *IocMatchSource {
	return &IocMatchSource{lookup: lookup}
}

func (m *IocMatchSource) Name() string { return "ioc_match" }

func (m *IocMatchSource) Score(ctx context.Context, fp normalizer.Fingerprint) (Partial, error) {
	candidates := matchCandidates(fp)
	if len(candidates) == 0 {
		return Partial{}, ErrNotApplicable
	}

	matches, err := m.lookup.FindByValues(ctx, candidates)
	if err != nil {
		return Partial{}, fmt.Errorf("failed to look up indicators: %w", err)
	}
	if len(matches) == 0 {
		return Partial{Reasons: []string{}}, nil
	}

	best := matches[0]
	for _, rec := range matches[1:] {
		if rec.Confidence > best.Confidence {
			best = rec
		}
	}
	return Partial{
		Score:   best.Confidence,
		Reasons: []string{fmt.Sprintf("Matches a community-reported %s indicator.", best.Type)},
	}, nil
}

func matchCandidates(fp normalizer.Fingerprint) []string {
	var out []string
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" {
			return
		}
		for _, existing := range out {
			if existing == v {
				return
			}
		}
		out = append(out, v)
	}
	switch fp.Kind {
	case models.InputURL:
		add(fp.Value)
		add(fp.Host)
		add(fp.RegistrableDomain)
	case models.InputFile:
		add(fp.Value)
		add(strings.ToLower(fp.FileName))
	case models.InputHash:
		add(fp.Value)
	}
	return out
}
