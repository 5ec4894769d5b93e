package scoring

import (
	"go.uber.org/zap"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/config"
)

// NewEngineFromConfig assembles the configured sources in a fixed order:
// heuristics, IoC match, VirusTotal. Reasons are reported in that order.
func NewEngineFromConfig(cfg config.Scoring, lookup IndicatorLookup, logger *zap.Logger) (*Engine, error) {
	thresholds, err := NewThresholds(cfg.SuspiciousThreshold, cfg.MaliciousThreshold)
	if err != nil {
		return nil, err
	}

	var sources []Source
	if cfg.Heuristics.Enabled {
		sources = append(sources, NewHeuristicSource())
	}
	if cfg.IocMatch.Enabled && lookup != nil {
		sources = append(sources, NewIocMatchSource(lookup))
	}
	if vt := NewVirusTotalSource(cfg.VirusTotal.BaseURL, cfg.VirusTotal.APIKey); vt != nil {
		sources = append(sources, NewRateLimitedSource(vt, cfg.VirusTotal.RequestsPerMinute))
	} else {
		logger.Info("VirusTotal API key not set, reputation lookups disabled")
	}

	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name())
	}
	logger.Info("Scoring engine configured",
		zap.Strings("sources", names),
		zap.Int("suspicious_threshold", thresholds.Suspicious),
		zap.Int("malicious_threshold", thresholds.Malicious))

	return NewEngine(sources, Options{
		Thresholds:    thresholds,
		Timeout:       cfg.Timeout,
		SourceTimeout: cfg.SourceTimeout,
		CacheTTL:      cfg.CacheTTL,
		CacheSize:     cfg.CacheSize,
	}, logger), nil
}
