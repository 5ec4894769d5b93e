package scoring

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/apperr"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/config"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/normalizer"
)

func TestHeuristics_URL(t *testing.T) {
	h := NewHeuristicSource()

	clean, err := h.Score(context.Background(), urlFingerprint(t, "https://example.com"))
	require.NoError(t, err)
	assert.Equal(t, 0, clean.Score)
	assert.Empty(t, clean.Reasons)

	risky, err := h.Score(context.Background(), urlFingerprint(t, "http://192.168.10.5:8080/login/verify"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuspicious, DefaultThresholds.StatusFor(risky.Score))
	assert.GreaterOrEqual(t, len(risky.Reasons), 3)
}

func TestHeuristics_File(t *testing.T) {
	h := NewHeuristicSource()

	fp, err := normalizer.NormalizeFile("invoice.pdf.exe", bytes.NewReader([]byte("MZ")))
	require.NoError(t, err)
	p, err := h.Score(context.Background(), fp)
	require.NoError(t, err)
	assert.Equal(t, 65, p.Score)
	assert.Len(t, p.Reasons, 2)

	fp, err = normalizer.NormalizeFile("notes.txt", bytes.NewReader([]byte("hello")))
	require.NoError(t, err)
	p, err = h.Score(context.Background(), fp)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Score)
}

func TestHeuristics_UserinfoAndQuery(t *testing.T) {
	h := NewHeuristicSource()

	p, err := h.Score(context.Background(), urlFingerprint(t, "https://www.paypal.com@evil-site.example/"))
	require.NoError(t, err)
	assert.Equal(t, 20, p.Score)
	assert.Contains(t, p.Reasons, "URL contains an '@' character that can hide the real destination.")

	p, err = h.Score(context.Background(), urlFingerprint(t, "https://shop.example/?next=verify-account"))
	require.NoError(t, err)
	assert.Equal(t, 15, p.Score)
	assert.Equal(t, []string{`URL contains the phishing-related keyword "verify".`}, p.Reasons)
}

func TestHeuristics_NotApplicable(t *testing.T) {
	h := NewHeuristicSource()

	fp, err := normalizer.NormalizeHash("d41d8cd98f00b204e9800998ecf8427e")
	require.NoError(t, err)
	_, err = h.Score(context.Background(), fp)
	assert.ErrorIs(t, err, ErrNotApplicable)

	fp, err = normalizer.NormalizeFile("", bytes.NewReader([]byte("MZ")))
	require.NoError(t, err)
	_, err = h.Score(context.Background(), fp)
	assert.ErrorIs(t, err, ErrNotApplicable)
}

func TestEngine_HashWithOnlyFailingReputationIsUnavailable(t *testing.T) {
	down := &fakeSource{name: "vt", errs: []error{Transient(errors.New("503")), Transient(errors.New("503"))}}
	engine := testEngine([]Source{NewHeuristicSource(), down}, 0)

	fp, err := normalizer.NormalizeHash("d41d8cd98f00b204e9800998ecf8427e")
	require.NoError(t, err)
	_, err = engine.Evaluate(context.Background(), fp)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindScoringUnavailable))
	assert.Equal(t, int32(2), down.calls.Load())
}

func TestVirusTotal_DisabledWithoutKey(t *testing.T) {
	assert.Nil(t, NewVirusTotalSource("http://localhost", ""))
}

func TestVirusTotal_URLLookup(t *testing.T) {
	fp := urlFingerprint(t, "https://bad.example.com/x")
	wantPath := "/urls/" + base64.RawURLEncoding.EncodeToString([]byte(fp.Value))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wantPath, r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-apikey"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"attributes":{"last_analysis_stats":{"malicious":3,"suspicious":1}}}}`))
	}))
	defer srv.Close()

	p, err := NewVirusTotalSource(srv.URL, "secret").Score(context.Background(), fp)
	require.NoError(t, err)
	assert.Equal(t, 95, p.Score)
	assert.Equal(t, []string{"Flagged as malicious by 3 security vendors."}, p.Reasons)
}

func TestVirusTotal_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	fp, err := normalizer.NormalizeHash("d41d8cd98f00b204e9800998ecf8427e")
	require.NoError(t, err)
	p, err := NewVirusTotalSource(srv.URL, "k").Score(context.Background(), fp)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Score)
	assert.Equal(t, []string{notSeenReason}, p.Reasons)
}

func TestVirusTotal_RateLimitedIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"attributes":{"last_analysis_stats":{"suspicious":2}}}}`))
	}))
	defer srv.Close()

	e := testEngine([]Source{NewVirusTotalSource(srv.URL, "k")}, 0)
	v, err := e.Evaluate(context.Background(), urlFingerprint(t, "https://example.org"))
	require.NoError(t, err)
	assert.Equal(t, 50, v.Score)
	assert.Equal(t, models.StatusSuspicious, v.Status)
	assert.Equal(t, int32(2), calls.Load())
}

func TestVirusTotal_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewVirusTotalSource(srv.URL, "k").Score(context.Background(), urlFingerprint(t, "https://example.org"))
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

type stubLookup struct {
	records []models.IocRecord
	err     error
	got     []string
}

func (s *stubLookup) FindByValues(_ context.Context, values []string) ([]models.IocRecord, error) {
	s.got = values
	return s.records, s.err
}

func TestIocMatch(t *testing.T) {
	lookup := &stubLookup{records: []models.IocRecord{
		{Type: models.IocDomain, Value: "evil.example", Confidence: 60},
		{Type: models.IocURL, Value: "https://login.evil.example/x", Confidence: 85},
	}}
	p, err := NewIocMatchSource(lookup).Score(context.Background(), urlFingerprint(t, "https://login.evil.example/x"))
	require.NoError(t, err)
	assert.Equal(t, 85, p.Score)
	assert.Equal(t, []string{"Matches a community-reported url indicator."}, p.Reasons)
	assert.Equal(t, []string{"https://login.evil.example/x", "login.evil.example", "evil.example"}, lookup.got)
}

func TestIocMatch_NoMatchAndError(t *testing.T) {
	fp := urlFingerprint(t, "https://example.com")

	p, err := NewIocMatchSource(&stubLookup{}).Score(context.Background(), fp)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Score)

	_, err = NewIocMatchSource(&stubLookup{err: errors.New("db down")}).Score(context.Background(), fp)
	require.Error(t, err)
}

func TestNewEngineFromConfig(t *testing.T) {
	cfg := config.Default().Scoring
	cfg.SourceTimeout = 100 * time.Millisecond

	e, err := NewEngineFromConfig(cfg, &stubLookup{}, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, e.sources, 2)
	assert.Equal(t, DefaultThresholds, e.Thresholds())

	cfg.SuspiciousThreshold, cfg.MaliciousThreshold = 80, 40
	_, err = NewEngineFromConfig(cfg, nil, zap.NewNop())
	require.Error(t, err)
}

func TestRateLimitedSource(t *testing.T) {
	inner := &fakeSource{name: "vt", partial: Partial{Score: 5}}
	assert.Same(t, Source(inner), NewRateLimitedSource(inner, 0))

	limited := NewRateLimitedSource(inner, 1)
	assert.Equal(t, "vt", limited.Name())
	fp := urlFingerprint(t, "https://example.com")

	_, err := limited.Score(context.Background(), fp)
	require.NoError(t, err)

	// The next token is a minute away, past this deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = limited.Score(ctx, fp)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, int32(1), inner.calls.Load())
}
