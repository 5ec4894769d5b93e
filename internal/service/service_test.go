package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/apperr"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/ingest"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/normalizer"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/repository"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/scoring"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repository.NewDB(repository.DriverSQLite, ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.MigrateDB(db, zap.NewNop()))
	return db
}

type stubEvaluator struct {
	verdict scoring.Verdict
	err     error
	seen    []normalizer.Fingerprint
}

func (s *stubEvaluator) Evaluate(_ context.Context, fp normalizer.Fingerprint) (scoring.Verdict, error) {
	s.seen = append(s.seen, fp)
	return s.verdict, s.err
}

type recordingNotifier struct {
	mu    sync.Mutex
	scans []models.ScanRecord
}

func (n *recordingNotifier) NotifyMalicious(scan models.ScanRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scans = append(n.scans, scan)
}

type purgeCounter struct{ n int }

func (p *purgeCounter) Purge() { p.n++ }

var analyst = &models.Principal{Email: "analyst@example.com", Role: models.DefaultRole}

func TestScanService_ScanURLThenGet(t *testing.T) {
	db := newTestDB(t)
	eval := &stubEvaluator{verdict: scoring.Verdict{
		Status:  models.StatusSafe,
		Score:   0,
		Summary: "No immediate malicious indicators were detected.",
		Reasons: []string{},
	}}
	svc := NewScanService(eval, repository.NewScanRepository(db, zap.NewNop()), nil, zap.NewNop())
	ctx := context.Background()

	rec, err := svc.ScanURL(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSafe, rec.Status)
	assert.Equal(t, "url:https://example.com", rec.ScanKey)

	got, err := svc.GetScan(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Response().ScanID, got.Response().ScanID)
	assert.Equal(t, rec.Status, got.Status)
	assert.Equal(t, rec.Score, got.Score)
	assert.Equal(t, rec.Summary, got.Summary)
	assert.Equal(t, []string{}, got.Response().Reasons)
}

func TestScanService_InvalidInputNotStored(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewScanRepository(db, zap.NewNop())
	eval := &stubEvaluator{}
	svc := NewScanService(eval, repo, nil, zap.NewNop())
	ctx := context.Background()

	_, err := svc.ScanURL(ctx, "   ")
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
	_, err = svc.ScanHash(ctx, "nothex")
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
	_, err = svc.ScanFile(ctx, "empty.bin", strings.NewReader(""))
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))

	assert.Empty(t, eval.seen)
	recent, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestScanService_ScoringUnavailableNotStored(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewScanRepository(db, zap.NewNop())
	eval := &stubEvaluator{err: apperr.ScoringUnavailable(errors.New("all down"))}
	svc := NewScanService(eval, repo, nil, zap.NewNop())
	ctx := context.Background()

	_, err := svc.ScanURL(ctx, "https://example.com")
	assert.True(t, apperr.Is(err, apperr.KindScoringUnavailable))

	recent, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestScanService_MaliciousNotifies(t *testing.T) {
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	eval := &stubEvaluator{verdict: scoring.Verdict{
		Status:  models.StatusMalicious,
		Score:   95,
		Summary: "Multiple signals flagged this target as malicious.",
		Reasons: []string{"Flagged as malicious by 3 security vendors."},
	}}
	svc := NewScanService(eval, repository.NewScanRepository(db, zap.NewNop()), notifier, zap.NewNop())

	rec, err := svc.ScanFile(context.Background(), "invoice.pdf.exe", strings.NewReader("MZ..."))
	require.NoError(t, err)
	require.Len(t, notifier.scans, 1)
	assert.Equal(t, rec.ID, notifier.scans[0].ID)
	assert.Equal(t, models.InputFile, notifier.scans[0].InputKind)
	assert.NotContains(t, notifier.scans[0].ScanKey, "MZ")
}

func TestIocService_Submit(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewIocRepository(db, zap.NewNop())
	purger := &purgeCounter{}
	svc := NewIocService(ingest.NewGuard(zap.NewNop()), repo, purger, zap.NewNop())
	ctx := context.Background()

	raw := map[string]json.RawMessage{
		"type":       json.RawMessage(`"domain"`),
		"value":      json.RawMessage(`"evil.example"`),
		"confidence": json.RawMessage(`90`),
		"submitter":  json.RawMessage(`"alice@corp.example"`),
	}
	rec, err := svc.Submit(ctx, analyst, raw)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 1, purger.n)

	raw["confidence"] = json.RawMessage(`150`)
	_, err = svc.Submit(ctx, analyst, raw)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	recent, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
	assert.Equal(t, 1, purger.n)
}

func TestDashboardService_Summarize(t *testing.T) {
	db := newTestDB(t)
	iocs := repository.NewIocRepository(db, zap.NewNop())
	scans := repository.NewScanRepository(db, zap.NewNop())
	svc := NewDashboardService(iocs, scans, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Summarize(ctx, nil, Limits{})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	empty, err := svc.Summarize(ctx, analyst, Limits{})
	require.NoError(t, err)
	assert.Len(t, empty.CountsByType, len(models.IocTypes))
	assert.NotNil(t, empty.RecentIocs)
	assert.NotNil(t, empty.RecentScans)

	for i := 0; i < 3; i++ {
		require.NoError(t, iocs.Create(ctx, &models.IocRecord{Type: models.IocIP, Value: "10.0.0.1", Confidence: 20}))
		require.NoError(t, scans.Create(ctx, &models.ScanRecord{
			InputKind: models.InputHash, ScanKey: "hash:x", Status: models.StatusSafe, Summary: "s",
		}))
	}

	summary, err := svc.Summarize(ctx, analyst, Limits{RecentIocs: 2, RecentScans: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.CountsByType[models.IocIP])
	assert.Equal(t, 0, summary.CountsByType[models.IocDomain])
	assert.Len(t, summary.RecentIocs, 2)
	assert.Len(t, summary.RecentScans, 1)
}

func TestAuthService_LoginAndParse(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(repository.NewAuthRepository(db, zap.NewNop()), "test-secret", time.Hour, zap.NewNop())
	ctx := context.Background()

	created, err := svc.EnsureUser(ctx, "Analyst@Example.com", "s3cret!", "")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = svc.EnsureUser(ctx, "analyst@example.com", "other", "")
	require.NoError(t, err)
	assert.False(t, created)

	token, err := svc.Login(ctx, "ANALYST@example.com", "s3cret!")
	require.NoError(t, err)

	principal, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "analyst@example.com", principal.Email)
	assert.Equal(t, models.DefaultRole, principal.Role)

	for _, creds := range [][2]string{{"analyst@example.com", "wrong"}, {"nobody@example.com", "s3cret!"}, {"", ""}} {
		_, err := svc.Login(ctx, creds[0], creds[1])
		assert.True(t, apperr.Is(err, apperr.KindUnauthorized), creds)
		assert.Equal(t, "Invalid email or password.", apperr.PublicDetail(err))
	}
}

func TestAuthService_ParseTokenRejects(t *testing.T) {
	svc := NewAuthService(nil, "test-secret", time.Hour, zap.NewNop())

	sign := func(secret string, method jwt.SigningMethod, claims *models.Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	valid := func(exp time.Time) *models.Claims {
		return &models.Claims{Role: "org_user", RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "analyst@example.com",
			ExpiresAt: jwt.NewNumericDate(exp),
		}}
	}

	_, err := svc.ParseToken(sign("other-secret", jwt.SigningMethodHS256, valid(time.Now().Add(time.Hour))))
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = svc.ParseToken(sign("test-secret", jwt.SigningMethodHS256, valid(time.Now().Add(-time.Minute))))
	assert.Equal(t, "Token expired.", apperr.PublicDetail(err))

	noSubject := valid(time.Now().Add(time.Hour))
	noSubject.Subject = ""
	_, err = svc.ParseToken(sign("test-secret", jwt.SigningMethodHS256, noSubject))
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = svc.ParseToken("garbage")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	p, err := svc.ParseToken(sign("test-secret", jwt.SigningMethodHS512, valid(time.Now().Add(time.Hour))))
	require.NoError(t, err)
	assert.Equal(t, "analyst@example.com", p.Email)
}

func TestPasswordHashFormat(t *testing.T) {
	hash, err := hashPassword("pw")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$"))
	assert.True(t, verifyPassword(hash, "pw"))
	assert.False(t, verifyPassword(hash, "pW"))
	assert.False(t, verifyPassword("not-a-hash", "pw"))
}
