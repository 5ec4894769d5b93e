package ingest

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/apperr"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
)

var analyst = &models.Principal{Email: "analyst@example.com", Role: models.DefaultRole}

func payload(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return raw
}

func TestSanitize_Valid(t *testing.T) {
	g := NewGuard(zap.NewNop())

	rec, err := g.Sanitize(analyst, payload(t, `{
		"type": "domain",
		"value": "  Evil.Example. ",
		"confidence": 80,
		"tags": ["phishing", " phishing ", "", "bank"],
		"first_seen": "2024-03-01T12:00:00+02:00"
	}`))
	require.NoError(t, err)
	assert.Equal(t, models.IocDomain, rec.Type)
	assert.Equal(t, "evil.example", rec.Value)
	assert.Equal(t, 80, rec.Confidence)
	assert.Equal(t, models.StringList{"phishing", "bank"}, rec.Tags)
	require.NotNil(t, rec.FirstSeen)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), *rec.FirstSeen)
	assert.Empty(t, rec.ID)
}

func TestSanitize_ConfidenceBounds(t *testing.T) {
	g := NewGuard(zap.NewNop())

	for _, c := range []int{0, 100} {
		rec, err := g.Sanitize(analyst, payload(t, fmt.Sprintf(`{"type":"ip","value":"10.0.0.1","confidence":%d}`, c)))
		require.NoError(t, err)
		assert.Equal(t, c, rec.Confidence)
	}

	for _, c := range []string{"150", "-1", "50.5", `"80"`, "true"} {
		_, err := g.Sanitize(analyst, payload(t, `{"type":"ip","value":"10.0.0.1","confidence":`+c+`}`))
		require.Error(t, err, c)
		assert.True(t, apperr.Is(err, apperr.KindValidation), c)
		assert.Equal(t, msgConfidence, apperr.PublicDetail(err))
	}
}

func TestSanitize_ValidationMessages(t *testing.T) {
	g := NewGuard(zap.NewNop())

	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown type", `{"type":"malware","value":"x","confidence":10}`, msgType},
		{"missing type", `{"value":"x","confidence":10}`, msgType},
		{"type not a string", `{"type":5,"value":"x","confidence":10}`, msgType},
		{"blank value", `{"type":"domain","value":"   ","confidence":10}`, msgValue},
		{"missing value", `{"type":"domain","confidence":10}`, msgValue},
		{"value not a string", `{"type":"domain","value":42,"confidence":10}`, msgValueType},
		{"value is a list", `{"type":"domain","value":["x.example"],"confidence":10}`, msgValueType},
		{"missing confidence", `{"type":"domain","value":"x.example"}`, msgConfidence},
		{"tags not a list", `{"type":"domain","value":"x.example","confidence":10,"tags":"a,b"}`, msgTags},
		{"tags with numbers", `{"type":"domain","value":"x.example","confidence":10,"tags":[1,2]}`, msgTags},
		{"bad first_seen", `{"type":"domain","value":"x.example","confidence":10,"first_seen":"yesterday"}`, msgFirstSeen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Sanitize(analyst, payload(t, tt.body))
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation))
			assert.Equal(t, tt.want, apperr.PublicDetail(err))
		})
	}
}

func TestSanitize_RequiresPrincipal(t *testing.T) {
	g := NewGuard(zap.NewNop())
	body := payload(t, `{"type":"ip","value":"10.0.0.1","confidence":50}`)

	_, err := g.Sanitize(nil, body)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = g.Sanitize(&models.Principal{}, body)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestSanitize_DropsIdentityFields(t *testing.T) {
	g := NewGuard(zap.NewNop())

	rec, err := g.Sanitize(analyst, payload(t, `{
		"type": "url",
		"value": "HTTP://Phish.Example/login",
		"confidence": 70,
		"submitter": "alice@corp.example",
		"email": "alice@corp.example",
		"org": "ACME",
		"ip_address": "203.0.113.7",
		"Type": "other"
	}`))
	require.NoError(t, err)
	assert.Equal(t, models.IocURL, rec.Type)
	assert.Equal(t, "http://phish.example/login", rec.Value)
	assertNoLeak(t, rec, "alice@corp.example", "ACME", "203.0.113.7", analyst.Email)
}

func TestSanitize_ExtraKeysNeverLeak(t *testing.T) {
	g := NewGuard(zap.NewNop())
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		secret := fmt.Sprintf("secret-%d-%d", i, rng.Int63())
		raw := payload(t, `{"type":"hash","value":"D41D8CD98F00B204E9800998ECF8427E","confidence":55}`)
		for j := 0; j < 1+rng.Intn(6); j++ {
			key := fmt.Sprintf("k%d_%d", j, rng.Intn(1000))
			raw[key] = json.RawMessage(fmt.Sprintf("%q", secret))
		}
		rec, err := g.Sanitize(analyst, raw)
		require.NoError(t, err)
		assertNoLeak(t, rec, secret)
	}
}

func assertNoLeak(t *testing.T, rec *models.IocRecord, secrets ...string) {
	t.Helper()
	b, err := json.Marshal(rec.Public())
	require.NoError(t, err)
	dump := fmt.Sprintf("%s %+v", b, *rec)
	for _, s := range secrets {
		assert.NotContains(t, dump, s)
	}
}
