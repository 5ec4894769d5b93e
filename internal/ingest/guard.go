// Package ingest turns raw IoC submissions into sanitized records.
//
// The guard only ever reads the five schema keys. Anything else in the
// payload, including fields that could identify the submitter, is dropped
// without being decoded or logged.
package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/apperr"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/normalizer"
)

const (
	msgType       = "type must be one of: ip, domain, url, hash, email, file_name, other"
	msgValue      = "value cannot be blank."
	msgValueType  = "value must be a string."
	msgValueLong  = "value must be at most 2048 characters."
	msgConfidence = "confidence must be an integer between 0 and 100."
	msgTags       = "tags must be a list of strings."
	msgTagsLimit  = "tags must contain at most 32 entries of at most 64 characters."
	msgFirstSeen  = "first_seen must be an RFC 3339 timestamp."
)

var schemaKeys = []string{"type", "value", "confidence", "tags", "first_seen"}

type submission struct {
	Type       string   `validate:"required,oneof=ip domain url hash email file_name other"`
	Value      string   `validate:"required,max=2048"`
	Confidence *int     `validate:"required,min=0,max=100"`
	Tags       []string `validate:"max=32,dive,max=64"`
	FirstSeen  *time.Time
}

// Guard validates and anonymizes IoC submissions.
type Guard struct {
	validate *validator.Validate
	logger   *zap.Logger
}

func NewGuard(logger *zap.Logger) *Guard {
	return &Guard{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Sanitize builds a fresh IocRecord from the schema keys of raw. The caller
// must be authenticated; the principal is checked but never copied.
func (g *Guard) Sanitize(principal *models.Principal, raw map[string]json.RawMessage) (*models.IocRecord, error) {
	if principal == nil || principal.Email == "" {
		return nil, apperr.Unauthorized("Not authenticated.")
	}

	dropped := 0
	for key := range raw {
		if !isSchemaKey(key) {
			dropped++
		}
	}
	if dropped > 0 {
		g.logger.Debug("Dropped non-schema keys from IoC submission", zap.Int("count", dropped))
	}

	sub, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if err := g.validate.Struct(sub); err != nil {
		return nil, validationError(err)
	}

	rec := &models.IocRecord{
		Type:       models.IocType(sub.Type),
		Value:      normalizeValue(models.IocType(sub.Type), sub.Value),
		Confidence: *sub.Confidence,
		Tags:       models.StringList(sub.Tags),
	}
	if sub.FirstSeen != nil {
		t := sub.FirstSeen.UTC()
		rec.FirstSeen = &t
	}
	return rec, nil
}

func isSchemaKey(key string) bool {
	for _, k := range schemaKeys {
		if key == k {
			return true
		}
	}
	return false
}

func decode(raw map[string]json.RawMessage) (*submission, error) {
	sub := &submission{Tags: []string{}}

	if msg, ok := present(raw, "type"); ok {
		if err := json.Unmarshal(msg, &sub.Type); err != nil {
			return nil, apperr.Validation(msgType)
		}
		sub.Type = strings.TrimSpace(sub.Type)
	}

	if msg, ok := present(raw, "value"); ok {
		if err := json.Unmarshal(msg, &sub.Value); err != nil {
			return nil, apperr.Validation(msgValueType)
		}
		sub.Value = strings.TrimSpace(sub.Value)
	}

	if msg, ok := present(raw, "confidence"); ok {
		var f float64
		if err := json.Unmarshal(msg, &f); err != nil || f != math.Trunc(f) || f < 0 || f > 100 {
			return nil, apperr.Validation(msgConfidence)
		}
		c := int(f)
		sub.Confidence = &c
	}

	if msg, ok := present(raw, "tags"); ok {
		var tags []string
		if err := json.Unmarshal(msg, &tags); err != nil {
			return nil, apperr.Validation(msgTags)
		}
		sub.Tags = cleanTags(tags)
	}

	if msg, ok := present(raw, "first_seen"); ok {
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return nil, apperr.Validation(msgFirstSeen)
		}
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
		if err != nil {
			return nil, apperr.Validation(msgFirstSeen)
		}
		sub.FirstSeen = &t
	}

	return sub, nil
}

// present treats a JSON null like an absent key.
func present(raw map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	msg, ok := raw[key]
	if !ok {
		return nil, false
	}
	if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
		return nil, false
	}
	return msg, true
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("Invalid IoC submission.")
	}
	fe := verrs[0]
	switch fe.StructField() {
	case "Type":
		return apperr.Validation(msgType)
	case "Value":
		if fe.Tag() == "max" {
			return apperr.Validation(msgValueLong)
		}
		return apperr.Validation(msgValue)
	case "Confidence":
		return apperr.Validation(msgConfidence)
	default:
		return apperr.Validation(msgTagsLimit)
	}
}

// normalizeValue puts values in the form IocMatchSource looks them up by.
func normalizeValue(t models.IocType, v string) string {
	switch t {
	case models.IocIP, models.IocHash, models.IocEmail:
		return strings.ToLower(v)
	case models.IocDomain:
		return strings.TrimSuffix(strings.ToLower(v), ".")
	case models.IocURL:
		if fp, err := normalizer.NormalizeURL(v); err == nil {
			return fp.Value
		}
		return v
	default:
		return v
	}
}
