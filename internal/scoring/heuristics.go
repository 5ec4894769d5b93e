package scoring

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/normalizer"
)

var suspiciousTLDs = map[string]bool{
	"zip": true, "mov": true, "xyz": true, "top": true, "tk": true, "ml": true,
	"ga": true, "cf": true, "gq": true, "click": true, "country": true, "work": true,
}

var shortenerHosts = map[string]bool{
	"bit.ly": true, "tinyurl.com": true, "t.co": true, "goo.gl": true,
	"ow.ly": true, "is.gd": true, "cutt.ly": true, "rb.gy": true,
}

var phishingKeywords = []string{
	"login", "signin", "verify", "account", "secure", "update",
	"banking", "wallet", "password", "confirm", "suspend",
}

var executableExts = map[string]bool{
	".exe": true, ".scr": true, ".bat": true, ".cmd": true, ".com": true, ".pif": true,
	".js": true, ".jse": true, ".vbs": true, ".vbe": true, ".ps1": true, ".msi": true,
	".hta": true, ".jar": true, ".lnk": true, ".dll": true,
}

var documentExts = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".txt": true, ".jpg": true, ".png": true, ".zip": true,
}

// HeuristicSource scores structural features of URLs and file names. It
// never calls out of process. Inputs without such features (bare hashes,
// unnamed files) are not applicable.
type HeuristicSource struct{}

func NewHeuristicSource() *HeuristicSource { return &HeuristicSource{} }

func (h *HeuristicSource) Name() string { return "heuristics" }

func (h *HeuristicSource) Score(_ context.Context, fp normalizer.Fingerprint) (Partial, error) {
	var s signals
	switch fp.Kind {
	case models.InputURL:
		h.url(fp, &s)
	case models.InputFile:
		if fp.FileName == "" {
			return Partial{}, ErrNotApplicable
		}
		h.file(fp, &s)
	default:
		// A bare digest has no structure to judge.
		return Partial{}, ErrNotApplicable
	}
	return Partial{Score: ClampScore(s.score), Reasons: s.reasons}, nil
}

type signals struct {
	score   int
	reasons []string
}

func (s *signals) add(weight int, reason string) {
	s.score += weight
	s.reasons = append(s.reasons, reason)
}

func (h *HeuristicSource) url(fp normalizer.Fingerprint, s *signals) {
	if fp.IsIP {
		s.add(30, "URL uses a raw IP address instead of a domain name.")
	}
	if fp.Scheme == "http" {
		s.add(10, "Connection is not encrypted (plain HTTP).")
	}
	if fp.Port != "" {
		s.add(10, fmt.Sprintf("URL uses a non-standard port (%s).", fp.Port))
	}
	if fp.HasUserinfo || strings.Contains(fp.Path, "@") || strings.Contains(fp.RawQuery, "@") {
		s.add(20, "URL contains an '@' character that can hide the real destination.")
	}
	if strings.Contains(fp.Host, "xn--") {
		s.add(25, "Domain uses punycode, which can imitate a trusted brand.")
	}
	if !fp.IsIP {
		if i := strings.LastIndexByte(fp.Host, '.'); i >= 0 && suspiciousTLDs[fp.Host[i+1:]] {
			s.add(15, fmt.Sprintf("Domain uses a top-level domain often abused for phishing (.%s).", fp.Host[i+1:]))
		}
		if sub := strings.TrimSuffix(fp.Host, fp.RegistrableDomain); strings.Count(sub, ".") >= 3 {
			s.add(15, "Domain has an unusually deep chain of subdomains.")
		}
		if shortenerHosts[fp.RegistrableDomain] {
			s.add(10, "URL goes through a link shortener that hides the destination.")
		}
	}
	lower := strings.ToLower(fp.Host + fp.Path + "?" + fp.RawQuery)
	for _, kw := range phishingKeywords {
		if strings.Contains(lower, kw) {
			s.add(15, fmt.Sprintf("URL contains the phishing-related keyword %q.", kw))
			break
		}
	}
	if len(fp.Value) > 120 {
		s.add(10, "URL is unusually long.")
	}
}

func (h *HeuristicSource) file(fp normalizer.Fingerprint, s *signals) {
	name := strings.ToLower(fp.FileName)
	ext := path.Ext(name)
	if !executableExts[ext] {
		return
	}
	s.add(35, fmt.Sprintf("File has an executable extension (%s).", ext))
	if inner := path.Ext(strings.TrimSuffix(name, ext)); documentExts[inner] {
		s.add(30, fmt.Sprintf("File name uses a double extension (%s%s) to look harmless.", inner, ext))
	}
}
