// Package normalizer canonicalizes scan inputs into comparable fingerprints.
package normalizer

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/cl0udz1/cyber-guard-platfrom/internal/apperr"
	"github.com/cl0udz1/cyber-guard-platfrom/internal/models"
)

// Fingerprint is the canonical form of a scan input.
type Fingerprint struct {
	Kind  models.InputKind
	Value string

	// URL inputs only.
	Scheme            string
	Host              string
	Port              string
	RegistrableDomain string
	IsIP              bool
	// HasUserinfo is set when the raw URL carried "user@" before the host.
	// The userinfo itself is dropped from Value.
	HasUserinfo bool
	Path        string
	RawQuery          string

	// File inputs only; used by heuristics, never persisted.
	FileName string
	Size     int64
}

// Key identifies the fingerprint for caching and deduplication.
func (f Fingerprint) Key() string {
	return string(f.Kind) + ":" + f.Value
}

// NormalizeURL canonicalizes a URL. Inputs without a scheme are treated as https.
func NormalizeURL(raw string) (Fingerprint, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Fingerprint{}, apperr.InvalidInput("URL cannot be empty.")
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return Fingerprint{}, apperr.InvalidInput("URL is invalid.")
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return Fingerprint{}, apperr.InvalidInput("Only http and https URLs can be scanned.")
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" || strings.ContainsAny(host, " \t") {
		return Fingerprint{}, apperr.InvalidInput("URL is invalid.")
	}
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}

	isIP := net.ParseIP(host) != nil
	if !isIP && !strings.Contains(host, ".") && host != "localhost" {
		return Fingerprint{}, apperr.InvalidInput("URL is invalid.")
	}

	registrable := host
	if !isIP {
		if etld1, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
			registrable = etld1
		}
	}

	p := u.EscapedPath()
	if p == "/" {
		p = ""
	}

	canonical := &url.URL{Scheme: scheme, Host: hostPort(host, port), RawQuery: u.RawQuery}
	if p != "" {
		canonical.RawPath = p
		canonical.Path, _ = url.PathUnescape(p)
	}

	return Fingerprint{
		Kind:              models.InputURL,
		Value:             canonical.String(),
		Scheme:            scheme,
		Host:              host,
		Port:              port,
		RegistrableDomain: registrable,
		IsIP:              isIP,
		HasUserinfo:       u.User != nil,
		Path:              p,
		RawQuery:          u.RawQuery,
	}, nil
}

func hostPort(host, port string) string {
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port == "" {
		return host
	}
	return host + ":" + port
}

// NormalizeFile hashes the full content with SHA-256. The content is never executed.
func NormalizeFile(name string, r io.Reader) (Fingerprint, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return Fingerprint{}, apperr.InvalidInput("Uploaded file could not be read.")
	}
	if n == 0 {
		return Fingerprint{}, apperr.InvalidInput("Uploaded file is empty.")
	}
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "." || base == "/" {
		base = ""
	}
	return Fingerprint{
		Kind:     models.InputFile,
		Value:    hex.EncodeToString(h.Sum(nil)),
		FileName: base,
		Size:     n,
	}, nil
}

// NormalizeHash accepts MD5, SHA-1 and SHA-256 hex digests.
func NormalizeHash(raw string) (Fingerprint, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch len(s) {
	case 32, 40, 64:
	default:
		return Fingerprint{}, apperr.InvalidInput("Hash must be an MD5, SHA-1 or SHA-256 hex digest.")
	}
	if _, err := hex.DecodeString(s); err != nil {
		return Fingerprint{}, apperr.InvalidInput("Hash must be an MD5, SHA-1 or SHA-256 hex digest.")
	}
	return Fingerprint{Kind: models.InputHash, Value: s}, nil
}
