package request

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// RepositoryRef identifies a clonable repository on a hosting service
type RepositoryRef struct {
	Raw   string
	Host  string
	Owner string
	Name  string
	SSH   bool
}

var (
	sshPattern     = regexp.MustCompile(`^git@([A-Za-z0-9.-]+):([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+?)(?:\.git)?/?$`)
	segmentPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// ParseRepositoryRef accepts https://host/owner/repo[.git] and git@host:owner/repo[.git]
func ParseRepositoryRef(raw string) (RepositoryRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RepositoryRef{}, fmt.Errorf("repository reference is empty")
	}

	if m := sshPattern.FindStringSubmatch(raw); m != nil {
		return RepositoryRef{Raw: raw, Host: m[1], Owner: m[2], Name: m[3], SSH: true}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return RepositoryRef{}, fmt.Errorf("repository reference %q is not a URL: %w", raw, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return RepositoryRef{}, fmt.Errorf("repository reference %q must use https or git@ form", raw)
	}
	if u.Host == "" {
		return RepositoryRef{}, fmt.Errorf("repository reference %q has no host", raw)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 {
		return RepositoryRef{}, fmt.Errorf("repository reference %q must name owner/repository", raw)
	}
	owner, name := parts[0], strings.TrimSuffix(parts[1], ".git")
	if !segmentPattern.MatchString(owner) || !segmentPattern.MatchString(name) {
		return RepositoryRef{}, fmt.Errorf("repository reference %q has invalid owner or name", raw)
	}

	return RepositoryRef{Raw: raw, Host: u.Host, Owner: owner, Name: name}, nil
}

// FullName returns "owner/name"
func (r RepositoryRef) FullName() string {
	return r.Owner + "/" + r.Name
}

// CloneURL returns the URL git should clone from. For https references a non-empty token
// is embedded as basic-auth credentials so that push works without a credential helper.
func (r RepositoryRef) CloneURL(token string) string {
	if r.SSH {
		return fmt.Sprintf("git@%s:%s.git", r.Host, r.FullName())
	}
	if token == "" {
		return fmt.Sprintf("https://%s/%s.git", r.Host, r.FullName())
	}
	return fmt.Sprintf("https://x-access-token:%s@%s/%s.git", url.PathEscape(token), r.Host, r.FullName())
}

// String returns the canonical https form, never including credentials
func (r RepositoryRef) String() string {
	return fmt.Sprintf("https://%s/%s", r.Host, r.FullName())
}
