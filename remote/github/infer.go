package github

import (
	"net/url"
	"strings"
)

// InferRepository guesses owner and repository from the address of a site
// published on GitHub Pages. A project site lives under its repository name
// (owner.github.io/repo); a user site is the owner.github.io repository.
func InferRepository(pageURL string) (owner, repo string, ok bool) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", "", false
	}
	host := strings.ToLower(u.Hostname())
	if !strings.HasSuffix(host, ".github.io") {
		return "", "", false
	}
	owner = strings.TrimSuffix(host, ".github.io")
	if owner == "" || strings.Contains(owner, ".") {
		return "", "", false
	}

	first, _, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")
	if first == "" {
		return owner, owner + ".github.io", true
	}
	return owner, first, true
}
