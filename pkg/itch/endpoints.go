package itch

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"itcharchive/pkg/errors"
)

const (
	// DefaultMaxPages bounds listing pagination when the client is built
	// without a configured limit
	DefaultMaxPages = 50

	// PageParam is the query parameter itch.io uses for creator page pagination
	PageParam = "page"
)

var creatorPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// NormalizeCreator trims and lowercases a creator identifier and checks it
// against the subdomain alphabet itch.io accepts.
func NormalizeCreator(creator string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(creator))
	if c == "" {
		return "", errors.InvalidInput("creator name is required")
	}
	if !creatorPattern.MatchString(c) {
		return "", errors.InvalidInput("invalid creator name, use the itch.io username (letters, numbers, hyphens)")
	}
	return c, nil
}

// IsValidCreator reports whether creator is usable as-is or after normalizing
func IsValidCreator(creator string) bool {
	_, err := NormalizeCreator(creator)
	return err == nil
}

// CreatorPageURL returns the URL of listing page n (1-based) for a creator
// page base URL. Page 1 is the bare base URL.
func CreatorPageURL(base string, page int) string {
	if page <= 1 {
		return base
	}
	u, err := url.Parse(base)
	if err != nil {
		return base + "?" + PageParam + "=" + strconv.Itoa(page)
	}
	q := u.Query()
	q.Set(PageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

// resolve makes href absolute against base, returning "" when href is empty
// or unparsable.
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
