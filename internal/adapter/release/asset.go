package release

import (
	"strings"

	"github.com/quill-lang/quillup/internal/domain"
)

// assetRule matches an asset name when every required substring is present
// and no excluded substring is. Matching is case-insensitive.
type assetRule struct {
	required []string
	excluded []string
}

func (r assetRule) matches(name string) bool {
	name = strings.ToLower(name)
	for _, s := range r.required {
		if !strings.Contains(name, s) {
			return false
		}
	}
	for _, s := range r.excluded {
		if strings.Contains(name, s) {
			return false
		}
	}
	return true
}

var osNames = map[string][]string{
	"linux":   {"linux"},
	"darwin":  {"macos", "darwin"},
	"windows": {"windows"},
}

var archNames = map[string][]string{
	"amd64": {"x86_64", "x64", "amd64"},
	"arm64": {"arm64", "aarch64"},
}

// rulesFor builds the ordered candidate rules for a platform, most
// specific first: architecture-qualified names, then a generic OS name
// that excludes every other architecture's markers.
func rulesFor(goos, goarch string) []assetRule {
	oss := osNames[goos]
	archs := archNames[goarch]
	if len(oss) == 0 {
		return nil
	}

	var rules []assetRule
	for _, o := range oss {
		for _, a := range archs {
			rules = append(rules, assetRule{required: []string{o, a}})
		}
	}

	var foreign []string
	for arch, names := range archNames {
		if arch == goarch {
			continue
		}
		foreign = append(foreign, names...)
	}
	for _, o := range oss {
		rules = append(rules, assetRule{required: []string{o}, excluded: foreign})
	}
	return rules
}

// SelectAsset picks the best-matching downloadable asset for the given
// platform, scanning rules most-specific-first and assets in their given
// order within each rule. It returns false when nothing matches, which
// callers must treat as an unsupported platform rather than a retryable
// error.
func SelectAsset(assets []domain.Asset, goos, goarch string) (domain.Asset, bool) {
	for _, rule := range rulesFor(goos, goarch) {
		for _, a := range assets {
			if rule.matches(a.Name) {
				return a, true
			}
		}
	}
	return domain.Asset{}, false
}
