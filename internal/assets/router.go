package assets

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/gobwas/glob"

	"github.com/wolfeidau/assetbuild/internal/config"
)

// NoRule is returned by Router.Match for assets no rule claims.
const NoRule = -1

type compiledRule struct {
	name    string
	test    *regexp.Regexp
	include []string
	exclude []glob.Glob
}

// Router classifies assets against an ordered rule list, first match wins.
type Router struct {
	rules []compiledRule
}

// NewRouter compiles every rule's test, include and exclude patterns.
func NewRouter(rules []config.AssetRule) (*Router, error) {
	r := &Router{rules: make([]compiledRule, len(rules))}
	for i, rule := range rules {
		test, err := regexp.Compile(rule.Test)
		if err != nil {
			return nil, fmt.Errorf("rule %s: invalid test: %w", rule.Name, err)
		}

		exclude, err := compileGlobs(rule.Exclude)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.Name, err)
		}

		include := make([]string, len(rule.Include))
		for j, inc := range rule.Include {
			include[j] = strings.TrimSuffix(path.Clean(inc), "/")
		}

		r.rules[i] = compiledRule{name: rule.Name, test: test, include: include, exclude: exclude}
	}
	return r, nil
}

// Match returns the index of the first rule claiming p, or NoRule.
func (r *Router) Match(p string) int {
	for i, rule := range r.rules {
		if rule.matches(p) {
			return i
		}
	}
	return NoRule
}

func (c compiledRule) matches(p string) bool {
	if len(c.include) > 0 && !underAny(p, c.include) {
		return false
	}
	if !c.test.MatchString(p) {
		return false
	}
	return !matchAny(c.exclude, p)
}

func underAny(p string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix == "." || p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, len(patterns))
	for i, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
		}
		globs[i] = g
	}
	return globs, nil
}

func matchAny(globs []glob.Glob, p string) bool {
	for _, g := range globs {
		if g.Match(p) {
			return true
		}
	}
	return false
}
