// Package useragent classifies user-agent strings into browser, device and
// bot signals using an embedded, ordered regex rule database. Rules use PCRE
// syntax (lookahead in particular), matching the upstream rule conventions.
package useragent

import (
	_ "embed"
	"fmt"
	"sync"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

// UserAgent is the parsed classification of one user-agent string. Fields
// that cannot be determined stay empty; parsing never fails hard.
type UserAgent struct {
	Browser        string
	BrowserVersion string
	DeviceModel    string
	DeviceType     string
	Bot            bool
}

//go:embed rules.yml
var rulesFile []byte

type botRule struct {
	Regex string `yaml:"regex"`
}

type browserRule struct {
	Regex string `yaml:"regex"`
	Name  string `yaml:"name"`
}

type deviceRule struct {
	Regex string `yaml:"regex"`
	Model string `yaml:"model"`
	Type  string `yaml:"type"`
}

type ruleDatabase struct {
	Bots     []botRule     `yaml:"bots"`
	Browsers []browserRule `yaml:"browsers"`
	Devices  []deviceRule  `yaml:"devices"`
}

type compiledRules struct {
	bots     []*pcre.Regexp
	browsers []struct {
		regex *pcre.Regexp
		name  string
	}
	devices []struct {
		regex *pcre.Regexp
		model string
		kind  string
	}
}

var (
	rules     *compiledRules
	rulesOnce sync.Once
	rulesErr  error
)

func loadRules() (*compiledRules, error) {
	var db ruleDatabase
	if err := yaml.Unmarshal(rulesFile, &db); err != nil {
		return nil, fmt.Errorf("failed to parse user-agent rules: %w", err)
	}

	compiled := &compiledRules{}
	for _, rule := range db.Bots {
		re, err := pcre.Compile(rule.Regex)
		if err != nil {
			return nil, fmt.Errorf("bad bot rule %q: %w", rule.Regex, err)
		}
		compiled.bots = append(compiled.bots, re)
	}
	for _, rule := range db.Browsers {
		re, err := pcre.Compile(rule.Regex)
		if err != nil {
			return nil, fmt.Errorf("bad browser rule %q: %w", rule.Regex, err)
		}
		compiled.browsers = append(compiled.browsers, struct {
			regex *pcre.Regexp
			name  string
		}{re, rule.Name})
	}
	for _, rule := range db.Devices {
		re, err := pcre.Compile(rule.Regex)
		if err != nil {
			return nil, fmt.Errorf("bad device rule %q: %w", rule.Regex, err)
		}
		compiled.devices = append(compiled.devices, struct {
			regex *pcre.Regexp
			model string
			kind  string
		}{re, rule.Model, rule.Type})
	}
	return compiled, nil
}

// Parse classifies a user-agent string. An empty input, an unmatched string
// or a rule-loading problem all degrade to an empty classification.
func Parse(ua string) UserAgent {
	if ua == "" {
		return UserAgent{}
	}

	rulesOnce.Do(func() {
		rules, rulesErr = loadRules()
	})
	if rulesErr != nil || rules == nil {
		return UserAgent{}
	}

	result := UserAgent{}
	for _, re := range rules.bots {
		if re.MatchString(ua) {
			result.Bot = true
			break
		}
	}

	for _, rule := range rules.browsers {
		if match := rule.regex.FindStringSubmatch(ua); match != nil {
			result.Browser = rule.name
			if len(match) > 1 {
				result.BrowserVersion = match[1]
			}
			break
		}
	}

	for _, rule := range rules.devices {
		if rule.regex.MatchString(ua) {
			result.DeviceModel = rule.model
			result.DeviceType = rule.kind
			break
		}
	}

	return result
}
