package config

import (
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/30Piraten/sqs-alarms/alarms"
)

// AlarmsKey is the key under custom that holds the alarm groups.
const AlarmsKey = "sqs-alarms"

// Service is the part of a serverless-style service file this project reads.
type Service struct {
	Service  string `yaml:"service"`
	Provider struct {
		Name   string `yaml:"name"`
		Region string `yaml:"region"`
	} `yaml:"provider"`
	Custom struct {
		SQSAlarms []alarms.GroupSpec `yaml:"sqs-alarms"`
	} `yaml:"custom"`
}

// Groups returns the configured alarm groups. A service without custom or
// without the alarms key has none.
func (s *Service) Groups() []alarms.GroupSpec {
	if s == nil {
		return nil
	}
	return s.Custom.SQSAlarms
}

// Select returns the groups whose queue matches any of the glob patterns, in
// configuration order. No patterns selects every group.
func (s *Service) Select(patterns ...string) ([]alarms.GroupSpec, error) {
	groups := s.Groups()
	if len(patterns) == 0 {
		return groups, nil
	}
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "queue pattern %q", p)
		}
		globs = append(globs, g)
	}

	var out []alarms.GroupSpec
	for _, g := range groups {
		for _, m := range globs {
			if m.Match(g.Queue) {
				out = append(out, g)
				break
			}
		}
	}
	return out, nil
}

// Parse decodes a service file. Empty input is a service without alarms.
func Parse(data []byte) (*Service, error) {
	var s Service
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "parse service file")
	}
	return &s, nil
}
