// Package orchestration runs batches of questions through the wizard,
// sequentially or with a bounded worker pool. Sessions in a batch share
// nothing but the database pool.
package orchestration

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Script is a batch of questions loaded from a YAML file.
type Script struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Config      RunConfig  `yaml:"config,omitempty"`
	Questions   []Question `yaml:"questions"`
}

// RunConfig controls batch execution behavior.
type RunConfig struct {
	Concurrent  bool `yaml:"parallel,omitempty"`
	Workers     int  `yaml:"max_workers,omitempty"`
	StopOnError bool `yaml:"fail_fast,omitempty"`
}

// Question is one batch entry. In YAML it may be a bare string or a
// mapping with an explicit id.
type Question struct {
	ID   string `yaml:"id,omitempty"`
	Text string `yaml:"text"`
}

// UnmarshalYAML accepts both the scalar and mapping forms.
func (q *Question) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		q.Text = node.Value
		return nil
	}
	type plain Question
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*q = Question(p)
	return nil
}

// LoadScript loads and validates a batch script from a YAML file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parsing script %s: %w", path, err)
	}

	if err := script.Validate(); err != nil {
		return nil, fmt.Errorf("invalid script %s: %w", path, err)
	}
	script.applyDefaults()

	return &script, nil
}

// Validate checks that the script can run.
func (s *Script) Validate() error {
	if len(s.Questions) == 0 {
		return fmt.Errorf("script has no questions")
	}
	for i, q := range s.Questions {
		if strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("question %d has no text", i+1)
		}
	}
	if s.Config.Workers < 0 {
		return fmt.Errorf("max_workers must not be negative, got %d", s.Config.Workers)
	}
	return nil
}

func (s *Script) applyDefaults() {
	if s.Config.Concurrent && s.Config.Workers == 0 {
		s.Config.Workers = 4
	}
	for i := range s.Questions {
		if s.Questions[i].ID == "" {
			s.Questions[i].ID = fmt.Sprintf("q-%d", i+1)
		}
	}
}
