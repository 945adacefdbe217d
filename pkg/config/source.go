package config

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// SourceConfig describes one data source. Params holds the type-specific
// parameters and is decoded by the factory. Composite sources list their
// children in Sources.
type SourceConfig struct {
	Type    string         `yaml:"type" json:"type"`
	Name    string         `yaml:"name,omitempty" json:"name,omitempty"`
	Seed    *uint64        `yaml:"seed,omitempty" json:"seed,omitempty"`
	Assets  []string       `yaml:"assets,omitempty" json:"assets,omitempty"`
	Params  yaml.Node      `yaml:"params,omitempty" json:"-" validate:"-"`
	Sources []SourceConfig `yaml:"sources,omitempty" json:"sources,omitempty" validate:"-"`
}

// Validate checks the tree shape; parameters are checked by the factory.
func (s *SourceConfig) Validate() error {
	if s.Type == "" {
		return errors.New("type is required")
	}
	if s.Type == "composite" {
		if len(s.Sources) == 0 {
			return errors.New("composite needs at least one source")
		}
		for i := range s.Sources {
			if err := s.Sources[i].Validate(); err != nil {
				return fmt.Errorf("sources[%d]: %w", i, err)
			}
		}
	} else if len(s.Sources) > 0 {
		return fmt.Errorf("%s does not take sources", s.Type)
	}
	return nil
}

// HasParams reports whether params were given.
func (s *SourceConfig) HasParams() bool {
	return s.Params.Kind != 0
}

// DecodeParams decodes Params into out, rejecting unknown keys. out keeps
// its values for keys that are not set.
func (s *SourceConfig) DecodeParams(out interface{}) error {
	if !s.HasParams() {
		return nil
	}
	b, err := yaml.Marshal(&s.Params)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	return dec.Decode(out)
}

// Param returns the scalar value of key in Params.
func (s *SourceConfig) Param(key string) (string, bool) {
	if s.Params.Kind != yaml.MappingNode {
		return "", false
	}
	for i := 0; i+1 < len(s.Params.Content); i += 2 {
		if s.Params.Content[i].Value == key {
			return s.Params.Content[i+1].Value, true
		}
	}
	return "", false
}

// SetParam sets a scalar parameter, creating the mapping when needed.
func (s *SourceConfig) SetParam(key, value string) {
	if s.Params.Kind != yaml.MappingNode {
		s.Params = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	for i := 0; i+1 < len(s.Params.Content); i += 2 {
		if s.Params.Content[i].Value == key {
			s.Params.Content[i+1] = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
			return
		}
	}
	s.Params.Content = append(s.Params.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}

// UsesClickHouse reports whether any reader in the tree reads from ClickHouse.
func (s *SourceConfig) UsesClickHouse() bool {
	if v, ok := s.Param("store"); ok && v == "clickhouse" {
		return true
	}
	for i := range s.Sources {
		if s.Sources[i].UsesClickHouse() {
			return true
		}
	}
	return false
}
