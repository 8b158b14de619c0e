package config

import (
	"fmt"
	"sort"

	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

// ParseRule is the selector and attribute of a single extracted field.
type ParseRule struct {
	Selector string `json:"selector" yaml:"selector"`
	Attr     string `json:"attr" yaml:"attr"`
}

// NamedParseRule is a ParseRule with the field name it is stored under.
type NamedParseRule struct {
	Name string
	ParseRule
}

// ParseRules is the `parse` mapping of a listing. Yaml documents keep the
// order fields are written in, json5 ones are sorted by name.
type ParseRules []NamedParseRule

func (p *ParseRules) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: parse must be a mapping", value.Line)
	}
	var out ParseRules
	for i := 0; i+1 < len(value.Content); i += 2 {
		var rule ParseRule
		err := value.Content[i+1].Decode(&rule)
		if err != nil {
			return err
		}
		out = append(out, NamedParseRule{Name: value.Content[i].Value, ParseRule: rule})
	}
	*p = out
	return nil
}

func (p *ParseRules) UnmarshalJSON(data []byte) error {
	var rules map[string]ParseRule
	err := json5.Unmarshal(data, &rules)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(ParseRules, 0, len(names))
	for _, name := range names {
		out = append(out, NamedParseRule{Name: name, ParseRule: rules[name]})
	}
	*p = out
	return nil
}
