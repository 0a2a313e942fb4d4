package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"

	"github.com/mojo333/mdns-repeater/internal/errors"
)

// LoadFile loads a config file. The format follows the extension: .json,
// .yaml/.yml or .hcl. Anything else is tried as JSON, YAML and HCL in turn.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindValidation, "failed to read config file %s", path)
	}

	var cfg *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		cfg, err = LoadJSON(data)
	case ".yaml", ".yml":
		cfg, err = LoadYAML(data)
	case ".hcl":
		cfg, err = LoadHCL(data, path)
	default:
		cfg, err = loadAny(data, path)
	}
	if err != nil {
		return nil, errors.Attr(err, "path", path)
	}
	return cfg, nil
}

func loadAny(data []byte, filename string) (*Config, error) {
	cfg, jsonErr := LoadJSON(data)
	if jsonErr == nil {
		return cfg, nil
	}
	cfg, yamlErr := LoadYAML(data)
	if yamlErr == nil {
		return cfg, nil
	}
	cfg, hclErr := LoadHCL(data, filename)
	if hclErr == nil {
		return cfg, nil
	}
	return nil, errors.Errorf(errors.KindValidation,
		"config is neither JSON (%v), YAML (%v) nor HCL (%v)", jsonErr, yamlErr, hclErr)
}

// LoadJSON loads config from JSON bytes, the format of the original tool:
//
//	{"interfaces": "^lan.*$", "rules": [{"from": "lan-home", "to": "lan-iot", "allow_questions": ".*"}]}
func LoadJSON(data []byte) (*Config, error) {
	var fc fileConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, "failed to parse JSON")
	}
	return fc.compile()
}

// LoadYAML loads config from YAML bytes.
func LoadYAML(data []byte) (*Config, error) {
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, "failed to parse YAML")
	}
	return fc.compile()
}

// LoadHCL loads config from HCL bytes. Rules are repeated blocks:
//
//	interfaces = "^lan.*$"
//	rule {
//	  from            = "lan-home"
//	  to              = "lan-iot"
//	  allow_questions = ".*"
//	}
func LoadHCL(data []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.Wrap(diags, errors.KindValidation, "failed to parse HCL")
	}

	var fc fileConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &fc); diags.HasErrors() {
		return nil, errors.Wrap(diags, errors.KindValidation, "failed to decode HCL")
	}
	return fc.compile()
}
