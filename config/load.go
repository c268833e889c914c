package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inspectIT/inspectit-ocelot-sub003/errors"
)

// Load reads the YAML file at path over Default() and validates the result.
func Load(path string) (*Raw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "read "+path)
	}
	return Parse(data)
}

// Parse decodes YAML settings over Default() and validates the result.
func Parse(data []byte) (*Raw, error) {
	raw := Default()
	if err := yaml.Unmarshal(data, raw); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidConfig, err, "decode settings")
	}
	if err := Validate(raw); err != nil {
		return nil, err
	}
	return raw, nil
}
