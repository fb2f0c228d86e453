package config

import (
	"fmt"
	"os"

	"census-pipeline/internal/boost"

	"gopkg.in/yaml.v2"
)

// LoadParams returns the boosting hyperparameters, starting from the
// defaults and applying overrides from the yaml file at path when one is
// given. Missing keys in the file keep their default values.
func LoadParams(path string) (boost.Params, error) {
	params := boost.DefaultParams()

	if path == "" {
		return params, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return params, fmt.Errorf("unable to read params file '%s': %w", path, err)
	}

	if err := yaml.Unmarshal(data, &params); err != nil {
		return params, fmt.Errorf("unable to parse params file '%s': %w", path, err)
	}

	return params, nil
}
