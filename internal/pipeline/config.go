package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/adaptive-gen/go-engine/internal/inputs"
)

// #region yaml-types

// fileDefinition mirrors Definition with YAML tags.
type fileDefinition struct {
	Name   string      `yaml:"name"`
	Stages []fileStage `yaml:"stages"`
}

// fileStage mirrors StageSpec with YAML tags. input_constructors maps a
// purpose token ("n" or "fixed_features") to a constructor token.
type fileStage struct {
	Name              string            `yaml:"name"`
	PerCallDefault    int               `yaml:"default_count_per_call"`
	InputConstructors map[string]string `yaml:"input_constructors"`
}

// #endregion yaml-types

// #region load

// Load reads and validates a pipeline definition from a YAML file.
func Load(path string) (Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read pipeline definition: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML pipeline definition. Every
// constructor token must be a registered identifier bound under the
// purpose it produces; this holds the whole registry invariant at load
// time instead of at dispatch time.
func Parse(raw []byte) (Definition, error) {
	var fd fileDefinition
	if err := yaml.Unmarshal(raw, &fd); err != nil {
		return Definition{}, fmt.Errorf("parse pipeline definition: %w", err)
	}
	if fd.Name == "" {
		return Definition{}, fmt.Errorf("pipeline definition has no name")
	}
	if len(fd.Stages) == 0 {
		return Definition{}, fmt.Errorf("pipeline %q defines no stages", fd.Name)
	}

	def := Definition{Name: fd.Name, Stages: make([]StageSpec, 0, len(fd.Stages))}
	for _, fs := range fd.Stages {
		if fs.Name == "" {
			return Definition{}, fmt.Errorf("pipeline %q has a stage with no name", fd.Name)
		}
		spec := StageSpec{
			Name:           fs.Name,
			PerCallDefault: fs.PerCallDefault,
			Constructors:   make(map[inputs.Purpose]inputs.ConstructorID, len(fs.InputConstructors)),
		}
		for purposeToken, ctorToken := range fs.InputConstructors {
			purpose := inputs.Purpose(purposeToken)
			if purpose != inputs.PurposeCount && purpose != inputs.PurposeFixedFeatures {
				return Definition{}, fmt.Errorf(
					"stage %q: unknown input constructor purpose %q", fs.Name, purposeToken)
			}
			id := inputs.ConstructorID(ctorToken)
			declared, ok := inputs.PurposeOf(id)
			if !ok {
				return Definition{}, fmt.Errorf(
					"stage %q: unknown input constructor %q", fs.Name, ctorToken)
			}
			if declared != purpose {
				return Definition{}, fmt.Errorf(
					"stage %q: constructor %q produces %q, bound under %q",
					fs.Name, ctorToken, declared, purpose)
			}
			spec.Constructors[purpose] = id
		}
		if _, ok := spec.Constructors[inputs.PurposeCount]; !ok {
			return Definition{}, fmt.Errorf(
				"stage %q binds no count constructor", fs.Name)
		}
		def.Stages = append(def.Stages, spec)
	}
	return def, nil
}

// #endregion load
