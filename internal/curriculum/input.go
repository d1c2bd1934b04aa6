package curriculum

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadProgramInput reads a programme input file in YAML form.
func LoadProgramInput(path string) (*ProgramInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read programme input %s: %w", path, err)
	}

	var input ProgramInput
	if err := yaml.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("parse programme input %s: %w", path, err)
	}
	return &input, nil
}
