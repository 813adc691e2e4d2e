package sequence

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Version is the program format understood.
const Version = "seq.v1"

// ParseProgram decodes a YAML program. Durations are Go duration strings.
func ParseProgram(b []byte) (Program, error) {
	var p Program
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Program{}, err
	}
	if p.Version == "" {
		p.Version = Version
	}
	if p.Version != Version {
		return Program{}, fmt.Errorf("unsupported program version %q", p.Version)
	}
	if len(p.Clips) == 0 {
		return Program{}, ErrEmptyProgram
	}
	return p, nil
}

// LoadProgram reads a YAML program from path.
func LoadProgram(path string) (Program, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Program{}, err
	}
	p, err := ParseProgram(b)
	if err != nil {
		return Program{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
