package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidSeed indicates a seed document that cannot be applied.
var ErrInvalidSeed = errors.New("catalog: invalid seed")

// SeedProject is the YAML shape of a project entry.
type SeedProject struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Code     string `yaml:"code,omitempty"`
	Category string `yaml:"category,omitempty"`
}

// SeedSet is the YAML shape of a set entry.
type SeedSet struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Project string `yaml:"project,omitempty"`
}

// Seed is the on-disk catalog document.
type Seed struct {
	Projects []SeedProject `yaml:"projects"`
	Sets     []SeedSet     `yaml:"sets"`
}

// ParseSeed decodes, validates and normalizes a YAML seed payload.
func ParseSeed(data []byte) (Seed, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Seed{}, fmt.Errorf("%w: payload is empty", ErrInvalidSeed)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("catalog: decode seed: %w", err)
	}
	seed = seed.normalized()
	if err := seed.validate(); err != nil {
		return Seed{}, err
	}
	return seed, nil
}

// LoadSeedFile reads a YAML seed document from disk.
func LoadSeedFile(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	seed, err := ParseSeed(data)
	if err != nil {
		return Seed{}, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return seed, nil
}

func (s Seed) normalized() Seed {
	projects := make([]SeedProject, 0, len(s.Projects))
	for _, project := range s.Projects {
		projects = append(projects, SeedProject{
			ID:       strings.TrimSpace(project.ID),
			Name:     strings.TrimSpace(project.Name),
			Code:     strings.TrimSpace(project.Code),
			Category: strings.TrimSpace(project.Category),
		})
	}
	sets := make([]SeedSet, 0, len(s.Sets))
	for _, set := range s.Sets {
		sets = append(sets, SeedSet{
			ID:      strings.TrimSpace(set.ID),
			Name:    strings.TrimSpace(set.Name),
			Project: strings.TrimSpace(set.Project),
		})
	}
	return Seed{Projects: projects, Sets: sets}
}

// validate checks the document on its own. Set project references are resolved by
// Service.Apply, which also consults previously stored projects.
func (s Seed) validate() error {
	projectIDs := make(map[string]struct{}, len(s.Projects))
	for index, project := range s.Projects {
		if project.ID == "" {
			return fmt.Errorf("%w: projects[%d].id is required", ErrInvalidSeed, index)
		}
		if project.Name == "" {
			return fmt.Errorf("%w: projects[%d].name is required", ErrInvalidSeed, index)
		}
		if _, exists := projectIDs[project.ID]; exists {
			return fmt.Errorf("%w: duplicate project id %q", ErrInvalidSeed, project.ID)
		}
		projectIDs[project.ID] = struct{}{}
	}

	setIDs := make(map[string]struct{}, len(s.Sets))
	for index, set := range s.Sets {
		if set.ID == "" {
			return fmt.Errorf("%w: sets[%d].id is required", ErrInvalidSeed, index)
		}
		if set.Name == "" {
			return fmt.Errorf("%w: sets[%d].name is required", ErrInvalidSeed, index)
		}
		if _, exists := setIDs[set.ID]; exists {
			return fmt.Errorf("%w: duplicate set id %q", ErrInvalidSeed, set.ID)
		}
		setIDs[set.ID] = struct{}{}
	}
	return nil
}
