// Package stageconfig loads the deployment's stage sequence and line list
// from a YAML file. Stage positions follow the order of the stages list.
package stageconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/prodline-labs/prodline-go/internal/domain"
)

const SchemaV1 = "prodline.stages.v1"

type File struct {
	Schema string      `yaml:"schema"`
	Stages []StageSpec `yaml:"stages"`
	Lines  []LineSpec  `yaml:"lines,omitempty"`
}

type StageSpec struct {
	ID          int64  `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

type LineSpec struct {
	ID       int64  `yaml:"id"`
	Name     string `yaml:"name"`
	Location string `yaml:"location,omitempty"`
}

// Config is the resolved, validated configuration.
type Config struct {
	Stages domain.StageSequence
	Lines  []domain.Line
}

// Default is the five-stage, five-line layout.
func Default() Config {
	return Config{Stages: domain.MustDefaultSequence(), Lines: domain.DefaultLines()}
}

// Load reads path, or returns Default when path is empty.
func Load(path string) (Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read stage file: %w", err)
	}
	return Parse(raw)
}

func Parse(input []byte) (Config, error) {
	var f File
	if err := yaml.Unmarshal(input, &f); err != nil {
		return Config{}, fmt.Errorf("decode stage file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return Config{}, err
	}
	return f.resolve()
}

func (f File) Validate() error {
	if strings.TrimSpace(f.Schema) != SchemaV1 {
		return fmt.Errorf("schema must be %q", SchemaV1)
	}
	if len(f.Stages) == 0 {
		return errors.New("stages must be non-empty")
	}
	seen := make(map[int64]struct{}, len(f.Lines))
	for i, l := range f.Lines {
		if l.ID <= 0 {
			return fmt.Errorf("lines[%d].id must be positive", i)
		}
		if strings.TrimSpace(l.Name) == "" {
			return fmt.Errorf("lines[%d].name is required", i)
		}
		if _, dup := seen[l.ID]; dup {
			return fmt.Errorf("lines[%d].id %d is duplicated", i, l.ID)
		}
		seen[l.ID] = struct{}{}
	}
	return nil
}

func (f File) resolve() (Config, error) {
	stages := make([]domain.Stage, len(f.Stages))
	for i, s := range f.Stages {
		stages[i] = domain.Stage{
			ID:          s.ID,
			Position:    i + 1,
			Name:        strings.TrimSpace(s.Name),
			Description: strings.TrimSpace(s.Description),
		}
	}
	seq, err := domain.NewStageSequence(stages)
	if err != nil {
		return Config{}, fmt.Errorf("stages: %w", err)
	}

	lines := domain.DefaultLines()
	if len(f.Lines) > 0 {
		lines = make([]domain.Line, len(f.Lines))
		for i, l := range f.Lines {
			lines[i] = domain.Line{ID: l.ID, Name: strings.TrimSpace(l.Name), Location: strings.TrimSpace(l.Location)}
		}
	}
	return Config{Stages: seq, Lines: lines}, nil
}
