package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/conveyor-engine/conveyor/pkg/schema"
)

// DefaultFileName is the pipeline definition looked up when no --config
// flag is given.
const DefaultFileName = "pipelines.yml"

// Locate resolves the pipeline definition path. An explicit path is used
// as-is; otherwise the default file name is searched in the working
// directory, next to the executable, and one level above the executable.
func Locate(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", schema.NewErrorf(schema.ErrCodeConfig,
				"config file %s not found", explicit).WithCause(err)
		}
		return explicit, nil
	}

	var searched []string
	for _, dir := range candidateDirs() {
		candidate := filepath.Join(dir, DefaultFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		searched = append(searched, candidate)
	}

	return "", schema.NewErrorf(schema.ErrCodeConfig,
		"no %s found; pass --config or place one next to the binary", DefaultFileName).
		WithDetails(map[string]any{"searched": searched})
}

func candidateDirs() []string {
	dirs := []string{"."}
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		dirs = append(dirs, exeDir, filepath.Dir(exeDir))
	}
	return dirs
}

// Load reads, validates, and decodes a pipeline definition file.
func Load(path string) (*schema.PipelineFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeConfig,
			"cannot read config %s", path).WithCause(err)
	}
	return Parse(raw, path)
}

// Parse validates and decodes raw YAML pipeline definition bytes. The
// source name is used for error reporting only.
func Parse(raw []byte, source string) (*schema.PipelineFile, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeConfig,
			"malformed YAML in %s", source).WithCause(err)
	}
	if doc == nil {
		return nil, schema.NewErrorf(schema.ErrCodeConfig, "empty config %s", source)
	}

	if err := ValidateDocument(doc); err != nil {
		return nil, err
	}

	var file schema.PipelineFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeConfig,
			"cannot decode config %s", source).WithCause(err)
	}

	if file.Use == "" && len(file.Pipelines) == 1 {
		for name := range file.Pipelines {
			file.Use = name
		}
	}
	if file.Use == "" {
		return nil, schema.NewErrorf(schema.ErrCodeConfig,
			"config %s declares multiple pipelines but no use selector", source).
			WithDetails(map[string]any{"available": file.PipelineNames()})
	}

	return &file, nil
}
