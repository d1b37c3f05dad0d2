package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
	assert.True(t, cfg.Checks.SliceCycles)
	assert.Len(t, cfg.Markers.SafeParameterTypes, 3)
	assert.Equal(t, "**", cfg.Slices.Pattern)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Markers, cfg.Markers)
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "archcheck.yaml", `
output_dir: out/arch
exclude:
  - "**/*Test.class"
checks:
  factory_post_processors: false
slices:
  pattern: "com.example.**"
  depth: 3
rules:
  - name: no field injection
    elements: fields
    that:
      annotated_with: org.springframework.beans.factory.annotation.Autowired
    should:
      static: true
    priority: HIGH
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "out/arch", cfg.OutputDir)
	assert.Equal(t, []string{"**/*Test.class"}, cfg.Exclude)
	assert.True(t, cfg.Checks.SliceCycles, "unset keys keep defaults")
	assert.False(t, cfg.Checks.FactoryPostProcessors)
	assert.Equal(t, 3, cfg.Slices.Depth)
	assert.Equal(t, 20, cfg.Slices.MaxDependencies)
	assert.Equal(t, "org.springframework.context.annotation.Bean", cfg.Markers.Bean)

	require.Len(t, cfg.Rules, 1)
	r := cfg.Rules[0]
	assert.Equal(t, "fields", r.Elements)
	assert.Equal(t, "org.springframework.beans.factory.annotation.Autowired", r.That.AnnotatedWith)
	require.NotNil(t, r.Should.Static)
	assert.True(t, *r.Should.Static)
	assert.Equal(t, "HIGH", r.Priority)
}

func TestLoadTOML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "archcheck.toml", `
output_dir = "target/arch"

[markers]
bean = "com.acme.Provides"
lazy = "com.acme.Deferred"
bean_post_processor = "com.acme.Processor"
bean_factory_post_processor = "com.acme.FactoryProcessor"
safe_parameter_types = ["com.acme.Provider"]

[[rules]]
name = "services are final"
elements = "classes"
allow_empty = true
[rules.that]
name_matching = "com.acme.**.*Service"
[rules.should]
no_parameters = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "target/arch", cfg.OutputDir)
	assert.Equal(t, "com.acme.Provides", cfg.Markers.Bean)
	assert.Equal(t, []string{"com.acme.Provider"}, cfg.Markers.SafeParameterTypes)
	require.Len(t, cfg.Rules, 1)
	assert.True(t, cfg.Rules[0].AllowEmpty)
	assert.Equal(t, "com.acme.**.*Service", cfg.Rules[0].That.NameMatching)
	assert.True(t, cfg.Rules[0].Should.NoParameters)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown format", "archcheck.json", `{}`},
		{"bad yaml", "a.yaml", "output_dir: [unclosed"},
		{"bad toml", "a.toml", "output_dir = "},
		{"bad elements", "a.yaml", "rules:\n  - name: x\n    elements: packages\n    should: {static: true}\n"},
		{"missing name", "a.yaml", "rules:\n  - elements: methods\n    should: {static: true}\n"},
		{"empty should", "a.yaml", "rules:\n  - name: x\n    elements: methods\n"},
		{"bad priority", "a.yaml", "rules:\n  - name: x\n    elements: methods\n    priority: URGENT\n    should: {static: true}\n"},
		{"bad glob", "a.yaml", "slices:\n  pattern: \"com.[\"\n"},
		{"negative depth", "a.yaml", "slices:\n  depth: -1\n"},
		{"empty marker", "a.yaml", "markers:\n  bean: \"\"\n"},
		{"bad log level", "a.yaml", "log_level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ARCHCHECK_OUTPUT_DIR", "from/env")
	t.Setenv("ARCHCHECK_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, "a.yaml", "output_dir: from/file\n"))
	require.NoError(t, err)
	assert.Equal(t, "from/env", cfg.OutputDir)
	assert.Equal(t, "debug", cfg.LogLevel)
}
