package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/archcheck/internal/config"
)

const defaultConfigFile = "archcheck.yaml"

const configHeader = `# archcheck configuration.
#
# markers name the annotation and marker types used by the built-in rules.
# rules lists declarative rules, e.g.
#   - name: no field injection
#     elements: fields
#     should: {not_annotated_with: org.springframework.beans.factory.annotation.Autowired}
#
# Run "archcheck --help" for all flags.
`

func initCmd(stdout, stderr io.Writer) *cobra.Command {
	var force, dryRun bool

	cmd := &cobra.Command{
		Use:   "init [flags] [FILE]",
		Short: "Write a starter config file",
		Long: `Write a starter config file holding the default settings. The format
follows the extension: .yaml or .yml for YAML, .toml for TOML.

FILE defaults to ./archcheck.yaml. An existing file is left alone unless
--force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigFile
			if len(args) > 0 {
				path = args[0]
			}
			return runInit(path, force, dryRun, stdout, stderr)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the config without writing it")
	return cmd
}

func runInit(path string, force, dryRun bool, stdout, stderr io.Writer) error {
	data, err := generateConfig(path)
	if err != nil {
		return err
	}

	if dryRun {
		_, _ = stdout.Write(data)
		return nil
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote config to %s\n", path)
	return nil
}

// generateConfig encodes the default config in the format implied by path.
func generateConfig(path string) ([]byte, error) {
	cfg := config.Default()

	var (
		body []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		body, err = yaml.Marshal(cfg)
	case ".toml":
		body, err = toml.Marshal(cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return append([]byte(configHeader+"\n"), body...), nil
}
