package toolchain

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config selects the native tools used to turn assembly into an executable
type Config struct {
	Assembler      string   `yaml:"assembler"`
	AssemblerFlags []string `yaml:"assembler_flags"`
	Linker         string   `yaml:"linker"`
	LinkerFlags    []string `yaml:"linker_flags"`

	// LinkWithC links through the C compiler driver against libc; the
	// runtime stub then leaves _start to the C runtime.
	LinkWithC bool `yaml:"link_with_c"`

	// WorkDir holds intermediate files. When empty a temporary directory is
	// created per build.
	WorkDir string `yaml:"work_dir"`

	// KeepWorkDir keeps the temporary directory after a successful build
	KeepWorkDir bool `yaml:"keep_work_dir"`
}

// DefaultConfig uses GNU as and a static ld link
func DefaultConfig() Config {
	return Config{
		Assembler: "as",
		Linker:    "ld",
	}
}

// LoadConfig reads a YAML toolchain file. Unknown keys are rejected and
// missing tools fall back to the defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read toolchain config: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse toolchain config %s: %w", path, err)
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.Assembler == "" {
		c.Assembler = "as"
	}
	if c.Linker == "" {
		if c.LinkWithC {
			c.Linker = "cc"
		} else {
			c.Linker = "ld"
		}
	}
	return c
}
