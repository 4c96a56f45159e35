package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const templateHeader = `# plotctl configuration
# transport: serial device path, tcp://host:port, or "-" for stdin
`

// Template renders cfg as a commented TOML document.
func Template(cfg PlotterConfig) (string, error) {
	body, err := toml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("config render failed: %w", err)
	}
	return templateHeader + string(body), nil
}

func WriteTemplate(path string, cfg PlotterConfig, overwrite bool) error {
	template, err := Template(cfg)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
