package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

const starterHeader = `# impact-engine configuration.
# Every key can also be set through the environment with the IMPACT_
# prefix, e.g. IMPACT_STORE_DATABASE_URL.
`

// WriteStarter writes a commented starter config file with all defaults
// filled in. It refuses to overwrite an existing file.
func WriteStarter(path string) error {
	if _, err := os.Stat(path); err == nil {
		return eris.Errorf("config: %s already exists", path)
	}

	cfg, err := Load()
	if err != nil {
		return err
	}

	body, err := yaml.Marshal(cfg)
	if err != nil {
		return eris.Wrap(err, "config: marshal starter")
	}

	out := append([]byte(starterHeader), body...)
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return eris.Wrap(err, "config: write starter")
	}
	return nil
}
