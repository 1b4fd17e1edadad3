// Package universe defines the sector membership map the ingestion pipeline
// operates on. Membership is many-to-many: an instrument contributes its
// full market cap to every sector that lists it.
package universe

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/t2dlabs/pulse/internal/contracts"
)

//go:embed sectors.yaml
var defaultSectors []byte

// Universe holds the configured sectors in file order.
type Universe struct {
	Sectors []contracts.Sector `yaml:"sectors"`
}

// Load reads a universe definition from a YAML file. An empty path loads
// the built-in default universe.
func Load(path string) (*Universe, error) {
	if path == "" {
		return parse(defaultSectors)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read universe file: %w", err)
	}

	u, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse universe file %s: %w", path, err)
	}
	return u, nil
}

// parse decodes YAML strictly so typos in sector files fail immediately.
func parse(data []byte) (*Universe, error) {
	var u Universe
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&u); err != nil {
		return nil, err
	}

	if err := u.validate(); err != nil {
		return nil, err
	}
	return &u, nil
}

func (u *Universe) validate() error {
	if len(u.Sectors) == 0 {
		return fmt.Errorf("universe defines no sectors")
	}

	seen := make(map[string]bool, len(u.Sectors))
	for _, s := range u.Sectors {
		if s.Name == "" {
			return fmt.Errorf("sector with empty name")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate sector %q", s.Name)
		}
		seen[s.Name] = true

		if len(s.Members) == 0 {
			return fmt.Errorf("sector %q has no members", s.Name)
		}
		members := make(map[string]bool, len(s.Members))
		for _, m := range s.Members {
			if m == "" {
				return fmt.Errorf("sector %q lists an empty symbol", s.Name)
			}
			if members[m] {
				return fmt.Errorf("sector %q lists %q twice", s.Name, m)
			}
			members[m] = true
		}
	}
	return nil
}

// SectorNames returns sector names in file order.
func (u *Universe) SectorNames() []string {
	names := make([]string, 0, len(u.Sectors))
	for _, s := range u.Sectors {
		names = append(names, s.Name)
	}
	return names
}

// UniqueSymbols returns every member symbol exactly once, sorted, so a run
// resolves each instrument a single time regardless of how many sectors
// share it.
func (u *Universe) UniqueSymbols() []string {
	set := make(map[string]bool)
	for _, s := range u.Sectors {
		for _, m := range s.Members {
			set[m] = true
		}
	}

	symbols := make([]string, 0, len(set))
	for sym := range set {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// Sector returns the named sector, or false when it is not configured.
func (u *Universe) Sector(name string) (contracts.Sector, bool) {
	for _, s := range u.Sectors {
		if s.Name == name {
			return s, true
		}
	}
	return contracts.Sector{}, false
}
