// Package dpsshare holds the deployment topology shared by the command line
// tools. A topology names every role of one federation and the protocol
// parameters they agree on.
package dpsshare

import (
	"errors"
	"fmt"
	"os"

	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/privacy"
	"github.com/absmach/dpsshare/pkg/sharing"
	"github.com/pelletier/go-toml"
)

const filePermission = 0o644

var (
	errNoRegionals  = errors.New("topology has no regional aggregators")
	errNoFacilities = errors.New("topology has no facilities")
	errDuplicateID  = errors.New("duplicate id in topology")
	errMissingURL   = errors.New("missing url in topology")
)

type Config struct {
	Name       string         `toml:"name"`
	Authority  string         `toml:"authority_url"`
	Global     string         `toml:"global_url"`
	Regionals  []Node         `toml:"regionals"`
	Facilities []FacilityNode `toml:"facilities"`
	Protocol   ProtocolConfig `toml:"protocol"`
	Model      ModelConfig    `toml:"model"`
}

type Node struct {
	ID  string `toml:"id"`
	URL string `toml:"url"`
}

type FacilityNode struct {
	ID         string            `toml:"id"`
	URL        string            `toml:"url"`
	Attributes map[string]string `toml:"attributes"`
}

type ProtocolConfig struct {
	Scheme        string  `toml:"scheme"`
	Threshold     int     `toml:"threshold"`
	Rounds        int     `toml:"rounds"`
	Difficulty    int     `toml:"difficulty"`
	Epsilon       float64 `toml:"epsilon"`
	Sensitivity   float64 `toml:"sensitivity"`
	CommitteeSize int     `toml:"committee_size"`
}

type ModelConfig struct {
	Features int               `toml:"features"`
	Policy   map[string]string `toml:"policy"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Save(path string) error {
	data, err := toml.Marshal(*c)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, filePermission); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

func (c *Config) Validate() error {
	if len(c.Regionals) == 0 {
		return errNoRegionals
	}
	if len(c.Facilities) == 0 {
		return errNoFacilities
	}
	if c.Authority == "" || c.Global == "" {
		return errMissingURL
	}

	seen := make(map[string]struct{}, len(c.Regionals)+len(c.Facilities))
	check := func(id, url string) error {
		if url == "" {
			return fmt.Errorf("%w: %s", errMissingURL, id)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s", errDuplicateID, id)
		}
		seen[id] = struct{}{}

		return nil
	}
	for _, r := range c.Regionals {
		if err := check(r.ID, r.URL); err != nil {
			return err
		}
	}
	for _, f := range c.Facilities {
		if err := check(f.ID, f.URL); err != nil {
			return err
		}
	}

	if err := c.SharingConfig().Validate(); err != nil {
		return err
	}

	return c.Budget().Validate()
}

func (c *Config) RegionalIDs() []string {
	ids := make([]string, len(c.Regionals))
	for i, r := range c.Regionals {
		ids[i] = r.ID
	}

	return ids
}

func (c *Config) RegionalURLs() []string {
	urls := make([]string, len(c.Regionals))
	for i, r := range c.Regionals {
		urls[i] = r.URL
	}

	return urls
}

func (c *Config) FacilityIDs() []string {
	ids := make([]string, len(c.Facilities))
	for i, f := range c.Facilities {
		ids[i] = f.ID
	}

	return ids
}

// FacilityURLs maps facility ids to their base urls.
func (c *Config) FacilityURLs() map[string]string {
	urls := make(map[string]string, len(c.Facilities))
	for _, f := range c.Facilities {
		urls[f.ID] = f.URL
	}

	return urls
}

func (c *Config) SharingConfig() sharing.Config {
	return sharing.Config{
		Scheme:    sharing.Scheme(c.Protocol.Scheme),
		Shares:    len(c.Regionals),
		Threshold: c.Protocol.Threshold,
	}
}

func (c *Config) Budget() privacy.Budget {
	return privacy.Budget{
		Epsilon:     c.Protocol.Epsilon,
		Sensitivity: c.Protocol.Sensitivity,
	}
}

func (c *Config) Policy() abe.Policy {
	return abe.Policy(c.Model.Policy)
}
