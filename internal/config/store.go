package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoStoreConfig means the store configuration blob is empty.
var ErrNoStoreConfig = errors.New("store configuration absent")

// StoreConfig is the parsed store configuration blob.
type StoreConfig struct {
	Address            string `json:"address" yaml:"address"`
	ServerName         string `json:"serverName" yaml:"serverName"`
	CACert             string `json:"caCert" yaml:"caCert"` // PEM file path
	InsecureSkipVerify bool   `json:"insecureSkipVerify" yaml:"insecureSkipVerify"`
	Plaintext          bool   `json:"plaintext" yaml:"plaintext"`
}

// ParseStoreConfig accepts a JSON object or a YAML mapping. Unknown keys are ignored.
func ParseStoreConfig(blob string) (*StoreConfig, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return nil, ErrNoStoreConfig
	}

	var sc StoreConfig
	if strings.HasPrefix(blob, "{") {
		if err := json.Unmarshal([]byte(blob), &sc); err != nil {
			return nil, fmt.Errorf("store config: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(blob), &sc); err != nil {
		return nil, fmt.Errorf("store config: %w", err)
	}

	if sc.Address == "" {
		return nil, errors.New("store config: missing address")
	}
	if _, _, err := net.SplitHostPort(sc.Address); err != nil {
		return nil, fmt.Errorf("store config: address %q: %w", sc.Address, err)
	}
	if sc.Plaintext && (sc.CACert != "" || sc.InsecureSkipVerify) {
		return nil, errors.New("store config: plaintext excludes TLS options")
	}
	return &sc, nil
}
