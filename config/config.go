// Package config loads the chaincode process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the chaincode process. The CHAINCODE_*
// variables are the ones Fabric's chaincode-as-a-service tooling already sets.
type Config struct {
	ServerAddress string `envconfig:"CHAINCODE_SERVER_ADDRESS"`
	CCID          string `envconfig:"CHAINCODE_ID"`

	TLSDisabled     bool   `envconfig:"CHAINCODE_TLS_DISABLED" default:"true"`
	TLSKeyFile      string `envconfig:"CHAINCODE_TLS_KEY"`
	TLSCertFile     string `envconfig:"CHAINCODE_TLS_CERT"`
	TLSClientCAFile string `envconfig:"CHAINCODE_CLIENT_CA_CERT"`

	ContractVersion string `envconfig:"ACCESSREGISTRY_CONTRACT_VERSION" default:"1.0.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the combinations envconfig tags cannot express.
func (c *Config) Validate() error {
	if !c.IsServerMode() {
		return nil
	}
	if c.CCID == "" {
		return errors.New("CHAINCODE_ID must be set when CHAINCODE_SERVER_ADDRESS is set")
	}
	if !c.TLSDisabled && (c.TLSKeyFile == "" || c.TLSCertFile == "") {
		return errors.New("CHAINCODE_TLS_KEY and CHAINCODE_TLS_CERT are required when TLS is enabled")
	}
	return nil
}

// IsServerMode returns true when the chaincode runs as an external service
// instead of being launched by the peer.
func (c *Config) IsServerMode() bool {
	return c != nil && c.ServerAddress != ""
}

// TLSMaterial holds the PEM bytes for the chaincode server.
type TLSMaterial struct {
	Key      []byte
	Cert     []byte
	ClientCA []byte
}

// LoadTLSMaterial reads the configured PEM files. It returns nil when TLS is disabled.
func (c *Config) LoadTLSMaterial() (*TLSMaterial, error) {
	if c.TLSDisabled {
		return nil, nil
	}
	key, err := os.ReadFile(c.TLSKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read TLS key: %w", err)
	}
	cert, err := os.ReadFile(c.TLSCertFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read TLS cert: %w", err)
	}
	material := &TLSMaterial{Key: key, Cert: cert}
	if c.TLSClientCAFile != "" {
		if material.ClientCA, err = os.ReadFile(c.TLSClientCAFile); err != nil {
			return nil, fmt.Errorf("failed to read client CA cert: %w", err)
		}
	}
	return material, nil
}
