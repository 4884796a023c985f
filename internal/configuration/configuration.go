package configuration

import (
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v2"
)

func Default() Configuration {
	return Configuration{
		ZNetworkConfiguration: ZNetworkConfiguration{
			PANID:         9945,
			ExtendedPANID: 0xdd7ddddd7ddddd7d,
			NetworkKey:    "01030507090b0d0f00020406080a0c0d",
			Channel:       15,
		},
		MqttConfiguration: MqttConfiguration{
			Address:   "localhost",
			Port:      1883,
			RootTopic: "zbinder",
		},
		SerialConfiguration: SerialConfiguration{
			PortName: "/dev/ttyUSB0",
			BaudRate: 115200,
		},
		Bindings: BindingsConfiguration{
			DBPath:  "./data/bindings",
			Persist: true,
		},
		ZCLDefinitionFile: "./zcldef/zcldef.json",
		LogLevel:          "info",
	}
}

func Init(filename string) (ConfigurationService, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("parse %v: %w", filename, err)
	}

	if _, err := cfg.ZNetworkConfiguration.Key(); err != nil {
		return nil, err
	}

	return &configurationService{
		filename:      filename,
		configuration: cfg,
	}, nil
}

// Key decodes the hex network key.
func (c ZNetworkConfiguration) Key() ([16]byte, error) {
	var key [16]byte

	b, err := hex.DecodeString(c.NetworkKey)
	if err != nil {
		return key, fmt.Errorf("network key: %w", err)
	}
	if len(b) != len(key) {
		return key, fmt.Errorf("network key: expected %d bytes, got %d", len(key), len(b))
	}
	copy(key[:], b)

	return key, nil
}

type configurationService struct {
	mu            sync.RWMutex
	filename      string
	configuration Configuration
}

func (s *configurationService) GetConfiguration() Configuration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.configuration
}

// Update stores updatedConfig and writes it back to the configuration file.
func (s *configurationService) Update(updatedConfig Configuration) error {
	if _, err := updatedConfig.ZNetworkConfiguration.Key(); err != nil {
		return err
	}

	buf, err := yaml.Marshal(updatedConfig)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.filename, buf, 0644); err != nil {
		return err
	}
	s.configuration = updatedConfig

	return nil
}
