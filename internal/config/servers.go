package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"latencywatch/internal/models"
)

const defaultPort = 443

// LoadServers reads the endpoint roster. The file is a JSON or YAML list of
// endpoints; JSON is accepted because it is valid YAML.
func LoadServers(path string) ([]models.Endpoint, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read servers: %w", err)
	}
	return ParseServers(content)
}

// ParseServers decodes and validates a roster document.
func ParseServers(content []byte) ([]models.Endpoint, error) {
	var endpoints []models.Endpoint
	if err := yaml.Unmarshal(content, &endpoints); err != nil {
		return nil, fmt.Errorf("parse servers: %w", err)
	}
	if len(endpoints) == 0 {
		return nil, errors.New("server list must define at least one endpoint")
	}

	seen := make(map[string]struct{}, len(endpoints))
	for i := range endpoints {
		e := &endpoints[i]
		e.ID = strings.TrimSpace(e.ID)
		e.Host = strings.TrimSpace(e.Host)
		if e.ID == "" {
			return nil, fmt.Errorf("server %d is missing id", i)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("server id %q is duplicated", e.ID)
		}
		seen[e.ID] = struct{}{}
		if e.Host == "" {
			return nil, fmt.Errorf("server %s host is required", e.ID)
		}
		if e.Port == 0 {
			e.Port = defaultPort
		}
		if e.Port < 0 || e.Port > 65535 {
			return nil, fmt.Errorf("server %s port %d out of range", e.ID, e.Port)
		}
	}
	return endpoints, nil
}
