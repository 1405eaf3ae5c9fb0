package conf

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load 加载配置文件
// ${KEY:default} placeholders are expanded from the environment, matching what
// the kratos env source does for the server binaries.
func Load(path string) (*Bootstrap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var c Bootstrap
	if err := yaml.Unmarshal([]byte(ExpandEnv(string(data))), &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &c, nil
}

// ExpandEnv replaces ${KEY} and ${KEY:default} with environment values.
func ExpandEnv(s string) string {
	return os.Expand(s, func(key string) string {
		def := ""
		if i := strings.Index(key, ":"); i >= 0 {
			key, def = key[:i], key[i+1:]
		}
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		return def
	})
}
