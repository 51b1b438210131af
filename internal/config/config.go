// Package config resolves the service's runtime settings the way the
// teacher's internal/config resolves process specs: viper.AutomaticEnv
// plus explicit BindEnv calls and defaults for the runtime settings, and
// a separate optional TOML file that only lists process configs for
// bulk-provisioning a catalog on first boot. The file carries no
// runtime settings, so the two never overlap.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/viper"

	"github.com/loykin/openlist-service/internal/catalog"
)

const (
	DefaultHost      = "127.0.0.1"
	DefaultPort      = 53211
	DefaultAutoStart = true
)

// Settings is the resolved runtime configuration for cmd/openlist-desktop-service.
type Settings struct {
	Host      string
	Port      int
	APIKey    string
	AutoStart bool
	HistoryDB string
}

// Addr returns the bind address for the HTTP control plane.
func (s Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load resolves Settings from PROCESS_MANAGER_* environment variables,
// per spec §6. apiKeyFallback is used when PROCESS_MANAGER_API_KEY is
// unset, letting the caller supply a generated key (see internal/bootstrap).
func Load(apiKeyFallback string) Settings {
	v := viper.New()
	v.SetDefault("host", DefaultHost)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("api_key", apiKeyFallback)
	v.SetDefault("auto_start", DefaultAutoStart)
	v.SetDefault("history_db", "")

	v.SetEnvPrefix("process_manager")
	v.AutomaticEnv()
	_ = v.BindEnv("host")
	_ = v.BindEnv("port")
	_ = v.BindEnv("api_key")
	_ = v.BindEnv("auto_start")
	_ = v.BindEnv("history_db")

	return Settings{
		Host:      v.GetString("host"),
		Port:      v.GetInt("port"),
		APIKey:    v.GetString("api_key"),
		AutoStart: v.GetBool("auto_start"),
		HistoryDB: v.GetString("history_db"),
	}
}

// bulkFile is the on-disk shape of a --config TOML file: a list of
// process configs to provision into the catalog if it is still empty
// at boot.
type bulkFile struct {
	Processes []catalog.Config `json:"processes"`
}

// LoadBulkFile reads a TOML file of process definitions for first-boot
// provisioning. Each entry is validated the same way an HTTP create
// request would be; the caller decides whether to skip entries that
// collide with an already-populated catalog.
func LoadBulkFile(path string) ([]catalog.Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read bulk config: %w", err)
	}
	// Round-trip through encoding/json so the json tags on catalog.Config
	// (e.g. "bin_path") decide field matching.
	raw, err := json.Marshal(v.AllSettings())
	if err != nil {
		return nil, fmt.Errorf("parse bulk config: %w", err)
	}
	var bf bulkFile
	if err := json.Unmarshal(raw, &bf); err != nil {
		return nil, fmt.Errorf("parse bulk config: %w", err)
	}
	for i := range bf.Processes {
		if err := bf.Processes[i].Validate(); err != nil {
			return nil, fmt.Errorf("process %q: %w", bf.Processes[i].Name, err)
		}
	}
	return bf.Processes, nil
}
