// Package domain holds the plain configuration and transfer data types
// shared across the bridge. It carries no loading or I/O logic — see
// internal/config for the TOML/viper mechanics that populate a Config.
package domain

// Config is the bridge's process-wide, immutable-after-startup configuration.
type Config struct {
	BindAddress string `toml:"bind_address" mapstructure:"bind_address"`
	Port        int    `toml:"port" mapstructure:"port"`

	DownloadDirectory string `toml:"download_directory" mapstructure:"download_directory"`
	DownloadWorkers   int    `toml:"download_workers" mapstructure:"download_workers"`

	OrchestrationWorkers int `toml:"orchestration_workers" mapstructure:"orchestration_workers"`
	PollingInterval      int `toml:"polling_interval" mapstructure:"polling_interval"`

	UID int `toml:"uid" mapstructure:"uid"`

	Username string `toml:"username" mapstructure:"username"`
	Password string `toml:"password" mapstructure:"password"`

	LogLevel string `toml:"loglevel" mapstructure:"loglevel"`

	SkipDirectories []string `toml:"skip_directories" mapstructure:"skip_directories"`

	Putio PutioConfig `toml:"putio" mapstructure:"putio"`

	Sonarr   *ArrConfig `toml:"sonarr" mapstructure:"sonarr"`
	Radarr   *ArrConfig `toml:"radarr" mapstructure:"radarr"`
	Whisparr *ArrConfig `toml:"whisparr" mapstructure:"whisparr"`
}

// PutioConfig holds the cloud service's API credential.
type PutioConfig struct {
	APIKey string `toml:"api_key" mapstructure:"api_key"`
}

// ArrConfig describes one configured media manager endpoint.
type ArrConfig struct {
	URL    string `toml:"url" mapstructure:"url"`
	APIKey string `toml:"api_key" mapstructure:"api_key"`
}

// ArrKind identifies which media manager a configured endpoint talks to.
type ArrKind string

const (
	ArrKindSonarr   ArrKind = "sonarr"
	ArrKindRadarr   ArrKind = "radarr"
	ArrKindWhisparr ArrKind = "whisparr"
)

// ArrManager pairs a configured endpoint with the kind tag that selects its
// rescan command.
type ArrManager struct {
	Kind   ArrKind
	Config ArrConfig
}

// ArrManagers returns the configured media managers tagged by kind, in a
// fixed order, skipping any that are unset. Used for data-driven dispatch
// (see internal/notify) rather than per-kind branching.
func (c *Config) ArrManagers() []ArrManager {
	var out []ArrManager
	if c.Sonarr != nil {
		out = append(out, ArrManager{Kind: ArrKindSonarr, Config: *c.Sonarr})
	}
	if c.Radarr != nil {
		out = append(out, ArrManager{Kind: ArrKindRadarr, Config: *c.Radarr})
	}
	if c.Whisparr != nil {
		out = append(out, ArrManager{Kind: ArrKindWhisparr, Config: *c.Whisparr})
	}
	return out
}
