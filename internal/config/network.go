package config

// NetworkConfig configures HTTP downloads.
type NetworkConfig struct {
	Timeout   string `yaml:"timeout"`    // per-download timeout, e.g. "5m"
	Retries   int    `yaml:"retries"`    // transient failure retries
	UserAgent string `yaml:"user_agent"` // sent with every request

	// Proxies; empty values fall back to HTTP_PROXY / HTTPS_PROXY / NO_PROXY
	HTTPProxy  string `yaml:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy"`
	NoProxy    string `yaml:"no_proxy"`
}
