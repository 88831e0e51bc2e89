package domain

// Settings is the user-tunable configuration persisted in the key-value
// store. Defaults are merged in on every read; mutation happens only
// through the settings update operation.
type Settings struct {
	AutoScan               bool   `json:"autoScan"`
	NotificationsEnabled   bool   `json:"notificationsEnabled"`
	DefaultChain           Chain  `json:"defaultChain"`
	MonitorIntervalMinutes int    `json:"monitorIntervalMinutes"`
	RiskThreshold          int    `json:"riskThreshold"`
	RefreshBaselineOnAlert bool   `json:"refreshBaselineOnAlert"`
	Theme                  string `json:"theme"`
}

// DefaultSettings returns the first-run configuration.
func DefaultSettings() Settings {
	return Settings{
		AutoScan:               true,
		NotificationsEnabled:   true,
		DefaultChain:           DefaultEVMChain,
		MonitorIntervalMinutes: 15,
		RiskThreshold:          50,
		RefreshBaselineOnAlert: false,
		Theme:                  "dark",
	}
}

// Normalize replaces out-of-range fields with their defaults. Readers
// unmarshal stored settings over DefaultSettings() so absent fields keep
// their default; Normalize guards against corrupt stored values.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	if !s.DefaultChain.Valid() {
		s.DefaultChain = def.DefaultChain
	}
	if s.MonitorIntervalMinutes <= 0 {
		s.MonitorIntervalMinutes = def.MonitorIntervalMinutes
	}
	if s.RiskThreshold <= 0 || s.RiskThreshold > 100 {
		s.RiskThreshold = def.RiskThreshold
	}
	if s.Theme == "" {
		s.Theme = def.Theme
	}
	return s
}
