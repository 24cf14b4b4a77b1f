package am

import "github.com/spf13/viper"

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("pulse.external_main_loop", false)
	v.SetDefault("pulse.shutdown_timeout_seconds", 30)

	v.SetDefault("trace.enabled", false)
	v.SetDefault("trace.path", "") // stderr

	v.SetDefault("log.theme", "everforest")
	v.SetDefault("log.json", false)

	v.SetDefault("lanes", []map[string]interface{}{})
}
