package lyra

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`

	SystemPrompt  string `mapstructure:"system_prompt"`
	FallbackReply string `mapstructure:"fallback_reply"`

	Session    SessionConfig    `mapstructure:"session"`
	Vendors    VendorsConfig    `mapstructure:"vendors"`
	Transports TransportsConfig `mapstructure:"transports"`
	Privacy    PrivacyConfig    `mapstructure:"privacy"`
}

type SessionConfig struct {
	MaxHistory            int `mapstructure:"max_history"`
	PendingAudioMaxFrames int `mapstructure:"pending_audio_max_frames"`
	ReplyQueueDepth       int `mapstructure:"reply_queue_depth"`
	MinSendGapMS          int `mapstructure:"min_send_gap_ms"`
	SampleRate            int `mapstructure:"sample_rate"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type VendorsConfig struct {
	Recognition VendorConfig `mapstructure:"recognition"`
	Generation  VendorConfig `mapstructure:"generation"`
	Synthesis   VendorConfig `mapstructure:"synthesis"`
}

type TransportsConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("system_prompt", "You are a helpful voice assistant. Keep answers short and conversational.")
	v.SetDefault("fallback_reply", "")
	v.SetDefault("session.max_history", 12)
	v.SetDefault("session.pending_audio_max_frames", 400)
	v.SetDefault("session.reply_queue_depth", 64)
	v.SetDefault("session.min_send_gap_ms", 0)
	v.SetDefault("session.sample_rate", 8000)
	v.SetDefault("privacy.redact_pii", true)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Transports.Provider) == "" {
		return fmt.Errorf("transports.provider is required")
	}
	if strings.TrimSpace(c.Vendors.Recognition.Provider) == "" {
		return fmt.Errorf("vendors.recognition.provider is required")
	}
	if strings.TrimSpace(c.Vendors.Generation.Provider) == "" {
		return fmt.Errorf("vendors.generation.provider is required")
	}
	if strings.TrimSpace(c.Vendors.Synthesis.Provider) == "" {
		return fmt.Errorf("vendors.synthesis.provider is required")
	}
	return nil
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Vendors.Recognition.Settings = expandSettings(cfg.Vendors.Recognition.Settings)
	cfg.Vendors.Generation.Settings = expandSettings(cfg.Vendors.Generation.Settings)
	cfg.Vendors.Synthesis.Settings = expandSettings(cfg.Vendors.Synthesis.Settings)
	cfg.Transports.Settings = expandSettings(cfg.Transports.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = expandAny(v)
		}
		return out
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandValue(v.Index(i))
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String && v.Type().Elem().Kind() == reflect.String {
			for _, key := range v.MapKeys() {
				val := v.MapIndex(key)
				expanded := os.ExpandEnv(val.String())
				v.SetMapIndex(key, reflect.ValueOf(expanded))
			}
		}
	}
}
