package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadFile merges settings from the config file at path into cfg. File
// values override whatever cfg already holds; flag overrides stay with the
// command layer, which applies them after this call.
func LoadFile(path string, cfg *Config) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	cfg.ConfigFile = path
	return applySettings(cfg, v.AllSettings())
}

func applySettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "server", "target"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		cfg.Server = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "model"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("model: %w", err)
		}
		if val != "" {
			cfg.Model = strings.TrimSpace(val)
		}
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "seed"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		cfg.Seed = int64(val)
	}

	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("jsonOutput: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "output", "output_file", "output-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		cfg.OutputFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "dashboard"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		cfg.Dashboard = val
	}

	if raw, ok := lookupSetting(settings, "logerrors", "log_errors", "log-errors"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("logErrors: %w", err)
		}
		cfg.LogErrors = val
	}

	if raw, ok := lookupSetting(settings, "quiet"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("quiet: %w", err)
		}
		cfg.Quiet = val
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		vals, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = vals
	}

	if raw, ok := lookupSetting(settings, "sampling"); ok {
		entry, err := toStringKeyMap(raw)
		if err != nil {
			return fmt.Errorf("sampling: %w", err)
		}
		if err := applySampling(&cfg.Sampling, entry); err != nil {
			return fmt.Errorf("sampling: %w", err)
		}
	}

	if raw, ok := lookupSetting(settings, "check"); ok {
		entry, err := toStringKeyMap(raw)
		if err != nil {
			return fmt.Errorf("check: %w", err)
		}
		if err := applyCheck(&cfg.Check, entry); err != nil {
			return fmt.Errorf("check: %w", err)
		}
	}

	if raw, ok := lookupSetting(settings, "stream"); ok {
		entry, err := toStringKeyMap(raw)
		if err != nil {
			return fmt.Errorf("stream: %w", err)
		}
		if err := applyStream(&cfg.Stream, entry); err != nil {
			return fmt.Errorf("stream: %w", err)
		}
	}

	if raw, ok := lookupSetting(settings, "scale"); ok {
		entry, err := toStringKeyMap(raw)
		if err != nil {
			return fmt.Errorf("scale: %w", err)
		}
		if err := applyScale(&cfg.Scale, entry); err != nil {
			return fmt.Errorf("scale: %w", err)
		}
	}

	if raw, ok := lookupSetting(settings, "burst"); ok {
		entry, err := toStringKeyMap(raw)
		if err != nil {
			return fmt.Errorf("burst: %w", err)
		}
		if err := applyBurst(&cfg.Burst, entry); err != nil {
			return fmt.Errorf("burst: %w", err)
		}
	}

	if raw, ok := lookupSetting(settings, "load"); ok {
		entry, err := toStringKeyMap(raw)
		if err != nil {
			return fmt.Errorf("load: %w", err)
		}
		if err := applyLoad(&cfg.Load, entry); err != nil {
			return fmt.Errorf("load: %w", err)
		}
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		entry, err := toStringKeyMap(raw)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		if err := applyTracing(&cfg.Tracing, entry); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	return nil
}

func applySampling(s *SamplingConfig, settings map[string]interface{}) error {
	if raw, ok := lookupSetting(settings, "maxtokens", "max_tokens", "max-tokens"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("max_tokens: %w", err)
		}
		s.MaxTokens = val
	}
	if raw, ok := lookupSetting(settings, "temperature"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("temperature: %w", err)
		}
		s.Temperature = val
	}
	if raw, ok := lookupSetting(settings, "topp", "top_p", "top-p"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("top_p: %w", err)
		}
		s.TopP = val
	}
	if raw, ok := lookupSetting(settings, "topk", "top_k", "top-k"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("top_k: %w", err)
		}
		s.TopK = val
	}
	if raw, ok := lookupSetting(settings, "minp", "min_p", "min-p"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("min_p: %w", err)
		}
		s.MinP = val
	}
	if raw, ok := lookupSetting(settings, "presencepenalty", "presence_penalty", "presence-penalty"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("presence_penalty: %w", err)
		}
		s.PresencePenalty = val
	}
	return nil
}

func applyCheck(c *CheckConfig, settings map[string]interface{}) error {
	if raw, ok := lookupSetting(settings, "scenariofile", "scenario_file", "scenario-file", "scenarios"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("scenario_file: %w", err)
		}
		c.ScenarioFile = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "perfrequests", "perf_requests", "perf-requests"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("perf_requests: %w", err)
		}
		c.PerfRequests = val
	}
	return nil
}

func applyStream(s *StreamConfig, settings map[string]interface{}) error {
	if raw, ok := lookupSetting(settings, "scenariofile", "scenario_file", "scenario-file", "scenarios"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("scenario_file: %w", err)
		}
		s.ScenarioFile = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "concurrent"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("concurrent: %w", err)
		}
		s.Concurrent = val
	}
	return nil
}

func applyScale(s *ScaleConfig, settings map[string]interface{}) error {
	if raw, ok := lookupSetting(settings, "sizes"); ok {
		vals, err := asIntSlice(raw)
		if err != nil {
			return fmt.Errorf("sizes: %w", err)
		}
		if len(vals) > 0 {
			s.Sizes = vals
		}
	}
	if raw, ok := lookupSetting(settings, "pause"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("pause: %w", err)
		}
		s.Pause = dur
	}
	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		s.Timeout = dur
	}
	return nil
}

func applyBurst(b *BurstConfig, settings map[string]interface{}) error {
	if raw, ok := lookupSetting(settings, "short"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("short: %w", err)
		}
		b.Short = val
	}
	if raw, ok := lookupSetting(settings, "long"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("long: %w", err)
		}
		b.Long = val
	}
	if raw, ok := lookupSetting(settings, "mix"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("mix: %w", err)
		}
		b.Mix = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "pause"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("pause: %w", err)
		}
		b.Pause = dur
	}
	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		b.Timeout = dur
	}
	return nil
}

func applyLoad(l *LoadConfig, settings map[string]interface{}) error {
	if raw, ok := lookupSetting(settings, "requests"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("requests: %w", err)
		}
		l.Requests = val
	}
	if raw, ok := lookupSetting(settings, "concurrency", "concurrent"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("concurrency: %w", err)
		}
		l.Concurrency = val
	}
	if raw, ok := lookupSetting(settings, "maxtokens", "max_tokens", "max-tokens", "tokens"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("max_tokens: %w", err)
		}
		l.MaxTokens = val
	}
	if raw, ok := lookupSetting(settings, "prompt"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("prompt: %w", err)
		}
		l.Prompt = val
	}
	if raw, ok := lookupSetting(settings, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		l.Rate = val
	}
	if raw, ok := lookupSetting(settings, "stagger"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("stagger: %w", err)
		}
		l.Stagger = dur
	}
	if raw, ok := lookupSetting(settings, "progressevery", "progress_every", "progress-every"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("progress_every: %w", err)
		}
		l.ProgressEvery = val
	}
	return nil
}

func applyTracing(t *TracingConfig, settings map[string]interface{}) error {
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
		t.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("protocol: %w", err)
		}
		if val != "" {
			t.Protocol = strings.ToLower(strings.TrimSpace(val))
		}
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
		t.Insecure = val
	}
	if raw, ok := lookupSetting(settings, "service"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("service: %w", err)
		}
		if val != "" {
			t.Service = strings.TrimSpace(val)
		}
	}
	return nil
}
