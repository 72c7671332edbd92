// Copyright 2024-2025 Andres Morey
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config parses the daemon's startup arguments (§6: a
// whitespace-separated list of key=value tokens, or a bare token
// setting the socket path) into a validated Config struct.
package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// AuthorizationMode controls host/service/group visibility rules (§4.4).
type AuthorizationMode string

const (
	AuthorizationStrict AuthorizationMode = "strict"
	AuthorizationLoose  AuthorizationMode = "loose"
)

// DataEncoding controls how string columns are re-encoded on output (§6).
type DataEncoding string

const (
	DataEncodingUTF8  DataEncoding = "utf8"
	DataEncodingLatin1 DataEncoding = "latin1"
	DataEncodingMixed DataEncoding = "mixed"
)

// Config is the fully resolved daemon configuration.
type Config struct {
	// Socket is the path of the primary UNIX domain query socket (§6).
	// A bare startup token with no "=" sets this field.
	Socket string `mapstructure:"socket"`

	Debug bool `mapstructure:"debug"`

	LogCache struct {
		MaxCachedMessages int `mapstructure:"max_cached_messages" validate:"gt=0"`
		MaxLinesPerLogfile int `mapstructure:"max_lines_per_logfile" validate:"gt=0"`
	} `mapstructure:"log_cache"`

	Threads struct {
		ThreadStackSize int `mapstructure:"thread_stack_size"`
		NumClientThreads int `mapstructure:"num_client_threads" validate:"gt=0"`
	} `mapstructure:"threads"`

	Limits struct {
		MaxResponseSize int `mapstructure:"max_response_size" validate:"gt=0"`
		QueryTimeout    int `mapstructure:"query_timeout" validate:"gt=0"` // seconds
		IdleTimeout     int `mapstructure:"idle_timeout" validate:"gt=0"`  // seconds
	} `mapstructure:"limits"`

	Authorization struct {
		Service AuthorizationMode `mapstructure:"service_authorization"`
		Group   AuthorizationMode `mapstructure:"group_authorization"`
	} `mapstructure:"authorization"`

	Paths struct {
		LogFile                 string `mapstructure:"log_file"`
		CrashReportsPath        string `mapstructure:"crash_reports_path"`
		LicenseUsageHistoryPath string `mapstructure:"license_usage_history_path"`
		MKInventoryPath         string `mapstructure:"mk_inventory_path"`
		StructuredStatusPath    string `mapstructure:"structured_status_path"`
		RobotmkHTMLLogPath      string `mapstructure:"robotmk_html_log_path"`
		MKLogwatchPath          string `mapstructure:"mk_logwatch_path"`
		PredictionPath          string `mapstructure:"prediction_path"`
		StateFileCreatedFile    string `mapstructure:"state_file_created_file"`
		LicensedStateFile       string `mapstructure:"licensed_state_file"`
		PNPPath                 string `mapstructure:"pnp_path"`
	} `mapstructure:"paths"`

	EventConsole struct {
		SocketPath string `mapstructure:"mkeventd_socket"`
	} `mapstructure:"event_console"`

	DataEncoding DataEncoding `mapstructure:"data_encoding"`
	Edition      string       `mapstructure:"edition"`

	// AdminHTTP is the ambient ops surface (SPEC_FULL.md), not part of
	// the livestatus wire protocol itself.
	AdminHTTP struct {
		Enabled bool   `mapstructure:"enabled"`
		Addr    string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	} `mapstructure:"admin_http"`

	Logging struct {
		Enabled bool   `mapstructure:"enabled"`
		Level   string `mapstructure:"level" validate:"oneof=debug info warn error disabled"`
		Format  string `mapstructure:"format" validate:"oneof=json pretty"`
	} `mapstructure:"logging"`
}

func (cfg *Config) validate() error {
	return validator.New().Struct(cfg)
}

// DefaultConfig returns a Config populated with the same defaults the
// reference implementation's livestatus module ships with.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Socket = "/tmp/run/live"
	cfg.Debug = false

	cfg.LogCache.MaxCachedMessages = 500000
	cfg.LogCache.MaxLinesPerLogfile = 1000000

	cfg.Threads.ThreadStackSize = 1024 * 1024
	cfg.Threads.NumClientThreads = 10

	cfg.Limits.MaxResponseSize = 100 * 1024 * 1024
	cfg.Limits.QueryTimeout = 10
	cfg.Limits.IdleTimeout = 300

	cfg.Authorization.Service = AuthorizationStrict
	cfg.Authorization.Group = AuthorizationStrict

	cfg.DataEncoding = DataEncodingUTF8
	cfg.Edition = "raw"

	cfg.AdminHTTP.Enabled = true
	cfg.AdminHTTP.Addr = "127.0.0.1:9120"

	cfg.Logging.Enabled = true
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	return cfg
}

// ParseStartupArgs parses the §6 startup argument list: whitespace
// separated "key=value" tokens, with a single bare token (no "=")
// setting Socket directly.
func ParseStartupArgs(args []string) (map[string]any, error) {
	flat := map[string]any{}

	for _, tok := range args {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}

		idx := strings.IndexByte(tok, '=')
		if idx < 0 {
			flat["socket"] = tok
			continue
		}

		key := strings.TrimSpace(tok[:idx])
		val := strings.TrimSpace(tok[idx+1:])
		flat[key] = coerce(val)
	}

	return flat, nil
}

// coerce converts a raw startup-arg value into a bool/int/string,
// mirroring how the original core's key=value tokens are typed.
func coerce(val string) any {
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	if i, err := strconv.Atoi(val); err == nil {
		return i
	}
	return val
}

func authorizationModeDecodeHook(f reflect.Type, t reflect.Type, data any) (any, error) {
	if f.Kind() != reflect.String || t != reflect.TypeOf(AuthorizationMode("")) {
		return data, nil
	}
	switch strings.ToLower(data.(string)) {
	case "strict":
		return AuthorizationStrict, nil
	case "loose":
		return AuthorizationLoose, nil
	default:
		return nil, fmt.Errorf("invalid authorization mode: %s", data)
	}
}

func dataEncodingDecodeHook(f reflect.Type, t reflect.Type, data any) (any, error) {
	if f.Kind() != reflect.String || t != reflect.TypeOf(DataEncoding("")) {
		return data, nil
	}
	switch strings.ToLower(data.(string)) {
	case "utf8":
		return DataEncodingUTF8, nil
	case "latin1":
		return DataEncodingLatin1, nil
	case "mixed":
		return DataEncodingMixed, nil
	default:
		return nil, fmt.Errorf("invalid data encoding: %s", data)
	}
}

// NewConfig builds a Config from raw startup-argument tokens (§6),
// applying defaults and validating the result, the way the teacher's
// NewConfig layers viper over DefaultConfig.
func NewConfig(startupArgs []string) (*Config, error) {
	flat, err := ParseStartupArgs(startupArgs)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	if err := v.MergeConfigMap(flatten(flat)); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	hook := mapstructure.ComposeDecodeHookFunc(
		authorizationModeDecodeHook,
		dataEncodingDecodeHook,
	)
	if err := v.Unmarshal(cfg, viper.DecodeHook(hook)); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// flatten re-keys the top-level key=value map the startup parser
// produces onto the nested viper keys the Config struct expects, e.g.
// "max_cached_messages" -> "log_cache.max_cached_messages".
func flatten(raw map[string]any) map[string]any {
	dest := map[string]any{}

	place := func(section, key string, v any) {
		sec, ok := dest[section].(map[string]any)
		if !ok {
			sec = map[string]any{}
			dest[section] = sec
		}
		sec[key] = v
	}

	for k, v := range raw {
		switch k {
		case "socket":
			dest["socket"] = v
		case "debug":
			dest["debug"] = v
		case "max_cached_messages":
			place("log_cache", "max_cached_messages", v)
		case "max_lines_per_logfile":
			place("log_cache", "max_lines_per_logfile", v)
		case "thread_stack_size":
			place("threads", "thread_stack_size", v)
		case "num_client_threads":
			place("threads", "num_client_threads", v)
		case "max_response_size":
			place("limits", "max_response_size", v)
		case "query_timeout":
			place("limits", "query_timeout", v)
		case "idle_timeout":
			place("limits", "idle_timeout", v)
		case "service_authorization":
			place("authorization", "service_authorization", v)
		case "group_authorization":
			place("authorization", "group_authorization", v)
		case "log_file":
			place("paths", "log_file", v)
		case "crash_reports_path":
			place("paths", "crash_reports_path", v)
		case "license_usage_history_path":
			place("paths", "license_usage_history_path", v)
		case "mk_inventory_path":
			place("paths", "mk_inventory_path", v)
		case "structured_status_path":
			place("paths", "structured_status_path", v)
		case "robotmk_html_log_path":
			place("paths", "robotmk_html_log_path", v)
		case "mk_logwatch_path":
			place("paths", "mk_logwatch_path", v)
		case "prediction_path":
			place("paths", "prediction_path", v)
		case "mkeventd_socket":
			place("event_console", "mkeventd_socket", v)
		case "state_file_created_file":
			place("paths", "state_file_created_file", v)
		case "licensed_state_file":
			place("paths", "licensed_state_file", v)
		case "pnp_path":
			place("paths", "pnp_path", v)
		case "data_encoding":
			dest["data_encoding"] = v
		case "edition":
			dest["edition"] = v
		default:
			// unknown keys are kept at top level; they are ignored by
			// Unmarshal since no struct field maps to them
			dest[k] = v
		}
	}

	return dest
}
