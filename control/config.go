// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Static datapath configuration loaded from defaults, an optional file,
// .env files and HIOLOAD_* environment variables, in increasing priority.

package control

import (
	"os"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/joho/godotenv"
	"github.com/momentics/hioload-sga/api"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "hioload"

// Config holds parameters fixed for the lifetime of a session.
type Config struct {
	RxItemSize    datasize.ByteSize
	RxItems       int
	TxItemSize    datasize.ByteSize
	TxItems       int
	PageSize      datasize.ByteSize // 4KB, 2MB or 1GB
	LockMemory    bool
	CopyThreshold datasize.ByteSize

	QueueEntries     int
	Framing          bool
	CompletionBudget int

	LogLevel  string
	LogFormat string
}

var defaults = map[string]any{
	"rx-item-size":      "8KB",
	"rx-items":          1024,
	"tx-item-size":      "8KB",
	"tx-items":          1024,
	"page-size":         "2MB",
	"lock-memory":       false,
	"copy-threshold":    "512B",
	"queue-entries":     256,
	"framing":           true,
	"completion-budget": 32,
	"log-level":         "info",
	"log-format":        "logfmt",
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	cfg, err := fromViper(newViper(false))
	if err != nil {
		panic(err) // defaults are static
	}
	return cfg
}

// LoadConfig reads path (any format viper understands, may be empty) after
// preloading the given .env files. Missing .env files are skipped.
func LoadConfig(path string, envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(errors.Cause(err)) {
			return Config{}, errors.Wrapf(err, "load %s", f)
		}
	}
	v := newViper(true)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
	}
	return fromViper(v)
}

func newViper(env bool) *viper.Viper {
	v := viper.New()
	if env {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		v.AutomaticEnv()
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	return v
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		RxItems:          v.GetInt("rx-items"),
		TxItems:          v.GetInt("tx-items"),
		LockMemory:       v.GetBool("lock-memory"),
		QueueEntries:     v.GetInt("queue-entries"),
		Framing:          v.GetBool("framing"),
		CompletionBudget: v.GetInt("completion-budget"),
		LogLevel:         v.GetString("log-level"),
		LogFormat:        v.GetString("log-format"),
	}
	for key, dst := range map[string]*datasize.ByteSize{
		"rx-item-size":   &cfg.RxItemSize,
		"tx-item-size":   &cfg.TxItemSize,
		"page-size":      &cfg.PageSize,
		"copy-threshold": &cfg.CopyThreshold,
	} {
		if err := dst.UnmarshalText([]byte(v.GetString(key))); err != nil {
			return Config{}, api.NewError(api.ErrCodeInvalidArgument, "bad size").
				WithContext("key", key).WithContext("value", v.GetString(key)).WithCause(err)
		}
	}
	return cfg, cfg.Validate()
}

// Validate checks structural constraints the datapath relies on.
func (c Config) Validate() error {
	for name, size := range map[string]datasize.ByteSize{"rx-item-size": c.RxItemSize, "tx-item-size": c.TxItemSize} {
		if n := size.Bytes(); n == 0 || n&(n-1) != 0 {
			return api.NewError(api.ErrCodeInvalidArgument, "item size must be a power of two").
				WithContext("key", name).WithContext("value", size.HumanReadable())
		}
	}
	switch c.PageSize {
	case 4 * datasize.KB, 2 * datasize.MB, 1 * datasize.GB:
	default:
		return api.NewError(api.ErrCodeInvalidArgument, "page size must be 4KB, 2MB or 1GB").
			WithContext("value", c.PageSize.HumanReadable())
	}
	if c.RxItems <= 0 || c.TxItems <= 0 {
		return api.NewError(api.ErrCodeInvalidArgument, "item counts must be positive").
			WithContext("rx", c.RxItems).WithContext("tx", c.TxItems)
	}
	if n := c.QueueEntries; n <= 0 || n&(n-1) != 0 {
		return api.NewError(api.ErrCodeInvalidArgument, "queue entries must be a power of two").
			WithContext("value", n)
	}
	return nil
}

// Map flattens the config for the runtime store and debug output.
func (c Config) Map() map[string]any {
	return map[string]any{
		"rx-item-size":      c.RxItemSize.HumanReadable(),
		"rx-items":          c.RxItems,
		"tx-item-size":      c.TxItemSize.HumanReadable(),
		"tx-items":          c.TxItems,
		"page-size":         c.PageSize.HumanReadable(),
		"lock-memory":       c.LockMemory,
		"copy-threshold":    c.CopyThreshold.HumanReadable(),
		"queue-entries":     c.QueueEntries,
		"framing":           c.Framing,
		"completion-budget": c.CompletionBudget,
		"log-level":         c.LogLevel,
		"log-format":        c.LogFormat,
	}
}
