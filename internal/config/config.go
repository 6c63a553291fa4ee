package config

import (
	"errors"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Env string
	} `mapstructure:"app"`

	Server struct {
		Addr      string
		StaticDir string `mapstructure:"static_dir"`
	} `mapstructure:"server"`

	Database struct {
		Path string
	} `mapstructure:"database"`

	Auth struct {
		LoginID  string `mapstructure:"login_id"`
		Password string
	} `mapstructure:"auth"`

	Invoice struct {
		LogoPath string `mapstructure:"logo_path"`
	} `mapstructure:"invoice"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`
}

// Load reads the YAML config at path, with APP_* env overrides. A missing
// file is not an error; every field has a usable default. Credentials in
// the config are a convenience gate for the shop device, not a security
// boundary.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	v.SetDefault("app.env", "prod")
	v.SetDefault("server.addr", "127.0.0.1:8417")
	v.SetDefault("server.static_dir", "./static")
	v.SetDefault("database.path", "rkgold.db")
	v.SetDefault("metrics.enabled", false)

	var c Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return c, err
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}
