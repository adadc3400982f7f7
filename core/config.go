package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env          string `mapstructure:"-"`
		Build        string `mapstructure:"build"`
		Debug        bool   `mapstructure:"debug"`
		TestMode     bool   `mapstructure:"testMode"`
		AppName      string `mapstructure:"appName"`
		SecretKey    string `mapstructure:"secretKey"`
		RollbarToken string `mapstructure:"rollbarToken"`

		Server   ServerConfig   `mapstructure:"server"`
		Database DatabaseConfig `mapstructure:"database"`
		Redis    RedisConfig    `mapstructure:"redis"`
		Avatar   AvatarConfig   `mapstructure:"avatar"`
	}

	ServerConfig struct {
		Host               string        `mapstructure:"host"`
		Address            string        `mapstructure:"address"`
		DebugHost          string        `mapstructure:"debugHost"`
		ShutdownTimeout    time.Duration `mapstructure:"shutdownTimeout"`
		JWTExpirationDelta time.Duration `mapstructure:"jwtExpirationDelta"`
		JWTAudience        string        `mapstructure:"jwtAudience"`
	}

	DatabaseConfig struct {
		Engine        string `mapstructure:"engine"`
		Host          string `mapstructure:"host"`
		Port          string `mapstructure:"port"`
		Name          string `mapstructure:"name"`
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		AdminUser     string `mapstructure:"adminUser"`
		AdminPassword string `mapstructure:"adminPassword"`
		DisableTLS    bool   `mapstructure:"disableTLS"`
	}

	RedisConfig struct {
		URL      string        `mapstructure:"url"`
		Password string        `mapstructure:"password"`
		CacheTTL time.Duration `mapstructure:"cacheTTL"`
	}

	AvatarConfig struct {
		ProbeTimeout       time.Duration `mapstructure:"probeTimeout"`
		BulkTimeout        time.Duration `mapstructure:"bulkTimeout"`
		BatchSize          int           `mapstructure:"batchSize"`
		BatchPause         time.Duration `mapstructure:"batchPause"`
		PageSecure         bool          `mapstructure:"pageSecure"`
		AllowInsecure      bool          `mapstructure:"allowInsecure"`
		BaseURL            string        `mapstructure:"baseURL"`
		Cache              string        `mapstructure:"cache"` // memory | redis | none
		DefaultColor       string        `mapstructure:"defaultColor"`
		Fallbacks          []string      `mapstructure:"fallbacks"`
		EmergencyFallbacks []string      `mapstructure:"emergencyFallbacks"`
		// ProbePrivateNetworks lets the prober reach loopback and private addresses (local development).
		ProbePrivateNetworks bool   `mapstructure:"probePrivateNetworks"`
		UploadDir            string `mapstructure:"uploadDir"`
		MaxUploadSize        int64  `mapstructure:"maxUploadSize"`
	}
)

func (dbc DatabaseConfig) Address() string {
	return dbc.Host + ":" + dbc.Port
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "UKMiverse")
	v.SetDefault("secretKey", "7r!x0d$k2-ukm1v3rse-n0t-s0-s3cr3t=q9v#m4)u(w8z&c1")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtAudience", "UKMiverse")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "ukmiverse")
	v.SetDefault("database.user", "ukmiverse")
	v.SetDefault("database.password", "ukmiverse")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.cacheTTL", 30*time.Minute)

	v.SetDefault("avatar.probeTimeout", 5*time.Second)
	v.SetDefault("avatar.bulkTimeout", 3*time.Second)
	v.SetDefault("avatar.batchSize", 5)
	v.SetDefault("avatar.batchPause", 500*time.Millisecond)
	v.SetDefault("avatar.pageSecure", true)
	v.SetDefault("avatar.allowInsecure", false)
	v.SetDefault("avatar.baseURL", "http://localhost:8000")
	v.SetDefault("avatar.cache", "memory")
	v.SetDefault("avatar.defaultColor", "9333ea")
	v.SetDefault("avatar.fallbacks", []string{
		"https://via.placeholder.com/150/9333ea/FFFFFF?text=USER",
		"https://via.placeholder.com/150/0066cc/FFFFFF?text=AVATAR",
		"https://dummyimage.com/150x150/28a745/ffffff&text=OK",
		"https://ui-avatars.com/api/?name=User&size=150&background=9333ea&color=fff",
	})
	v.SetDefault("avatar.probePrivateNetworks", false)
	v.SetDefault("avatar.uploadDir", filepath.Join("static", "uploads", "avatars"))
	v.SetDefault("avatar.maxUploadSize", int64(5<<20))
	v.SetDefault("avatar.emergencyFallbacks", []string{
		"https://via.placeholder.com/150/6c757d/FFFFFF?text=DEFAULT",
		"https://dummyimage.com/150x150/6c757d/ffffff&text=User",
	})
}

// NewConfig builds the app Config from defaults, the optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the environment name, eg. `PROD_DATABASE_HOST`.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	if root, ok := projectRoot(); ok {
		dotEnvPath := filepath.Join(root, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		log.Fatalf("config.Unmarshal(): %v", err)
	}
	conf.Env = env
	return conf
}

// projectRoot walks up from the working directory until it finds go.mod.
// go-test changes the working directory to the package being tested, hence the walk.
func projectRoot() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
