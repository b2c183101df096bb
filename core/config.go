package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // sqlite | postgres
		Path          string // sqlite only
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	SchedulerConfig struct {
		Enabled  bool
		Interval time.Duration
	}

	CanvasConfig struct {
		Width  float64
		Height float64
	}

	// GhostConfig toggles the experimental analysis engines.
	GhostConfig struct {
		Enabled          bool
		Entanglement     bool
		Osmosis          bool
		Lattice          bool
		Vector           bool
		Ion              bool
		Warp             bool
		GridSize         int
		Temperature      float64
		MaxGravityPoints int
	}

	Config struct {
		Env             string // DEV (local; default), TEST, QA, PROD
		Build           string
		AppName         string
		Debug           bool
		TestMode        bool
		SecretKey       string
		FrontendBaseURL string
		// PasswordResetTimeoutDelta is rounded down to days.
		PasswordResetTimeoutDelta time.Duration
		defaultFromEmail          string
		RollbarToken              string
		SendgridAPIKey            string
		Server                    ServerConfig
		Database                  DatabaseConfig
		Scheduler                 SchedulerConfig
		Canvas                    CanvasConfig
		Ghost                     GhostConfig
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	return *addr
}

func (db DatabaseConfig) Address() string {
	if db.Port == "" {
		return db.Host
	}
	return net.JoinHostPort(db.Host, db.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Seatplan")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("secretKey", "n8c#-2wq)xk%d7&+m0y@4rvz!u1e^s9p(lj$3tbh6fa=5oig")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Seatplan <noreply@localhost>")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("server.host", "0.0.0.0:8000")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 4*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)

	v.SetDefault("database.engine", "sqlite")
	v.SetDefault("database.path", "seatplan.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "seatplan")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval", time.Minute)

	v.SetDefault("canvas.width", 4000.0)
	v.SetDefault("canvas.height", 4000.0)

	v.SetDefault("ghost.enabled", true)
	for _, engine := range []string{"entanglement", "osmosis", "lattice", "vector", "ion", "warp"} {
		v.SetDefault("ghost."+engine, true)
	}
	v.SetDefault("ghost.gridSize", 20)
	v.SetDefault("ghost.temperature", 30.0)
	v.SetDefault("ghost.maxGravityPoints", 10)
}

// NewConfig loads the configuration of the current environment (ENV).
// Values are read from `<ENV>_*` environment variables, optionally loaded from `config/.env.<env>`.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("database.path", ":memory:")
		v.SetDefault("scheduler.enabled", false)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	confDir := os.Getenv("CONFIG_DIR")
	if confDir == "" {
		confDir = "config"
	}
	dotEnvPath := filepath.Join(confDir, ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:                       env,
		Build:                     v.GetString("build"),
		AppName:                   v.GetString("appName"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           v.GetString("frontendBaseURL"),
		defaultFromEmail:          v.GetString("defaultFromEmail"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		RollbarToken:              v.GetString("rollbarToken"),
		SendgridAPIKey:            v.GetString("sendgridAPIKey"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Path:          v.GetString("database.path"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Scheduler: SchedulerConfig{
			Enabled:  v.GetBool("scheduler.enabled"),
			Interval: v.GetDuration("scheduler.interval"),
		},
		Canvas: CanvasConfig{
			Width:  v.GetFloat64("canvas.width"),
			Height: v.GetFloat64("canvas.height"),
		},
		Ghost: GhostConfig{
			Enabled:          v.GetBool("ghost.enabled"),
			Entanglement:     v.GetBool("ghost.entanglement"),
			Osmosis:          v.GetBool("ghost.osmosis"),
			Lattice:          v.GetBool("ghost.lattice"),
			Vector:           v.GetBool("ghost.vector"),
			Ion:              v.GetBool("ghost.ion"),
			Warp:             v.GetBool("ghost.warp"),
			GridSize:         v.GetInt("ghost.gridSize"),
			Temperature:      v.GetFloat64("ghost.temperature"),
			MaxGravityPoints: v.GetInt("ghost.maxGravityPoints"),
		},
	}
}

// NewTestConfig returns a configuration suitable for tests, independent of the environment.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	conf := &Config{
		Env:                       "TEST",
		Build:                     "test",
		AppName:                   v.GetString("appName"),
		TestMode:                  true,
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           v.GetString("frontendBaseURL"),
		defaultFromEmail:          v.GetString("defaultFromEmail"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		Server: ServerConfig{
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database:  DatabaseConfig{Engine: "sqlite", Path: ":memory:"},
		Scheduler: SchedulerConfig{Interval: time.Minute},
		Canvas:    CanvasConfig{Width: v.GetFloat64("canvas.width"), Height: v.GetFloat64("canvas.height")},
		Ghost: GhostConfig{
			Enabled:          true,
			Entanglement:     true,
			Osmosis:          true,
			Lattice:          true,
			Vector:           true,
			Ion:              true,
			Warp:             true,
			GridSize:         v.GetInt("ghost.gridSize"),
			Temperature:      v.GetFloat64("ghost.temperature"),
			MaxGravityPoints: v.GetInt("ghost.maxGravityPoints"),
		},
	}
	return conf
}

func (c *Config) String() string {
	return fmt.Sprintf("%s [%s] env=%s db=%s", c.AppName, c.Build, c.Env, c.Database.Engine)
}
