package core

import (
	"fmt"
	"log"
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
		Address                   string        `mapstructure:"address"`
		DebugAddress              string        `mapstructure:"debugaddress"`
		ShutdownTimeout           time.Duration `mapstructure:"shutdowntimeout"`
		JWTExpirationDelta        time.Duration `mapstructure:"jwtexpirationdelta"`
		JWTRefreshExpirationDelta time.Duration `mapstructure:"jwtrefreshexpirationdelta"`
		PasswordResetTimeoutDelta time.Duration `mapstructure:"passwordresettimeoutdelta"`
		AuthRateLimit             float64       `mapstructure:"authratelimit"` // requests per second per IP
	}

	DatabaseConfig struct {
		Engine        string `mapstructure:"engine"`
		Host          string `mapstructure:"host"`
		Port          int    `mapstructure:"port"`
		Name          string `mapstructure:"name"`
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		AdminUser     string `mapstructure:"adminuser"`
		AdminPassword string `mapstructure:"adminpassword"`
		DisableTLS    bool   `mapstructure:"disabletls"`
		InMemory      bool   `mapstructure:"inmemory"`
	}

	RedisConfig struct {
		Address  string `mapstructure:"address"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	}

	GenAIConfig struct {
		APIKey string `mapstructure:"apikey"`
		Model  string `mapstructure:"model"`
	}

	TwilioConfig struct {
		AccountSID       string `mapstructure:"accountsid"`
		AuthToken        string `mapstructure:"authtoken"`
		VerifyServiceSID string `mapstructure:"verifyservicesid"`
	}

	PaymentConfig struct {
		ProcessingDelay time.Duration `mapstructure:"processingdelay"`
		ResetDelay      time.Duration `mapstructure:"resetdelay"`
	}

	Config struct {
		Env             string        `mapstructure:"env"`
		Build           string        `mapstructure:"build"`
		Debug           bool          `mapstructure:"debug"`
		TestMode        bool          `mapstructure:"testmode"`
		AppName         string        `mapstructure:"appname"`
		SecretKey       string        `mapstructure:"secretkey"`
		FrontendBaseURL string        `mapstructure:"frontendbaseurl"`
		FromEmail       string        `mapstructure:"defaultfromemail"`
		SendgridAPIKey  string        `mapstructure:"sendgridapikey"`
		RollbarToken    string        `mapstructure:"rollbartoken"`
		GoogleClientID  string        `mapstructure:"googleclientid"`
		ServerHost      string        `mapstructure:"serverhost"`
		OTPCodeTTL      time.Duration `mapstructure:"otpcodettl"`

		Server   ServerConfig   `mapstructure:"server"`
		Database DatabaseConfig `mapstructure:"database"`
		Redis    RedisConfig    `mapstructure:"redis"`
		GenAI    GenAIConfig    `mapstructure:"genai"`
		Twilio   TwilioConfig   `mapstructure:"twilio"`
		Payment  PaymentConfig  `mapstructure:"payment"`
	}
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "EduConnect Pro")
	v.SetDefault("secretKey", "k2v$9nq+u7=rt&w3(zx!e1#pl4m*hc8g)dy0a_s6-j5bfo")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "EduConnect Pro <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("googleClientId", "")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("otpCodeTTL", 10*time.Minute)

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("server.authRateLimit", 5.0)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "educonnect")
	v.SetDefault("database.user", "educonnect")
	v.SetDefault("database.password", "educonnect")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.inMemory", false)

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("genai.apiKey", "")
	v.SetDefault("genai.model", "gemini-2.0-flash")

	v.SetDefault("twilio.accountSid", "")
	v.SetDefault("twilio.authToken", "")
	v.SetDefault("twilio.verifyServiceSid", "")

	v.SetDefault("payment.processingDelay", 2*time.Second)
	v.SetDefault("payment.resetDelay", 3*time.Second)
}

// NewConfig loads the configuration of the current environment.
// ENV selects the environment: DEV (local; default), TEST, QA, PROD.
// Values are read from `<ENV>_<KEY>` env vars, optionally seeded from config/.env.<env>.
func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		log.Fatalf("config.Unmarshal: %v", err)
	}
	conf.Env = env
	return conf
}

// NewTestConfig returns a config suitable for unit tests: no external services, short delays.
func NewTestConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)
	v.Set("testMode", true)
	v.Set("database.inMemory", true)
	v.Set("payment.processingDelay", time.Millisecond)
	v.Set("payment.resetDelay", 50*time.Millisecond)

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		log.Fatalf("config.Unmarshal: %v", err)
	}
	conf.Env = "TEST"
	return conf
}

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.FromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	return *addr
}

func (db DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", db.Host, db.Port)
}
