package core

import (
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
	Config struct {
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		RollbarToken     string
		SendgridAPIKey   string
		DefaultFromEmail mail.Address

		Server       ServerConfig
		Database     DatabaseConfig
		Quality      QualityThresholds
		HealthReport HealthReportConfig
	}

	ServerConfig struct {
		Host               string
		Address            string
		DebugAddress       string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	HealthReportConfig struct {
		Recipients []mail.Address
	}

	// QualityThresholds holds every limit used by the integrity validator, the outlier detector,
	// the health reporter and the top arrivals ranking.
	QualityThresholds struct {
		WaitTooShortSeconds       int     `validate:"gte=0"`
		WaitTooLongSeconds        int     `validate:"gtfield=WaitTooShortSeconds"`
		WaitMismatchToleranceSecs int     `validate:"gte=0"`
		StdDevMultiplier          float64 `validate:"gt=0"`
		EventsPerDayTooFew        int     `validate:"gte=0"`
		EventsPerDayTooMany       int     `validate:"gtfield=EventsPerDayTooFew"`
		SessionTooShortSeconds    int     `validate:"gte=0"`
		SessionTooLongSeconds     int     `validate:"gtfield=SessionTooShortSeconds"`
		MaxCarNumber              int     `validate:"gt=0"`
		SampleLimit               int     `validate:"gt=0"`
		IssueLimit                int     `validate:"gt=0"`
		HealthyScore              int     `validate:"lte=100,gtfield=WarningScore"`
		WarningScore              int     `validate:"gte=0"`
		DailyTopArrivals          int     `validate:"gt=0"`
		TopArrivalsLimit          int     `validate:"gt=0"`
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// DefaultQualityThresholds returns the thresholds the dashboards were designed around.
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		WaitTooShortSeconds:       30,
		WaitTooLongSeconds:        7200,
		WaitMismatchToleranceSecs: 1,
		StdDevMultiplier:          3,
		EventsPerDayTooFew:        5,
		EventsPerDayTooMany:       500,
		SessionTooShortSeconds:    300,
		SessionTooLongSeconds:     28800,
		MaxCarNumber:              9999,
		SampleLimit:               10,
		IssueLimit:                100,
		HealthyScore:              90,
		WarningScore:              70,
		DailyTopArrivals:          5,
		TopArrivalsLimit:          5,
	}
}

func NewConfig() *Config {
	conf := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	// defaults
	th := DefaultQualityThresholds()
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("build", "develop")
	conf.SetDefault("debug", env == "DEV")
	conf.SetDefault("testMode", env == "TEST")
	conf.SetDefault("appName", "Masomo Dismissal")
	conf.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverAddress", ":8000")
	conf.SetDefault("serverDebugAddress", ":4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", "5432")
	conf.SetDefault("dbName", "dismissal")
	conf.SetDefault("dbUser", "dismissal")
	conf.SetDefault("dbPassword", "dismissal")
	conf.SetDefault("dbAdminUser", "")
	conf.SetDefault("dbAdminPassword", "")
	conf.SetDefault("dbDisableTLS", true)
	conf.SetDefault("waitTooShortSeconds", th.WaitTooShortSeconds)
	conf.SetDefault("waitTooLongSeconds", th.WaitTooLongSeconds)
	conf.SetDefault("waitMismatchToleranceSecs", th.WaitMismatchToleranceSecs)
	conf.SetDefault("stdDevMultiplier", th.StdDevMultiplier)
	conf.SetDefault("eventsPerDayTooFew", th.EventsPerDayTooFew)
	conf.SetDefault("eventsPerDayTooMany", th.EventsPerDayTooMany)
	conf.SetDefault("sessionTooShortSeconds", th.SessionTooShortSeconds)
	conf.SetDefault("sessionTooLongSeconds", th.SessionTooLongSeconds)
	conf.SetDefault("maxCarNumber", th.MaxCarNumber)
	conf.SetDefault("sampleLimit", th.SampleLimit)
	conf.SetDefault("issueLimit", th.IssueLimit)
	conf.SetDefault("healthyScore", th.HealthyScore)
	conf.SetDefault("warningScore", th.WarningScore)
	conf.SetDefault("dailyTopArrivals", th.DailyTopArrivals)
	conf.SetDefault("topArrivalsLimit", th.TopArrivalsLimit)
	conf.SetDefault("healthReportRecipients", "")

	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "config"
	}
	dotEnvPath := filepath.Join(configDir, ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Env:              env,
		Build:            conf.GetString("build"),
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		AppName:          conf.GetString("appName"),
		SecretKey:        conf.GetString("secretKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		SendgridAPIKey:   conf.GetString("sendgridApiKey"),
		DefaultFromEmail: mail.Address{Name: conf.GetString("appName"), Address: conf.GetString("defaultFromEmail")},
		Server: ServerConfig{
			Host:               conf.GetString("serverHost"),
			Address:            conf.GetString("serverAddress"),
			DebugAddress:       conf.GetString("serverDebugAddress"),
			ShutdownTimeout:    conf.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta: conf.GetDuration("jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetString("dbPort"),
			Name:          conf.GetString("dbName"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
		},
		Quality: QualityThresholds{
			WaitTooShortSeconds:       conf.GetInt("waitTooShortSeconds"),
			WaitTooLongSeconds:        conf.GetInt("waitTooLongSeconds"),
			WaitMismatchToleranceSecs: conf.GetInt("waitMismatchToleranceSecs"),
			StdDevMultiplier:          conf.GetFloat64("stdDevMultiplier"),
			EventsPerDayTooFew:        conf.GetInt("eventsPerDayTooFew"),
			EventsPerDayTooMany:       conf.GetInt("eventsPerDayTooMany"),
			SessionTooShortSeconds:    conf.GetInt("sessionTooShortSeconds"),
			SessionTooLongSeconds:     conf.GetInt("sessionTooLongSeconds"),
			MaxCarNumber:              conf.GetInt("maxCarNumber"),
			SampleLimit:               conf.GetInt("sampleLimit"),
			IssueLimit:                conf.GetInt("issueLimit"),
			HealthyScore:              conf.GetInt("healthyScore"),
			WarningScore:              conf.GetInt("warningScore"),
			DailyTopArrivals:          conf.GetInt("dailyTopArrivals"),
			TopArrivalsLimit:          conf.GetInt("topArrivalsLimit"),
		},
		HealthReport: HealthReportConfig{
			Recipients: parseAddressList(conf.GetString("healthReportRecipients")),
		},
	}
}

// parseAddressList parses a comma separated list of addresses, skipping invalid ones.
func parseAddressList(s string) []mail.Address {
	if CleanString(s) == "" {
		return nil
	}
	addrs, err := mail.ParseAddressList(s)
	if err != nil {
		log.Printf("config.parseAddressList(%q): %v", s, err)
		return nil
	}
	out := make([]mail.Address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, *a)
	}
	return out
}
