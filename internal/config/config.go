package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "TRACKER_"

type Application struct {
	// Host is the public base URL, used to build links in outgoing emails.
	Host     string   `koanf:"host"`
	Listen   string   `koanf:"listen"`
	Database Database `koanf:"db"`
	Session  Session  `koanf:"session"`
	Auth     Auth     `koanf:"auth"`
	SMTP     SMTP     `koanf:"smtp"`
	Upload   Upload   `koanf:"upload"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Session struct {
	CookieName string        `koanf:"cookiename"`
	TTL        time.Duration `koanf:"ttl"`
	Secure     bool          `koanf:"secure"`
}

type Auth struct {
	Secret string `koanf:"secret"`
	// AdminEmail is granted the admin role on registration and is the only
	// account allowed to delete records.
	AdminEmail      string        `koanf:"adminemail"`
	ConfirmationTTL time.Duration `koanf:"confirmationttl"`
}

type SMTP struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
	User string `koanf:"user"`
	Pass string `koanf:"pass"`
	From string `koanf:"from"`
}

// Ready reports whether every setting needed to deliver mail is present.
func (s SMTP) Ready() bool {
	return s.Host != "" && s.Port != 0 && s.User != "" && s.Pass != "" && s.Sender() != ""
}

// Sender falls back to the SMTP user when no explicit from address is set.
func (s SMTP) Sender() string {
	if s.From != "" {
		return s.From
	}
	return s.User
}

type Upload struct {
	MaxBytes int64 `koanf:"maxbytes"`
}

func Defaults() Application {
	return Application{
		Host:   "http://localhost:8181",
		Listen: ":8181",
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "tracker",
			Pass:   "",
			Name:   "tracker",
			Schema: "tracker",
		},
		Session: Session{
			CookieName: "sid",
			TTL:        7 * 24 * time.Hour,
		},
		Auth: Auth{
			Secret:          "change-this-key",
			ConfirmationTTL: time.Hour,
		},
		SMTP: SMTP{
			Port: 587,
		},
		Upload: Upload{
			MaxBytes: 32 << 20,
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	if app.Auth.Secret == Defaults().Auth.Secret {
		log.Warn("auth.secret is using the built-in default, set TRACKER_AUTH_SECRET in production")
	}

	return app, nil
}
