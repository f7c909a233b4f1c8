package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "SCHEDULER_"

type Application struct {
	Host       string     `koanf:"host"`
	Port       int        `koanf:"port"`
	Database   Database   `koanf:"db"`
	Recurrence Recurrence `koanf:"recurrence"`
	Conflicts  Conflicts  `koanf:"conflicts"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Recurrence struct {
	// MaxIterations caps the periods examined per expansion, 0 means no cap.
	MaxIterations int `koanf:"maxiterations"`
}

type Conflicts struct {
	LookaheadYears int  `koanf:"lookaheadyears"`
	Reject         bool `koanf:"reject"`
}

var defaults = Application{
	Host: "http://localhost:3000",
	Port: 8181,
	Database: Database{
		Host:   "localhost",
		Port:   5432,
		User:   "scheduler",
		Pass:   "",
		Name:   "scheduler",
		Schema: "scheduler",
	},
	Recurrence: Recurrence{
		MaxIterations: 0,
	},
	Conflicts: Conflicts{
		LookaheadYears: 1,
		Reject:         false,
	},
}

// Load layers struct defaults, the YAML file at path (optional) and
// SCHEDULER_ prefixed environment variables, in that order.
func Load(path string) (Application, error) {
	var k = koanf.New(".")

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
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

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			// SCHEDULER_DB_HOST -> db.host
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

	return app, nil
}
