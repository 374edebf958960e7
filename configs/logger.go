package configs

import (
	"os"

	log "github.com/sirupsen/logrus"
)

func ConfigureLogger(cfg *Config) {
	if cfg.LogJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	log.SetOutput(os.Stdout)

	lvl, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithFields(log.Fields{"level": cfg.LogLevel}).Warn("Unknown log level, falling back to info")
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
