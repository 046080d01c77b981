package logger

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// New builds a logrus entry configured from the environment. Local runs get a
// colored text formatter; everything else logs JSON.
func New() *logrus.Entry {
	base := logrus.New()

	env := os.Getenv("ENV")
	if env == "" || env == "development" {
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
			ForceColors:     true,
		})
	} else {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	}

	base.SetOutput(os.Stdout)

	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		base.SetLevel(logrus.DebugLevel)
	case "warn":
		base.SetLevel(logrus.WarnLevel)
	case "error":
		base.SetLevel(logrus.ErrorLevel)
	default:
		base.SetLevel(logrus.InfoLevel)
	}

	return logrus.NewEntry(base)
}

// ForModule returns an entry tagged with the owning module name.
func ForModule(name string) *logrus.Entry {
	return New().WithField("module", name)
}
