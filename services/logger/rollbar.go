package logsvc

import (
	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"github.com/sirupsen/logrus"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/user"
)

// RollbarLogger reports to rollbar and writes structured lines through logrus.
type RollbarLogger struct {
	log *logrus.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(log *logrus.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.ServerHost)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	if conf.Debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return &RollbarLogger{log: log}
}

// NewLogrus returns the process logger: JSON outside DEV.
func NewLogrus(conf *core.Config) *logrus.Logger {
	log := logrus.New()
	if conf.Env != "DEV" && conf.Env != "TEST" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// expected fmt: msg | error, map[string]interface{}, user.User
func (l *RollbarLogger) prepare(msg string, args []interface{}) ([]interface{}, *logrus.Entry) {
	var usrSet bool
	entry := logrus.NewEntry(l.log)
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		switch arg := arg.(type) {
		case user.User:
			// only set one User
			if !usrSet {
				rollbar.SetPerson(arg.ID, arg.Name, arg.Email)
				entry = entry.WithFields(logrus.Fields{"user_id": arg.ID, "role": arg.Role})
				usrSet = true
			}
			continue
		case error:
			entry = entry.WithError(arg)
		case map[string]interface{}:
			entry = entry.WithFields(arg)
		}
		newArgs = append(newArgs, arg)
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return newArgs, entry
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) {
	rbArgs, entry := l.prepare(msg, args)
	rollbar.Debug(rbArgs...)
	entry.Debug(msg)
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	rbArgs, entry := l.prepare(msg, args)
	rollbar.Info(rbArgs...)
	entry.Info(msg)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	rbArgs, entry := l.prepare(msg, args)
	rollbar.Warning(rbArgs...)
	entry.Warn(msg)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	rbArgs, entry := l.prepare(msg, args)
	rollbar.Error(rbArgs...)
	entry.Error(msg)
}

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	rbArgs, entry := l.prepare(msg, args)
	rollbar.Critical(rbArgs...)
	rollbar.Wait()
	entry.Fatal(msg)
}
