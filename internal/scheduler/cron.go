package scheduler

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseCron accepts five-field, six-field (leading seconds) and descriptor
// expressions. A seventh year field is accepted only when it is "*" or "?".
func ParseCron(expr string) (cron.Schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidCron)
	}
	if len(fields) == 7 {
		if fields[6] != "*" && fields[6] != "?" {
			return nil, fmt.Errorf("%w: year field %q is not supported", ErrInvalidCron, fields[6])
		}
		fields = fields[:6]
	}
	sched, err := cronParser.Parse(strings.Join(fields, " "))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCron, err)
	}
	return sched, nil
}

// ValidateCron reports whether expr can drive a trigger.
func ValidateCron(expr string) error {
	_, err := ParseCron(expr)
	return err
}

// cronLogger routes the engine's own logging onto zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func newCronLogger(log *zap.Logger) cron.Logger {
	return cronLogger{log: log.Named("cron").Sugar()}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("scheduler.cron."+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("scheduler.cron."+msg, append(keysAndValues, "error", err.Error())...)
}
