package logger

import (
	"sync"

	"go.uber.org/zap"
)

// Log is the process wide sugared logger. It is a no-op until Init runs.
var Log = zap.NewNop().Sugar()

var once sync.Once

func Init(development bool) error {
	var err error
	once.Do(func() {
		var l *zap.Logger
		if development {
			l, err = zap.NewDevelopment()
		} else {
			l, err = zap.NewProduction()
		}
		if err != nil {
			return
		}
		Log = l.Sugar()
	})
	return err
}

func Sync() {
	_ = Log.Sync()
}
