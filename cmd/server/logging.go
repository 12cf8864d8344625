package main

import (
	"os"

	isatty "github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logSinks are the destinations of the split logger. Errors and above go to errs, the rest to out.
type logSinks struct {
	out  zapcore.WriteSyncer
	errs zapcore.WriteSyncer
	json bool
}

func consoleSinks() logSinks {
	return logSinks{
		out:  zapcore.Lock(os.Stdout),
		errs: zapcore.Lock(os.Stderr),
		json: !isatty.IsTerminal(os.Stdout.Fd()),
	}
}

func newEncoder(json bool) zapcore.Encoder {
	if json {
		conf := zap.NewProductionEncoderConfig()
		conf.MessageKey = "message"
		conf.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(conf)
	}

	conf := zap.NewDevelopmentEncoderConfig()
	conf.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(conf)
}

func newLogger(level string, sinks logSinks) (*zap.Logger, error) {
	minLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	enc := newEncoder(sinks.json)
	core := zapcore.NewTee(
		zapcore.NewCore(enc, sinks.errs, zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l >= zapcore.ErrorLevel
		})),
		zapcore.NewCore(enc, sinks.out, zap.LevelEnablerFunc(func(l zapcore.Level) bool {
			return l < zapcore.ErrorLevel && l >= minLevel
		})),
	)

	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	return zap.New(core,
		zap.Fields(zap.String("host", host), zap.String("service", serviceName())),
		zap.AddStacktrace(zapcore.DPanicLevel),
	), nil
}

func initLogging() {
	logger, err := newLogger(*logLevel, consoleSinks())
	if err != nil {
		panic(err)
	}

	zap.ReplaceGlobals(logger.Named("calcengine"))
	zap.RedirectStdLog(logger.Named("stdlog"))
}
