package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log является глобальным экземпляром логгера для всего ядра симуляции.
var Log = logrus.New()

// Init настраивает глобальный логгер из переменных окружения.
// Вызывается один раз в main.go и в TestMain каждого пакета с тестами.
func Init() {
	// 1. Уровень: LOG_LEVEL, по умолчанию "info".
	logLevel, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		logLevel = "info"
	}
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	// 2. Форматтер: "json" для сбора логов, иначе текст для разработки.
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	// 3. LOG_OUTPUT=discard глушит вывод (удобно для бенчмарков).
	if strings.ToLower(os.Getenv("LOG_OUTPUT")) == "discard" {
		Log.SetOutput(io.Discard)
		return
	}
	Log.SetOutput(os.Stdout)
}

// For возвращает entry с заполненным полем component.
func For(component string) *logrus.Entry {
	return Log.WithField("component", component)
}
