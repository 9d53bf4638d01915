package logger

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once     sync.Once
	instance *zap.Logger
)

// Init inicializa el logger del proceso con la configuración dada.
// Idempotente: solo la primera llamada tiene efecto. main la llama antes
// de armar el resto de la aplicación.
func Init(cfg Config) {
	once.Do(func() {
		instance = build(cfg)
	})
}

// L retorna el logger del proceso. Si Init no fue llamado todavía (tests,
// herramientas), arma uno de desarrollo.
func L() *zap.Logger {
	if instance == nil {
		Init(Config{Env: "dev", Level: "info"})
	}
	return instance
}

// Sync flushea buffers pendientes. Se difiere en main.
func Sync() error {
	if instance != nil {
		return instance.Sync()
	}
	return nil
}
