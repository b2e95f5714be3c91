package logging

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// Имена компонентов, пишущих в собственные файлы
const (
	ComponentStorage = "storage"
	ComponentWorld   = "world"
)

// LoggerManager держит по одному файловому логгеру на компонент
type LoggerManager struct {
	mu      sync.Mutex
	loggers map[string]*Logger
}

var (
	globalManager *LoggerManager
	managerOnce   sync.Once
)

// GetLoggerManager возвращает глобальный менеджер логгеров
func GetLoggerManager() *LoggerManager {
	managerOnce.Do(func() {
		globalManager = &LoggerManager{loggers: make(map[string]*Logger)}
	})
	return globalManager
}

// GetLogger возвращает логгер компонента, открывая файл при первом обращении
func (lm *LoggerManager) GetLogger(component string) (*Logger, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if logger, ok := lm.loggers[component]; ok {
		return logger, nil
	}

	logger, err := NewLogger(component)
	if err != nil {
		return nil, fmt.Errorf("логгер компонента %s: %w", component, err)
	}
	lm.loggers[component] = logger
	return logger, nil
}

// MustGetLogger как GetLogger, но при ошибке отдаёт логгер в stdout
func (lm *LoggerManager) MustGetLogger(component string) *Logger {
	logger, err := lm.GetLogger(component)
	if err != nil {
		return NewWriterLogger(component, os.Stdout, INFO)
	}
	return logger
}

// CloseAll закрывает файлы всех компонентов. Следующий GetLogger откроет новый файл.
func (lm *LoggerManager) CloseAll() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	var errs []error
	for component, logger := range lm.loggers {
		if err := logger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", component, err))
		}
		delete(lm.loggers, component)
	}
	return errors.Join(errs...)
}

func GetStorageLogger() *Logger {
	return GetLoggerManager().MustGetLogger(ComponentStorage)
}

func GetWorldLogger() *Logger {
	return GetLoggerManager().MustGetLogger(ComponentWorld)
}
