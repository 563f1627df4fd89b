// Package bootstrap holds the startup sequence every non-owner role
// binary repeats: attach to the shared resources, build a logger from
// the environment contract, and install the interrupt handler that
// cancels the facade's blocking waits.
package bootstrap

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ChuLiYu/warehouse-ipc/internal/config"
	"github.com/ChuLiYu/warehouse-ipc/internal/ipc"
	"github.com/ChuLiYu/warehouse-ipc/internal/logging"
)

// Attach opens the three shared resources created by the orchestrator.
// A role that cannot attach has nowhere to run and must exit non-zero.
func Attach() (*ipc.Facade, error) {
	sem, err := ipc.AttachSemaphoreSet(ipc.SemaphoreSetKey)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: attach semaphore set: %w", err)
	}
	shm, err := ipc.AttachSharedMemory(ipc.SharedMemoryKey)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: attach shared memory: %w", err)
	}
	q, err := ipc.AttachMessageQueue(ipc.MessageQueueKey)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: attach message queue: %w", err)
	}
	return ipc.New(sem, shm, q), nil
}

// Logger builds the role's zap.Logger from the LOG_* environment
// contract in cfg.Env, tagging every record with role.
func Logger(cfg *config.Config, role string) (*zap.Logger, error) {
	return logging.New(logging.Options{
		ToConsole: cfg.Env.LogToConsole,
		ToFile:    cfg.Env.LogToFile,
		Level:     cfg.Env.LogLevel,
		Role:      role,
	})
}

// WatchSignals cancels facade on SIGINT/SIGTERM. It returns a stop
// function the caller defers to release the signal channel.
func WatchSignals(facade *ipc.Facade, logger *zap.Logger) (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			logger.Warn("signal received, finishing shift", zap.String("signal", sig.String()))
			facade.Shutdown()
		case <-done:
		}
	}()

	return func() {
		close(done)
		signal.Stop(sigCh)
	}
}
