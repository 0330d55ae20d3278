package utils

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownManager runs registered cleanup tasks when the process receives
// SIGINT or SIGTERM. Tasks get a bounded context, last registered runs last.
type ShutdownManager struct {
	cancelFunc context.CancelFunc
	tasks      []func(context.Context) error
	grace      time.Duration
	done       chan struct{}
	mu         sync.Mutex
}

func NewShutdownManager(ctx context.Context) (context.Context, *ShutdownManager) {
	ctx, cancel := context.WithCancel(ctx)
	manager := &ShutdownManager{
		cancelFunc: cancel,
		grace:      15 * time.Second,
		done:       make(chan struct{}),
	}
	return ctx, manager
}

func (sm *ShutdownManager) Register(task func(context.Context) error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.tasks = append(sm.tasks, task)
}

// Wait blocks until the shutdown sequence has finished.
func (sm *ShutdownManager) Wait() {
	<-sm.done
}

func (sm *ShutdownManager) StartListening() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("[SHUTDOWN] Received signal: %v", sig)
		sm.cancelFunc()

		ctx, cancel := context.WithTimeout(context.Background(), sm.grace)
		defer cancel()

		sm.mu.Lock()
		tasks := sm.tasks
		sm.mu.Unlock()
		for _, task := range tasks {
			if err := task(ctx); err != nil {
				log.Printf("[SHUTDOWN] Error during shutdown: %v", err)
			}
		}

		log.Println("[SHUTDOWN] Graceful shutdown complete")
		close(sm.done)
	}()
}
