// Package orchestrator implements the warehouse's owning process: it
// creates the shared resources, spawns the other role binaries,
// monitors them, and reclaims everything on shutdown.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ChuLiYu/warehouse-ipc/internal/ipc"
	"github.com/ChuLiYu/warehouse-ipc/internal/session"
	"github.com/ChuLiYu/warehouse-ipc/pkg/domain"
)

// Spawn describes one child role process to launch.
type Spawn struct {
	Role string // binary name under BinDir, and the log/session label
	Args []string
}

// Config bounds the orchestrator's resource sizing and spawn plan.
type Config struct {
	BinDir         string
	TruckCount     int
	WorkerCount    int
	StartupStagger time.Duration
	GracePeriod    time.Duration
}

// process is the minimal handle the orchestrator needs over a spawned
// child, satisfied by *exec.Cmd in production and a fake in tests.
type process interface {
	Pid() int
	Wait() error
	Kill() error
}

// launchFunc starts one role binary and returns a handle to it. The
// production launcher execs BinDir/role; tests substitute a launcher
// that never touches the filesystem.
type launchFunc func(role string, args, env []string) (process, error)

// Orchestrator owns (S, Sigma, Q) for the lifetime of one warehouse run.
type Orchestrator struct {
	cfg      Config
	facade   *ipc.Facade
	registry *session.Registry
	logger   *zap.Logger
	launch   launchFunc
	destroy  func() error

	mu       sync.Mutex
	children []*child
}

type child struct {
	role string
	proc process
}

// cmdProcess adapts *exec.Cmd to the process interface.
type cmdProcess struct{ cmd *exec.Cmd }

func (p cmdProcess) Pid() int    { return p.cmd.Process.Pid }
func (p cmdProcess) Wait() error { return p.cmd.Wait() }
func (p cmdProcess) Kill() error {
	if p.cmd.ProcessState != nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

func execLauncher(binDir string) launchFunc {
	return func(role string, args, env []string) (process, error) {
		cmd := exec.Command(fmt.Sprintf("%s/%s", binDir, role), args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Env = env
		if err := cmd.Start(); err != nil {
			return nil, err
		}
		return cmdProcess{cmd: cmd}, nil
	}
}

// New creates (S, Sigma, Q) at their well-known keys, destroying any
// pre-existing namesake resources first, and writes the initial
// zeroed, running SharedState.
func New(cfg Config, logger *zap.Logger) (*Orchestrator, error) {
	sem, err := ipc.CreateSemaphoreSet(ipc.SemaphoreSetKey, []int{1, domain.DefaultBeltSlots, 0, 1})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: create semaphore set: %w", err)
	}
	shm, err := ipc.CreateSharedMemory(ipc.SharedMemoryKey)
	if err != nil {
		_ = sem.Close()
		return nil, fmt.Errorf("orchestrator: create shared memory: %w", err)
	}
	q, err := ipc.CreateMessageQueue(ipc.MessageQueueKey)
	if err != nil {
		_ = sem.Close()
		_ = shm.Detach()
		return nil, fmt.Errorf("orchestrator: create message queue: %w", err)
	}

	facade := ipc.New(sem, shm, q)
	o := NewWithFacade(cfg, facade, logger)
	o.launch = execLauncher(cfg.BinDir)
	o.destroy = func() error { return destroyRealResources(facade, logger) }
	return o, nil
}

// NewWithFacade builds an Orchestrator over an already-constructed
// Facade, letting tests inject the in-memory fakes instead of real
// SysV resources. The launch and destroy seams default to no-ops;
// tests that exercise spawning set launch explicitly.
func NewWithFacade(cfg Config, facade *ipc.Facade, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		facade:   facade,
		registry: session.New(facade),
		logger:   logger,
		launch:   func(string, []string, []string) (process, error) { return nil, nil },
		destroy:  func() error { return nil },
	}
}

func destroyRealResources(facade *ipc.Facade, logger *zap.Logger) error {
	if err := facade.Detach(); err != nil {
		logger.Warn("detach failed", zap.Error(err))
	}
	if err := ipc.DestroySharedMemory(ipc.SharedMemoryKey); err != nil {
		logger.Warn("destroy shared memory failed", zap.Error(err))
	}
	if err := ipc.DestroySemaphoreSet(ipc.SemaphoreSetKey); err != nil {
		logger.Warn("destroy semaphore set failed", zap.Error(err))
	}
	if err := ipc.DestroyMessageQueue(ipc.MessageQueueKey); err != nil {
		logger.Warn("destroy message queue failed", zap.Error(err))
	}
	logger.Info("shared resources reclaimed")
	return nil
}

// Run spawns every role process per the spawn plan, installs the
// interrupt handler, and blocks monitoring children until ctx is
// cancelled or an interrupt is received, then runs the shutdown
// sequence.
func (o *Orchestrator) Run(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for _, sp := range o.spawnPlan() {
		if err := o.spawn(sp); err != nil {
			o.logger.Error("spawn failed", zap.String("role", sp.Role), zap.Error(err))
			continue
		}
		time.Sleep(o.cfg.StartupStagger)
	}

	reaped := make(chan string, len(o.children))
	o.mu.Lock()
	for _, c := range o.children {
		go o.watch(c, reaped)
	}
	o.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("context cancelled, shutting down")
			return o.shutdown()
		case sig := <-sigCh:
			o.logger.Warn("interrupt received, shutting down", zap.String("signal", sig.String()))
			return o.shutdown()
		case role := <-reaped:
			o.logger.Warn("child process exited", zap.String("role", role))
			if isCritical(role) {
				o.logger.Error("critical role died, shutting down", zap.String("role", role))
				return o.shutdown()
			}
		}
	}
}

// spawnPlan builds the default role roster: one dispatcher, one
// express, one belt monitor, T trucks, W workers.
func (o *Orchestrator) spawnPlan() []Spawn {
	plan := []Spawn{
		{Role: "dispatcher"},
		{Role: "express"},
		{Role: "beltmonitor"},
	}
	for i := 1; i <= o.cfg.TruckCount; i++ {
		plan = append(plan, Spawn{Role: "truck", Args: []string{fmt.Sprint(i)}})
	}
	for i := 1; i <= o.cfg.WorkerCount; i++ {
		plan = append(plan, Spawn{Role: "worker", Args: []string{fmt.Sprint(i)}})
	}
	return plan
}

func isCritical(role string) bool {
	return role == "dispatcher"
}

// spawn launches one role binary under BinDir, tagging it with a
// correlation id for log cross-referencing.
func (o *Orchestrator) spawn(sp Spawn) error {
	correlationID := uuid.New().String()
	env := append(os.Environ(), "WAREHOUSE_CORRELATION_ID="+correlationID)

	proc, err := o.launch(sp.Role, sp.Args, env)
	if err != nil {
		return fmt.Errorf("start %s: %w", sp.Role, err)
	}

	o.logger.Info("spawned role process",
		zap.String("role", sp.Role),
		zap.Int("pid", proc.Pid()),
		zap.String("correlation_id", correlationID),
	)

	o.mu.Lock()
	o.children = append(o.children, &child{role: sp.Role, proc: proc})
	o.mu.Unlock()
	return nil
}

// watch reaps one child non-blockingly from the orchestrator's
// perspective: the Wait call itself blocks this goroutine, but the
// orchestrator's own select loop never blocks on it.
func (o *Orchestrator) watch(c *child, reaped chan<- string) {
	_ = c.proc.Wait()
	reaped <- c.role
}

// shutdown sets S.running=false, broadcasts END_WORK to every active
// session, waits the grace period for children to exit cleanly, then
// destroys (S, Sigma, Q) regardless of whether every child exited.
func (o *Orchestrator) shutdown() error {
	o.facade.State().Running = false
	o.facade.Shutdown()

	pids, err := o.registry.ActivePIDs()
	if err != nil {
		o.logger.Warn("could not enumerate active sessions for END_WORK broadcast", zap.Error(err))
	}
	for _, pid := range pids {
		if err := o.facade.Send(int64(pid), domain.CommandEndWork); err != nil {
			o.logger.Warn("END_WORK delivery failed", zap.Int32("pid", pid), zap.Error(err))
		}
	}

	time.Sleep(o.cfg.GracePeriod)

	o.mu.Lock()
	children := append([]*child(nil), o.children...)
	o.mu.Unlock()
	for _, c := range children {
		_ = c.proc.Kill()
	}

	return o.destroy()
}
