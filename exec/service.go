package exec

import (
	osexec "os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

const DefaultStopGrace = 2 * time.Second

// Service supervises one long-running command at a time. The command runs in
// its own process group so the whole tree is signalled on stop.
type Service struct {
	cmdStr string
	opts   ShellOptions
	grace  time.Duration

	mu   sync.Mutex
	proc *process
}

type process struct {
	cmd  *osexec.Cmd
	done chan struct{}
	err  error
}

func NewService(cmdStr string, opts ShellOptions) *Service {
	if opts.Shell == "" {
		opts.Shell = "/bin/sh"
	}
	return &Service{
		cmdStr: cmdStr,
		opts:   opts,
		grace:  DefaultStopGrace,
	}
}

func (s *Service) WithStopGrace(d time.Duration) *Service {
	s.grace = d
	return s
}

// Restart stops the running process, if any, and starts a new one with env.
func (s *Service) Restart(env []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	shellParts := strings.Fields(s.opts.Shell)
	args := append(shellParts[1:], "-c", s.cmdStr)
	cmd := osexec.Command(shellParts[0], args...)
	cmd.Dir = s.opts.WorkDir
	cmd.Env = env
	cmd.Stdout = s.opts.Stdout
	cmd.Stderr = s.opts.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "failed to start service")
	}

	p := &process{cmd: cmd, done: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	s.proc = p

	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Running reports whether the last started process is still alive.
func (s *Service) Running() bool {
	done := s.Done()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Done is closed when the current process exits. It is nil when nothing was
// started or after Stop.
func (s *Service) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return nil
	}
	return s.proc.done
}

// Err returns the exit error of the current process once it has exited.
func (s *Service) Err() error {
	s.mu.Lock()
	p := s.proc
	s.mu.Unlock()

	if p == nil {
		return nil
	}
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

func (s *Service) stopLocked() {
	p := s.proc
	if p == nil {
		return
	}
	s.proc = nil

	select {
	case <-p.done:
		return
	default:
	}

	pgid := -p.cmd.Process.Pid
	_ = syscall.Kill(pgid, syscall.SIGTERM)

	select {
	case <-p.done:
	case <-time.After(s.grace):
		_ = syscall.Kill(pgid, syscall.SIGKILL)
		<-p.done
	}
}
