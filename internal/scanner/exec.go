package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrTimeout - внешний процесс не уложился в таймаут
var ErrTimeout = errors.New("command timed out")

// ErrNotInstalled - бинарник не найден
var ErrNotInstalled = errors.New("binary not installed")

// Command описывает запуск внешнего процесса
type Command struct {
	Name    string
	Args    []string
	Dir     string
	Timeout time.Duration
}

// Result - вывод процесса. Ненулевой код выхода не считается ошибкой.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Run запускает процесс и ждёт его не дольше cmd.Timeout
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Name == "" {
		return nil, errors.New("command is required")
	}
	if _, err := exec.LookPath(cmd.Name); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInstalled, cmd.Name)
	}

	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	if cmd.Dir != "" {
		c.Dir = cmd.Dir
	}
	// дочерние процессы могут держать pipe открытым после kill
	c.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()

	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return result, fmt.Errorf("%w after %v", ErrTimeout, cmd.Timeout)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return result, fmt.Errorf("command cancelled")
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("command execution failed: %w", err)
	}

	return result, nil
}
