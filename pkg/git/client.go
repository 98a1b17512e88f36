// Package git versions the store file by shelling out to the git binary.
package git

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// LockFile is the name of the lock file created in the working directory.
const LockFile = ".notesd.lock"

const (
	// DefaultLockTimeout bounds how long Lock waits for another holder.
	DefaultLockTimeout = 5 * time.Second
	// DefaultLockStaleAfter is the age past which a lock file is treated
	// as left behind by a crashed process and removed.
	DefaultLockStaleAfter = time.Minute
)

// ErrLockTimeout is returned by Lock when the lock stays held past the timeout.
var ErrLockTimeout = errors.New("timed out waiting for git lock")

// Client wraps git command execution with a file-based lock for process safety.
type Client struct {
	WorkDir string
	Logger  *slog.Logger

	LockTimeout    time.Duration
	LockStaleAfter time.Duration

	lockPath string
}

// NewClient creates a new git client for the given working directory.
func NewClient(workDir string, logger *slog.Logger) *Client {
	return &Client{
		WorkDir:        workDir,
		Logger:         logger,
		LockTimeout:    DefaultLockTimeout,
		LockStaleAfter: DefaultLockStaleAfter,
		lockPath:       LockFile,
	}
}

// IsInstalled checks if git is available in the system path.
func IsInstalled() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// IsRepo reports whether WorkDir is inside a git work tree.
func (c *Client) IsRepo() bool {
	out, err := c.Run("rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// Lock acquires a file-based lock. It waits up to LockTimeout for another
// holder and fails with ErrLockTimeout after that. A lock file older than
// LockStaleAfter is removed and the acquisition retried.
func (c *Client) Lock() (func(), error) {
	fullLockPath := filepath.Join(c.WorkDir, c.lockPath)
	deadline := time.Now().Add(c.LockTimeout)

	for {
		f, err := os.OpenFile(fullLockPath, os.O_CREATE|os.O_EXCL, 0o666)
		if err == nil {
			f.Close()
			return func() {
				os.Remove(fullLockPath)
			}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}

		if c.LockStaleAfter > 0 {
			if info, statErr := os.Stat(fullLockPath); statErr == nil && time.Since(info.ModTime()) > c.LockStaleAfter {
				if c.Logger != nil {
					c.Logger.Warn("removing stale git lock", "path", fullLockPath, "age", time.Since(info.ModTime()))
				}
				os.Remove(fullLockPath)
				continue
			}
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, fullLockPath)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// Run executes a raw git command in the working directory.
// It does NOT acquire the lock; callers manage that via Client.Lock().
func (c *Client) Run(args ...string) (string, error) {
	if c.Logger != nil {
		c.Logger.Debug("executing git", "args", args, "dir", c.WorkDir)
	}

	cmd := exec.Command("git", args...)
	cmd.Dir = c.WorkDir

	out, err := cmd.CombinedOutput()
	output := string(out)

	if err != nil {
		return output, fmt.Errorf("git %s failed: %w\nOutput: %s", args[0], err, output)
	}

	return strings.TrimSpace(output), nil
}

// Init initializes a new git repository. Re-running it is safe.
func (c *Client) Init() error {
	_, err := c.Run("init")
	return err
}

// Add adds files to the stage.
func (c *Client) Add(files ...string) error {
	if len(files) == 0 {
		return nil
	}
	args := append([]string{"add"}, files...)
	_, err := c.Run(args...)
	return err
}

// Commit records staged changes. The identity is pinned so commits work on
// hosts without a configured user.
func (c *Client) Commit(msg string) error {
	_, err := c.Run("-c", "user.name=notesd", "-c", "user.email=notesd@localhost", "commit", "-m", msg)
	return err
}

// Status returns the porcelain status of staged and unstaged changes.
func (c *Client) Status() (string, error) {
	return c.Run("status", "--porcelain", "--untracked-files=no")
}

// HasStagedChanges reports whether the index differs from HEAD.
func (c *Client) HasStagedChanges() (bool, error) {
	_, err := c.Run("diff", "--cached", "--quiet")
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, err
}

// Log returns the one-line subjects of the most recent n commits, newest first.
func (c *Client) Log(n int) ([]string, error) {
	out, err := c.Run("log", fmt.Sprintf("-%d", n), "--format=%s")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}
