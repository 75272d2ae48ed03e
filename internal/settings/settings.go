// Package settings reads the OS notification-listener setting and opens the
// screen where the user grants access.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// EnabledListenersKey is the name of the OS setting listing enabled
// notification-listener components.
const EnabledListenersKey = "enabled_notification_listeners"

// Reader reads the enabled-listeners setting.
type Reader interface {
	// EnabledListeners returns the colon-delimited component list.
	EnabledListeners() (string, error)
}

// Launcher opens the notification-listener settings screen.
type Launcher interface {
	// OpenListenerSettings starts the settings screen and returns without
	// waiting for the user.
	OpenListenerSettings(ctx context.Context) error
}

// ComponentName identifies a listener component as package plus class.
type ComponentName struct {
	Package string
	Class   string
}

// ParseComponentName parses the flattened "package/class" form.
// A class starting with "." is relative to the package.
// Returns false when s has no "/" or an empty part.
func ParseComponentName(s string) (ComponentName, bool) {
	pkg, class, ok := strings.Cut(s, "/")
	if !ok || pkg == "" || class == "" {
		return ComponentName{}, false
	}
	if strings.HasPrefix(class, ".") {
		class = pkg + class
	}
	return ComponentName{Package: pkg, Class: class}, true
}

// String returns the flattened "package/class" form.
func (c ComponentName) String() string {
	return c.Package + "/" + c.Class
}

// IsEnabled reports whether packageName owns a component in the
// colon-delimited flat setting value.
func IsEnabled(flat, packageName string) bool {
	if flat == "" {
		return false
	}
	for _, name := range strings.Split(flat, ":") {
		cn, ok := ParseComponentName(name)
		if ok && cn.Package == packageName {
			return true
		}
	}
	return false
}

// Static is a Reader returning a fixed value.
type Static string

// EnabledListeners returns the fixed value.
func (s Static) EnabledListeners() (string, error) {
	return string(s), nil
}

// File is a Reader that reads the setting value from a file.
// A missing file reads as an empty setting.
type File struct {
	Path string
}

// EnabledListeners returns the trimmed file contents.
func (f File) EnabledListeners() (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", f.Path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Noop is a Launcher that does nothing.
type Noop struct{}

// OpenListenerSettings does nothing.
func (Noop) OpenListenerSettings(context.Context) error { return nil }

// Command is a Launcher that starts an external program, e.g. a settings
// app or "xdg-open <uri>", in its own process.
type Command struct {
	Args   []string
	Logger *slog.Logger
}

// OpenListenerSettings starts the command without waiting for it to finish.
func (c Command) OpenListenerSettings(ctx context.Context) error {
	if len(c.Args) == 0 {
		return errors.New("no settings command configured")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// Not bound to ctx: the settings screen outlives the request that opened it.
	cmd := exec.Command(c.Args[0], c.Args[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", c.Args[0], err)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	// Reap the child; the outcome is not observed.
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Debug("settings command exited", "command", c.Args[0], "error", err)
		}
	}()
	return nil
}
