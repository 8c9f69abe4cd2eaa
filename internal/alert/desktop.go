package alert

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/tasteos/cookmode/internal/shared"
)

// notify posts a desktop notification with whatever the platform offers.
func notify(title, message string) error {
	switch runtime.GOOS {
	case "darwin":
		title = escapeAppleScript(title)
		message = escapeAppleScript(message)
		script := fmt.Sprintf(
			`display notification %q with title %q sound name "default"`,
			message, title,
		)
		cmd := exec.Command("osascript", "-e", script)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("osascript: %w: %s", err, strings.TrimSpace(string(out)))
		}
		return nil
	case "linux":
		cmd := exec.Command("notify-send", "--app-name=cookmode", title, message)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("notify-send: %w: %s", err, strings.TrimSpace(string(out)))
		}
		return nil
	default:
		return fmt.Errorf("%w: no notifier for %s", shared.ErrServiceUnavailable, runtime.GOOS)
	}
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
