package history

import (
	"bytes"
	"os/exec"
	"strings"
)

// ResolveCommit returns the short HEAD hash of the repository containing
// projectRoot, or "" when it is not a git checkout.
func ResolveCommit(projectRoot string) string {
	cmd := exec.Command("git", "-C", projectRoot, "rev-parse", "--short=12", "HEAD")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return ""
	}
	return strings.TrimSpace(stdout.String())
}
