package engine

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kikiluvv/reactionsync/pkg/util"
)

const probeTimeout = 5 * time.Second

// CheckAvailable verifies the engine binary can be found and started.
// It returns the engine's version line. Call it once, before any surface
// is constructed.
func CheckAvailable(ctx context.Context, binary string) (string, error) {
	if binary == "" {
		binary = "mpv"
	}

	path, err := util.FindBinary(binary)
	if err != nil {
		return "", fmt.Errorf("%w: %s not found in PATH: %v", ErrUnavailable, binary, err)
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("%w: %s --version failed: %v", ErrUnavailable, path, err)
	}

	return parseVersion(string(out)), nil
}

func parseVersion(out string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	return strings.TrimSpace(line)
}
