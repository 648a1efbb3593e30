//go:build !windows

package engine

import (
	"context"
	"net"
	"os"
	"path/filepath"
)

// ipcPath is the unix socket mpv listens on
func ipcPath(dir, id string) string {
	return filepath.Join(dir, "reactionsync-"+id+".sock")
}

func dialIPC(ctx context.Context, path string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", path)
}

func removeIPC(path string) { _ = os.Remove(path) }
