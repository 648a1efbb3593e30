//go:build windows

package engine

import (
	"context"
	"net"

	"github.com/Microsoft/go-winio"
)

// ipcPath is a named pipe; mpv on Windows does not serve unix sockets.
// dir is unused since pipes live in their own namespace.
func ipcPath(_ string, id string) string {
	return `\\.\pipe\reactionsync-` + id
}

func dialIPC(ctx context.Context, path string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, path)
}

// pipes disappear with the server
func removeIPC(string) {}
