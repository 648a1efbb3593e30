package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kikiluvv/reactionsync/pkg/util"
)

const (
	defaultCallTimeout = 2 * time.Second
	dialRetryInterval  = 50 * time.Millisecond
	quitGracePeriod    = 2 * time.Second
)

// errPropertyUnavailable is mpv's answer for time-pos/duration with nothing loaded.
const errPropertyUnavailable = "property unavailable"

// MPV drives one mpv process through its JSON IPC socket
type MPV struct {
	logger zerolog.Logger
	cmd    *exec.Cmd
	socket string
	conn   net.Conn

	callTimeout time.Duration

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan ipcResponse
	done    chan struct{}
	readErr error
}

type ipcRequest struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

type ipcResponse struct {
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	RequestID int64           `json:"request_id"`
	Event     string          `json:"event"`
}

// NewMPVFactory returns a Factory that launches one mpv process per player.
func NewMPVFactory(logger zerolog.Logger, connectTimeout time.Duration) Factory {
	return func(ctx context.Context, opts Options) (Player, error) {
		return StartMPV(ctx, logger, opts, connectTimeout)
	}
}

// StartMPV launches mpv idle and paused, then connects to its IPC socket
// (a named pipe on Windows)
func StartMPV(ctx context.Context, logger zerolog.Logger, opts Options, connectTimeout time.Duration) (*MPV, error) {
	binary := opts.BinaryPath
	if binary == "" {
		binary = "mpv"
	}
	path, err := util.FindBinary(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	dir := opts.SocketDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := util.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create socket dir: %w", err)
	}
	socket := ipcPath(dir, uuid.NewString()[:8])

	args := []string{
		"--idle=yes",
		"--keep-open=yes",
		"--pause",
		"--force-window=yes",
		"--no-terminal",
		"--input-ipc-server=" + socket,
	}
	if opts.VideoOutput != "" {
		args = append(args, "--vo="+opts.VideoOutput)
	}
	if opts.Name != "" {
		args = append(args, "--title="+opts.Name)
	}
	if opts.WindowID != 0 {
		args = append(args, "--wid="+strconv.FormatInt(opts.WindowID, 10))
	}

	log := logger.With().Str("component", "mpv").Str("player", opts.Name).Logger()
	log.Debug().Str("cmd", path).Strs("args", args).Msg("starting mpv")

	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start mpv: %w", err)
	}

	conn, err := dialSocket(ctx, socket, connectTimeout)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("failed to connect to mpv ipc socket: %w", err)
	}

	m := newMPV(log, conn)
	m.cmd = cmd
	m.socket = socket
	return m, nil
}

func dialSocket(ctx context.Context, socket string, timeout time.Duration) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		conn, err := dialIPC(ctx, socket)
		if err == nil {
			return conn, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", socket, err)
		case <-time.After(dialRetryInterval):
		}
	}
}

// newMPV wraps an established IPC connection and starts the reader
func newMPV(logger zerolog.Logger, conn net.Conn) *MPV {
	m := &MPV{
		logger:      logger,
		conn:        conn,
		callTimeout: defaultCallTimeout,
		pending:     make(map[int64]chan ipcResponse),
		done:        make(chan struct{}),
	}
	go m.readLoop()
	return m
}

func (m *MPV) readLoop() {
	scanner := bufio.NewScanner(m.conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		var resp ipcResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			m.logger.Debug().Err(err).Str("line", scanner.Text()).Msg("unparseable ipc line")
			continue
		}
		if resp.Event != "" {
			m.logger.Debug().Str("event", resp.Event).Msg("mpv event")
			continue
		}

		m.mu.Lock()
		ch, ok := m.pending[resp.RequestID]
		delete(m.pending, resp.RequestID)
		m.mu.Unlock()

		if ok {
			ch <- resp
		}
	}

	m.mu.Lock()
	m.readErr = scanner.Err()
	if m.readErr == nil {
		m.readErr = errors.New("mpv ipc connection closed")
	}
	m.pending = make(map[int64]chan ipcResponse)
	m.mu.Unlock()
	close(m.done)
}

func (m *MPV) call(args ...any) (json.RawMessage, error) {
	ch := make(chan ipcResponse, 1)

	m.mu.Lock()
	if m.readErr != nil {
		err := m.readErr
		m.mu.Unlock()
		return nil, err
	}
	m.nextID++
	id := m.nextID
	m.pending[id] = ch

	data, err := json.Marshal(ipcRequest{Command: args, RequestID: id})
	if err == nil {
		_, err = m.conn.Write(append(data, '\n'))
	}
	if err != nil {
		delete(m.pending, id)
		m.mu.Unlock()
		return nil, fmt.Errorf("ipc write failed: %w", err)
	}
	m.mu.Unlock()

	timer := time.NewTimer(m.callTimeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.Error != "" && resp.Error != "success" {
			return nil, &CommandError{Command: fmt.Sprint(args[0]), Reason: resp.Error}
		}
		return resp.Data, nil
	case <-m.done:
		return nil, m.readErr
	case <-timer.C:
		m.mu.Lock()
		delete(m.pending, id)
		m.mu.Unlock()
		return nil, fmt.Errorf("ipc %v timed out after %v", args[0], m.callTimeout)
	}
}

// CommandError is an error reply from mpv
type CommandError struct {
	Command string
	Reason  string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("mpv %s: %s", e.Command, e.Reason)
}

func (m *MPV) Load(path string) error {
	if _, err := m.call("loadfile", path, "replace"); err != nil {
		return err
	}
	return m.SetPaused(true)
}

func (m *MPV) SetPaused(paused bool) error {
	_, err := m.call("set_property", "pause", paused)
	return err
}

func (m *MPV) Seek(seconds float64) error {
	_, err := m.call("seek", seconds, "absolute")
	return err
}

func (m *MPV) TimePos() (float64, error) {
	return m.floatProperty("time-pos")
}

func (m *MPV) Duration() (float64, error) {
	return m.floatProperty("duration")
}

func (m *MPV) floatProperty(name string) (float64, error) {
	data, err := m.call("get_property", name)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && cmdErr.Reason == errPropertyUnavailable {
			return 0, nil
		}
		return 0, err
	}
	if len(data) == 0 || string(data) == "null" {
		return 0, nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return v, nil
}

func (m *MPV) SetVolume(volume int) error {
	_, err := m.call("set_property", "volume", volume)
	return err
}

func (m *MPV) SetFullscreen(full bool) error {
	_, err := m.call("set_property", "fullscreen", full)
	return err
}

func (m *MPV) SetOnTop(onTop bool) error {
	_, err := m.call("set_property", "ontop", onTop)
	return err
}

// Close asks mpv to quit and reaps the process
func (m *MPV) Close() error {
	_, _ = m.call("quit")
	err := m.conn.Close()

	if m.cmd != nil {
		exited := make(chan struct{})
		go func() {
			_ = m.cmd.Wait()
			close(exited)
		}()
		select {
		case <-exited:
		case <-time.After(quitGracePeriod):
			m.logger.Warn().Msg("mpv did not quit, killing")
			_ = m.cmd.Process.Kill()
			<-exited
		}
	}
	if m.socket != "" {
		removeIPC(m.socket)
	}
	return err
}
