package devserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/specialistvlad/blueprintc/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// ConnectTimeout bounds the wait for the initial connection.
const ConnectTimeout = 15 * time.Second

// Listen connects to a dev server at rawURL and calls handle for every pass
// event until ctx is done. handle is never called concurrently with itself.
func Listen(ctx context.Context, rawURL string, handle func(Event)) error {
	logger := ctxlog.FromContext(ctx).With("url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return fmt.Errorf("invalid dev server URL %q: scheme and host are required", rawURL)
	}

	opts := socket.DefaultOptions()
	path := parsedURL.Path
	if path == "" || path == "/" {
		path = SocketPath
	}
	opts.SetPath(path)
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket("/", opts)
	defer func() {
		logger.Debug("Listen: Disconnecting socket client.")
		io.Disconnect()
	}()

	events := make(chan Event, 16)
	connectChan := make(chan error, 1)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to dev server", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err, _ := errs[0].(error)
		if err == nil {
			err = fmt.Errorf("%v", errs[0])
		}
		connectChan <- err
	})
	io.On(types.EventName("disconnect"), func(reason ...any) {
		logger.Warn("Disconnected from dev server", "reason", reason)
	})
	io.On(types.EventName(PassEvent), func(data ...any) {
		if len(data) == 0 {
			return
		}
		ev, err := decodeEvent(data[0])
		if err != nil {
			logger.Warn("Ignoring malformed pass event", "error", err)
			return
		}
		select {
		case events <- ev:
		default:
			logger.Warn("Dropping pass event, listener is behind", "pass", ev.Pass)
		}
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			return fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(ConnectTimeout):
		return fmt.Errorf("timed out after %s waiting for socket.io connection", ConnectTimeout)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			handle(ev)
		}
	}
}

// decodeEvent converts the generic JSON value delivered by the client
// library back into an Event.
func decodeEvent(v any) (Event, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Event{}, err
	}
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}
