package httpapi

import (
	"fmt"
	"net"

	"github.com/gofiber/fiber/v2"
)

// Serve binds addr and serves app on it in the background. The socket accepts
// connections by the time Serve returns. The channel receives the error that
// stopped the server.
func Serve(app *fiber.App, addr string) (net.Addr, <-chan error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	stopped := make(chan error, 1)
	go func() {
		stopped <- app.Listener(ln)
	}()
	return ln.Addr(), stopped, nil
}
