package serial

import "sync"

// Console shares one port between the logger and the protocol handler.
// Every Write completes before another starts, so a log record never lands
// inside a response frame.
type Console struct {
	mu   sync.Mutex
	port Port
}

func NewConsole(port Port) *Console {
	return &Console{port: port}
}

func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port.Write(p)
}

func (c *Console) Buffered() int {
	return c.port.Buffered()
}

func (c *Console) ReadByte() (byte, error) {
	return c.port.ReadByte()
}
