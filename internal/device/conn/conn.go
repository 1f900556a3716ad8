package conn

import (
	"bufio"
	"io"

	"github.com/phuslu/log"
)

// Conn is a buffered device stream (serial line, fifo, stdin or capture file).
type Conn struct {
	cid  uint64
	name string
	r    *bufio.Reader
	io.ReadCloser
}

func NewConn(rc io.ReadCloser, name string, cid uint64) *Conn {
	return &Conn{cid, name, bufio.NewReader(rc), rc}
}

func (c *Conn) Peek(n int) ([]byte, error) {
	return c.r.Peek(n)
}

func (c *Conn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

func (c *Conn) Name() string {
	return c.name
}

func (c *Conn) Cid() uint64 {
	return c.cid
}

func (c *Conn) MarshalObject(e *log.Entry) {
	e.Str("device", c.name).Uint64("cid", c.cid)
}
