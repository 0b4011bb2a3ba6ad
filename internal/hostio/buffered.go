package hostio

import (
	"bytes"
	"io"
	"sync"
)

// BufferedPort gives a blocking stream the non-blocking UART interface of the firmware:
// a background reader fills a buffer that Read and ReadByte drain without waiting.
type BufferedPort struct {
	conn io.ReadWriteCloser

	mu  sync.Mutex
	buf bytes.Buffer
	err error

	done chan struct{}
}

// NewBufferedPort starts reading from conn in the background
func NewBufferedPort(conn io.ReadWriteCloser) *BufferedPort {
	p := &BufferedPort{
		conn: conn,
		done: make(chan struct{}),
	}
	go p.readLoop()
	return p
}

func (p *BufferedPort) readLoop() {
	defer close(p.done)

	chunk := make([]byte, 256)
	for {
		n, err := p.conn.Read(chunk)

		p.mu.Lock()
		p.buf.Write(chunk[:n])
		if err != nil {
			p.err = err
		}
		p.mu.Unlock()

		if err != nil {
			return
		}
	}
}

// Buffered is the number of received bytes not yet read
func (p *BufferedPort) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.buf.Len()
}

// Read returns buffered bytes. It returns 0, nil when nothing is buffered and the
// background reader's error once the buffer is drained.
func (p *BufferedPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.buf.Len() == 0 {
		return 0, p.err
	}
	return p.buf.Read(b)
}

// ReadByte returns the next buffered byte or io.EOF when none is available
func (p *BufferedPort) ReadByte() (byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.buf.Len() == 0 {
		if p.err != nil {
			return 0, p.err
		}
		return 0, io.EOF
	}
	return p.buf.ReadByte()
}

func (p *BufferedPort) Write(b []byte) (int, error) {
	return p.conn.Write(b)
}

// Close closes the connection and waits for the background reader to stop
func (p *BufferedPort) Close() error {
	err := p.conn.Close()
	<-p.done
	return err
}

// Done is closed when the background reader stops
func (p *BufferedPort) Done() <-chan struct{} {
	return p.done
}
