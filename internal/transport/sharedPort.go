package transport

import (
	"errors"
	"io"
	"sync"
	"syscall"
)

// sharedPort lets several unpi brokers use one serial port. Every byte read
// from the port is copied to each side, and writes from all sides are
// serialised so frames never interleave.
type sharedPort struct {
	port    io.ReadWriteCloser
	writeMu sync.Mutex
	pipes   []*io.PipeWriter
}

type portSide struct {
	*io.PipeReader
	shared *sharedPort
}

func (s *portSide) Write(p []byte) (int, error) {
	s.shared.writeMu.Lock()
	defer s.shared.writeMu.Unlock()

	return s.shared.port.Write(p)
}

func newSharedPort(port io.ReadWriteCloser) *sharedPort {
	return &sharedPort{port: port}
}

// Side must be called for every consumer before Start. Each side has to be
// read continuously or the other sides stall.
func (p *sharedPort) Side() io.ReadWriter {
	r, w := io.Pipe()
	p.pipes = append(p.pipes, w)

	return &portSide{PipeReader: r, shared: p}
}

func (p *sharedPort) Start() {
	go p.copyLoop()
}

func (p *sharedPort) Close() error {
	err := p.port.Close()
	p.closePipes(io.EOF)

	return err
}

func (p *sharedPort) copyLoop() {
	buf := make([]byte, 256)

	for {
		n, err := p.port.Read(buf)

		if n > 0 {
			for _, w := range p.pipes {
				// a closed side is skipped
				w.Write(buf[:n])
			}
		}

		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			p.closePipes(err)
			return
		}
	}
}

func (p *sharedPort) closePipes(err error) {
	for _, w := range p.pipes {
		w.CloseWithError(err)
	}
}
