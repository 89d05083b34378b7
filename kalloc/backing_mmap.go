//go:build linux || darwin || freebsd

package kalloc

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

type mmapBacking struct {
	data []byte
}

// newAnonymousBacking maps size bytes of private, zero-filled memory to hold frame contents
func newAnonymousBacking(size int) (Backing, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to map %d bytes of frame memory", size)
	}

	return &mmapBacking{data: data}, nil
}

func (b *mmapBacking) Bytes() []byte {
	return b.data
}

func (b *mmapBacking) Release() error {
	data := b.data
	b.data = nil
	if data == nil {
		return nil
	}

	return errors.Wrap(unix.Munmap(data), "failed to unmap frame memory")
}
