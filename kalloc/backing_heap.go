//go:build !(linux || darwin || freebsd)

package kalloc

type heapBacking struct {
	data []byte
}

// newAnonymousBacking allocates size bytes of zero-filled memory to hold frame contents
func newAnonymousBacking(size int) (Backing, error) {
	return &heapBacking{data: make([]byte, size)}, nil
}

func (b *heapBacking) Bytes() []byte {
	return b.data
}

func (b *heapBacking) Release() error {
	b.data = nil
	return nil
}
