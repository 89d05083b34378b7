package kalloc

//go:generate mockgen -source backing.go -destination mocks/backing.go

// Backing supplies the bytes that frame contents live in. The pool treats the first
// MemoryLayout.FrameCount() * FrameSize bytes of Bytes() as the contents of the frames from
// MemoryLayout.FirstFrame() upward.
type Backing interface {
	// Bytes returns the backing memory. It must return the same slice every time it is called.
	Bytes() []byte
	// Release returns the backing memory to wherever it came from. Bytes must not be called
	// afterward.
	Release() error
}
