package serial

// Transport is the byte-stream device a FramedQueue reads from and writes to.
//
// ReadByte and WriteByte have the io.ByteReader and io.ByteWriter signatures,
// so anything already exposing those only needs Begin and Available.
type Transport interface {
	// Begin opens or configures the stream at the given rate.
	Begin(rate int) error
	// Available reports how many bytes can be read without blocking.
	Available() (int, error)
	// ReadByte consumes one byte. It is only called after Available reported data.
	ReadByte() (byte, error)
	// WriteByte sends one byte.
	WriteByte(b byte) error
}
