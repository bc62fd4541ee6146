// Package serial splits the byte stream of a serial port into messages on a
// single delimiter byte.
//
// It is designed for cooperative polling loops talking to embedded devices:
// the host calls Service as often as it likes, each call drains whatever the
// port has already received without ever blocking, and completed messages
// wait in a FIFO until the host picks them up with GetMessage.
//
// Features:
//   - One configurable delimiter byte; without one, bytes just accumulate
//   - Growable receive buffer with fixed growth steps and no data loss when
//     an allocation fails
//   - Polls throttled to one per interval (default 1ms)
//   - Raw, unframed writes with Send
//   - Any Transport can be framed; Port is a raw termios implementation for
//     Linux and serialtest provides an in-memory one
//
// A FramedQueue is not safe for concurrent use. Drive it from one goroutine.
//
// Example usage:
//
//	q, err := serial.Open(serial.DefaultConfig("/dev/ttyUSB0"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer q.Close()
//
//	for {
//	    if err := q.Service(); err != nil {
//	        log.Println("Read error:", err)
//	        return
//	    }
//	    for {
//	        msg, ok := q.GetMessage()
//	        if !ok {
//	            break
//	        }
//	        fmt.Printf("Received: %s\n", msg)
//	    }
//	    time.Sleep(time.Millisecond)
//	}
//
// Messages returned by GetMessage belong to the caller; the FramedQueue keeps
// no reference to them.
package serial
