package main

import (
	"bytes"
	"time"

	"ghostline/shared"
)

// settleDelay gives the remote side time to begin responding before a read
// is attempted. It is part of the wire pacing contract; a variable so tests
// can shorten it.
var settleDelay = 400 * time.Millisecond

const (
	recvChunkSize  = 8192
	defaultTimeout = 10 * time.Second
)

// Send writes one command line to the session and waits the settle delay.
func Send(sess *Session, command string) error {
	if _, err := sess.Conn.Write([]byte(command + "\n")); err != nil {
		return err
	}
	time.Sleep(settleDelay)
	return nil
}

// Receive accumulates reply bytes until the sentinel appears, the peer
// closes, or the timeout elapses. The returned output never extends past the
// sentinel. Read errors end accumulation instead of propagating: on this
// protocol a timeout just means "no more data".
func Receive(sess *Session, timeout time.Duration) []byte {
	_ = sess.Conn.SetReadDeadline(time.Now().Add(timeout))
	defer sess.Conn.SetReadDeadline(time.Time{})

	var output []byte
	chunk := make([]byte, recvChunkSize)
	for {
		n, err := sess.Conn.Read(chunk)
		if n > 0 {
			output = append(output, chunk[:n]...)
			if idx := bytes.Index(output, []byte(shared.Sentinel)); idx >= 0 {
				return output[:idx]
			}
		}
		if err != nil {
			return output
		}
	}
}

// Exchange performs one synchronous send+receive. Exchanges are exclusive
// per session: no second command may go out before the first reply is
// drained.
func Exchange(sess *Session, command string, timeout time.Duration) (string, error) {
	sess.exchangeMu.Lock()
	defer sess.exchangeMu.Unlock()

	if err := Send(sess, command); err != nil {
		return "", err
	}
	return string(Receive(sess, timeout)), nil
}
