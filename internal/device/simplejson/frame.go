package simplejson

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

var errBadFrame = errors.New("bad frame")

// ReadMessage reads one frame: 0x99, protocol, uint16 LE payload length,
// payload, '\n'.
func ReadMessage(r io.Reader, msg *FrameMessage) error {
	return readMessage(r, msg)
}

func readMessage(r io.Reader, msg *FrameMessage) error {
	var length int //length field

	if len(msg.Buffer) < 5 {
		return fmt.Errorf("buffer too small")
	}

	_, err := io.ReadFull(r, msg.Buffer[:4])
	if err != nil {
		return err
	}
	//check startbit type
	if msg.Buffer[0] == 0x99 {
		length = int(binary.LittleEndian.Uint16(msg.Buffer[2:4]))
		msg.Protocol = msg.Buffer[1]
		msg.Length = length + 5
	} else {
		return errBadFrame
	}

	if len(msg.Buffer) < msg.Length {
		return fmt.Errorf("buffer too small for frame of %d bytes", msg.Length)
	}

	_, err = io.ReadFull(r, msg.Buffer[4:msg.Length])
	if err != nil {
		return err
	}
	if msg.Buffer[msg.Length-1] != '\n' {
		return errBadFrame
	}

	msg.Payload = msg.Buffer[4 : msg.Length-1]
	return nil
}

// WriteMessage frames payload and writes it to w.
func WriteMessage(w io.Writer, protocol byte, payload []byte) error {
	if len(payload) > math.MaxUint16 {
		return fmt.Errorf("payload of %d bytes too large", len(payload))
	}
	buf := make([]byte, 4, len(payload)+5)
	buf[0] = 0x99
	buf[1] = protocol
	binary.LittleEndian.PutUint16(buf[2:], uint16(len(payload)))
	buf = append(buf, payload...)
	buf = append(buf, '\n')
	_, err := w.Write(buf)
	return err
}

// WriteJSON marshals v and writes it as a frame.
func WriteJSON(w io.Writer, protocol byte, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return WriteMessage(w, protocol, payload)
}
