package device

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"nuha.dev/gpslogger/internal/device/conn"
	"nuha.dev/gpslogger/internal/tracking"
)

const (
	DEVICE_SIMPLEJSON string = "simplejson"
)

var (
	ErrGpsError           = fmt.Errorf("%w: gps error reported by device", tracking.ErrLocationUnavailable)
	ErrAcquisitionTimeout = fmt.Errorf("%w: acquisition timeout", tracking.ErrLocationUnavailable)
	ErrSourceClosed       = fmt.Errorf("%w: source closed", tracking.ErrLocationUnavailable)
	ErrUnknownDevice      = errors.New("unknown device protocol")
)

// SourceConfig tunes how a location source delivers fixes.
type SourceConfig struct {
	// only deliver 3D fixes
	HighAccuracy bool `json:"high_accuracy" mapstructure:"high_accuracy"`
	// 0 never replays a cached fix on subscribe
	MaxCacheAge time.Duration `json:"max_cache_age" mapstructure:"max_cache_age" validate:"gte=0"`
	// 0 disables the acquisition watchdog
	AcquisitionTimeout time.Duration `json:"acquisition_timeout" mapstructure:"acquisition_timeout" validate:"gte=0"`
}

// Open opens a device path for reading. "-" is stdin.
func Open(path string, cid uint64) (*conn.Conn, error) {
	var rc io.ReadCloser
	if path == "-" {
		rc = io.NopCloser(os.Stdin)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open device %s: %w", path, err)
		}
		rc = f
	}
	return conn.NewConn(rc, path, cid), nil
}

// Detect peeks at the first byte of the stream to find the device protocol.
func Detect(c *conn.Conn) (string, error) {
	b, err := c.Peek(1)
	if err != nil {
		return "", err
	}
	switch b[0] {
	case 0x99:
		return DEVICE_SIMPLEJSON, nil
	default:
		return "", fmt.Errorf("%w: start byte %#x", ErrUnknownDevice, b[0])
	}
}
