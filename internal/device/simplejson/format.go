package simplejson

import (
	"time"
)

type FrameMessage struct {
	Length   int
	Protocol byte
	Payload  []byte
	Buffer   []byte
}

const (
	LOGIN           byte = 0x01
	LOCATION_UPDATE byte = 0x02
	SAT_UPDATE      byte = 0x03
	GPS_ERROR       byte = 0x04
	GPS_INIT        byte = 0x05
	STATUS          byte = 0x06
)

type LoginMessage struct {
	SnType     string `json:"sn_type"`
	Serial     string `json:"serial"`
	DeviceType string `json:"device_type"`
}

type LocationMessage struct {
	GpsTime   time.Time `json:"gps_time"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  float32   `json:"altitude"`
	SatUsed   int       `json:"sat_used"`
	Fix       bool      `json:"fix"`
	FixMode   string    `json:"fix_mode"`
	Speed     float32   `json:"speed"`
}

type ErrorMessage struct {
	Message string `json:"error"`
}

type StatusMessage struct {
	GpsStatus     bool      `json:"gps_status"`
	LastLongitude float64   `json:"last_longitude,omitempty"`
	LastLatitude  float64   `json:"last_latitude,omitempty"`
	LastFix       time.Time `json:"last_fix,omitempty"`
}
