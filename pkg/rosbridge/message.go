package rosbridge

import (
	"encoding/json"
	"time"

	"github.com/teslashibe/go-rgbd/pkg/rgbd"
)

// rosbridge v2 operations.
const (
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
	OpAdvertise   = "advertise"
	OpUnadvertise = "unadvertise"
	OpPublish     = "publish"
	OpStatus      = "status"
)

// ImageType is the ROS message type of camera images.
const ImageType = "sensor_msgs/Image"

// Image encodings used by this package.
const (
	EncodingRGB8   = "rgb8"
	EncodingBGR8   = "bgr8"
	Encoding16UC1  = "16UC1"
	EncodingMono16 = "mono16"
)

// Operation is one rosbridge protocol message.
type Operation struct {
	Op    string          `json:"op"`
	ID    string          `json:"id,omitempty"`
	Topic string          `json:"topic,omitempty"`
	Type  string          `json:"type,omitempty"`
	Msg   json.RawMessage `json:"msg,omitempty"`

	// Level is set on status operations, whose Msg is a JSON string.
	Level string `json:"level,omitempty"`
}

// Stamp is a ROS time.
type Stamp struct {
	Secs  uint32 `json:"secs"`
	Nsecs uint32 `json:"nsecs"`
}

// StampFrom converts t to a ROS time.
func StampFrom(t time.Time) Stamp {
	return Stamp{Secs: uint32(t.Unix()), Nsecs: uint32(t.Nanosecond())}
}

// Header is std_msgs/Header.
type Header struct {
	Seq     uint32 `json:"seq"`
	Stamp   Stamp  `json:"stamp"`
	FrameID string `json:"frame_id"`
}

// Image is sensor_msgs/Image. Data is published as an integer array and
// accepted as either an integer array or base64.
type Image struct {
	Header      Header     `json:"header"`
	Height      uint32     `json:"height"`
	Width       uint32     `json:"width"`
	Encoding    string     `json:"encoding"`
	IsBigendian uint8      `json:"is_bigendian"`
	Step        uint32     `json:"step"`
	Data        rgbd.Bytes `json:"data"`
}

// encodingBPP lists the bytes per pixel of encodings whose rows can be
// un-strided.
var encodingBPP = map[string]int{
	EncodingRGB8:   3,
	EncodingBGR8:   3,
	"RGB8":         3,
	"8UC3":         3,
	Encoding16UC1:  2,
	EncodingMono16: 2,
	"Z16":          2,
}
