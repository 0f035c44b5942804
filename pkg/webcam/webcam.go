// Package webcam acquires color frames from a V4L/UVC capture device via
// OpenCV. Webcams have no depth sense; frames carry an all-zero depth
// channel of the same pixel count.
package webcam

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-rgbd/pkg/rgbd"
)

// Config selects the capture device.
type Config struct {
	// Device is a device index ("0") or a device path or stream URL.
	Device string `yaml:"device" json:"device"`
}

// DefaultConfig returns the first capture device.
func DefaultConfig() Config {
	return Config{Device: "0"}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("webcam: device is required")
	}
	return nil
}

// capture is the part of gocv.VideoCapture the adapter uses.
type capture interface {
	IsOpened() bool
	Set(prop gocv.VideoCaptureProperties, param float64)
	Read(m *gocv.Mat) bool
	Close() error
}

func openDevice(device string) (capture, error) {
	var (
		vc  *gocv.VideoCapture
		err error
	)
	if idx, convErr := strconv.Atoi(device); convErr == nil {
		vc, err = gocv.OpenVideoCapture(idx)
	} else {
		vc, err = gocv.OpenVideoCapture(device)
	}
	if err != nil {
		return nil, err
	}
	return vc, nil
}

// Adapter is an rgbd.Source reading one frame from a webcam.
type Adapter struct {
	cfg    Config
	logger *slog.Logger
	open   func(device string) (capture, error)
}

// New creates a webcam adapter.
func New(cfg Config, logger *slog.Logger) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		cfg:    cfg,
		logger: logger.With("component", "webcam", "device", cfg.Device),
		open:   openDevice,
	}, nil
}

// Acquire implements rgbd.Source. The requested size is best effort: the
// frame takes the size the device actually delivers.
func (a *Adapter) Acquire(ctx context.Context, width, height int) (f *rgbd.Frame, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vc, err := a.open(a.cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", rgbd.ErrSourceUnavailable, a.cfg.Device, err)
	}
	defer rgbd.Release(&err, "capture device", vc.Close)

	if !vc.IsOpened() {
		return nil, fmt.Errorf("%w: device %s not opened", rgbd.ErrSourceUnavailable, a.cfg.Device)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(height))

	img := gocv.NewMat()
	defer rgbd.Release(&err, "frame mat", img.Close)

	if ok := vc.Read(&img); !ok || img.Empty() {
		return nil, fmt.Errorf("%w: device %s returned no frame", rgbd.ErrAcquisitionTimeout, a.cfg.Device)
	}

	w, h := img.Cols(), img.Rows()
	if w != width || h != height {
		a.logger.Debug("device ignored requested size",
			"requested", fmt.Sprintf("%dx%d", width, height),
			"actual", fmt.Sprintf("%dx%d", w, h),
		)
	}

	color, err := toRGB(img)
	if err != nil {
		return nil, err
	}

	return rgbd.NewFrame(w, h, color, make([]byte, w*h*2))
}

// toRGB reorders a BGR, BGRA or grayscale mat to packed RGB bytes.
func toRGB(img gocv.Mat) ([]byte, error) {
	var code gocv.ColorConversionCode
	switch ch := img.Channels(); ch {
	case 3:
		code = gocv.ColorBGRToRGB
	case 4:
		code = gocv.ColorBGRAToRGB
	case 1:
		code = gocv.ColorGrayToBGR
	default:
		return nil, fmt.Errorf("%w: %d-channel frame", rgbd.ErrProtocolMismatch, ch)
	}

	rgb := gocv.NewMat()
	defer rgb.Close()

	gocv.CvtColor(img, &rgb, code)
	if rgb.Empty() {
		return nil, fmt.Errorf("%w: color conversion produced no data", rgbd.ErrProtocolMismatch)
	}
	return rgb.ToBytes(), nil
}
