package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-rgbd/pkg/acquisition"
	"github.com/teslashibe/go-rgbd/pkg/camera"
	"github.com/teslashibe/go-rgbd/pkg/rgbd"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// newTestServer builds a server whose sources return a fixed 2x1 frame,
// or acquireErr when set.
func newTestServer(t *testing.T, acquireErr error) (*Server, *camera.Manager) {
	t.Helper()

	mgr, err := camera.Open(filepath.Join(t.TempDir(), "rgbd.yaml"), quiet)
	if err != nil {
		t.Fatalf("camera.Open: %v", err)
	}

	orch := acquisition.New(acquisition.Factories{
		Source: func(acquisition.SourceKind, camera.Config, *slog.Logger) (rgbd.Source, error) {
			return rgbd.SourceFunc(func(context.Context, int, int) (*rgbd.Frame, error) {
				if acquireErr != nil {
					return nil, acquireErr
				}
				return rgbd.NewFrame(2, 1, []byte{10, 20, 30, 40, 50, 60}, []byte{1, 0, 2, 0})
			}), nil
		},
	}, quiet)

	return NewServer(DefaultConfig(), orch, mgr, quiet), mgr
}

func do(t *testing.T, s *Server, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, body
}

func TestFrameRoute_Interleaved(t *testing.T) {
	s, _ := newTestServer(t, nil)

	status, body := do(t, s, httptest.NewRequest("GET", "/camera/opencv/rgbd", nil))
	if status != 200 {
		t.Fatalf("status = %d, body = %s", status, body)
	}

	var got struct {
		RGBD       []int `json:"rgbd"`
		RGBDLength int   `json:"rgbd_length"`
		ColorBPP   int   `json:"color_bpp"`
		DepthBPP   int   `json:"depth_bpp"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(got.RGBD) != "[10 20 30 1 0 40 50 60 2 0]" || got.RGBDLength != 10 {
		t.Errorf("payload = %+v", got)
	}
	if got.ColorBPP != 3 || got.DepthBPP != 2 {
		t.Errorf("bpp = %d/%d", got.ColorBPP, got.DepthBPP)
	}
}

func TestFrameRoute_SplitFormatName(t *testing.T) {
	s, _ := newTestServer(t, nil)

	for _, path := range []string{"/camera/ros/rgb+d", "/camera/ros/rgb%2Bd"} {
		status, body := do(t, s, httptest.NewRequest("GET", path, nil))
		if status != 200 {
			t.Errorf("%s: status = %d, body = %s", path, status, body)
			continue
		}
		if !strings.Contains(string(body), `"color_length":6`) {
			t.Errorf("%s: body = %s", path, body)
		}
	}
}

func TestFrameRoute_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		acquireErr error
		wantStatus int
		wantKind   string
	}{
		{"unknown source", "/camera/kinect/png", nil, 404, "unrecognized_source"},
		{"unknown format", "/camera/ros/bmp", nil, 404, "unrecognized_sink"},
		{"unavailable", "/camera/opencv/png", rgbd.ErrSourceUnavailable, 503, "source_unavailable"},
		{"timeout", "/camera/ros/png", rgbd.ErrAcquisitionTimeout, 504, "acquisition_timeout"},
		{"mismatch", "/camera/pybullet/png", rgbd.ErrProtocolMismatch, 502, "protocol_mismatch"},
		{"other", "/camera/usb_realsense/png", errors.New("boom"), 500, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, tt.acquireErr)

			status, body := do(t, s, httptest.NewRequest("GET", tt.path, nil))
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			var got ErrorResponse
			if err := json.Unmarshal(body, &got); err != nil {
				t.Fatalf("body %s: %v", body, err)
			}
			if got.Kind != tt.wantKind || got.Error == "" {
				t.Errorf("body = %+v", got)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	wrapped := &rgbd.SinkError{Sink: "png", Err: rgbd.ErrUnsupportedChannelDepth}
	if got := statusFor(wrapped); got != 422 {
		t.Errorf("unsupported channel depth = %d", got)
	}
	if got := statusFor(rgbd.ErrEncodingFailure); got != 500 {
		t.Errorf("encoding failure = %d", got)
	}
}

func TestHelpRoutes(t *testing.T) {
	s, _ := newTestServer(t, nil)

	status, body := do(t, s, httptest.NewRequest("GET", "/", nil))
	if status != 200 || !strings.Contains(string(body), "/camera/usb_realsense") {
		t.Errorf("help: %d %s", status, body)
	}

	status, body = do(t, s, httptest.NewRequest("GET", "/camera/pybullet", nil))
	if status != 200 || !strings.Contains(string(body), "rgb+d rgbd png ros") {
		t.Errorf("formats: %d %s", status, body)
	}

	status, _ = do(t, s, httptest.NewRequest("GET", "/camera/kinect", nil))
	if status != 404 {
		t.Errorf("unknown source formats status = %d", status)
	}

	status, body = do(t, s, httptest.NewRequest("GET", "/health", nil))
	if status != 200 || !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("health: %d %s", status, body)
	}
}

func TestRequestConfig_Get(t *testing.T) {
	s, _ := newTestServer(t, nil)

	status, body := do(t, s, httptest.NewRequest("GET", "/camera/request_config", nil))
	if status != 200 {
		t.Fatalf("status = %d", status)
	}

	var got map[string]any
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if got["camera_width"] != float64(1280) || got["worker_opencv_device"] != float64(0) {
		t.Errorf("config = %v", got)
	}
	if got["worker_ros_topic_color"] != "/camera/color/image_raw" {
		t.Errorf("worker_ros_topic_color = %v", got["worker_ros_topic_color"])
	}
}

func TestRequestConfig_PostForm(t *testing.T) {
	s, mgr := newTestServer(t, nil)

	form := url.Values{}
	form.Set("camera_width", "640")
	form.Set("camera_height", "480")
	form.Set("worker_opencv_device", "/dev/video1")
	form.Add("worker_pybullet_eye_position", "1")
	form.Add("worker_pybullet_eye_position", "2")
	form.Add("worker_pybullet_eye_position", "4")

	req := httptest.NewRequest("POST", "/camera/request_config", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body := do(t, s, req)
	if status != 200 || string(body) != "{}" {
		t.Fatalf("status = %d, body = %s", status, body)
	}

	cfg := mgr.GetConfig()
	if cfg.Camera.Width != 640 || cfg.Camera.Height != 480 {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if cfg.WorkerOpenCV.Device != "/dev/video1" {
		t.Errorf("device = %q", cfg.WorkerOpenCV.Device)
	}
	if cfg.WorkerPyBullet.EyePosition != [3]float64{1, 2, 4} {
		t.Errorf("eye = %v", cfg.WorkerPyBullet.EyePosition)
	}

	reloaded, err := camera.Load(mgr.Path())
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Camera.Width != 640 {
		t.Errorf("update not persisted: width %d", reloaded.Camera.Width)
	}
}

func TestRequestConfig_PostJSON(t *testing.T) {
	s, mgr := newTestServer(t, nil)

	req := httptest.NewRequest("POST", "/camera/request_config",
		strings.NewReader(`{"preset":"qvga","worker_ros_port":9091,"worker_pybullet_target_position":[0,0,1]}`))
	req.Header.Set("Content-Type", "application/json")

	status, body := do(t, s, req)
	if status != 200 {
		t.Fatalf("status = %d, body = %s", status, body)
	}

	cfg := mgr.GetConfig()
	if cfg.Camera.Width != 320 || cfg.WorkerROS.Port != 9091 {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.WorkerPyBullet.TargetPosition != [3]float64{0, 0, 1} {
		t.Errorf("target = %v", cfg.WorkerPyBullet.TargetPosition)
	}
}

func TestRequestConfig_PostRejected(t *testing.T) {
	s, mgr := newTestServer(t, nil)
	before := mgr.GetConfig()

	req := httptest.NewRequest("POST", "/camera/request_config", strings.NewReader("camera_width=wide"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body := do(t, s, req)
	if status != 400 || !strings.Contains(string(body), "invalid_config") {
		t.Errorf("status = %d, body = %s", status, body)
	}
	if mgr.GetConfig() != before {
		t.Error("rejected update changed the config")
	}
}

func TestFrameSocket(t *testing.T) {
	s, _ := newTestServer(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go s.Serve(ln)
	defer s.Shutdown(context.Background())

	wsURL := fmt.Sprintf("ws://%s/ws/camera/opencv/png", ln.Addr())
	var ws *websocket.Conn
	deadline := time.Now().Add(2 * time.Second)
	for {
		ws, _, err = websocket.DefaultDialer.Dial(wsURL, nil)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	for i := 0; i < 2; i++ {
		if err := ws.WriteMessage(websocket.TextMessage, []byte("frame")); err != nil {
			t.Fatal(err)
		}
		var got struct {
			Width     int   `json:"width"`
			Height    int   `json:"height"`
			PNG       []int `json:"png"`
			PNGLength int   `json:"png_length"`
		}
		ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		if err := ws.ReadJSON(&got); err != nil {
			t.Fatalf("reply %d: %v", i, err)
		}
		if got.Width != 2 || got.Height != 1 || got.PNGLength == 0 || len(got.PNG) != got.PNGLength {
			t.Errorf("reply %d = %dx%d len %d", i, got.Width, got.Height, got.PNGLength)
		}
	}
}

func TestFrameSocket_RequiresUpgrade(t *testing.T) {
	s, _ := newTestServer(t, nil)

	status, _ := do(t, s, httptest.NewRequest("GET", "/ws/camera/opencv/png", nil))
	if status != 426 {
		t.Errorf("status = %d, want 426", status)
	}
}
