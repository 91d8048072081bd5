package plugins

import (
	"encoding/binary"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	fws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/linht/bgt60/bgt60"
)

func startStreamServer(t *testing.T) (*StreamPlugin, *RadarController, string) {
	t.Helper()
	radar := newSimRadar(t)
	p, err := NewStreamPlugin(radar)
	if err != nil {
		t.Fatal(err)
	}
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	p.RegisterRoutes(app)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go app.Listener(ln)
	t.Cleanup(func() {
		p.Shutdown()
		app.Shutdown()
	})
	return p, radar, "ws://" + ln.Addr().String() + "/api/stream/ws"
}

func waitInactive(t *testing.T, p *StreamPlugin) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for p.active() {
		if time.Now().After(deadline) {
			t.Fatal("stream session still active")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStreamPluginFrames(t *testing.T) {
	p, radar, url := startStreamServer(t)

	conn, _, err := fws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var hdr streamHeader
	if err := conn.ReadJSON(&hdr); err != nil {
		t.Fatalf("read header: %v", err)
	}
	if hdr.Type != "header" || hdr.Preset != "test" || hdr.FIFOLimit != 128 {
		t.Fatalf("header = %+v", hdr)
	}

	for want := uint64(1); want <= 2; want++ {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if mt != fws.BinaryMessage {
			t.Fatalf("message type %d, want binary", mt)
		}
		if len(msg) != frameHeaderLen+2*128 {
			t.Fatalf("frame is %d bytes", len(msg))
		}
		if seq := binary.LittleEndian.Uint64(msg); seq != want {
			t.Fatalf("seq = %d, want %d", seq, want)
		}
	}

	// A second client is refused while the first is streaming.
	if _, resp, err := fws.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatal("second session accepted")
	} else if resp == nil || resp.StatusCode != http.StatusConflict {
		t.Fatalf("second dial: %v", err)
	}

	if err := conn.WriteJSON(streamControl{Type: "stop"}); err != nil {
		t.Fatal(err)
	}
	// Drain whatever was in flight until the server closes the connection.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	waitInactive(t, p)
	if radar.Running() {
		t.Fatal("stream left the radar running")
	}
}

func TestStreamPluginReconfiguredMidStream(t *testing.T) {
	p, radar, url := startStreamServer(t)

	conn, _, err := fws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	var hdr streamHeader
	if err := conn.ReadJSON(&hdr); err != nil {
		t.Fatalf("read header: %v", err)
	}
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read frame: %v", err)
	}

	// Switch to a larger frame and restart in one step, so the stream never
	// sees the radar stopped.
	radar.mu.Lock()
	err = radar.configureLocked("low_framerate", bgt60.LowFrameratePreset())
	if err == nil {
		radar.chip.FrameInterval = 0
		err = radar.startLocked()
	}
	radar.mu.Unlock()
	if err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("connection closed without an error message: %v", err)
		}
		if mt == fws.BinaryMessage {
			if len(msg) != frameHeaderLen+2*hdr.FIFOLimit {
				t.Fatalf("frame of %d bytes under a %d sample header", len(msg), hdr.FIFOLimit)
			}
			continue
		}
		if !strings.Contains(string(msg), ErrConfigChanged.Error()) {
			t.Fatalf("message = %s", msg)
		}
		break
	}
	waitInactive(t, p)
	if !radar.Running() {
		t.Fatal("stream stopped a radar it no longer owns")
	}
}

func TestStreamPluginUnconfigured(t *testing.T) {
	p, radar, url := startStreamServer(t)
	radar.Close()
	if err := radar.Initialize(); err != nil {
		t.Fatal(err)
	}

	conn, _, err := fws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	var msg map[string]interface{}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg["type"] != "error" {
		t.Fatalf("message = %v", msg)
	}
	waitInactive(t, p)
}

func TestStreamPluginRequiresUpgrade(t *testing.T) {
	radar := newSimRadar(t)
	p, err := NewStreamPlugin(radar)
	if err != nil {
		t.Fatal(err)
	}
	app := fiber.New()
	p.RegisterRoutes(app)

	res, err := app.Test(newGet("/api/stream/ws"), 5000)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != fiber.StatusUpgradeRequired {
		t.Fatalf("status %d, want 426", res.StatusCode)
	}

	resp := mustStatus(t, app, http.MethodGet, "/api/stream/session", "", 200)
	if string(resp.Data) != `{"active":false}` {
		t.Fatalf("session = %s", resp.Data)
	}
}

func newGet(path string) *http.Request {
	req, _ := http.NewRequest(http.MethodGet, "http://localhost"+path, nil)
	return req
}
