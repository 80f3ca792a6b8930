package device

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/luki/smartfarm/internal/api"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic   string
	qos     byte
	payload string
}

type fakePublisher struct {
	sent []published
	err  error
}

func (f *fakePublisher) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	f.sent = append(f.sent, published{topic: topic, qos: qos, payload: payload.(string)})
	return newFakeToken(f.err)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMQTTControllerPublishesFirmwarePayload(t *testing.T) {
	pub := &fakePublisher{}
	c := newMQTTController(pub, FormatTopic("smartfarm/{device_id}/command", "farm-1"), quietLogger())

	msg, err := c.Do(context.Background(), OpenWindow)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !strings.Contains(msg, "smartfarm/farm-1/command") {
		t.Errorf("message: %q", msg)
	}
	if _, err := c.Do(context.Background(), OpenFan); err != nil {
		t.Fatalf("Do: %v", err)
	}

	want := []published{
		{"smartfarm/farm-1/command", 1, "win_open"},
		{"smartfarm/farm-1/command", 1, "open_fan"},
	}
	if len(pub.sent) != len(want) {
		t.Fatalf("published %d messages, want %d", len(pub.sent), len(want))
	}
	for i := range want {
		if pub.sent[i] != want[i] {
			t.Errorf("message %d: got %+v, want %+v", i, pub.sent[i], want[i])
		}
	}
}

func TestMQTTControllerError(t *testing.T) {
	boom := errors.New("not connected")
	c := newMQTTController(&fakePublisher{err: boom}, "t", quietLogger())
	if _, err := c.Do(context.Background(), LightOn); !errors.Is(err, boom) {
		t.Errorf("got %v, want wrapped %v", err, boom)
	}
}

func TestParseAction(t *testing.T) {
	for _, a := range Actions() {
		got, err := ParseAction(strings.ToUpper(string(a)))
		if err != nil || got != a {
			t.Errorf("ParseAction(%q) = %q, %v", a, got, err)
		}
	}
	if _, err := ParseAction("water_plant"); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestHTTPController(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/light_off" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"message": "light is off"}`)
	}))
	defer srv.Close()

	tokens := &api.MemTokens{}
	tokens.SetToken("tok")
	c := HTTPController{Client: api.New(srv.URL, srv.Client(), tokens, quietLogger())}

	msg, err := c.Do(context.Background(), LightOff)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if msg != "Action 'light_off' successful: light is off" {
		t.Errorf("message: %q", msg)
	}

	var se *api.StatusError
	if _, err := c.Do(context.Background(), LightOn); !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Errorf("unknown route: got %v", err)
	}
}
