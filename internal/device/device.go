// Package device sends relay commands (window, light, fan) to the farm,
// either through the backend HTTP API or straight to the MQTT command feed.
package device

import (
	"context"
	"fmt"
	"strings"

	"github.com/luki/smartfarm/internal/api"
)

// Action is one relay command.
type Action string

const (
	OpenWindow  Action = "open_window"
	CloseWindow Action = "close_window"
	LightOn     Action = "light_on"
	LightOff    Action = "light_off"
	OpenFan     Action = "open_fan"
	CloseFan    Action = "close_fan"
)

var actions = []Action{OpenWindow, CloseWindow, LightOn, LightOff, OpenFan, CloseFan}

// Actions returns every supported action.
func Actions() []Action {
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, a := range actions {
		if lower == string(a) {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Controller performs an action and returns a confirmation message.
type Controller interface {
	Do(ctx context.Context, a Action) (string, error)
}

// HTTPController sends actions through the backend (POST /{action}).
type HTTPController struct {
	Client *api.Client
}

// Do implements Controller.
func (h HTTPController) Do(ctx context.Context, a Action) (string, error) {
	msg, err := h.Client.Control(ctx, string(a))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Action '%s' successful: %s", a, msg), nil
}
