package web

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/tbeaulieu/mlxcam-go/domain/acquire"
)

// clientEvent is the wire shape of one browser input message.
type clientEvent struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// DecodeEvent parses one websocket text message into an input event.
// Click coordinates arrive in display space, already mapped by the page
// from canvas pixels.
func DecodeEvent(data []byte) (acquire.InputEvent, error) {
	var ev clientEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, errors.Wrap(err, "decode client event")
	}
	switch ev.Type {
	case "click":
		return acquire.ClickEvent{X: ev.X, Y: ev.Y}, nil
	case "toggle":
		return acquire.ToggleLiveEvent{}, nil
	case "reset":
		return acquire.ResetEvent{}, nil
	case "edit":
		return acquire.EditEvent{}, nil
	default:
		return nil, errors.Errorf("unknown event type %q", ev.Type)
	}
}
