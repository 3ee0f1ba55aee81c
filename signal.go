package applet

import (
	"encoding/json"
	"fmt"
)

// Effect is the animation applied to a lit point.
type Effect string

// Effects understood by the signal service.
const (
	EffectSetColor      Effect = "SET_COLOR"
	EffectBlink         Effect = "BLINK"
	EffectBreathe       Effect = "BREATHE"
	EffectColorCycle    Effect = "COLOR_CYCLE"
	EffectRipple        Effect = "RIPPLE"
	EffectInwardRipple  Effect = "INWARD_RIPPLE"
	EffectBouncingLight Effect = "BOUNCING_LIGHT"
	EffectLaser         Effect = "LASER"
	EffectWave          Effect = "WAVE"
)

// Action tells the signal service how to treat a signal.
type Action string

const (
	// ActionDraw renders the signal's points.
	ActionDraw Action = "DRAW"

	// ActionError reports an applet failure; the points are replaced by a
	// solid red grid before sending.
	ActionError Action = "ERROR"

	// ActionFlash briefly renders the points as an acknowledgement.
	ActionFlash Action = "FLASH"
)

// DefaultSignalName is the name given to signals that do not set one.
const DefaultSignalName = "Q Desktop"

// Point is a single colored zone. Color is a hex string such as "#FF0000";
// it is passed through to the signal service unvalidated.
type Point struct {
	Color  string `json:"color"`
	Effect Effect `json:"effect"`
}

// NewPoint creates a [Point]. The effect defaults to [EffectSetColor].
func NewPoint(color string, effect ...Effect) Point {
	p := Point{Color: color, Effect: EffectSetColor}
	if len(effect) > 0 && effect[0] != "" {
		p.Effect = effect[0]
	}
	return p
}

// Origin is an absolute device coordinate.
type Origin struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Link is an optional call-to-action shown alongside a signal.
type Link struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// Signal is a lighting update: a grid of points (rows are y, columns are x)
// plus metadata.
//
// Signals are built with [NewSignal] or [ErrorSignal]. Before sending, the
// [Applet] overwrites ExtensionID and Origin from its configuration and clamps
// Points to its geometry. ID is assigned by the signal service.
type Signal struct {
	ID          int64     `json:"id,omitempty"`
	Points      [][]Point `json:"points"`
	Origin      Origin    `json:"origin"`
	Action      Action    `json:"action"`
	ExtensionID string    `json:"extensionId"`
	Data        any       `json:"data,omitempty"`
	Link        *Link     `json:"link,omitempty"`
	Errors      []string  `json:"errors,omitempty"`
	IsMuted     bool      `json:"isMuted"`
	Message     string    `json:"message"`
	Name        string    `json:"name"`
}

// NewSignal creates a [Signal] from points.
//
// Defaults: action [ActionDraw], muted, origin {0,0}, name
// [DefaultSignalName]. Nil points become a single empty row.
//
// Example:
//
//	sig := applet.NewSignal(
//	    [][]applet.Point{{applet.NewPoint("#00FF00")}},
//	    applet.WithMessage("build passed"),
//	    applet.WithMuted(false),
//	)
func NewSignal(points [][]Point, opts ...SignalOption) *Signal {
	if points == nil {
		points = [][]Point{{}}
	}
	s := &Signal{
		Points:  points,
		Action:  ActionDraw,
		IsMuted: true,
		Name:    DefaultSignalName,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ErrorSignal creates an [ActionError] signal carrying messages. Its points
// are empty; the [Applet] fills them with red before sending.
func ErrorSignal(messages ...string) *Signal {
	errs := make([]string, len(messages))
	copy(errs, messages)
	return NewSignal(nil, WithAction(ActionError), WithErrors(errs...))
}

// ErrorSignalFrom creates an error signal from decoded [ErrorMessages].
func ErrorSignalFrom(m ErrorMessages) *Signal {
	return ErrorSignal(m...)
}

// ErrorMessages is a list of error strings that decodes from any of the
// shapes hosts have historically sent: a list, a single string or a
// {"messages": [...]} wrapper.
type ErrorMessages []string

// UnmarshalJSON implements json.Unmarshaler.
func (m *ErrorMessages) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*m = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*m = ErrorMessages{single}
		return nil
	}

	var wrapper struct {
		Messages json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && len(wrapper.Messages) > 0 {
		var inner ErrorMessages
		if err := json.Unmarshal(wrapper.Messages, &inner); err != nil {
			return fmt.Errorf("invalid error messages: %w", err)
		}
		*m = inner
		return nil
	}

	return fmt.Errorf("invalid error messages: %s", data)
}

// Clone returns a copy of s whose point grid and errors can be modified
// independently.
func (s *Signal) Clone() *Signal {
	if s == nil {
		return nil
	}
	out := *s
	if s.Points != nil {
		out.Points = make([][]Point, len(s.Points))
		for i, row := range s.Points {
			out.Points[i] = append([]Point(nil), row...)
		}
	}
	if s.Errors != nil {
		out.Errors = append([]string(nil), s.Errors...)
	}
	if s.Link != nil {
		l := *s.Link
		out.Link = &l
	}
	return &out
}
