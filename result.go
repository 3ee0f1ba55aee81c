package applet

import (
	"encoding/json"
	"time"

	"github.com/qdesktop/qapplet/internal/transport"
)

// SignalResult describes the signal service's answer to one request.
type SignalResult struct {
	// StatusCode is the HTTP status, zero if no response was received.
	StatusCode int `json:"statusCode"`

	// Body is the raw response body, limited to 1MB.
	Body json.RawMessage `json:"body,omitempty"`

	// ID is the id assigned to the signal, zero if none was assigned.
	ID int64 `json:"id,omitempty"`

	// Latency is the request round-trip time.
	Latency time.Duration `json:"latency"`

	// Err is the transport or HTTP failure, if any.
	Err error `json:"-"`
}

// Accepted reports whether the service answered 2xx and assigned an id.
func (r SignalResult) Accepted() bool {
	return r.Err == nil && r.ID != 0
}

// MarshalJSON adds the error message, which error values do not encode.
func (r SignalResult) MarshalJSON() ([]byte, error) {
	type plain SignalResult
	out := struct {
		plain
		Error string `json:"error,omitempty"`
	}{plain: plain(r)}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	if len(out.Body) > 0 && !json.Valid(out.Body) {
		b, _ := json.Marshal(string(out.Body))
		out.Body = b
	}
	return json.Marshal(out)
}

// LogEntry is one element of the signal log.
type LogEntry struct {
	Signal *Signal      `json:"signal"`
	Result SignalResult `json:"result"`
	Time   time.Time    `json:"time"`
}

func fromTransportResponse(resp transport.Response) SignalResult {
	return SignalResult{
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		ID:         resp.ID,
		Latency:    resp.Latency,
		Err:        resp.Error,
	}
}

// toTransportSignal converts the public signal into its wire form.
func toTransportSignal(s *Signal) transport.Signal {
	points := make([][]transport.Point, len(s.Points))
	for y, row := range s.Points {
		points[y] = make([]transport.Point, len(row))
		for x, p := range row {
			points[y][x] = transport.Point{Color: p.Color, Effect: string(p.Effect)}
		}
	}

	var link *transport.Link
	if s.Link != nil {
		link = &transport.Link{URL: s.Link.URL, Label: s.Link.Label}
	}

	return transport.Signal{
		Action:      string(s.Action),
		Points:      points,
		OriginX:     s.Origin.X,
		OriginY:     s.Origin.Y,
		ExtensionID: s.ExtensionID,
		Data:        s.Data,
		Link:        link,
		Errors:      s.Errors,
		IsMuted:     s.IsMuted,
		Message:     s.Message,
		Name:        s.Name,
	}
}
