package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
)

const (
	// SignalPath is the signal collection on the local signal service.
	SignalPath = "/api/2.0/signals"

	// productID identifies the target device family for every signal.
	productID = "Q_MATRIX"
)

// Point is a single colored point of a signal grid.
type Point struct {
	Color  string
	Effect string
}

// Signal is the transport representation of a signal.
//
// This is decoupled from the public applet.Signal type to avoid circular
// dependencies; the applet package converts before sending.
type Signal struct {
	Action      string
	Points      [][]Point
	OriginX     int
	OriginY     int
	ExtensionID string
	Data        any
	Link        *Link
	Errors      []string
	IsMuted     bool
	Message     string
	Name        string
}

// Link is an optional call-to-action attached to a signal.
type Link struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// ActionValue addresses one zone of the device.
type ActionValue struct {
	ZoneID string `json:"zoneId"`
	Effect string `json:"effect"`
	Color  string `json:"color"`
}

// requestBody is the JSON document posted to the signal service.
type requestBody struct {
	Action      string   `json:"action"`
	ActionValue string   `json:"actionValue"`
	ClientName  string   `json:"clientName"`
	Data        any      `json:"data,omitempty"`
	Link        *Link    `json:"link,omitempty"`
	Errors      []string `json:"errors,omitempty"`
	IsMuted     bool     `json:"isMuted"`
	Message     string   `json:"message"`
	Name        string   `json:"name"`
	PID         string   `json:"pid"`
}

// Flatten converts the point grid into zone actions in row-major order
// (y outer, x inner). Zone ids are absolute device coordinates "x,y".
func Flatten(s Signal) []ActionValue {
	values := make([]ActionValue, 0, countPoints(s.Points))
	for y, row := range s.Points {
		for x, p := range row {
			values = append(values, ActionValue{
				ZoneID: ZoneID(s.OriginX+x, s.OriginY+y),
				Effect: p.Effect,
				Color:  p.Color,
			})
		}
	}
	return values
}

// ZoneID formats absolute device coordinates as a zone identifier.
func ZoneID(x, y int) string {
	return strconv.Itoa(x) + "," + strconv.Itoa(y)
}

func countPoints(rows [][]Point) int {
	n := 0
	for _, row := range rows {
		n += len(row)
	}
	return n
}

// Send posts the signal to the signal service.
//
// Send never returns a Go error. Failures are logged here and recorded in
// [Response.Error]; connection refused gets a dedicated diagnostic because it
// almost always means the signal service is not running. A successful
// response carries the assigned id in [Response.ID].
func (c *Client) Send(ctx context.Context, s Signal) Response {
	actionValue, err := json.Marshal(Flatten(s))
	if err != nil {
		return Response{Error: fmt.Errorf("failed to encode action value: %w", err)}
	}

	body := requestBody{
		Action:      s.Action,
		ActionValue: string(actionValue),
		ClientName:  s.ExtensionID,
		Data:        s.Data,
		Link:        s.Link,
		Errors:      s.Errors,
		IsMuted:     s.IsMuted,
		Message:     s.Message,
		Name:        s.Name,
		PID:         productID,
	}

	endpoint := c.baseURL + SignalPath
	c.logger.Debug("posting signal", "url", endpoint, "action", s.Action, "zones", countPoints(s.Points))

	resp := c.Do(ctx, http.MethodPost, endpoint, nil, body)
	if resp.Error != nil {
		if IsConnectionRefused(resp.Error) {
			c.logger.Error("failed to connect to signal service, make sure it is running",
				"url", endpoint,
			)
		} else {
			c.logger.Error("error sending signal", "url", endpoint, "error", resp.Error)
		}
		return resp
	}

	c.logger.Debug("signal service responded", "status", resp.StatusCode)

	id, err := parseSignalID(resp.Body)
	if err != nil {
		c.logger.Warn("signal service response has no usable id", "error", err)
		return resp
	}
	resp.ID = id
	return resp
}

// Delete removes a previously sent signal by id.
func (c *Client) Delete(ctx context.Context, id string) Response {
	id = strings.TrimSpace(id)
	if id == "" {
		return Response{Error: fmt.Errorf("signal id is required")}
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return Response{Error: fmt.Errorf("invalid signal id %q: must be a positive integer", id)}
	}

	endpoint := c.baseURL + SignalPath + "/" + strconv.FormatInt(n, 10)
	resp := c.Do(ctx, http.MethodDelete, endpoint, nil, nil)
	if resp.Error != nil {
		c.logger.Error("error deleting signal", "id", id, "error", resp.Error)
	}
	return resp
}

// parseSignalID extracts the "id" field of a signal service response. The
// service has answered with both numeric and string ids.
func parseSignalID(body []byte) (int64, error) {
	var payload struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("invalid response body: %w", err)
	}
	if len(payload.ID) == 0 || string(payload.ID) == "null" {
		return 0, fmt.Errorf("response has no id")
	}

	raw := strings.Trim(string(payload.ID), `"`)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %s: %w", payload.ID, err)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which is already out of range
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("invalid id %s: not an integer in range", payload.ID)
	}
	return int64(f), nil
}
