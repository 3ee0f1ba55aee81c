package applet

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/qdesktop/qapplet/config"
)

// MessageType identifies a host control message.
type MessageType string

// Control messages sent by the host.
const (
	MessageConfigure MessageType = "CONFIGURE"
	MessageFlash     MessageType = "FLASH"
	MessageOptions   MessageType = "OPTIONS"
	MessagePause     MessageType = "PAUSE"
	MessagePoll      MessageType = "POLL"
	MessageStart     MessageType = "START"
)

// Reply types sent back to the host.
const (
	ReplyConfigurationResult = "CONFIGURATION_RESULT"
	ReplyOptions             = "OPTIONS"
)

// Reply statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Message is an inbound control message: {"data": {"type": ..., ...}}.
type Message struct {
	Data MessageData `json:"data"`
}

// MessageData is the body of a [Message].
type MessageData struct {
	Type          MessageType     `json:"type"`
	Configuration json.RawMessage `json:"configuration,omitempty"`
	FieldName     string          `json:"fieldName,omitempty"`
	Search        string          `json:"search,omitempty"`
}

// Reply is an outbound message answering CONFIGURE or OPTIONS.
type Reply struct {
	Status  string    `json:"status"`
	Data    ReplyData `json:"data"`
	Message string    `json:"message,omitempty"`
}

// ReplyData is the body of a [Reply].
type ReplyData struct {
	Type    string          `json:"type"`
	Result  json.RawMessage `json:"result,omitempty"`
	Options []OptionItem    `json:"options"`
}

// MarshalJSON leaves options out of configuration results.
func (d ReplyData) MarshalJSON() ([]byte, error) {
	if d.Type == ReplyOptions {
		type withOptions ReplyData
		v := withOptions(d)
		if v.Options == nil {
			v.Options = []OptionItem{}
		}
		return json.Marshal(v)
	}
	return json.Marshal(struct {
		Type   string          `json:"type"`
		Result json.RawMessage `json:"result,omitempty"`
	}{d.Type, d.Result})
}

// HandleMessage decodes and dispatches one raw host message, waiting for
// the resulting work to finish. Replies to CONFIGURE and OPTIONS go to the
// channel set with [WithChannel] and are also returned (nil otherwise).
//
// Malformed and unknown messages are logged and ignored; they produce no
// reply and no error.
func (a *Applet) HandleMessage(ctx context.Context, raw []byte) (*Reply, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		a.logger.Error("could not parse message as JSON", "error", err)
		return nil, nil
	}
	return a.dispatch(ctx, msg)
}

func (a *Applet) dispatch(ctx context.Context, msg Message) (*Reply, error) {
	data := msg.Data
	a.logger.Info("received message", "type", data.Type)

	switch data.Type {
	case MessageConfigure:
		reply := a.handleConfigure(ctx, data.Configuration)
		return reply, a.reply(ctx, reply)

	case MessageFlash:
		if err := a.Flash(ctx); err != nil {
			a.logger.Error("flash failed", "error", err)
		}
		return nil, nil

	case MessageOptions:
		reply := a.handleOptions(ctx, data.FieldName, data.Search)
		return reply, a.reply(ctx, reply)

	case MessagePause:
		a.Pause()
		return nil, nil

	case MessagePoll:
		a.Poll(ctx, true)
		return nil, nil

	case MessageStart:
		if a.Paused() {
			a.Resume(ctx)
			return nil, nil
		}
		if err := a.Start(ctx); err != nil {
			a.logger.Error("start failed", "error", err)
		}
		return nil, nil

	default:
		a.logger.Error("unknown message type", "type", data.Type)
		return nil, nil
	}
}

func (a *Applet) handleConfigure(ctx context.Context, raw json.RawMessage) *Reply {
	reply := &Reply{Data: ReplyData{Type: ReplyConfigurationResult}}

	var root *config.Root
	if len(raw) > 0 && string(raw) != "null" {
		root = &config.Root{}
		if err := json.Unmarshal(raw, root); err != nil {
			err = fmt.Errorf("%w: configuration: %w", config.ErrInvalid, err)
			a.logger.Error("configuration had error", "error", err)
			reply.Status = StatusError
			reply.Message = err.Error()
			return reply
		}
	}

	if err := a.Configure(ctx, root); err != nil {
		a.logger.Error("configuration had error", "error", err)
		reply.Status = StatusError
		reply.Message = err.Error()
		return reply
	}

	a.logger.Info("configuration was successful")
	reply.Status = StatusSuccess
	if len(raw) > 0 {
		reply.Data.Result = raw
	}
	return reply
}

func (a *Applet) handleOptions(ctx context.Context, fieldName, search string) *Reply {
	reply := &Reply{
		Status: StatusSuccess,
		Data:   ReplyData{Type: ReplyOptions},
	}

	provider, ok := a.runner.(OptionsProvider)
	if !ok {
		return reply
	}

	options, err := provider.Options(ctx, fieldName, search)
	if err != nil {
		a.logger.Error("options failed", "field", fieldName, "error", err)
		reply.Status = StatusError
		reply.Message = err.Error()
		return reply
	}
	reply.Data.Options = options
	return reply
}

func (a *Applet) reply(ctx context.Context, r *Reply) error {
	if a.channel == nil {
		return nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
	a.logger.Debug("sending reply", "reply", string(data))
	if err := a.channel.Send(ctx, data); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}
