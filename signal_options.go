package applet

// SignalOption configures a [Signal] built by [NewSignal].
type SignalOption func(*Signal)

// WithAction sets the signal action. The default is [ActionDraw].
func WithAction(a Action) SignalOption {
	return func(s *Signal) {
		s.Action = a
	}
}

// WithName sets the signal name shown by the host.
func WithName(name string) SignalOption {
	return func(s *Signal) {
		s.Name = name
	}
}

// WithMessage sets the human readable message.
func WithMessage(msg string) SignalOption {
	return func(s *Signal) {
		s.Message = msg
	}
}

// WithData attaches arbitrary JSON-serialisable data.
func WithData(data any) SignalOption {
	return func(s *Signal) {
		s.Data = data
	}
}

// WithLink attaches a call-to-action link.
func WithLink(url, label string) SignalOption {
	return func(s *Signal) {
		s.Link = &Link{URL: url, Label: label}
	}
}

// WithMuted controls whether the host plays a notification sound.
// Signals are muted by default.
func WithMuted(muted bool) SignalOption {
	return func(s *Signal) {
		s.IsMuted = muted
	}
}

// WithOrigin sets the origin. The [Applet] overwrites it from its geometry
// when sending, so this only matters for signals sent with a bare [Client].
func WithOrigin(x, y int) SignalOption {
	return func(s *Signal) {
		s.Origin = Origin{X: x, Y: y}
	}
}

// WithErrors sets the error messages.
func WithErrors(errs ...string) SignalOption {
	return func(s *Signal) {
		s.Errors = errs
	}
}

// WithExtensionID sets the extension id. Like the origin, it is overwritten
// by the [Applet].
func WithExtensionID(id string) SignalOption {
	return func(s *Signal) {
		s.ExtensionID = id
	}
}
