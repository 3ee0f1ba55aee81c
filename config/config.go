// Package config loads and normalises applet configuration.
//
// The host process hands an applet its configuration either as a JSON
// command-line argument, a "DEV" literal, or a CONFIGURE message. Files in
// JSON, YAML or TOML are also accepted for local development:
//
//	extensionId: weather-1
//	storageLocation: /var/lib/qapplet/weather
//	geometry:
//	  width: 4
//	  height: 1
//	  origin: {x: 2, y: 3}
//	applet:
//	  defaults:
//	    units: metric
//	  user:
//	    city: ${CITY:-Lyon}
//
// [Normalize] turns a [Root] into an immutable [Snapshot]; every
// reconfiguration produces a new snapshot rather than mutating shared state.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultStorageLocation is used when the configuration names none.
const DefaultStorageLocation = "local-storage"

// ErrInvalid is wrapped by every configuration validation failure.
var ErrInvalid = errors.New("invalid configuration")

var validate = validator.New()

// Root is the configuration tree handed to an applet.
type Root struct {
	ExtensionID     string         `json:"extensionId,omitempty" yaml:"extensionId,omitempty" toml:"extensionId,omitempty"`
	Applet          *AppletConfig  `json:"applet,omitempty" yaml:"applet,omitempty" toml:"applet,omitempty"`
	Defaults        map[string]any `json:"defaults,omitempty" yaml:"defaults,omitempty" toml:"defaults,omitempty"`
	Geometry        *Geometry      `json:"geometry,omitempty" yaml:"geometry,omitempty" toml:"geometry,omitempty"`
	Authorization   *Authorization `json:"authorization,omitempty" yaml:"authorization,omitempty" toml:"authorization,omitempty"`
	StorageLocation string         `json:"storageLocation,omitempty" yaml:"storageLocation,omitempty" toml:"storageLocation,omitempty"`
	DevMode         bool           `json:"devMode,omitempty" yaml:"devMode,omitempty" toml:"devMode,omitempty"`
}

// AppletConfig holds the applet's own values. User values override defaults.
type AppletConfig struct {
	Defaults map[string]any `json:"defaults,omitempty" yaml:"defaults,omitempty" toml:"defaults,omitempty"`
	User     map[string]any `json:"user,omitempty" yaml:"user,omitempty" toml:"user,omitempty"`
}

// Geometry is the device region an applet may draw into.
type Geometry struct {
	Width    int               `json:"width" yaml:"width" toml:"width" validate:"min=1"`
	Height   int               `json:"height" yaml:"height" toml:"height" validate:"min=1"`
	Origin   *Origin           `json:"origin,omitempty" yaml:"origin,omitempty" toml:"origin,omitempty"`
	Defaults *GeometryDefaults `json:"defaults,omitempty" yaml:"defaults,omitempty" toml:"defaults,omitempty"`
}

// GeometryDefaults carries the fallback origin.
type GeometryDefaults struct {
	Origin *Origin `json:"origin,omitempty" yaml:"origin,omitempty" toml:"origin,omitempty"`
}

// Origin is an absolute device coordinate.
type Origin struct {
	X int `json:"x" yaml:"x" toml:"x"`
	Y int `json:"y" yaml:"y" toml:"y"`
}

// Authorization carries credentials supplied by the host.
type Authorization struct {
	APIKey   string `json:"apiKey,omitempty" yaml:"apiKey,omitempty" toml:"apiKey,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty" toml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty" toml:"password,omitempty"`
}

// Minimal returns a copy of root whose applet section and defaults are
// always present. A nil root yields an empty configuration.
func Minimal(root *Root) *Root {
	out := root.clone()
	if out.Applet == nil {
		out.Applet = &AppletConfig{}
	}
	if out.Applet.Defaults == nil {
		out.Applet.Defaults = map[string]any{}
	}
	if out.Applet.User == nil {
		out.Applet.User = map[string]any{}
	}
	if out.Defaults == nil {
		out.Defaults = map[string]any{}
	}
	return out
}

// MergeDeep merges sources into target and returns it. Nested maps merge
// recursively; any other value overwrites. Later sources win. A nil target
// is allocated.
func MergeDeep(target map[string]any, sources ...map[string]any) map[string]any {
	if target == nil {
		target = make(map[string]any)
	}
	for _, src := range sources {
		for k, v := range src {
			sub, ok := v.(map[string]any)
			if !ok {
				target[k] = cloneValue(v)
				continue
			}
			existing, ok := target[k].(map[string]any)
			if !ok {
				existing = make(map[string]any, len(sub))
			}
			target[k] = MergeDeep(existing, sub)
		}
	}
	return target
}

// Snapshot is a normalised, read-only view of a configuration. Getters
// return copies.
type Snapshot struct {
	root            *Root
	values          map[string]any
	geometry        Geometry
	authorization   Authorization
	storageLocation string
}

// Normalize validates root and derives a [Snapshot]: merged applet values,
// geometry (1x1 at {1,1} when absent), origin falling back to the geometry
// defaults then {0,0}, authorization and storage location.
func Normalize(root *Root) (*Snapshot, error) {
	r := Minimal(root)

	geom := Geometry{Width: 1, Height: 1, Origin: &Origin{X: 1, Y: 1}}
	if r.Geometry != nil {
		geom = *r.Geometry
	}
	switch {
	case geom.Origin != nil:
		o := *geom.Origin
		geom.Origin = &o
	case geom.Defaults != nil && geom.Defaults.Origin != nil:
		o := *geom.Defaults.Origin
		geom.Origin = &o
	default:
		geom.Origin = &Origin{}
	}
	geom.Defaults = nil

	if err := validate.Struct(geom); err != nil {
		return nil, fmt.Errorf("%w: geometry: %w", ErrInvalid, err)
	}

	s := &Snapshot{
		root:            r,
		values:          MergeDeep(nil, r.Applet.Defaults, r.Applet.User),
		geometry:        geom,
		storageLocation: r.StorageLocation,
	}
	if r.Authorization != nil {
		s.authorization = *r.Authorization
	}
	if s.storageLocation == "" {
		s.storageLocation = DefaultStorageLocation
	}
	return s, nil
}

// Root returns a copy of the minimal root configuration.
func (s *Snapshot) Root() *Root {
	return s.root.clone()
}

// ExtensionID returns the host-assigned extension id.
func (s *Snapshot) ExtensionID() string {
	return s.root.ExtensionID
}

// DevMode reports whether the applet runs outside a host.
func (s *Snapshot) DevMode() bool {
	return s.root.DevMode
}

// Values returns the merged applet values.
func (s *Snapshot) Values() map[string]any {
	return cloneMap(s.values)
}

// Geometry returns the resolved geometry. Origin is never nil.
func (s *Snapshot) Geometry() Geometry {
	g := s.geometry
	o := *g.Origin
	g.Origin = &o
	return g
}

// Authorization returns the configured credentials.
func (s *Snapshot) Authorization() Authorization {
	return s.authorization
}

// StorageLocation returns where the applet's store lives.
func (s *Snapshot) StorageLocation() string {
	return s.storageLocation
}

// Lookup walks the merged applet values using dot notation, for example
// "display.units".
func (s *Snapshot) Lookup(path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var current any = s.values
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return cloneValue(current), true
}

// String looks up path and returns it when it holds a string.
func (s *Snapshot) String(path string) (string, bool) {
	v, ok := s.Lookup(path)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

func (r *Root) clone() *Root {
	if r == nil {
		return &Root{}
	}
	out := *r
	if r.Applet != nil {
		out.Applet = &AppletConfig{
			Defaults: cloneMap(r.Applet.Defaults),
			User:     cloneMap(r.Applet.User),
		}
	}
	out.Defaults = cloneMap(r.Defaults)
	if r.Geometry != nil {
		g := *r.Geometry
		if g.Origin != nil {
			o := *g.Origin
			g.Origin = &o
		}
		if g.Defaults != nil {
			d := GeometryDefaults{}
			if g.Defaults.Origin != nil {
				o := *g.Defaults.Origin
				d.Origin = &o
			}
			g.Defaults = &d
		}
		out.Geometry = &g
	}
	if r.Authorization != nil {
		a := *r.Authorization
		out.Authorization = &a
	}
	return &out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}
