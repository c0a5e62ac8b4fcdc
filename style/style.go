// Package style turns a map style document into a raster filter for
// rendered tiles. Raster tiles carry no feature layers, so only rules that
// target every feature change pixels; the rest are parsed and kept.
package style

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"
)

var ErrInvalid = errors.New("invalid style document")

// Rule is one entry of the style document.
type Rule struct {
	FeatureType string   `json:"featureType,omitempty"`
	ElementType string   `json:"elementType,omitempty"`
	Stylers     []Styler `json:"stylers"`
}

// Styler holds exactly one property.
type Styler struct {
	Hue             *color.RGBA
	Color           *color.RGBA
	Saturation      *float64
	Lightness       *float64
	Gamma           *float64
	InvertLightness *bool
	Visibility      string
	Weight          *float64
}

func (s *Styler) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("styler must have exactly one property, got %d", len(raw))
	}
	for key, val := range raw {
		switch key {
		case "hue", "color":
			var hex string
			if err := json.Unmarshal(val, &hex); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			c, err := parseHex(hex)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			if key == "hue" {
				s.Hue = &c
			} else {
				s.Color = &c
			}
		case "saturation", "lightness":
			v, err := number(val, -100, 100)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			if key == "saturation" {
				s.Saturation = &v
			} else {
				s.Lightness = &v
			}
		case "gamma":
			v, err := number(val, 0.01, 10)
			if err != nil {
				return fmt.Errorf("gamma: %w", err)
			}
			s.Gamma = &v
		case "weight":
			v, err := number(val, 0, math.MaxFloat64)
			if err != nil {
				return fmt.Errorf("weight: %w", err)
			}
			s.Weight = &v
		case "invert_lightness":
			var b bool
			if err := json.Unmarshal(val, &b); err != nil {
				return fmt.Errorf("invert_lightness: %w", err)
			}
			s.InvertLightness = &b
		case "visibility":
			if err := json.Unmarshal(val, &s.Visibility); err != nil {
				return fmt.Errorf("visibility: %w", err)
			}
			switch s.Visibility {
			case "on", "off", "simplified":
			default:
				return fmt.Errorf("visibility: unknown value %q", s.Visibility)
			}
		default:
			return fmt.Errorf("unknown styler %q", key)
		}
	}
	return nil
}

// Style is a parsed document and the filter derived from its global rules.
type Style struct {
	Rules  []Rule
	filter filter
}

type filter struct {
	hue        *color.RGBA
	saturation float64
	lightness  float64
	gamma      float64
	invert     bool
	hidden     bool
}

// Parse reads a style document. An empty array is a valid, neutral style.
func Parse(doc []byte) (*Style, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.DisallowUnknownFields()

	var rules []Rule
	if err := dec.Decode(&rules); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalid)
	}

	s := &Style{Rules: rules, filter: filter{gamma: 1}}
	for i, r := range rules {
		if r.Stylers == nil {
			return nil, fmt.Errorf("%w: rule %d has no stylers", ErrInvalid, i)
		}
		if !global(r) {
			continue
		}
		for _, st := range r.Stylers {
			s.filter.apply(st)
		}
	}
	return s, nil
}

func global(r Rule) bool {
	return (r.FeatureType == "" || r.FeatureType == "all") &&
		(r.ElementType == "" || r.ElementType == "all" || r.ElementType == "geometry")
}

func (f *filter) apply(st Styler) {
	switch {
	case st.Hue != nil:
		f.hue = st.Hue
	case st.Saturation != nil:
		f.saturation = *st.Saturation
	case st.Lightness != nil:
		f.lightness = *st.Lightness
	case st.Gamma != nil:
		f.gamma = *st.Gamma
	case st.InvertLightness != nil:
		f.invert = *st.InvertLightness
	case st.Visibility != "":
		f.hidden = st.Visibility == "off"
	}
}

// Identity reports whether Apply would return the image unchanged.
func (s *Style) Identity() bool {
	f := s.filter
	return f.hue == nil && f.saturation == 0 && f.lightness == 0 && f.gamma == 1 && !f.invert && !f.hidden
}

// Apply returns a filtered copy of img.
func (s *Style) Apply(img image.Image) image.Image {
	if s == nil || s.Identity() {
		return img
	}
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out.SetNRGBA(x, y, s.filter.pixel(c))
		}
	}
	return out
}

func (f filter) pixel(c color.NRGBA) color.NRGBA {
	if f.hidden {
		return color.NRGBA{R: 0xf2, G: 0xf2, B: 0xf2, A: c.A}
	}
	h, sat, l := rgbToHSL(c.R, c.G, c.B)
	if f.hue != nil {
		h, _, _ = rgbToHSL(f.hue.R, f.hue.G, f.hue.B)
	}
	if f.invert {
		l = 1 - l
	}
	sat = clamp01(sat * (1 + f.saturation/100))
	if f.lightness > 0 {
		l += (1 - l) * f.lightness / 100
	} else {
		l += l * f.lightness / 100
	}
	l = math.Pow(clamp01(l), 1/f.gamma)
	r, g, b := hslToRGB(h, sat, l)
	return color.NRGBA{R: r, G: g, B: b, A: c.A}
}

func parseHex(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("bad colour %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("bad colour %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

func number(raw json.RawMessage, lo, hi float64) (float64, error) {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%v out of range [%v, %v]", v, lo, hi)
	}
	return v, nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func rgbToHSL(r8, g8, b8 uint8) (h, s, l float64) {
	r, g, b := float64(r8)/255, float64(g8)/255, float64(b8)/255
	mx := math.Max(r, math.Max(g, b))
	mn := math.Min(r, math.Min(g, b))
	l = (mx + mn) / 2
	if mx == mn {
		return 0, 0, l
	}
	d := mx - mn
	if l > 0.5 {
		s = d / (2 - mx - mn)
	} else {
		s = d / (mx + mn)
	}
	switch mx {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	return h / 6, s, l
}

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	if s == 0 {
		v := uint8(math.Round(l * 255))
		return v, v, v
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	conv := func(t float64) uint8 {
		if t < 0 {
			t++
		}
		if t > 1 {
			t--
		}
		var v float64
		switch {
		case t < 1.0/6:
			v = p + (q-p)*6*t
		case t < 0.5:
			v = q
		case t < 2.0/3:
			v = p + (q-p)*(2.0/3-t)*6
		default:
			v = p
		}
		return uint8(math.Round(clamp01(v) * 255))
	}
	return conv(h + 1.0/3), conv(h), conv(h - 1.0/3)
}
