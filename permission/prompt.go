package permission

import (
	"image"
	"image/color"

	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
)

// Labels is the text shown by the prompt.
type Labels struct {
	Message string
	Allow   string
	Deny    string
}

type request struct {
	capability Capability
	code       int
}

// PromptHost is the desktop permission host. A preset answers every
// request without asking; otherwise an Allow/Deny card is drawn over the
// window until the user picks one.
type PromptHost struct {
	preset   State
	answers  map[Capability]State
	post     func(func())
	onResult func(code int, granted bool)
	active   *request

	labels Labels
	allow  widget.Clickable
	deny   widget.Clickable
}

// NewPromptHost delivers results through post, which must run the
// function on the UI goroutine after the current event returns.
func NewPromptHost(preset State, post func(func()), labels Labels) *PromptHost {
	return &PromptHost{
		preset:  preset,
		answers: make(map[Capability]State),
		post:    post,
		labels:  labels,
	}
}

// SetResultHandler wires the grant-result callback, normally Gate.OnResult.
func (h *PromptHost) SetResultHandler(fn func(code int, granted bool)) {
	h.onResult = fn
}

func (h *PromptHost) Check(c Capability) State {
	if h.preset != Unknown {
		return h.preset
	}
	return h.answers[c]
}

func (h *PromptHost) Request(c Capability, code int) {
	if h.preset != Unknown {
		h.deliver(code, h.preset == Granted)
		return
	}
	h.active = &request{capability: c, code: code}
}

// Active reports whether a prompt is on screen.
func (h *PromptHost) Active() bool {
	return h.active != nil
}

// Answer resolves the visible prompt as if the user had clicked.
func (h *PromptHost) Answer(granted bool) {
	if h.active == nil {
		return
	}
	req := h.active
	h.active = nil
	if granted {
		h.answers[req.capability] = Granted
	} else {
		h.answers[req.capability] = Denied
	}
	h.deliver(req.code, granted)
}

func (h *PromptHost) deliver(code int, granted bool) {
	h.post(func() {
		if h.onResult != nil {
			h.onResult(code, granted)
		}
	})
}

// Layout draws the prompt card over a scrim. It draws nothing when no
// request is pending.
func (h *PromptHost) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	if h.active == nil {
		return layout.Dimensions{}
	}
	if h.allow.Clicked(gtx) {
		h.Answer(true)
		return layout.Dimensions{Size: gtx.Constraints.Max}
	}
	if h.deny.Clicked(gtx) {
		h.Answer(false)
		return layout.Dimensions{Size: gtx.Constraints.Max}
	}

	paint.FillShape(gtx.Ops, color.NRGBA{A: 0x88}, clip.Rect{Max: gtx.Constraints.Max}.Op())

	return layout.Center.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		gtx.Constraints.Max.X = min(gtx.Constraints.Max.X, gtx.Dp(unit.Dp(320)))
		gtx.Constraints.Min = image.Point{}
		return card(gtx, func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
				layout.Rigid(material.Body1(th, h.labels.Message).Layout),
				layout.Rigid(layout.Spacer{Height: unit.Dp(16)}.Layout),
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					return layout.Flex{Spacing: layout.SpaceStart}.Layout(gtx,
						layout.Rigid(material.Button(th, &h.deny, h.labels.Deny).Layout),
						layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
						layout.Rigid(material.Button(th, &h.allow, h.labels.Allow).Layout),
					)
				}),
			)
		})
	})
}

func card(gtx layout.Context, w layout.Widget) layout.Dimensions {
	return layout.Stack{}.Layout(gtx,
		layout.Expanded(func(gtx layout.Context) layout.Dimensions {
			rr := gtx.Dp(unit.Dp(8))
			paint.FillShape(gtx.Ops, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
				clip.UniformRRect(image.Rectangle{Max: gtx.Constraints.Min}, rr).Op(gtx.Ops))
			return layout.Dimensions{Size: gtx.Constraints.Min}
		}),
		layout.Stacked(func(gtx layout.Context) layout.Dimensions {
			return layout.UniformInset(unit.Dp(16)).Layout(gtx, w)
		}),
	)
}
