// Package host is the single screen: a toolbar, one content region and
// the back stack behind it.
package host

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"gioui.org/io/key"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"github.com/olablt/wander/permission"
	"github.com/olablt/wander/surface"
)

const DefaultMaxDepth = 8

var ErrStackFull = errors.New("navigation stack full")

// MenuItem is one toolbar choice.
type MenuItem struct {
	ID    string
	Label string
}

type Options struct {
	Title    string
	MaxDepth int
	Theme    *material.Theme
	Prompt   *permission.PromptHost
	Logger   *slog.Logger
}

type ViewHost struct {
	stack    []surface.Content
	maxDepth int
	items    []MenuItem
	buttons  []widget.Clickable

	onSelect func(id string) bool
	onBack   func()

	title  string
	theme  *material.Theme
	prompt *permission.PromptHost
	logger *slog.Logger
}

func New(root surface.Content, items []MenuItem, opts Options) *ViewHost {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &ViewHost{
		stack:    []surface.Content{root},
		maxDepth: opts.MaxDepth,
		items:    items,
		buttons:  make([]widget.Clickable, len(items)),
		title:    opts.Title,
		theme:    opts.Theme,
		prompt:   opts.Prompt,
		logger:   opts.Logger,
	}
}

// SetSelectionHandler installs the toolbar handler. It returns true when
// it consumed the selection.
func (h *ViewHost) SetSelectionHandler(fn func(id string) bool) {
	h.onSelect = fn
}

// SetBackHandler installs a function called after a surface is popped.
func (h *ViewHost) SetBackHandler(fn func()) {
	h.onBack = fn
}

// Push shows c, keeping the current surface on the back stack.
func (h *ViewHost) Push(c surface.Content) error {
	if len(h.stack) >= h.maxDepth {
		return fmt.Errorf("%w: depth %d", ErrStackFull, len(h.stack))
	}
	h.stack = append(h.stack, c)
	return nil
}

// Back pops the top surface. The root is never popped.
func (h *ViewHost) Back() bool {
	if len(h.stack) <= 1 {
		return false
	}
	top := h.stack[len(h.stack)-1]
	h.stack[len(h.stack)-1] = nil
	h.stack = h.stack[:len(h.stack)-1]
	if p, ok := top.(surface.Panorama); ok {
		p.Release()
	}
	if h.onBack != nil {
		h.onBack()
	}
	return true
}

func (h *ViewHost) Top() surface.Content {
	return h.stack[len(h.stack)-1]
}

func (h *ViewHost) Depth() int {
	return len(h.stack)
}

// Select dispatches a toolbar choice, falling back to default handling
// when the handler does not take it.
func (h *ViewHost) Select(id string) bool {
	if h.onSelect != nil && h.onSelect(id) {
		return true
	}
	h.logger.Debug("menu item not handled", "id", id)
	return false
}

// Close releases every surface above the root.
func (h *ViewHost) Close() {
	for len(h.stack) > 1 {
		top := h.stack[len(h.stack)-1]
		h.stack = h.stack[:len(h.stack)-1]
		if p, ok := top.(surface.Panorama); ok {
			p.Release()
		}
	}
}

func (h *ViewHost) Layout(gtx layout.Context) layout.Dimensions {
	for {
		ev, ok := gtx.Event(
			key.Filter{Name: key.NameBack},
			key.Filter{Name: key.NameEscape},
		)
		if !ok {
			break
		}
		if e, ok := ev.(key.Event); ok && e.State == key.Press {
			if h.prompt != nil && h.prompt.Active() {
				continue
			}
			h.Back()
		}
	}
	for i := range h.buttons {
		if h.buttons[i].Clicked(gtx) {
			h.Select(h.items[i].ID)
		}
	}

	return layout.Stack{}.Layout(gtx,
		layout.Expanded(func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
				layout.Rigid(h.layoutToolbar),
				layout.Flexed(1, h.Top().Layout),
			)
		}),
		layout.Expanded(func(gtx layout.Context) layout.Dimensions {
			if h.prompt == nil || h.theme == nil {
				return layout.Dimensions{}
			}
			return h.prompt.Layout(gtx, h.theme)
		}),
	)
}

var toolbarColor = color.NRGBA{R: 0x00, G: 0x57, B: 0x9c, A: 0xff}

func (h *ViewHost) layoutToolbar(gtx layout.Context) layout.Dimensions {
	if h.theme == nil {
		return layout.Dimensions{}
	}
	return layout.Stack{}.Layout(gtx,
		layout.Expanded(func(gtx layout.Context) layout.Dimensions {
			paint.FillShape(gtx.Ops, toolbarColor, clip.Rect{Max: gtx.Constraints.Min}.Op())
			return layout.Dimensions{Size: gtx.Constraints.Min}
		}),
		layout.Stacked(func(gtx layout.Context) layout.Dimensions {
			gtx.Constraints.Min.X = gtx.Constraints.Max.X
			return layout.UniformInset(unit.Dp(6)).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				children := make([]layout.FlexChild, 0, len(h.items)+2)
				children = append(children, layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					lbl := material.H6(h.theme, h.title)
					lbl.Color = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
					return layout.Inset{Left: unit.Dp(8), Right: unit.Dp(8)}.Layout(gtx, lbl.Layout)
				}))
				children = append(children, layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
					return layout.Dimensions{Size: image.Pt(gtx.Constraints.Min.X, 0)}
				}))
				for i := range h.items {
					i := i
					children = append(children, layout.Rigid(func(gtx layout.Context) layout.Dimensions {
						btn := material.Button(h.theme, &h.buttons[i], h.items[i].Label)
						btn.Background = toolbarColor
						btn.TextSize = unit.Sp(13)
						return layout.Inset{Left: unit.Dp(2)}.Layout(gtx, btn.Layout)
					}))
				}
				return layout.Flex{Alignment: layout.Middle}.Layout(gtx, children...)
			})
		}),
	)
}
