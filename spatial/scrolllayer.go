package spatial

import "fmt"

// ScrollLayerId identifies a scroll layer. There is exactly one process-wide
// Fixed layer (for `position: fixed` content, which never scrolls) and any
// number of Normal layers, each carrying a caller-assigned id.
//
// This mirrors the closed union `ScrollLayerId (Fixed | Normal(u32))` called
// for in the design notes: Go has no sum types, so the idiomatic rendering
// (matching gogpu/gg's LayerKind-style "kind byte + payload" structs, e.g.
// scene.LayerKind) is a tagged struct with an exhaustive-switch String/Is*
// helper set rather than an interface, since every caller needs to compare
// ids by value and use them as map keys.
type ScrollLayerId struct {
	fixed bool
	value uint32
}

// FixedLayer is the single process-unique layer for non-scrolling content.
func FixedLayer() ScrollLayerId { return ScrollLayerId{fixed: true} }

// NormalLayer wraps a caller-assigned scroll layer id.
func NormalLayer(id uint32) ScrollLayerId { return ScrollLayerId{value: id} }

// IsFixed reports whether this is the fixed layer.
func (s ScrollLayerId) IsFixed() bool { return s.fixed }

// Value returns the underlying id for a Normal layer. Calling it on the
// Fixed layer returns 0; check IsFixed first.
func (s ScrollLayerId) Value() uint32 { return s.value }

// String renders the id for logs and test failure messages.
func (s ScrollLayerId) String() string {
	if s.fixed {
		return "Fixed"
	}
	return fmt.Sprintf("Normal(%d)", s.value)
}
