package main

import (
	"fmt"

	"github.com/minimact/minimact-sub000/internal/vnode"
)

// counterState is the one piece of state the demo component exposes to the
// Core (spec §6.1: the host owns state and rendering, the Core only ever
// sees VNode trees and StateChange records).
type counterState struct {
	Count int
}

// render produces the counter's markup for the current count. It is the
// host's render() callback (spec §6.1) — deliberately trivial, since the
// point of this binary is to exercise the transport and the Engine, not to
// demonstrate a templating engine.
func render(s counterState) string {
	return fmt.Sprintf(
		`<div id="counter"><span id="count">Count: %d</span><button id="inc">+</button><button id="dec">-</button></div>`,
		s.Count,
	)
}

// renderTree renders s and parses the result into a VNode tree via
// vnode.FromHTML, mirroring how a host with no compiler-generated VDOM
// builder would bootstrap one from server-rendered HTML.
func renderTree(s counterState) (*vnode.VNode, error) {
	return vnode.FromHTML(render(s))
}
