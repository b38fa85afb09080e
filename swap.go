package webcmp

// hostSelector targets the host element a served component is wrapped in.
const hostSelector = "closest [data-webcmp]"

// SwapMode defines how a served component's response replaces its host
// element. Each mode corresponds to an HTMX hx-swap value; Definition.Wire
// uses SwapOuter.
//
// See https://htmx.org/attributes/hx-swap/ for visual examples.
type SwapMode string

const (
	// SwapOuter replaces the host element, which the response re-creates
	// with the new state token.
	SwapOuter SwapMode = "outerHTML"

	// SwapInner nests the response inside the existing host element. The
	// outer host keeps the old token, so only use it for display-only
	// actions.
	SwapInner SwapMode = "innerHTML"

	// SwapDelete removes the host element once the action succeeds.
	// Response content is ignored.
	SwapDelete SwapMode = "delete"

	// SwapNone discards the response. The action still runs.
	SwapNone SwapMode = "none"
)
