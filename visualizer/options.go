package visualizer

// Options configures the visualization output.
type Options struct {
	// ShowActions appends action names to edge labels.
	ShowActions bool

	// ShowGuards labels guarded edges with the guard and its evaluation order.
	ShowGuards bool

	// Direction controls diagram flow: "TB" (top-bottom) or "LR" (left-right).
	Direction string

	// HighlightPath highlights the listed states.
	HighlightPath []string

	// Fenced wraps Mermaid output in a markdown code fence.
	Fenced bool
}

// DefaultOptions returns sensible defaults for visualization.
func DefaultOptions() Options {
	return Options{
		ShowActions: true,
		ShowGuards:  true,
		Direction:   "TB",
	}
}

// WithShowActions enables/disables action names.
func (o Options) WithShowActions(show bool) Options {
	o.ShowActions = show

	return o
}

// WithShowGuards enables/disables guard labels.
func (o Options) WithShowGuards(show bool) Options {
	o.ShowGuards = show

	return o
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

// WithHighlightPath sets states to highlight.
func (o Options) WithHighlightPath(path []string) Options {
	o.HighlightPath = path

	return o
}

// WithFenced enables/disables the markdown fence around Mermaid output.
func (o Options) WithFenced(fenced bool) Options {
	o.Fenced = fenced

	return o
}

func (o Options) direction() string {
	switch o.Direction {
	case "LR", "RL", "BT":
		return o.Direction
	default:
		return "TB"
	}
}
