package visualizer

import (
	"context"
	"strings"
	"testing"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderTable() fsm.Table {
	return fsm.Table{
		Name:   "orders",
		States: []string{"open", "paid", "shipped", "cancelled"},
		Inputs: []string{"pay", "ship", "cancel"},
		Rows: []fsm.Row{
			{From: "open", Input: "pay", To: "paid", Guard: "in-stock", Order: 0},
			{From: "open", Input: "pay", To: "cancelled", Guard: "otherwise", Order: 1},
			{From: "paid", Input: "ship", To: "shipped", Action: "notify"},
			{From: "open", To: "cancelled", Action: "refund", Default: true},
		},
	}
}

func TestGenerateMermaid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		opts        Options
		wantContain []string
		wantMissing []string
	}{
		{
			name: "defaults",
			opts: DefaultOptions(),
			wantContain: []string{
				"stateDiagram-v2\n",
				"direction TB",
				"[*] --> open",
				"open --> paid: pay [in-stock] #1",
				"open --> cancelled: pay [otherwise] #2",
				"paid --> shipped: ship / notify",
				"open --> cancelled: default / refund",
				"shipped --> [*]",
				"cancelled --> [*]",
			},
			wantMissing: []string{"```", "open --> [*]", "classDef"},
		},
		{
			name: "bare labels",
			opts: DefaultOptions().WithShowGuards(false).WithShowActions(false).WithDirection("LR"),
			wantContain: []string{
				"direction LR",
				"open --> paid: pay\n",
				"paid --> shipped: ship\n",
				"open --> cancelled: default\n",
			},
			wantMissing: []string{"in-stock", "notify", "refund"},
		},
		{
			name: "highlight and fence",
			opts: DefaultOptions().WithHighlightPath([]string{"open", "paid", "nowhere"}).WithFenced(true),
			wantContain: []string{
				"```mermaid\n",
				"classDef highlighted",
				"class open highlighted",
				"class paid highlighted",
			},
			wantMissing: []string{"class nowhere", "class shipped"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := GenerateMermaidWithOptions(orderTable(), "open", tt.opts)
			require.NoError(t, err)

			for _, want := range tt.wantContain {
				assert.Contains(t, out, want)
			}

			for _, missing := range tt.wantMissing {
				assert.NotContains(t, out, missing)
			}
		})
	}
}

func TestGenerateMermaidAliasesNames(t *testing.T) {
	t.Parallel()

	table := fsm.Table{
		States: []string{"waiting room", "2fa"},
		Rows:   []fsm.Row{{From: "waiting room", Input: "go", To: "2fa"}},
	}

	out, err := GenerateMermaid(table, "waiting room")
	require.NoError(t, err)

	assert.Contains(t, out, `state "waiting room" as waiting_room`)
	assert.Contains(t, out, `state "2fa" as _2fa`)
	assert.Contains(t, out, "waiting_room --> _2fa: go")
}

func TestGenerateDOT(t *testing.T) {
	t.Parallel()

	out, err := GenerateDOT(orderTable(), "open")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, `digraph "orders" {`))
	assert.Contains(t, out, "rankdir=TB;")
	assert.Contains(t, out, `__start -> "open";`)
	assert.Contains(t, out, `"open" -> "paid" [label="pay [in-stock] #1"];`)
	assert.Contains(t, out, `"open" -> "cancelled" [label="default / refund", style=dashed];`)
	assert.Contains(t, out, `"shipped" [shape=doublecircle];`)
	assert.True(t, strings.HasSuffix(out, "}\n"))
}

func TestInitialStateErrors(t *testing.T) {
	t.Parallel()

	_, err := GenerateMermaid(orderTable(), "")
	require.ErrorIs(t, err, ErrNoInitialState)

	_, err = GenerateDOT(orderTable(), "limbo")
	require.ErrorIs(t, err, ErrUnknownInitial)
}

func TestRender(t *testing.T) {
	t.Parallel()

	out, err := Render("DOT", orderTable(), "open", DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, out, "digraph")

	out, err = Render("", orderTable(), "open", DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, out, "stateDiagram-v2")

	_, err = Render("svg", orderTable(), "open", DefaultOptions())
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestRenderEngineTable(t *testing.T) {
	t.Parallel()

	idle := fsm.NewState("idle")
	busy := fsm.NewState("busy")
	work := fsm.NewInput("work")

	engine := fsm.NewStateEngine[struct{}](fsm.WithName("worker"), fsm.WithMetrics(false))
	engine.
		AddGuarded(idle, fsm.NamedGuard("ready", fsm.BoolGuard(
			func(context.Context, *fsm.FSM[struct{}], *fsm.Input) bool { return true })), work, nil, busy).
		SetDefault(busy, nil, idle)
	require.NoError(t, engine.Done())

	out, err := GenerateMermaid(engine.Table(), "idle")
	require.NoError(t, err)

	assert.Contains(t, out, "idle --> busy: work [ready] #1")
	assert.Contains(t, out, "busy --> idle: default")
}
