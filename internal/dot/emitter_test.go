package dot_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calltree2dot/internal/calltree"
	"calltree2dot/internal/dot"
	"calltree2dot/internal/policy"
)

func testPolicy() *policy.Policy {
	return policy.New([]string{"app.dll"}, nil, nil)
}

func TestHeaderEmitsRootFirst(t *testing.T) {
	var buf bytes.Buffer
	e := dot.NewEmitter(&buf, testPolicy())
	root := calltree.Root()
	e.Header(root)
	e.Node(root)
	require.NoError(t, e.Footer())

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "digraph callTree {\n"))
	assert.True(t, strings.HasSuffix(out, "}\n"))
	assert.Equal(t, 1, strings.Count(out, "entry0 ["))
	assert.Contains(t, out, `entry0 [label="level -1\n\nroot\n\ninclusive count: 1 100%\nexclusive count: 1 100%" fillcolor=white]`)
	assert.Equal(t, 1, e.Nodes())
}

func TestNodeStyle(t *testing.T) {
	for _, test := range []struct {
		name     string
		entry    calltree.Entry
		contains []string
		excludes []string
	}{{
		name:     "uninteresting",
		entry:    calltree.Entry{ID: 1, Module: "other.dll", InclusivePercent: 50, InclusiveCount: 1},
		contains: []string{"fillcolor=white]"},
		excludes: []string{"#FF1744", "penwidth"},
	}, {
		name:     "hot",
		entry:    calltree.Entry{ID: 1, Module: "app.dll", InclusivePercent: 5.5, InclusiveCount: 1},
		contains: []string{`fontcolor=white fillcolor="#FF1744"`},
		excludes: []string{"penwidth"},
	}, {
		name:     "warm",
		entry:    calltree.Entry{ID: 1, Module: "app.dll", InclusivePercent: 5, InclusiveCount: 1},
		contains: []string{`fillcolor="#FFEB3B"`},
	}, {
		name:     "cool",
		entry:    calltree.Entry{ID: 1, Module: "app.dll", InclusivePercent: 1.5, InclusiveCount: 1},
		contains: []string{`fillcolor="#42A5F5"`},
	}, {
		name:     "cold interesting",
		entry:    calltree.Entry{ID: 1, Module: "app.dll", InclusivePercent: 1, InclusiveCount: 1},
		contains: []string{`%"]`},
		excludes: []string{"fillcolor"},
	}, {
		name:     "sampled",
		entry:    calltree.Entry{ID: 1, Module: "other.dll", InclusivePercent: 0.1, InclusiveCount: 2},
		contains: []string{`fillcolor=white color="#00E676" penwidth=2]`},
	}, {
		name:     "hot and sampled",
		entry:    calltree.Entry{ID: 1, Module: "app.dll", InclusivePercent: 80, InclusiveCount: 200},
		contains: []string{`fontcolor=white fillcolor="#FF1744" color="#00E676" penwidth=2]`},
	}} {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			e := dot.NewEmitter(&buf, testPolicy())
			e.Node(&test.entry)
			require.NoError(t, e.Footer())

			for _, s := range test.contains {
				assert.Contains(t, buf.String(), s)
			}
			for _, s := range test.excludes {
				assert.NotContains(t, buf.String(), s)
			}
		})
	}
}

func TestNodeAndEdgeDeduplication(t *testing.T) {
	var buf bytes.Buffer
	e := dot.NewEmitter(&buf, testPolicy())

	a := &calltree.Entry{ID: 1, Name: "a", Module: "app.dll"}
	b := &calltree.Entry{ID: 2, Name: "b", Module: "app.dll"}
	for i := 0; i < 3; i++ {
		e.Node(a)
		e.Node(b)
		e.Edge(a, b)
	}
	e.Edge(b, a)
	require.NoError(t, e.Footer())

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "entry1 ["))
	assert.Equal(t, 1, strings.Count(out, "entry2 ["))
	assert.Equal(t, 1, strings.Count(out, "entry1 -> entry2\n"))
	assert.Equal(t, 1, strings.Count(out, "entry2 -> entry1\n"))
	assert.Equal(t, 2, e.Nodes())
	assert.Equal(t, 2, e.Edges())
}

func TestLabel(t *testing.T) {
	entry := &calltree.Entry{
		Level:            3,
		Name:             `blink::Vector<blink::Member<Node> >::at "x"`,
		InclusiveCount:   1234,
		ExclusiveCount:   5,
		InclusivePercent: 12.5,
		ExclusivePercent: 0.25,
	}
	assert.Equal(t,
		`level 3\n\nVector&lt;Member&lt;Node&gt;&gt;::at \"x\"\n\ninclusive count: 1234 12.5%\nexclusive count: 5 0.25%`,
		dot.Label(entry),
	)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestFooterReportsWriteError(t *testing.T) {
	e := dot.NewEmitter(failingWriter{}, testPolicy())
	e.Header(calltree.Root())
	require.ErrorContains(t, e.Footer(), "disk full")
}
