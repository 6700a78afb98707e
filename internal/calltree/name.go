package calltree

import "strings"

const (
	maxDisplayName  = 100
	displayPrefix   = 39
	displaySuffix   = 20
	displayEllipsis = "..."
)

// nameRewrites are applied in order. Later rules may match text produced by earlier ones.
var nameRewrites = []struct {
	old, new string
}{
	{" >", ">"},
	{"blink::", ""},
	{"EditingAlgorithm<NodeTraversal>", "EditingStrategy"},
	{"EditingAlgorithm<ComposedTreeTraversal>", "EditingInComposedTreeStrategy"},
	{"Algorithm<EditingStrategy>", ""},
	{"Algorithm<EditingInComposedTreeStrategy>", "InComposedTree"},
	{"Template<EditingStrategy>", ""},
	{"Template<EditingInComposedTreeStrategy>", "InComposedTree"},
}

// DisplayName converts a raw, possibly template-heavy function name into the
// form shown in graph labels. DisplayName(DisplayName(s)) == DisplayName(s).
func DisplayName(name string) string {
	// Every rewrite shortens the name, so this terminates.
	for {
		prev := name
		for _, rw := range nameRewrites {
			name = strings.ReplaceAll(name, rw.old, rw.new)
		}
		if name == prev {
			break
		}
	}
	if len(name) > maxDisplayName {
		name = name[:displayPrefix] + displayEllipsis + name[len(name)-displaySuffix:]
	}
	return name
}
