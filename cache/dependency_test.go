package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-cache/types"
)

func TestDependencyGraph(t *testing.T) {
	t.Parallel()

	t.Run("tracks both directions", func(t *testing.T) {
		t.Parallel()

		graph := newDependencyGraph()
		graph.add("report", []string{"cfg:a", "dataset:v1"})
		graph.add("summary", []string{"cfg:a"})

		require.ElementsMatch(t, []string{"cfg:a", "dataset:v1"}, graph.tagsOf("report"))
		require.ElementsMatch(t, []string{"report", "summary"}, graph.dependentsOf("cfg:a"))
		require.Equal(t, 2, graph.len())
	})

	t.Run("untagged keys are not tracked", func(t *testing.T) {
		t.Parallel()

		graph := newDependencyGraph()
		graph.add("plain", nil)
		require.Equal(t, 0, graph.len())
	})

	t.Run("remove drops the reverse index too", func(t *testing.T) {
		t.Parallel()

		graph := newDependencyGraph()
		graph.add("report", []string{"cfg:a"})
		graph.remove("report")

		require.Empty(t, graph.dependentsOf("cfg:a"))
		require.Equal(t, 0, graph.len())
	})

	t.Run("stored tags are a copy", func(t *testing.T) {
		t.Parallel()

		tags := []string{"cfg:a"}
		graph := newDependencyGraph()
		graph.add("report", tags)

		tags[0] = "mutated"
		require.Equal(t, []string{"cfg:a"}, graph.tagsOf("report"))
	})

	t.Run("match applies tag selectors only", func(t *testing.T) {
		t.Parallel()

		graph := newDependencyGraph()
		graph.add("report", []string{"cfg:a"})
		graph.add("summary", []string{"dataset:v1"})

		require.ElementsMatch(t, []string{"report"}, graph.match(types.PatternSubstring("cfg:")))
		require.Empty(t, graph.match(types.PatternKeys("report")))
	})
}
