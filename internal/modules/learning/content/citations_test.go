package content

import (
	"testing"

	"github.com/stretchr/testify/assert"

	types "github.com/yungbote/microlearn-backend/internal/domain"
)

func sources(urls ...string) []types.ResearchCitation {
	out := make([]types.ResearchCitation, 0, len(urls))
	for i, u := range urls {
		out = append(out, types.ResearchCitation{Index: i + 1, URL: u})
	}
	return out
}

func TestReconcileCitations(t *testing.T) {
	src := sources("https://a.example", "https://b.example", "https://c.example")

	cases := []struct {
		name string
		text string
		src  []types.ResearchCitation
		want map[int]string
	}{
		{"uses subset", "Robins sing at dawn [1]. Jays cache food [3][3].", src, map[int]string{1: "https://a.example", 3: "https://c.example"}},
		{"drops out of range", "See [0], [4] and [2].", src, map[int]string{2: "https://b.example"}},
		{"no markers", "Plain prose with [brackets] but no numbers.", src, nil},
		{"only invalid markers", "[7] [12]", src, nil},
		{"no research", "Cited [1].", nil, nil},
		{"source without url", "Owls hunt at night [2].", sources("https://a.example", ""), map[int]string{2: ""}},
		{"huge marker", "[99999999999999999999999] then [1]", src, map[int]string{1: "https://a.example"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ReconcileCitations(tc.text, tc.src))
		})
	}
}

// Every mapped marker is in range, and every in-range marker in the text is mapped.
func TestReconcileCitationsSoundness(t *testing.T) {
	src := sources("u1", "u2", "u3", "u4")
	texts := []string{
		"[1][2][3][4][5]",
		"[4] [10] [2] [02]",
		"no citations",
		"[3]",
	}
	for _, text := range texts {
		got := ReconcileCitations(text, src)
		for marker := range got {
			assert.GreaterOrEqual(t, marker, 1)
			assert.LessOrEqual(t, marker, len(src))
		}
		for _, n := range UsedMarkers(text) {
			if n >= 1 && n <= len(src) {
				assert.Equal(t, src[n-1].URL, got[n], "text=%q marker=%d", text, n)
			}
		}
	}
}

func TestEncodeCitationMap(t *testing.T) {
	assert.Nil(t, EncodeCitationMap(nil))
	assert.Nil(t, EncodeCitationMap(map[int]string{}))
	assert.JSONEq(t, `{"2":"https://b.example"}`, string(EncodeCitationMap(map[int]string{2: "https://b.example"})))
}
