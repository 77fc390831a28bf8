package outline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/microlearn-backend/internal/platform/apierr"
)

func sessions(n int) []Session {
	out := make([]Session, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, Session{SessionNumber: i, Title: fmt.Sprintf("S%d", i)})
	}
	return out
}

func TestValidateForBuild(t *testing.T) {
	ok := Outline{
		Title:       " Bird Watching Basics ",
		Description: "...",
		Sessions: []Session{
			{SessionNumber: 2, Title: "Common Species"},
			{SessionNumber: 1, Title: "Getting Started"},
		},
	}
	got, err := ValidateForBuild(ok)
	require.NoError(t, err)
	assert.Equal(t, "Bird Watching Basics", got.Title)
	assert.Equal(t, []Session{
		{SessionNumber: 1, Title: "Getting Started"},
		{SessionNumber: 2, Title: "Common Species"},
	}, got.Sessions)
	assert.Equal(t, 2, ok.Sessions[0].SessionNumber, "input is not mutated")
}

func TestValidateForBuildRejects(t *testing.T) {
	cases := map[string]Outline{
		"no title":        {Title: " ", Sessions: sessions(2)},
		"no sessions":     {Title: "T"},
		"too many":        {Title: "T", Sessions: sessions(21)},
		"blank session":   {Title: "T", Sessions: []Session{{SessionNumber: 1, Title: "  "}}},
		"zero number":     {Title: "T", Sessions: []Session{{SessionNumber: 0, Title: "A"}}},
		"negative number": {Title: "T", Sessions: []Session{{SessionNumber: -1, Title: "A"}}},
		"duplicate":       {Title: "T", Sessions: []Session{{SessionNumber: 1, Title: "A"}, {SessionNumber: 1, Title: "B"}}},
	}
	for name, o := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ValidateForBuild(o)
			require.Error(t, err)
			assert.ErrorIs(t, err, apierr.ErrValidation)
		})
	}
}

func TestValidateForBuildBounds(t *testing.T) {
	_, err := ValidateForBuild(Outline{Title: "T", Sessions: sessions(1)})
	assert.NoError(t, err)
	_, err = ValidateForBuild(Outline{Title: "T", Sessions: sessions(20)})
	assert.NoError(t, err)
}

func TestNormalizeGapsAndUnnumbered(t *testing.T) {
	got := Normalize(Outline{Sessions: []Session{
		{SessionNumber: 0, Title: "x"},
		{SessionNumber: 9, Title: "c"},
		{SessionNumber: 3, Title: "a"},
	}})
	assert.Equal(t, []Session{
		{SessionNumber: 1, Title: "a"},
		{SessionNumber: 2, Title: "c"},
		{SessionNumber: 3, Title: "x"},
	}, got.Sessions)
}
