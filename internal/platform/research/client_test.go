package research

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/microlearn-backend/internal/domain"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

func TestResearch(t *testing.T) {
	var req chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices":[{"message":{"role":"assistant","content":"  Birds are dinosaurs.  "}}],
			"search_results":[
				{"title":"Audubon","url":"https://www.audubon.org/a","snippet":"s"},
				{"title":"Dup","url":"https://www.audubon.org/a"},
				{"title":"Cornell","url":"https://allaboutbirds.org/b"}
			],
			"usage":{"total_tokens":1234}
		}`))
	}))
	defer srv.Close()

	c, err := NewClient(logger.Nop(), Config{APIKey: "key", BaseURL: srv.URL, Model: "m"})
	require.NoError(t, err)

	res, err := c.Research(context.Background(), "bird watching", "1. Getting Started")
	require.NoError(t, err)
	assert.Equal(t, "Birds are dinosaurs.", res.Content)
	assert.Equal(t, 1234, res.TokenCount)
	require.Len(t, res.Citations, 2)
	assert.Equal(t, types.ResearchCitation{Index: 1, Title: "Audubon", URL: "https://www.audubon.org/a", Domain: "audubon.org", Snippet: "s"}, res.Citations[0])
	assert.Equal(t, 2, res.Citations[1].Index)
	assert.Equal(t, "m", req.Model)
	assert.Contains(t, req.Messages[1].Content, "bird watching")
}

func TestResearchFallsBackToCitationURLs(t *testing.T) {
	out := chatResponse{Citations: []string{"https://a.example/x", "", "https://b.example/y"}}
	list := buildCitations(out)
	require.Len(t, list, 2)
	assert.Equal(t, "a.example", list[0].Domain)
	assert.Equal(t, 2, list[1].Index)
}

func TestResearchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer srv.Close()

	c, err := NewClient(logger.Nop(), Config{APIKey: "key", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = c.Research(context.Background(), "x", "")
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusTooManyRequests, httpErr.HTTPStatusCode())
}

func TestResearchHonorsContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, err := NewClient(logger.Nop(), Config{APIKey: "key", BaseURL: srv.URL})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Research(ctx, "x", "")
	assert.Error(t, err)
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.0, Confidence(nil))

	one := []types.ResearchCitation{{URL: "https://a.example/1"}}
	assert.Equal(t, 0.14, Confidence(one))

	var many []types.ResearchCitation
	for _, host := range []string{"a", "b", "c", "d", "e", "f", "a", "b", "c", "d", "e", "f"} {
		many = append(many, types.ResearchCitation{URL: "https://" + host + ".example/x"})
	}
	assert.Equal(t, 1.0, Confidence(many))
}
