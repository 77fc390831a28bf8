package content

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"

	"gorm.io/datatypes"

	types "github.com/yungbote/microlearn-backend/internal/domain"
)

var citationMarker = regexp.MustCompile(`\[(\d+)\]`)

// UsedMarkers returns the distinct marker numbers in text, ascending.
func UsedMarkers(text string) []int {
	seen := map[int]bool{}
	out := []int{}
	for _, m := range citationMarker.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// ReconcileCitations keeps only the markers the text actually uses.
// Markers are 1-based in text, sources are 0-based; this is the only place that shift happens.
// Every in-range marker is kept, even when its source has no URL.
// The result is nil, never empty, when nothing usable is cited.
func ReconcileCitations(text string, sources []types.ResearchCitation) map[int]string {
	if len(sources) == 0 || text == "" {
		return nil
	}
	var out map[int]string
	for _, n := range UsedMarkers(text) {
		idx := n - 1
		if idx < 0 || idx >= len(sources) {
			continue
		}
		if out == nil {
			out = map[int]string{}
		}
		out[n] = sources[idx].URL
	}
	return out
}

// EncodeCitationMap stores the map as {"1":"https://..."}; nil stays NULL.
func EncodeCitationMap(m map[int]string) datatypes.JSON {
	if len(m) == 0 {
		return nil
	}
	raw := make(map[string]string, len(m))
	for k, v := range m {
		raw[strconv.Itoa(k)] = v
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
