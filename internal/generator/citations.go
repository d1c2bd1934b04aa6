package generator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hmorsi/coursewright/internal/retrieval"
)

// Citation records one source reference found in generated content.
type Citation struct {
	SourceID     string `json:"source_id"`
	CitationText string `json:"citation_text"`
	Position     int    `json:"position"`
}

// attributeSources scans content for the [n] reference markers the prompts
// ask for and maps them back to the retrieved contexts. Citations and used
// sources come back ordered by where each marker first appears in content.
// If the model cited nothing, every retrieved source is treated as used,
// since all of them were injected into the prompt.
func attributeSources(content string, contexts []retrieval.Context) (citations []Citation, usedSources []string) {
	for i, c := range contexts {
		marker := fmt.Sprintf("[%d]", i+1)
		pos := strings.Index(content, marker)
		if pos < 0 {
			continue
		}
		citations = append(citations, Citation{
			SourceID:     c.SourceID,
			CitationText: marker + " " + c.Metadata.Title,
			Position:     pos,
		})
	}
	sort.Slice(citations, func(i, j int) bool {
		return citations[i].Position < citations[j].Position
	})

	seen := make(map[string]bool)
	for _, cit := range citations {
		if !seen[cit.SourceID] {
			seen[cit.SourceID] = true
			usedSources = append(usedSources, cit.SourceID)
		}
	}
	if len(usedSources) == 0 {
		for _, c := range contexts {
			if !seen[c.SourceID] {
				seen[c.SourceID] = true
				usedSources = append(usedSources, c.SourceID)
			}
		}
	}
	return citations, usedSources
}
