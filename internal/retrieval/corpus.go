package retrieval

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// corpusFile is the on-disk shape of a seed corpus.
type corpusFile struct {
	Sources []SourceDocument `yaml:"sources"`
}

// LoadCorpus reads knowledge-base source documents from a YAML corpus file.
// Every document must carry an id and content; credibility defaults to 0.5
// when unset.
func LoadCorpus(path string) ([]SourceDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}

	var corpus corpusFile
	if err := yaml.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", path, err)
	}

	for i := range corpus.Sources {
		doc := &corpus.Sources[i]
		if strings.TrimSpace(doc.ID) == "" {
			return nil, fmt.Errorf("corpus %s: source %d has no id", path, i)
		}
		if strings.TrimSpace(doc.Content) == "" {
			return nil, fmt.Errorf("corpus %s: source %q has no content", path, doc.ID)
		}
		if doc.Credibility == 0 {
			doc.Credibility = 0.5
		}
	}

	return corpus.Sources, nil
}
