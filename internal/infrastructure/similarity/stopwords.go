package similarity

import (
	_ "embed"
	"encoding/json"
)

//go:embed stopwords.json
var stopWordsJSON []byte

// stopWords is the standard English stop-word list shared by every engine
// instance. Immutable after init, safe for concurrent use.
var stopWords = loadStopWords()

func loadStopWords() map[string]struct{} {
	var raw []string
	if err := json.Unmarshal(stopWordsJSON, &raw); err != nil {
		panic("similarity: malformed embedded stopwords.json: " + err.Error())
	}
	out := make(map[string]struct{}, len(raw))
	for _, word := range raw {
		out[word] = struct{}{}
	}
	return out
}
