package domain

// PlagiarismReport is the structured diagnostic record persisted alongside the
// found/not_found decision. Both detector sections are always filled, so an
// auditor can see the raw signals regardless of the final decision.
type PlagiarismReport struct {
	Result        PlagiarismResult    `json:"result"`
	Note          string              `json:"note,omitempty"`
	NearDuplicate NearDuplicateReport `json:"near_duplicate"`
	Vector        VectorReport        `json:"vector"`
}

// NearDuplicateReport captures the MinHash+LSH side of the check.
type NearDuplicateReport struct {
	Matched bool `json:"matched"`
	// ClusterIDs lists every submission in the target's cluster, target included.
	ClusterIDs []string `json:"cluster_ids,omitempty"`
	Note       string   `json:"note,omitempty"`
}

// VectorReport captures the TF-IDF/cosine side of the check. A degenerate
// vocabulary shows up as a Note with zero similarity, never as an error.
type VectorReport struct {
	MaxSimilarity  float64          `json:"max_similarity"`
	Threshold      float64          `json:"threshold"`
	VocabularySize int              `json:"vocabulary_size"`
	Comparisons    []PeerSimilarity `json:"comparisons,omitempty"`
	Note           string           `json:"note,omitempty"`
}

type PeerSimilarity struct {
	SubmissionID string  `json:"submission_id"`
	Score        float64 `json:"similarity_score"`
}

// SemanticComparison is the semantic grader's verdict on a student answer
// measured against the instructor's model answer.
type SemanticComparison struct {
	SimilarityScore float64 `json:"similarity_score"`
	Correctness     string  `json:"correctness"`
	Confidence      float64 `json:"confidence"`
}
