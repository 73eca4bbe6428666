package types

// MatchCandidate pairs a stored template with its cosine similarity to the
// query embedding.
type MatchCandidate struct {
	Template   *Template
	Similarity float64
}

// MatchDecision is the quality gate's verdict on a candidate set.
type MatchDecision struct {
	Accepted bool
	Template *Template
	// Similarity of the accepted candidate.
	Similarity float64
	// Confidence reported by the re-ranker; zero when re-ranking was skipped.
	Confidence float64
	// Quality is max(Confidence, Similarity) for the accepted candidate.
	Quality float64
	// Reason explains a rejection ("below_floor", "low_confidence", "empty").
	Reason string
}
