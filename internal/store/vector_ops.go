package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"
)

// nearestWithQuerier performs vector similarity search over all templates
func nearestWithQuerier(ctx context.Context, q querier, queryVector []float32, k int) ([]VectorResult, error) {
	// Use optimized SQL-based search when sqlite-vec is available
	if VectorExtensionAvailable {
		return nearestOptimized(ctx, q, queryVector, k)
	}
	// Fall back to Go-based computation for purego builds
	return nearestFallback(ctx, q, queryVector, k)
}

// nearestOptimized uses the sqlite-vec extension for SQL-based similarity search
func nearestOptimized(ctx context.Context, q querier, queryVector []float32, k int) ([]VectorResult, error) {
	if k <= 0 {
		return []VectorResult{}, nil
	}
	queryBlob := serializeVector(queryVector)

	// vec_distance_cosine returns distance (lower is better); convert to
	// similarity for the API. Ties break by most-recent created_at, then id.
	query := `
		SELECT id, 1.0 - vec_distance_cosine(embedding, ?) AS similarity, created_at
		FROM templates
		WHERE embedding IS NOT NULL AND dimension = ?
		ORDER BY similarity DESC, created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := q.QueryContext(ctx, query, queryBlob, len(queryVector), k)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorResult, 0, k)
	for rows.Next() {
		var result VectorResult
		if err := rows.Scan(&result.TemplateID, &result.Similarity, &result.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// nearestFallback computes cosine similarity in Go. Used when the sqlite-vec
// extension is not available (purego builds).
func nearestFallback(ctx context.Context, q querier, queryVector []float32, k int) ([]VectorResult, error) {
	candidates, err := loadCandidates(ctx, q, queryVector)
	if err != nil {
		return nil, err
	}
	sortCandidates(candidates)

	if k <= 0 || k > len(candidates) {
		k = len(candidates)
	}
	results := make([]VectorResult, k)
	for i := 0; i < k; i++ {
		results[i] = VectorResult{
			TemplateID: candidates[i].id,
			Similarity: candidates[i].score,
			CreatedAt:  candidates[i].createdAt,
		}
	}
	return results, nil
}

// findDuplicateWithQuerier returns the earliest-committed template whose
// similarity to the vector meets the floor, or "" when none does. It runs on
// the caller's querier so it can execute inside a write transaction.
func findDuplicateWithQuerier(ctx context.Context, q querier, vector []float32, floor float64) (string, error) {
	candidates, err := loadCandidates(ctx, q, vector)
	if err != nil {
		return "", err
	}

	var winner *candidate
	for i := range candidates {
		c := &candidates[i]
		if c.score < floor {
			continue
		}
		if winner == nil || c.createdAt.Before(winner.createdAt) ||
			(c.createdAt.Equal(winner.createdAt) && c.id < winner.id) {
			winner = c
		}
	}
	if winner == nil {
		return "", nil
	}
	return winner.id, nil
}

// loadCandidates scores every stored embedding against the query vector
func loadCandidates(ctx context.Context, q querier, queryVector []float32) ([]candidate, error) {
	query := `
		SELECT id, embedding, created_at
		FROM templates
		WHERE embedding IS NOT NULL
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []candidate
	for rows.Next() {
		var id string
		var blob []byte
		var createdAt time.Time
		if err := rows.Scan(&id, &blob, &createdAt); err != nil {
			return nil, err
		}

		vector := deserializeVector(blob)
		if len(vector) != len(queryVector) {
			continue // Dimension mismatch, skip
		}

		candidates = append(candidates, candidate{
			id:        id,
			score:     cosineSimilarity(queryVector, vector),
			createdAt: createdAt,
		})
	}
	return candidates, rows.Err()
}

// candidate represents a template with its similarity score
type candidate struct {
	id        string
	score     float64
	createdAt time.Time
}

// sortCandidates orders by score descending, ties by most-recent created_at,
// then id descending.
func sortCandidates(candidates []candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if !candidates[i].createdAt.Equal(candidates[j].createdAt) {
			return candidates[i].createdAt.After(candidates[j].createdAt)
		}
		return candidates[i].id > candidates[j].id
	})
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
