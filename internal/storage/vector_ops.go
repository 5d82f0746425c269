package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// serializeVector encodes a float32 slice as a little-endian BLOB, the
// format sqlite-vec expects and the fallback path decodes.
func serializeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeVector decodes a little-endian BLOB back into float32s.
func deserializeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 when either vector has zero magnitude.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

const selectColumns = "id, path, name, file_type, size, snippet, author, modified_at, indexed_at"

// searchOptimized computes cosine distance inside SQL via sqlite-vec.
// Distance is converted to similarity (1 - distance) so both paths return
// the same scale.
func (g *SQLiteGateway) searchOptimized(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float64) ([]ScoredRecord, error) {
	blob := serializeVector(vector)

	query := fmt.Sprintf(`
		SELECT %s, 1.0 - vec_distance_cosine(vector, ?) AS similarity
		FROM vectors
		WHERE collection = ?
		  AND (1.0 - vec_distance_cosine(vector, ?)) >= ?
		ORDER BY similarity DESC
		LIMIT ?`, selectColumns)

	rows, err := g.db.QueryContext(ctx, query, blob, collection, blob, scoreThreshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]ScoredRecord, 0, limit)
	for rows.Next() {
		var (
			rec                                   ScoredRecord
			path, name, fileType, snippet, author string
			size, modifiedAt, indexedAt           int64
		)
		if err := rows.Scan(&rec.ID, &path, &name, &fileType, &size, &snippet, &author,
			&modifiedAt, &indexedAt, &rec.Score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		rec.Payload = scanPayload(path, name, fileType, size, snippet, author, modifiedAt, indexedAt)
		results = append(results, rec)
	}
	return results, rows.Err()
}

// searchFallback loads candidate vectors and scores them in Go. Used when
// sqlite-vec is not compiled in.
func (g *SQLiteGateway) searchFallback(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float64) ([]ScoredRecord, error) {
	query := fmt.Sprintf("SELECT %s, vector FROM vectors WHERE collection = ?", selectColumns)

	rows, err := g.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []ScoredRecord
	for rows.Next() {
		var (
			rec                                   ScoredRecord
			path, name, fileType, snippet, author string
			size, modifiedAt, indexedAt           int64
			blob                                  []byte
		)
		if err := rows.Scan(&rec.ID, &path, &name, &fileType, &size, &snippet, &author,
			&modifiedAt, &indexedAt, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		score := cosineSimilarity(vector, deserializeVector(blob))
		if score < scoreThreshold {
			continue
		}
		rec.Score = score
		rec.Payload = scanPayload(path, name, fileType, size, snippet, author, modifiedAt, indexedAt)
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
