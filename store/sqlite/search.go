package sqlite

import (
	"context"
	"encoding/json"

	sqlitevec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/mentycs/docbrew/store"
)

// rrfConstant is the reciprocal-rank-fusion constant c (§4.4).
const rrfConstant = 60

// workingSetMultiplier (M) widens each run's candidate set before fusion.
const workingSetMultiplier = 5

type rankedDoc struct {
	id       int64
	content  string
	metadata map[string]any
	rank     int // 1-based, ascending = better
}

// HybridSearch implements §4.4: resolve the best version, run BM25 and KNN
// in parallel candidate sets, fuse by reciprocal rank, and attach content
// and metadata to the top k.
func (d *Driver) HybridSearch(ctx context.Context, library, version, query string, k int) ([]store.SearchResult, error) {
	if k <= 0 {
		k = 10
	}

	match, err := d.FindBestVersion(ctx, library, version)
	if err != nil {
		return nil, err
	}

	if !match.Found {
		return nil, &store.VersionNotFoundError{
			Library:           library,
			Requested:         version,
			HasUnversioned:    match.HasUnversioned,
			AvailableVersions: match.AvailableVersions,
		}
	}

	if query == "" {
		return nil, nil
	}

	var versionID int64

	err = d.reader.QueryRowContext(ctx, `
		SELECT v.id FROM versions v JOIN libraries l ON l.id = v.library_id
		WHERE l.name = ? AND v.name = ?
	`, library, match.BestMatch).Scan(&versionID)
	if err != nil {
		return nil, &store.StoreError{Cause: err, Message: "could not resolve version id for search"}
	}

	workingSet := k * workingSetMultiplier

	lexical, err := d.lexicalRun(ctx, versionID, query, workingSet)
	if err != nil {
		return nil, err
	}

	var semantic []rankedDoc

	if d.embedder != nil {
		semantic, err = d.semanticRun(ctx, versionID, query, workingSet)
		if err != nil {
			// §4.4: embedding provider unavailable degrades to FTS only.
			if d.logger != nil {
				d.logger.Warn("semantic search unavailable, degrading to fts only", "error", err)
			}

			semantic = nil
		}
	}

	fused := fuse(lexical, semantic)

	if len(fused) > k {
		fused = fused[:k]
	}

	results := make([]store.SearchResult, 0, len(fused))

	for i, f := range fused {
		results = append(results, store.SearchResult{
			Content:  f.content,
			Metadata: f.metadata,
			Score:    f.score,
			Rank:     i + 1,
		})
	}

	return results, nil
}

func (d *Driver) lexicalRun(ctx context.Context, versionID int64, query string, limit int) ([]rankedDoc, error) {
	rows, err := d.reader.QueryContext(ctx, `
		SELECT d.id, d.content, d.metadata, bm25(documents_fts, 10, 1, 5, 1) AS score
		FROM documents_fts
		JOIN documents d ON d.id = documents_fts.rowid
		WHERE documents_fts MATCH ? AND d.version_id = ?
		ORDER BY score ASC
		LIMIT ?
	`, query, versionID, limit)
	if err != nil {
		return nil, &store.StoreError{Cause: err, Message: "fts query failed"}
	}
	defer rows.Close()

	var docs []rankedDoc

	rank := 1

	for rows.Next() {
		var (
			id            int64
			content       string
			metadataJSON  string
			score         float64
		)

		if err := rows.Scan(&id, &content, &metadataJSON, &score); err != nil {
			return nil, &store.StoreError{Cause: err, Message: "could not scan fts row"}
		}

		docs = append(docs, rankedDoc{id: id, content: content, metadata: decodeMetadata(metadataJSON), rank: rank})
		rank++
	}

	return docs, nil
}

func (d *Driver) semanticRun(ctx context.Context, versionID int64, query string, limit int) ([]rankedDoc, error) {
	vectors, err := d.embedder.EmbedBatch(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		return nil, err
	}

	serialized, err := sqlitevec.SerializeFloat32(vectors[0])
	if err != nil {
		return nil, err
	}

	rows, err := d.reader.QueryContext(ctx, `
		SELECT dv.rowid, d.content, d.metadata, dv.distance
		FROM documents_vec dv
		JOIN documents d ON d.id = dv.rowid
		WHERE dv.embedding MATCH ? AND k = ? AND dv.version_id = ?
		ORDER BY dv.distance ASC
	`, serialized, limit, versionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []rankedDoc

	rank := 1

	for rows.Next() {
		var (
			id           int64
			content      string
			metadataJSON string
			distance     float64
		)

		if err := rows.Scan(&id, &content, &metadataJSON, &distance); err != nil {
			return nil, err
		}

		docs = append(docs, rankedDoc{id: id, content: content, metadata: decodeMetadata(metadataJSON), rank: rank})
		rank++
	}

	return docs, nil
}

type fusedDoc struct {
	content  string
	metadata map[string]any
	score    float64
	ftsRank  int
}

// fuse implements reciprocal-rank fusion: score(d) = Σ 1/(c + rank), ties
// broken by ascending FTS rank (§4.4).
func fuse(lexical, semantic []rankedDoc) []fusedDoc {
	byID := map[int64]*fusedDoc{}
	order := []int64{}

	for _, doc := range lexical {
		f, ok := byID[doc.id]
		if !ok {
			f = &fusedDoc{content: doc.content, metadata: doc.metadata, ftsRank: doc.rank}
			byID[doc.id] = f
			order = append(order, doc.id)
		}

		f.score += 1.0 / float64(rrfConstant+doc.rank)

		if f.ftsRank == 0 || doc.rank < f.ftsRank {
			f.ftsRank = doc.rank
		}
	}

	for _, doc := range semantic {
		f, ok := byID[doc.id]
		if !ok {
			f = &fusedDoc{content: doc.content, metadata: doc.metadata}
			byID[doc.id] = f
			order = append(order, doc.id)
		}

		f.score += 1.0 / float64(rrfConstant+doc.rank)
	}

	out := make([]fusedDoc, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}

	sortFusedDescending(out)

	return out
}

func sortFusedDescending(docs []fusedDoc) {
	for i := 1; i < len(docs); i++ {
		for j := i; j > 0; j-- {
			if better(docs[j], docs[j-1]) {
				docs[j], docs[j-1] = docs[j-1], docs[j]
			} else {
				break
			}
		}
	}
}

func better(a, b fusedDoc) bool {
	if a.score != b.score {
		return a.score > b.score
	}

	if a.ftsRank == 0 {
		return false
	}

	if b.ftsRank == 0 {
		return true
	}

	return a.ftsRank < b.ftsRank
}

func decodeMetadata(raw string) map[string]any {
	var metadata map[string]any
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return map[string]any{}
	}

	return metadata
}
