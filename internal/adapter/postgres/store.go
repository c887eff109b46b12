// Package postgres provides the durable record store for C3: a
// Postgres-backed table of memory records, annotations, and causality
// links, fronted by an in-process vector index that is rebuilt from the
// table on startup and kept in sync on every write.
package postgres

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/engram-ai/engram/internal/domain"
	"github.com/engram-ai/engram/internal/domain/annotation"
	"github.com/engram-ai/engram/internal/domain/engram"
	"github.com/engram-ai/engram/internal/domain/witness"
	"github.com/engram-ai/engram/internal/port/recordstore"
	"github.com/engram-ai/engram/internal/vectorindex"
)

// Store implements C3's put/get/knn/scan_by_entity/annotate/delete over
// a Postgres table, keeping an in-memory vectorindex.Index in sync so
// KNN queries never touch the database on the read path.
type Store struct {
	pool  *pgxpool.Pool
	index *vectorindex.Index
	dim   int
}

// New constructs a Store with an empty vector index; Rebuild loads the
// existing rows from Postgres into it. Nothing rebuilds the index
// automatically: a query against an empty index returns no results and
// is not retried.
func New(pool *pgxpool.Pool, dim int) *Store {
	return &Store{
		pool:  pool,
		index: vectorindex.New(dim, vectorindex.DefaultParams()),
		dim:   dim,
	}
}

// Rebuild reloads every live vector from Postgres into a fresh index,
// used at startup and by the admin and engramctl recreate-index paths.
func (s *Store) Rebuild(ctx context.Context) error {
	rows, err := s.pool.Query(ctx, `SELECT memory_id, vector FROM memories`)
	if err != nil {
		return fmt.Errorf("rebuild index: query: %w", err)
	}
	defer rows.Close()

	fresh := vectorindex.New(s.dim, vectorindex.DefaultParams())
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return fmt.Errorf("rebuild index: scan: %w", err)
		}
		v, err := decodeVector(raw)
		if err != nil {
			return fmt.Errorf("rebuild index: decode %s: %w", id, err)
		}
		if err := fresh.Upsert(id, v); err != nil {
			return fmt.Errorf("rebuild index: upsert %s: %w", id, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	s.index = fresh
	return nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, c := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(c))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("invalid vector byte length %d", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v, nil
}

// Put inserts a new memory record. It is idempotent on memory_id: a
// duplicate insert fails with domain.ErrAlreadyExists (§4.1).
func (s *Store) Put(ctx context.Context, m engram.Memory) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	normalized := witness.NormalizeAll(m.WitnessedBy)

	const q = `
		INSERT INTO memories (
			memory_id, content_text, content_media, content_speakers, content_summary,
			vector, tags, witnessed_by, witnessed_by_raw, situation_id, situation_type,
			privacy_level, memory_type, agent_id, domain, confidence, importance,
			topic_tags, interaction_quality, duration_minutes, metadata_timestamp,
			causality_parents, causality_influence, causality_synthesis, causality_reasoning,
			retention_ttl_seconds, retention_decay, created_at, access_count
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,
			$22,$23,$24,$25,$26,$27,$28,$29
		)`

	mediaJSON, err := marshalJSON(m.Content.Media)
	if err != nil {
		return fmt.Errorf("put %s: marshal media: %w", m.MemoryID, err)
	}
	speakersJSON, err := marshalJSON(m.Content.Speakers)
	if err != nil {
		return fmt.Errorf("put %s: marshal speakers: %w", m.MemoryID, err)
	}

	_, err = s.pool.Exec(ctx, q,
		m.MemoryID, m.Content.Text, mediaJSON, speakersJSON, m.Content.Summary,
		encodeVector(m.Vector), pgTextArray(m.Tags), pgTextArray(normalized), pgTextArray(m.WitnessedBy),
		m.SituationID, string(m.SituationType), string(m.PrivacyLevel), string(m.Metadata.MemoryType),
		m.Metadata.AgentID, m.Metadata.Domain, m.Metadata.Confidence, m.Metadata.Importance,
		pgTextArray(m.Metadata.TopicTags), m.Metadata.InteractionQuality, m.Metadata.SituationDurationMins,
		m.Metadata.Timestamp, pgTextArray(m.Causality.ParentMemories), m.Causality.InfluenceStrength,
		m.Causality.SynthesisType, m.Causality.Reasoning, m.Retention.TTLSeconds,
		orDefault(string(m.Retention.DecayFunction), "none"), m.CreatedAt, m.AccessCount,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("put %s: %w", m.MemoryID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("put %s: %w: %w", m.MemoryID, domain.ErrStorageError, err)
	}

	if err := s.index.Upsert(m.MemoryID, m.Vector); err != nil {
		return fmt.Errorf("put %s: index upsert: %w", m.MemoryID, err)
	}
	return nil
}

// Update overwrites an existing memory's content, vector, and metadata
// in place, used by the cleanup scheduler's consolidation and
// importance-decay jobs (§4.5). memory_id, situation_id, and created_at
// never change.
func (s *Store) Update(ctx context.Context, m engram.Memory) error {
	normalized := witness.NormalizeAll(m.WitnessedBy)

	const q = `
		UPDATE memories SET
			content_text = $2, content_media = $3, content_speakers = $4, content_summary = $5,
			vector = $6, tags = $7, witnessed_by = $8, witnessed_by_raw = $9,
			privacy_level = $10, memory_type = $11, confidence = $12, importance = $13,
			topic_tags = $14, retention_ttl_seconds = $15, retention_decay = $16
		WHERE memory_id = $1`

	mediaJSON, err := marshalJSON(m.Content.Media)
	if err != nil {
		return fmt.Errorf("update %s: marshal media: %w", m.MemoryID, err)
	}
	speakersJSON, err := marshalJSON(m.Content.Speakers)
	if err != nil {
		return fmt.Errorf("update %s: marshal speakers: %w", m.MemoryID, err)
	}

	tag, err := s.pool.Exec(ctx, q,
		m.MemoryID, m.Content.Text, mediaJSON, speakersJSON, m.Content.Summary,
		encodeVector(m.Vector), pgTextArray(m.Tags), pgTextArray(normalized), pgTextArray(m.WitnessedBy),
		string(m.PrivacyLevel), string(m.Metadata.MemoryType), m.Metadata.Confidence, m.Metadata.Importance,
		pgTextArray(m.Metadata.TopicTags), m.Retention.TTLSeconds, orDefault(string(m.Retention.DecayFunction), "none"),
	)
	if err := execExpectOne(tag, err, "update %s", m.MemoryID); err != nil {
		return err
	}
	if err := s.index.Upsert(m.MemoryID, m.Vector); err != nil {
		return fmt.Errorf("update %s: index upsert: %w", m.MemoryID, err)
	}
	return nil
}

// Get fetches a memory by id, returning domain.ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, memoryID string) (engram.Memory, error) {
	const q = `
		SELECT memory_id, content_text, content_media, content_speakers, content_summary,
			vector, tags, witnessed_by_raw, situation_id, situation_type, privacy_level,
			memory_type, agent_id, domain, confidence, importance, topic_tags,
			interaction_quality, duration_minutes, metadata_timestamp,
			causality_parents, causality_influence, causality_synthesis, causality_reasoning,
			retention_ttl_seconds, retention_decay, created_at, access_count, last_accessed_at
		FROM memories WHERE memory_id = $1`
	row := s.pool.QueryRow(ctx, q, memoryID)
	m, err := scanMemory(row)
	if err != nil {
		return engram.Memory{}, notFoundWrap(err, "get %s", memoryID)
	}
	return m, nil
}

// Touch bumps a memory's access bookkeeping (access_count,
// last_accessed_at), the only permitted internal mutation of a memory
// record outside annotation append (§3.3).
func (s *Store) Touch(ctx context.Context, memoryID string, now time.Time) error {
	const q = `UPDATE memories SET access_count = access_count + 1, last_accessed_at = $2 WHERE memory_id = $1`
	tag, err := s.pool.Exec(ctx, q, memoryID, now)
	return execExpectOne(tag, err, "touch %s", memoryID)
}

// KNN performs an approximate nearest-neighbor search over the vector
// index, then re-checks each candidate's tag/numeric predicates against
// the durable row (§4.1's KNN-with-filter evaluation), since the
// in-memory index only knows about vectors, not attributes.
func (s *Store) KNN(ctx context.Context, query []float32, k int, similarityFloor float64, filter recordstore.Filter) ([]engram.ScoredMemory, error) {
	oversample := k * 4
	if oversample < 50 {
		oversample = 50
	}
	candidates, err := s.index.Search(query, oversample, similarityFloor, nil)
	if err != nil {
		return nil, fmt.Errorf("knn: %w", err)
	}

	out := make([]engram.ScoredMemory, 0, k)
	for _, c := range candidates {
		m, err := s.Get(ctx, c.ID)
		if err != nil {
			continue // deleted between index search and row fetch
		}
		if !matchesFilter(m, filter) {
			continue
		}
		out = append(out, engram.ScoredMemory{Memory: m, SimilarityScore: c.Similarity})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

func matchesFilter(m engram.Memory, f recordstore.Filter) bool {
	if f.RequesterIDs != nil && !witness.AllowAny(m, f.RequesterIDs) {
		return false
	}
	if f.SituationType != "" && m.SituationType != f.SituationType {
		return false
	}
	if f.MemoryType != "" && m.Metadata.MemoryType != f.MemoryType {
		return false
	}
	if !f.After.IsZero() && m.Metadata.Timestamp.Before(f.After) {
		return false
	}
	if len(f.TopicTags) > 0 && !hasAnyTag(m.Metadata.TopicTags, f.TopicTags) {
		return false
	}
	return true
}

func hasAnyTag(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, t := range have {
		set[t] = true
	}
	for _, w := range want {
		if set[w] {
			return true
		}
	}
	return false
}

// ScanByEntity returns every memory_id witnessed by entityID, newest first.
func (s *Store) ScanByEntity(ctx context.Context, entityID string) ([]string, error) {
	normalized := witness.Normalize(entityID)
	const q = `SELECT memory_id FROM memories WHERE $1 = ANY(witnessed_by) ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, q, normalized)
	if err != nil {
		return nil, fmt.Errorf("scan_by_entity %s: %w: %w", entityID, domain.ErrStorageError, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan_by_entity %s: scan: %w", entityID, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Annotate appends an annotation to memory_id. It fails with
// domain.ErrNotFound if the parent is absent (§4.1).
func (s *Store) Annotate(ctx context.Context, memoryID string, a annotation.Annotation) error {
	const check = `SELECT 1 FROM memories WHERE memory_id = $1`
	var exists int
	if err := s.pool.QueryRow(ctx, check, memoryID).Scan(&exists); err != nil {
		return notFoundWrap(err, "annotate %s", memoryID)
	}

	const insert = `
		INSERT INTO annotations (memory_id, annotator_id, timestamp, type, content, vector, evidence_links, tags, confidence)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	var vecBytes []byte
	if len(a.Vector) > 0 {
		vecBytes = encodeVector(a.Vector)
	}
	_, err := s.pool.Exec(ctx, insert,
		memoryID, a.AnnotatorID, a.Timestamp, a.Type, a.Content, vecBytes,
		pgTextArray(a.EvidenceLinks), pgTextArray(a.Tags), a.Confidence,
	)
	if err != nil {
		return fmt.Errorf("annotate %s: %w: %w", memoryID, domain.ErrStorageError, err)
	}
	return nil
}

// Annotations lists every annotation attached to memory_id, oldest first.
func (s *Store) Annotations(ctx context.Context, memoryID string) ([]annotation.Annotation, error) {
	const q = `
		SELECT annotator_id, timestamp, type, content, vector, evidence_links, tags, confidence
		FROM annotations WHERE memory_id = $1 ORDER BY timestamp ASC`
	rows, err := s.pool.Query(ctx, q, memoryID)
	if err != nil {
		return nil, fmt.Errorf("annotations %s: %w: %w", memoryID, domain.ErrStorageError, err)
	}
	defer rows.Close()

	var out []annotation.Annotation
	for rows.Next() {
		var a annotation.Annotation
		var vecBytes []byte
		if err := rows.Scan(&a.AnnotatorID, &a.Timestamp, &a.Type, &a.Content, &vecBytes, &a.EvidenceLinks, &a.Tags, &a.Confidence); err != nil {
			return nil, fmt.Errorf("annotations %s: scan: %w", memoryID, err)
		}
		if len(vecBytes) > 0 {
			if v, err := decodeVector(vecBytes); err == nil {
				a.Vector = v
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Delete removes a memory record and its secondary indices. It does
// NOT remove incoming causality edges from other memories (§4.1).
func (s *Store) Delete(ctx context.Context, memoryID string) error {
	const q = `DELETE FROM memories WHERE memory_id = $1`
	tag, err := s.pool.Exec(ctx, q, memoryID)
	if execErr := execExpectOne(tag, err, "delete %s", memoryID); execErr != nil {
		return execErr
	}
	_ = s.index.Delete(memoryID)
	return nil
}

// AllMemories streams every memory record, used by the cleanup
// scheduler's expiry/consolidation/decay jobs and by cmd/engramctl.
func (s *Store) AllMemories(ctx context.Context) ([]engram.Memory, error) {
	const q = `
		SELECT memory_id, content_text, content_media, content_speakers, content_summary,
			vector, tags, witnessed_by_raw, situation_id, situation_type, privacy_level,
			memory_type, agent_id, domain, confidence, importance, topic_tags,
			interaction_quality, duration_minutes, metadata_timestamp,
			causality_parents, causality_influence, causality_synthesis, causality_reasoning,
			retention_ttl_seconds, retention_decay, created_at, access_count, last_accessed_at
		FROM memories ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("all_memories: %w: %w", domain.ErrStorageError, err)
	}
	defer rows.Close()

	var out []engram.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("all_memories: scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMemory(row scannable) (engram.Memory, error) {
	var m engram.Memory
	var vecBytes []byte
	var mediaJSON, speakersJSON []byte
	var lastAccessed *time.Time
	var decay string

	err := row.Scan(
		&m.MemoryID, &m.Content.Text, &mediaJSON, &speakersJSON, &m.Content.Summary,
		&vecBytes, &m.Tags, &m.WitnessedBy, &m.SituationID, &m.SituationType, &m.PrivacyLevel,
		&m.Metadata.MemoryType, &m.Metadata.AgentID, &m.Metadata.Domain, &m.Metadata.Confidence,
		&m.Metadata.Importance, &m.Metadata.TopicTags, &m.Metadata.InteractionQuality,
		&m.Metadata.SituationDurationMins, &m.Metadata.Timestamp,
		&m.Causality.ParentMemories, &m.Causality.InfluenceStrength, &m.Causality.SynthesisType,
		&m.Causality.Reasoning, &m.Retention.TTLSeconds, &decay, &m.CreatedAt, &m.AccessCount, &lastAccessed,
	)
	if err != nil {
		return engram.Memory{}, err
	}
	m.Retention.DecayFunction = engram.DecayFunction(decay)
	if lastAccessed != nil {
		m.LastAccessedAt = *lastAccessed
	}
	if len(mediaJSON) > 0 {
		_ = unmarshalJSON(mediaJSON, &m.Content.Media)
	}
	if len(speakersJSON) > 0 {
		_ = unmarshalJSON(speakersJSON, &m.Content.Speakers)
	}
	if len(vecBytes) > 0 {
		v, err := decodeVector(vecBytes)
		if err != nil {
			return engram.Memory{}, fmt.Errorf("decode vector for %s: %w", m.MemoryID, err)
		}
		m.Vector = v
	}
	return m, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
