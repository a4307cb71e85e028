package store

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/spacebio/rag/internal/models"
)

type PGIndexConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// PGIndex is the pgvector-backed alternative to MemoryIndex, for
// corpora too large to hold in process memory. Adds happen inside one
// transaction per batch so readers never see a half-ingested document.
type PGIndex struct {
	config PGIndexConfig
	pool   *pgxpool.Pool
}

func NewPGIndex(config PGIndexConfig) (*PGIndex, error) {
	if config.TableName == "" {
		config.TableName = "chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	idx := &PGIndex{
		config: config,
		pool:   pool,
	}

	if err := idx.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return idx, nil
}

func (p *PGIndex) initialize() error {
	ctx := context.Background()

	_, err := p.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			url TEXT,
			title TEXT,
			section TEXT,
			content TEXT,
			ordinal INTEGER,
			inserted_at BIGSERIAL,
			embedding vector(%d)
		)`, p.config.TableName, p.config.VectorDim)

	_, err = p.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		p.config.TableName, p.config.TableName)

	_, err = p.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	return nil
}

func (p *PGIndex) Add(ctx context.Context, chunks []models.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d != %d", len(chunks), len(embeddings))
	}
	for i, emb := range embeddings {
		if len(emb) != p.config.VectorDim {
			return fmt.Errorf("embedding dimension mismatch for chunk %s: got %d, index has %d",
				chunks[i].ID, len(emb), p.config.VectorDim)
		}
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, url, title, section, content, ordinal, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`,
		p.config.TableName)

	for i, chunk := range chunks {
		_, err = tx.Exec(ctx, stmt,
			chunk.ID,
			chunk.DocumentID,
			chunk.URL,
			sanitizeUTF8(chunk.Title),
			chunk.Section,
			sanitizeUTF8(chunk.Text),
			chunk.Ordinal,
			pgvector.NewVector(embeddings[i]),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

func (p *PGIndex) Search(ctx context.Context, query []float32, k int) ([]models.ScoredChunk, error) {
	if k < 1 {
		return nil, nil
	}

	// Cosine distance ascending, insertion order breaking ties.
	stmt := fmt.Sprintf(`
		SELECT id, document_id, url, title, section, content, ordinal,
		       1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1, inserted_at
		LIMIT $2`,
		p.config.TableName)

	rows, err := p.pool.Query(ctx, stmt, pgvector.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %v", err)
	}
	defer rows.Close()

	var results []models.ScoredChunk
	for rows.Next() {
		var sc models.ScoredChunk
		err := rows.Scan(
			&sc.ID,
			&sc.DocumentID,
			&sc.URL,
			&sc.Title,
			&sc.Section,
			&sc.Text,
			&sc.Ordinal,
			&sc.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		results = append(results, sc)
	}

	return results, rows.Err()
}

func (p *PGIndex) Size() int {
	var count int
	err := p.pool.QueryRow(context.Background(),
		fmt.Sprintf("SELECT COUNT(*) FROM %s", p.config.TableName)).Scan(&count)
	if err != nil {
		return 0
	}
	return count
}

func (p *PGIndex) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
