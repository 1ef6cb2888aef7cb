package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/diagnomed/ddx/internal/session"
	"github.com/diagnomed/ddx/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Case is a persisted, completed diagnostic session.
type Case struct {
	ID         uuid.UUID          `json:"id"`
	SessionID  string             `json:"session_id"`
	Region     string             `json:"region"`
	Symptoms   []string           `json:"symptoms"`
	DiseaseID  string             `json:"disease_id"`
	Diagnosis  string             `json:"diagnosis"`
	Category   string             `json:"category"`
	Confidence float64            `json:"confidence"`
	Candidates []models.Candidate `json:"candidates,omitempty"`
	TotalCost  float64            `json:"total_cost"`
	Status     string             `json:"status"`
	CreatedAt  time.Time          `json:"created_at"`
}

// SimilarCase is one similarity-search hit.
type SimilarCase struct {
	Case
	Similarity float64 `json:"similarity_score"`
}

// similarityThreshold is the maximum cosine distance for two symptom sets
// to count as similar.
const similarityThreshold = 0.5

// caseColumns is the standard column list for case queries.
const caseColumns = `id, session_id, region, symptoms, disease_id, diagnosis, category, confidence, candidates, total_cost, status, created_at`

// SaveCase stores a completed session summary and implements session.CaseStore.
func (db *DB) SaveCase(ctx context.Context, summary session.CaseSummary) (string, error) {
	symptomsJSON, err := json.Marshal(summary.Symptoms)
	if err != nil {
		return "", err
	}
	candidatesJSON, err := json.Marshal(summary.Candidates)
	if err != nil {
		return "", err
	}

	id := uuid.New()
	_, err = db.pool.Exec(ctx,
		`INSERT INTO cases (id, session_id, region, symptoms, disease_id, diagnosis, category, confidence, candidates, total_cost, symptom_embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, summary.SessionID, summary.Region, symptomsJSON, summary.DiseaseID,
		summary.Diagnosis, summary.Category, summary.Confidence, candidatesJSON,
		summary.TotalCost, SymptomEmbedding(summary.Symptoms),
	)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// SimilarCount returns how many stored cases fall within the similarity
// threshold of the given symptoms. Implements session.CaseStore.
func (db *DB) SimilarCount(ctx context.Context, symptoms []string) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM cases
		 WHERE symptom_embedding IS NOT NULL
		   AND symptom_embedding <=> $1 < $2`,
		SymptomEmbedding(symptoms), similarityThreshold,
	).Scan(&count)
	return count, err
}

// SimilarCases returns the stored cases closest to the given symptoms,
// nearest first, with a similarity score of 1 - cosine distance.
func (db *DB) SimilarCases(ctx context.Context, symptoms []string, topK int) ([]SimilarCase, error) {
	if topK <= 0 {
		topK = 5
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+caseColumns+`, symptom_embedding <=> $1 AS distance
		 FROM cases
		 WHERE symptom_embedding IS NOT NULL
		 ORDER BY distance
		 LIMIT $2`,
		SymptomEmbedding(symptoms), topK,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []SimilarCase
	for rows.Next() {
		var hit SimilarCase
		var symptomsJSON, candidatesJSON []byte
		var distance float64
		if err := rows.Scan(
			&hit.ID, &hit.SessionID, &hit.Region, &symptomsJSON, &hit.DiseaseID,
			&hit.Diagnosis, &hit.Category, &hit.Confidence, &candidatesJSON,
			&hit.TotalCost, &hit.Status, &hit.CreatedAt, &distance,
		); err != nil {
			return nil, err
		}
		if err := unmarshalCaseJSON(symptomsJSON, candidatesJSON, &hit.Case); err != nil {
			return nil, err
		}
		hit.Similarity = 1 - distance
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// CountCases returns the total number of stored cases.
func (db *DB) CountCases(ctx context.Context) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cases`).Scan(&count)
	return count, err
}

// GetCase retrieves a case by ID, or nil when it does not exist.
func (db *DB) GetCase(ctx context.Context, id uuid.UUID) (*Case, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE id = $1`, id)
	return scanCase(row)
}

// ListCases returns stored cases, newest first.
func (db *DB) ListCases(ctx context.Context, limit, offset int) ([]Case, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+caseColumns+` FROM cases
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []Case
	for rows.Next() {
		var c Case
		var symptomsJSON, candidatesJSON []byte
		if err := rows.Scan(
			&c.ID, &c.SessionID, &c.Region, &symptomsJSON, &c.DiseaseID,
			&c.Diagnosis, &c.Category, &c.Confidence, &candidatesJSON,
			&c.TotalCost, &c.Status, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := unmarshalCaseJSON(symptomsJSON, candidatesJSON, &c); err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// DeleteCase deletes a case by ID.
func (db *DB) DeleteCase(ctx context.Context, id uuid.UUID) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM cases WHERE id = $1`, id)
	return err
}

func scanCase(row pgx.Row) (*Case, error) {
	var c Case
	var symptomsJSON, candidatesJSON []byte
	err := row.Scan(
		&c.ID, &c.SessionID, &c.Region, &symptomsJSON, &c.DiseaseID,
		&c.Diagnosis, &c.Category, &c.Confidence, &candidatesJSON,
		&c.TotalCost, &c.Status, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := unmarshalCaseJSON(symptomsJSON, candidatesJSON, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func unmarshalCaseJSON(symptomsJSON, candidatesJSON []byte, c *Case) error {
	if symptomsJSON != nil {
		if err := json.Unmarshal(symptomsJSON, &c.Symptoms); err != nil {
			return err
		}
	}
	if candidatesJSON != nil {
		if err := json.Unmarshal(candidatesJSON, &c.Candidates); err != nil {
			return err
		}
	}
	return nil
}
