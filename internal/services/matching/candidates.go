package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/docufind/backend/internal/config"
	"github.com/docufind/backend/internal/models"
	"github.com/docufind/backend/internal/services/ai"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrDocumentNotFound covers missing documents and documents whose case
	// is not visible to the requester.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrOracleFailure wraps adjudication failures surfaced to the caller.
	ErrOracleFailure = errors.New("match adjudication failed")
)

// Service implements the candidate generator and the match verifier.
type Service struct {
	db       *gorm.DB
	oracle   ai.Oracle
	embedder ai.Embedder
	cfg      config.MatchingConfig
}

// NewService creates a matching service.
func NewService(db *gorm.DB, oracle ai.Oracle, embedder ai.Embedder, cfg config.MatchingConfig) *Service {
	return &Service{db: db, oracle: oracle, embedder: embedder, cfg: cfg}
}

// FindOptions controls a candidate search.
type FindOptions struct {
	Limit               int
	Skip                int
	SimilarityThreshold float64
	IncludeTotal        bool
}

// Candidate is one ranked result of a candidate search.
type Candidate struct {
	Case  models.DocumentCase `json:"case"`
	Score float64             `json:"score"`
}

// FindMatches finds nearest-neighbor documents in the opposite case pool.
// It is a pure read: no writes, idempotent, safe to call repeatedly.
func (s *Service) FindMatches(ctx context.Context, documentID uuid.UUID, opts FindOptions) ([]Candidate, int64, error) {
	sourceCase, kind, err := s.loadSourceCase(ctx, documentID)
	if err != nil {
		return nil, 0, err
	}

	threshold := opts.SimilarityThreshold
	if threshold <= 0 {
		threshold = s.cfg.SimilarityThreshold
	}
	limit := opts.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	queryVector, err := s.embedder.EmbedQuery(ctx, sourceCase.Document.CompositeText(sourceCase.Tags))
	if err != nil {
		return nil, 0, fmt.Errorf("error embedding source document: %w", err)
	}

	pool, err := s.loadOppositePool(ctx, sourceCase, kind)
	if err != nil {
		return nil, 0, err
	}

	ranked := make([]Candidate, 0, len(pool))
	for i := range pool {
		score := CosineSimilarity(queryVector, pool[i].Document.Embedding)
		if score >= threshold {
			ranked = append(ranked, Candidate{Case: pool[i], Score: score})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	total := int64(len(ranked))
	if opts.Skip >= len(ranked) {
		ranked = nil
	} else {
		ranked = ranked[opts.Skip:]
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	if !opts.IncludeTotal {
		total = 0
	}
	return ranked, total, nil
}

func (s *Service) loadSourceCase(ctx context.Context, documentID uuid.UUID) (*models.DocumentCase, models.CaseKind, error) {
	var dc models.DocumentCase
	err := s.db.WithContext(ctx).
		Preload("FoundCase").
		Preload("LostCase").
		Preload("Document").
		First(&dc, "document_id = ? AND voided = ?", documentID, false).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrDocumentNotFound
		}
		return nil, "", fmt.Errorf("error loading source case: %w", err)
	}

	kind, err := dc.Kind()
	if err != nil {
		return nil, "", err
	}
	return &dc, kind, nil
}

// loadOppositePool loads the eligible opposite-type cases: same document
// type, matchable status, not voided, not the source itself, and no existing
// active match for the pair. Found-pool sources additionally exclude lost
// reports filed by the finder themselves.
func (s *Service) loadOppositePool(ctx context.Context, source *models.DocumentCase, kind models.CaseKind) ([]models.DocumentCase, error) {
	query := s.db.WithContext(ctx).
		Model(&models.DocumentCase{}).
		Joins("JOIN documents ON documents.id = document_cases.document_id AND documents.type_id = ?", source.Document.TypeID).
		Where("document_cases.voided = ?", false).
		Where("document_cases.document_id <> ?", source.DocumentID)

	if kind == models.CaseKindLost {
		// Searching the found pool: only admin-verified found cases.
		query = query.
			Joins("JOIN found_document_cases ON found_document_cases.case_id = document_cases.id").
			Where("found_document_cases.status = ?", models.FoundCaseStatusVerified).
			Where(`NOT EXISTS (
				SELECT 1 FROM matches
				WHERE matches.found_case_id = document_cases.id
				  AND matches.lost_case_id = ?
				  AND matches.voided = false
				  AND matches.deleted_at IS NULL
			)`, source.ID)
	} else {
		// Searching the lost pool: submitted lost cases, not the finder's own.
		query = query.
			Joins("JOIN lost_document_cases ON lost_document_cases.case_id = document_cases.id").
			Where("lost_document_cases.status = ?", models.LostCaseStatusSubmitted).
			Where("document_cases.user_id <> ?", source.UserID).
			Where(`NOT EXISTS (
				SELECT 1 FROM matches
				WHERE matches.found_case_id = ?
				  AND matches.lost_case_id = document_cases.id
				  AND matches.voided = false
				  AND matches.deleted_at IS NULL
			)`, source.ID)
	}

	var pool []models.DocumentCase
	err := query.
		Preload("FoundCase").
		Preload("LostCase").
		Preload("Document").
		Find(&pool).Error
	if err != nil {
		return nil, fmt.Errorf("error loading candidate pool: %w", err)
	}
	return pool, nil
}

// CosineSimilarity returns 1 - cosine distance of two vectors, 0 when either
// is empty or their lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
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
