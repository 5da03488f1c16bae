package service

import (
	"log"

	"clickbag.eco/backend/internal/model"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

// SearchService keeps the admin submission index in sync with the ledger.
// Indexing is best-effort: the ledger never depends on it.
type SearchService interface {
	IndexSubmission(submission *model.Submission, ownerEmail string) error
	DeleteSubmission(id string) error
}

type searchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewSearchService(client meilisearch.ServiceManager) SearchService {
	s := &searchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *searchService) initIndexes() {
	filterableAttrs := []string{"status", "user_id"}
	filterableInterface := make([]any, len(filterableAttrs))
	for i, v := range filterableAttrs {
		filterableInterface[i] = v
	}
	if _, err := s.client.Index("submissions").UpdateFilterableAttributes(&filterableInterface); err != nil {
		log.Printf("Failed to update submissions filterable attributes: %v", err)
	}

	sortableAttrs := []string{"created_at", "points"}
	if _, err := s.client.Index("submissions").UpdateSortableAttributes(&sortableAttrs); err != nil {
		log.Printf("Failed to update submissions sortable attributes: %v", err)
	}

	log.Println("Meilisearch submission index initialized")
}

type submissionDoc struct {
	ID                string `json:"id"`
	UserID            string `json:"user_id"`
	OwnerEmail        string `json:"owner_email"`
	Status            string `json:"status"`
	Points            int    `json:"points"`
	Geolocation       string `json:"geolocation"`
	ValidationDetails string `json:"validation_details"`
	CreatedAt         int64  `json:"created_at"`
}

func (s *searchService) IndexSubmission(submission *model.Submission, ownerEmail string) error {
	doc := submissionDoc{
		ID:          submission.ID.String(),
		UserID:      submission.UserID.String(),
		OwnerEmail:  ownerEmail,
		Status:      string(submission.Status),
		Points:      submission.Points,
		Geolocation: submission.Geolocation,
		// Model output is free text; strip anything markup-like before it
		// can reach an admin browser through search results.
		ValidationDetails: s.sanitizer.Sanitize(submission.ValidationDetails),
		CreatedAt:         submission.CreatedAt.Unix(),
	}

	task, err := s.client.Index("submissions").AddDocuments([]submissionDoc{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Printf("Indexed submission %s, task id: %d", submission.ID, task.TaskUID)
	return nil
}

func (s *searchService) DeleteSubmission(id string) error {
	_, err := s.client.Index("submissions").DeleteDocument(id)
	return err
}

func strPtr(s string) *string {
	return &s
}
