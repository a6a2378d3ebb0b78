package service

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// TrustScoreClient reads a customer's score at booking time and
// reports rental outcomes back to the score ledger. The ledger itself
// is owned by an external service; this core only records the snapshot
// it was given.
type TrustScoreClient interface {
	GetScore(userID int) (int, error)
	ReportCompletion(userID int, orderCode string)
}

const defaultTrustScore = 100

// trustScoreHTTP talks to the external trust score service. With no
// base URL configured it falls back to the default score and drops
// outcome reports, so local setups work without the collaborator.
type trustScoreHTTP struct {
	baseURL string
	client  *http.Client
}

func NewTrustScoreClient(baseURL string) TrustScoreClient {
	return &trustScoreHTTP{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (t *trustScoreHTTP) GetScore(userID int) (int, error) {
	if t.baseURL == "" {
		return defaultTrustScore, nil
	}
	resp, err := t.client.Get(fmt.Sprintf("%s/scores/%d", t.baseURL, userID))
	if err != nil {
		return 0, fmt.Errorf("error fetching trust score for user %d: %w", userID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("trust score service returned status %d for user %d", resp.StatusCode, userID)
	}
	var body struct {
		Score int `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("error decoding trust score response: %w", err)
	}
	return body.Score, nil
}

// ReportCompletion is fire-and-forget: a failed ledger write never
// rolls back the completion that triggered it.
func (t *trustScoreHTTP) ReportCompletion(userID int, orderCode string) {
	if t.baseURL == "" {
		return
	}
	go func() {
		resp, err := t.client.Post(
			fmt.Sprintf("%s/scores/%d/completions?order=%s", t.baseURL, userID, orderCode),
			"application/json", nil)
		if err != nil {
			log.Printf("Failed to report completion of order %s for user %d: %v", orderCode, userID, err)
			return
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			log.Printf("Trust score service rejected completion report for order %s: status %d", orderCode, resp.StatusCode)
		}
	}()
}
