package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Kavirubc/cofound/internal/profile"
	"github.com/Kavirubc/cofound/pkg/models"
)

// RecommendationsResponse is the payload of the recommendations endpoint
type RecommendationsResponse struct {
	Recommendations []models.Candidate `json:"recommendations"`
	Scores          []float64          `json:"scores,omitempty"`
}

// SwipeRequest is the body of the swipe endpoint
type SwipeRequest struct {
	TargetUserID string              `json:"target_user_id"`
	Decision     models.DecisionKind `json:"decision"`
}

// SwipeAck is the backend's acknowledgement of a recorded swipe
type SwipeAck struct {
	Message  string              `json:"message"`
	SwipeID  string              `json:"swipe_id"`
	Decision models.DecisionKind `json:"decision"`
}

// CreateUserResponse is returned by POST /users
type CreateUserResponse struct {
	Message string      `json:"message"`
	UserID  string      `json:"user_id"`
	Profile models.User `json:"profile"`
}

// SwipeHistoryResponse is returned by the swipe-history endpoint
type SwipeHistoryResponse struct {
	UserID       string               `json:"user_id"`
	SwipeHistory []models.SwipeRecord `json:"swipe_history"`
}

// LinkedInProfile is the enrichment data the backend derives from LinkedIn
type LinkedInProfile struct {
	FullName               string              `json:"full_name"`
	Role                   string              `json:"role"`
	City                   string              `json:"city"`
	State                  string              `json:"state"`
	ProfilePicURL          string              `json:"profile_pic_url"`
	Skills                 []string            `json:"skills"`
	Experiences            []models.Experience `json:"experiences"`
	Education              []models.Education  `json:"education"`
	AccomplishmentProjects []models.Project    `json:"accomplishment_projects"`
}

// FetchCandidates returns up to limit recommended candidates for userID.
// Fewer (including zero) is not an error.
func (c *Client) FetchCandidates(ctx context.Context, userID string, limit int) ([]models.Candidate, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var resp RecommendationsResponse
	if err := c.do(ctx, "fetch recommendations", http.MethodGet, userPath(userID, "/recommendations"), q, nil, &resp); err != nil {
		return nil, err
	}

	candidates := resp.Recommendations[:0]
	for _, cand := range resp.Recommendations {
		if cand.ID == "" {
			c.logger.Warn("candidate_without_id_skipped", slog.String("user_id", userID))
			continue
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// SubmitDecision records userID's decision on targetID
func (c *Client) SubmitDecision(ctx context.Context, userID, targetID string, kind models.DecisionKind) (*SwipeAck, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid decision kind %d", int(kind))
	}

	body := SwipeRequest{TargetUserID: targetID, Decision: kind}
	var ack SwipeAck
	if err := c.do(ctx, "record swipe", http.MethodPost, userPath(userID, "/swipe"), nil, body, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// UpdateProfile applies a partial profile update and returns the stored profile
func (c *Client) UpdateProfile(ctx context.Context, userID string, fields map[string]any) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, "update profile", http.MethodPut, userPath(userID, "/profile"), nil, fields, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetProfile fetches a member profile
func (c *Client) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, "fetch profile", http.MethodGet, userPath(userID, "/profile"), nil, nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		user.ID = userID
	}
	return &user, nil
}

// CreateUser submits a completed profile setup. The backend expects the
// LinkedIn username under linkedin_id alongside the form fields.
func (c *Client) CreateUser(ctx context.Context, setup models.ProfileSetup) (*models.User, error) {
	linkedinID, err := profile.ExtractLinkedInID(setup.LinkedInURL)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(setup)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile setup: %w", err)
	}
	payload := map[string]any{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to build profile payload: %w", err)
	}
	payload["linkedin_id"] = linkedinID

	var resp CreateUserResponse
	if err := c.do(ctx, "create user", http.MethodPost, "/users", nil, payload, &resp); err != nil {
		return nil, err
	}
	if resp.Profile.ID == "" {
		resp.Profile.ID = resp.UserID
	}
	return &resp.Profile, nil
}

// SwipeHistory returns userID's most recent swipes
func (c *Client) SwipeHistory(ctx context.Context, userID string, limit int) ([]models.SwipeRecord, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var resp SwipeHistoryResponse
	if err := c.do(ctx, "fetch swipe history", http.MethodGet, userPath(userID, "/swipe-history"), q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.SwipeHistory, nil
}

// LinkedInProfile fetches the backend's LinkedIn enrichment for linkedinID
func (c *Client) LinkedInProfile(ctx context.Context, linkedinID string) (*LinkedInProfile, error) {
	var p LinkedInProfile
	path := "/linkedin/profile/" + url.PathEscape(linkedinID)
	if err := c.do(ctx, "fetch LinkedIn profile", http.MethodGet, path, nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
