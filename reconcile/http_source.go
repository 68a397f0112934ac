package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// HTTPSource reads snapshots from a running server's REST API. The restaurant is
// taken from the token, restaurantID arguments only have to match it.
type HTTPSource struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewHTTPSource(baseURL, token string) *HTTPSource {
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSource) Snapshot(ctx context.Context, restaurantID uint) (*services.Snapshot, error) {
	var snap services.Snapshot
	if err := s.get(ctx, "/api/snapshot", &snap); err != nil {
		return nil, err
	}
	if snap.RestaurantID != restaurantID {
		return nil, fmt.Errorf("token is scoped to restaurant %d, not %d", snap.RestaurantID, restaurantID)
	}
	return &snap, nil
}

func (s *HTTPSource) TableSnapshot(ctx context.Context, restaurantID, tableID uint) (*services.TableSnapshot, error) {
	var snap services.TableSnapshot
	if err := s.get(ctx, fmt.Sprintf("/api/tables/%d", tableID), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *HTTPSource) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	var body struct {
		utils.JSONResponse
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("GET %s: bad response: %w", path, err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound && strings.HasPrefix(path, "/api/tables/"):
		return services.ErrTableNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("GET %s: %d %s", path, resp.StatusCode, body.Message)
	}
	return json.Unmarshal(body.Data, out)
}
