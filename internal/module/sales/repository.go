package sales

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/simp-lee/salesboard/internal/domain"
)

const (
	salesPath = "/sales"

	// maxErrorBody bounds how much of a failed upstream response is kept for logs.
	maxErrorBody = 512
)

// httpRepository implements domain.SaleRepository against the sales backend's REST API.
type httpRepository struct {
	baseURL string
	client  *http.Client
}

// NewSaleRepository creates a repository that talks to the sales backend at baseURL.
// A nil client is replaced by one with the given timeout.
func NewSaleRepository(baseURL string, client *http.Client, timeout time.Duration) domain.SaleRepository {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &httpRepository{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// List fetches every sale record with GET /sales.
func (r *httpRepository) List(ctx context.Context) ([]domain.Sale, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+salesPath, nil)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "build list request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeNetwork, domain.ErrNetwork.Message, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var sales []domain.Sale
	if err := gojson.NewDecoder(resp.Body).Decode(&sales); err != nil {
		return nil, domain.NewAppError(domain.CodeUpstream, "malformed sales response", err)
	}
	if sales == nil {
		sales = []domain.Sale{}
	}
	return sales, nil
}

// Create posts a new sale with POST /sales. Any 2xx status is success.
func (r *httpRepository) Create(ctx context.Context, sale domain.NewSale) error {
	body, err := gojson.Marshal(sale)
	if err != nil {
		return domain.NewAppError(domain.CodeInternal, "encode sale", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+salesPath, bytes.NewReader(body))
	if err != nil {
		return domain.NewAppError(domain.CodeInternal, "build create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return domain.NewAppError(domain.CodeNetwork, domain.ErrNetwork.Message, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var detail error
	if text := strings.TrimSpace(string(snippet)); text != "" {
		detail = errors.New(text)
	}
	return domain.NewAppError(domain.CodeUpstream, fmt.Sprintf("sales backend returned %d", resp.StatusCode), detail)
}
