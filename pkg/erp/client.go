// Package erp provides the HTTP client for the plant ERP system. It backs
// the engine's inventory and document collaborators with live ERP data.
package erp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/machshop/machshop/pkg/eco"
)

// Config holds ERP client configuration.
type Config struct {
	// BaseURL is the ERP API root, e.g. https://erp.plant.local/api/v1.
	BaseURL string `yaml:"base_url"`

	// Token is the bearer token for ERP API calls.
	Token string `yaml:"token"`

	// TimeoutSeconds bounds a single request attempt.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// RetryCount is the number of retries on transport failure.
	RetryCount int `yaml:"retry_count"`
}

// Client talks to the plant ERP system. It implements eco.InventoryGateway
// and eco.DocumentStore.
type Client struct {
	http   *resty.Client
	logger zerolog.Logger
}

// inventoryResponse mirrors the ERP inventory endpoint payload.
type inventoryResponse struct {
	PartNumber          string  `json:"partNumber"`
	WIPQuantity         float64 `json:"wipQuantity"`
	FinishedQuantity    float64 `json:"finishedQuantity"`
	RawMaterialQuantity float64 `json:"rawMaterialQuantity"`
	UnitCost            float64 `json:"unitCost"`
}

// documentResponse mirrors the ERP document master payload.
type documentResponse struct {
	DocumentType string `json:"documentType"`
	DocumentID   string `json:"documentId"`
	Version      string `json:"version"`
}

// NewClient creates an ERP client with retry and auth configured.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ERP base URL is required")
	}
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = 10
	}
	if cfg.RetryCount == 0 {
		cfg.RetryCount = 3
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	return &Client{
		http:   client,
		logger: logger.With().Str("component", "erp").Logger(),
	}, nil
}

// PartInventory fetches the per-part quantity breakdown from the ERP.
// Implements eco.InventoryGateway.
func (c *Client) PartInventory(ctx context.Context, partNumber string) (*eco.PartInventory, error) {
	var body inventoryResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		SetPathParam("partNumber", partNumber).
		Get("/inventory/{partNumber}")
	if err != nil {
		c.logger.Error().Err(err).Str("part_number", partNumber).Msg("ERP inventory call failed")
		return nil, eco.NewInternalError("ERP inventory request failed", err).
			WithResource(partNumber).WithOperation("PartInventory")
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, eco.NewNotFoundError("part not found in ERP", partNumber).
			WithCode(eco.ErrCodePartNotFound)
	default:
		c.logger.Error().Int("status_code", resp.StatusCode()).
			Str("part_number", partNumber).Msg("ERP inventory returned error")
		return nil, eco.NewInternalError(
			fmt.Sprintf("ERP inventory returned status %d", resp.StatusCode()), nil).
			WithResource(partNumber).WithOperation("PartInventory")
	}

	return &eco.PartInventory{
		PartNumber:    body.PartNumber,
		WorkInProcess: body.WIPQuantity,
		FinishedGoods: body.FinishedQuantity,
		RawMaterial:   body.RawMaterialQuantity,
		UnitCost:      body.UnitCost,
	}, nil
}

// CurrentVersion fetches a document's released version from the ERP
// document master. Implements eco.DocumentStore.
func (c *Client) CurrentVersion(ctx context.Context, documentType, documentID string) (string, error) {
	var body documentResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		SetPathParams(map[string]string{
			"documentType": documentType,
			"documentId":   documentID,
		}).
		Get("/documents/{documentType}/{documentId}")
	if err != nil {
		c.logger.Error().Err(err).
			Str("document_type", documentType).
			Str("document_id", documentID).
			Msg("ERP document call failed")
		return "", eco.NewInternalError("ERP document request failed", err).
			WithResource(documentID).WithOperation("CurrentVersion")
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", eco.NewNotFoundError("document not found in ERP", documentID).
			WithCode(eco.ErrCodeDocumentNotFound).
			WithDetail("document_type", documentType)
	default:
		c.logger.Error().Int("status_code", resp.StatusCode()).
			Str("document_id", documentID).Msg("ERP document returned error")
		return "", eco.NewInternalError(
			fmt.Sprintf("ERP document returned status %d", resp.StatusCode()), nil).
			WithResource(documentID).WithOperation("CurrentVersion")
	}

	return body.Version, nil
}
