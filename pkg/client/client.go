package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/terra-clan/procure-sim/internal/models"
	"github.com/terra-clan/procure-sim/internal/sim"
)

// Client is a Go SDK for the procure-sim API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new procure-sim client
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// OrderItem is one line of an order request
type OrderItem = models.OrderItem

// PurchaseOrderRequest creates a purchase order against a supplier
type PurchaseOrderRequest struct {
	UserID     string      `json:"user_id"`
	SupplierID string      `json:"supplier_id"`
	Items      []OrderItem `json:"items"`
}

// SalesOrderRequest creates a sales order for a customer
type SalesOrderRequest struct {
	UserID       string      `json:"user_id"`
	CustomerName string      `json:"customer_name"`
	Items        []OrderItem `json:"items"`
}

// NegotiateRequest asks a supplier for a price on a product
type NegotiateRequest struct {
	SupplierID     string          `json:"supplier_id"`
	ProductID      string          `json:"product_id"`
	RequestedPrice decimal.Decimal `json:"requested_price"`
	Quantity       int             `json:"quantity"`
}

// PriceRequest asks for a pricing recommendation
type PriceRequest struct {
	ProductID    string          `json:"product_id"`
	BaseCost     decimal.Decimal `json:"base_cost"`
	TargetMargin float64         `json:"target_margin"`
}

// OrderListOptions narrows ListOrders
type OrderListOptions struct {
	Type   string
	Status string
	Limit  int
	Offset int
}

// --- Task lifecycle ---

// StartTask begins (or resumes) a simulation run
func (c *Client) StartTask(ctx context.Context, taskID, userID string) (*models.StudentProgress, error) {
	var progress models.StudentProgress
	err := c.call(ctx, "POST", "/api/v1/tasks/"+taskID+"/start",
		map[string]string{"user_id": userID}, &progress)
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// AdvanceDay moves the simulation forward one day
func (c *Client) AdvanceDay(ctx context.Context, taskID, userID string) (*models.StudentProgress, error) {
	var progress models.StudentProgress
	err := c.call(ctx, "POST", "/api/v1/tasks/"+taskID+"/advance",
		map[string]string{"user_id": userID}, &progress)
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// CompleteTask finalizes a run and returns the evaluation
func (c *Client) CompleteTask(ctx context.Context, taskID, userID string) (*models.EvaluationRecord, error) {
	var eval models.EvaluationRecord
	err := c.call(ctx, "POST", "/api/v1/tasks/"+taskID+"/complete",
		map[string]string{"user_id": userID}, &eval)
	if err != nil {
		return nil, err
	}
	return &eval, nil
}

// GetProgress retrieves the current progress for one run
func (c *Client) GetProgress(ctx context.Context, taskID, userID string) (*models.StudentProgress, error) {
	var progress models.StudentProgress
	err := c.call(ctx, "GET", "/api/v1/tasks/"+taskID+"/progress?user_id="+url.QueryEscape(userID), nil, &progress)
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// GetEvaluation retrieves the stored evaluation for one run
func (c *Client) GetEvaluation(ctx context.Context, taskID, userID string) (*models.EvaluationRecord, error) {
	var eval models.EvaluationRecord
	err := c.call(ctx, "GET", "/api/v1/tasks/"+taskID+"/evaluation?user_id="+url.QueryEscape(userID), nil, &eval)
	if err != nil {
		return nil, err
	}
	return &eval, nil
}

// ListFinancialRecords returns the ledger for one run
func (c *Client) ListFinancialRecords(ctx context.Context, taskID, userID string) ([]*models.FinancialRecord, error) {
	var data struct {
		Records []*models.FinancialRecord `json:"records"`
		Total   int                       `json:"total"`
	}
	err := c.call(ctx, "GET", "/api/v1/tasks/"+taskID+"/records?user_id="+url.QueryEscape(userID), nil, &data)
	if err != nil {
		return nil, err
	}
	return data.Records, nil
}

// --- Orders ---

// CreatePurchaseOrder places and processes a purchase order
func (c *Client) CreatePurchaseOrder(ctx context.Context, taskID string, req PurchaseOrderRequest) (*models.Order, error) {
	var order models.Order
	err := c.call(ctx, "POST", "/api/v1/tasks/"+taskID+"/orders/purchase", req, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateSalesOrder places and processes a sales order
func (c *Client) CreateSalesOrder(ctx context.Context, taskID string, req SalesOrderRequest) (*models.Order, error) {
	var order models.Order
	err := c.call(ctx, "POST", "/api/v1/tasks/"+taskID+"/orders/sales", req, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder cancels a pending order
func (c *Client) CancelOrder(ctx context.Context, taskID, orderID, userID string) (*models.Order, error) {
	var order models.Order
	err := c.call(ctx, "POST", "/api/v1/tasks/"+taskID+"/orders/"+orderID+"/cancel",
		map[string]string{"user_id": userID}, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders returns orders for one run
func (c *Client) ListOrders(ctx context.Context, taskID, userID string, opts OrderListOptions) ([]*models.Order, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	if opts.Type != "" {
		q.Set("type", opts.Type)
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}

	var data struct {
		Orders []*models.Order `json:"orders"`
		Total  int             `json:"total"`
	}
	err := c.call(ctx, "GET", "/api/v1/tasks/"+taskID+"/orders?"+q.Encode(), nil, &data)
	if err != nil {
		return nil, err
	}
	return data.Orders, nil
}

// NegotiatePrice runs a single-shot price negotiation
func (c *Client) NegotiatePrice(ctx context.Context, req NegotiateRequest) (*sim.NegotiationResult, error) {
	var result sim.NegotiationResult
	err := c.call(ctx, "POST", "/api/v1/negotiate", req, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// --- Inventory ---

// ListInventory returns the stock records for one run
func (c *Client) ListInventory(ctx context.Context, taskID, userID string) ([]*models.InventoryRecord, error) {
	var data struct {
		Inventory []*models.InventoryRecord `json:"inventory"`
		Total     int                       `json:"total"`
	}
	err := c.call(ctx, "GET", "/api/v1/tasks/"+taskID+"/inventory?user_id="+url.QueryEscape(userID), nil, &data)
	if err != nil {
		return nil, err
	}
	return data.Inventory, nil
}

// CheckLowStock returns low-stock alerts for one run
func (c *Client) CheckLowStock(ctx context.Context, taskID, userID string) ([]models.StockAlert, error) {
	var data struct {
		Alerts []models.StockAlert `json:"alerts"`
		Total  int                 `json:"total"`
	}
	err := c.call(ctx, "GET", "/api/v1/tasks/"+taskID+"/inventory/alerts?user_id="+url.QueryEscape(userID), nil, &data)
	if err != nil {
		return nil, err
	}
	return data.Alerts, nil
}

// AnalyzeTurnover returns per-product turnover figures for one run
func (c *Client) AnalyzeTurnover(ctx context.Context, taskID, userID string) ([]models.TurnoverReport, error) {
	var data struct {
		Turnover []models.TurnoverReport `json:"turnover"`
		Total    int                     `json:"total"`
	}
	err := c.call(ctx, "GET", "/api/v1/tasks/"+taskID+"/inventory/turnover?user_id="+url.QueryEscape(userID), nil, &data)
	if err != nil {
		return nil, err
	}
	return data.Turnover, nil
}

// ReorderQuantity returns the economic order quantity for a product
func (c *Client) ReorderQuantity(ctx context.Context, productID string, averageDailyDemand, orderingCost, holdingCost float64) (int, error) {
	q := url.Values{}
	q.Set("average_demand", strconv.FormatFloat(averageDailyDemand, 'f', -1, 64))
	q.Set("ordering_cost", strconv.FormatFloat(orderingCost, 'f', -1, 64))
	q.Set("holding_cost", strconv.FormatFloat(holdingCost, 'f', -1, 64))

	var data struct {
		ProductID       string `json:"product_id"`
		ReorderQuantity int    `json:"reorder_quantity"`
	}
	err := c.call(ctx, "GET", "/api/v1/products/"+url.PathEscape(productID)+"/reorder?"+q.Encode(), nil, &data)
	if err != nil {
		return 0, err
	}
	return data.ReorderQuantity, nil
}

// --- Market ---

// GetMarketData returns the latest snapshot for one category
func (c *Client) GetMarketData(ctx context.Context, category string) (*models.MarketData, error) {
	var md models.MarketData
	err := c.call(ctx, "GET", "/api/v1/market/"+url.PathEscape(category), nil, &md)
	if err != nil {
		return nil, err
	}
	return &md, nil
}

// AnalyzeTrends ticks and analyzes the given market categories
func (c *Client) AnalyzeTrends(ctx context.Context, categories []string) (*models.TrendReport, error) {
	var report models.TrendReport
	err := c.call(ctx, "POST", "/api/v1/market/trends",
		map[string][]string{"categories": categories}, &report)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// OptimalPrice returns a pricing recommendation for one product
func (c *Client) OptimalPrice(ctx context.Context, req PriceRequest) (*models.PriceQuote, error) {
	var quote models.PriceQuote
	err := c.call(ctx, "POST", "/api/v1/market/price", req, &quote)
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// --- Catalog ---

// ListTasks retrieves the available training tasks
func (c *Client) ListTasks(ctx context.Context) ([]*models.TrainingTask, error) {
	var data struct {
		Tasks []*models.TrainingTask `json:"tasks"`
		Total int                    `json:"total"`
	}
	err := c.call(ctx, "GET", "/api/v1/tasks", nil, &data)
	if err != nil {
		return nil, err
	}
	return data.Tasks, nil
}

// ListSuppliers retrieves all suppliers
func (c *Client) ListSuppliers(ctx context.Context) ([]*models.Supplier, error) {
	var data struct {
		Suppliers []*models.Supplier `json:"suppliers"`
		Total     int                `json:"total"`
	}
	err := c.call(ctx, "GET", "/api/v1/suppliers", nil, &data)
	if err != nil {
		return nil, err
	}
	return data.Suppliers, nil
}

// ListProducts retrieves all products
func (c *Client) ListProducts(ctx context.Context) ([]*models.Product, error) {
	var data struct {
		Products []*models.Product `json:"products"`
		Total    int               `json:"total"`
	}
	err := c.call(ctx, "GET", "/api/v1/products", nil, &data)
	if err != nil {
		return nil, err
	}
	return data.Products, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, "GET", "/health", nil)
	return err
}

// call performs a request and decodes the data field of the response
// envelope into out (out may be nil to discard the payload)
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	resp, err := c.doRequest(ctx, method, path, reqBody)
	if err != nil {
		return err
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		if result.Error != nil {
			return fmt.Errorf("API error: %s - %s", result.Error.Code, result.Error.Message)
		}
		return fmt.Errorf("API error: request failed")
	}

	if out != nil && result.Data != nil {
		if err := json.Unmarshal(result.Data, out); err != nil {
			return fmt.Errorf("failed to unmarshal data: %w", err)
		}
	}

	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
