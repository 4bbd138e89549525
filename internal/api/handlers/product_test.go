package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/athebyme/offers-service/internal/domain/models"
	"github.com/athebyme/offers-service/internal/utils"
	"github.com/athebyme/offers-service/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProductService управляемая реализация сервиса товаров для тестов
type fakeProductService struct {
	products map[int64]*models.Product
	offers   map[int64][]*models.Offer
}

func newFakeProductService() *fakeProductService {
	return &fakeProductService{
		products: make(map[int64]*models.Product),
		offers:   make(map[int64][]*models.Offer),
	}
}

func (f *fakeProductService) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.ID <= 0 || product.Name == "" {
		return nil, utils.ErrInvalidProductId
	}
	if _, ok := f.products[product.ID]; ok {
		return nil, utils.ErrProductExists
	}
	f.products[product.ID] = product
	return product, nil
}

func (f *fakeProductService) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	product, ok := f.products[productID]
	if !ok {
		return nil, utils.ErrProductNotFound
	}
	return product, nil
}

func (f *fakeProductService) ListProducts(ctx context.Context, page, pageSize int) ([]*models.Product, int, error) {
	var products []*models.Product
	for _, p := range f.products {
		products = append(products, p)
	}
	return products, len(products), nil
}

func (f *fakeProductService) UpdateProduct(ctx context.Context, productID int64, name, description *string) (*models.Product, error) {
	if name == nil && description == nil {
		return nil, utils.ErrEmptyUpdate
	}
	product, ok := f.products[productID]
	if !ok {
		return nil, utils.ErrProductNotFound
	}
	if name != nil {
		product.Name = *name
	}
	if description != nil {
		product.Description = *description
	}
	return product, nil
}

func (f *fakeProductService) DeleteProduct(ctx context.Context, productID int64) error {
	if _, ok := f.products[productID]; !ok {
		return utils.ErrProductNotFound
	}
	delete(f.products, productID)
	return nil
}

func (f *fakeProductService) ListOffers(ctx context.Context, productID int64) ([]*models.Offer, error) {
	if _, ok := f.products[productID]; !ok {
		return nil, utils.ErrProductNotFound
	}
	return f.offers[productID], nil
}

// nopLogger отбрасывает все записи; используется в тестах
type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

func (nopLogger) DebugWithContext(ctx context.Context, msg string, args ...interface{}) {}
func (nopLogger) InfoWithContext(ctx context.Context, msg string, args ...interface{})  {}
func (nopLogger) WarnWithContext(ctx context.Context, msg string, args ...interface{})  {}
func (nopLogger) ErrorWithContext(ctx context.Context, msg string, args ...interface{}) {}

func (l nopLogger) WithFields(fields ...interfaces.LogField) interfaces.LoggerPort { return l }
func (l nopLogger) WithField(key string, value interface{}) interfaces.LoggerPort  { return l }

func (nopLogger) Sync() error { return nil }

func newTestRouter(service *fakeProductService) *chi.Mux {
	handler := NewProductHandler(service, nopLogger{})

	r := chi.NewRouter()
	r.Route("/products", func(r chi.Router) {
		r.Get("/", handler.ListProducts)
		r.Post("/", handler.CreateProduct)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", handler.GetProduct)
			r.Put("/", handler.UpdateProduct)
			r.Delete("/", handler.DeleteProduct)
			r.Get("/offers", handler.ListOffers)
		})
	})
	return r
}

func doRequest(t *testing.T, router *chi.Mux, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateProduct(t *testing.T) {
	service := newFakeProductService()
	router := newTestRouter(service)

	rec := doRequest(t, router, http.MethodPost, "/products",
		map[string]interface{}{"id": 1, "name": "Стол", "description": "Дубовый"})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, service.products, int64(1))
	assert.Equal(t, "Стол", service.products[1].Name)
}

func TestCreateProduct_Conflict(t *testing.T) {
	service := newFakeProductService()
	service.products[1] = &models.Product{ID: 1, Name: "Стол"}
	router := newTestRouter(service)

	rec := doRequest(t, router, http.MethodPost, "/products",
		map[string]interface{}{"id": 1, "name": "Стол"})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateProduct_InvalidBody(t *testing.T) {
	service := newFakeProductService()
	router := newTestRouter(service)

	req := httptest.NewRequest(http.MethodPost, "/products", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProduct(t *testing.T) {
	service := newFakeProductService()
	service.products[7] = &models.Product{ID: 7, Name: "Стул"}
	router := newTestRouter(service)

	rec := doRequest(t, router, http.MethodGet, "/products/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool           `json:"success"`
		Data    models.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, int64(7), body.Data.ID)
	assert.Equal(t, "Стул", body.Data.Name)
}

func TestGetProduct_NotFound(t *testing.T) {
	router := newTestRouter(newFakeProductService())

	rec := doRequest(t, router, http.MethodGet, "/products/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetProduct_InvalidID(t *testing.T) {
	router := newTestRouter(newFakeProductService())

	rec := doRequest(t, router, http.MethodGet, "/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProduct(t *testing.T) {
	service := newFakeProductService()
	service.products[1] = &models.Product{ID: 1, Name: "Стол", Description: "Старое"}
	router := newTestRouter(service)

	rec := doRequest(t, router, http.MethodPut, "/products/1",
		map[string]interface{}{"description": "Новое"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Стол", service.products[1].Name)
	assert.Equal(t, "Новое", service.products[1].Description)
}

func TestUpdateProduct_EmptyBody(t *testing.T) {
	service := newFakeProductService()
	service.products[1] = &models.Product{ID: 1, Name: "Стол"}
	router := newTestRouter(service)

	rec := doRequest(t, router, http.MethodPut, "/products/1", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProduct_NotFound(t *testing.T) {
	router := newTestRouter(newFakeProductService())

	rec := doRequest(t, router, http.MethodPut, "/products/5",
		map[string]interface{}{"name": "Шкаф"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteProduct(t *testing.T) {
	service := newFakeProductService()
	service.products[1] = &models.Product{ID: 1, Name: "Стол"}
	router := newTestRouter(service)

	rec := doRequest(t, router, http.MethodDelete, "/products/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, service.products, int64(1))
}

func TestListProducts(t *testing.T) {
	service := newFakeProductService()
	service.products[1] = &models.Product{ID: 1, Name: "Стол"}
	service.products[2] = &models.Product{ID: 2, Name: "Стул"}
	router := newTestRouter(service)

	rec := doRequest(t, router, http.MethodGet, "/products?page=1&page_size=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool             `json:"success"`
		Data    []models.Product `json:"data"`
		Meta    listMeta         `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
	assert.Equal(t, 2, body.Meta.Total)
}

func TestListOffers(t *testing.T) {
	service := newFakeProductService()
	service.products[1] = &models.Product{ID: 1, Name: "Стол"}
	service.offers[1] = []*models.Offer{
		{ID: 1, ProductID: 1, RemoteID: 100, Price: 500, ItemsInStock: 3},
	}
	router := newTestRouter(service)

	rec := doRequest(t, router, http.MethodGet, "/products/1/offers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool           `json:"success"`
		Data    []models.Offer `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, int64(100), body.Data[0].RemoteID)
}

func TestListOffers_EmptyList(t *testing.T) {
	service := newFakeProductService()
	service.products[1] = &models.Product{ID: 1, Name: "Стол"}
	router := newTestRouter(service)

	rec := doRequest(t, router, http.MethodGet, "/products/1/offers", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}
