package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/athebyme/offers-service/internal/domain/models"
	"github.com/athebyme/offers-service/internal/domain/services"
	"github.com/athebyme/offers-service/internal/utils"
	"github.com/athebyme/offers-service/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// ProductHandler обработчик запросов для товаров
type ProductHandler struct {
	productService services.ProductServiceInterface
	logger         interfaces.LoggerPort
}

// NewProductHandler создает новый обработчик товаров
func NewProductHandler(productService services.ProductServiceInterface, logger interfaces.LoggerPort) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// errorResponse представляет структуру ответа с ошибкой
type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// response представляет структуру успешного ответа
type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// listMeta метаданные пагинации
type listMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// createProductRequest тело запроса на создание товара
type createProductRequest struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// updateProductRequest тело запроса на обновление товара.
// Поля опциональны, но хотя бы одно должно быть задано.
type updateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func renderError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{
		Error:   code,
		Code:    status,
		Message: message,
	})
}

// productID извлекает ID товара из URL
func productID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		return 0, utils.ErrInvalidProductId
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, utils.ErrInvalidProductId
	}
	return id, nil
}

// CreateProduct обрабатывает запрос на создание товара
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, http.StatusBadRequest, "bad_request", "Некорректное тело запроса")
		return
	}

	product := &models.Product{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
	}

	created, err := h.productService.CreateProduct(r.Context(), product)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrInvalidProductId):
			renderError(w, r, http.StatusBadRequest, "bad_request", "Некорректные данные товара")
		case errors.Is(err, utils.ErrProductExists):
			renderError(w, r, http.StatusConflict, "conflict", "Товар с таким ID уже существует")
		default:
			h.logger.ErrorWithContext(r.Context(), "Ошибка создания товара",
				interfaces.LogField{Key: "error", Value: err.Error()})
			renderError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка создания товара")
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response{Success: true, Data: created})
}

// GetProduct обрабатывает запрос на получение товара по ID
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "bad_request", "Некорректный ID товара")
		return
	}

	product, err := h.productService.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, utils.ErrProductNotFound) {
			renderError(w, r, http.StatusNotFound, "not_found", "Товар не найден")
			return
		}
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения товара",
			interfaces.LogField{Key: "error", Value: err.Error()})
		renderError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка получения товара")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{Success: true, Data: product})
}

// ListProducts обрабатывает запрос на получение списка товаров
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.Atoi(r.URL.Query().Get("page_size"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	products, total, err := h.productService.ListProducts(r.Context(), page, pageSize)
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения списка товаров",
			interfaces.LogField{Key: "error", Value: err.Error()})
		renderError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка получения списка товаров")
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    products,
		Meta:    listMeta{Page: page, PageSize: pageSize, Total: total},
	})
}

// UpdateProduct обрабатывает запрос на обновление товара
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "bad_request", "Некорректный ID товара")
		return
	}

	var req updateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, http.StatusBadRequest, "bad_request", "Некорректное тело запроса")
		return
	}

	product, err := h.productService.UpdateProduct(r.Context(), id, req.Name, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrEmptyUpdate):
			renderError(w, r, http.StatusBadRequest, "bad_request", "Не задано ни одного поля для обновления")
		case errors.Is(err, utils.ErrProductNotFound):
			renderError(w, r, http.StatusNotFound, "not_found", "Товар не найден")
		default:
			h.logger.ErrorWithContext(r.Context(), "Ошибка обновления товара",
				interfaces.LogField{Key: "error", Value: err.Error()})
			renderError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка обновления товара")
		}
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{Success: true, Data: product})
}

// DeleteProduct обрабатывает запрос на удаление товара
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "bad_request", "Некорректный ID товара")
		return
	}

	if err := h.productService.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, utils.ErrProductNotFound) {
			renderError(w, r, http.StatusNotFound, "not_found", "Товар не найден")
			return
		}
		h.logger.ErrorWithContext(r.Context(), "Ошибка удаления товара",
			interfaces.LogField{Key: "error", Value: err.Error()})
		renderError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка удаления товара")
		return
	}

	render.NoContent(w, r)
}

// ListOffers обрабатывает запрос на получение предложений товара
func (h *ProductHandler) ListOffers(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "bad_request", "Некорректный ID товара")
		return
	}

	offers, err := h.productService.ListOffers(r.Context(), id)
	if err != nil {
		if errors.Is(err, utils.ErrProductNotFound) {
			renderError(w, r, http.StatusNotFound, "not_found", "Товар не найден")
			return
		}
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения предложений",
			interfaces.LogField{Key: "error", Value: err.Error()})
		renderError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка получения предложений")
		return
	}

	if offers == nil {
		offers = []*models.Offer{}
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{Success: true, Data: offers})
}
