package offers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/athebyme/offers-service/internal/domain/models"
)

// Пути API сервиса предложений
const (
	authPath     = "/auth"
	registerPath = "/products/register"
	offersPath   = "/products/%d/offers"
)

// Поля ответов сервиса предложений
const (
	accessTokenField = "access_token"
)

// TokenStore определяет долговременное хранилище токена доступа.
// Токен читается при старте и сохраняется при каждой аутентификации.
type TokenStore interface {
	LoadToken(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
}

// Client клиент внешнего сервиса предложений. Владеет токеном доступа;
// токен защищен мьютексом, так как клиент может использоваться одновременно
// обработчиками API и фоновой синхронизацией.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      TokenStore

	mu    sync.RWMutex
	token string
}

// NewClient создает новый клиент сервиса предложений
func NewClient(baseURL string, timeout time.Duration, store TokenStore) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		store:      store,
	}
}

// Token возвращает текущий токен доступа (пустая строка, если токена нет)
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// EnsureToken загружает токен из хранилища; если токена нет,
// выполняет аутентификацию и сохраняет полученный токен.
// Вызывается один раз при старте процесса.
func (c *Client) EnsureToken(ctx context.Context) error {
	token, err := c.store.LoadToken(ctx)
	if err != nil {
		return fmt.Errorf("загрузка токена из хранилища: %w", err)
	}
	if token != "" {
		c.setToken(token)
		return nil
	}

	if _, err := c.Authenticate(ctx); err != nil {
		return err
	}
	return nil
}

// Authenticate выполняет аутентификацию в сервисе предложений.
// Успехом считается только статус 201; токен извлекается из тела ответа,
// становится текущим токеном клиента и сохраняется в хранилище.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	status, body, err := c.do(ctx, http.MethodPost, authPath, nil, false)
	if err != nil {
		return "", err
	}

	if status != http.StatusCreated {
		return "", &Error{Kind: KindUnexpectedResponse, Endpoint: authPath, Status: status, Body: body}
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", &Error{Kind: KindInvalidJSON, Endpoint: authPath, Status: status, Body: body, Err: err}
	}

	raw, ok := payload[accessTokenField]
	if !ok {
		return "", &Error{Kind: KindCannotParseToken, Endpoint: authPath, Status: status, Body: body}
	}

	var token string
	if err := json.Unmarshal(raw, &token); err != nil {
		return "", &Error{Kind: KindCannotParseToken, Endpoint: authPath, Status: status, Body: body, Err: err}
	}

	c.setToken(token)

	if c.store != nil {
		if err := c.store.SaveToken(ctx, token); err != nil {
			return "", fmt.Errorf("сохранение токена в хранилище: %w", err)
		}
	}

	return token, nil
}

// registerRequest тело запроса регистрации товара
type registerRequest struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RegisterProduct регистрирует товар в сервисе предложений.
// Успехом считается только статус 201; ожидаемые ошибки: 400, 401.
func (c *Client) RegisterProduct(ctx context.Context, id int64, name, description string) error {
	payload := registerRequest{ID: id, Name: name, Description: description}

	status, body, err := c.do(ctx, http.MethodPost, registerPath, payload, true)
	if err != nil {
		return err
	}

	if status == http.StatusCreated {
		return nil
	}

	return classify(registerPath, status, body, http.StatusBadRequest, http.StatusUnauthorized)
}

// ProductOffers возвращает текущие предложения сервиса для товара.
// Успехом считается только статус 200; ожидаемые ошибки: 400, 401, 404
// (404 означает, что товар не зарегистрирован в сервисе).
func (c *Client) ProductOffers(ctx context.Context, productID int64) ([]models.RemoteOffer, error) {
	endpoint := fmt.Sprintf(offersPath, productID)

	status, body, err := c.do(ctx, http.MethodGet, endpoint, nil, true)
	if err != nil {
		return nil, err
	}

	if status == http.StatusOK {
		var result []models.RemoteOffer
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, &Error{Kind: KindInvalidJSON, Endpoint: endpoint, Status: status, Body: body, Err: err}
		}
		return result, nil
	}

	return nil, classify(endpoint, status, body,
		http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound)
}

// do выполняет HTTP-запрос к сервису предложений и возвращает статус
// и сырое тело ответа. Для авторизованных вызовов требует наличия токена.
func (c *Client) do(ctx context.Context, method, endpoint string, payload interface{}, authed bool) (int, []byte, error) {
	var token string
	if authed {
		token = c.Token()
		if token == "" {
			return 0, nil, &Error{Kind: KindNoAuth, Endpoint: endpoint}
		}
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("сериализация тела запроса: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("создание запроса: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &Error{Kind: KindRequestFailed, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &Error{Kind: KindRequestFailed, Endpoint: endpoint, Status: resp.StatusCode, Err: err}
	}

	if !json.Valid(body) {
		return 0, nil, &Error{Kind: KindInvalidJSON, Endpoint: endpoint, Status: resp.StatusCode, Body: body}
	}

	return resp.StatusCode, body, nil
}

// errorBody тело ответа с ошибкой сервиса предложений
type errorBody struct {
	Code    *int    `json:"code"`
	Message *string `json:"message"`
}

// classify разбирает неуспешный ответ. Если статус входит в ожидаемый для
// операции набор и тело содержит поля code и message, возвращается
// типизированная ожидаемая ошибка, выбранная по коду из тела. Любая другая
// комбинация означает изменение контракта сервиса и классифицируется
// как KindUnexpectedResponse.
func classify(endpoint string, status int, body []byte, expected ...int) error {
	var payload errorBody
	bodyValid := json.Unmarshal(body, &payload) == nil && payload.Code != nil && payload.Message != nil

	if bodyValid && statusExpected(status, expected) {
		if kind := kindForCode(*payload.Code); kind != 0 {
			return &Error{Kind: kind, Endpoint: endpoint, Status: status, Message: *payload.Message}
		}
	}

	return &Error{Kind: KindUnexpectedResponse, Endpoint: endpoint, Status: status, Body: body}
}

func statusExpected(status int, expected []int) bool {
	for _, e := range expected {
		if status == e {
			return true
		}
	}
	return false
}

// kindForCode сопоставляет код ошибки из тела ответа с видом ожидаемой ошибки
func kindForCode(code int) ErrorKind {
	switch code {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusNotFound:
		return KindNotFound
	default:
		return 0
	}
}
