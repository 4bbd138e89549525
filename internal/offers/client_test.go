package offers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memTokenStore хранилище токена в памяти для тестов
type memTokenStore struct {
	token string
}

func (s *memTokenStore) LoadToken(_ context.Context) (string, error) {
	return s.token, nil
}

func (s *memTokenStore) SaveToken(_ context.Context, token string) error {
	s.token = token
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *memTokenStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store := &memTokenStore{}
	return NewClient(srv.URL, 5*time.Second, store), store
}

func TestAuthenticate_Success(t *testing.T) {
	client, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-123"})
	})

	token, err := client.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
	assert.Equal(t, "tok-123", client.Token())
	assert.Equal(t, "tok-123", store.token, "токен должен быть сохранен в хранилище")
}

func TestAuthenticate_MissingTokenField(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"unexpected": "field"})
	})

	_, err := client.Authenticate(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindCannotParseToken))
	assert.Empty(t, client.Token())
}

func TestAuthenticate_UnexpectedStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"oops": "down"})
	})

	_, err := client.Authenticate(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnexpectedResponse))

	var offersErr *Error
	require.ErrorAs(t, err, &offersErr)
	assert.Equal(t, http.StatusInternalServerError, offersErr.Status)
	assert.NotEmpty(t, offersErr.Body)
}

func TestAuthenticate_InvalidJSON(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("<html>not json</html>"))
	})

	_, err := client.Authenticate(context.Background())
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidJSON))
}

func TestRegisterProduct_Success(t *testing.T) {
	var gotAuth string
	var gotBody registerRequest

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/products/register", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("{}"))
	})
	client.setToken("tok-123")

	err := client.RegisterProduct(context.Background(), 42, "Lednice", "Chladi jako cert")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, int64(42), gotBody.ID)
	assert.Equal(t, "Lednice", gotBody.Name)
}

func TestRegisterProduct_BadRequest(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{"code": 400, "message": "missing name"})
	})
	client.setToken("tok")

	err := client.RegisterProduct(context.Background(), 1, "", "")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindBadRequest))

	var offersErr *Error
	require.ErrorAs(t, err, &offersErr)
	assert.Equal(t, "missing name", offersErr.Message)
}

func TestProductOffers_Success(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/products/7/offers", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[{"id":1,"price":100,"items_in_stock":5},{"id":2,"price":200}]`))
	})
	client.setToken("tok")

	result, err := client.ProductOffers(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, result, 2)

	assert.True(t, result[0].Valid())
	assert.Equal(t, int64(1), *result[0].ID)
	assert.Equal(t, int64(100), *result[0].Price)
	assert.Equal(t, int64(5), *result[0].ItemsInStock)

	// Запись без items_in_stock доходит до вызывающей стороны,
	// но помечена как некорректная
	assert.False(t, result[1].Valid())
}

func TestProductOffers_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{"code": 404, "message": "product not registered"})
	})
	client.setToken("tok")

	_, err := client.ProductOffers(context.Background(), 9999)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound), "404 с корректным телом должен стать ожидаемой ошибкой")
	assert.False(t, IsKind(err, KindUnexpectedResponse))
}

func TestProductOffers_MalformedErrorBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "nope"})
	})
	client.setToken("tok")

	_, err := client.ProductOffers(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnexpectedResponse),
		"ожидаемый статус без полей code/message означает смену контракта")
}

func TestProductOffers_UnexpectedStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		json.NewEncoder(w).Encode(map[string]interface{}{"code": 418, "message": "teapot"})
	})
	client.setToken("tok")

	_, err := client.ProductOffers(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnexpectedResponse))
}

func TestAuthenticatedCall_WithoutToken(t *testing.T) {
	called := false
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := client.ProductOffers(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNoAuth))

	err = client.RegisterProduct(context.Background(), 1, "x", "y")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNoAuth))

	assert.False(t, called, "запрос не должен уходить на сервер без токена")
}

func TestRequestFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(url, time.Second, &memTokenStore{})
	client.setToken("tok")

	_, err := client.ProductOffers(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindRequestFailed))

	var offersErr *Error
	require.ErrorAs(t, err, &offersErr)
	assert.Error(t, offersErr.Unwrap(), "исходная причина должна сохраняться")
}

func TestEnsureToken_LoadsFromStore(t *testing.T) {
	called := false
	client, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	store.token = "stored-token"

	require.NoError(t, client.EnsureToken(context.Background()))
	assert.Equal(t, "stored-token", client.Token())
	assert.False(t, called, "при наличии токена в хранилище аутентификация не выполняется")
}

func TestEnsureToken_AuthenticatesWhenAbsent(t *testing.T) {
	client, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"access_token": "fresh"})
	})

	require.NoError(t, client.EnsureToken(context.Background()))
	assert.Equal(t, "fresh", client.Token())
	assert.Equal(t, "fresh", store.token)
}
