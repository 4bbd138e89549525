package offers

import (
	"errors"
	"fmt"
)

// ErrorKind классифицирует ошибки взаимодействия с сервисом предложений
type ErrorKind int

const (
	// KindRequestFailed — сетевая ошибка или таймаут при выполнении запроса
	KindRequestFailed ErrorKind = iota + 1

	// KindInvalidJSON — сервис вернул тело, которое не удалось разобрать как JSON
	KindInvalidJSON

	// KindNoAuth — попытка авторизованного вызова без полученного токена.
	// Клиент никогда не аутентифицируется сам внутри вызова данных,
	// сначала нужно вызвать Authenticate или EnsureToken.
	KindNoAuth

	// KindCannotParseToken — аутентификация вернула успешный статус,
	// но в теле ответа отсутствует поле с токеном
	KindCannotParseToken

	// KindUnexpectedResponse — сервис вернул не распознанную комбинацию
	// статуса и тела; вероятно, контракт сервиса изменился и клиент
	// требует доработки
	KindUnexpectedResponse

	// KindBadRequest — сервис явно вернул ошибку 400
	KindBadRequest

	// KindUnauthorized — сервис явно вернул ошибку 401
	KindUnauthorized

	// KindNotFound — сервис явно вернул ошибку 404
	KindNotFound
)

// String возвращает текстовое имя вида ошибки
func (k ErrorKind) String() string {
	switch k {
	case KindRequestFailed:
		return "request failed"
	case KindInvalidJSON:
		return "invalid json response"
	case KindNoAuth:
		return "no authentication"
	case KindCannotParseToken:
		return "cannot parse token"
	case KindUnexpectedResponse:
		return "unexpected response"
	case KindBadRequest:
		return "bad request"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// Error представляет ошибку взаимодействия с сервисом предложений.
// Вместо иерархии типов используется один тип с полем Kind,
// вызывающая сторона сопоставляет ошибки через IsKind или errors.As.
type Error struct {
	Kind     ErrorKind
	Endpoint string
	Status   int    // HTTP-статус ответа, если ответ был получен
	Body     []byte // сырое тело ответа для диагностики
	Message  string // сообщение из тела ответа для ожидаемых ошибок
	Err      error  // исходная низкоуровневая причина
}

// Error реализация интерфейса error
func (e *Error) Error() string {
	msg := fmt.Sprintf("offers: %s: %s", e.Endpoint, e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap возвращает исходную причину ошибки
func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind сообщает, является ли err ошибкой сервиса предложений заданного вида
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
