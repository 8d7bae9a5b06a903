package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/shaiso/Dirigent/internal/domain"
)

// ErrHTTPRequest — ошибка выполнения HTTP-попытки.
var ErrHTTPRequest = errors.New("http runner request failed")

const maxErrorBodyLen = 200

// HTTPRunner выполняет единицу работы HTTP-вызовом (webhook-стиль).
//
// Ссылка единицы — URL. Runner отправляет POST с JSON-телом
// {node, attempt, params} и трактует любой не-2xx ответ как ошибку
// попытки с усечённым телом ответа в сообщении. Таймаут попытки
// обеспечивает контекст, собственного таймаута у клиента нет.
type HTTPRunner struct {
	client *http.Client
}

// NewHTTPRunner создаёт HTTPRunner.
// client опционален; nil — клиент по умолчанию.
func NewHTTPRunner(client *http.Client) *HTTPRunner {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPRunner{client: client}
}

// attemptPayload — тело POST-запроса попытки.
type attemptPayload struct {
	Node    string        `json:"node"`
	Attempt int           `json:"attempt"`
	Params  domain.Params `json:"params"`
}

// Execute выполняет HTTP-попытку.
func (r *HTTPRunner) Execute(ctx context.Context, unit *domain.WorkUnit, attempt int) error {
	body, err := json.Marshal(attemptPayload{
		Node:    unit.Name,
		Attempt: attempt,
		Params:  unit.Params,
	})
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %v", ErrHTTPRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, unit.Reference, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrHTTPRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		// Разворачиваем url.Error: оркестратору важно увидеть
		// context.DeadlineExceeded для классификации TIMEOUT.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrHTTPRequest, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrHTTPRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: HTTP %d: %s", ErrHTTPRequest, resp.StatusCode,
			truncate(string(respBody), maxErrorBodyLen))
	}
	return nil
}

// truncate обрезает строку до n символов.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
