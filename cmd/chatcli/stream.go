package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/localai-backend/internal/http/response"
	"github.com/yungbote/localai-backend/internal/services"
)

type chatClient struct {
	baseURL string
	http    *http.Client
}

type turnRequest struct {
	ConversationID *string `json:"conversation_id,omitempty"`
	Message        string  `json:"message"`
	Model          *string `json:"model,omitempty"`
	SystemPromptID *uint   `json:"system_prompt_id,omitempty"`
}

type turnResult struct {
	ConversationID uuid.UUID
	Content        string
}

// send streams one turn, calling onDelta for every content event.
func (c *chatClient) send(ctx context.Context, req turnRequest, onDelta func(string)) (turnResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return turnResult{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/chat/completions/stream", bytes.NewReader(body))
	if err != nil {
		return turnResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return turnResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return turnResult{}, decodeAPIError(resp)
	}
	return readStream(resp.Body, onDelta)
}

// readStream consumes "data: {...}" frames until the done event.
func readStream(r io.Reader, onDelta func(string)) (turnResult, error) {
	var (
		res turnResult
		sb  strings.Builder
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		var ev services.StreamEvent
		if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &ev); err != nil {
			return res, fmt.Errorf("decode event: %w", err)
		}
		if ev.Content != "" {
			sb.WriteString(ev.Content)
			if onDelta != nil {
				onDelta(ev.Content)
			}
		}
		if ev.Done {
			if ev.Error != "" {
				return res, errors.New(ev.Error)
			}
			res.ConversationID = ev.ConversationID
			res.Content = sb.String()
			return res, nil
		}
	}
	if err := sc.Err(); err != nil {
		return res, err
	}
	return res, io.ErrUnexpectedEOF
}

func decodeAPIError(resp *http.Response) error {
	var env response.ErrorEnvelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Message != "" {
		return fmt.Errorf("%s (%s)", env.Error.Message, env.Error.Code)
	}
	return fmt.Errorf("unexpected status %d", resp.StatusCode)
}
