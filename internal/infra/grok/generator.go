// Package grok calls an xAI-compatible chat-completions API to author
// quizzes. Failures here are upstream failures: the caller must not charge
// entitlement quota for them.
package grok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"quizarena-service/internal/domain"
	"quizarena-service/internal/scoring"
)

const (
	defaultBaseURL = "https://api.x.ai/v1/chat/completions"
	defaultModel   = "grok-4-latest"
	questionCount  = 10
	optionCount    = 4
)

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      defaultModel,
	}
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Model       string        `json:"model"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type quizEnvelope struct {
	Quiz struct {
		Title     string            `json:"title"`
		Topic     string            `json:"topic"`
		Category  string            `json:"category"`
		Questions []domain.Question `json:"questions"`
	} `json:"quiz"`
}

// Generate asks the model for a full quiz and validates the shape strictly:
// malformed output is rejected rather than repaired, so a bad generation can
// never persist a quiz with an unanswerable question.
func (c *Client) Generate(ctx context.Context, topic string, difficulty int) (domain.GeneratedQuiz, error) {
	prompt, err := buildPrompt(topic, difficulty)
	if err != nil {
		return domain.GeneratedQuiz{}, err
	}

	body, err := json.Marshal(chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: "You are a quiz generation expert. Generate high-quality, accurate quiz questions. Always respond with valid JSON only."},
			{Role: "user", Content: prompt},
		},
		Model:       c.model,
		Temperature: 0.7,
	})
	if err != nil {
		return domain.GeneratedQuiz{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return domain.GeneratedQuiz{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.GeneratedQuiz{}, fmt.Errorf("call generator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.GeneratedQuiz{}, fmt.Errorf("generator returned %d: %s", resp.StatusCode, snippet)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return domain.GeneratedQuiz{}, fmt.Errorf("decode generator response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return domain.GeneratedQuiz{}, fmt.Errorf("generator returned no choices")
	}

	var envelope quizEnvelope
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &envelope); err != nil {
		return domain.GeneratedQuiz{}, fmt.Errorf("parse quiz payload: %w", err)
	}

	generated := domain.GeneratedQuiz{
		Title:     envelope.Quiz.Title,
		Topic:     envelope.Quiz.Topic,
		Category:  envelope.Quiz.Category,
		Questions: envelope.Quiz.Questions,
	}
	if err := validate(generated); err != nil {
		return domain.GeneratedQuiz{}, err
	}
	return generated, nil
}

func validate(g domain.GeneratedQuiz) error {
	if len(g.Questions) != questionCount {
		return fmt.Errorf("generated quiz has %d questions, want %d", len(g.Questions), questionCount)
	}
	for i, q := range g.Questions {
		if q.Text == "" {
			return fmt.Errorf("question %d has no text", i)
		}
		if len(q.Options) != optionCount {
			return fmt.Errorf("question %d has %d options, want %d", i, len(q.Options), optionCount)
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= optionCount {
			return fmt.Errorf("question %d correct answer %d out of range", i, q.CorrectAnswer)
		}
	}
	return nil
}

var tierDescriptions = map[scoring.Tier]string{
	scoring.TierEasy:   "very easy, suitable for complete beginners",
	scoring.TierMedium: "medium difficulty, suitable for intermediate learners",
	scoring.TierHard:   "hard difficulty, suitable for advanced learners",
	scoring.TierExpert: "expert level, extremely challenging questions",
}

func buildPrompt(topic string, difficulty int) (string, error) {
	tier, _, err := scoring.Classify(difficulty)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`User searched: %q

Your task:
1. Extract the actual subject/topic from the search query
2. Create a professional quiz title
3. Determine the best category name
4. Generate %d multiple-choice questions

Difficulty level: %d (%s)

IMPORTANT: Return ONLY valid JSON, no additional text or explanation.

Format:
{
  "quiz": {
    "title": "Professional quiz title here",
    "topic": "Clean topic name",
    "category": "Category name",
    "questions": [
      {
        "question": "Question text here?",
        "options": ["Option 1", "Option 2", "Option 3", "Option 4"],
        "correctAnswer": 0,
        "explanation": "Brief explanation of the answer"
      }
    ]
  }
}

Rules:
- Exactly %d questions
- Each question must have %d options
- correctAnswer is the index (0-%d) of the correct option
- Randomize correct answer positions across all indexes
- Questions should match the specified difficulty level
- Include brief explanations
- Return valid JSON only`,
		topic, questionCount, difficulty, tierDescriptions[tier], questionCount, optionCount, optionCount-1), nil
}
