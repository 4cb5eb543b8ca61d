package services

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"

	"quizarena-backend/internal/models"
)

// RawQuestion is one record as an import source delivers it.
type RawQuestion struct {
	Category         string
	Difficulty       string
	Question         string
	CorrectAnswer    string
	IncorrectAnswers []string
}

type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]RawQuestion, error)
}

// Open Trivia DB response codes.
const (
	openTDBSuccess   = 0
	openTDBNoResults = 1
)

type openTDBResponse struct {
	ResponseCode int `json:"response_code"`
	Results      []struct {
		Category         string   `json:"category"`
		Type             string   `json:"type"`
		Difficulty       string   `json:"difficulty"`
		Question         string   `json:"question"`
		CorrectAnswer    string   `json:"correct_answer"`
		IncorrectAnswers []string `json:"incorrect_answers"`
	} `json:"results"`
}

// OpenTDBSource fetches one batch from an Open Trivia DB api.php URL. Text fields
// arrive HTML-encoded and are decoded here.
type OpenTDBSource struct {
	name   string
	url    string
	client *http.Client
}

func NewOpenTDBSource(src models.ImportSource, client *http.Client) *OpenTDBSource {
	return &OpenTDBSource{name: src.Name, url: src.URL, client: client}
}

// SourcesFrom builds fetchers for the configured source list.
func SourcesFrom(list []models.ImportSource, client *http.Client) []Source {
	sources := make([]Source, 0, len(list))
	for _, s := range list {
		sources = append(sources, NewOpenTDBSource(s, client))
	}
	return sources
}

func (s *OpenTDBSource) Name() string { return s.name }

func (s *OpenTDBSource) Fetch(ctx context.Context) ([]RawQuestion, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &SourceError{Source: s.name, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &SourceError{Source: s.name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &SourceError{Source: s.name, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var body openTDBResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &SourceError{Source: s.name, Err: fmt.Errorf("decode response: %w", err)}
	}

	switch body.ResponseCode {
	case openTDBSuccess:
	case openTDBNoResults:
		return nil, nil
	default:
		return nil, &SourceError{Source: s.name, Err: fmt.Errorf("response code %d", body.ResponseCode)}
	}

	out := make([]RawQuestion, 0, len(body.Results))
	for _, r := range body.Results {
		incorrect := make([]string, len(r.IncorrectAnswers))
		for i, a := range r.IncorrectAnswers {
			incorrect[i] = html.UnescapeString(a)
		}
		out = append(out, RawQuestion{
			Category:         html.UnescapeString(r.Category),
			Difficulty:       r.Difficulty,
			Question:         html.UnescapeString(r.Question),
			CorrectAnswer:    html.UnescapeString(r.CorrectAnswer),
			IncorrectAnswers: incorrect,
		})
	}
	return out, nil
}
