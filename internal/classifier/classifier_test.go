// internal/classifier/classifier_test.go
package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"clinic-scout/internal/common/logger"
	"clinic-scout/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestClassifier(t *testing.T, baseURL string) *Classifier {
	return New(&Config{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	}, logger.NewTestLogger(t))
}

// modelServer returns an httptest server that answers the generate endpoint
// with the given payload as the model's text.
func modelServer(t *testing.T, modelText string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/ai/generate", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req["prompt"], "accepting new patients")

		json.NewEncoder(w).Encode(map[string]string{"text": modelText})
	}))
}

const validPayload = `{
	"clinic_name": "Maple Family Practice",
	"address": "12 Main St, Toronto",
	"district": "Toronto",
	"phone_number": "(416) 555-1234",
	"remaining_vacancy": "10",
	"languages": ["English", "French"],
	"status": "OPEN",
	"reason": "Banner says accepting new patients",
	"evidence": "We are accepting new patients"
}`

// ==========================
// Parsing Tests
// ==========================

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no fence passes through",
			input:    `{"status": "OPEN"}`,
			expected: `{"status": "OPEN"}`,
		},
		{
			name:     "json fence stripped",
			input:    "```json\n{\"status\": \"OPEN\"}\n```",
			expected: `{"status": "OPEN"}`,
		},
		{
			name:     "bare fence stripped",
			input:    "```\n{\"status\": \"OPEN\"}\n```",
			expected: `{"status": "OPEN"}`,
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  \n```json\n{\"status\": \"OPEN\"}\n```\n ",
			expected: `{"status": "OPEN"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripCodeFence(tt.input))
		})
	}
}

func TestParseResult_Valid(t *testing.T) {
	result, err := parseResult(validPayload)
	require.NoError(t, err)

	assert.Equal(t, "Maple Family Practice", result.ClinicName)
	assert.Equal(t, "Toronto", result.District)
	assert.Equal(t, "10", result.Vacancy)
	assert.Equal(t, []string{"English", "French"}, result.Languages)
	assert.Equal(t, models.StatusOpen, result.Status)
}

func TestParseResult_Coercions(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		validate func(t *testing.T, result Result)
	}{
		{
			name:    "languages as comma joined string",
			payload: `{"status": "WAITLIST", "languages": "English, Mandarin"}`,
			validate: func(t *testing.T, result Result) {
				assert.Equal(t, []string{"English", "Mandarin"}, result.Languages)
				assert.Equal(t, models.StatusWaitlist, result.Status)
			},
		},
		{
			name:    "missing languages default to english",
			payload: `{"status": "CLOSED"}`,
			validate: func(t *testing.T, result Result) {
				assert.Equal(t, []string{models.DefaultLanguage}, result.Languages)
			},
		},
		{
			name:    "numeric vacancy rendered as string",
			payload: `{"status": "OPEN", "remaining_vacancy": 25}`,
			validate: func(t *testing.T, result Result) {
				assert.Equal(t, "25", result.Vacancy)
			},
		},
		{
			name:    "missing display fields become placeholder",
			payload: `{"status": "UNCERTAIN"}`,
			validate: func(t *testing.T, result Result) {
				assert.Equal(t, models.FieldUnknown, result.ClinicName)
				assert.Equal(t, models.FieldUnknown, result.Address)
				assert.Equal(t, models.FieldUnknown, result.Phone)
				assert.Equal(t, models.FieldUnknown, result.Vacancy)
			},
		},
		{
			name:    "fenced payload accepted",
			payload: "```json\n{\"status\": \"OPEN\"}\n```",
			validate: func(t *testing.T, result Result) {
				assert.Equal(t, models.StatusOpen, result.Status)
			},
		},
		{
			name:    "lowercase status normalized",
			payload: `{"status": "open"}`,
			validate: func(t *testing.T, result Result) {
				assert.Equal(t, models.StatusOpen, result.Status)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseResult(tt.payload)
			require.NoError(t, err)
			tt.validate(t, result)
		})
	}
}

func TestParseResult_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{
			name:    "not json",
			payload: "The clinic appears to be open.",
		},
		{
			name:    "missing status",
			payload: `{"clinic_name": "Maple"}`,
		},
		{
			name:    "unknown status value",
			payload: `{"status": "MAYBE"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseResult(tt.payload)
			assert.Error(t, err)
		})
	}
}

// ==========================
// Classify Tests
// ==========================

func TestClassify_Success(t *testing.T) {
	server := modelServer(t, validPayload)
	defer server.Close()

	result := newTestClassifier(t, server.URL).Classify(context.Background(), "We are accepting new patients")
	assert.Equal(t, models.StatusOpen, result.Status)
	assert.Equal(t, "Maple Family Practice", result.ClinicName)
}

func TestClassify_FencedResponse(t *testing.T) {
	server := modelServer(t, "```json\n"+validPayload+"\n```")
	defer server.Close()

	result := newTestClassifier(t, server.URL).Classify(context.Background(), "page text")
	assert.Equal(t, models.StatusOpen, result.Status)
}

func TestClassify_ServerError_ReturnsErrorResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	result := newTestClassifier(t, server.URL).Classify(context.Background(), "page text")
	assert.Equal(t, models.StatusError, result.Status)
	assert.Contains(t, result.Reason, "Analysis failed")
	assert.Equal(t, []string{models.DefaultLanguage}, result.Languages)
}

func TestClassify_GarbageResponse_ReturnsErrorResult(t *testing.T) {
	server := modelServer(t, "I could not determine the status.")
	defer server.Close()

	result := newTestClassifier(t, server.URL).Classify(context.Background(), "page text")
	assert.Equal(t, models.StatusError, result.Status)
	assert.Contains(t, result.Reason, "Analysis failed")
}

func TestClassify_RetriesThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"text": validPayload})
	}))
	defer server.Close()

	result := newTestClassifier(t, server.URL).Classify(context.Background(), "page text")
	assert.Equal(t, models.StatusOpen, result.Status)
	assert.Equal(t, 2, calls)
}

func TestBuildPrompt_TruncatesLongText(t *testing.T) {
	long := make([]byte, maxContextChars+5000)
	for i := range long {
		long[i] = 'a'
	}

	prompt := buildPrompt(string(long))
	assert.Less(t, len(prompt), maxContextChars+2000)
}

func TestBuildPrompt_TruncatesOnRuneBoundary(t *testing.T) {
	// Three-byte runes offset by one so the byte cap lands mid-rune.
	long := "a" + strings.Repeat("診", maxContextChars/3+100)
	require.Greater(t, len(long), maxContextChars)

	prompt := buildPrompt(long)
	assert.True(t, utf8.ValidString(prompt))
	assert.Less(t, len(prompt), maxContextChars+2000)
}
