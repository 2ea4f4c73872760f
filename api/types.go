package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Neumenon/hachimi/hachimi"
)

// StatusError is an error with an HTTP status code and message.
type StatusError struct {
	StatusCode   int
	Status       string
	ErrorMessage string `json:"error"`
}

func (e StatusError) Error() string {
	switch {
	case e.Status != "" && e.ErrorMessage != "":
		return fmt.Sprintf("%s: %s", e.Status, e.ErrorMessage)
	case e.Status != "":
		return e.Status
	case e.ErrorMessage != "":
		return e.ErrorMessage
	default:
		return fmt.Sprintf("%d %s", e.StatusCode, strings.ToLower(http.StatusText(e.StatusCode)))
	}
}

// TranslateRequest asks the server to convert Text in the direction named by
// Role. Role accepts the same spellings as hachimi.ParseRole.
type TranslateRequest struct {
	Text    string                  `json:"text"`
	Role    string                  `json:"role"`
	Weights *hachimi.PartialWeights `json:"weights,omitempty"`

	// NoHistory skips recording this translation.
	NoHistory bool `json:"noHistory,omitempty"`
}

// TranslateResponse mirrors hachimi.Result. A failed translation is still a
// 200 response with OK set to false.
type TranslateResponse struct {
	OK     bool           `json:"ok"`
	Output string         `json:"output"`
	Error  string         `json:"error,omitempty"`
	Stats  *hachimi.Stats `json:"stats,omitempty"`

	// HistoryID identifies the history entry recorded for this call, if any.
	HistoryID string `json:"historyId,omitempty"`
}

type HistoryEntry struct {
	ID         string         `json:"id"`
	Role       hachimi.Role   `json:"role"`
	Original   string         `json:"original"`
	Translated string         `json:"translated"`
	OK         bool           `json:"ok"`
	Stats      *hachimi.Stats `json:"stats,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

type PoolInfo struct {
	Category string   `json:"category"`
	Count    int      `json:"count"`
	Entries  []string `json:"entries"`
}

type VocabResponse struct {
	Pools         []PoolInfo      `json:"pools"`
	LeadWords     []string        `json:"leadWords"`
	Weights       hachimi.Weights `json:"weights"`
	CombosPerBase int             `json:"combosPerBase"`
}

type VersionResponse struct {
	Version string `json:"version"`
}
