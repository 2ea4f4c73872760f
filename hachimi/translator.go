package hachimi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/Neumenon/hachimi/logutil"
)

const (
	headerScale = 16
	// SaltRange bounds the per-message salt added to every chunk.
	SaltRange = 64
)

// FailureMessage is the only error text a failed translation exposes.
const FailureMessage = "喵！你在狗叫什么！！！😾😾😾"

// ============================================================
// Roles
// ============================================================

// Role names the direction of a translation.
type Role string

const (
	ToHachimi Role = "toHachimi" // human text in, hachimi out
	ToHuman   Role = "toHuman"   // hachimi in, human text out
)

// ParseRole accepts a Role name or the speaker name of the input text:
// "human" input is encoded and "hachimi" input is decoded.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tohachimi", "human", "encode":
		return ToHachimi, nil
	case "tohuman", "hachimi", "decode":
		return ToHuman, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Opposite returns the reverse direction.
func (r Role) Opposite() Role {
	if r == ToHachimi {
		return ToHuman
	}
	return ToHachimi
}

// ============================================================
// Results
// ============================================================

// Stats describes one translation. Lengths count Unicode code points.
type Stats struct {
	PlainBytes   int `json:"plainBytes"`
	PayloadBytes int `json:"payloadBytes"`
	TokenCount   int `json:"tokenCount"`
	InputLength  int `json:"inputLength"`
	OutputLength int `json:"outputLength"`
}

// Result is the outcome of Translate. On failure Output is empty, Error
// holds FailureMessage and Stats is nil.
type Result struct {
	OK     bool   `json:"ok"`
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
	Stats  *Stats `json:"stats,omitempty"`
}

// ============================================================
// Translator
// ============================================================

// Options configures a Translator.
type Options struct {
	// Vocabulary defaults to DefaultVocabulary().
	Vocabulary *Vocabulary

	// Weights are applied under any per-call override.
	Weights PartialWeights

	// Cache may be shared between translators. Defaults to a new cache.
	Cache *ConfigCache

	// Rand picks salts and lead words. Defaults to CryptoRand.
	Rand RandSource

	// Logger receives decode diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// MaxPayloadBytes bounds the decompressed payload; 0 means unbounded.
	MaxPayloadBytes int64
}

// TranslateOptions are per-call overrides.
type TranslateOptions struct {
	Weights *PartialWeights `json:"weights,omitempty"`
}

// Translator converts between human text and hachimi. It is safe for
// concurrent use.
type Translator struct {
	vocab      *Vocabulary
	weights    PartialWeights
	cache      *ConfigCache
	rand       RandSource
	log        *slog.Logger
	maxPayload int64
}

// New creates a Translator and builds its default config, so a vocabulary
// or weight misconfiguration fails here rather than on first use.
func New(opts Options) (*Translator, error) {
	t := &Translator{
		vocab:      opts.Vocabulary,
		weights:    opts.Weights,
		cache:      opts.Cache,
		log:        opts.Logger,
		maxPayload: opts.MaxPayloadBytes,
	}
	if t.vocab == nil {
		t.vocab = DefaultVocabulary()
	}
	if t.cache == nil {
		t.cache = NewConfigCache()
	}
	if t.log == nil {
		t.log = slog.Default()
	}
	if opts.Rand == nil {
		t.rand = CryptoRand{}
	} else {
		t.rand = &lockedRand{src: opts.Rand}
	}

	if _, err := t.Config(nil); err != nil {
		return nil, err
	}
	return t, nil
}

var defaultTranslator = sync.OnceValue(func() *Translator {
	t, err := New(Options{})
	if err != nil {
		panic(err)
	}
	return t
})

// Default returns a shared Translator with the built-in vocabulary and
// default weights.
func Default() *Translator {
	return defaultTranslator()
}

// Translate is a convenience for Default().Translate.
func Translate(text string, role Role, opts *TranslateOptions) Result {
	return Default().Translate(text, role, opts)
}

// Vocabulary returns the translator's vocabulary.
func (t *Translator) Vocabulary() *Vocabulary {
	return t.vocab
}

// Config returns the derived config for the translator's weights merged
// with override.
func (t *Translator) Config(override *PartialWeights) (*Config, error) {
	w := t.weights.Merge(override).Resolve()
	return t.cache.Get(w, t.vocab.Lengths())
}

// Translate encodes or decodes text according to role. Every failure is
// reported as FailureMessage; the cause is logged.
func (t *Translator) Translate(text string, role Role, opts *TranslateOptions) Result {
	var weights *PartialWeights
	if opts != nil {
		weights = opts.Weights
	}

	var (
		output string
		stats  Stats
		err    error
	)
	switch role {
	case ToHachimi:
		output, stats, err = t.Encode(text, weights)
	case ToHuman:
		output, stats, err = t.Decode(text, weights)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	if err != nil {
		level := slog.LevelDebug
		if role != ToHuman {
			level = slog.LevelError
		}
		t.log.Log(context.Background(), level, "hachimi: translate failed", "role", string(role), "error", err)
		return Result{OK: false, Error: FailureMessage}
	}
	return Result{OK: true, Output: output, Stats: &stats}
}

// Encode turns human text into hachimi. Empty or all-whitespace text
// encodes to the empty string.
func (t *Translator) Encode(text string, weights *PartialWeights) (string, Stats, error) {
	stats := Stats{InputLength: utf8.RuneCountInString(text)}
	if strings.TrimFunc(text, isSpace) == "" {
		return "", stats, nil
	}

	cfg, err := t.Config(weights)
	if err != nil {
		return "", stats, err
	}

	payload := Pack(text)
	compressed, err := Compress(payload)
	if err != nil {
		return "", stats, err
	}
	chunks, tailBits := Chunkify(compressed)

	salt := t.rand.IntN(SaltRange)
	lead := t.rand.IntN(t.vocab.LeadCount())
	t.log.Log(context.Background(), logutil.LevelTrace, "hachimi: encode", "payload", len(compressed), "chunks", len(chunks), "tailBits", tailBits, "salt", salt, "lead", lead)

	var sb strings.Builder
	sb.WriteString(t.vocab.LeadWord(lead))

	header, err := t.vocab.EncodeValue(tailBits+headerScale*salt, cfg)
	if err != nil {
		return "", stats, fmt.Errorf("header: %w", err)
	}
	sb.WriteString(header)

	for i, c := range chunks {
		tok, err := t.vocab.EncodeValue((int(c)+salt)%Radix, cfg)
		if err != nil {
			return "", stats, fmt.Errorf("chunk %d: %w", i, err)
		}
		sb.WriteString(tok)
	}

	output := sb.String()
	stats.PlainBytes = len(payload) - checksumSize
	stats.PayloadBytes = len(compressed)
	stats.TokenCount = len(chunks)
	stats.OutputLength = utf8.RuneCountInString(output)
	return output, stats, nil
}

// Decode turns hachimi back into human text. Whitespace anywhere in the
// input is ignored; input that is empty after stripping decodes to the
// empty string.
func (t *Translator) Decode(text string, weights *PartialWeights) (string, Stats, error) {
	stats := Stats{InputLength: utf8.RuneCountInString(text)}
	compact := stripSpace(text)
	if compact == "" {
		return "", stats, nil
	}

	cfg, err := t.Config(weights)
	if err != nil {
		return "", stats, err
	}

	tokens, err := t.vocab.Parse(compact)
	if err != nil {
		t.log.Debug("hachimi: decode-parse-failed", "error", err)
		return "", stats, err
	}
	t.log.Log(context.Background(), logutil.LevelTrace, "hachimi: decode-parsed", "tokens", len(tokens), "bytes", len(compact))
	if len(tokens) < 2 {
		return "", stats, fmt.Errorf("%w: got %d", ErrTooFewTokens, len(tokens))
	}

	if !t.vocab.IsLead(tokens[0].Base) {
		return "", stats, fmt.Errorf("%w: %q", ErrUnknownLeadToken, t.vocab.Base.Get(tokens[0].Base))
	}

	header, ok := t.vocab.TokenValue(tokens[1], cfg)
	if !ok {
		t.log.Debug("hachimi: decode-header-token-mismatch", "token", compact[tokens[1].Start:tokens[1].End])
		return "", stats, ErrHeaderTokenInvalid
	}
	salt, tailBits := header/headerScale, header%headerScale
	if salt >= SaltRange || tailBits >= ChunkBits {
		return "", stats, fmt.Errorf("%w: salt=%d tailBits=%d", ErrHeaderOutOfRange, salt, tailBits)
	}

	chunks := make([]uint16, 0, len(tokens)-2)
	for i, tok := range tokens[2:] {
		value, ok := t.vocab.TokenValue(tok, cfg)
		if !ok {
			return "", stats, fmt.Errorf("%w: index %d %q", ErrPayloadTokenInvalid, i, compact[tok.Start:tok.End])
		}
		chunks = append(chunks, uint16((value-salt+Radix)%Radix))
	}
	if len(chunks) == 0 {
		return "", stats, ErrEmptyPayload
	}

	compressed, err := Unchunkify(chunks, tailBits)
	if err != nil {
		return "", stats, err
	}
	payload, err := Decompress(compressed, t.maxPayload)
	if err != nil {
		t.log.Debug("hachimi: decode-gzip-failed", "chunks", len(chunks), "tailBits", tailBits, "header", header)
		return "", stats, err
	}
	restored, err := Unpack(payload)
	if err != nil {
		return "", stats, err
	}

	if err := selfCheck(restored, chunks, tailBits); err != nil {
		t.log.Debug("hachimi: decode-self-check-failed", "error", err)
		return "", stats, err
	}

	stats.PlainBytes = len(restored)
	stats.PayloadBytes = len(compressed)
	stats.TokenCount = len(chunks)
	stats.OutputLength = utf8.RuneCountInString(restored)
	return restored, stats, nil
}

// selfCheck re-encodes text and requires the observed chunk stream back.
// The 32-bit checksum alone can pass by coincidence on foreign input.
func selfCheck(text string, observed []uint16, observedTail int) error {
	compressed, err := Compress(Pack(text))
	if err != nil {
		return errors.Join(ErrSelfCheckFailed, err)
	}
	chunks, tail := Chunkify(compressed)
	if tail != observedTail {
		return fmt.Errorf("%w: tailBits %d, observed %d", ErrSelfCheckFailed, tail, observedTail)
	}
	if len(chunks) != len(observed) {
		return fmt.Errorf("%w: %d chunks, observed %d", ErrSelfCheckFailed, len(chunks), len(observed))
	}
	for i := range chunks {
		if chunks[i] != observed[i] {
			return fmt.Errorf("%w: chunk %d differs", ErrSelfCheckFailed, i)
		}
	}
	return nil
}

// isSpace matches what the decoder strips: Unicode white space and the
// byte order mark.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if isSpace(r) {
			return -1
		}
		return r
	}, s)
}
