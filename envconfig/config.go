package envconfig

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Neumenon/hachimi/hachimi"
)

const defaultPort = "11451"

var ErrInvalidHostPort = errors.New("invalid port specified in HACHIMI_HOST")

var (
	// Set via HACHIMI_ORIGINS in the environment
	AllowOrigins []string
	// Set via HACHIMI_DEBUG in the environment
	Debug bool
	// Set via HACHIMI_DEBUG=2 in the environment
	Trace bool
	// Set via HACHIMI_HISTORY in the environment
	HistoryPath string
	// Set via HACHIMI_HISTORY_LIMIT in the environment
	HistoryLimit int
	// Set via HACHIMI_NOHISTORY in the environment
	NoHistory bool
	// Set via HACHIMI_WEIGHTS in the environment
	Weights hachimi.PartialWeights
	// Set via HACHIMI_MAX_PAYLOAD in the environment
	MaxPayload int64
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"HACHIMI_DEBUG":         {"HACHIMI_DEBUG", Debug, "Show additional debug information (e.g. HACHIMI_DEBUG=1, or 2 for trace)"},
		"HACHIMI_HOST":          {"HACHIMI_HOST", "", "IP Address for the hachimi server (default 127.0.0.1:" + defaultPort + ")"},
		"HACHIMI_HISTORY":       {"HACHIMI_HISTORY", HistoryPath, "Path of the translation history file"},
		"HACHIMI_HISTORY_LIMIT": {"HACHIMI_HISTORY_LIMIT", HistoryLimit, "Maximum number of remembered translations (default 60)"},
		"HACHIMI_NOHISTORY":     {"HACHIMI_NOHISTORY", NoHistory, "Do not record translation history"},
		"HACHIMI_ORIGINS":       {"HACHIMI_ORIGINS", AllowOrigins, "A comma separated list of allowed origins"},
		"HACHIMI_WEIGHTS":       {"HACHIMI_WEIGHTS", os.Getenv("HACHIMI_WEIGHTS"), "Category weights, e.g. onomat=5,symbol=1,emoji=0.5"},
		"HACHIMI_MAX_PAYLOAD":   {"HACHIMI_MAX_PAYLOAD", MaxPayload, "Maximum decoded payload size in bytes (default 16777216)"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

var defaultAllowOrigins = []string{
	"localhost",
	"127.0.0.1",
	"0.0.0.0",
}

// Clean quotes and spaces from the value
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func init() {
	LoadConfig()
}

func LoadConfig() {
	Debug, Trace = false, false
	if debug := clean("HACHIMI_DEBUG"); debug != "" {
		if level, err := strconv.Atoi(debug); err == nil {
			Debug = level > 0
			Trace = level > 1
		} else if d, err := strconv.ParseBool(debug); err == nil {
			Debug = d
		} else {
			Debug = true
		}
	}

	HistoryPath = clean("HACHIMI_HISTORY")
	if HistoryPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			HistoryPath = filepath.Join(home, ".hachimi", "history.json")
		} else {
			slog.Error("failed to lookup home directory", "error", err)
		}
	}

	HistoryLimit = 60
	if limit := clean("HACHIMI_HISTORY_LIMIT"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			slog.Error("invalid setting must be greater than zero", "HACHIMI_HISTORY_LIMIT", limit, "error", err)
		} else {
			HistoryLimit = n
		}
	}

	NoHistory = clean("HACHIMI_NOHISTORY") != ""

	Weights = hachimi.PartialWeights{}
	if weights := clean("HACHIMI_WEIGHTS"); weights != "" {
		w, err := hachimi.ParseWeights(weights)
		if err != nil {
			slog.Error("invalid setting, ignoring", "HACHIMI_WEIGHTS", weights, "error", err)
		} else {
			Weights = w
		}
	}

	MaxPayload = 16 << 20
	if max := clean("HACHIMI_MAX_PAYLOAD"); max != "" {
		n, err := strconv.ParseInt(max, 10, 64)
		if err != nil || n < 0 {
			slog.Error("invalid setting, ignoring", "HACHIMI_MAX_PAYLOAD", max, "error", err)
		} else {
			MaxPayload = n
		}
	}

	AllowOrigins = nil
	if origins := clean("HACHIMI_ORIGINS"); origins != "" {
		AllowOrigins = strings.Split(origins, ",")
	}
	for _, allowOrigin := range defaultAllowOrigins {
		AllowOrigins = append(AllowOrigins,
			fmt.Sprintf("http://%s", allowOrigin),
			fmt.Sprintf("https://%s", allowOrigin),
			fmt.Sprintf("http://%s:*", allowOrigin),
			fmt.Sprintf("https://%s:*", allowOrigin),
		)
	}
}

// Host returns the address the server binds to, from HACHIMI_HOST.
func Host() (string, error) {
	defaultHost := "127.0.0.1"

	s := clean("HACHIMI_HOST")
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "\"'"))
	if s == "" {
		return net.JoinHostPort(defaultHost, defaultPort), nil
	}

	host, port, err := net.SplitHostPort(s)
	if err != nil {
		host, port = s, defaultPort
		if ip := net.ParseIP(strings.Trim(s, "[]")); ip != nil {
			host = ip.String()
		}
	}

	if n, err := strconv.ParseInt(port, 10, 32); err != nil || n > 65535 || n < 0 {
		return "", ErrInvalidHostPort
	}
	return net.JoinHostPort(host, port), nil
}
