package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/Neumenon/hachimi/api"
	"github.com/Neumenon/hachimi/envconfig"
	"github.com/Neumenon/hachimi/hachimi"
	"github.com/Neumenon/hachimi/history"
	"github.com/Neumenon/hachimi/logutil"
	"github.com/Neumenon/hachimi/server"
	"github.com/Neumenon/hachimi/version"
)

var errNoInput = errors.New("no input: pass text as arguments or pipe it on stdin")

var weightFlags = map[hachimi.Category]string{
	hachimi.CategoryBase:    "weight-base",
	hachimi.CategoryOnomat:  "weight-onomat",
	hachimi.CategorySymbol:  "weight-symbol",
	hachimi.CategoryEmoji:   "weight-emoji",
	hachimi.CategoryKaomoji: "weight-kaomoji",
}

// backend performs translations either in process or against a server.
type backend interface {
	Translate(ctx context.Context, req *api.TranslateRequest) (*api.TranslateResponse, error)
	History(ctx context.Context) (*api.HistoryResponse, error)
	ClearHistory(ctx context.Context) error
	Vocab(ctx context.Context) (*api.VocabResponse, error)
}

type localBackend struct {
	translator *hachimi.Translator
	history    *history.Store
}

func newLocalBackend() (*localBackend, error) {
	t, err := hachimi.New(hachimi.Options{
		Weights:         envconfig.Weights,
		MaxPayloadBytes: envconfig.MaxPayload,
	})
	if err != nil {
		return nil, err
	}

	b := &localBackend{translator: t}
	if !envconfig.NoHistory && envconfig.HistoryPath != "" {
		b.history, err = history.Open(envconfig.HistoryPath, envconfig.HistoryLimit)
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *localBackend) Translate(_ context.Context, req *api.TranslateRequest) (*api.TranslateResponse, error) {
	role, err := hachimi.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	result := b.translator.Translate(req.Text, role, &hachimi.TranslateOptions{Weights: req.Weights})
	resp := &api.TranslateResponse{OK: result.OK, Output: result.Output, Error: result.Error, Stats: result.Stats}
	if b.history != nil && !req.NoHistory && req.Text != "" {
		entry, err := b.history.Add(role, req.Text, result)
		if err != nil {
			return nil, fmt.Errorf("record history: %w", err)
		}
		resp.HistoryID = entry.ID
	}
	return resp, nil
}

func (b *localBackend) History(context.Context) (*api.HistoryResponse, error) {
	resp := &api.HistoryResponse{Entries: []api.HistoryEntry{}}
	if b.history != nil {
		resp.Entries = b.history.List()
	}
	return resp, nil
}

func (b *localBackend) ClearHistory(context.Context) error {
	if b.history == nil {
		return nil
	}
	return b.history.Clear()
}

func (b *localBackend) Vocab(context.Context) (*api.VocabResponse, error) {
	resp, err := server.Vocab(b.translator)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func newBackend(cmd *cobra.Command) (backend, error) {
	if remote, _ := cmd.Flags().GetBool("remote"); remote {
		return api.ClientFromEnvironment()
	}
	return newLocalBackend()
}

// flagWeights returns the weights given on the command line, or nil.
func flagWeights(cmd *cobra.Command) (*hachimi.PartialWeights, error) {
	var p hachimi.PartialWeights
	set := false
	for c, name := range weightFlags {
		if !cmd.Flags().Changed(name) {
			continue
		}
		v, err := cmd.Flags().GetFloat64(name)
		if err != nil {
			return nil, err
		}
		set = true
		switch c {
		case hachimi.CategoryBase:
			p.Base = hachimi.Weight(v)
		case hachimi.CategoryOnomat:
			p.Onomat = hachimi.Weight(v)
		case hachimi.CategorySymbol:
			p.Symbol = hachimi.Weight(v)
		case hachimi.CategoryEmoji:
			p.Emoji = hachimi.Weight(v)
		case hachimi.CategoryKaomoji:
			p.Kaomoji = hachimi.Weight(v)
		}
	}
	if !set {
		return nil, nil
	}
	return &p, nil
}

// readInput joins args, or reads all of stdin when there are none. A single
// trailing newline from piped input is dropped.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", errNoInput
	}

	bts, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	s := strings.TrimSuffix(string(bts), "\n")
	return strings.TrimSuffix(s, "\r"), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// translateHandler runs one translation. An empty fixed role reads --role.
func translateHandler(fixed hachimi.Role) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		role := fixed
		if role == "" {
			r, _ := cmd.Flags().GetString("role")
			parsed, err := hachimi.ParseRole(r)
			if err != nil {
				return err
			}
			role = parsed
		}

		text, err := readInput(cmd, args)
		if err != nil {
			return err
		}

		weights, err := flagWeights(cmd)
		if err != nil {
			return err
		}

		b, err := newBackend(cmd)
		if err != nil {
			return err
		}

		noHistory, _ := cmd.Flags().GetBool("no-history")
		resp, err := b.Translate(cmd.Context(), &api.TranslateRequest{
			Text:      text,
			Role:      string(role),
			Weights:   weights,
			NoHistory: noHistory,
		})
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
				return err
			}
		} else if resp.OK {
			fmt.Fprintln(cmd.OutOrStdout(), resp.Output)
		}

		if !resp.OK {
			return errors.New(resp.Error)
		}
		return nil
	}
}

func BatchHandler(cmd *cobra.Command, args []string) error {
	r, _ := cmd.Flags().GetString("role")
	role, err := hachimi.ParseRole(r)
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	} else if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return errNoInput
	}

	var lines []string
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	weights, err := flagWeights(cmd)
	if err != nil {
		return err
	}

	b, err := newBackend(cmd)
	if err != nil {
		return err
	}

	parallel, _ := cmd.Flags().GetInt("parallel")
	if parallel <= 0 {
		parallel = runtime.NumCPU()
	}

	results := make([]api.TranslateResponse, len(lines))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(parallel)
	for i, line := range lines {
		g.Go(func() error {
			resp, err := b.Translate(ctx, &api.TranslateRequest{
				Text:      line,
				Role:      string(role),
				Weights:   weights,
				NoHistory: true,
			})
			if err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
			results[i] = *resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	} else {
		for _, resp := range results {
			fmt.Fprintln(cmd.OutOrStdout(), resp.Output)
		}
	}

	var failed int
	for i, resp := range results {
		if !resp.OK {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "line %d: %s\n", i+1, resp.Error)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d lines failed", failed, len(results))
	}
	return nil
}

// truncate shortens s to n runes for table display.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

func HistoryHandler(cmd *cobra.Command, args []string) error {
	b, err := newBackend(cmd)
	if err != nil {
		return err
	}

	resp, err := b.History(cmd.Context())
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), resp)
	}

	var data [][]string
	for _, e := range resp.Entries {
		status := "ok"
		if !e.OK {
			status = "failed"
		}
		data = append(data, []string{
			e.ID[:min(8, len(e.ID))],
			string(e.Role),
			status,
			truncate(e.Original, 24),
			truncate(e.Translated, 24),
			e.CreatedAt.Local().Format(time.DateTime),
		})
	}

	table := newTable(cmd.OutOrStdout(), []string{"ID", "ROLE", "STATUS", "ORIGINAL", "TRANSLATED", "CREATED"})
	table.AppendBulk(data)
	table.Render()
	return nil
}

func ClearHistoryHandler(cmd *cobra.Command, args []string) error {
	b, err := newBackend(cmd)
	if err != nil {
		return err
	}
	if err := b.ClearHistory(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
	return nil
}

func VocabHandler(cmd *cobra.Command, args []string) error {
	b, err := newBackend(cmd)
	if err != nil {
		return err
	}

	resp, err := b.Vocab(cmd.Context())
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(cmd.OutOrStdout(), resp)
	}

	var data [][]string
	for _, p := range resp.Pools {
		data = append(data, []string{p.Category, fmt.Sprint(p.Count), truncate(strings.Join(p.Entries, " "), 48)})
	}

	table := newTable(cmd.OutOrStdout(), []string{"CATEGORY", "COUNT", "ENTRIES"})
	table.AppendBulk(data)
	table.Render()

	fmt.Fprintf(cmd.OutOrStdout(), "\nlead words: %s\ncombos per base: %d\n", strings.Join(resp.LeadWords, " "), resp.CombosPerBase)
	return nil
}

func RunServer(cmd *cobra.Command, _ []string) error {
	host, err := envconfig.Host()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", host)
	if err != nil {
		return err
	}

	return server.Serve(cmd.Context(), ln)
}

func versionHandler(cmd *cobra.Command, _ []string) {
	fmt.Fprintf(cmd.OutOrStdout(), "hachimi version is %s\n", version.Version)

	if remote, _ := cmd.Flags().GetBool("remote"); !remote {
		return
	}

	client, err := api.ClientFromEnvironment()
	if err != nil {
		return
	}

	serverVersion, err := client.Version(cmd.Context())
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Warning: could not connect to a running hachimi server")
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "server version is %s\n", serverVersion)
}

func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "hachimi",
		Short:         "Reversible text codec that speaks in cat",
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Disable usage printing on errors
			cmd.SilenceUsage = true
			logutil.Install(cmd.ErrOrStderr(), logutil.Level(envconfig.Debug, envconfig.Trace))
		},
		Run: func(cmd *cobra.Command, args []string) {
			if v, _ := cmd.Flags().GetBool("version"); v {
				versionHandler(cmd, args)
				return
			}
			cmd.Print(cmd.UsageString())
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
	rootCmd.PersistentFlags().Bool("remote", false, "Talk to the hachimi server at HACHIMI_HOST instead of translating in process")

	addTranslateFlags := func(cmd *cobra.Command) {
		cmd.Flags().Bool("json", false, "Print the full result as JSON")
		cmd.Flags().Bool("no-history", envconfig.NoHistory, "Do not record this translation")
		for _, c := range []hachimi.Category{hachimi.CategoryBase, hachimi.CategoryOnomat, hachimi.CategorySymbol, hachimi.CategoryEmoji, hachimi.CategoryKaomoji} {
			cmd.Flags().Float64(weightFlags[c], 0, fmt.Sprintf("Override the %s weight", c))
		}
	}

	encodeCmd := &cobra.Command{
		Use:     "encode [TEXT...]",
		Aliases: []string{"enc"},
		Short:   "Translate human text into hachimi",
		RunE:    translateHandler(hachimi.ToHachimi),
	}
	addTranslateFlags(encodeCmd)

	decodeCmd := &cobra.Command{
		Use:     "decode [TEXT...]",
		Aliases: []string{"dec"},
		Short:   "Translate hachimi back into human text",
		RunE:    translateHandler(hachimi.ToHuman),
	}
	addTranslateFlags(decodeCmd)

	translateCmd := &cobra.Command{
		Use:   "translate [TEXT...]",
		Short: "Translate in the direction given by --role",
		RunE:  translateHandler(""),
	}
	addTranslateFlags(translateCmd)
	translateCmd.Flags().String("role", string(hachimi.ToHachimi), "toHachimi (human text in) or toHuman (hachimi in)")

	batchCmd := &cobra.Command{
		Use:   "batch [FILE]",
		Short: "Translate each line of FILE or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE:  BatchHandler,
	}
	addTranslateFlags(batchCmd)
	batchCmd.Flags().String("role", string(hachimi.ToHachimi), "toHachimi (human text in) or toHuman (hachimi in)")
	batchCmd.Flags().Int("parallel", runtime.NumCPU(), "Number of lines translated at once")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent translations",
		Args:  cobra.NoArgs,
		RunE:  HistoryHandler,
	}
	historyCmd.Flags().Bool("json", false, "Print the history as JSON")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget all recorded translations",
		Args:  cobra.NoArgs,
		RunE:  ClearHistoryHandler,
	}
	historyCmd.AddCommand(clearCmd)

	vocabCmd := &cobra.Command{
		Use:   "vocab",
		Short: "Show the vocabulary and variant table size",
		Args:  cobra.NoArgs,
		RunE:  VocabHandler,
	}
	vocabCmd.Flags().Bool("json", false, "Print the vocabulary as JSON")

	serveCmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the hachimi HTTP server",
		Args:    cobra.ExactArgs(0),
		RunE:    RunServer,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run:   versionHandler,
	}

	envVars := envconfig.AsMap()
	envs := []envconfig.EnvVar{envVars["HACHIMI_DEBUG"], envVars["HACHIMI_WEIGHTS"], envVars["HACHIMI_MAX_PAYLOAD"]}
	for _, cmd := range []*cobra.Command{encodeCmd, decodeCmd, translateCmd, batchCmd} {
		appendEnvDocs(cmd, append(envs, envVars["HACHIMI_HISTORY"], envVars["HACHIMI_NOHISTORY"]))
	}
	appendEnvDocs(historyCmd, []envconfig.EnvVar{envVars["HACHIMI_HISTORY"], envVars["HACHIMI_HISTORY_LIMIT"], envVars["HACHIMI_HOST"]})
	appendEnvDocs(serveCmd, append(envs,
		envVars["HACHIMI_HOST"],
		envVars["HACHIMI_ORIGINS"],
		envVars["HACHIMI_HISTORY"],
		envVars["HACHIMI_HISTORY_LIMIT"],
		envVars["HACHIMI_NOHISTORY"],
	))

	rootCmd.AddCommand(
		encodeCmd,
		decodeCmd,
		translateCmd,
		batchCmd,
		historyCmd,
		vocabCmd,
		serveCmd,
		versionCmd,
	)

	return rootCmd
}
