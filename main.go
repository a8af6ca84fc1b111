package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/briandowns/spinner"
	json "github.com/goccy/go-json"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kamilpajak/heartrisk/internal/config"
	"github.com/kamilpajak/heartrisk/internal/predictor"
	"github.com/kamilpajak/heartrisk/internal/submission"
	"github.com/kamilpajak/heartrisk/internal/telemetry"
	"github.com/kamilpajak/heartrisk/pkg/assessment"
	"github.com/kamilpajak/heartrisk/pkg/prediction"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	endpoint   string
	timeout    time.Duration
	logLevel   string
	logFormat  string

	inputPath  string
	jsonOutput bool
)

var errAssessmentFailed = errors.New("assessment failed")

var rootCmd = &cobra.Command{
	Use:   "heartrisk",
	Short: "Heart disease risk assessment client",
	Long: `Collects the thirteen clinical measurements of a heart disease risk
assessment, validates them, and asks a prediction service for the
probability of heart disease.`,
	SilenceUsage: true,
}

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Validate an assessment and request a prediction",
	Long: `Validate an assessment and request a prediction.

Values come from --input (YAML or JSON) and per-field flags; flags win.
Fields not given keep their form defaults.

Examples:
  heartrisk assess --input patient.yaml
  heartrisk assess --age 45 --cp 2 --trestbps 130 --chol 250 --restecg 1 \
    --thalach 150 --oldpeak 1 --slope 1 --thal 2
  heartrisk assess --input patient.json --json`,
	Args: cobra.NoArgs,
	RunE: runAssess,
}

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List assessment fields, ranges and options",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printFields(cmd.OutOrStdout())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("heartrisk %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	pf.StringVar(&endpoint, "endpoint", "", "Prediction service URL (overrides HEARTRISK_ENDPOINT)")
	pf.DurationVar(&timeout, "timeout", 0, "Prediction request timeout")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "", "Log format (text, json)")

	assessCmd.Flags().StringVarP(&inputPath, "input", "i", "", "Read field values from a YAML or JSON file")
	assessCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output result as JSON")
	for _, f := range assessment.Fields() {
		assessCmd.Flags().String(f.String(), "", fieldUsage(f))
	}

	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(fieldsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stubCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if rootCmd.Execute() != nil {
		os.Exit(1)
	}
}

// loadConfig layers .env, the config file, HEARTRISK_* variables and the
// persistent flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("endpoint") {
		cfg.Endpoint = endpoint
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if flags.Changed("listen") {
		cfg.Listen = listenAddr
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func fieldUsage(f assessment.Field) string {
	usage := f.Label()
	if rng, ok := f.Range(); ok {
		usage += fmt.Sprintf(" (%g-%g", rng.Min, rng.Max)
		if f.Unit() != "" {
			usage += " " + f.Unit()
		}
		usage += ")"
	} else {
		usage += " (code, see 'heartrisk fields')"
	}
	return usage
}

func runAssess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	form, err := buildForm(cmd, inputPath)
	if err != nil {
		return err
	}
	in, err := form.Input()
	if err != nil {
		printFormErrors(cmd.ErrOrStderr(), form.Errors())
		return fmt.Errorf("%w: invalid input", errAssessmentFailed)
	}

	if err := cfg.RequireEndpoint(); err != nil {
		return err
	}

	logger := cfg.NewLogger(os.Stderr)
	shutdownTracing, err := telemetry.Init(context.Background(), telemetry.FromConfig(cfg, version))
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	emitter := newEmitter(os.Stderr, !jsonOutput && isTerminal(os.Stderr))
	ctrl := submission.NewController(
		predictor.NewClient(cfg.Endpoint, predictor.WithTimeout(cfg.Timeout)),
		submission.WithLogger(quietLogger(logger, cfg)),
		submission.WithEmitter(emitter),
	)

	st, err := ctrl.Submit(context.Background(), in)
	emitter.Close()
	if err != nil {
		return err
	}

	verdict, _ := st.Verdict()
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(assessOutput{Input: in, State: st, Verdict: verdict}); err != nil {
			return err
		}
	} else {
		printVerdict(cmd.ErrOrStderr(), cmd.OutOrStdout(), verdict)
	}

	if verdict.Kind == prediction.KindError {
		return errAssessmentFailed
	}
	return nil
}

type assessOutput struct {
	Input   assessment.Input   `json:"input"`
	State   submission.State   `json:"state"`
	Verdict prediction.Verdict `json:"verdict"`
}

// buildForm starts from the default form, applies the input file and then
// every field flag that was set.
func buildForm(cmd *cobra.Command, path string) (assessment.Form, error) {
	form := assessment.NewForm()

	if path != "" {
		values, err := readInputFile(path)
		if err != nil {
			return form, err
		}
		for key, v := range values {
			f, err := assessment.ParseField(key)
			if err != nil {
				return form, fmt.Errorf("%s: %w", path, err)
			}
			form = form.SetValue(f, v)
		}
	}

	for _, f := range assessment.Fields() {
		flag := cmd.Flags().Lookup(f.String())
		if flag != nil && flag.Changed {
			form = form.SetField(f, flag.Value.String())
		}
	}
	return form, nil
}

// readInputFile decodes a flat key/value document. YAML is a superset of
// JSON, so one decoder serves both.
func readInputFile(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	var values map[string]float64
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse input %s: %w", path, err)
	}
	return values, nil
}

// quietLogger keeps controller chatter off the terminal unless debug logging
// was asked for.
func quietLogger(l *slog.Logger, cfg config.Config) *slog.Logger {
	if cfg.LogLevel == "debug" {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// progressEmitter shows submission progress and is closed once the attempt
// resolves.
type progressEmitter interface {
	submission.Emitter
	Close()
}

func newEmitter(w io.Writer, interactive bool) progressEmitter {
	if interactive {
		return newSpinnerEmitter(w)
	}
	return &textEmitter{TextEmitter: submission.TextEmitter{W: w}}
}

type textEmitter struct {
	submission.TextEmitter
}

func (e *textEmitter) Close() {}

type spinnerEmitter struct {
	s *spinner.Spinner
}

func newSpinnerEmitter(w io.Writer) *spinnerEmitter {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " Submitting assessment..."
	return &spinnerEmitter{s: s}
}

func (e *spinnerEmitter) Emit(ev submission.Event) {
	if ev.Type == "submitting" {
		e.s.Start()
		return
	}
	e.s.Stop()
}

func (e *spinnerEmitter) Close() { e.s.Stop() }
