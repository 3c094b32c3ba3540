package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
)

var version = "dev"

// options holds the flag values shared by the commands.
type options struct {
	config  string
	output  string
	size    int
	blocks  int
	slots   int
	seed    int64
	sqlite  string
	metrics string
	verbose bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := new(options)

	cmdSelection := &cobra.Command{
		Use:   "selection",
		Short: "Course selection allocator",
		Long: "A tool to shortlist courses by popularity, place them in mutually exclusive\n" +
			"blocks, and assign students to them by preference and priority",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	cmdSelection.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every stage in detail")
	cmdSelection.PersistentFlags().StringVar(&opts.config, "config", "", "YAML run configuration file")
	cmdSelection.PersistentFlags().StringVar(&opts.output, "out", "", "output directory (default output/<input dir name>)")

	cmdRun := &cobra.Command{
		Use:   "run DIR [SHORTLIST_SIZE [BLOCKS]]",
		Short: "shortlist courses, place them in blocks, and assign students",
		Args:  cobra.RangeArgs(0, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commandRun(cmd, args, opts)
		},
	}
	addSizeFlags(cmdRun, opts)
	cmdRun.Flags().IntVarP(&opts.slots, "slots", "s", 0, "course slots per student (default: same as blocks)")
	cmdRun.Flags().Int64Var(&opts.seed, "seed", 0, "random seed (default: derived from the input files)")
	cmdRun.Flags().StringVar(&opts.sqlite, "sqlite", "", "also export the results to this SQLite database")
	cmdRun.Flags().StringVar(&opts.metrics, "metrics", "", "also write run statistics to this Prometheus textfile")
	cmdSelection.AddCommand(cmdRun)

	cmdShortlist := &cobra.Command{
		Use:   "shortlist DIR [SHORTLIST_SIZE [BLOCKS]]",
		Short: "rank courses by popularity and write the longlist and shortlist",
		Args:  cobra.RangeArgs(0, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commandShortlist(cmd, args, opts)
		},
	}
	addSizeFlags(cmdShortlist, opts)
	cmdSelection.AddCommand(cmdShortlist)

	cmdCheck := &cobra.Command{
		Use:   "check DIR",
		Short: "check and display the selections from an earlier run",
		Args:  cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commandCheck(cmd, args, opts)
		},
	}
	cmdSelection.AddCommand(cmdCheck)

	cmdVersion := &cobra.Command{
		Use:   "version",
		Short: "print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "selection", version)
		},
	}
	cmdSelection.AddCommand(cmdVersion)

	return cmdSelection
}

func addSizeFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().IntVarP(&opts.size, "courses", "n", defaultShortlistSize, "number of course instances to shortlist")
	cmd.Flags().IntVarP(&opts.blocks, "blocks", "b", defaultBlocks, "number of mutually exclusive blocks")
}

// resolveConfig layers the config file, positional arguments, and explicit
// flags, in that order, over the defaults.
func resolveConfig(cmd *cobra.Command, args []string, opts *options) (*Config, error) {
	cfg := DefaultConfig()
	if opts.config != "" {
		var err error
		if cfg, err = LoadConfig(opts.config); err != nil {
			return nil, err
		}
	}

	if len(args) > 0 {
		cfg.Input = args[0]
	}
	if len(args) > 1 && !cmd.Flags().Changed("courses") {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("%w: shortlist size %q is not a number", ErrInvalidConfig, args[1])
		}
		cfg.ShortlistSize = n
	}
	if len(args) > 2 && !cmd.Flags().Changed("blocks") {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, fmt.Errorf("%w: block count %q is not a number", ErrInvalidConfig, args[2])
		}
		cfg.Blocks = n
	}

	flags := cmd.Flags()
	if flags.Changed("out") {
		cfg.Output = opts.output
	}
	if flags.Changed("courses") {
		cfg.ShortlistSize = opts.size
	}
	if flags.Changed("blocks") {
		cfg.Blocks = opts.blocks
	}
	if flags.Lookup("slots") != nil && flags.Changed("slots") {
		if opts.slots < 1 {
			return nil, fmt.Errorf("%w: slots must be >= 1", ErrInvalidConfig)
		}
		cfg.Slots = opts.slots
	}
	if flags.Lookup("seed") != nil && flags.Changed("seed") {
		seed := opts.seed
		cfg.Seed = &seed
	}
	if flags.Changed("sqlite") {
		cfg.SQLite = opts.sqlite
	}
	if flags.Changed("metrics") {
		cfg.Metrics = opts.metrics
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadInput(cfg *Config) (*Input, error) {
	input, err := LoadInput(cfg.Preferences, cfg.Courses)
	if err != nil {
		return nil, err
	}
	for _, msg := range input.Warnings {
		slog.Warn(msg)
	}
	slog.Info("input loaded",
		"students", len(input.Data.Students),
		"courses", len(input.Data.Courses),
		"fingerprint", fmt.Sprintf("%016x", input.Fingerprint))
	return input, nil
}

func commandRun(cmd *cobra.Command, args []string, opts *options) error {
	cfg, err := resolveConfig(cmd, args, opts)
	if err != nil {
		return err
	}
	input, err := loadInput(cfg)
	if err != nil {
		return err
	}
	data := input.Data

	result := Run(input, cfg.Params(input))
	warnings := result.Warnings()
	for _, msg := range warnings {
		slog.Warn(msg)
	}

	if err := WriteOutputs(cfg.Output, data, result); err != nil {
		return err
	}

	report := data.Check(result.Courselist, result.Assignment)
	data.PrintReport(cmd.OutOrStdout(), result.Courselist, result.Assignment, report, warnings)

	if cfg.SQLite != "" {
		if err := ExportSQLite(cfg.SQLite, data, result); err != nil {
			return err
		}
	}
	if cfg.Metrics != "" {
		m := NewRunMetrics()
		m.Observe(data, result, report)
		if err := m.WriteTextfile(cfg.Metrics); err != nil {
			return err
		}
	}

	if !report.OK() {
		return fmt.Errorf("run %s broke %d constraints", result.RunID, len(report.Problems))
	}
	slog.Info("run complete", "id", result.RunID, "output", cfg.Output)
	return nil
}

func commandShortlist(cmd *cobra.Command, args []string, opts *options) error {
	cfg, err := resolveConfig(cmd, args, opts)
	if err != nil {
		return err
	}
	input, err := loadInput(cfg)
	if err != nil {
		return err
	}

	shortlist := input.Data.MakeShortlist(cfg.ShortlistSize, cfg.Blocks)
	for _, msg := range shortlist.Warnings {
		slog.Warn(msg)
	}
	if err := WriteShortlistOutputs(cfg.Output, shortlist); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	headerColor.Fprintf(out, "Shortlist (%d instances):\n", shortlist.Size())
	for _, entry := range shortlist.Entries {
		mark := ""
		if entry.Course.MustRun {
			mark = " (must run)"
		}
		fmt.Fprintf(out, "  %3d  %-20s x%d  pop %4d  cmp %8.3f%s\n",
			entry.Rank, entry.Course.Name, entry.Instances(), entry.Popularity, entry.Comparison(), mark)
	}
	slog.Info("shortlist written", "output", cfg.Output)
	return nil
}

func commandCheck(cmd *cobra.Command, args []string, opts *options) error {
	cfg, err := resolveConfig(cmd, args, opts)
	if err != nil {
		return err
	}
	input, err := loadInput(cfg)
	if err != nil {
		return err
	}
	data := input.Data

	filename := filepath.Join(cfg.Output, "selections.json")
	fp, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: the selections must be in %s", ErrNoResult, filename)
		}
		return fmt.Errorf("opening %s: %w", filename, err)
	}
	list, a, params, err := data.ReadJSON(fp)
	fp.Close()
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}
	slog.Info("selections loaded", "file", filename, "blocks", params.Blocks, "slots", params.Slots, "seed", params.Seed)

	report := data.Check(list, a)
	data.PrintReport(cmd.OutOrStdout(), list, a, report, nil)
	if !report.OK() {
		return fmt.Errorf("%s breaks %d constraints", filename, len(report.Problems))
	}
	return nil
}
