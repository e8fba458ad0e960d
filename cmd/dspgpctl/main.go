package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"dspgp/internal/logs"
	"dspgp/pkg/dspgp"
)

const (
	runsDir    = "runs"
	exportsDir = "exports"
	dbPath     = "dspgp.db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "catalog":
		return runCatalog(ctx, args[1:])
	case "generate":
		return runGenerate(ctx, args[1:])
	case "mutate":
		return runMutate(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "lineage":
		return runLineage(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "diagnostics":
		return runDiagnostics(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runCatalog(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("catalog", flag.ContinueOnError)
	opcodes := fs.String("opcodes", "", "opcode table path (built-in table when empty)")
	showTransitions := fs.Bool("transitions", false, "print the category transition table instead")
	jsonOut := fs.Bool("json", false, "emit descriptors as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cat, err := loadCatalog(*opcodes)
	if err != nil {
		return err
	}
	if *showTransitions {
		for _, row := range cat.Transitions() {
			cells := make([]string, len(row))
			for i, w := range row {
				cells[i] = fmt.Sprintf("%g", w)
			}
			fmt.Println(strings.Join(cells, " "))
		}
		return nil
	}
	descriptors := cat.Descriptors()
	if *jsonOut {
		return printJSON(descriptors)
	}
	for _, d := range descriptors {
		fmt.Printf("tag=%s terminal=%t %s\n", d.Tag, d.Terminal(), d)
	}
	fmt.Printf("descriptors=%s\n", humanize.Comma(int64(len(descriptors))))
	return nil
}

func runGenerate(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	opcodes := fs.String("opcodes", "", "opcode table path (built-in table when empty)")
	seed := fs.Int64("seed", 1, "rng seed")
	count := fs.Int("count", 1, "number of programs")
	terminalProbability := fs.Float64("terminal-probability", 0.5, "probability of choosing a terminal opcode")
	maxDepth := fs.Int("max-depth", 5, "depth budget")
	format := fs.String("format", "instr", "output format: instr|orc|json|dot")
	duration := fs.Float64("duration", 1, "score duration in seconds for --format orc")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *count <= 0 {
		return errors.New("count must be > 0")
	}

	cat, err := loadCatalog(*opcodes)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(*seed))
	for i := 0; i < *count; i++ {
		prog, err := dspgp.Generate(rng, cat, *terminalProbability, *maxDepth)
		if err != nil {
			return err
		}
		if err := printTree(cat, prog, *format, *duration); err != nil {
			return err
		}
	}
	return nil
}

func runMutate(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("mutate", flag.ContinueOnError)
	in := fs.String("in", "", "program tree JSON path (- for stdin)")
	op := fs.String("op", "subtree", "mutation: constants|subtree")
	opcodes := fs.String("opcodes", "", "opcode table path (built-in table when empty)")
	seed := fs.Int64("seed", 1, "rng seed")
	blend := fs.Float64("blend", 0.2, "constant blend factor")
	terminalProbability := fs.Float64("terminal-probability", 0.5, "probability of choosing a terminal opcode")
	maxDepth := fs.Int("max-depth", 5, "depth budget")
	format := fs.String("format", "json", "output format: instr|orc|json|dot")
	duration := fs.Float64("duration", 1, "score duration in seconds for --format orc")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("mutate requires --in")
	}

	var data []byte
	var err error
	if *in == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(*in)
	}
	if err != nil {
		return err
	}
	prog, err := dspgp.ParseTree(data)
	if err != nil {
		return err
	}
	cat, err := loadCatalog(*opcodes)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(*seed))
	var mutant dspgp.Tree
	switch *op {
	case "constants":
		mutant, err = dspgp.MutateConstants(rng, cat, prog, *blend)
	case "subtree":
		var ok bool
		mutant, ok, err = dspgp.MutateSubtree(rng, cat, prog, *terminalProbability, *maxDepth)
		if err == nil && !ok {
			fmt.Fprintln(os.Stderr, "mutation no-op: no eligible subtree")
		}
	default:
		return fmt.Errorf("unsupported mutation: %s", *op)
	}
	if err != nil {
		return err
	}
	return printTree(cat, mutant, *format, *duration)
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var configPaths stringList
	fs.Var(&configPaths, "config", "experiment config (CUE or JSON), repeatable")
	logLevel := fs.String("log-level", "info", "log level: debug|info|warn|error")
	logFormat := fs.String("log-format", "", "terminal log format: text|json (auto when empty)")
	values := registerExperimentFlags(fs, dspgp.DefaultExperiment())
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	exp, err := dspgp.LoadExperiment(configPaths...)
	if err != nil {
		return err
	}
	overrideFromFlags(&exp, setFlags, values)
	if _, err := exp.Timeout(); err != nil {
		return err
	}

	level, err := logs.ParseLevel(*logLevel)
	if err != nil {
		return err
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)
	logger := logs.New(logs.Options{Level: levelVar, Format: logs.Format(*logFormat)})

	client, err := dspgp.New(dspgp.Options{
		StoreKind:  exp.Store,
		DBPath:     exp.DBPath,
		RunsDir:    exp.OutDir,
		ExportsDir: exportsDir,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, exp)
	if err != nil {
		return err
	}
	fmt.Printf("run_id=%s generations=%d final_best_fitness=%.6f best_id=%s elapsed=%s artifacts=%s\n",
		summary.RunID,
		len(summary.BestByGeneration),
		summary.FinalBestFitness,
		summary.BestID,
		summary.Elapsed.Round(time.Millisecond),
		summary.ArtifactsDir,
	)
	fmt.Println(summary.BestProgram)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	dir := fs.String("runs-dir", runsDir, "run artifacts directory")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := dspgp.New(dspgp.Options{RunsDir: *dir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, dspgp.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		return printJSON(items)
	}

	for _, item := range items {
		size, err := dirSize(filepath.Join(*dir, item.RunID))
		if err != nil {
			return err
		}
		fmt.Printf("run_id=%s created=%q target=%s seed=%d pop=%d gens=%d final_best_fitness=%.6f artifacts=%s\n",
			item.RunID,
			humanize.Time(item.CreatedAtUTC),
			item.Target,
			item.Seed,
			item.Population,
			item.Generations,
			item.FinalBestFitness,
			humanize.Bytes(size),
		)
	}
	return nil
}

func runLineage(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("lineage", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show lineage for the most recent run from run index")
	limit := fs.Int("limit", 50, "max lineage rows to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit lineage rows as JSON")
	opts := registerStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector(*runID, *latest, "lineage"); err != nil {
		return err
	}
	if *limit < 0 {
		*limit = 0
	}

	client, err := dspgp.New(opts.options())
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	lineage, err := client.Lineage(ctx, dspgp.LineageRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if len(lineage) == 0 {
		fmt.Println("no lineage records")
		return nil
	}
	if *jsonOut {
		return printJSON(lineage)
	}
	for _, rec := range lineage {
		fmt.Printf("gen=%d individual_id=%s parent_id=%s op=%s nodes=%d\n",
			rec.Generation,
			rec.IndividualID,
			rec.ParentID,
			rec.Operation,
			rec.NodeCount,
		)
	}
	return nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show fitness history for the most recent run from run index")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit fitness history as JSON")
	opts := registerStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector(*runID, *latest, "fitness"); err != nil {
		return err
	}
	if *limit < 0 {
		*limit = 0
	}

	client, err := dspgp.New(opts.options())
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, dspgp.FitnessHistoryRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no fitness history")
		return nil
	}
	if *jsonOut {
		return printJSON(history)
	}
	for i, best := range history {
		fmt.Printf("generation=%d best_fitness=%.6f\n", i+1, best)
	}
	series := dspgp.SummarizeFitness(history)
	fmt.Printf("summary generations=%d improvement=%.6f stalled=%d best_std=%.6f\n",
		series.Generations,
		series.Improvement,
		series.Stalled,
		series.BestStd,
	)
	return nil
}

func runDiagnostics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show diagnostics for the most recent run from run index")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	opts := registerStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector(*runID, *latest, "diagnostics"); err != nil {
		return err
	}
	if *limit < 0 {
		*limit = 0
	}

	client, err := dspgp.New(opts.options())
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	diagnostics, err := client.Diagnostics(ctx, dspgp.DiagnosticsRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if len(diagnostics) == 0 {
		fmt.Println("no diagnostics")
		return nil
	}
	if *jsonOut {
		return printJSON(diagnostics)
	}
	for _, d := range diagnostics {
		fmt.Printf("generation=%d best=%.6f mean=%.6f min=%.6f std=%.6f population=%d evaluated=%d render_failures=%d mutation_noops=%d mean_nodes=%.2f diversity=%d\n",
			d.Generation,
			d.BestFitness,
			d.MeanFitness,
			d.MinFitness,
			d.StdDevFitness,
			d.PopulationSize,
			d.Evaluated,
			d.RenderFailures,
			d.MutationNoOps,
			d.MeanNodeCount,
			d.ProgramDiversity,
		)
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	id := fs.String("id", "", "individual id")
	runID := fs.String("run-id", "", "list the final population of a run")
	latest := fs.Bool("latest", false, "list the final population of the most recent run")
	format := fs.String("format", "instr", "output format: instr|json|dot")
	opts := registerStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *format == "orc" {
		return errors.New("show does not support --format orc")
	}
	if *id == "" {
		if err := checkRunSelector(*runID, *latest, "show"); err != nil {
			return fmt.Errorf("%w (or --id)", err)
		}
	}

	client, err := dspgp.New(opts.options())
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if *id == "" {
		population, err := client.Population(ctx, dspgp.PopulationRequest{RunID: *runID, Latest: *latest})
		if err != nil {
			return err
		}
		for _, ind := range population {
			printIndividual(ind)
		}
		return nil
	}

	ind, err := client.Individual(ctx, dspgp.IndividualRequest{ID: *id})
	if err != nil {
		return err
	}
	printIndividual(ind)
	return printTree(nil, ind.Tree, *format, 0)
}

func printIndividual(ind dspgp.IndividualItem) {
	fmt.Printf("id=%s run_id=%s parent_id=%s op=%s gen=%d fitness=%.6f similarity=%.6f nodes=%d depth=%d\n",
		ind.ID,
		ind.RunID,
		ind.ParentID,
		ind.Operation,
		ind.Generation,
		ind.Fitness,
		ind.Similarity,
		ind.Tree.NodeCount(),
		ind.Tree.Depth(),
	)
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", exportsDir, "export output directory")
	dir := fs.String("runs-dir", runsDir, "run artifacts directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector(*runID, *latest, "export"); err != nil {
		return err
	}

	client, err := dspgp.New(dspgp.Options{RunsDir: *dir, ExportsDir: *outDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, dspgp.ExportRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s to=%s\n", exported.RunID, exported.Directory)
	return nil
}

type storeFlags struct {
	storeKind *string
	dbPath    *string
	runsDir   *string
}

func registerStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		storeKind: fs.String("store", "memory", "store backend: memory|sqlite"),
		dbPath:    fs.String("db-path", dbPath, "sqlite database path"),
		runsDir:   fs.String("runs-dir", runsDir, "run artifacts directory"),
	}
}

func (f storeFlags) options() dspgp.Options {
	return dspgp.Options{
		StoreKind:  *f.storeKind,
		DBPath:     *f.dbPath,
		RunsDir:    *f.runsDir,
		ExportsDir: exportsDir,
	}
}

func checkRunSelector(runID string, latest bool, command string) error {
	if runID != "" && latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if runID == "" && !latest {
		return fmt.Errorf("%s requires --run-id or --latest", command)
	}
	return nil
}

func loadCatalog(path string) (*dspgp.Catalog, error) {
	if path == "" {
		return dspgp.BuildCatalog(nil)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cat, err := dspgp.BuildCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

func printTree(cat *dspgp.Catalog, prog dspgp.Tree, format string, duration float64) error {
	switch format {
	case "instr":
		fmt.Println(prog.Serialize())
	case "orc":
		p := prog.Assemble(cat, duration)
		fmt.Print(p.Orchestra)
		fmt.Print(p.Score)
	case "json":
		data, err := prog.MarshalJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "dot":
		fmt.Print(prog.DOT())
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dirSize(dir string) (uint64, error) {
	var total uint64
	err := filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += uint64(info.Size())
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	return total, err
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: dspgpctl <catalog|generate|mutate|run|runs|lineage|fitness|diagnostics|show|export> [flags]", msg)
}
