package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"gocoex/adapters/excel"
	"gocoex/adapters/postgres"
	"gocoex/adapters/report"
	"gocoex/adapters/spatial"
	"gocoex/adapters/stats/estimate"
	"gocoex/adapters/stats/local"
	"gocoex/app"
	"gocoex/domain/core"
	"gocoex/domain/dataset"
	"gocoex/domain/run"
	"gocoex/internal/migration"
	"gocoex/internal/testkit"
	"gocoex/ports"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gocoex-cli",
		Short: "Spatial co-expression analysis from workbook datasets",
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newSynthCmd(),
		newMethodsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newAnalyzeCmd() *cobra.Command {
	var (
		method          string
		kernel          string
		kernelParam     float64
		cutoff          float64
		knn             int
		masked          bool
		weightThreshold float64
		permutations    int
		seed            int64
		positiveOnly    bool
		estimator       string
		metabolites     []string
		outDir          string
		store           bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [workbook.xlsx] [pairs...]",
		Short: "Run a local bivariate analysis on a workbook dataset",
		Long: `Run the full local analysis pipeline on an Excel workbook: build the
spatial proximity matrix, score each entity pair per spot, and optionally
test significance with a permutation test.

Pairs use the "x^y" convention, e.g. ligand^receptor. Metabolite entities
are declared with --metabolite and referenced in pairs like any gene.

Example: gocoex-cli analyze spots.xlsx liga^reca ligb^recb --permutations 200 --seed 42`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := run.Parameters{
				Method:          method,
				KernelFamily:    kernel,
				KernelParam:     kernelParam,
				BypassDiagonal:  true,
				Masked:          masked,
				WeightThreshold: weightThreshold,
				Permutations:    permutations,
				Seed:            seed,
				PositiveOnly:    positiveOnly,
				Estimator:       estimator,
			}
			if knn > 0 {
				params.NNeighbors = knn
			}
			if cmd.Flags().Changed("cutoff") || knn == 0 {
				params.KernelCutoff = &cutoff
			}

			specs, err := parseMetaboliteSpecs(metabolites)
			if err != nil {
				return err
			}
			params.Metabolites = specs

			return runAnalyze(cmd.Context(), args[0], args[1:], params, outDir, store)
		},
	}

	cmd.Flags().StringVar(&method, "method", "pearson", "Statistic: pearson|spearman|cosine|jaccard")
	cmd.Flags().StringVar(&kernel, "kernel", "gaussian", "Proximity kernel: gaussian|rbf|exponential|linear")
	cmd.Flags().Float64Var(&kernelParam, "kernel-param", 100, "Kernel bandwidth in coordinate units")
	cmd.Flags().Float64Var(&cutoff, "cutoff", 0.1, "Proximity cutoff, weights below are dropped")
	cmd.Flags().IntVar(&knn, "knn", 0, "Keep only the k nearest neighbours per spot (0 disables)")
	cmd.Flags().BoolVar(&masked, "masked", false, "Use the masked per-spot engine instead of the vectorized one")
	cmd.Flags().Float64Var(&weightThreshold, "weight-threshold", 0, "Minimum proximity weight for the masked engine")
	cmd.Flags().IntVar(&permutations, "permutations", 100, "Permutation count for significance testing (0 disables)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic permutations")
	cmd.Flags().BoolVar(&positiveOnly, "positive-only", false, "One-sided test, negative statistics forced to p=1")
	cmd.Flags().StringVar(&estimator, "estimator", "", "Metabolite estimator: mean|nnzmean|gmean|hmean|max")
	cmd.Flags().StringArrayVar(&metabolites, "metabolite", nil, `Metabolite spec "key=prod1,prod2/deg1" (repeatable)`)
	cmd.Flags().StringVar(&outDir, "out", "", "Directory for report.md, report.html and result.json")
	cmd.Flags().BoolVar(&store, "store", false, "Persist the run to DATABASE_URL")

	return cmd
}

func newSynthCmd() *cobra.Command {
	var (
		gridWidth  int
		gridHeight int
		spacing    float64
		noise      float64
		seed       int64
	)

	cmd := &cobra.Command{
		Use:   "synth [output.xlsx]",
		Short: "Write a synthetic spatial workbook for testing",
		Long: `Generate a synthetic spatial transcriptomics workbook with two expression
foci: a co-localised ligand/receptor pair on one focus, a split pair across
both, metabolite synthesis and degradation genes, and uniform noise genes.

Example: gocoex-cli synth demo.xlsx --grid-width 20 --seed 7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := testkit.DefaultSpatialConfig()
			config.GridWidth = gridWidth
			config.GridHeight = gridHeight
			config.Spacing = spacing
			config.NoiseLevel = noise
			config.Seed = seed

			return runSynth(args[0], config)
		},
	}

	defaults := testkit.DefaultSpatialConfig()
	cmd.Flags().IntVar(&gridWidth, "grid-width", defaults.GridWidth, "Spots per grid row")
	cmd.Flags().IntVar(&gridHeight, "grid-height", defaults.GridHeight, "Spots per grid column")
	cmd.Flags().Float64Var(&spacing, "spacing", defaults.Spacing, "Distance between neighbouring spots")
	cmd.Flags().Float64Var(&noise, "noise", defaults.NoiseLevel, "Uniform noise level relative to amplitude")
	cmd.Flags().Int64Var(&seed, "seed", defaults.Seed, "Random seed for deterministic generation")

	return cmd
}

func newMethodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List supported statistics, kernels and estimators",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Statistics:")
			for _, m := range local.Methods() {
				fmt.Printf("  %s\n", m)
			}
			fmt.Println("Proximity kernels:")
			for _, f := range spatial.Families() {
				fmt.Printf("  %s\n", f)
			}
			fmt.Println("Metabolite estimators:")
			for _, e := range estimate.Estimators() {
				fmt.Printf("  %s\n", e)
			}
			return nil
		},
	}
}

func runAnalyze(ctx context.Context, workbook string, pairKeys []string, params run.Parameters, outDir string, store bool) error {
	fmt.Printf("🔬 Analyzing %d pairs from %s...\n", len(pairKeys), workbook)

	pairs, err := dataset.PairsFromKeys(pairKeys)
	if err != nil {
		return fmt.Errorf("invalid pair keys: %w", err)
	}

	resolver := excel.NewWorkbookResolver()
	bundle, err := resolver.ResolveBundle(ctx, ports.BundleResolutionRequest{Source: workbook})
	if err != nil {
		return fmt.Errorf("failed to load workbook: %w", err)
	}

	repo, err := openRepository(ctx, store)
	if err != nil {
		return err
	}

	service := app.NewAnalysisService(repo, runtime.GOMAXPROCS(0), 1)

	startTime := time.Now()
	out, err := service.Run(ctx, app.AnalysisRequest{
		Bundle: bundle,
		Pairs:  pairs,
		Params: params,
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	fmt.Printf("\n📊 ANALYSIS RESULTS\n")
	fmt.Printf("Run: %s\n", out.Run.ID)
	fmt.Printf("Spots: %d, Pairs: %d\n", out.Run.SpotCount, out.Run.PairCount)
	fmt.Printf("Statistic: %s, Kernel: %s\n", out.Run.Params.Method, out.Run.Params.KernelFamily)
	fmt.Printf("Elapsed: %v\n", time.Since(startTime))

	fmt.Printf("\n%-24s %10s %12s %10s %10s\n", "PAIR", "MEAN", "SIGNIFICANT", "AGREE", "OPPOSE")
	for _, summary := range out.Run.Summaries {
		significant := "n/a"
		if params.Permutations > 0 {
			significant = fmt.Sprintf("%.1f%%", summary.FracSignificant*100)
		}
		fmt.Printf("%-24s %10.4f %12s %10d %10d\n",
			summary.Pair, summary.MeanStat, significant, summary.Agreeing, summary.Opposing)
	}

	if store {
		fmt.Printf("\n💾 Run persisted as %s\n", out.Run.ID)
	}

	if outDir != "" {
		if err := writeArtifacts(outDir, out); err != nil {
			return err
		}
		fmt.Printf("📁 Report written to %s\n", outDir)
	}

	fmt.Printf("\n✅ ANALYSIS COMPLETED\n")
	return nil
}

func runSynth(path string, config testkit.SpatialGeneratorConfig) error {
	fmt.Printf("🧪 Generating %dx%d synthetic grid (seed %d)...\n", config.GridWidth, config.GridHeight, config.Seed)

	generator := testkit.NewSpatialDataGenerator(config)
	bundle, err := generator.GenerateBundle()
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if err := excel.WriteBundle(path, bundle); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	fmt.Printf("Spots: %d, Entities: %d\n", len(bundle.Spots), len(bundle.Entities))
	fmt.Printf("Panel: %s\n", joinEntities(bundle.Entities))
	fmt.Printf("\n💾 Workbook written to %s\n", path)
	fmt.Printf("Try: gocoex-cli analyze %s liga^reca ligb^recb --permutations 200\n", path)
	return nil
}

// openRepository returns a postgres-backed repository when persistence was
// requested, nil otherwise. Runs without a repository stay ephemeral.
func openRepository(ctx context.Context, store bool) (ports.RunRepository, error) {
	if !store {
		return nil, nil
	}

	_ = godotenv.Load()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, fmt.Errorf("--store requires DATABASE_URL to be set")
	}

	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres.NewRunRepository(db), nil
}

func writeArtifacts(dir string, out *app.AnalysisOutput) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	md := report.BuildMarkdown(out.Run)
	if err := os.WriteFile(filepath.Join(dir, "report.md"), []byte(md), 0644); err != nil {
		return fmt.Errorf("failed to write report.md: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "report.html"), report.RenderHTML(md), 0644); err != nil {
		return fmt.Errorf("failed to write report.html: %w", err)
	}

	resultJSON, err := json.MarshalIndent(out.Result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "result.json"), resultJSON, 0644); err != nil {
		return fmt.Errorf("failed to write result.json: %w", err)
	}

	return nil
}

// parseMetaboliteSpecs parses "key=prod1,prod2/deg1,deg2" flags. The degraded
// part is optional.
func parseMetaboliteSpecs(raw []string) ([]dataset.MetaboliteSpec, error) {
	specs := make([]dataset.MetaboliteSpec, 0, len(raw))
	for _, entry := range raw {
		key, genes, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metabolite spec %q (want key=prod1,prod2/deg1)", entry)
		}
		producedPart, degradedPart, _ := strings.Cut(genes, "/")
		produced := splitGenes(producedPart)
		if len(produced) == 0 {
			return nil, fmt.Errorf("metabolite %q needs at least one producing gene", key)
		}
		specs = append(specs, dataset.MetaboliteSpec{
			Key:      core.EntityKey(key),
			Produced: produced,
			Degraded: splitGenes(degradedPart),
		})
	}
	return specs, nil
}

func splitGenes(csv string) []core.EntityKey {
	var keys []core.EntityKey
	for _, part := range strings.Split(csv, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			keys = append(keys, core.EntityKey(trimmed))
		}
	}
	return keys
}

func joinEntities(entities []core.EntityKey) string {
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = string(e)
	}
	return strings.Join(names, ", ")
}
