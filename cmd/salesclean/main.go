package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/cognicore/salesclean/internal/logging"
	"github.com/cognicore/salesclean/pkg/salesclean"
	"github.com/cognicore/salesclean/pkg/salesclean/config"
	"github.com/cognicore/salesclean/pkg/salesclean/mapping"
	"github.com/cognicore/salesclean/pkg/salesclean/pipeline"
	"github.com/cognicore/salesclean/pkg/salesclean/store"
	"github.com/cognicore/salesclean/pkg/salesclean/store/sqlite"
)

func main() {
	var (
		input       = flag.String("input", "", "File to clean (.csv, .xlsx, .html)")
		output      = flag.String("output", "datos_limpios.csv", "Destination file; format follows the extension")
		dir         = flag.String("dir", "", "Clean every supported file in this directory instead of --input")
		outDir      = flag.String("out-dir", "", "Destination directory for --dir (default: <dir>/limpios)")
		configPath  = flag.String("config", "", "Optional YAML config overlay")
		citiesPath  = flag.String("cities", "", "Optional YAML city list replacing the built-in table")
		mapPath     = flag.String("map", "", "Optional YAML column mapping replacing header detection")
		dbPath      = flag.String("db", "", "Optional SQLite file recording run history")
		logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		logFormat   = flag.String("log-format", "text", "Log format: text, json")
		printConfig = flag.Bool("print-config", false, "Print the effective configuration and exit")
	)
	flag.Parse()

	logger := logging.Setup(*logLevel, *logFormat)

	loader := config.Loader{
		ConfigPath: *configPath,
		CitiesPath: *citiesPath,
	}
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if *printConfig {
		out, err := config.Marshal(cfg)
		if err != nil {
			log.Fatalf("marshal config: %v", err)
		}
		fmt.Print(string(out))
		return
	}

	if *input == "" && *dir == "" {
		log.Fatal("--input or --dir required")
	}
	if *input != "" && *dir != "" {
		log.Fatal("--input and --dir are mutually exclusive")
	}

	opts := pipeline.Options{Config: cfg, Logger: logger}
	if *mapPath != "" {
		cols, err := config.LoadMapping(*mapPath)
		if err != nil {
			log.Fatalf("load mapping: %v", err)
		}
		opts.Matcher = mapping.Fixed(cols)
	}
	pipe, err := pipeline.New(opts)
	if err != nil {
		log.Fatalf("create pipeline: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	var st store.Store
	if *dbPath != "" {
		st, err = sqlite.OpenSQLite(ctx, *dbPath)
		if err != nil {
			log.Fatalf("open run history: %v", err)
		}
	}

	cleaner, err := salesclean.New(salesclean.Options{Pipeline: pipe, Store: st, Logger: logger})
	if err != nil {
		log.Fatalf("create cleaner: %v", err)
	}

	var code int
	if *dir != "" {
		code = cleanDir(ctx, cleaner, *dir, *outDir)
	} else {
		code = cleanFile(ctx, cleaner, *input, *output)
	}
	if err := cleaner.Close(); err != nil {
		logger.Warn("closing run history", "error", err)
	}
	stop()
	os.Exit(code)
}

func cleanFile(ctx context.Context, c *salesclean.Cleaner, input, output string) int {
	rep, err := c.Run(ctx, input, output)
	if rep.Structure.Preview != nil {
		printStructure(os.Stdout, rep.Structure)
	}
	if err != nil {
		slog.Error("cleaning failed", "run", rep.RunID, "error", err)
		return 1
	}
	printSummary(os.Stdout, rep.Result)
	fmt.Printf("\nDatos limpios guardados en %s (run %s)\n", output, rep.RunID)
	return 0
}

func cleanDir(ctx context.Context, c *salesclean.Cleaner, dir, outDir string) int {
	if outDir == "" {
		outDir = filepath.Join(dir, "limpios")
	}
	res, err := c.RunDir(ctx, dir, outDir)
	if err != nil {
		slog.Error("batch run stopped", "error", err)
	}
	printBatch(os.Stdout, res)
	if err != nil || res.Failed > 0 {
		return 1
	}
	return 0
}

func printStructure(w io.Writer, s pipeline.StructureReport) {
	fmt.Fprintln(w, "=== Estructura detectada ===")
	fmt.Fprintf(w, "Filas analizadas: %d\n", s.Rows)
	fmt.Fprintf(w, "Columnas originales: %s\n", strings.Join(s.Columns, ", "))
	if s.Repair != "" {
		fmt.Fprintf(w, "Reparación aplicada: %s\n", s.Repair)
	}

	fmt.Fprintln(w, "\nMapeo propuesto:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, a := range s.Mapping.Assignments {
		fmt.Fprintf(tw, "  %s\t→ %s\t(%s)\n", a.Source, a.Target, a.Method)
	}
	tw.Flush()

	fmt.Fprintln(w, "\nColumnas:")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, p := range s.Profiles {
		fmt.Fprintf(tw, "  %s\t%s\tnulos=%d\t%s\n", p.Name, p.Kind, p.Nulls, strings.Join(p.Examples, " | "))
	}
	tw.Flush()

	if s.Preview.Len() > 0 {
		fmt.Fprintln(w, "\nVista previa:")
		printRows(w, s.Preview.Columns, s.Preview.Records())
	}
}

func printSummary(w io.Writer, r *pipeline.Result) {
	s := r.Stats
	fmt.Fprintln(w, "\n=== Resumen de limpieza ===")
	fmt.Fprintf(w, "Filas originales: %d\n", s.OriginalRows)
	fmt.Fprintf(w, "Filas finales: %d\n", s.FinalRows)
	fmt.Fprintf(w, "Columnas finales: %d\n", s.FinalColumns)
	fmt.Fprintf(w, "Filas eliminadas: %d\n", s.RemovedRows)
	fmt.Fprintf(w, "Completitud: %.2f%%\n", s.Completeness)
	if r.Derived {
		fmt.Fprintln(w, "total_ventas calculado a partir de cantidad y precio_unitario")
	}
	if len(r.DroppedColumns) > 0 {
		fmt.Fprintf(w, "Columnas duplicadas eliminadas: %s\n", strings.Join(r.DroppedColumns, ", "))
	}

	if len(r.Countries) > 0 {
		fmt.Fprintln(w, "\nFilas por país:")
		for _, c := range r.Countries {
			fmt.Fprintf(w, "  %s: %d\n", c.Country, c.Rows)
		}
	}

	fmt.Fprintln(w, "\nValidez por columna:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, v := range s.ColumnValidity() {
		fmt.Fprintf(tw, "  %s\t%d/%d\t%.1f%%\t\n", v.Column, v.Valid, v.Total, v.Percent)
	}
	tw.Flush()
}

func printBatch(w io.Writer, res salesclean.DirResult) {
	fmt.Fprintf(w, "Procesados: %d  Limpios: %d  Fallidos: %d\n", res.Processed, res.Cleaned, res.Failed)
	for _, src := range slices.Sorted(maps.Keys(res.Outputs)) {
		fmt.Fprintf(w, "  %s → %s\n", src, res.Outputs[src])
	}
	for _, src := range slices.Sorted(maps.Keys(res.Failures)) {
		fmt.Fprintf(w, "  %s: %v\n", src, res.Failures[src])
	}
}

func printRows(w io.Writer, header []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  %s\n", strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintf(tw, "  %s\n", strings.Join(r, "\t"))
	}
	tw.Flush()
}
