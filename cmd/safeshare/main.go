// Command safeshare anonymizes PII in tabular files from the command
// line: scan a file for PII columns, rewrite them with consistent
// pseudonyms, and optionally keep the reversal mapping under password
// encryption.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/safeshare/safeshare/internal/anonymize"
	"github.com/safeshare/safeshare/internal/config"
	"github.com/safeshare/safeshare/internal/detect"
	"github.com/safeshare/safeshare/internal/files"
	"github.com/safeshare/safeshare/internal/logger"
	"github.com/safeshare/safeshare/internal/mapcrypto"
	"github.com/safeshare/safeshare/internal/pii"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Path to configuration file")
		showVersion  = flag.Bool("version", false, "Show version information")
		input        = flag.String("input", "", "Input file (.xlsx or .csv)")
		output       = flag.String("output", "", "Output file for the anonymized data")
		scanOnly     = flag.Bool("scan", false, "Scan only: print detected PII columns and exit")
		columns      = flag.String("columns", "", "Column overrides, e.g. 'Phone=phone,FullName=person_name'")
		noAuto       = flag.Bool("no-auto", false, "Ignore detected columns; anonymize only -columns")
		password     = flag.String("password", "", "Password for mapping encryption/decryption")
		mappingOut   = flag.String("mapping", "", "Path for the encrypted mapping file")
		decryptPath  = flag.String("decrypt", "", "Decrypt an encrypted mapping file and print it")
		deleteSource = flag.Bool("delete-source", false, "Securely delete the input file after anonymizing")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("SafeShare %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *decryptPath != "" {
		if err := runDecrypt(*decryptPath, *password); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Error: -input is required (or use -decrypt)")
		flag.Usage()
		os.Exit(1)
	}

	detector, err := detect.New(detect.Options{
		SampleSize:  cfg.Detection.SampleSize,
		Threshold:   cfg.Detection.Threshold,
		HintEpsilon: cfg.Detection.HintEpsilon,
	}, log.WithComponent("detect").Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ds, err := files.Read(*input, files.Options{
		MaxSizeMB:         cfg.Files.MaxSizeMB,
		AllowedExtensions: cfg.Files.AllowedExtensions,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.Info("file loaded",
		zap.String("path", *input),
		zap.Int("rows", ds.Rows()),
		zap.Int("columns", len(ds.Columns)),
	)

	profiles := detector.ScanDataset(ds)
	printProfiles(profiles, detector.Threshold())

	if *scanOnly {
		return
	}
	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: -output is required unless -scan is set")
		os.Exit(1)
	}

	assignment, err := buildAssignment(profiles, *columns, *noAuto)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(assignment) == 0 {
		fmt.Println("Nothing to anonymize: no PII columns detected or assigned.")
		return
	}

	anonymizer := anonymize.New(detector, log.WithComponent("anonymize").Logger,
		anonymize.WithPadding(cfg.Anonymize.Padding))

	transformed, store, err := anonymizer.Anonymize(ds, assignment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, warning := range anonymizer.Validate(transformed) {
		fmt.Printf("Warning: column %q still detects as %s (ratio %.2f); consider widening the selection\n",
			warning.Column, warning.Category, warning.Ratio)
	}

	if err := files.Write(transformed, *output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Anonymized %d columns (%d values mapped) -> %s\n", len(assignment), store.Size(), *output)

	if *mappingOut != "" {
		if *password == "" {
			fmt.Fprintln(os.Stderr, "Error: -password is required to write an encrypted mapping")
			os.Exit(1)
		}
		blob, err := mapcrypto.Encrypt(store, *password)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*mappingOut, blob, 0o600); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to write mapping: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Encrypted mapping written to %s\n", *mappingOut)
	}

	if *deleteSource {
		if err := files.SecureDelete(*input); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to delete source: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Source file securely deleted: %s\n", *input)
	}
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled: true,
			Path:    cfg.Logging.File.Path,
		}
	}
	return logger.New(loggerConfig)
}

// runDecrypt recovers a mapping from an encrypted file and prints its
// canonical JSON form to stdout.
func runDecrypt(path, password string) error {
	if password == "" {
		return fmt.Errorf("-password is required with -decrypt")
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read mapping file: %w", err)
	}
	store, err := mapcrypto.Decrypt(blob, password)
	if err != nil {
		return err
	}
	data, err := store.Serialize()
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// buildAssignment merges detected categories with explicit overrides.
func buildAssignment(profiles []detect.ColumnProfile, overrides string, noAuto bool) (anonymize.Assignment, error) {
	assignment := make(anonymize.Assignment)
	if !noAuto {
		for _, profile := range profiles {
			if profile.Category != pii.CategoryOther {
				assignment[profile.Column] = profile.Category
			}
		}
	}
	if overrides == "" {
		return assignment, nil
	}
	for _, pair := range strings.Split(overrides, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid column override %q (want name=category)", pair)
		}
		category := pii.Category(parts[1])
		if !pii.Valid(category) {
			return nil, fmt.Errorf("column %q: %w: %q", parts[0], pii.ErrUnknownCategory, parts[1])
		}
		assignment[parts[0]] = category
	}
	return assignment, nil
}

// printProfiles renders scan results as a fixed-width table.
func printProfiles(profiles []detect.ColumnProfile, threshold float64) {
	fmt.Printf("%-24s %-12s %8s %8s\n", "COLUMN", "CATEGORY", "SAMPLED", "RATIO")
	for _, profile := range profiles {
		ratio := profile.Ratios[profile.Category]
		category := string(profile.Category)
		if profile.Category == pii.CategoryOther {
			category = "-"
			ratio = topRatio(profile.Ratios)
		}
		fmt.Printf("%-24s %-12s %8d %8.2f\n", profile.Column, category, profile.Sampled, ratio)
	}
	fmt.Printf("(threshold %.2f; columns marked '-' were not auto-selected)\n", threshold)
}

func topRatio(ratios map[pii.Category]float64) float64 {
	keys := make([]string, 0, len(ratios))
	for cat := range ratios {
		keys = append(keys, string(cat))
	}
	sort.Strings(keys)
	best := 0.0
	for _, key := range keys {
		if r := ratios[pii.Category(key)]; r > best {
			best = r
		}
	}
	return best
}
