// Command opentoken tokenizes person records from a delimited-text file and
// writes (record id, rule id, token) tuples to a CSV or MessagePack output.
//
// Secrets come from the environment (optionally a .env file):
//
//	HASH_KEY            keyed-hash secret (required)
//	ENCRYPT_KEY         32-byte AES-256 key (optional)
//	ENCRYPT_PASSPHRASE  passphrase to derive an AES key from (optional,
//	                    alternative to ENCRYPT_KEY)
//	ENCRYPT_KEY_SALT    salt for passphrase derivation
//	ENCRYPT_MODE        gcm (default) or cbc
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/zoobzio/opentoken"
	otcsv "github.com/zoobzio/opentoken/csv"
	otmsgpack "github.com/zoobzio/opentoken/msgpack"
)

type config struct {
	hashKey    string
	encryptKey string
	mode       string
}

// loadConfig pulls secrets from the environment. Keys are opaque bytes and
// never printed.
func loadConfig(envFile string) (*config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	} else {
		// A missing default .env is fine; explicit paths are not.
		_ = godotenv.Load()
	}

	cfg := &config{
		hashKey:    os.Getenv("HASH_KEY"),
		encryptKey: os.Getenv("ENCRYPT_KEY"),
		mode:       strings.ToLower(os.Getenv("ENCRYPT_MODE")),
	}
	if cfg.mode == "" {
		cfg.mode = string(opentoken.ModeGCM)
	}

	if cfg.encryptKey == "" {
		if passphrase := os.Getenv("ENCRYPT_PASSPHRASE"); passphrase != "" {
			key, err := opentoken.DeriveKey(passphrase, os.Getenv("ENCRYPT_KEY_SALT"))
			if err != nil {
				return nil, err
			}
			cfg.encryptKey = string(key)
		}
	}

	if cfg.hashKey == "" {
		return nil, fmt.Errorf("HASH_KEY is required")
	}
	return cfg, nil
}

// buildChain assembles hash-then-encrypt per configuration.
func buildChain(cfg *config) (opentoken.Chain, error) {
	hash, err := opentoken.NewHashTransformer(cfg.hashKey)
	if err != nil {
		return nil, err
	}
	chain := opentoken.Chain{hash}

	if cfg.encryptKey != "" {
		var enc *opentoken.EncryptTransformer
		if cfg.mode == string(opentoken.ModeCBC) {
			enc, err = opentoken.NewEncryptTransformerCBC(cfg.encryptKey)
		} else {
			enc, err = opentoken.NewEncryptTransformer(cfg.encryptKey)
		}
		if err != nil {
			return nil, err
		}
		chain = append(chain, enc)
	}
	return chain, nil
}

func main() {
	input := flag.String("input", "", "input CSV file of person attributes")
	output := flag.String("output", "", "output file for (record, rule, token) tuples")
	format := flag.String("format", "csv", "output format: csv or msgpack")
	catalogPath := flag.String("catalog", "", "optional YAML catalog definition (default: built-in)")
	envFile := flag.String("env", "", "optional .env file with secrets")
	workers := flag.Int("workers", runtime.NumCPU(), "number of processing workers")
	flag.Parse()

	if err := run(*input, *output, *format, *catalogPath, *envFile, *workers); err != nil {
		fmt.Fprintln(os.Stderr, "opentoken:", err)
		os.Exit(1)
	}
}

func run(input, output, format, catalogPath, envFile string, workers int) error {
	if input == "" || output == "" {
		return fmt.Errorf("-input and -output are required")
	}

	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	chain, err := buildChain(cfg)
	if err != nil {
		return err
	}

	catalog := opentoken.DefaultCatalog()
	if catalogPath != "" {
		data, err := os.ReadFile(catalogPath)
		if err != nil {
			return err
		}
		if catalog, err = opentoken.LoadCatalog(data); err != nil {
			return err
		}
		opentoken.RegisterCatalog(catalog)
	}

	in, err := os.Open(input)
	if err != nil {
		return err
	}
	defer in.Close()

	src, err := otcsv.NewReader(in)
	if err != nil {
		return err
	}

	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer out.Close()

	var sink opentoken.RecordSink
	var flush func() error
	switch format {
	case "csv":
		w := otcsv.NewWriter(out)
		sink, flush = w, w.Flush
	case "msgpack":
		sink, flush = otmsgpack.NewWriter(out), func() error { return nil }
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	metrics := opentoken.NewMetrics()
	processor := opentoken.NewProcessor(catalog, chain).WithMetrics(metrics)

	runID := uuid.NewString()
	if err := processor.ProcessConcurrent(ctx, src, sink, workers); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	snap := metrics.Snapshot()
	fmt.Printf("run %s: catalog %s, %d records, %d distinct tokens\n",
		runID, processor.CatalogVersion(), snap.Records, snap.DistinctTokens)
	for _, ruleID := range processor.RuleIDs() {
		fmt.Printf("  %s: %d tokens, %d skipped\n", ruleID, snap.Generated[ruleID], snap.Skipped[ruleID])
	}
	return nil
}
