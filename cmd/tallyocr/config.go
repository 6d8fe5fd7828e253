package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gardar/tallyocr/pkg/gdocai"
	"github.com/gardar/tallyocr/pkg/pipeline"
	"github.com/gardar/tallyocr/pkg/tally"
	"github.com/gardar/tallyocr/pkg/textract"
)

const (
	providerDocumentAI = "documentai"
	providerTesseract  = "tesseract"
	providerNone       = "none"
)

type timeoutsConfig struct {
	FetchSeconds     int `yaml:"fetch_seconds"`
	PrimarySeconds   int `yaml:"primary_seconds"`
	SecondarySeconds int `yaml:"secondary_seconds"`
}

type textractConfig struct {
	Region   string `yaml:"region"`
	S3Bucket string `yaml:"s3_bucket"`
}

type secondaryConfig struct {
	Provider        string   `yaml:"provider"` // documentai, tesseract or none
	ProjectID       string   `yaml:"project_id"`
	Location        string   `yaml:"location"`
	ProcessorID     string   `yaml:"processor_id"`
	CredentialsFile string   `yaml:"credentials_file"`
	Languages       []string `yaml:"languages"` // Tesseract language packs
}

type matchingConfig struct {
	Mode           string  `yaml:"mode"` // exact or fuzzy
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
}

// fileConfig is the YAML configuration of tallyocr
type fileConfig struct {
	StorageURL string            `yaml:"storage_url"`
	LockDir    string            `yaml:"lock_dir"`
	OutcomeDB  string            `yaml:"outcome_db"`
	Workers    int               `yaml:"workers"`
	LogLevel   string            `yaml:"log_level"`
	LogFormat  string            `yaml:"log_format"`
	Timeouts   timeoutsConfig    `yaml:"timeouts"`
	Textract   textractConfig    `yaml:"textract"`
	Secondary  secondaryConfig   `yaml:"secondary"`
	Matching   matchingConfig    `yaml:"matching"`
	Candidates []tally.Candidate `yaml:"candidates"`
}

// defaultConfig keeps everything under ./data of the working directory
func defaultConfig() fileConfig {
	t := pipeline.DefaultTimeouts()
	return fileConfig{
		StorageURL: "file://" + filepath.ToSlash(absPath("data")) + "?create_dir=true",
		OutcomeDB:  filepath.Join("data", "outcomes.db"),
		Workers:    1,
		LogLevel:   "info",
		LogFormat:  "auto",
		Timeouts: timeoutsConfig{
			FetchSeconds:     int(t.Fetch / time.Second),
			PrimarySeconds:   int(t.Primary / time.Second),
			SecondarySeconds: int(t.Secondary / time.Second),
		},
		Secondary: secondaryConfig{Provider: providerNone, Location: "eu"},
		Matching:  matchingConfig{Mode: "exact", FuzzyThreshold: tally.DefaultFuzzyThreshold},
	}
}

func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

// loadConfig reads a YAML file over the defaults. An empty path returns the
// defaults.
func loadConfig(path string) (*fileConfig, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.Secondary.Provider = strings.ToLower(strings.TrimSpace(cfg.Secondary.Provider))
	cfg.Matching.Mode = strings.ToLower(strings.TrimSpace(cfg.Matching.Mode))
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *fileConfig) validate() error {
	var errs []error
	if strings.TrimSpace(c.StorageURL) == "" {
		errs = append(errs, errors.New("storage_url is required"))
	}
	if strings.TrimSpace(c.OutcomeDB) == "" {
		errs = append(errs, errors.New("outcome_db is required"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.Timeouts.FetchSeconds < 0 || c.Timeouts.PrimarySeconds < 0 || c.Timeouts.SecondarySeconds < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if _, err := tally.StrategyByName(c.Matching.Mode, c.Matching.FuzzyThreshold); err != nil {
		errs = append(errs, err)
	}
	if c.Matching.FuzzyThreshold < 0 || c.Matching.FuzzyThreshold > 100 {
		errs = append(errs, fmt.Errorf("fuzzy_threshold must be within 0-100, got %v", c.Matching.FuzzyThreshold))
	}
	if len(c.Candidates) > 0 {
		if _, err := tally.NewCandidates(c.Candidates); err != nil {
			errs = append(errs, err)
		}
	}
	switch c.Secondary.Provider {
	case providerDocumentAI:
		if err := c.documentAI().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("secondary: %w", err))
		}
	case providerTesseract, providerNone:
	default:
		errs = append(errs, fmt.Errorf("secondary: unknown provider %q", c.Secondary.Provider))
	}
	return errors.Join(errs...)
}

func (c *fileConfig) timeouts() pipeline.Timeouts {
	return pipeline.Timeouts{
		Fetch:     time.Duration(c.Timeouts.FetchSeconds) * time.Second,
		Primary:   time.Duration(c.Timeouts.PrimarySeconds) * time.Second,
		Secondary: time.Duration(c.Timeouts.SecondarySeconds) * time.Second,
	}
}

func (c *fileConfig) textract() textract.Config {
	return textract.Config{Region: c.Textract.Region, S3Bucket: c.Textract.S3Bucket}
}

func (c *fileConfig) documentAI() gdocai.Config {
	return gdocai.Config{
		ProjectID:       c.Secondary.ProjectID,
		Location:        c.Secondary.Location,
		ProcessorID:     c.Secondary.ProcessorID,
		CredentialsFile: c.Secondary.CredentialsFile,
	}
}

// candidates returns the configured candidate table, or the built-in one
func (c *fileConfig) candidates() (*tally.Candidates, error) {
	if len(c.Candidates) == 0 {
		return tally.DefaultCandidates(), nil
	}
	return tally.NewCandidates(c.Candidates)
}

func (c *fileConfig) matcher() (*tally.Matcher, error) {
	cands, err := c.candidates()
	if err != nil {
		return nil, err
	}
	strategy, err := tally.StrategyByName(c.Matching.Mode, c.Matching.FuzzyThreshold)
	if err != nil {
		return nil, err
	}
	return tally.NewMatcher(cands, strategy), nil
}
