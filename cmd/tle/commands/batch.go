package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"

	"github.com/tlockio/tlock"
	"github.com/tlockio/tlock/networks/http"
)

// batchExt is appended to every encrypted file a batch run produces and
// stripped again on batch decryption.
const batchExt = ".tle"

// BatchResult records the outcome of one file in a batch run.
type BatchResult struct {
	File     string
	Err      error
	Duration time.Duration
}

// BatchEncrypt encrypts every file under flags.InputDir matching
// flags.Pattern into flags.OutputDir, preserving relative paths. The round
// is resolved once, so every file in the run unlocks at the same moment.
func BatchEncrypt(flags Flags, network *http.Network) error {
	round, err := resolveRound(flags, network)
	if err != nil {
		return err
	}

	return runBatch(flags, "encrypting", func(inputFile, relPath string) error {
		outputFile := filepath.Join(flags.OutputDir, relPath)
		if !strings.HasSuffix(outputFile, batchExt) {
			outputFile += batchExt
		}

		return processFile(inputFile, outputFile, func(dst *os.File, src *os.File) error {
			return tlock.EncryptStream(dst, src, network, round, flags.Armor)
		})
	})
}

// BatchDecrypt decrypts every file under flags.InputDir matching
// flags.Pattern into flags.OutputDir.
func BatchDecrypt(flags Flags, network *http.Network) error {
	return runBatch(flags, "decrypting", func(inputFile, relPath string) error {
		outputFile := filepath.Join(flags.OutputDir, strings.TrimSuffix(relPath, batchExt))

		return processFile(inputFile, outputFile, func(dst *os.File, src *os.File) error {
			return tlock.DecryptStream(dst, src, network, flags.TrustChainHash)
		})
	})
}

// runBatch walks the input directory and applies op to every matching file,
// spinning a progress indicator on stderr unless --quiet is set. Individual
// file failures don't abort the run; they are collected and reported at the
// end, and the run as a whole fails if any file did.
func runBatch(flags Flags, verb string, op func(inputFile, relPath string) error) error {
	if err := os.MkdirAll(flags.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	files, err := matchingFiles(flags.InputDir, flags.Pattern)
	if err != nil {
		return fmt.Errorf("listing input files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no files in %s match pattern %q", flags.InputDir, flags.Pattern)
	}

	spin := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	if !flags.Quiet {
		spin.Start()
		defer spin.Stop()
	}

	results := make([]BatchResult, 0, len(files))
	failed := 0

	for i, file := range files {
		spin.Suffix = fmt.Sprintf(" %s %d/%d: %s", verb, i+1, len(files), file)

		start := time.Now()
		result := BatchResult{File: file}

		relPath, err := filepath.Rel(flags.InputDir, file)
		if err != nil {
			result.Err = err
		} else {
			result.Err = op(file, relPath)
		}

		result.Duration = time.Since(start)
		if result.Err != nil {
			failed++
		}
		results = append(results, result)
	}

	if !flags.Quiet {
		spin.Stop()
		fmt.Fprintf(os.Stderr, "%s %d files, %d failed\n", verb, len(files), failed)
	}

	if failed > 0 {
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(os.Stderr, "  %s: %v\n", r.File, r.Err)
			}
		}
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}

	return nil
}

func processFile(inputFile, outputFile string, op func(dst *os.File, src *os.File) error) error {
	src, err := os.Open(inputFile)
	if err != nil {
		return fmt.Errorf("opening %s: %w", inputFile, err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(outputFile), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(outputFile), err)
	}

	dst, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outputFile, err)
	}

	if err := op(dst, src); err != nil {
		dst.Close()
		os.Remove(outputFile)
		return err
	}

	return dst.Close()
}

// matchingFiles lists regular files under dir whose base name matches
// pattern; an empty pattern matches everything.
func matchingFiles(dir, pattern string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}

		if pattern != "" {
			matched, err := filepath.Match(pattern, filepath.Base(path))
			if err != nil {
				return err
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}
