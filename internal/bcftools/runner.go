// Package bcftools invokes the external bcftools and bgzip binaries
// for the normalization, filtering and compression steps, verifying
// exit codes and record-count invariants after every transformation.
package bcftools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"priovcf/internal/vcf"
)

// ExitError reports a non-zero exit from an invoked tool.
type ExitError struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s %s failed: %v\nstderr: %s",
		e.Tool, strings.Join(e.Args, " "), e.Err, strings.TrimSpace(e.Stderr))
}

func (e *ExitError) Unwrap() error { return e.Err }

// CountMismatchError reports a record-count violation across a
// transformation step, which signals silent data loss or corruption.
type CountMismatchError struct {
	Step   string
	Before int
	After  int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("%s changed the record count: %d before, %d after", e.Step, e.Before, e.After)
}

// Runner shells out to bcftools and bgzip. External tool invocations
// are blocking, sequential and never retried; any failure terminates
// the run.
type Runner struct {
	logger *zap.Logger
}

// NewRunner creates a runner with a no-op logger.
func NewRunner() *Runner {
	return &Runner{logger: zap.NewNop()}
}

// SetLogger sets the logger for per-step progress and counts.
func (r *Runner) SetLogger(l *zap.Logger) {
	r.logger = l
}

// run executes argv, capturing stderr for error context.
func (r *Runner) run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &ExitError{Tool: name, Args: args, Stderr: stderr.String(), Err: err}
	}
	return nil
}

// SplitVEP decomposes multi-transcript CSQ annotations to one record
// per consequence and expands the named CSQ sub-fields into
// CSQ_-prefixed INFO fields. Expansion must be lossless: the output
// may never have fewer records than the input.
func (r *Runner) SplitVEP(ctx context.Context, inputVCF, outputVCF string, fields []string) error {
	before, err := vcf.CountRecords(inputVCF)
	if err != nil {
		return err
	}

	columns := "-"
	if len(fields) > 0 {
		columns = strings.Join(fields, ",")
	}
	args := []string{
		"+split-vep",
		"-c", columns,
		"-Ov",
		"-p", "CSQ_",
		"-d", inputVCF,
		"-o", outputVCF,
	}
	r.logger.Info("splitting VEP annotation fields",
		zap.String("input", inputVCF),
		zap.String("output", outputVCF))
	if err := r.run(ctx, "bcftools", args...); err != nil {
		return err
	}

	after, err := vcf.CountRecords(outputVCF)
	if err != nil {
		return err
	}
	r.logger.Info("split complete", zap.Int("records_before", before), zap.Int("records_after", after))
	if after < before {
		return &CountMismatchError{Step: "bcftools +split-vep", Before: before, After: after}
	}
	return nil
}

// Filter applies the configured bcftools filter command to the VCF.
// The command is an arbitrary boolean-expression invocation from the
// run config (typically a soft filter writing EXCLUDE to FILTER), so
// it is executed through the shell. Soft filtering must preserve the
// record count.
func (r *Runner) Filter(ctx context.Context, filterCommand, inputVCF, outputVCF string) error {
	before, err := vcf.CountRecords(inputVCF)
	if err != nil {
		return err
	}

	full := fmt.Sprintf("%s %s -o %s", filterCommand, inputVCF, outputVCF)
	r.logger.Info("filtering VCF", zap.String("command", full))

	cmd := exec.CommandContext(ctx, "bash", "-c", full)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &ExitError{Tool: "bash", Args: []string{"-c", full}, Stderr: stderr.String(), Err: err}
	}

	after, err := vcf.CountRecords(outputVCF)
	if err != nil {
		return err
	}
	r.logger.Info("filter complete", zap.Int("records_before", before), zap.Int("records_after", after))
	if after != before {
		return &CountMismatchError{Step: "bcftools filter", Before: before, After: after}
	}
	return nil
}

// RemoveFields strips the CSQ_-prefixed INFO fields added for rule
// evaluation, returning the annotation to its delivery format. The
// record count must be unchanged.
func (r *Runner) RemoveFields(ctx context.Context, inputVCF, outputVCF string, fields []string) error {
	before, err := vcf.CountRecords(inputVCF)
	if err != nil {
		return err
	}

	tags := make([]string, len(fields))
	for i, f := range fields {
		tags[i] = "INFO/" + f
	}
	args := []string{
		"annotate",
		"-x", strings.Join(tags, ","),
		inputVCF,
		"-o", outputVCF,
	}
	r.logger.Info("removing split annotation fields",
		zap.String("input", inputVCF),
		zap.Int("fields", len(fields)))
	if err := r.run(ctx, "bcftools", args...); err != nil {
		return err
	}

	after, err := vcf.CountRecords(outputVCF)
	if err != nil {
		return err
	}
	if after != before {
		return &CountMismatchError{Step: "bcftools annotate -x", Before: before, After: after}
	}
	return nil
}

// Sort re-sorts the VCF by genomic position. The record count must be
// unchanged.
func (r *Runner) Sort(ctx context.Context, inputVCF, outputVCF string) error {
	before, err := vcf.CountRecords(inputVCF)
	if err != nil {
		return err
	}

	r.logger.Info("sorting VCF", zap.String("input", inputVCF))
	if err := r.run(ctx, "bcftools", "sort", inputVCF, "-o", outputVCF); err != nil {
		return err
	}

	after, err := vcf.CountRecords(outputVCF)
	if err != nil {
		return err
	}
	if after != before {
		return &CountMismatchError{Step: "bcftools sort", Before: before, After: after}
	}
	return nil
}

// BGZip block-compresses the file, writing <file>.gz and returning its
// path.
func (r *Runner) BGZip(ctx context.Context, file string) (string, error) {
	outPath := file + ".gz"
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", outPath, err)
	}

	r.logger.Info("compressing with bgzip", zap.String("file", file))

	cmd := exec.CommandContext(ctx, "bgzip", "--force", "-c", file)
	cmd.Stdout = out
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		out.Close()
		return "", &ExitError{Tool: "bgzip", Args: []string{"--force", "-c", file}, Stderr: stderr.String(), Err: err}
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", outPath, err)
	}
	return outPath, nil
}
