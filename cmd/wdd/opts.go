package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sryze/wdd/internal/config"
)

// Options is the validated operand set for one invocation.
type Options struct {
	If           string
	Of           string
	BlockSize    int64
	BlockSizeSet bool
	Count        int64 // -1 when absent
	Status       string
}

// parseOperands interprets dd-style name=value operands.
func parseOperands(args []string) (Options, error) {
	opts := Options{Count: -1}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || value == "" {
			return Options{}, fmt.Errorf("malformed operand %q (expected name=value)", arg)
		}
		switch name {
		case "if":
			opts.If = value
		case "of":
			opts.Of = value
		case "bs":
			n, err := parseSize(value)
			if err != nil || n <= 0 {
				return Options{}, fmt.Errorf("invalid block size %q", value)
			}
			opts.BlockSize = n
			opts.BlockSizeSet = true
		case "count":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil || n < 0 {
				return Options{}, fmt.Errorf("invalid block count %q", value)
			}
			opts.Count = n
		case "status":
			if value != "progress" && value != "none" {
				return Options{}, fmt.Errorf("unknown status level %q (use progress or none)", value)
			}
			opts.Status = value
		default:
			return Options{}, fmt.Errorf("unknown operand %q", name)
		}
	}

	if opts.If == "" || opts.Of == "" {
		return Options{}, errors.New("both if= and of= operands are required")
	}
	return opts, nil
}

// parseSize parses a decimal byte count with an optional binary suffix
// (k, m, or g, case-insensitive).
func parseSize(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("empty size")
	}
	mult := int64(1)
	switch s[len(s)-1] {
	case 'k', 'K':
		mult = 1 << 10
	case 'm', 'M':
		mult = 1 << 20
	case 'g', 'G':
		mult = 1 << 30
	}
	if mult > 1 {
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return n * mult, nil
}

// applyConfigDefaults fills operands absent from the command line with
// values from the optional config file.
func applyConfigDefaults(defaults config.DefaultsConfig, opts *Options) error {
	if !opts.BlockSizeSet && defaults.BlockSize != nil {
		n, err := parseSize(*defaults.BlockSize)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid bs default %q in config", *defaults.BlockSize)
		}
		opts.BlockSize = n
	}
	if opts.Status == "" && defaults.Status != nil {
		opts.Status = *defaults.Status
	}
	return nil
}
