package cli

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"nexus/internal/idea"
	"nexus/internal/report"
	"nexus/internal/types"
	"nexus/internal/util/jsonutil"
)

type expandOptions struct {
	format    string
	visualize bool
	imageOut  string
}

func newExpandCmd(root *rootOptions) *cobra.Command {
	opts := &expandOptions{}
	cmd := &cobra.Command{
		Use:   "expand [seed...]",
		Short: "Expand one idea and print the result",
		Long: `Expand a raw idea into a structured concept.

The seed is the joined arguments, or standard input when no arguments are given.

Example:
  nexus expand "Uber for dog walking"
  echo "A marketplace for used lab equipment" | nexus expand --format json
  nexus expand --image-out concept.png "Solar-powered bike locks"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(cmd, root, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "md", "Output format: md, html, json")
	cmd.Flags().BoolVar(&opts.visualize, "visualize", false, "Also generate concept art")
	cmd.Flags().StringVarP(&opts.imageOut, "image-out", "o", "", "Write the generated image to this file (implies --visualize)")
	return cmd
}

type expandResult struct {
	Seed            string           `json:"seed"`
	Expansion       *types.Expansion `json:"expansion"`
	Image           string           `json:"image,omitempty"`
	ImageIsFallback bool             `json:"imageIsFallback,omitempty"`
}

func runExpand(cmd *cobra.Command, root *rootOptions, opts *expandOptions, args []string) error {
	format := strings.ToLower(strings.TrimSpace(opts.format))
	switch format {
	case "md", "markdown", "html", "json":
	default:
		return fmt.Errorf("unsupported format %q (want md, html or json)", opts.format)
	}

	seed := strings.Join(args, " ")
	if len(args) == 0 {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read seed: %w", err)
		}
		seed = string(raw)
	}
	if strings.TrimSpace(seed) == "" {
		return errors.New("seed is required")
	}

	ctx := cmd.Context()
	rt, err := buildRuntime(ctx, root, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	machine := rt.NewMachine("cli-" + uuid.NewString())
	machine.Submit(ctx, seed)
	st := machine.State()
	if st.Expansion == nil {
		return errors.New(idea.ErrorMessage)
	}

	if opts.visualize || opts.imageOut != "" {
		machine.GenerateVisual(ctx)
		st = machine.State()
	}

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		raw, err := jsonutil.MarshalNoEscapeIndent(expandResult{
			Seed:            st.Seed,
			Expansion:       st.Expansion,
			Image:           st.Image.String(),
			ImageIsFallback: st.Image.IsFallback(),
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(raw))
	case "html":
		html, err := report.HTML(*st.Expansion)
		if err != nil {
			return err
		}
		fmt.Fprint(out, html)
	default:
		fmt.Fprint(out, report.Markdown(*st.Expansion))
	}

	if opts.imageOut != "" {
		return writeImage(cmd.ErrOrStderr(), opts.imageOut, st.Image)
	}
	return nil
}

// writeImage decodes a data URI into path. A placeholder is reported but not
// downloaded.
func writeImage(stderr io.Writer, path string, img types.ImageArtifact) error {
	if !img.IsDataURI() {
		fmt.Fprintf(stderr, "Visual unavailable; placeholder: %s\n", img)
		return nil
	}
	_, payload, ok := strings.Cut(img.String(), ";base64,")
	if !ok {
		return fmt.Errorf("unexpected image encoding")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	fmt.Fprintf(stderr, "Wrote %d bytes to %s\n", len(data), path)
	return nil
}
