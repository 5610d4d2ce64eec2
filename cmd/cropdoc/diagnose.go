package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vbonduro/cropdoc/internal/camera"
	"github.com/vbonduro/cropdoc/internal/capture"
	"github.com/vbonduro/cropdoc/internal/vision"
)

func newDiagnoseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose <image>",
		Short: "Diagnose a single crop photo and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			analyzer, err := newAnalyzer(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return fmt.Errorf("failed to create analyzer: %w", err)
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open image: %w", err)
			}
			defer func() { _ = f.Close() }()

			c := capture.New(camera.Unavailable{}, analyzer, captureOptions(a.cfg), a.logger)
			defer func() { _ = c.Close() }()
			return diagnose(cmd.Context(), c, f, cmd.OutOrStdout())
		},
	}
}

// diagnose runs one upload-then-analyze cycle and writes the three result
// lines to out.
func diagnose(ctx context.Context, c *capture.Controller, img io.Reader, out io.Writer) error {
	if err := c.LoadFromFile(ctx, img); err != nil {
		return userError(err)
	}
	if err := c.AnalyzeOrReset(ctx); err != nil {
		return userError(err)
	}
	return writeDiagnosis(out, c.View().Result)
}

func writeDiagnosis(out io.Writer, d *vision.Diagnosis) error {
	if d == nil {
		return errors.New("no diagnosis produced")
	}
	_, err := fmt.Fprintf(out, "Crop: %s\nDisease: %s\nSolution: %s\n", d.Crop, d.Disease, d.Solution)
	return err
}

// userError replaces a controller failure with the message the web UI would
// show, keeping the cause in the chain.
func userError(err error) error {
	var f *capture.Failure
	if errors.As(err, &f) {
		return fmt.Errorf("%s: %w", f.Kind.Message(), err)
	}
	return err
}
