package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrsinham/dicombids/internal/batch"
	"github.com/mrsinham/dicombids/internal/errs"
	xlog "github.com/mrsinham/dicombids/internal/log"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check batch documents against the input tree and BIDS naming (no conversion)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := xlog.WithComponent("validate")
			out := cmd.OutOrStdout()

			invalid := 0
			for _, path := range args {
				doc, err := batch.Load(path)
				if err != nil {
					return err
				}
				problems := batch.Validate(doc)
				if len(problems) == 0 {
					fmt.Fprintf(out, "✓ %s (%d files)\n", path, len(doc.Files))
					continue
				}
				invalid++
				fmt.Fprintf(out, "✗ %s\n", path)
				for _, p := range problems {
					fmt.Fprintf(out, "  - %s\n", p)
					logger.Debug().Str("document", path).Int("index", p.Index).Str("field", p.Field).Msg(p.Message)
				}
			}

			if invalid > 0 {
				return errs.New("validate", errs.KindInvalidDocument, "", fmt.Errorf("%d of %d documents have problems", invalid, len(args)))
			}
			return nil
		},
	}
}
