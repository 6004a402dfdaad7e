package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrsinham/dicombids/cmd/dicombids/review"
	"github.com/mrsinham/dicombids/internal/batch"
	"github.com/mrsinham/dicombids/internal/bids"
	"github.com/mrsinham/dicombids/internal/classify"
	"github.com/mrsinham/dicombids/internal/config"
	"github.com/mrsinham/dicombids/internal/dicom"
	"github.com/mrsinham/dicombids/internal/errs"
	xlog "github.com/mrsinham/dicombids/internal/log"
	"github.com/mrsinham/dicombids/internal/preview"
	"github.com/mrsinham/dicombids/internal/scan"
)

// projectFlags are the flags shared by generate and inspect that override
// the project configuration.
type projectFlags struct {
	configPath     string
	output         string
	configDir      string
	sub, ses       int
	subLabel       string
	sesLabel       string
	precision      int
	skipFmap       bool
	keepIncomplete bool
	ignore         []string
	discover       string
}

func (f *projectFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.configPath, "config", "", "project configuration file (default: $"+config.EnvPath+")")
	fl.StringVarP(&f.output, "output", "o", "./out/", "root directory of the converted NIfTI files")
	fl.IntVarP(&f.sub, "sub", "s", 0, "subject index, at least 1 (default: detected from the input path, else 1)")
	fl.IntVarP(&f.ses, "ses", "e", 0, "session index, at least 1 (default: detected from the input path, else 1)")
	fl.StringVar(&f.subLabel, "sub-label", "", "subject label placed before the index")
	fl.StringVar(&f.sesLabel, "ses-label", "", "session label placed before the index")
	fl.IntVar(&f.precision, "precision", bids.DefaultPrecision, "zero padding of subject and session indices")
	fl.BoolVarP(&f.skipFmap, "skip-fmap", "f", false, "leave field maps out")
	fl.BoolVar(&f.keepIncomplete, "keep-incomplete", false, "map acquisitions with fewer files than planned repetitions")
	fl.StringArrayVar(&f.ignore, "ignore", nil, "skip series directories matching this pattern (repeatable, default *localizer*)")
	fl.StringVar(&f.discover, "discover", "", "treat INPUT as a tree and map every directory matching this pattern (e.g. '"+scan.DefaultDiscover+"')")
}

// load reads the project configuration and applies the flags the user set.
func (f *projectFlags) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(config.Path(f.configPath))
	if err != nil {
		return config.Config{}, err
	}

	changed := cmd.Flags().Changed
	if changed("output") {
		cfg.OutputDir = f.output
	}
	if changed("config-dir") {
		cfg.ConfigDir = f.configDir
	}
	if changed("sub") {
		if f.sub < 1 {
			return config.Config{}, errs.New("flags", errs.KindInvalidConfig, "", fmt.Errorf("--sub must be at least 1, got %d", f.sub))
		}
		cfg.Subject = f.sub
	}
	if changed("ses") {
		if f.ses < 1 {
			return config.Config{}, errs.New("flags", errs.KindInvalidConfig, "", fmt.Errorf("--ses must be at least 1, got %d", f.ses))
		}
		cfg.Session = f.ses
	}
	if changed("sub-label") {
		cfg.SubjectLabel = f.subLabel
	}
	if changed("ses-label") {
		cfg.SessionLabel = f.sesLabel
	}
	if changed("precision") {
		cfg.Precision = f.precision
	}
	if changed("skip-fmap") {
		cfg.SkipFieldmaps = f.skipFmap
	}
	if changed("keep-incomplete") {
		cfg.SkipIncomplete = !f.keepIncomplete
	}
	if changed("ignore") {
		cfg.Ignore = f.ignore
	}
	if changed("discover") {
		cfg.Discover = f.discover
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, errs.New("flags", errs.KindInvalidConfig, "", err)
	}
	return cfg, nil
}

// sessions expands the inputs into session directories.
func sessions(inputs []string, cfg config.Config) ([]string, error) {
	if cfg.Discover == "" {
		return inputs, nil
	}
	var dirs []string
	for _, in := range inputs {
		found, err := scan.Discover(in, cfg.Discover)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, errs.New("discover", errs.KindNotFound, in,
				fmt.Errorf("no directory matches %q", cfg.Discover))
		}
		dirs = append(dirs, found...)
	}
	return dirs, nil
}

// namerFor resolves the subject and session of a session directory: explicit
// values first, then the input path, then 1.
func namerFor(dir string, cfg config.Config) (*bids.Namer, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}

	sub := cfg.Subject
	if sub == 0 {
		sub = 1
		if n, ok := bids.SubjectFromPath(abs); ok {
			sub = n
		}
	}
	ses := cfg.Session
	if ses == 0 {
		ses = 1
		if n, ok := bids.SessionFromPath(abs); ok {
			ses = n
		}
	}

	n, err := bids.NewNamer(bids.Entities{
		Subject: bids.LabelIndex(cfg.SubjectLabel, sub),
		Session: bids.LabelIndex(cfg.SessionLabel, ses),
	}, cfg.Precision)
	if err != nil {
		return nil, errs.New("naming", errs.KindMalformedLabel, dir, err)
	}
	return n, nil
}

// planSession lists, classifies and names the series of one session directory.
func planSession(dir string, cfg config.Config, logger zerolog.Logger) (*batch.Plan, error) {
	n, err := namerFor(dir, cfg)
	if err != nil {
		return nil, err
	}
	listing, err := scan.List(dir, scan.Options{Ignore: cfg.Ignore})
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("session", listing.Root).Int("series", len(listing.Series)).Msg("listed session")

	plan, err := batch.Build(n, cfg.OutputDir, listing, classify.New(cfg))
	if err != nil {
		return nil, err
	}
	for _, e := range plan.Entries {
		logger.Debug().
			Str("series", e.Series.Name).
			Str("source", string(e.Classification.Source)).
			Str("filename", e.File.Filename).
			Msg("series mapped")
	}
	return plan, nil
}

func generateCmd() *cobra.Command {
	var (
		flags       projectFlags
		toStdout    bool
		previewDir  string
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "generate INPUT...",
		Short: "Write the dcm2niibatch document of one or more sessions",
		Long: `generate maps every series directory of each INPUT session onto a BIDS
file name and writes <sub>_<ses>.yaml into the configuration directory.

Series that cannot be mapped (localizers, unknown sequences, incomplete
acquisitions, non-DICOM folders) are left out and reported.`,
		Example: `  dicombids generate /data/sub-x001/ses-mri-X1
  dicombids generate -s 3 -e 2 -o /bids --skip-fmap ./session
  dicombids generate --discover '**/ses-mri-X*' /data --config-dir ./batches`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			dirs, err := sessions(args, cfg)
			if err != nil {
				return err
			}

			logger := xlog.WithComponent("generate")
			out := cmd.OutOrStdout()
			progress := out
			if toStdout {
				progress = cmd.ErrOrStderr()
			}

			fmt.Fprintln(progress, "dicombids")
			fmt.Fprintln(progress, "=========")

			plans := make([]*batch.Plan, 0, len(dirs))
			for _, dir := range dirs {
				plan, err := planSession(dir, cfg, logger)
				if err != nil {
					return err
				}

				if interactive {
					ok, err := review.Run(plan)
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintf(progress, "\nSkipped %s: review cancelled\n", plan.Input)
						continue
					}
				}
				plans = append(plans, plan)
			}
			if err := distinctDocuments(plans); err != nil {
				return err
			}

			var docs []batch.Document
			for _, plan := range plans {
				report(progress, plan, logger)

				if previewDir != "" {
					writePreviews(progress, previewDir, plan, logger)
				}

				doc := plan.Document(batch.OptionsFrom(cfg.Options))
				if toStdout {
					docs = append(docs, doc)
					continue
				}

				path := filepath.Join(cfg.ConfigDir, plan.Name())
				if err := batch.Write(path, doc); err != nil {
					return err
				}
				fmt.Fprintf(progress, "\n✓ Wrote %s (%d series, %d excluded)\n", path, len(doc.Files), len(plan.Excluded))
			}

			if toStdout && len(docs) > 0 {
				return batch.Encode(out, docs...)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&flags.configDir, "config-dir", "c", ".", "directory the batch documents are written to")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "print the documents instead of writing them")
	cmd.Flags().StringVar(&previewDir, "previews", "", "write a PNG preview of every mapped series under this directory")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "review subject, session and series before writing")
	return cmd
}

// distinctDocuments fails when two sessions of one run resolve to the same
// document, which would otherwise be overwritten by the later session.
func distinctDocuments(plans []*batch.Plan) error {
	seen := make(map[string]string, len(plans))
	for _, p := range plans {
		name := p.Name()
		if first, dup := seen[name]; dup {
			return errs.New("generate", errs.KindInvalidConfig, "",
				fmt.Errorf("sessions %s and %s both map to %s; pass distinct --sub/--ses values or sub-xN/ses-mri-XN input paths",
					first, p.Input, name))
		}
		seen[name] = p.Input
	}
	return nil
}

func report(w io.Writer, plan *batch.Plan, logger zerolog.Logger) {
	fmt.Fprintf(w, "\nSession %s (%s)\n", plan.Input, plan.Namer.Prefix())
	for _, e := range plan.Entries {
		fmt.Fprintf(w, "  ✓ %s → %s/%s\n", e.Series.Name, e.Classification.Datatype, e.File.Filename)
	}
	for _, x := range plan.Excluded {
		fmt.Fprintf(w, "  ✗ %s: %s\n", x.Series, x.Reason)
		logger.Warn().Str("series", x.Series).Str("reason", x.Reason).Msg("series excluded")
	}
}

func writePreviews(w io.Writer, root string, plan *batch.Plan, logger zerolog.Logger) {
	written := 0
	for _, e := range plan.Entries {
		h := e.Classification.Header
		if h == nil {
			continue
		}
		img, err := dicom.LoadFrame(h.SampleFile)
		if err != nil {
			lvl := logger.Warn()
			if errors.Is(err, dicom.ErrNoPixelData) {
				lvl = logger.Debug()
			}
			lvl.Err(err).Str("series", e.Series.Name).Msg("no preview")
			continue
		}
		path := filepath.Join(root, filepath.FromSlash(plan.Namer.Dir()), string(e.Classification.Datatype), e.File.Filename+".png")
		if err := preview.WriteFile(path, preview.Render(img, e.File.Filename, preview.DefaultSize)); err != nil {
			logger.Warn().Err(err).Str("series", e.Series.Name).Msg("preview not written")
			continue
		}
		written++
	}
	fmt.Fprintf(w, "  ✓ %d previews in %s\n", written, root)
}
