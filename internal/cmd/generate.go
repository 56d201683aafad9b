package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/prysmsh/tpsdk/internal/output"
	"github.com/prysmsh/tpsdk/internal/util"
	"github.com/prysmsh/tpsdk/pkg/codegen"
	"github.com/prysmsh/tpsdk/pkg/definition"
)

// EntryFile is the description document Touch Portal loads.
const EntryFile = "entry.tp"

type generateOptions struct {
	pkg       string
	outDir    string
	sdkImport string
	force     bool
	entryOnly bool
}

func newGenerateCommand() *cobra.Command {
	var (
		src  source
		opts generateOptions
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write entry.tp and the typed Go handler interface",
		Long: `Validate a definition, then write entry.tp and <package>_gen.go to the
output directory. Nothing is written unless both files were produced.`,
		Example: `  tpsdk generate --plugin ./bin/tpsdk-provider-mixer --package mixer --out ./mixer
  tpsdk generate -f entry.tp --entry-only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := MustApp()
			if !cmd.Flags().Changed("package") {
				opts.pkg = a.Config.Package
			}
			if !cmd.Flags().Changed("out") {
				opts.outDir = a.Config.OutDir
			}
			d, err := src.load(cmd.Context(), a)
			if err != nil {
				return err
			}
			confirm := func(path string) (bool, error) {
				if !util.IsTerminal(os.Stdin) {
					return false, nil
				}
				return util.PromptConfirm(path+" exists, overwrite?", false)
			}
			return runGenerate(a.Writer(cmd), d, opts, confirm)
		},
	}
	src.addFlags(cmd)
	cmd.Flags().StringVar(&opts.pkg, "package", "plugin", "Go package name of the generated file")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", ".", "output directory")
	cmd.Flags().StringVar(&opts.sdkImport, "sdk-import", codegen.DefaultSDKImport, "import path of the tpsdk module")
	cmd.Flags().BoolVar(&opts.force, "force", false, "overwrite existing files without asking")
	cmd.Flags().BoolVar(&opts.entryOnly, "entry-only", false, "only write entry.tp")
	return cmd
}

type artifact struct {
	path string
	data []byte
}

// runGenerate produces both artifacts in memory first so that a projection
// failure leaves the output directory untouched.
func runGenerate(w *output.Writer, d *definition.Description, opts generateOptions, confirm func(string) (bool, error)) error {
	m, err := runValidate(w, d, false)
	if err != nil {
		return err
	}

	entry, err := codegen.EntryTP(m)
	if err != nil {
		return fmt.Errorf("render %s: %w", EntryFile, err)
	}
	files := []artifact{{filepath.Join(opts.outDir, EntryFile), entry}}

	if !opts.entryOnly {
		src, err := codegen.GenerateGo(m, codegen.Options{Package: opts.pkg, SDKImport: opts.sdkImport})
		if err != nil {
			return err
		}
		files = append(files, artifact{filepath.Join(opts.outDir, opts.pkg+"_gen.go"), src})
	}

	if !opts.force {
		for _, f := range files {
			if _, err := os.Stat(f.path); errors.Is(err, os.ErrNotExist) {
				continue
			}
			ok, err := confirm(f.path)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s exists (use --force to overwrite)", f.path)
			}
		}
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := writeAll(files); err != nil {
		return err
	}
	for _, f := range files {
		w.Success("wrote %s", f.path)
	}
	return nil
}

// writeAll stages every artifact next to its target before renaming any of
// them. If a rename fails the targets already replaced get their previous
// contents back.
func writeAll(files []artifact) error {
	tmps := make([]string, 0, len(files))
	defer func() {
		for _, tmp := range tmps {
			_ = os.Remove(tmp)
		}
	}()
	for _, f := range files {
		tmp, err := stage(f)
		if err != nil {
			return err
		}
		tmps = append(tmps, tmp)
	}

	var replaced []artifact
	var created []string
	for i, f := range files {
		old, readErr := os.ReadFile(f.path)
		if err := os.Rename(tmps[i], f.path); err != nil {
			for _, r := range replaced {
				_ = os.WriteFile(r.path, r.data, 0o644)
			}
			for _, c := range created {
				_ = os.Remove(c)
			}
			return fmt.Errorf("write %s: %w", f.path, err)
		}
		if readErr == nil {
			replaced = append(replaced, artifact{f.path, old})
		} else {
			created = append(created, f.path)
		}
	}
	return nil
}

func stage(f artifact) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*")
	if err != nil {
		return "", fmt.Errorf("write %s: %w", f.path, err)
	}
	if _, err := tmp.Write(f.data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", f.path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", f.path, err)
	}
	return tmp.Name(), nil
}
