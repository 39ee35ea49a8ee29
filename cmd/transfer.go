// -- cmd/transfer.go --
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/gatectl/internal/reporting"
)

// documentFormat picks the document format from an explicit flag, then the
// file extension. JSON is the default.
func documentFormat(flag, path string) string {
	if flag != "" {
		return strings.ToLower(flag)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return reporting.FormatYAML
	}
	return reporting.FormatJSON
}

func newExportCmd(a *app) *cobra.Command {
	var out, format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored overrides to a file or stdout",
		Long: `Write the stored overrides to a file or stdout.

JSON output is byte for byte what the page stores, so it can be imported into
another browser profile or pasted into localStorage by hand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, release, err := a.session(cmd)
			if err != nil {
				return err
			}
			defer release()

			data, err := reporting.EncodeDocument(c.Controller.Overrides(), documentFormat(format, out))
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			w, err := reporting.OpenOutput(out)
			if err != nil {
				return err
			}
			if _, err := w.Write(data); err != nil {
				w.Close()
				return fmt.Errorf("write %s: %w", out, err)
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported overrides to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "file to write (default stdout)")
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default from the file extension, else json)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the stored overrides with the contents of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			var (
				data []byte
				err  error
			)
			if path == "-" {
				data, err = io.ReadAll(a.input(cmd))
			} else {
				data, err = os.ReadFile(path)
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			set, err := reporting.DecodeDocument(data, documentFormat(format, path))
			if err != nil {
				return fmt.Errorf("import %s: %w", path, err)
			}

			c, release, err := a.session(cmd)
			if err != nil {
				return err
			}
			defer release()
			return c.Controller.Replace(cmd.Context(), set)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default from the file extension, else json)")
	return cmd
}
