package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/plc-ladder/backend/internal/catalog"
	"github.com/plc-ladder/backend/internal/format"
	"github.com/plc-ladder/backend/internal/models"
	"github.com/plc-ladder/backend/internal/validation"
	"github.com/spf13/cobra"
)

// invalidProjectError is returned by validate when the report has errors.
// The report itself has already been printed.
type invalidProjectError struct {
	errors int
}

func (e *invalidProjectError) Error() string {
	return fmt.Sprintf("project has %d errors", e.errors)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ladderctl",
		Short:         "Convert, validate and inspect ladder logic projects",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newConvertCmd(),
		newValidateCmd(),
		newInfoCmd(),
		newCatalogCmd(),
	)
	return root
}

// =============================================================================
// CONVERT
// =============================================================================

func newConvertCmd() *cobra.Command {
	var formatName string
	cmd := &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Convert a project between formats",
		Long: "Reads a project in any supported format and writes it in the format " +
			"of the output extension, or the one named by --format.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readProject(args[0])
			if err != nil {
				return err
			}

			reg := format.GetGlobalRegistry()
			var codec format.Codec
			if formatName != "" {
				codec, err = reg.ByName(formatName)
			} else {
				codec, err = reg.ForFile(args[1])
			}
			if err != nil {
				return err
			}

			data, _, err := reg.Marshal(codec.Name(), p)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[1], data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[1], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s, %d bytes)\n", args[1], codec.Name(), len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&formatName, "format", "f", "", "output format: "+strings.Join(format.GetGlobalRegistry().Names(), ", "))
	return cmd
}

// =============================================================================
// VALIDATE
// =============================================================================

func newValidateCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Lint a project file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readProject(args[0])
			if err != nil {
				return err
			}
			report := validation.ValidateProject(p)

			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(out, report); err != nil {
					return err
				}
			} else {
				for _, issue := range report.Errors {
					fmt.Fprintf(out, "ERROR   %s\n", issue)
				}
				for _, issue := range report.Warnings {
					fmt.Fprintf(out, "WARNING %s\n", issue)
				}
				if report.Valid {
					fmt.Fprintf(out, "%s: valid (%d warnings)\n", filepath.Base(args[0]), len(report.Warnings))
				} else {
					fmt.Fprintf(out, "%s: %d errors, %d warnings\n", filepath.Base(args[0]), len(report.Errors), len(report.Warnings))
				}
			}

			if !report.Valid {
				return &invalidProjectError{errors: len(report.Errors)}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

// =============================================================================
// INFO
// =============================================================================

// projectInfo summarizes a project file.
type projectInfo struct {
	Name          string `json:"name"`
	Author        string `json:"author,omitempty"`
	Rungs         int    `json:"rungs"`
	Components    int    `json:"components"`
	Segments      int    `json:"segments"`
	VerticalLinks int    `json:"verticalLinks"`
	POUs          int    `json:"pous"`
}

func summarize(p *models.Project) projectInfo {
	info := projectInfo{
		Name:          p.Name,
		Author:        p.Settings.Author(),
		Rungs:         len(p.Rungs),
		Components:    p.ComponentCount(),
		VerticalLinks: len(p.VerticalLinks),
		POUs:          len(p.POUs),
	}
	for _, r := range p.Rungs {
		info.Segments += len(r.Segments)
	}
	return info
}

func newInfoCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Print a summary of a project file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readProject(args[0])
			if err != nil {
				return err
			}
			info := summarize(p)

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, info)
			}
			fmt.Fprintf(out, "Project:        %s\n", info.Name)
			if info.Author != "" {
				fmt.Fprintf(out, "Author:         %s\n", info.Author)
			}
			fmt.Fprintf(out, "Rungs:          %d\n", info.Rungs)
			fmt.Fprintf(out, "Components:     %d\n", info.Components)
			fmt.Fprintf(out, "Segments:       %d\n", info.Segments)
			fmt.Fprintf(out, "Vertical links: %d\n", info.VerticalLinks)
			fmt.Fprintf(out, "POUs:           %d\n", info.POUs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

// =============================================================================
// CATALOG
// =============================================================================

func newCatalogCmd() *cobra.Command {
	var (
		file   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the component palette",
		Long:  "Lists the built-in palette, or checks and lists a YAML catalog file given with --file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := catalog.Default()
			if file != "" {
				var err error
				if cat, err = catalog.Load(file); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, cat.Model())
			}
			for _, category := range cat.Model().Categories {
				fmt.Fprintf(out, "%s\n", category.Name)
				for _, tool := range category.Tools {
					fmt.Fprintf(out, "  %-14s width %d  %s\n", tool.Type, tool.Width, tool.Label)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML catalog file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return cmd
}

// Helpers

func readProject(path string) (*models.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return format.GetGlobalRegistry().DecodeFile(path, data)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
