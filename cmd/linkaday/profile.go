package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmerrifield20/linkaday/internal/profiledoc"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect profile documents offline",
}

var profileValidateCmd = &cobra.Command{
	Use:   "validate <file|->",
	Short: "Check a profile document against the section schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(cmd, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if err := profiledoc.Validate(doc); err != nil {
			var verr *profiledoc.ValidationError
			if errors.As(err, &verr) {
				for _, f := range verr.Fields {
					fmt.Fprintf(out, "%s: %s\n", f.Path, f.Message)
				}
			}
			return fmt.Errorf("document is invalid")
		}
		fmt.Fprintln(out, "document is valid")
		return nil
	},
}

var profileCompletionCmd = &cobra.Command{
	Use:   "completion <file|->",
	Short: "Print the completion percentage of a profile document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(cmd, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d%%\n", profiledoc.CompletionPercentage(doc))
		return nil
	},
}

var profileDefaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Print the empty document a new profile starts with",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(profiledoc.Default())
	},
}

func init() {
	profileCmd.AddCommand(profileValidateCmd)
	profileCmd.AddCommand(profileCompletionCmd)
	profileCmd.AddCommand(profileDefaultCmd)
}

// readDocument reads a profile document from path, or stdin when path is "-".
func readDocument(cmd *cobra.Command, path string) (profiledoc.Document, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := profiledoc.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}
