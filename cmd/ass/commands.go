package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tendant/smooth-storage/pkg/ass"
)

// NewSearchCommand creates the search command
func NewSearchCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "search [key=value...]",
		Short: "Search stored files",
		Long: `Search stored files. Each argument becomes a query parameter, in order,
for example: ass search path=reports/ content_type=application/pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args)
			if err != nil {
				return err
			}

			c, err := newClient(cmd)
			if err != nil {
				return err
			}

			if raw {
				docs, err := c.Search(cmd.Context(), params...)
				if err != nil {
					return fmt.Errorf("search failed: %w", err)
				}
				return printJSON(cmd, docs)
			}

			recs, err := c.SearchFiles(cmd.Context(), params...)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return printJSON(cmd, recs)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print results as returned, without requiring file record fields")

	return cmd
}

// NewUploadCommand creates the upload command
func NewUploadCommand() *cobra.Command {
	var maxAge uint32

	cmd := &cobra.Command{
		Use:   "upload <file> <destination>",
		Short: "Upload a file",
		Long: `Upload a file to files/<destination><file name>. End destination with "/"
to upload into a directory.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}

			var rec ass.FileRecord
			if cmd.Flags().Changed("max-age") {
				rec, err = c.UploadFileWithCache(cmd.Context(), args[0], args[1], maxAge)
			} else {
				rec, err = c.UploadFile(cmd.Context(), args[0], args[1])
			}
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}
			return printJSON(cmd, rec)
		},
	}

	cmd.Flags().Uint32Var(&maxAge, "max-age", 0, "Cache-Control max age in seconds")

	return cmd
}

// NewUploadImageCommand creates the upload-image command
func NewUploadImageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload-image <file>",
		Short: "Upload an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}

			rec, err := c.UploadImage(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}
			return printJSON(cmd, rec)
		},
	}
}

// NewFileInfoCommand creates the file-info command
func NewFileInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "file-info <id>",
		Short: "Show a stored file record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}

			rec, err := c.GetFileInformation(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		},
	}
}

// NewFileAnalysisCommand creates the file-analysis command
func NewFileAnalysisCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "file-analysis <id>",
		Short: "Show the analysis of a stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}

			doc, err := c.GetFileAnalysis(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, doc)
		},
	}
}

// NewFileRenderCommand creates the file-render command
func NewFileRenderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "file-render <id>",
		Short: "Show the rendered image record of a stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}

			rec, err := c.GetFileRender(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		},
	}
}

// NewImageInfoCommand creates the image-info command
func NewImageInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "image-info <id>",
		Short: "Show a stored image record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}

			rec, err := c.GetImageInformation(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		},
	}
}

// NewFileURLCommand creates the file-url command
func NewFileURLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "file-url <path>",
		Short: "Print the signed public link of a stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}

			link, err := c.GetFileURL(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}
}

// NewImageURLCommand creates the image-url command
func NewImageURLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "image-url <id>",
		Short: "Print the signed public link of a stored image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := newClient(cmd)
			if err != nil {
				return err
			}

			link, err := c.GetImageURL(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}
}

// NewSignCommand creates the sign command
func NewSignCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sign <url>",
		Short: "Sign an arbitrary URL of the account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}

			signed, err := c.Signer().SignURL(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
}

// NewVerifyCommand creates the verify command
func NewVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <signed-url>",
		Short: "Check the access token of a signed URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}

			if err := c.Signer().Verify(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
}

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an account file",
		Long: `Write the account given by --url, --account and --apikey (or ASS_* variables)
to a JSON account file readable with --account-file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			cred, err := cfg.Credential()
			if err != nil {
				return err
			}

			if err := ass.SaveCredential(output, cred); err != nil {
				return fmt.Errorf("failed to write account file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s for account %s\n", output, cred.AccountName())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "account.json", "account file path")

	return cmd
}

func parseParams(args []string) ([]ass.Param, error) {
	params := make([]ass.Param, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid search parameter %q, expected key=value", arg)
		}
		params = append(params, ass.Param{Key: key, Value: value})
	}
	return params, nil
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
