package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/services"
)

type queryOptions struct {
	input        string
	file         string
	currentTitle string
	permissions  []string
	protected    bool
	showSQL      bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Evaluate one page list request",
		Long: `Evaluate one page list request and print the result.

The request is the option block a wiki page would contain, one
"name = value" per line. Pass it with --input, from a file with --file,
or on stdin with --file -.

Examples:
  pagelist query --input 'category = Fruit'
  pagelist query --file request.txt --format yaml
  echo 'category = Fruit|Vegetables' | pagelist query --file - --show-sql`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "request text")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "read the request from a file (- for stdin)")
	cmd.Flags().StringVar(&opts.currentTitle, "current-title", "", "title of the page hosting the list")
	cmd.Flags().StringSliceVar(&opts.permissions, "permission", nil, "caller capability, e.g. pagelist-debug (repeatable)")
	cmd.Flags().BoolVar(&opts.protected, "protected", false, "treat the hosting page as protected")
	cmd.Flags().BoolVar(&opts.showSQL, "show-sql", false, "print the generated SQL")
	cmd.MarkFlagsMutuallyExclusive("input", "file")

	return cmd
}

func runQuery(cmd *cobra.Command, rootOpts *RootOptions, opts *queryOptions) error {
	input, err := readInput(cmd.InOrStdin(), opts)
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig(rootOpts)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	exec, err := openExecutor(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer exec.Close()

	svc, err := services.NewPageListService(exec, cfg, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create page list service", err)
	}

	result, err := svc.Evaluate(ctx, &services.EvaluateRequest{
		Input:        input,
		CurrentTitle: opts.currentTitle,
		Permissions:  opts.permissions,
		Protected:    opts.protected,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "evaluation failed", err)
	}
	logger.Debug("Query command finished", zap.String("evaluation_id", result.EvaluationID.String()))

	if rootOpts.Format == "text" {
		err = renderResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), result, opts.showSQL)
	} else {
		err = encode(cmd.OutOrStdout(), rootOpts.Format, result)
	}
	if err != nil {
		return err
	}

	if result.HasCritical() {
		return NewExitError(ExitCritical, "evaluation aborted")
	}
	return nil
}

func readInput(stdin io.Reader, opts *queryOptions) (string, error) {
	switch opts.file {
	case "":
		if opts.input == "" {
			return "", NewExitError(ExitCommandError, "one of --input or --file is required")
		}
		return opts.input, nil
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", WrapExitError(ExitCommandError, "failed to read stdin", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return "", WrapExitError(ExitCommandError, fmt.Sprintf("failed to read %s", opts.file), err)
		}
		return string(data), nil
	}
}
