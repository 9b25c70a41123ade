package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

type convertOptions struct {
	from     string
	to       string
	output   string
	typeName string
}

func newConvertCommand(a *app) *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert a document between wire formats",
		Long: "Convert reads a document in one wire format and writes it in another.\n" +
			"With --type the document is decoded against the named type and encoded\n" +
			"again, so discriminators are checked and normalized on the way.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) > 0 {
				input = args[0]
			}
			return a.convert(cmd, input, opts)
		},
	}

	cmd.Flags().StringVar(&opts.from, "from", "", "Input format (default: from file extension, else --format)")
	cmd.Flags().StringVar(&opts.to, "to", "", "Output format (default: from output extension, else --format)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", "Output file or '-' for stdout")
	cmd.Flags().StringVar(&opts.typeName, "type", "", "Decode and re-encode against this registered type")
	return cmd
}

func (a *app) convert(cmd *cobra.Command, input string, opts convertOptions) error {
	from, err := formatFor(opts.from, input, a.cfg.WireFormat())
	if err != nil {
		return err
	}
	to, err := formatFor(opts.to, opts.output, a.cfg.WireFormat())
	if err != nil {
		return err
	}

	data, err := readInput(cmd, input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	node, err := from.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", from.Name(), err)
	}

	if opts.typeName != "" {
		if node, err = a.normalize(node, opts.typeName); err != nil {
			return err
		}
	}

	out, err := to.Marshal(node)
	if err != nil {
		return fmt.Errorf("write %s: %w", to.Name(), err)
	}
	a.logger.Debug().Str("from", from.Name()).Str("to", to.Name()).Int("bytes", len(out)).Msg("converted")
	return writeOutput(cmd, opts.output, out)
}

// normalize decodes node against the named type and encodes the result
// again. Arrays are normalized element by element.
func (a *app) normalize(node any, typeName string) (any, error) {
	base, err := a.lookupType(typeName)
	if err != nil {
		return nil, err
	}

	one := func(n any) (any, error) {
		v, err := a.codec.Decode(n, base.GoType())
		if err != nil || v == nil {
			return nil, err
		}
		doc, err := a.codec.Encode(v, base.GoType())
		if err != nil {
			return nil, err
		}
		return doc, nil
	}

	list, ok := node.([]any)
	if !ok {
		return one(node)
	}
	out := make([]any, len(list))
	for i, n := range list {
		v, err := one(n)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
