package cli

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/gork-labs/gork/pkg/api"
)

func newValidateCommand(a *app) *cobra.Command {
	var (
		from     string
		typeName string
	)

	cmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a document against the schema of its discriminated type",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) > 0 {
				input = args[0]
			}
			return a.validate(cmd, input, from, typeName)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Input format (default: from file extension, else --format)")
	cmd.Flags().StringVar(&typeName, "type", "Item", "Registered type the document must conform to")
	return cmd
}

func (a *app) validate(cmd *cobra.Command, input, from, typeName string) error {
	base, err := a.lookupType(typeName)
	if err != nil {
		return err
	}
	f, err := formatFor(from, input, a.cfg.WireFormat())
	if err != nil {
		return err
	}

	data, err := readInput(cmd, input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	node, err := f.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", f.Name(), err)
	}

	spec := api.NewSpec(a.cfg.Server.Title, "v1", a.reg, a.cfg.Marshaler())
	sv, err := api.NewSchemaValidator(spec, a.codec)
	if err != nil {
		return err
	}
	if err := sv.Validate(node, base.GoType()); err != nil {
		return report(err)
	}

	if err := a.validateValues(node, base.GoType()); err != nil {
		return report(err)
	}

	a.logger.Debug().Str("type", base.QualifiedName()).Msg("document is valid")
	_, err = fmt.Fprintln(cmd.OutOrStdout(), "valid")
	return err
}

// validateValues decodes node and runs the struct validation rules on the
// result.
func (a *app) validateValues(node any, base reflect.Type) error {
	list, ok := node.([]any)
	if !ok {
		list = []any{node}
	}
	values := make([]any, 0, len(list))
	for i, n := range list {
		v, err := a.codec.Decode(n, base)
		if err != nil {
			if ok {
				return fmt.Errorf("[%d]: %w", i, err)
			}
			return err
		}
		values = append(values, v)
	}
	if !ok {
		return api.Validate(values[0])
	}
	return api.Validate(values)
}

func report(err error) error {
	var verr *api.ValidationErrorResponse
	if errors.As(err, &verr) {
		return fmt.Errorf("invalid document: %w", verr)
	}
	return err
}
