package cli

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/berfenger/amicomm/pkg/commmodule"
	"github.com/berfenger/amicomm/pkg/tlv"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

const (
	formatText = "text"
	formatYAML = "yaml"
)

var ErrUnknownFormat = errors.New("unknown output format")

func cmdDecode() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "decode HEX",
		Short: "Decode a captured TLV answer",
		Long: `Decode a captured TLV answer given as hex. Spaces and colons are ignored;
"-" reads the hex from stdin. A malformed buffer prints the records decoded
before the error and exits non-zero.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			if input == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				input = string(b)
			}
			buf, err := ParseHex(input)
			if err != nil {
				return err
			}
			return decode(cmd.OutOrStdout(), buf, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text or yaml")
	return cmd
}

// ParseHex accepts hex with optional whitespace, colons and a 0x prefix.
func ParseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "", "\r", "").Replace(s)
	buf, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return buf, nil
}

func decode(w io.Writer, buf []byte, format string) error {
	if format != formatText && format != formatYAML {
		return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	records, parseErr := tlv.Parse(buf)
	decoded, decodeErr := commmodule.DecodeRecords(records)

	switch format {
	case formatYAML:
		out, err := yaml.Marshal(decoded)
		if err != nil {
			return err
		}
		if _, err := w.Write(out); err != nil {
			return err
		}
	default:
		writeText(w, decoded)
	}
	return errors.Join(parseErr, decodeErr)
}

func writeText(w io.Writer, decoded []commmodule.DecodedTLV) {
	for _, d := range decoded {
		fmt.Fprintf(w, "%s (tag %d)\n", d.Name, d.Tag)
		writeValues(w, d.Values, 1)
	}
}

func writeValues(w io.Writer, values []tlv.Value, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, v := range values {
		if nested, ok := v.Value.([]tlv.Value); ok {
			fmt.Fprintf(w, "%s%s:\n", indent, v.Name)
			writeValues(w, nested, depth+1)
			continue
		}
		fmt.Fprintf(w, "%s%s: %v\n", indent, v.Name, v.Value)
	}
}
