package cli

import (
	"fmt"

	"github.com/carlmjohnson/versioninfo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// CmdAmiDiag builds the offline diagnostics tool. Each call returns a fresh
// command tree with its own configuration.
func CmdAmiDiag() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "amidiag",
		Short:         "AMI comm module diagnostics",
		Long:          "Decode captured comm module TLV answers and read diagnostics from a simulated meter.",
		Version:       versioninfo.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.PersistentFlags().String("config", "", "YAML configuration file")

	cmd.AddCommand(cmdDecode())
	cmd.AddCommand(cmdRead(v))
	cmd.AddCommand(cmdVersion())
	return cmd
}

func cmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "amidiag %s (revision %s, %s)\n",
				versioninfo.Short(), versioninfo.Revision, versioninfo.LastCommit.Format("2006-01-02"))
		},
	}
}
