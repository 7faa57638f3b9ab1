package cli

import (
	"strings"
	"time"

	"github.com/berfenger/amicomm/internal/config"
	"github.com/berfenger/amicomm/internal/core/service"
	"github.com/berfenger/amicomm/internal/device"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func cmdRead(v *viper.Viper) *cobra.Command {
	var (
		identifier string
		format     string
		verbose    bool
	)
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read diagnostics from the simulated comm module",
		Long: `Read a full diagnostics snapshot, or with --tlv the answer to one TLV
identifier, from the simulated comm module configured by flags, the
configuration file and AMICOMM_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, cmd)
			if err != nil {
				return err
			}
			logger := zap.NewNop()
			if verbose {
				logger = zap.Must(zap.NewDevelopment())
			}
			h, err := device.Open(cfg, logger)
			if err != nil {
				return err
			}
			svc := service.NewDiagnosticsService(h.Module, logger)

			if identifier != "" {
				raw, _, err := svc.ReadTLV(identifier)
				if raw == nil {
					return err
				}
				return decode(cmd.OutOrStdout(), raw, format)
			}

			out, err := yaml.Marshal(svc.Collect(time.Now()))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&identifier, "tlv", "", "read a single TLV identifier, e.g. q=53")
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format for --tlv: text or yaml")
	cmd.Flags().String("firmware", "", "simulated comm module firmware version")
	cmd.Flags().String("hardware", "", "simulated comm module hardware version")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log PSEM calls")
	return cmd
}

func loadConfig(v *viper.Viper, cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config

	v.SetDefault("device.simulate", true)
	v.SetDefault("device.firmware_version", "6.1.0")
	v.SetDefault("device.hardware_version", "2.0")
	v.SetDefault("comm_module.activation_threshold", "5.5.0")
	v.SetDefault("comm_module.pan_id_reverse_below", "5.2.0")
	v.SetDefault("comm_module.ip_stack_reset_delay_millis", 0)

	v.SetEnvPrefix("amicomm")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if f := cmd.Flag("config"); f != nil && f.Value.String() != "" {
		v.SetConfigFile(f.Value.String())
		if err := v.ReadInConfig(); err != nil {
			return cfg, err
		}
	}
	if err := v.BindPFlag("device.firmware_version", cmd.Flags().Lookup("firmware")); err != nil {
		return cfg, err
	}
	if err := v.BindPFlag("device.hardware_version", cmd.Flags().Lookup("hardware")); err != nil {
		return cfg, err
	}

	err := v.Unmarshal(&cfg)
	return cfg, err
}
