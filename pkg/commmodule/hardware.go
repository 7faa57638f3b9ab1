package commmodule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/berfenger/amicomm/pkg/tlv"
)

type HardwareDescription struct {
	HardwareAddress  string `json:"hardware_address" yaml:"hardware_address"`
	MAC              uint64 `json:"mac" yaml:"mac"`
	SerialNumber     string `json:"serial_number" yaml:"serial_number"`
	Model            string `json:"model" yaml:"model"`
	FirmwareRevision string `json:"firmware_revision" yaml:"firmware_revision"`
	HardwareRevision string `json:"hardware_revision" yaml:"hardware_revision"`
}

// ParseMACAddress reads the hardware address the comm module reports as an
// ASCII hex string ("123456" is 0x123456). Colons and dashes are ignored.
func ParseMACAddress(s string) (uint64, error) {
	clean := strings.NewReplacer(":", "", "-", "").Replace(strings.TrimSpace(s))
	if clean == "" || len(clean) > 16 {
		return 0, fmt.Errorf("invalid hardware address %q", s)
	}
	mac, err := strconv.ParseUint(clean, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hardware address %q: %w", s, err)
	}
	return mac, nil
}

// FormatMACAddress renders mac as colon separated EUI-64.
func FormatMACAddress(mac uint64) string {
	var sb strings.Builder
	for i := 7; i >= 0; i-- {
		fmt.Fprintf(&sb, "%02x", byte(mac>>(8*i)))
		if i > 0 {
			sb.WriteByte(':')
		}
	}
	return sb.String()
}

func DecodeHardwareDescription(records tlv.Records) (*HardwareDescription, error) {
	opts := records.Options(uint64(TagHardwareDesc))
	addr, err := requireField(opts, 0, "hardware_address")
	if err != nil {
		return nil, err
	}
	hw := &HardwareDescription{}
	if hw.HardwareAddress, err = addr.Text(); err != nil {
		return nil, err
	}
	if hw.MAC, err = ParseMACAddress(hw.HardwareAddress); err != nil {
		return nil, err
	}
	for field, dst := range map[uint8]*string{
		1: &hw.SerialNumber,
		2: &hw.Model,
		3: &hw.FirmwareRevision,
		4: &hw.HardwareRevision,
	} {
		o, ok := tlv.First(opts, field)
		if !ok {
			continue
		}
		if *dst, err = o.Text(); err != nil {
			return nil, err
		}
	}
	return hw, nil
}

func EncodeHardwareDescription(enc *tlv.Encoder, hw HardwareDescription) {
	enc.Record(TagHardwareDesc,
		tlv.NewString(0, hw.HardwareAddress),
		tlv.NewString(1, hw.SerialNumber),
		tlv.NewString(2, hw.Model),
		tlv.NewString(3, hw.FirmwareRevision),
		tlv.NewString(4, hw.HardwareRevision),
	)
}
